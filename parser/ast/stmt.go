// Copyright © 2024 The Mago authors

package ast

import (
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

// Tag is an opening or closing tag appearing as a statement.
type Tag struct {
	Loc
	Kind token.Kind
}

// InlineHTML is template text outside of script tags.
type InlineHTML struct {
	Loc
	Value string
}

// ExprStmt is an expression evaluated for its effects.
type ExprStmt struct {
	Loc
	Expr       Expr
	Terminator source.Span
}

// Echo is echo a, b; or <?= a ?>.
type Echo struct {
	Loc
	Values     []Expr
	Separators []source.Span
	Terminator source.Span
}

// Block is a braced statement list, or the body of an alternative-syntax
// construct.
type Block struct {
	Loc
	Statements []Stmt
}

// ElseIf is one elseif clause.
type ElseIf struct {
	Loc
	Cond Expr
	Body Stmt
}

// If is an if statement in either syntax.
type If struct {
	Loc
	Cond    Expr
	Then    Stmt
	ElseIfs []*ElseIf
	Else    Stmt
}

// While is while (c) body.
type While struct {
	Loc
	Cond Expr
	Body Stmt
}

// DoWhile is do body while (c);.
type DoWhile struct {
	Loc
	Body Stmt
	Cond Expr
}

// For is for (init; cond; step) body.
type For struct {
	Loc
	Init []Expr
	Cond []Expr
	Step []Expr
	Body Stmt
}

// Foreach is foreach (e as k => v) body.
type Foreach struct {
	Loc
	Expr  Expr
	Key   Expr
	Value Expr
	ByRef bool
	Body  Stmt
}

// SwitchCase is a case or default clause.  Cond is nil for default.
type SwitchCase struct {
	Loc
	Cond Expr
	Body []Stmt
}

// Switch is a switch statement.
type Switch struct {
	Loc
	Subject Expr
	Cases   []*SwitchCase
}

// Break is break or break n.
type Break struct {
	Loc
	Level Expr
}

// Continue is continue or continue n.
type Continue struct {
	Loc
	Level Expr
}

// Return is return or return e.
type Return struct {
	Loc
	Value Expr
}

// Catch is one catch clause.  Var is nil for catch (T).
type Catch struct {
	Loc
	Types []*Name
	Var   *Variable
	Body  *Block
}

// Try is try/catch/finally.
type Try struct {
	Loc
	Body    *Block
	Catches []*Catch
	Finally *Block
}

// Global is global $a, $b;.
type Global struct {
	Loc
	Vars []*Variable
}

// StaticVar is one variable of a static declaration.
type StaticVar struct {
	Loc
	Var     *Variable
	Default Expr
}

// Static is static $a = 1;.
type Static struct {
	Loc
	Vars []*StaticVar
}

// Unset is unset(...);.
type Unset struct {
	Loc
	Exprs []Expr
}

// Function is a top-level or nested function declaration.
type Function struct {
	Loc
	Attributes []*AttributeList
	ByRef      bool
	Name       *Ident
	Params     *ParameterList
	ReturnType Hint
	Body       *Block
}

// ConstItem is NAME = value in a const declaration.
type ConstItem struct {
	Loc
	Name  *Ident
	Value Expr
}

// Const is const A = 1, B = 2;.
type Const struct {
	Loc
	Items []*ConstItem
}

// Namespace is a braced or unbraced namespace declaration.  For the
// unbraced form Statements holds every statement up to the next namespace.
type Namespace struct {
	Loc
	Name       *Name
	Statements []Stmt
	Braced     bool
}

// UseKind selects the symbol table a use imports into.
type UseKind uint8

const (
	UseClass UseKind = iota
	UseFunction
	UseConst
)

// UseItem is one imported name.
type UseItem struct {
	Loc
	Kind  UseKind
	Name  *Name
	Alias *Ident
}

// Use is a use import, possibly grouped.  Prefix is set for the group form
// use A\{B, C}.
type Use struct {
	Loc
	Kind   UseKind
	Prefix *Name
	Items  []*UseItem
}

// Declare is declare(strict_types=1) with an optional body.
type Declare struct {
	Loc
	Items []*ConstItem
	Body  Stmt
}

// Goto is goto label;.
type Goto struct {
	Loc
	Label *Ident
}

// Label is label:.
type Label struct {
	Loc
	Name *Ident
}

// Noop is an empty statement.
type Noop struct {
	Loc
}

// HaltCompiler is __halt_compiler();.
type HaltCompiler struct {
	Loc
}

func (*Tag) stmtNode()          {}
func (*InlineHTML) stmtNode()   {}
func (*ExprStmt) stmtNode()     {}
func (*Echo) stmtNode()         {}
func (*Block) stmtNode()        {}
func (*If) stmtNode()           {}
func (*While) stmtNode()        {}
func (*DoWhile) stmtNode()      {}
func (*For) stmtNode()          {}
func (*Foreach) stmtNode()      {}
func (*Switch) stmtNode()       {}
func (*Break) stmtNode()        {}
func (*Continue) stmtNode()     {}
func (*Return) stmtNode()       {}
func (*Try) stmtNode()          {}
func (*Global) stmtNode()       {}
func (*Static) stmtNode()       {}
func (*Unset) stmtNode()        {}
func (*Function) stmtNode()     {}
func (*Const) stmtNode()        {}
func (*Namespace) stmtNode()    {}
func (*Use) stmtNode()          {}
func (*Declare) stmtNode()      {}
func (*Goto) stmtNode()         {}
func (*Label) stmtNode()        {}
func (*Noop) stmtNode()         {}
func (*HaltCompiler) stmtNode() {}
func (*ClassLike) stmtNode()    {}
