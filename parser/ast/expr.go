// Copyright © 2024 The Mago authors

package ast

import (
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

// Variable is $name.
type Variable struct {
	Loc
	Name string
}

// VariableVariable is $$expr or ${expr}.
type VariableVariable struct {
	Loc
	Expr Expr
}

// IntLiteral is an integer literal.  Literals too large for int64 set
// Overflow and are typed as float.
type IntLiteral struct {
	Loc
	Raw      string
	Value    int64
	Overflow bool
}

// FloatLiteral is a floating point literal.
type FloatLiteral struct {
	Loc
	Raw   string
	Value float64
}

// StringLiteral is a string without interpolation.  It also appears as the
// literal segments of an InterpolatedString.
type StringLiteral struct {
	Loc
	Raw   string
	Value string
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Loc
	Value bool
}

// NullLiteral is null.
type NullLiteral struct {
	Loc
}

// StringKind is the syntax of an interpolated string.
type StringKind uint8

const (
	DoubleQuoted StringKind = iota
	Heredoc
	ShellExec
)

// InterpolatedString is a double-quoted string, heredoc, or backtick command
// containing embedded expressions.
type InterpolatedString struct {
	Loc
	Kind  StringKind
	Parts []Expr
}

// MagicConst is a compile-time constant such as __LINE__.
type MagicConst struct {
	Loc
	Name string
}

// ArrayLiteral is array(...) or [...].
type ArrayLiteral struct {
	Loc
	Short      bool
	Elements   []*ArrayElement
	Separators []source.Span
}

// ArrayElement is one entry of an array literal or list().  Value is nil for
// skipped list slots.
type ArrayElement struct {
	Loc
	Key    Expr
	Value  Expr
	ByRef  bool
	Spread bool
}

// List is list(...) destructuring.
type List struct {
	Loc
	Elements   []*ArrayElement
	Separators []source.Span
}

// ArrayAccess is $a[i].  Index is nil for $a[].
type ArrayAccess struct {
	Loc
	Array Expr
	Index Expr
}

// PropertyFetch is $o->p or $o?->p.  Property is an *Ident, a *Variable, or
// a braced expression.
type PropertyFetch struct {
	Loc
	Object   Expr
	Property Expr
	Nullsafe bool
}

// StaticPropertyFetch is C::$p.
type StaticPropertyFetch struct {
	Loc
	Class    Expr
	Property *Variable
}

// ClassConstFetch is C::NAME, including C::class.
type ClassConstFetch struct {
	Loc
	Class    Expr
	Constant *Ident
}

// ConstFetch is a bare constant reference.
type ConstFetch struct {
	Loc
	Name *Name
}

// Assign is an assignment or compound assignment.
type Assign struct {
	Loc
	Op     token.Kind
	Target Expr
	Value  Expr
	ByRef  bool
}

// Binary is a binary operation.
type Binary struct {
	Loc
	Op     token.Kind
	OpSpan source.Span
	Left   Expr
	Right  Expr
}

// Unary is a prefix operation: ! - + ~ @ ++ --.
type Unary struct {
	Loc
	Op      token.Kind
	Operand Expr
}

// Postfix is $a++ or $a--.
type Postfix struct {
	Loc
	Op      token.Kind
	Operand Expr
}

// Cast is (type)expr.
type Cast struct {
	Loc
	Kind token.Kind
	Expr Expr
}

// Ternary is c ? a : b.  Then is nil for c ?: b.
type Ternary struct {
	Loc
	Cond Expr
	Then Expr
	Else Expr
}

// Instanceof is e instanceof C.
type Instanceof struct {
	Loc
	Expr  Expr
	Class Expr
}

// Pipe is input |> callable.
type Pipe struct {
	Loc
	Input    Expr
	Callable Expr
}

// Call is a function call.  A *Name callee names a function.
type Call struct {
	Loc
	Callee Expr
	Args   *ArgumentList
}

// MethodCall is $o->m() or $o?->m().
type MethodCall struct {
	Loc
	Object   Expr
	Method   Expr
	Args     *ArgumentList
	Nullsafe bool
}

// StaticCall is C::m().
type StaticCall struct {
	Loc
	Class  Expr
	Method Expr
	Args   *ArgumentList
}

// New is new C(...).  Class is a *Name, an *AnonymousClass, or an
// expression.
type New struct {
	Loc
	Class Expr
	Args  *ArgumentList
}

// AnonymousClass is new class(...) {...}.
type AnonymousClass struct {
	Loc
	Attributes []*AttributeList
	Modifiers  Modifiers
	Args       *ArgumentList
	Extends    *Name
	Implements []*Name
	Members    []Member
}

// Clone is clone e.
type Clone struct {
	Loc
	Expr Expr
}

// ClosureUse is one variable captured by a closure.
type ClosureUse struct {
	Loc
	Var   *Variable
	ByRef bool
}

// Closure is function (...) use (...) {...}.
type Closure struct {
	Loc
	Attributes []*AttributeList
	Static     bool
	ByRef      bool
	Params     *ParameterList
	Uses       []*ClosureUse
	ReturnType Hint
	Body       *Block
}

// ArrowFunction is fn (...) => e.
type ArrowFunction struct {
	Loc
	Attributes []*AttributeList
	Static     bool
	ByRef      bool
	Params     *ParameterList
	ReturnType Hint
	Body       Expr
}

// MatchArm is one arm of a match.  Conditions is nil for the default arm.
type MatchArm struct {
	Loc
	Conditions []Expr
	Body       Expr
}

// Match is match (subject) {...}.
type Match struct {
	Loc
	Subject    Expr
	Arms       []*MatchArm
	Separators []source.Span
}

// Isset is isset(...).
type Isset struct {
	Loc
	Exprs      []Expr
	Separators []source.Span
}

// Empty is empty(e).
type Empty struct {
	Loc
	Expr Expr
}

// Include is include, include_once, require, or require_once.
type Include struct {
	Loc
	Kind token.Kind
	Expr Expr
}

// Exit is exit or die with an optional argument.
type Exit struct {
	Loc
	Die bool
	Arg Expr
}

// Eval is eval(e).
type Eval struct {
	Loc
	Expr Expr
}

// Print is print e.
type Print struct {
	Loc
	Expr Expr
}

// Yield is yield, yield v, or yield k => v.
type Yield struct {
	Loc
	Key   Expr
	Value Expr
}

// YieldFrom is yield from e.
type YieldFrom struct {
	Loc
	Expr Expr
}

// Throw is a throw expression.
type Throw struct {
	Loc
	Expr Expr
}

// Parenthesized is (e).
type Parenthesized struct {
	Loc
	Expr Expr
}

func (*Variable) exprNode()            {}
func (*VariableVariable) exprNode()    {}
func (*IntLiteral) exprNode()          {}
func (*FloatLiteral) exprNode()        {}
func (*StringLiteral) exprNode()       {}
func (*BoolLiteral) exprNode()         {}
func (*NullLiteral) exprNode()         {}
func (*InterpolatedString) exprNode()  {}
func (*MagicConst) exprNode()          {}
func (*ArrayLiteral) exprNode()        {}
func (*List) exprNode()                {}
func (*ArrayAccess) exprNode()         {}
func (*PropertyFetch) exprNode()       {}
func (*StaticPropertyFetch) exprNode() {}
func (*ClassConstFetch) exprNode()     {}
func (*ConstFetch) exprNode()          {}
func (*Assign) exprNode()              {}
func (*Binary) exprNode()              {}
func (*Unary) exprNode()               {}
func (*Postfix) exprNode()             {}
func (*Cast) exprNode()                {}
func (*Ternary) exprNode()             {}
func (*Instanceof) exprNode()          {}
func (*Pipe) exprNode()                {}
func (*Call) exprNode()                {}
func (*MethodCall) exprNode()          {}
func (*StaticCall) exprNode()          {}
func (*New) exprNode()                 {}
func (*AnonymousClass) exprNode()      {}
func (*Clone) exprNode()               {}
func (*Closure) exprNode()             {}
func (*ArrowFunction) exprNode()       {}
func (*Match) exprNode()               {}
func (*Isset) exprNode()               {}
func (*Empty) exprNode()               {}
func (*Include) exprNode()             {}
func (*Exit) exprNode()                {}
func (*Eval) exprNode()                {}
func (*Print) exprNode()               {}
func (*Yield) exprNode()               {}
func (*YieldFrom) exprNode()           {}
func (*Throw) exprNode()               {}
func (*Parenthesized) exprNode()       {}

// Names and identifiers appear in expression position as callees, class
// references, and member names.
func (*Name) exprNode()  {}
func (*Ident) exprNode() {}

// Unparen strips any enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Parenthesized)
		if !ok {
			return e
		}
		e = p.Expr
	}
}
