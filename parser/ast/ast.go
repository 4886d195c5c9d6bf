// Copyright © 2024 The Mago authors

// Package ast declares the syntax tree produced by the parser.  The tree is a
// closed set of node types; every node records its own span and owns its
// children.  Nodes never point at their parents: walkers that need the
// enclosing node keep their own stack.
package ast

import (
	"sort"
	"strings"

	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

// Node is implemented by every syntax tree node.
type Node interface {
	Span() source.Span
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Hint is a type declaration node.
type Hint interface {
	Node
	hintNode()
}

// Member is a class-like member declaration.
type Member interface {
	Node
	memberNode()
}

// Loc is embedded in every node to record its span.
type Loc struct {
	Range source.Span
}

// Span returns the source range covered by the node.
func (l Loc) Span() source.Span {
	return l.Range
}

// At returns a Loc for span.
func At(span source.Span) Loc {
	return Loc{Range: span}
}

// Trivia is whitespace or a comment.
type Trivia struct {
	Kind  token.Kind
	Range source.Span
	Value string
}

// Program is the root of a parsed file.
type Program struct {
	Loc
	File       source.FileID
	Statements []Stmt
	// Trivia is sorted by offset.
	Trivia []Trivia
}

// Comments returns the comment trivia in source order.
func (p *Program) Comments() []Trivia {
	var out []Trivia
	for _, t := range p.Trivia {
		if t.Kind.IsComment() {
			out = append(out, t)
		}
	}
	return out
}

// TriviaBefore returns the index of the last trivia item ending at or before
// offset, or -1.
func (p *Program) TriviaBefore(offset uint32) int {
	i := sort.Search(len(p.Trivia), func(i int) bool { return p.Trivia[i].Range.End > offset })
	return i - 1
}

// DocComment returns the docblock immediately preceding offset.  Only
// whitespace and other comments may separate the docblock from offset.
func (p *Program) DocComment(offset uint32) (Trivia, bool) {
	i := p.TriviaBefore(offset)
	if i < 0 || p.Trivia[i].Range.End != offset {
		return Trivia{}, false
	}
	for ; i >= 0; i-- {
		t := p.Trivia[i]
		if t.Kind == token.DocBlockComment {
			return t, true
		}
		if i == 0 || p.Trivia[i-1].Range.End != t.Range.Start {
			return Trivia{}, false
		}
	}
	return Trivia{}, false
}

// NameKind distinguishes the syntactic forms of a name.
type NameKind uint8

const (
	// Unqualified names such as Foo.
	Unqualified NameKind = iota
	// Qualified names such as Foo\Bar.
	Qualified
	// FullyQualified names such as \Foo\Bar.
	FullyQualified
	// Relative names such as namespace\Foo.
	Relative
)

// Name is a possibly qualified reference to a class, function, or constant.
type Name struct {
	Loc
	Value string
	Kind  NameKind
}

// IsSpecial reports whether the name is self, static, or parent.
func (n *Name) IsSpecial() bool {
	if n.Kind != Unqualified {
		return false
	}
	switch strings.ToLower(n.Value) {
	case "self", "static", "parent":
		return true
	}
	return false
}

// Ident is an unqualified identifier declaring or naming a member.
type Ident struct {
	Loc
	Value string
}

// Modifier is a declaration modifier keyword.
type Modifier struct {
	Loc
	Kind token.Kind
}

// Modifiers is a list of modifier keywords.
type Modifiers []*Modifier

// Has reports whether kind is present.
func (ms Modifiers) Has(kind token.Kind) bool {
	for _, m := range ms {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// AttributeList is a single #[...] group.
type AttributeList struct {
	Loc
	Attributes []*Attribute
	Separators []source.Span
}

// Attribute is one attribute inside a group.
type Attribute struct {
	Loc
	Name *Name
	Args *ArgumentList
}

// NamedHint is a type named by a single identifier: a class name or a
// builtin such as int, array, or self.
type NamedHint struct {
	Loc
	Name *Name
}

// NullableHint is ?T.
type NullableHint struct {
	Loc
	Inner Hint
}

// UnionHint is A|B.
type UnionHint struct {
	Loc
	Types      []Hint
	Separators []source.Span
}

// IntersectionHint is A&B.
type IntersectionHint struct {
	Loc
	Types      []Hint
	Separators []source.Span
}

func (*NamedHint) hintNode()        {}
func (*NullableHint) hintNode()     {}
func (*UnionHint) hintNode()        {}
func (*IntersectionHint) hintNode() {}

// ArgumentList is the parenthesized argument list of a call.
type ArgumentList struct {
	Loc
	Args       []*Argument
	Separators []source.Span
	// FirstClassCallable is set for f(...).
	FirstClassCallable bool
}

// Argument is a positional, named, or spread argument.
type Argument struct {
	Loc
	Name   *Ident
	Value  Expr
	Spread bool
}

// ParameterList is the parameter list of a function-like declaration.
type ParameterList struct {
	Loc
	Params     []*Parameter
	Separators []source.Span
}

// Parameter is a function-like parameter.  Modifiers are only present on
// promoted constructor parameters.
type Parameter struct {
	Loc
	Attributes []*AttributeList
	Modifiers  Modifiers
	Type       Hint
	ByRef      bool
	Variadic   bool
	Var        *Variable
	Default    Expr
}
