// Copyright © 2024 The Mago authors

package docblock

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	parsec "github.com/prataprc/goparsec"
)

/*
Docblock types use the grammar below.

	union     := inter ('|' inter)*
	inter     := postfix ('&' postfix)*
	postfix   := atom '[]'*
	atom      := '?' postfix | '(' union ')' | int | string
	           | name '{' field (',' field)* '}'
	           | name '(' param (',' param)* ')' (':' postfix)?
	           | name ('<' union (',' union)* '>')?
	field     := (key '?'? ':')? union
*/

// TypeKind classifies a TypeExpr.
type TypeKind uint8

const (
	TypeName TypeKind = iota
	TypeUnion
	TypeIntersection
	TypeNullable
	TypeList
	TypeShape
	TypeCallable
	TypeIntLiteral
	TypeStringLiteral
)

// TypeExpr is the syntax of a docblock type.  Name holds the identifier of
// named, shape, and callable types.  Params holds generic arguments, union
// and intersection members, callable parameters, and the element of
// nullable and list types.
type TypeExpr struct {
	Kind   TypeKind
	Name   string
	Params []*TypeExpr
	Fields []*Field
	Return *TypeExpr
	Int    int64
	Str    string
}

// Field is one entry of an array shape.
type Field struct {
	Key      string
	Optional bool
	Type     *TypeExpr
}

func (t *TypeExpr) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *TypeExpr) write(b *strings.Builder) {
	switch t.Kind {
	case TypeName:
		b.WriteString(t.Name)
		if len(t.Params) > 0 {
			b.WriteByte('<')
			writeList(b, t.Params, ", ")
			b.WriteByte('>')
		}
	case TypeUnion:
		writeList(b, t.Params, "|")
	case TypeIntersection:
		writeList(b, t.Params, "&")
	case TypeNullable:
		b.WriteByte('?')
		t.Params[0].write(b)
	case TypeList:
		t.Params[0].write(b)
		b.WriteString("[]")
	case TypeShape:
		b.WriteString(t.Name)
		b.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(f.Key)
			if f.Optional {
				b.WriteByte('?')
			}
			b.WriteString(": ")
			f.Type.write(b)
		}
		b.WriteByte('}')
	case TypeCallable:
		b.WriteString(t.Name)
		b.WriteByte('(')
		writeList(b, t.Params, ", ")
		b.WriteByte(')')
		if t.Return != nil {
			b.WriteString(": ")
			t.Return.write(b)
		}
	case TypeIntLiteral:
		b.WriteString(strconv.FormatInt(t.Int, 10))
	case TypeStringLiteral:
		b.WriteString(strconv.Quote(t.Str))
	}
}

func writeList(b *strings.Builder, list []*TypeExpr, sep string) {
	for i, t := range list {
		if i > 0 {
			b.WriteString(sep)
		}
		t.write(b)
	}
}

// TypeSyntaxError reports a type string that does not match the grammar.
type TypeSyntaxError struct {
	Input  string
	Offset int
}

func (err *TypeSyntaxError) Error() string {
	return fmt.Sprintf("invalid docblock type %q at offset %d", err.Input, err.Offset)
}

const cacheSize = 4096

var (
	grammarOnce sync.Once
	grammar     parsec.Parser
	typeCache   *lru.Cache[string, *TypeExpr]
)

func initGrammar() {
	grammar = newTypeParser()
	var err error
	typeCache, err = lru.New[string, *TypeExpr](cacheSize)
	if err != nil {
		panic(err)
	}
}

// ParseType parses a docblock type string.  Results are memoized; callers
// must not modify the returned tree.
func ParseType(text string) (*TypeExpr, error) {
	grammarOnce.Do(initGrammar)
	text = strings.TrimSpace(text)
	if t, ok := typeCache.Get(text); ok {
		return t, nil
	}
	s := parsec.NewScanner([]byte(text))
	root, s := grammar(s)
	_, s = s.SkipWS()
	t, ok := root.(*TypeExpr)
	if !ok || !s.Endof() {
		return nil, &TypeSyntaxError{Input: text, Offset: s.GetCursor()}
	}
	typeCache.Add(text, t)
	return t, nil
}

func newTypeParser() parsec.Parser {
	pipe := parsec.Atom("|", "PIPE")
	amp := parsec.Atom("&", "AMP")
	comma := parsec.Atom(",", "COMMA")
	colon := parsec.Atom(":", "COLON")
	question := parsec.Atom("?", "QUESTION")
	openP := parsec.Atom("(", "OPENP")
	closeP := parsec.Atom(")", "CLOSEP")
	openA := parsec.Atom("<", "OPENA")
	closeA := parsec.Atom(">", "CLOSEA")
	openB := parsec.Atom("{", "OPENB")
	closeB := parsec.Atom("}", "CLOSEB")
	brackets := parsec.Atom("[]", "BRACKETS")
	name := parsec.Token(`\\?[A-Za-z_][A-Za-z0-9_]*(?:-[A-Za-z0-9_]+)*(?:\\[A-Za-z_][A-Za-z0-9_]*)*`, "NAME")
	intLit := parsec.Token(`-?[0-9]+`, "INT")
	strLit := parsec.Token(`(?:'[^']*'|"[^"]*")`, "STRING")
	key := parsec.Token(`(?:[A-Za-z_][A-Za-z0-9_]*|[0-9]+|'[^']*'|"[^"]*")`, "KEY")
	ellipsis := parsec.Atom("...", "ELLIPSIS")
	equal := parsec.Atom("=", "EQUAL")

	var union, postfix parsec.Parser

	nullable := parsec.And(nodeNullable, question, &postfix)
	paren := parsec.And(nodeParen, openP, &union, closeP)
	keyed := parsec.And(nodeField, key, parsec.Maybe(nil, question), colon, &union)
	field := parsec.OrdChoice(nil, keyed, &union)
	shape := parsec.And(nodeShape, name, openB, parsec.Kleene(nil, field, comma), closeB)
	param := parsec.And(nodeParen, &union, parsec.Maybe(nil, equal), parsec.Maybe(nil, ellipsis))
	returns := parsec.And(nil, colon, &postfix)
	callable := parsec.And(nodeCallable, name, openP, parsec.Kleene(nil, param, comma), closeP, parsec.Maybe(nil, returns))
	args := parsec.And(nil, openA, parsec.Many(nil, &union, comma), closeA)
	named := parsec.And(nodeNamed, name, parsec.Maybe(nil, args))
	atom := parsec.OrdChoice(nil, nullable, paren, intLit, strLit, shape, callable, named)
	postfix = parsec.And(nodePostfix, atom, parsec.Kleene(nil, brackets))
	inter := parsec.And(nodeIntersection, &postfix, parsec.Kleene(nil, parsec.And(nil, amp, &postfix)))
	union = parsec.And(nodeUnion, inter, parsec.Kleene(nil, parsec.And(nil, pipe, inter)))
	return union
}

// flatten visits every node produced by combinators without a Nodify.
func flatten(nodes []parsec.ParsecNode, fn func(parsec.ParsecNode)) {
	for _, n := range nodes {
		switch n := n.(type) {
		case []parsec.ParsecNode:
			flatten(n, fn)
		case parsec.MaybeNone:
		default:
			fn(n)
		}
	}
}

func types(nodes []parsec.ParsecNode) []*TypeExpr {
	var out []*TypeExpr
	flatten(nodes, func(n parsec.ParsecNode) {
		if t, ok := n.(*TypeExpr); ok {
			out = append(out, t)
		}
	})
	return out
}

func terminals(nodes []parsec.ParsecNode, name string) []*parsec.Terminal {
	var out []*parsec.Terminal
	flatten(nodes, func(n parsec.ParsecNode) {
		if t, ok := n.(*parsec.Terminal); ok && t.Name == name {
			out = append(out, t)
		}
	})
	return out
}

func typeName(nodes []parsec.ParsecNode) string {
	names := terminals(nodes, "NAME")
	if len(names) == 0 {
		return ""
	}
	return names[0].Value
}

func nodeNullable(nodes []parsec.ParsecNode) parsec.ParsecNode {
	return &TypeExpr{Kind: TypeNullable, Params: types(nodes)[:1]}
}

func nodeParen(nodes []parsec.ParsecNode) parsec.ParsecNode {
	return types(nodes)[0]
}

func nodeField(nodes []parsec.ParsecNode) parsec.ParsecNode {
	f := &Field{Key: unquoteKey(terminals(nodes, "KEY")[0].Value)}
	f.Optional = len(terminals(nodes, "QUESTION")) > 0
	f.Type = types(nodes)[0]
	return f
}

func unquoteKey(key string) string {
	if len(key) >= 2 && (key[0] == '\'' || key[0] == '"') {
		return key[1 : len(key)-1]
	}
	return key
}

func nodeShape(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t := &TypeExpr{Kind: TypeShape, Name: typeName(nodes)}
	next := 0
	flatten(nodes, func(n parsec.ParsecNode) {
		switch n := n.(type) {
		case *Field:
			t.Fields = append(t.Fields, n)
		case *TypeExpr:
			t.Fields = append(t.Fields, &Field{Key: strconv.Itoa(next), Type: n})
			next++
		}
	})
	return t
}

func nodeCallable(nodes []parsec.ParsecNode) parsec.ParsecNode {
	t := &TypeExpr{Kind: TypeCallable, Name: typeName(nodes)}
	params := types(nodes)
	if len(terminals(nodes, "COLON")) > 0 && len(params) > 0 {
		t.Return = params[len(params)-1]
		params = params[:len(params)-1]
	}
	t.Params = params
	return t
}

func nodeNamed(nodes []parsec.ParsecNode) parsec.ParsecNode {
	return &TypeExpr{Kind: TypeName, Name: typeName(nodes), Params: types(nodes)}
}

func nodePostfix(nodes []parsec.ParsecNode) parsec.ParsecNode {
	var t *TypeExpr
	flatten(nodes[:1], func(n parsec.ParsecNode) {
		switch n := n.(type) {
		case *TypeExpr:
			t = n
		case *parsec.Terminal:
			t = literal(n)
		}
	})
	for range terminals(nodes[1:], "BRACKETS") {
		t = &TypeExpr{Kind: TypeList, Params: []*TypeExpr{t}}
	}
	return t
}

func literal(term *parsec.Terminal) *TypeExpr {
	switch term.Name {
	case "INT":
		v, _ := strconv.ParseInt(term.Value, 10, 64)
		return &TypeExpr{Kind: TypeIntLiteral, Int: v}
	case "STRING":
		return &TypeExpr{Kind: TypeStringLiteral, Str: term.Value[1 : len(term.Value)-1]}
	}
	return &TypeExpr{Kind: TypeName, Name: term.Value}
}

func nodeIntersection(nodes []parsec.ParsecNode) parsec.ParsecNode {
	members := types(nodes)
	if len(members) == 1 {
		return members[0]
	}
	return &TypeExpr{Kind: TypeIntersection, Params: members}
}

func nodeUnion(nodes []parsec.ParsecNode) parsec.ParsecNode {
	members := types(nodes)
	if len(members) == 1 {
		return members[0]
	}
	return &TypeExpr{Kind: TypeUnion, Params: members}
}
