// Copyright © 2024 The Mago authors

package codebase

import (
	"strings"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/ttype"
)

// ValueType infers the type of a constant expression, as found in constant
// initializers, property defaults, and parameter defaults.  Anything that
// needs the analyzer is typed mixed.
func ValueType(e ast.Expr) ttype.Union {
	switch e := e.(type) {
	case *ast.IntLiteral:
		if e.Overflow {
			return ttype.Float()
		}
		return ttype.Single(ttype.IntLit(e.Value))
	case *ast.FloatLiteral:
		return ttype.Single(ttype.FloatLit(e.Value))
	case *ast.StringLiteral:
		return ttype.Single(ttype.StringLit(e.Value))
	case *ast.InterpolatedString:
		return ttype.String()
	case *ast.BoolLiteral:
		if e.Value {
			return ttype.True()
		}
		return ttype.False()
	case *ast.NullLiteral:
		return ttype.Null()
	case *ast.ConstFetch:
		switch strings.ToLower(e.Name.Value) {
		case "true":
			return ttype.True()
		case "false":
			return ttype.False()
		case "null":
			return ttype.Null()
		}
	case *ast.MagicConst:
		if strings.EqualFold(e.Name, "__LINE__") {
			return ttype.Single(ttype.IntRange(i64(1), nil))
		}
		return ttype.String()
	case *ast.Parenthesized:
		return ValueType(e.Expr)
	case *ast.Unary:
		inner := ValueType(e.Operand)
		switch e.Op {
		case token.Minus:
			if v, ok := inner.LiteralInt(); ok {
				return ttype.Single(ttype.IntLit(-v))
			}
			if inner.IsSingle() && inner.Types[0].Kind == ttype.KFloat && inner.Types[0].Literal {
				return ttype.Single(ttype.FloatLit(-inner.Types[0].Float))
			}
			return ttype.IntOrFloat()
		case token.Plus:
			return inner
		case token.Bang:
			return ttype.Bool()
		case token.Tilde:
			return ttype.Int()
		}
	case *ast.Binary:
		switch e.Op {
		case token.Dot:
			return ttype.String()
		case token.AmpersandAmpersand, token.PipePipe, token.And, token.Or, token.Xor,
			token.EqualEqual, token.EqualEqualEqual, token.BangEqual, token.BangEqualEqual,
			token.Less, token.LessEqual, token.Greater, token.GreaterEqual:
			return ttype.Bool()
		case token.Plus, token.Minus, token.Asterisk, token.Pow:
			l, r := ValueType(e.Left), ValueType(e.Right)
			if l.IsInt() && r.IsInt() {
				return ttype.Int()
			}
			return ttype.IntOrFloat()
		case token.Pipe, token.Ampersand, token.Caret, token.LeftShift, token.RightShift, token.Percent:
			return ttype.Int()
		case token.Slash:
			return ttype.IntOrFloat()
		}
	case *ast.ArrayLiteral:
		return arrayValueType(e.Elements)
	}
	return ttype.Mixed()
}

func arrayValueType(elems []*ast.ArrayElement) ttype.Union {
	if len(elems) == 0 {
		return ttype.Single(ttype.EmptyArray())
	}
	var entries []ttype.Entry
	next := int64(0)
	keyed := true
	var keys, values []ttype.Union
	for _, el := range elems {
		if el == nil || el.Value == nil {
			continue
		}
		v := ValueType(el.Value)
		values = append(values, v)
		if el.Spread {
			keyed = false
			keys = append(keys, ttype.ArrayKeyType())
			continue
		}
		var key ttype.ArrayKey
		switch {
		case el.Key == nil:
			key = ttype.IntKey(next)
		default:
			k := ValueType(el.Key)
			if i, ok := k.LiteralInt(); ok {
				key = ttype.IntKey(i)
			} else if s, ok := k.LiteralString(); ok {
				key = ttype.StringKey(s)
			} else {
				keyed = false
				keys = append(keys, ttype.ArrayKeyType())
				continue
			}
		}
		if key.IsInt && key.Int >= next {
			next = key.Int + 1
		}
		keys = append(keys, ttype.Single(key.Atomic()))
		entries = setEntry(entries, ttype.Entry{Key: key, Type: v})
	}
	if keyed {
		return ttype.Single(ttype.Keyed(true, entries...))
	}
	a := ttype.ArrayOf(ttype.Merge(keys...), ttype.Merge(values...))
	a.NonEmpty = true
	return ttype.Single(a)
}

func setEntry(entries []ttype.Entry, e ttype.Entry) []ttype.Entry {
	for i := range entries {
		if entries[i].Key == e.Key {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}
