// Copyright © 2024 The Mago authors

package analysis

import (
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
)

// pure reports whether evaluating e has no side effects.  Calls are pure
// when they resolved to a function-like marked pure and their arguments are
// pure.
func (a *analyzer) pure(e ast.Expr) bool {
	if e == nil {
		return true
	}
	switch e := e.(type) {
	case *ast.Variable, *ast.IntLiteral, *ast.FloatLiteral, *ast.StringLiteral,
		*ast.BoolLiteral, *ast.NullLiteral, *ast.MagicConst, *ast.ConstFetch,
		*ast.ClassConstFetch, *ast.Closure, *ast.ArrowFunction:
		return true
	case *ast.Parenthesized:
		return a.pure(e.Expr)
	case *ast.InterpolatedString:
		if e.Kind == ast.ShellExec {
			return false
		}
		for _, p := range e.Parts {
			if !a.pure(p) {
				return false
			}
		}
		return true
	case *ast.ArrayLiteral:
		for _, el := range e.Elements {
			if el == nil {
				continue
			}
			if el.ByRef || !a.pure(el.Key) || !a.pure(el.Value) {
				return false
			}
		}
		return true
	case *ast.ArrayAccess:
		return a.pure(e.Array) && a.pure(e.Index)
	case *ast.PropertyFetch:
		return a.pure(e.Object) && a.pure(e.Property)
	case *ast.StaticPropertyFetch:
		return true
	case *ast.Ident:
		return true
	case *ast.Binary:
		return a.pure(e.Left) && a.pure(e.Right)
	case *ast.Unary:
		return a.pure(e.Operand)
	case *ast.Cast:
		return e.Kind != token.UnsetCast && a.pure(e.Expr)
	case *ast.Ternary:
		return a.pure(e.Cond) && a.pure(e.Then) && a.pure(e.Else)
	case *ast.Instanceof:
		return a.pure(e.Expr)
	case *ast.Isset:
		for _, x := range e.Exprs {
			if !a.pure(x) {
				return false
			}
		}
		return true
	case *ast.Empty:
		return a.pure(e.Expr)
	case *ast.Match:
		if !a.pure(e.Subject) {
			return false
		}
		for _, arm := range e.Arms {
			for _, c := range arm.Conditions {
				if !a.pure(c) {
					return false
				}
			}
			if !a.pure(arm.Body) {
				return false
			}
		}
		return true
	case *ast.Call:
		return a.pureCall(e.Span().Key(), e.Args)
	case *ast.MethodCall:
		return a.pure(e.Object) && a.pureCall(e.Span().Key(), e.Args)
	case *ast.StaticCall:
		return a.pureCall(e.Span().Key(), e.Args)
	}
	return false
}

func (a *analyzer) pureCall(key [2]uint32, args *ast.ArgumentList) bool {
	if args != nil && args.FirstClassCallable {
		return true
	}
	f := a.targets[key]
	if f == nil || !f.Pure {
		return false
	}
	if args == nil {
		return true
	}
	for i, arg := range args.Args {
		if p, ok := f.ParamAt(i); ok && p.ByRef {
			return false
		}
		if !a.pure(arg.Value) {
			return false
		}
	}
	return true
}
