// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/reconciler"
	"github.com/magophp/mago/ttype"
)

// typeChecks maps the is_* functions to the type they assert.
var typeChecks = map[string]func() ttype.Union{
	"is_int":      ttype.Int,
	"is_integer":  ttype.Int,
	"is_long":     ttype.Int,
	"is_string":   ttype.String,
	"is_float":    ttype.Float,
	"is_double":   ttype.Float,
	"is_bool":     ttype.Bool,
	"is_array":    ttype.MixedArray,
	"is_null":     ttype.Null,
	"is_object":   ttype.Object,
	"is_numeric":  func() ttype.Union { return ttype.Combine(ttype.IntAtomic(), ttype.FloatAtomic(), ttype.NumericString()) },
	"is_scalar":   func() ttype.Union { return ttype.Combine(ttype.IntAtomic(), ttype.FloatAtomic(), ttype.StringAtomic(), ttype.BoolAtomic()) },
	"is_callable": func() ttype.Union { return ttype.Single(ttype.CallableAtomic(nil)) },
	"is_iterable": func() ttype.Union { return ttype.Single(ttype.IterableOf(ttype.Mixed(), ttype.Mixed())) },
}

// varKey returns the narrowing key of e, or "" when e cannot be narrowed.
// Keys look like $a, $a['x'], $a[0], $this->p, or Foo::$p.
func (a *analyzer) varKey(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Variable:
		return "$" + e.Name
	case *ast.Parenthesized:
		return a.varKey(e.Expr)
	case *ast.ArrayAccess:
		if e.Index == nil {
			return ""
		}
		base := a.varKey(e.Array)
		if base == "" {
			return ""
		}
		switch idx := ast.Unparen(e.Index).(type) {
		case *ast.IntLiteral:
			return base + "[" + strconv.FormatInt(idx.Value, 10) + "]"
		case *ast.StringLiteral:
			return base + "['" + idx.Value + "']"
		}
	case *ast.PropertyFetch:
		base := a.varKey(e.Object)
		if id, ok := e.Property.(*ast.Ident); ok && base != "" {
			return base + "->" + id.Value
		}
	case *ast.StaticPropertyFetch:
		if n, ok := e.Class.(*ast.Name); ok {
			return a.classRef(n) + "::$" + e.Property.Name
		}
	}
	return ""
}

// arrayKeyOf returns the literal key of an index expression.
func arrayKeyOf(e ast.Expr) (ttype.ArrayKey, bool) {
	switch idx := ast.Unparen(e).(type) {
	case *ast.IntLiteral:
		return ttype.IntKey(idx.Value), true
	case *ast.StringLiteral:
		return ttype.StringKey(idx.Value), true
	}
	return ttype.ArrayKey{}, false
}

// condition analyzes e and returns the assertions holding when it is truthy
// and when it is falsy.
func (a *analyzer) condition(e ast.Expr, ctx *BlockContext) (Assertions, Assertions) {
	a.expr(e, ctx)
	t, f := a.assertions(e)
	key := e.Span().Key()
	a.result.Artifacts.IfTrue[key] = t
	a.result.Artifacts.IfFalse[key] = f
	return t, f
}

// conditionQuiet is condition without reporting issues, for conditions that
// were already analyzed once.
func (a *analyzer) conditionQuiet(e ast.Expr, ctx *BlockContext) (Assertions, Assertions) {
	a.silent++
	defer func() { a.silent-- }()
	return a.condition(e, ctx)
}

func single(key string, as ...reconciler.Assertion) Assertions {
	if key == "" {
		return nil
	}
	return Assertions{key: as}
}

// assertions computes the facts implied by e being truthy or falsy.
func (a *analyzer) assertions(e ast.Expr) (Assertions, Assertions) {
	switch e := ast.Unparen(e).(type) {
	case *ast.Unary:
		if e.Op == token.Bang {
			t, f := a.assertions(e.Operand)
			return f, t
		}
	case *ast.Binary:
		switch e.Op {
		case token.AmpersandAmpersand, token.And:
			lt, lf := a.assertions(e.Left)
			rt, rf := a.assertions(e.Right)
			return and(lt, rt), or(lf, rf)
		case token.PipePipe, token.Or:
			lt, lf := a.assertions(e.Left)
			rt, rf := a.assertions(e.Right)
			return or(lt, rt), and(lf, rf)
		case token.EqualEqualEqual:
			return a.identity(e.Left, e.Right)
		case token.BangEqualEqual:
			t, f := a.identity(e.Left, e.Right)
			return f, t
		case token.EqualEqual:
			if isNull(e.Right) {
				k := a.varKey(e.Left)
				return single(k, reconciler.Assertion{Kind: reconciler.Falsy}), single(k, reconciler.Assertion{Kind: reconciler.Truthy})
			}
		case token.BangEqual, token.LessGreater:
			if isNull(e.Right) {
				k := a.varKey(e.Left)
				return single(k, reconciler.Assertion{Kind: reconciler.Truthy}), single(k, reconciler.Assertion{Kind: reconciler.Falsy})
			}
		}
	case *ast.Isset:
		t := Assertions{}
		var f Assertions
		for _, x := range e.Exprs {
			key := a.varKey(x)
			if key == "" {
				continue
			}
			t[key] = append(t[key], reconciler.Assertion{Kind: reconciler.IsIsset})
			if acc, ok := ast.Unparen(x).(*ast.ArrayAccess); ok && acc.Index != nil {
				if k, ok := arrayKeyOf(acc.Index); ok {
					if base := a.varKey(acc.Array); base != "" {
						t[base] = append(t[base], reconciler.HasKey(k))
					}
				}
			}
			if len(e.Exprs) == 1 {
				f = single(key, reconciler.Assertion{Kind: reconciler.IsNotIsset})
			}
		}
		return t, f
	case *ast.Empty:
		k := a.varKey(e.Expr)
		return single(k, reconciler.Assertion{Kind: reconciler.Falsy}), single(k, reconciler.Assertion{Kind: reconciler.Truthy})
	case *ast.Instanceof:
		k := a.varKey(e.Expr)
		n, ok := e.Class.(*ast.Name)
		if !ok || k == "" {
			return nil, nil
		}
		t := ttype.Single(ttype.Named(a.classRef(n)))
		return single(k, reconciler.Is(t)), single(k, reconciler.IsNot(t))
	case *ast.Call:
		return a.callAssertions(e)
	case *ast.Assign:
		if e.Op == token.Equal {
			k := a.varKey(e.Target)
			return single(k, reconciler.Assertion{Kind: reconciler.Truthy}), single(k, reconciler.Assertion{Kind: reconciler.Falsy})
		}
	default:
		if k := a.varKey(e); k != "" {
			return single(k, reconciler.Assertion{Kind: reconciler.Truthy}), single(k, reconciler.Assertion{Kind: reconciler.Falsy})
		}
	}
	return nil, nil
}

func (a *analyzer) callAssertions(e *ast.Call) (Assertions, Assertions) {
	name, ok := e.Callee.(*ast.Name)
	if !ok || e.Args == nil || len(e.Args.Args) == 0 || e.Args.FirstClassCallable {
		return nil, nil
	}
	fn := strings.ToLower(names.Short(a.functionName(name)))
	args := e.Args.Args
	if check, ok := typeChecks[fn]; ok {
		k := a.varKey(args[0].Value)
		t := check()
		return single(k, reconciler.Is(t)), single(k, reconciler.IsNot(t))
	}
	if (fn == "array_key_exists" || fn == "key_exists") && len(args) == 2 {
		if key, ok := arrayKeyOf(args[0].Value); ok {
			return single(a.varKey(args[1].Value), reconciler.HasKey(key)), nil
		}
	}
	return nil, nil
}

// identity handles === comparisons against null and literals.
func (a *analyzer) identity(left, right ast.Expr) (Assertions, Assertions) {
	if a.varKey(left) == "" {
		left, right = right, left
	}
	k := a.varKey(left)
	if k == "" {
		return nil, nil
	}
	var t ttype.Union
	switch r := ast.Unparen(right).(type) {
	case *ast.NullLiteral:
		t = ttype.Null()
	case *ast.BoolLiteral:
		if r.Value {
			t = ttype.True()
		} else {
			t = ttype.False()
		}
	case *ast.IntLiteral:
		eq := reconciler.Equals(ttype.Single(ttype.IntLit(r.Value)))
		return single(k, eq), single(k, eq.Negate())
	case *ast.StringLiteral:
		eq := reconciler.Equals(ttype.Single(ttype.StringLit(r.Value)))
		return single(k, eq), single(k, eq.Negate())
	default:
		return nil, nil
	}
	return single(k, reconciler.Is(t)), single(k, reconciler.IsNot(t))
}

func isNull(e ast.Expr) bool {
	_, ok := ast.Unparen(e).(*ast.NullLiteral)
	return ok
}

// and combines assertions that all hold.
func and(x, y Assertions) Assertions {
	if len(x) == 0 {
		return y
	}
	out := make(Assertions, len(x)+len(y))
	for k, v := range x {
		out[k] = append(out[k], v...)
	}
	for k, v := range y {
		out[k] = append(out[k], v...)
	}
	return out
}

// or combines assertions of which at least one holds.  Only type
// assertions on a key present on both sides survive, as their union.
func or(x, y Assertions) Assertions {
	out := Assertions{}
	for k, xs := range x {
		ys, ok := y[k]
		if !ok {
			continue
		}
		xt, ok1 := assertedType(xs)
		yt, ok2 := assertedType(ys)
		if ok1 && ok2 {
			out[k] = []reconciler.Assertion{reconciler.Is(ttype.Merge(xt, yt))}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func assertedType(as []reconciler.Assertion) (ttype.Union, bool) {
	if len(as) == 0 {
		return ttype.Union{}, false
	}
	for _, x := range as {
		if x.Kind != reconciler.IsType {
			return ttype.Union{}, false
		}
	}
	return as[len(as)-1].Type, true
}

// defines reports whether the assertions imply that a variable is set.
func defines(as []reconciler.Assertion) bool {
	for _, x := range as {
		switch x.Kind {
		case reconciler.IsIsset, reconciler.Truthy, reconciler.IsType, reconciler.HasArrayKey, reconciler.NonEmpty:
			return true
		}
	}
	return false
}

// apply narrows the keys of ctx by as.  positive is set for the branch
// entered when the condition holds; only there is an impossible narrowing
// reported.
func (a *analyzer) apply(ctx *BlockContext, as Assertions, cond ast.Expr, positive bool) {
	for _, key := range sortedVarKeys(as) {
		list := as[key]
		existing, ok := ctx.Vars[key]
		if !ok {
			if t, known := a.keyed[key]; known && !isPlainVar(key) {
				existing = t
			} else if !defines(list) {
				continue
			} else {
				existing = ttype.Mixed()
			}
		}
		res := reconciler.ReconcileAll(a.cb, list, existing, ctx.InsideIsset)
		if res.NeverMatches && positive {
			a.warnf(CodeTypeNeverMatches, cond.Span(),
				fmt.Sprintf("`%s` of type `%s` can never satisfy this condition.", key, existing),
				"this condition is always false").
				WithHelp("Remove the condition or fix the type of the value.")
		}
		ctx.Vars[key] = res.Type
	}
}
