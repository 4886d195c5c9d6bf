// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/ttype"
)

// closureMeta builds the metadata of a closure or arrow function, which the
// codebase does not index.
func (a *analyzer) closureMeta(node ast.Node, params *ast.ParameterList, ret ast.Hint, body ast.Node, static, arrow bool) *codebase.FunctionLikeMetadata {
	doc, off := codebase.DocblockOf(a.prog, node)
	defining := fmt.Sprintf("{closure}@%d", node.Span().Start)
	meta := codebase.BuildFunctionLike(node, params, ret, body, doc, off, defining, a.types)
	meta.Name = "{closure}"
	meta.Kind = codebase.ClosureKind
	if arrow {
		meta.Kind = codebase.ArrowFunctionKind
	}
	meta.Static = static
	if a.fn.class != nil {
		meta.Class = a.fn.class.Name
	}
	return meta
}

func (a *analyzer) closure(e *ast.Closure, ctx *BlockContext) ttype.Union {
	meta := a.closureMeta(e, e.Params, e.ReturnType, e.Body, e.Static, false)

	captured := make(map[string]ttype.Union, len(e.Uses))
	for _, u := range e.Uses {
		key := "$" + u.Var.Name
		if u.ByRef {
			if _, ok := ctx.Vars[key]; !ok {
				ctx.assign(key, ttype.Null())
			}
			a.use(key, u.Var.Span(), ctx)
			ctx.refs[key] = true
			captured[key] = ctx.Vars[key]
			continue
		}
		captured[key] = a.variable(u.Var, ctx)
	}

	class := a.fn.class
	if e.Static {
		class = nil
	}
	outer := a.fn.scope
	fn := a.functionBody(meta, class, e.Params, e.Body.Statements, outer, func(inner *BlockContext) {
		for _, u := range e.Uses {
			key := "$" + u.Var.Name
			inner.Vars[key] = captured[key]
			if u.ByRef {
				inner.refs[key] = true
			}
		}
	})

	sig := meta.Signature()
	if meta.ReturnType == nil {
		ret := inferredReturn(fn.returns, meta.Generator)
		sig.Return = &ret
	}
	return ttype.Single(ttype.ClosureAtomic(sig))
}

func (a *analyzer) arrowFunction(e *ast.ArrowFunction, ctx *BlockContext) ttype.Union {
	meta := a.closureMeta(e, e.Params, e.ReturnType, e.Body, e.Static, true)

	inner := ctx.fork()
	inner.InsideLoop = false
	if e.Static {
		delete(inner.Vars, "$this")
	}
	a.bindParams(meta, e.Params, inner)

	prevMeta := a.fn.meta
	a.fn.meta = meta
	t := a.expr(e.Body, inner)
	a.fn.meta = prevMeta
	a.result.Artifacts.InferredReturns[meta.Span.Key()] = []ttype.Union{t}

	sig := meta.Signature()
	if meta.ReturnType == nil {
		sig.Return = &t
	} else if declared := a.expand(*meta.ReturnType); !declared.IsVoid() && !declared.IsNever() {
		cmp := &ttype.ComparisonResult{Templates: ttype.NewTemplateResult(meta.TemplateBounds())}
		if !ttype.IsContainedBy(a.cb, t, declared, cmp) && !cmp.CoercedFromMixed && !ttype.CanBeContainedBy(a.cb, t, declared) {
			a.errorf(CodeInvalidReturnStatement, e.Body.Span(),
				fmt.Sprintf("Arrow function is declared to return `%s`, but `%s` is returned.", declared, t),
				"this value has the wrong type")
		}
	}
	return ttype.Single(ttype.ClosureAtomic(sig))
}

// inferredReturn combines the returned types of a body without a declared
// return type.
func inferredReturn(returns []ttype.Union, generator bool) ttype.Union {
	if generator {
		return ttype.Single(ttype.Named("Generator"))
	}
	if len(returns) == 0 {
		return ttype.Void()
	}
	return ttype.Merge(returns...)
}
