// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// argument is an analyzed call argument.
type argument struct {
	span   source.Span
	name   string
	spread bool
	t      ttype.Union
	expr   ast.Expr
}

// invocation is a resolved call target.
type invocation struct {
	target *codebase.FunctionLikeMetadata
	// class is the class static and self refer to in the target's types.
	class string
	// classTemplates holds the generic arguments of the receiver.
	classTemplates *ttype.TemplateResult
	span           source.Span
}

// functionName resolves a called function name, preferring the namespaced
// function and falling back to the global one.
func (a *analyzer) functionName(n *ast.Name) string {
	start := n.Span().Start
	name, ok := a.names.Lookup(start)
	if !ok {
		name = n.Value
	}
	if _, found := a.cb.Function(name); found {
		return name
	}
	if fb, ok := a.names.Fallback(start); ok {
		if _, found := a.cb.Function(fb); found {
			return fb
		}
	}
	return name
}

func (a *analyzer) call(e *ast.Call, ctx *BlockContext) ttype.Union {
	n, ok := e.Callee.(*ast.Name)
	if !ok {
		callee := a.expr(e.Callee, ctx)
		target := callableTarget(callee)
		if e.Args.FirstClassCallable {
			return callee
		}
		args := a.arguments(e.Args, target, ctx)
		if target == nil {
			return ttype.Mixed()
		}
		return a.invoke(invocation{target: target, span: e.Span()}, args, ctx)
	}

	name := a.functionName(n)
	f, found := a.cb.Function(name)
	if !found {
		a.errorf(CodeNonExistentFunction, n.Span(),
			fmt.Sprintf("Function `%s` does not exist.", name), "unknown function")
		a.arguments(e.Args, nil, ctx)
		return ttype.Mixed()
	}
	a.result.References.AddSymbol(a.fn.scope, f.Key())
	a.targets[e.Span().Key()] = f
	if f.Deprecated {
		a.warnf(CodeDeprecatedFunction, n.Span(),
			fmt.Sprintf("Function `%s` is deprecated.", f.Name), "deprecated function")
	}
	if e.Args.FirstClassCallable {
		return ttype.Single(ttype.ClosureAtomic(f.Signature()))
	}
	args := a.arguments(e.Args, f, ctx)
	t := a.invoke(invocation{target: f, span: e.Span()}, args, ctx)
	a.callTaint(f.Key(), args)
	return a.narrowCall(f, args, t)
}

// narrowCall refines the result of calls whose return type depends on
// their arguments.
func (a *analyzer) narrowCall(f *codebase.FunctionLikeMetadata, args []argument, t ttype.Union) ttype.Union {
	switch f.Key() {
	case "count", "sizeof":
		if len(args) == 1 {
			for _, at := range args[0].t.Types {
				if at.Kind != ttype.KKeyedArray || !at.Sealed {
					return t
				}
			}
			if args[0].t.IsSingle() {
				n := int64(0)
				for _, en := range args[0].t.Types[0].Entries {
					if !en.Optional {
						n++
					}
				}
				if n == int64(len(args[0].t.Types[0].Entries)) {
					return ttype.Single(ttype.IntLit(n))
				}
			}
		}
	}
	return t
}

// callableTarget returns a function-like view of a callable type.
func callableTarget(t ttype.Union) *codebase.FunctionLikeMetadata {
	if !t.IsSingle() {
		return nil
	}
	at := t.Types[0]
	if (at.Kind != ttype.KClosure && at.Kind != ttype.KCallable) || at.Signature == nil {
		return nil
	}
	f := &codebase.FunctionLikeMetadata{Name: "{closure}", Kind: codebase.ClosureKind, ReturnType: at.Signature.Return, Pure: at.Signature.Pure}
	for _, p := range at.Signature.Params {
		pt := p.Type
		f.Params = append(f.Params, &codebase.ParameterMetadata{
			Name:       p.Name,
			Type:       &pt,
			HasDefault: p.Optional,
			Variadic:   p.Variadic,
			ByRef:      p.ByRef,
		})
	}
	return f
}

func (a *analyzer) methodCall(e *ast.MethodCall, ctx *BlockContext) ttype.Union {
	obj := a.expr(e.Object, ctx)
	id, ok := e.Method.(*ast.Ident)
	if !ok {
		a.expr(e.Method, ctx)
		a.arguments(e.Args, nil, ctx)
		return ttype.Mixed()
	}
	name := id.Value

	var invs []invocation
	var out []ttype.Union
	nullable := false
	for _, at := range obj.Types {
		switch at.Kind {
		case ttype.KNull:
			nullable = true
		case ttype.KNamed, ttype.KEnumCase:
			inv, ok := a.resolveMethod(at, name, id.Span(), e.Span())
			if !ok {
				out = append(out, ttype.Mixed())
				continue
			}
			invs = append(invs, inv)
		case ttype.KClosure:
			if strings.EqualFold(name, "call") || strings.EqualFold(name, "__invoke") {
				out = append(out, at.Signature.ReturnType())
				continue
			}
			out = append(out, ttype.Mixed())
		case ttype.KObject, ttype.KMixed, ttype.KTemplate, ttype.KNever:
			out = append(out, ttype.Mixed())
		default:
			a.errorf(CodeInvalidMethodAccess, id.Span(),
				fmt.Sprintf("Cannot call method `%s` on a value of type `%s`.", name, ttype.Single(at)),
				"not an object")
			out = append(out, ttype.Mixed())
		}
	}
	if nullable {
		switch {
		case len(invs) == 0 && len(out) == 0 && !e.Nullsafe:
			a.errorf(CodeInvalidMethodAccess, id.Span(),
				fmt.Sprintf("Cannot call method `%s` on null.", name), "the value is always null")
		case !e.Nullsafe:
			a.warnf(CodePossiblyNullMethodAccess, id.Span(),
				fmt.Sprintf("Calling method `%s` on a value that might be null.", name), "possibly null").
				WithHelp("Check for null first or use the nullsafe operator `?->`.")
		}
	}

	var first *codebase.FunctionLikeMetadata
	if len(invs) > 0 {
		first = invs[0].target
		a.targets[e.Span().Key()] = first
	}
	if e.Args.FirstClassCallable {
		if first != nil {
			return ttype.Single(ttype.ClosureAtomic(first.Signature()))
		}
		return ttype.Single(ttype.ClosureAtomic(nil))
	}
	args := a.arguments(e.Args, first, ctx)
	for i, inv := range invs {
		if i > 0 {
			a.silent++
		}
		out = append(out, a.invoke(inv, args, ctx))
		if i > 0 {
			a.silent--
		}
	}
	if nullable && e.Nullsafe {
		out = append(out, ttype.Null())
	}
	if len(out) == 0 {
		return ttype.Mixed()
	}
	return ttype.Merge(out...)
}

// resolveMethod finds method name on the class of at.
func (a *analyzer) resolveMethod(at ttype.Atomic, name string, nameSpan, span source.Span) (invocation, bool) {
	m, known := a.cb.ClassLike(at.Name)
	if !known {
		return invocation{}, false
	}
	f, ok := a.cb.Method(at.Name, name)
	if !ok {
		if !a.dynamicMembers(m, "__call") {
			a.errorf(CodeNonExistentMethod, nameSpan,
				fmt.Sprintf("Method `%s::%s()` does not exist.", m.Name, name), "unknown method")
		}
		return invocation{}, false
	}
	a.result.References.AddMember(a.fn.scope, f.Class, f.Name)
	if f.Deprecated {
		a.warnf(CodeDeprecatedMethod, nameSpan,
			fmt.Sprintf("Method `%s` is deprecated.", f.DisplayName()), "deprecated method")
	}
	return invocation{target: f, class: m.Name, classTemplates: classTemplates(m, at), span: span}, true
}

func (a *analyzer) staticCall(e *ast.StaticCall, ctx *BlockContext) ttype.Union {
	class := a.classExpr(e.Class, ctx)
	id, ok := e.Method.(*ast.Ident)
	if !ok {
		a.expr(e.Method, ctx)
	}
	if class == "" || !ok {
		a.arguments(e.Args, nil, ctx)
		return ttype.Mixed()
	}
	name := id.Value
	m, known := a.cb.ClassLike(class)
	if !known {
		a.arguments(e.Args, nil, ctx)
		return ttype.Mixed()
	}
	if m.IsEnum() {
		if t, handled := a.enumMethod(m, name, e, ctx); handled {
			return t
		}
	}
	f, found := a.cb.Method(class, name)
	if !found {
		if !a.dynamicMembers(m, "__callStatic") && !a.dynamicMembers(m, "__call") {
			a.errorf(CodeNonExistentMethod, id.Span(),
				fmt.Sprintf("Method `%s::%s()` does not exist.", m.Name, name), "unknown method")
		}
		a.arguments(e.Args, nil, ctx)
		return ttype.Mixed()
	}
	a.result.References.AddMember(a.fn.scope, f.Class, f.Name)
	a.targets[e.Span().Key()] = f
	if f.Deprecated {
		a.warnf(CodeDeprecatedMethod, id.Span(),
			fmt.Sprintf("Method `%s` is deprecated.", f.DisplayName()), "deprecated method")
	}
	if e.Args.FirstClassCallable {
		return ttype.Single(ttype.ClosureAtomic(f.Signature()))
	}
	static := m.Name
	if n, ok := e.Class.(*ast.Name); ok && strings.EqualFold(n.Value, "parent") {
		static = a.className()
	}
	args := a.arguments(e.Args, f, ctx)
	var tr *ttype.TemplateResult
	if this, ok := ctx.Vars["$this"]; ok && this.IsSingle() && a.fn.class != nil && a.cb.IsSubtype(a.fn.class.Name, m.Name) {
		tr = classTemplates(m, this.Types[0])
	}
	return a.invoke(invocation{target: f, class: static, classTemplates: tr, span: e.Span()}, args, ctx)
}

// enumMethod handles the methods every enum has without declaring them.
func (a *analyzer) enumMethod(m *codebase.ClassLikeMetadata, name string, e *ast.StaticCall, ctx *BlockContext) (ttype.Union, bool) {
	self := ttype.Single(ttype.Named(m.Name))
	switch strings.ToLower(name) {
	case "cases":
		a.arguments(e.Args, nil, ctx)
		return ttype.Single(ttype.ListOf(self)), true
	case "from":
		if m.BackingType != nil {
			a.arguments(e.Args, nil, ctx)
			return self, true
		}
	case "tryfrom":
		if m.BackingType != nil {
			a.arguments(e.Args, nil, ctx)
			return ttype.Nullable(self), true
		}
	}
	return ttype.Union{}, false
}

func (a *analyzer) newExpr(e *ast.New, ctx *BlockContext) ttype.Union {
	var class string
	switch c := e.Class.(type) {
	case *ast.AnonymousClass:
		return ttype.Single(ttype.Named(a.anonymousClass(c, ctx)))
	case *ast.Name:
		class = a.classRef(c)
		if isRelative(class) {
			a.arguments(e.Args, nil, ctx)
			return ttype.Object()
		}
		m, ok := a.cb.ClassLike(class)
		if !ok {
			a.errorf(CodeNonExistentClassLike, c.Span(),
				fmt.Sprintf("Class `%s` does not exist.", class), "unknown class")
			a.arguments(e.Args, nil, ctx)
			return ttype.Object()
		}
		a.result.References.AddSymbol(a.fn.scope, m.Key())
		relative := isRelative(c.Value)
		switch {
		case m.IsInterface():
			a.errorf(CodeInterfaceInstantiation, c.Span(),
				fmt.Sprintf("Cannot instantiate interface `%s`.", m.Name), "interfaces cannot be instantiated")
		case m.IsTrait() || m.IsEnum() || (m.Abstract && !(relative && strings.EqualFold(c.Value, "static"))):
			a.errorf(CodeAbstractInstantiation, c.Span(),
				fmt.Sprintf("Cannot instantiate abstract class-like `%s`.", m.Name), "cannot be instantiated")
		}
		if m.Deprecated && !relative {
			a.warnf(CodeDeprecatedClass, c.Span(),
				fmt.Sprintf("Class `%s` is deprecated.", m.Name), "deprecated class")
		}
		class = m.Name
	default:
		t := a.expr(e.Class, ctx)
		if t.IsSingle() && t.Types[0].Kind == ttype.KClassString && t.Types[0].Name != "" {
			class = t.Types[0].Name
		} else {
			a.arguments(e.Args, nil, ctx)
			return ttype.Object()
		}
	}

	m, known := a.cb.ClassLike(class)
	if !known {
		a.arguments(e.Args, nil, ctx)
		return ttype.Single(ttype.Named(class))
	}
	ctor, ok := a.cb.Method(class, "__construct")
	if !ok {
		args := a.arguments(e.Args, nil, ctx)
		if len(args) > 0 && e.Args != nil {
			a.errorf(CodeTooManyArguments, e.Span(),
				fmt.Sprintf("Class `%s` has no constructor, but arguments were passed.", class),
				"unexpected arguments")
		}
		return ttype.Single(ttype.Named(class))
	}
	a.result.References.AddMember(a.fn.scope, ctor.Class, ctor.Name)
	a.targets[e.Span().Key()] = ctor
	tr := ttype.NewTemplateResult(m.TemplateBounds())
	args := a.arguments(e.Args, ctor, ctx)
	a.invoke(invocation{target: ctor, class: class, classTemplates: tr, span: e.Span()}, args, ctx)
	var params []ttype.Union
	for _, t := range m.Templates {
		params = append(params, tr.Resolve(t.Name))
	}
	return ttype.Single(ttype.Named(class, params...))
}

// pipe analyzes input |> callable as a call with one argument.
func (a *analyzer) pipe(e *ast.Pipe, ctx *BlockContext) ttype.Union {
	in := a.expr(e.Input, ctx)
	callee := a.expr(e.Callable, ctx)
	target := a.targets[e.Callable.Span().Key()]
	if target == nil {
		target = callableTarget(callee)
	}
	if target == nil {
		return ttype.Mixed()
	}
	arg := argument{span: e.Input.Span(), t: in, expr: e.Input}
	t := a.invoke(invocation{target: target, span: e.Span()}, []argument{arg}, ctx)
	a.callTaint(target.Key(), []argument{arg})
	return t
}

// arguments analyzes the arguments of a call to target, which may be nil.
// By-reference arguments define their variables.
func (a *analyzer) arguments(list *ast.ArgumentList, target *codebase.FunctionLikeMetadata, ctx *BlockContext) []argument {
	if list == nil {
		return nil
	}
	prev := ctx.InsideCall
	ctx.InsideCall = true
	defer func() { ctx.InsideCall = prev }()

	var out []argument
	for i, arg := range list.Args {
		var p *codebase.ParameterMetadata
		if target != nil {
			if arg.Name != nil {
				p, _ = target.Param(arg.Name.Value)
			} else {
				p, _ = target.ParamAt(i)
			}
		}
		var t ttype.Union
		if p != nil && p.ByRef {
			t = a.byRefArgument(arg.Value, p, ctx)
		} else {
			t = a.expr(arg.Value, ctx)
		}
		out = append(out, argument{span: arg.Span(), spread: arg.Spread, t: t, expr: arg.Value})
		if arg.Name != nil {
			out[len(out)-1].name = arg.Name.Value
		}
	}
	return out
}

func (a *analyzer) byRefArgument(e ast.Expr, p *codebase.ParameterMetadata, ctx *BlockContext) ttype.Union {
	key := a.varKey(e)
	if key == "" {
		return a.expr(e, ctx)
	}
	var cur ttype.Union
	if _, ok := ctx.Vars[key]; ok {
		cur = a.expr(e, ctx)
	} else {
		prev := ctx.InsideIsset
		ctx.InsideIsset = true
		cur = a.expr(e, ctx)
		ctx.InsideIsset = prev
	}
	out := a.expand(p.EffectiveType())
	if out.IsMixed() && !cur.IsMixed() {
		out = ttype.Merge(cur, out)
	}
	if isPlainVar(key) {
		ctx.refs[key] = true
	}
	a.assignTo(e, out, e.Span(), modeBind, true, a.taintsOf(e), ctx)
	return cur
}

// invoke checks args against inv and returns the type of the call.
func (a *analyzer) invoke(inv invocation, args []argument, ctx *BlockContext) ttype.Union {
	f := inv.target
	templates := ttype.NewTemplateResult(f.TemplateBounds())
	display := f.DisplayName()

	provided := make(map[int]bool)
	positional := 0
	spread := false
	reportedExtra := false
	for _, arg := range args {
		if arg.spread {
			spread = true
			continue
		}
		var p *codebase.ParameterMetadata
		idx := -1
		if arg.name != "" {
			p, idx = f.Param(arg.name)
			if p == nil {
				if !f.Variadic() {
					a.errorf(CodeInvalidNamedArgument, arg.span,
						fmt.Sprintf("`%s` has no parameter named `$%s`.", display, arg.name), "unknown parameter")
				}
				continue
			}
			if provided[idx] {
				a.errorf(CodeDuplicateNamedArgument, arg.span,
					fmt.Sprintf("Parameter `$%s` of `%s` is already passed.", arg.name, display), "duplicate argument")
				continue
			}
		} else {
			var ok bool
			p, ok = f.ParamAt(positional)
			if !ok {
				if !reportedExtra {
					a.errorf(CodeTooManyArguments, arg.span,
						fmt.Sprintf("Too many arguments for `%s`: expected at most %d, got %d.", display, len(f.Params), countPositional(args)),
						"unexpected argument")
					reportedExtra = true
				}
				positional++
				continue
			}
			idx = positional
			if idx >= len(f.Params) {
				idx = len(f.Params) - 1
			}
			positional++
		}
		provided[idx] = true
		a.checkArgument(inv, templates, idx, p, arg)
	}

	if !spread {
		required := 0
		missing := false
		for i, p := range f.Params {
			if p.HasDefault || p.Variadic {
				continue
			}
			required++
			if !provided[i] {
				missing = true
			}
		}
		if missing {
			a.errorf(CodeTooFewArguments, inv.span,
				fmt.Sprintf("Too few arguments for `%s`: expected at least %d, got %d.", display, required, len(provided)),
				"missing arguments").
				WithHelp("Pass a value for every required parameter.")
		}
	}

	if len(templates.Lower) > 0 || len(templates.Upper) > 0 {
		bounds := make(map[string]TemplateBound, len(templates.Upper))
		for k, upper := range templates.Upper {
			bounds[k] = TemplateBound{Lower: templates.Lower[k], Upper: upper}
		}
		for k, lower := range templates.Lower {
			if _, ok := bounds[k]; !ok {
				bounds[k] = TemplateBound{Lower: lower, Upper: ttype.Mixed()}
			}
		}
		a.result.Artifacts.TemplateBounds[inv.span.Key()] = bounds
	}

	ret := ttype.Mixed()
	if f.ReturnType != nil {
		ret = *f.ReturnType
	}
	ret = ttype.Substitute(ret, templates)
	if inv.classTemplates != nil {
		ret = ttype.Substitute(ret, inv.classTemplates)
	}
	return a.cb.Expand(ret, inv.class)
}

func countPositional(args []argument) int {
	n := 0
	for _, arg := range args {
		if arg.name == "" && !arg.spread {
			n++
		}
	}
	return n
}

func (a *analyzer) checkArgument(inv invocation, templates *ttype.TemplateResult, idx int, p *codebase.ParameterMetadata, arg argument) {
	if p.ByRef {
		return
	}
	param := a.cb.Expand(p.EffectiveType(), inv.class)
	if inv.classTemplates != nil {
		param = ttype.Substitute(param, inv.classTemplates)
	}
	cmp := &ttype.ComparisonResult{Templates: templates}
	if ttype.IsContainedBy(a.cb, arg.t, param, cmp) || cmp.CoercedFromMixed {
		return
	}
	if ttype.CanBeContainedBy(a.cb, arg.t, param) {
		a.warnf(CodePossiblyInvalidArgument, arg.span,
			fmt.Sprintf("Argument #%d of `%s` expects `%s`, but a possibly different `%s` was given.", idx+1, inv.target.DisplayName(), param, arg.t),
			"this argument might have the wrong type")
		return
	}
	a.errorf(CodeInvalidArgument, arg.span,
		fmt.Sprintf("Argument #%d of `%s` expects `%s`, but `%s` was given.", idx+1, inv.target.DisplayName(), param, arg.t),
		"this argument has the wrong type")
}
