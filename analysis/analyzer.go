// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/dataflow"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// maxLoopPasses bounds the silent passes over a loop body made while the
// types of its variables settle.
const maxLoopPasses = 3

// analyzer is the internal state for a single analysis run.
type analyzer struct {
	file     *source.File
	prog     *ast.Program
	names    *names.Names
	cb       *codebase.Codebase
	settings Settings
	result   *Result
	types    *codebase.TypeBuilder

	fn    *functionContext
	loops []*loopScope
	// silent is positive while issues are suppressed.
	silent int

	// keyed holds the last computed type of every narrowable expression,
	// used when a condition narrows a key the context does not track.
	keyed map[string]ttype.Union
	// targets maps a call to the function-like it resolved to.
	targets map[[2]uint32]*codebase.FunctionLikeMetadata
	// assigns maps an assignment to a plain variable to the statement
	// wrapping it.
	assigns map[[2]uint32]source.Span
	// taintOf holds the taint nodes carried by a variable read.
	taintOf map[[2]uint32][]*dataflow.Node
}

// functionContext is the state shared by every block of one function-like
// body.
type functionContext struct {
	meta  *codebase.FunctionLikeMetadata
	class *codebase.ClassLikeMetadata
	// scope identifies the body in symbol references.
	scope string
	// graph tracks assignments and reads for unused-variable detection.
	graph       *dataflow.Graph
	returns     []ttype.Union
	trackUnused bool
	global      bool
}

// loopScope collects the contexts leaving a loop or switch body early.
type loopScope struct {
	isSwitch  bool
	breaks    []*BlockContext
	continues []*BlockContext
}

func (a *analyzer) newFunctionContext(meta *codebase.FunctionLikeMetadata, class *codebase.ClassLikeMetadata, scope string) *functionContext {
	if scope == "" {
		scope = a.file.Name
	}
	return &functionContext{
		meta:        meta,
		class:       class,
		scope:       scope,
		graph:       dataflow.New(),
		trackUnused: true,
	}
}

// className returns the name of the class the current body belongs to.
func (a *analyzer) className() string {
	if a.fn.class == nil {
		return ""
	}
	return a.fn.class.Name
}

// expand expands self, static, and parent in u for the current class.
func (a *analyzer) expand(u ttype.Union) ttype.Union {
	return a.cb.Expand(u, a.className())
}

func (a *analyzer) record(e ast.Node, t ttype.Union) {
	a.result.Artifacts.Types[e.Span().Key()] = t
}

func (a *analyzer) statements(stmts []ast.Stmt, ctx *BlockContext) {
	reported := false
	for _, s := range stmts {
		if ctx.Actions.FallsThrough() {
			a.statement(s, ctx)
			continue
		}
		switch s.(type) {
		case *ast.Function, *ast.ClassLike, *ast.Const:
			a.statement(s, ctx)
			continue
		case *ast.Noop, *ast.Tag, *ast.Label:
			continue
		}
		if !reported && a.settings.AnalyzeDeadCode {
			a.report(diagnostic.LevelHelp, CodeUnreachableStatement, s.Span(),
				"Unreachable statement.", "this statement is never executed").
				WithHelp("Remove the unreachable code or fix the control flow that skips it.")
			reported = true
		}
	}
}

func (a *analyzer) statement(s ast.Stmt, ctx *BlockContext) {
	switch s := s.(type) {
	case *ast.ExprStmt:
		a.exprStmt(s, ctx)
	case *ast.Echo:
		for _, v := range s.Values {
			a.expr(v, ctx)
			a.taintSink("echo", v)
		}
	case *ast.InlineHTML, *ast.Tag, *ast.Noop, *ast.Use, *ast.Goto, *ast.Label, *ast.HaltCompiler:
	case *ast.Block:
		a.statements(s.Statements, ctx)
	case *ast.Namespace:
		a.statements(s.Statements, ctx)
	case *ast.Declare:
		for _, item := range s.Items {
			a.expr(item.Value, ctx)
		}
		if s.Body != nil {
			a.statement(s.Body, ctx)
		}
	case *ast.If:
		a.ifStmt(s, ctx)
	case *ast.While:
		a.loop(ctx, loopSpec{conds: []ast.Expr{s.Cond}, body: s.Body})
	case *ast.DoWhile:
		a.loop(ctx, loopSpec{conds: []ast.Expr{s.Cond}, body: s.Body, doWhile: true})
	case *ast.For:
		for _, e := range s.Init {
			a.expr(e, ctx)
		}
		a.loop(ctx, loopSpec{conds: s.Cond, body: s.Body, step: s.Step})
	case *ast.Foreach:
		a.foreach(s, ctx)
	case *ast.Switch:
		a.switchStmt(s, ctx)
	case *ast.Break:
		a.jump(s.Level, ctx, ActionBreak)
	case *ast.Continue:
		a.jump(s.Level, ctx, ActionContinue)
	case *ast.Return:
		a.returnStmt(s, ctx)
	case *ast.Try:
		a.tryStmt(s, ctx)
	case *ast.Global:
		for _, v := range s.Vars {
			key := "$" + v.Name
			ctx.assign(key, ttype.Mixed())
			ctx.refs[key] = true
		}
	case *ast.Static:
		for _, v := range s.Vars {
			if v.Default != nil {
				a.expr(v.Default, ctx)
			}
			key := "$" + v.Var.Name
			ctx.assign(key, ttype.Mixed())
			ctx.refs[key] = true
		}
	case *ast.Unset:
		for _, e := range s.Exprs {
			a.unset(e, ctx)
		}
	case *ast.Function:
		a.functionDecl(s)
	case *ast.Const:
		for _, item := range s.Items {
			a.expr(item.Value, NewBlockContext())
		}
	case *ast.ClassLike:
		a.classLike(s)
	}
}

func (a *analyzer) exprStmt(s *ast.ExprStmt, ctx *BlockContext) {
	e := ast.Unparen(s.Expr)
	if as, ok := e.(*ast.Assign); ok {
		if _, plain := ast.Unparen(as.Target).(*ast.Variable); plain {
			a.assigns[as.Span().Key()] = s.Span()
		}
	}
	t := a.expr(s.Expr, ctx)
	if a.settings.FindUnusedExpressions {
		a.unusedExpression(e, t)
	}
}

func (a *analyzer) unusedExpression(e ast.Expr, t ttype.Union) {
	switch e.(type) {
	case *ast.Call, *ast.MethodCall, *ast.StaticCall:
		target := a.targets[e.Span().Key()]
		if target == nil || !target.Pure || t.IsVoid() || !a.pure(e) {
			return
		}
		a.warnf(CodeUnusedFunctionCall, e.Span(),
			fmt.Sprintf("The result of the pure call to `%s` is not used.", target.DisplayName()),
			"this call has no effect").
			WithHelp("Use the returned value or remove the call.")
		return
	case *ast.Pipe:
		return
	}
	if a.pure(e) {
		a.warnf(CodeUnusedStatement, e.Span(), "Expression has no effect.", "this value is discarded").
			WithHelp("Remove the statement or use its value.")
	}
}

func (a *analyzer) unset(e ast.Expr, ctx *BlockContext) {
	prev := ctx.InsideUnset
	ctx.InsideUnset = true
	defer func() { ctx.InsideUnset = prev }()

	switch e := ast.Unparen(e).(type) {
	case *ast.Variable:
		key := "$" + e.Name
		ctx.invalidate(key)
		delete(ctx.Vars, key)
		delete(ctx.sources, key)
		delete(ctx.taint, key)
	case *ast.ArrayAccess:
		a.lvalue(e.Array, ctx)
		if e.Index != nil {
			a.expr(e.Index, ctx)
		}
		if key := a.varKey(e); key != "" {
			ctx.invalidate(key)
			delete(ctx.Vars, key)
		}
	default:
		a.expr(e, ctx)
	}
}

func (a *analyzer) ifStmt(s *ast.If, ctx *BlockContext) {
	ifTrue, ifFalse := a.condition(s.Cond, ctx)

	then := ctx.fork()
	a.apply(then, ifTrue, s.Cond, true)
	a.statement(s.Then, then)
	branches := []*BlockContext{then}

	rest := ctx.fork()
	a.apply(rest, ifFalse, s.Cond, false)
	for _, elseif := range s.ElseIfs {
		t, f := a.condition(elseif.Cond, rest)
		b := rest.fork()
		a.apply(b, t, elseif.Cond, true)
		a.statement(elseif.Body, b)
		branches = append(branches, b)
		a.apply(rest, f, elseif.Cond, false)
	}
	if s.Else != nil {
		a.statement(s.Else, rest)
	}
	branches = append(branches, rest)
	ctx.merge(branches...)
}

type loopSpec struct {
	conds   []ast.Expr
	body    ast.Stmt
	step    []ast.Expr
	doWhile bool
	// iterates marks a foreach, which ends when its subject is exhausted.
	iterates bool
	// bind assigns the loop variables at the top of each iteration.
	bind func(*BlockContext)
}

// loop analyzes a loop.  The body is walked silently until the types at its
// entry stop changing, then once more with issues reported.
func (a *analyzer) loop(ctx *BlockContext, spec loopSpec) {
	infinite := len(spec.conds) == 0 && !spec.iterates
	if !infinite && !spec.doWhile {
		last := spec.conds[len(spec.conds)-1]
		infinite = isAlwaysTrue(last)
	}
	if spec.doWhile {
		infinite = isAlwaysTrue(spec.conds[len(spec.conds)-1])
	}

	entry := ctx.fork()
	entry.InsideLoop = true
	passes := maxLoopPasses
	if a.silent > 0 {
		passes = 0
	}
	for i := 0; i < passes; i++ {
		a.silent++
		end, _, _ := a.loopPass(entry, spec)
		a.silent--
		next := entry.Clone()
		next.merge(entry.fork(), end)
		next.Actions = ActionNone
		if sameVars(entry, next) {
			break
		}
		entry = next
	}

	end, scope, bodyActions := a.loopPass(entry, spec)

	var exits []*BlockContext
	if !infinite {
		exit := entry.fork()
		switch {
		case spec.doWhile:
			exit = end.fork()
		case spec.iterates:
			exit.merge(entry.fork(), end.fork())
		}
		if len(spec.conds) > 0 {
			_, ifFalse := a.conditionQuiet(spec.conds[len(spec.conds)-1], exit)
			a.apply(exit, ifFalse, spec.conds[len(spec.conds)-1], false)
		}
		exits = append(exits, exit)
	}
	exits = append(exits, scope.breaks...)

	inside := ctx.InsideLoop
	ctx.merge(exits...)
	ctx.InsideLoop = inside
	ctx.Actions |= bodyActions & (ActionReturn | ActionThrow | ActionEnd)
	if ctx.Actions == 0 {
		ctx.Actions = ActionEnd
	}
}

// loopPass walks the body of a loop once, starting from entry.  It returns
// the context at the end of an iteration, the early exits, and the actions
// of the body.
func (a *analyzer) loopPass(entry *BlockContext, spec loopSpec) (*BlockContext, *loopScope, Actions) {
	body := entry.fork()
	if !spec.doWhile {
		for i, c := range spec.conds {
			if i < len(spec.conds)-1 {
				a.expr(c, body)
				continue
			}
			ifTrue, _ := a.condition(c, body)
			a.apply(body, ifTrue, c, true)
		}
	}
	if spec.bind != nil {
		spec.bind(body)
	}

	scope := &loopScope{}
	a.loops = append(a.loops, scope)
	a.statement(spec.body, body)
	a.loops = a.loops[:len(a.loops)-1]
	actions := body.Actions

	end := entry.fork()
	end.merge(append([]*BlockContext{body}, scope.continues...)...)
	end.Actions = ActionNone
	for _, e := range spec.step {
		a.expr(e, end)
	}
	if spec.doWhile {
		for _, c := range spec.conds {
			a.expr(c, end)
		}
	}
	return end, scope, actions
}

func sameVars(a, b *BlockContext) bool {
	if len(a.Vars) != len(b.Vars) {
		return false
	}
	for k, t := range a.Vars {
		u, ok := b.Vars[k]
		if !ok || !ttype.Equal(t, u) || t.PossiblyUndefined != u.PossiblyUndefined {
			return false
		}
	}
	return true
}

func isAlwaysTrue(e ast.Expr) bool {
	switch e := ast.Unparen(e).(type) {
	case *ast.BoolLiteral:
		return e.Value
	case *ast.IntLiteral:
		return e.Value != 0
	}
	return false
}

func (a *analyzer) foreach(s *ast.Foreach, ctx *BlockContext) {
	subject := a.expr(s.Expr, ctx)
	keyT, valueT := iterationTypes(subject)
	if !subject.IsMixed() && !iterable(subject) {
		a.errorf(CodeInvalidArgument, s.Expr.Span(),
			fmt.Sprintf("Cannot iterate over `%s`.", subject), "this value is not iterable")
	}
	taint := a.taintsOf(s.Expr)
	a.loop(ctx, loopSpec{
		body:     s.Body,
		iterates: true,
		bind: func(b *BlockContext) {
			if s.Key != nil {
				a.bind(s.Key, keyT, b)
			}
			a.bind(s.Value, valueT, b)
			if key := a.varKey(s.Value); key != "" {
				if s.ByRef {
					b.refs[key] = true
				}
				a.setTaint(key, s.Value.Span(), taint, b)
			}
		},
	})
}

func iterable(u ttype.Union) bool {
	for _, t := range u.Types {
		switch t.Kind {
		case ttype.KArray, ttype.KList, ttype.KKeyedArray, ttype.KIterable, ttype.KNamed,
			ttype.KObject, ttype.KTemplate, ttype.KMixed, ttype.KNever:
		default:
			return false
		}
	}
	return true
}

// iterationTypes returns the key and value types produced by iterating u.
func iterationTypes(u ttype.Union) (ttype.Union, ttype.Union) {
	var keys, values []ttype.Union
	for _, t := range u.Types {
		switch t.Kind {
		case ttype.KArray, ttype.KList, ttype.KKeyedArray, ttype.KIterable:
			k, v := t.ArrayParams()
			keys = append(keys, k)
			values = append(values, v)
		case ttype.KNamed:
			switch len(t.Params) {
			case 1:
				keys = append(keys, ttype.Mixed())
				values = append(values, t.Params[0])
			case 2:
				keys = append(keys, t.Params[0])
				values = append(values, t.Params[1])
			default:
				keys = append(keys, ttype.Mixed())
				values = append(values, ttype.Mixed())
			}
		default:
			keys = append(keys, ttype.Mixed())
			values = append(values, ttype.Mixed())
		}
	}
	if len(keys) == 0 {
		return ttype.Mixed(), ttype.Mixed()
	}
	return ttype.Merge(keys...), ttype.Merge(values...)
}

func (a *analyzer) switchStmt(s *ast.Switch, ctx *BlockContext) {
	a.expr(s.Subject, ctx)
	scope := &loopScope{isSwitch: true}
	a.loops = append(a.loops, scope)

	var exits []*BlockContext
	var prev *BlockContext
	hasDefault := false
	for _, c := range s.Cases {
		if c.Cond == nil {
			hasDefault = true
		} else {
			a.expr(c.Cond, ctx)
		}
		b := ctx.fork()
		if prev != nil && prev.Actions.FallsThrough() {
			b.merge(b.fork(), prev)
			b.Actions = ActionNone
		}
		a.statements(c.Body, b)
		exits = append(exits, b)
		prev = b
	}
	a.loops = a.loops[:len(a.loops)-1]

	// A case that falls through continues into the next one; only the last
	// case's fall-through leaves the switch.
	var live []*BlockContext
	actions := Actions(0)
	for i, b := range exits {
		actions |= b.Actions &^ ActionNone
		if i == len(exits)-1 && b.Actions.FallsThrough() {
			live = append(live, b)
		}
	}
	live = append(live, scope.breaks...)
	if !hasDefault {
		live = append(live, ctx.fork())
	}
	ctx.merge(live...)
	ctx.Actions |= actions & (ActionReturn | ActionThrow | ActionEnd | ActionContinue)
	if ctx.Actions == 0 {
		ctx.Actions = ActionEnd
	}
}

// jump handles break and continue.  A level greater than one targets an
// enclosing loop.
func (a *analyzer) jump(level ast.Expr, ctx *BlockContext, action Actions) {
	n := 1
	if lit, ok := level.(*ast.IntLiteral); ok && lit.Value > 1 {
		n = int(lit.Value)
	}
	var target *loopScope
	for i := len(a.loops) - 1; i >= 0 && n > 0; i-- {
		l := a.loops[i]
		if action == ActionContinue && l.isSwitch && n == 1 {
			continue
		}
		n--
		if n == 0 {
			target = l
		}
	}
	if target != nil {
		saved := ctx.Clone()
		saved.Actions = ActionNone
		if action == ActionBreak || target.isSwitch {
			target.breaks = append(target.breaks, saved)
		} else {
			target.continues = append(target.continues, saved)
		}
	}
	ctx.Actions = ctx.Actions&^ActionNone | action
}

func (a *analyzer) returnStmt(s *ast.Return, ctx *BlockContext) {
	t := ttype.Void()
	if s.Value != nil {
		t = a.expr(s.Value, ctx)
	}
	a.fn.returns = append(a.fn.returns, t)
	if meta := a.fn.meta; meta != nil && meta.ReturnType != nil && !meta.Generator {
		a.checkReturn(s, t, meta)
	}
	ctx.Actions = ctx.Actions&^ActionNone | ActionReturn
	ctx.HasReturned = true
}

func (a *analyzer) checkReturn(s *ast.Return, t ttype.Union, meta *codebase.FunctionLikeMetadata) {
	declared := a.expand(*meta.ReturnType)
	name := meta.DisplayName()
	switch {
	case declared.IsVoid():
		if s.Value != nil {
			a.errorf(CodeInvalidReturnStatement, s.Value.Span(),
				fmt.Sprintf("`%s` is declared void but returns a value.", name), "unexpected return value")
		}
		return
	case s.Value == nil:
		if !declared.IsNullable() && !declared.IsMixed() {
			a.errorf(CodeInvalidReturnStatement, s.Span(),
				fmt.Sprintf("`%s` must return a value of type `%s`.", name, declared), "missing return value")
		}
		return
	}
	cmp := &ttype.ComparisonResult{Templates: ttype.NewTemplateResult(meta.TemplateBounds())}
	if ttype.IsContainedBy(a.cb, t, declared, cmp) || cmp.CoercedFromMixed {
		return
	}
	if ttype.CanBeContainedBy(a.cb, t, declared) {
		return
	}
	a.errorf(CodeInvalidReturnStatement, s.Value.Span(),
		fmt.Sprintf("`%s` is declared to return `%s`, but `%s` is returned.", name, declared, t),
		"this value has the wrong type")
}

func (a *analyzer) tryStmt(s *ast.Try, ctx *BlockContext) {
	body := ctx.fork()
	a.statements(s.Body.Statements, body)
	branches := []*BlockContext{body}
	for _, c := range s.Catches {
		b := ctx.fork()
		b.mergeConditional(body)
		var types []ttype.Atomic
		for _, n := range c.Types {
			name := a.names.Resolved(n)
			if !a.cb.ClassExists(name) {
				a.errorf(CodeNonExistentClassLike, n.Span(),
					fmt.Sprintf("Class `%s` does not exist.", name), "unknown class")
			} else {
				a.result.References.AddSymbol(a.fn.scope, codebase.Key(name))
			}
			types = append(types, ttype.Named(name))
		}
		if c.Var != nil {
			key := "$" + c.Var.Name
			b.assign(key, ttype.Combine(types...))
			b.refs[key] = true
		}
		a.statements(c.Body.Statements, b)
		branches = append(branches, b)
	}
	ctx.merge(branches...)

	if s.Finally == nil {
		return
	}
	saved := ctx.Actions
	ctx.Actions = ActionNone
	a.statements(s.Finally.Statements, ctx)
	if ctx.Actions.FallsThrough() {
		ctx.Actions = saved | ctx.Actions&^ActionNone
	}
}

func (a *analyzer) functionDecl(n *ast.Function) {
	name := n.Name.Value
	if resolved, ok := a.names.Lookup(n.Name.Span().Start); ok {
		name = resolved
	}
	meta, ok := a.cb.Function(name)
	if !ok || meta.Span != n.Span() {
		doc, off := codebase.DocblockOf(a.prog, n)
		meta = codebase.BuildFunctionLike(n, n.Params, n.ReturnType, n.Body, doc, off, codebase.Key(name), a.types)
		meta.Name = name
		meta.Kind = codebase.FunctionKind
	}
	a.functionBody(meta, nil, n.Params, n.Body.Statements, codebase.Key(name), nil)
}

// functionBody analyzes the body of a function-like in a fresh context.
// bind, when set, adds variables captured from the enclosing scope.
func (a *analyzer) functionBody(meta *codebase.FunctionLikeMetadata, class *codebase.ClassLikeMetadata, params *ast.ParameterList, body []ast.Stmt, scope string, bind func(*BlockContext)) *functionContext {
	prevFn, prevLoops := a.fn, a.loops
	fn := a.newFunctionContext(meta, class, scope)
	a.fn, a.loops = fn, nil
	defer func() { a.fn, a.loops = prevFn, prevLoops }()

	ctx := NewBlockContext()
	if class != nil && !meta.Static {
		this := ttype.Named(class.Name)
		this.This = true
		ctx.Vars["$this"] = ttype.Single(this)
	}
	a.bindParams(meta, params, ctx)
	if bind != nil {
		bind(ctx)
	}
	fn.trackUnused = !usesDynamicVariables(body)

	a.statements(body, ctx)

	a.result.Artifacts.InferredReturns[meta.Span.Key()] = fn.returns
	a.checkMissingReturn(meta, ctx)
	a.reportUnused(fn, ctx)
	return fn
}

func (a *analyzer) bindParams(meta *codebase.FunctionLikeMetadata, params *ast.ParameterList, ctx *BlockContext) {
	if params == nil {
		return
	}
	for i, p := range params.Params {
		if p.Default != nil {
			a.expr(p.Default, NewBlockContext())
		}
		if i >= len(meta.Params) {
			break
		}
		pm := meta.Params[i]
		t := a.expand(pm.EffectiveType())
		if pm.Variadic {
			t = ttype.Single(ttype.ListOf(t))
		}
		key := "$" + pm.Name
		ctx.Vars[key] = t
		if pm.ByRef {
			ctx.refs[key] = true
		}
	}
}

func (a *analyzer) checkMissingReturn(meta *codebase.FunctionLikeMetadata, ctx *BlockContext) {
	if meta.ReturnType == nil || meta.Generator || meta.Abstract || !ctx.Actions.FallsThrough() {
		return
	}
	rt := *meta.ReturnType
	if rt.IsVoid() || rt.IsNullable() || rt.IsMixed() || rt.IsNever() {
		return
	}
	span := meta.ReturnSpan
	if span.Len() == 0 {
		span = meta.NameSpan
	}
	a.errorf(CodeMissingReturnStatement, span,
		fmt.Sprintf("Not all code paths of `%s` return a value.", meta.DisplayName()),
		fmt.Sprintf("declared to return `%s`", rt)).
		WithHelp("Add a return statement at the end of the function.")
}

func (a *analyzer) reportUnused(fn *functionContext, ctx *BlockContext) {
	if !fn.trackUnused || fn.global || !a.settings.FindUnusedExpressions {
		return
	}
	for _, n := range fn.graph.Unused() {
		if ctx.refs[n.Name] || strings.HasPrefix(n.Name, "$_") || n.Name == "$this" {
			continue
		}
		if n.Pure {
			issue := a.warnf(CodeUnusedAssignment, n.Span,
				fmt.Sprintf("Assignment to `%s` is never used.", n.Name), "this value is never read").
				WithHelp("Remove the assignment or use the variable.")
			if stmt, ok := a.assigns[n.Span.Key()]; ok {
				if plan, err := diagnostic.NewFixPlan(diagnostic.Delete(stmt, diagnostic.Safe)); err == nil {
					issue.WithFix(plan)
				}
			}
			continue
		}
		a.report(diagnostic.LevelNote, CodeUnusedAssignmentWithSideEffects, n.Span,
			fmt.Sprintf("Assignment to `%s` is never used, but the assigned expression has side effects.", n.Name),
			"this value is never read").
			WithHelp("Keep the expression and drop the assignment.")
	}
}

// usesDynamicVariables reports whether body may access variables by name,
// which makes unused-variable detection unreliable.
func usesDynamicVariables(body []ast.Stmt) bool {
	found := false
	for _, s := range body {
		ast.Inspect(s, func(n ast.Node) bool {
			if found {
				return false
			}
			switch n := n.(type) {
			case *ast.Function, *ast.ClassLike, *ast.AnonymousClass, *ast.Closure:
				return false
			case *ast.VariableVariable, *ast.Eval, *ast.Include:
				found = true
			case *ast.Call:
				if name, ok := n.Callee.(*ast.Name); ok {
					switch strings.ToLower(names.Short(name.Value)) {
					case "compact", "extract", "get_defined_vars", "func_get_args", "parse_str":
						found = true
					}
				}
			}
			return !found
		})
	}
	return found
}
