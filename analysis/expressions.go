// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/dataflow"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// superglobals are always defined.  The value reports whether the variable
// carries user input.
var superglobals = map[string]bool{
	"GLOBALS":  false,
	"_ENV":     false,
	"_SESSION": false,
	"_GET":     true,
	"_POST":    true,
	"_REQUEST": true,
	"_COOKIE":  true,
	"_SERVER":  true,
	"_FILES":   true,
}

// expr computes and records the type of e.
func (a *analyzer) expr(e ast.Expr, ctx *BlockContext) ttype.Union {
	if e == nil {
		return ttype.Null()
	}
	t := a.exprType(e, ctx)
	a.record(e, t)
	if key := a.varKey(e); key != "" && !isPlainVar(key) {
		a.keyed[key] = t
	}
	return t
}

func (a *analyzer) exprType(e ast.Expr, ctx *BlockContext) ttype.Union {
	switch e := e.(type) {
	case *ast.Parenthesized:
		return a.expr(e.Expr, ctx)
	case *ast.Variable:
		return a.variable(e, ctx)
	case *ast.VariableVariable:
		a.expr(e.Expr, ctx)
		return ttype.Mixed()
	case *ast.IntLiteral:
		if e.Overflow {
			return ttype.Float()
		}
		return ttype.Single(ttype.IntLit(e.Value))
	case *ast.FloatLiteral:
		return ttype.Single(ttype.FloatLit(e.Value))
	case *ast.StringLiteral:
		return ttype.Single(ttype.StringLit(e.Value))
	case *ast.BoolLiteral:
		if e.Value {
			return ttype.True()
		}
		return ttype.False()
	case *ast.NullLiteral:
		return ttype.Null()
	case *ast.InterpolatedString:
		return a.interpolated(e, ctx)
	case *ast.MagicConst:
		return a.magicConst(e)
	case *ast.ArrayLiteral:
		return a.arrayLiteral(e.Elements, ctx)
	case *ast.List:
		return a.arrayLiteral(e.Elements, ctx)
	case *ast.ArrayAccess:
		return a.arrayAccess(e, ctx)
	case *ast.PropertyFetch:
		return a.propertyFetch(e, ctx)
	case *ast.StaticPropertyFetch:
		return a.staticPropertyFetch(e, ctx)
	case *ast.ClassConstFetch:
		return a.classConstFetch(e, ctx)
	case *ast.ConstFetch:
		return a.constFetch(e)
	case *ast.Assign:
		return a.assign(e, ctx)
	case *ast.Binary:
		return a.binary(e, ctx)
	case *ast.Unary:
		return a.unary(e, ctx)
	case *ast.Postfix:
		return a.increment(e.Operand, e.Op, true, e, ctx)
	case *ast.Cast:
		return a.cast(e, ctx)
	case *ast.Ternary:
		return a.ternary(e, ctx)
	case *ast.Instanceof:
		return a.instanceof(e, ctx)
	case *ast.Pipe:
		return a.pipe(e, ctx)
	case *ast.Call:
		return a.call(e, ctx)
	case *ast.MethodCall:
		return a.methodCall(e, ctx)
	case *ast.StaticCall:
		return a.staticCall(e, ctx)
	case *ast.New:
		return a.newExpr(e, ctx)
	case *ast.AnonymousClass:
		return ttype.Single(ttype.Named(a.anonymousClass(e, ctx)))
	case *ast.Clone:
		return a.expr(e.Expr, ctx)
	case *ast.Closure:
		return a.closure(e, ctx)
	case *ast.ArrowFunction:
		return a.arrowFunction(e, ctx)
	case *ast.Match:
		return a.match(e, ctx)
	case *ast.Isset:
		prev := ctx.InsideIsset
		ctx.InsideIsset = true
		for _, x := range e.Exprs {
			a.expr(x, ctx)
		}
		ctx.InsideIsset = prev
		return ttype.Bool()
	case *ast.Empty:
		if !a.settings.AllowEmpty {
			a.disallowed(e, "empty")
		}
		prev := ctx.InsideIsset
		ctx.InsideIsset = true
		a.expr(e.Expr, ctx)
		ctx.InsideIsset = prev
		return ttype.Bool()
	case *ast.Include:
		return a.include(e, ctx)
	case *ast.Exit:
		return a.exit(e, ctx)
	case *ast.Eval:
		if !a.settings.AllowEval {
			a.disallowed(e, "eval")
		}
		a.expr(e.Expr, ctx)
		a.taintSink("eval", e.Expr)
		return ttype.Mixed()
	case *ast.Print:
		a.expr(e.Expr, ctx)
		a.taintSink("print", e.Expr)
		return ttype.Single(ttype.IntLit(1))
	case *ast.Yield:
		a.expr(e.Key, ctx)
		a.expr(e.Value, ctx)
		return ttype.Mixed()
	case *ast.YieldFrom:
		a.expr(e.Expr, ctx)
		return ttype.Mixed()
	case *ast.Throw:
		a.expr(e.Expr, ctx)
		ctx.Actions = ctx.Actions&^ActionNone | ActionThrow
		return ttype.Never()
	}
	return ttype.Mixed()
}

func (a *analyzer) disallowed(e ast.Expr, construct string) {
	a.warnf(CodeDisallowedConstruct, e.Span(),
		fmt.Sprintf("Use of `%s` is not allowed.", construct), "disallowed construct").
		WithHelp(fmt.Sprintf("Rewrite the code without `%s`.", construct))
}

func (a *analyzer) variable(v *ast.Variable, ctx *BlockContext) ttype.Union {
	key := "$" + v.Name
	if tainted, ok := superglobals[v.Name]; ok {
		if tainted && a.settings.PerformTaintAnalysis {
			src := a.result.DataFlow.Add(dataflow.NewNode(dataflow.TaintSource, key, v.Span()))
			a.taintOf[v.Span().Key()] = []*dataflow.Node{src}
		}
		return ttype.MixedArray()
	}
	a.use(key, v.Span(), ctx)
	if nodes := ctx.taint[key]; len(nodes) > 0 {
		a.taintOf[v.Span().Key()] = nodes
	}
	t, ok := ctx.Vars[key]
	if !ok {
		if !ctx.InsideIsset && !a.fn.global {
			a.errorf(CodeUndefinedVariable, v.Span(),
				fmt.Sprintf("Variable `%s` is not defined.", key), "undefined variable")
		}
		return ttype.Mixed()
	}
	if t.PossiblyUndefined && !ctx.InsideIsset {
		if !a.fn.global {
			a.warnf(CodePossiblyUndefinedVariable, v.Span(),
				fmt.Sprintf("Variable `%s` might not be defined.", key), "possibly undefined").
				WithHelp("Initialize the variable before the branches that assign it.")
		}
		return t.Defined()
	}
	return t
}

// use records a read of the variable key.
func (a *analyzer) use(key string, span source.Span, ctx *BlockContext) {
	if !a.fn.trackUnused || !isPlainVar(key) {
		return
	}
	sink := a.fn.graph.Add(dataflow.NewNode(dataflow.UseSink, key, span))
	for _, src := range ctx.sources[key] {
		a.fn.graph.Connect(src, sink, dataflow.Flow)
	}
}

// define records an assignment to the variable key at span.
func (a *analyzer) define(key string, span source.Span, pure bool, ctx *BlockContext) {
	if !a.fn.trackUnused || !isPlainVar(key) {
		delete(ctx.sources, key)
		return
	}
	n := dataflow.NewNode(dataflow.UseSource, key, span)
	n.Pure = pure
	ctx.sources[key] = []*dataflow.Node{a.fn.graph.Add(n)}
}

func (a *analyzer) interpolated(e *ast.InterpolatedString, ctx *BlockContext) ttype.Union {
	for _, p := range e.Parts {
		if _, ok := p.(*ast.StringLiteral); ok {
			continue
		}
		a.expr(p, ctx)
	}
	if e.Kind == ast.ShellExec {
		a.taintSink("shell_exec", e)
		return ttype.Combine(ttype.StringAtomic(), ttype.FalseAtomic(), ttype.NullAtomic())
	}
	return ttype.String()
}

func (a *analyzer) magicConst(e *ast.MagicConst) ttype.Union {
	switch e.Name {
	case "__LINE__":
		return ttype.Single(ttype.IntLit(int64(a.file.LineNumber(int(e.Span().Start)))))
	case "__CLASS__":
		if name := a.className(); name != "" {
			return ttype.Single(ttype.StringLit(name))
		}
	case "__FILE__", "__DIR__":
		return ttype.Single(ttype.NonEmptyString())
	}
	return ttype.String()
}

func (a *analyzer) arrayLiteral(elems []*ast.ArrayElement, ctx *BlockContext) ttype.Union {
	var entries []ttype.Entry
	var keys, values []ttype.Union
	keyed := true
	next := int64(0)
	for _, el := range elems {
		if el == nil || el.Value == nil {
			continue
		}
		v := a.expr(el.Value, ctx)
		if el.ByRef {
			if key := a.varKey(el.Value); isPlainVar(key) {
				ctx.refs[key] = true
			}
		}
		if el.Spread {
			keyed = false
			k, val := iterationTypes(v)
			keys = append(keys, k)
			values = append(values, val)
			continue
		}
		var k ttype.Union
		var ak ttype.ArrayKey
		literal := false
		if el.Key != nil {
			k = a.expr(el.Key, ctx)
			if i, ok := k.LiteralInt(); ok {
				ak, literal = ttype.IntKey(i), true
			} else if s, ok := k.LiteralString(); ok {
				ak, literal = ttype.StringKey(s), true
			}
		} else {
			ak, literal = ttype.IntKey(next), true
			k = ttype.Single(ak.Atomic())
		}
		if !literal {
			keyed = false
		} else {
			if ak.IsInt && ak.Int >= next {
				next = ak.Int + 1
			}
			entries = setEntry(entries, ttype.Entry{Key: ak, Type: v})
		}
		keys = append(keys, k)
		values = append(values, v)
	}
	if keyed {
		return ttype.Single(ttype.Keyed(true, entries...))
	}
	arr := ttype.ArrayOf(ttype.Merge(keys...), ttype.Merge(values...))
	arr.NonEmpty = len(entries) > 0
	return ttype.Single(arr)
}

func setEntry(entries []ttype.Entry, e ttype.Entry) []ttype.Entry {
	out := append([]ttype.Entry(nil), entries...)
	for i, x := range out {
		if x.Key == e.Key {
			out[i] = e
			return out
		}
	}
	return append(out, e)
}

func (a *analyzer) include(e *ast.Include, ctx *BlockContext) ttype.Union {
	if !a.settings.AllowInclude {
		a.disallowed(e, e.Kind.String())
	}
	t := a.expr(e.Expr, ctx)
	if !ttype.CanBeContainedBy(a.cb, t, ttype.String()) && !t.IsMixed() {
		a.errorf(CodeInvalidInclude, e.Expr.Span(),
			fmt.Sprintf("Cannot include a value of type `%s`.", t), "expected a file path")
	}
	a.taintSink("include", e.Expr)
	return ttype.Mixed()
}

func (a *analyzer) exit(e *ast.Exit, ctx *BlockContext) ttype.Union {
	if e.Arg != nil {
		t := a.expr(e.Arg, ctx)
		allowed := ttype.Combine(ttype.IntAtomic(), ttype.StringAtomic(), ttype.NullAtomic())
		if !t.IsMixed() && !ttype.IsContainedBy(a.cb, t, allowed, &ttype.ComparisonResult{}) {
			a.errorf(CodeInvalidExitArgument, e.Arg.Span(),
				fmt.Sprintf("Exit status must be an int or a string, `%s` given.", t), "invalid exit status")
		}
		a.taintSink("exit", e.Arg)
	}
	ctx.Actions = ctx.Actions&^ActionNone | ActionEnd
	ctx.HasReturned = true
	return ttype.Never()
}

func (a *analyzer) ternary(e *ast.Ternary, ctx *BlockContext) ttype.Union {
	cond := a.expr(e.Cond, ctx)
	ifTrue, ifFalse := a.assertions(e.Cond)
	key := e.Cond.Span().Key()
	a.result.Artifacts.IfTrue[key] = ifTrue
	a.result.Artifacts.IfFalse[key] = ifFalse

	then := ctx.fork()
	var thenT ttype.Union
	if e.Then == nil {
		thenT = cond.Filter(func(at ttype.Atomic) bool {
			return ttype.Single(at).Truthiness() != ttype.AlwaysFalsy
		})
	} else {
		a.apply(then, ifTrue, e.Cond, false)
		thenT = a.expr(e.Then, then)
	}
	other := ctx.fork()
	a.apply(other, ifFalse, e.Cond, false)
	elseT := a.expr(e.Else, other)

	ctx.merge(then, other)
	switch cond.Truthiness() {
	case ttype.AlwaysTruthy:
		return thenT
	case ttype.AlwaysFalsy:
		return elseT
	}
	return ttype.Merge(thenT, elseT)
}

func (a *analyzer) instanceof(e *ast.Instanceof, ctx *BlockContext) ttype.Union {
	a.expr(e.Expr, ctx)
	n, ok := e.Class.(*ast.Name)
	if !ok {
		a.expr(e.Class, ctx)
		return ttype.Bool()
	}
	name := a.classRef(n)
	if !isRelative(n.Value) {
		if !a.cb.ClassExists(name) {
			a.errorf(CodeNonExistentClassLike, n.Span(),
				fmt.Sprintf("Class `%s` does not exist.", name), "unknown class")
		} else {
			a.result.References.AddSymbol(a.fn.scope, codebase.Key(name))
		}
	}
	return ttype.Bool()
}

func (a *analyzer) match(e *ast.Match, ctx *BlockContext) ttype.Union {
	subject := a.expr(e.Subject, ctx)
	matchTrue := subject.IsTrue()
	var branches []*BlockContext
	var types []ttype.Union
	hasDefault := false
	rest := ctx.fork()
	for _, arm := range e.Arms {
		b := rest.fork()
		if arm.Conditions == nil {
			hasDefault = true
		}
		for _, c := range arm.Conditions {
			if matchTrue && len(arm.Conditions) == 1 {
				t, f := a.condition(c, rest)
				b = rest.fork()
				a.apply(b, t, c, true)
				a.apply(rest, f, c, false)
				continue
			}
			a.expr(c, b)
		}
		types = append(types, a.expr(arm.Body, b))
		branches = append(branches, b)
	}
	if !hasDefault {
		// An unmatched value throws UnhandledMatchError.
		rest.Actions = ActionThrow
		branches = append(branches, rest)
	}
	ctx.merge(branches...)
	if len(types) == 0 {
		return ttype.Never()
	}
	return ttype.Merge(types...)
}
