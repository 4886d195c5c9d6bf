// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"

	"github.com/magophp/mago/dataflow"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// sinkFunctions must not receive user input in any argument.
var sinkFunctions = map[string]bool{
	"system":     true,
	"exec":       true,
	"shell_exec": true,
	"passthru":   true,
	"popen":      true,
	"proc_open":  true,
	"pcntl_exec": true,
	"assert":     true,
}

// sanitizers return values that are safe to use in any sink.
var sanitizers = map[string]bool{
	"htmlspecialchars": true,
	"htmlentities":     true,
	"intval":           true,
	"floatval":         true,
	"boolval":          true,
	"escapeshellarg":   true,
	"escapeshellcmd":   true,
	"addslashes":       true,
	"urlencode":        true,
	"rawurlencode":     true,
	"strip_tags":       true,
	"md5":              true,
	"sha1":             true,
	"hash":             true,
	"count":            true,
	"strlen":           true,
}

// taintsOf returns the taint nodes the value of e may carry.  It must be
// called after e has been analyzed.
func (a *analyzer) taintsOf(e ast.Expr) []*dataflow.Node {
	if !a.settings.PerformTaintAnalysis || e == nil {
		return nil
	}
	switch e := e.(type) {
	case *ast.Parenthesized:
		return a.taintsOf(e.Expr)
	case *ast.Variable:
		return a.taintOf[e.Span().Key()]
	case *ast.ArrayAccess:
		return a.taintsOf(e.Array)
	case *ast.PropertyFetch:
		return a.taintsOf(e.Object)
	case *ast.Binary:
		switch e.Op {
		case token.Dot, token.QuestionQuestion:
			return unionNodes(a.taintsOf(e.Left), a.taintsOf(e.Right))
		}
	case *ast.InterpolatedString:
		var out []*dataflow.Node
		for _, p := range e.Parts {
			out = unionNodes(out, a.taintsOf(p))
		}
		return out
	case *ast.Ternary:
		then := e.Then
		if then == nil {
			then = e.Cond
		}
		return unionNodes(a.taintsOf(then), a.taintsOf(e.Else))
	case *ast.Assign:
		return unionNodes(a.taintsOf(e.Target), a.taintsOf(e.Value))
	case *ast.Cast:
		switch e.Kind {
		case token.IntCast, token.FloatCast, token.BoolCast:
			return nil
		}
		return a.taintsOf(e.Expr)
	case *ast.Match:
		var out []*dataflow.Node
		for _, arm := range e.Arms {
			out = unionNodes(out, a.taintsOf(arm.Body))
		}
		return out
	case *ast.ArrayLiteral:
		var out []*dataflow.Node
		for _, el := range e.Elements {
			if el != nil {
				out = unionNodes(out, a.taintsOf(el.Value))
			}
		}
		return out
	case *ast.Call:
		return a.callResultTaint(e.Span(), e.Args)
	case *ast.MethodCall:
		return a.callResultTaint(e.Span(), e.Args)
	case *ast.StaticCall:
		return a.callResultTaint(e.Span(), e.Args)
	}
	return nil
}

// callResultTaint propagates taint from the arguments of a call to its
// result, unless the callee sanitizes or cannot return a string.
func (a *analyzer) callResultTaint(span source.Span, args *ast.ArgumentList) []*dataflow.Node {
	if args == nil || args.FirstClassCallable {
		return nil
	}
	f := a.targets[span.Key()]
	if f != nil {
		if sanitizers[f.Key()] {
			return nil
		}
		if f.ReturnType != nil && !carriesText(*f.ReturnType) {
			return nil
		}
	}
	var out []*dataflow.Node
	for _, arg := range args.Args {
		out = unionNodes(out, a.taintsOf(arg.Value))
	}
	return out
}

// carriesText reports whether a value of type t may hold attacker-chosen
// text.
func carriesText(t ttype.Union) bool {
	for _, at := range t.Types {
		switch at.Kind {
		case ttype.KInt, ttype.KFloat, ttype.KBool, ttype.KTrue, ttype.KFalse,
			ttype.KNull, ttype.KVoid, ttype.KNever, ttype.KEnumCase:
			continue
		}
		return true
	}
	return false
}

// setTaint records that the variable key, assigned at span, carries taint.
func (a *analyzer) setTaint(key string, span source.Span, taint []*dataflow.Node, ctx *BlockContext) {
	if !a.settings.PerformTaintAnalysis || len(taint) == 0 {
		delete(ctx.taint, key)
		return
	}
	n := a.result.DataFlow.Add(dataflow.NewNode(dataflow.Vertex, key, span))
	for _, t := range taint {
		a.result.DataFlow.Connect(t, n, dataflow.Assignment)
	}
	ctx.taint[key] = []*dataflow.Node{n}
}

// taintSink marks e as flowing into the sink name.
func (a *analyzer) taintSink(name string, e ast.Expr) {
	if !a.settings.PerformTaintAnalysis || e == nil {
		return
	}
	taint := a.taintsOf(e)
	if len(taint) == 0 {
		return
	}
	sink := a.result.DataFlow.Add(dataflow.NewNode(dataflow.TaintSink, name, e.Span()))
	for _, t := range taint {
		a.result.DataFlow.Connect(t, sink, dataflow.Argument)
	}
}

// callTaint marks the arguments of a call to a sink function.
func (a *analyzer) callTaint(fn string, args []argument) {
	if !sinkFunctions[fn] {
		return
	}
	for _, arg := range args {
		a.taintSink(fn, arg.expr)
	}
}

// reportTaints reports every sink reached by user input, once per sink.
func (a *analyzer) reportTaints() {
	seen := make(map[string]bool)
	for _, t := range a.result.DataFlow.Taints() {
		if seen[t.Sink.ID] {
			continue
		}
		seen[t.Sink.ID] = true
		issue := a.errorf(CodeTaintedData, t.Sink.Span,
			fmt.Sprintf("User input reaches `%s` without being sanitized.", t.Sink.Name),
			"tainted value used here").
			Also(t.Source.Span, fmt.Sprintf("`%s` is read here", t.Source.Name))
		for _, n := range t.Path {
			issue.Also(n.Span, fmt.Sprintf("flows through `%s`", n.Name))
		}
		issue.WithHelp("Escape or validate the value before passing it on.")
	}
}
