// Copyright © 2024 The Mago authors

// Package astutil provides shared syntax tree walking utilities.
//
// These helpers are used by both the lint and analysis packages.  Nodes do
// not point at their parents, so walkers here keep an explicit stack of
// enclosing nodes and hand it to the callback.
package astutil

import (
	"strings"

	"github.com/magophp/mago/parser/ast"
)

// Walk calls fn for every node in the tree, depth-first.  parents holds the
// enclosing nodes, outermost first; it is empty for the program itself.
// The slice is reused between calls and must not be retained.
func Walk(root ast.Node, fn func(node ast.Node, parents []ast.Node)) {
	ast.Walk(&stackVisitor{fn: fn}, root)
}

type stackVisitor struct {
	fn    func(ast.Node, []ast.Node)
	stack []ast.Node
}

func (v *stackVisitor) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		v.stack = v.stack[:len(v.stack)-1]
		return nil
	}
	v.fn(node, v.stack)
	v.stack = append(v.stack, node)
	return v
}

// Depth returns the number of function-like nodes in parents.
func Depth(parents []ast.Node) int {
	n := 0
	for _, p := range parents {
		if _, ok := AsFunctionLike(p); ok {
			n++
		}
	}
	return n
}

// Unparen strips any number of enclosing parentheses from e.
func Unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.Parenthesized)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

// CallName returns the lowercase unqualified name of the function called by
// c, or "" when the callee is not a plain name.
func CallName(c *ast.Call) string {
	n, ok := c.Callee.(*ast.Name)
	if !ok {
		return ""
	}
	v := n.Value
	if i := strings.LastIndexByte(v, '\\'); i >= 0 {
		v = v[i+1:]
	}
	return strings.ToLower(v)
}

// ArgCount returns the number of arguments passed by c.  First-class
// callable syntax counts as zero.
func ArgCount(c *ast.Call) int {
	if c.Args == nil || c.Args.FirstClassCallable {
		return 0
	}
	return len(c.Args.Args)
}

// FunctionLike is the common shape of functions, methods, closures, and
// arrow functions.
type FunctionLike struct {
	Node ast.Node
	// Name is empty for closures and arrow functions.
	Name       *ast.Ident
	Params     *ast.ParameterList
	ReturnType ast.Hint
	Method     bool
}

// AsFunctionLike reports whether n declares a function-like and returns its
// common shape.
func AsFunctionLike(n ast.Node) (FunctionLike, bool) {
	switch n := n.(type) {
	case *ast.Function:
		return FunctionLike{Node: n, Name: n.Name, Params: n.Params, ReturnType: n.ReturnType}, true
	case *ast.Method:
		return FunctionLike{Node: n, Name: n.Name, Params: n.Params, ReturnType: n.ReturnType, Method: true}, true
	case *ast.Closure:
		return FunctionLike{Node: n, Params: n.Params, ReturnType: n.ReturnType}, true
	case *ast.ArrowFunction:
		return FunctionLike{Node: n, Params: n.Params, ReturnType: n.ReturnType}, true
	}
	return FunctionLike{}, false
}

// ParamCount returns the number of declared parameters.
func (f FunctionLike) ParamCount() int {
	if f.Params == nil {
		return 0
	}
	return len(f.Params.Params)
}

// FunctionLikes returns every function-like declared under root, in source
// order.
func FunctionLikes(root ast.Node) []FunctionLike {
	var out []FunctionLike
	ast.Inspect(root, func(n ast.Node) bool {
		if f, ok := AsFunctionLike(n); ok {
			out = append(out, f)
		}
		return true
	})
	return out
}

// EnclosingClass returns the innermost class-like in parents, if any.
func EnclosingClass(parents []ast.Node) (*ast.ClassLike, bool) {
	for i := len(parents) - 1; i >= 0; i-- {
		if c, ok := parents[i].(*ast.ClassLike); ok {
			return c, true
		}
	}
	return nil, false
}
