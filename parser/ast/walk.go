// Copyright © 2024 The Mago authors

package ast

import "fmt"

// A Visitor's Visit method is invoked for each node encountered by Walk.  If
// the result visitor w is not nil, Walk visits each of the children of node
// with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses a syntax tree in depth-first order.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	switch n := node.(type) {
	case *Program:
		walkStmts(v, n.Statements)

	// Names, hints, and shared pieces
	case *Name, *Ident, *Modifier:
	case *AttributeList:
		for _, a := range n.Attributes {
			Walk(v, a)
		}
	case *Attribute:
		Walk(v, n.Name)
		walkArgs(v, n.Args)
	case *NamedHint:
		Walk(v, n.Name)
	case *NullableHint:
		Walk(v, n.Inner)
	case *UnionHint:
		for _, h := range n.Types {
			Walk(v, h)
		}
	case *IntersectionHint:
		for _, h := range n.Types {
			Walk(v, h)
		}
	case *ArgumentList:
		for _, a := range n.Args {
			Walk(v, a)
		}
	case *Argument:
		if n.Name != nil {
			Walk(v, n.Name)
		}
		Walk(v, n.Value)
	case *ParameterList:
		for _, p := range n.Params {
			Walk(v, p)
		}
	case *Parameter:
		walkAttrs(v, n.Attributes)
		walkHint(v, n.Type)
		Walk(v, n.Var)
		walkExpr(v, n.Default)

	// Expressions
	case *Variable, *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral,
		*NullLiteral, *MagicConst:
	case *VariableVariable:
		Walk(v, n.Expr)
	case *InterpolatedString:
		walkExprs(v, n.Parts)
	case *ArrayLiteral:
		walkElements(v, n.Elements)
	case *List:
		walkElements(v, n.Elements)
	case *ArrayElement:
		walkExpr(v, n.Key)
		walkExpr(v, n.Value)
	case *ArrayAccess:
		Walk(v, n.Array)
		walkExpr(v, n.Index)
	case *PropertyFetch:
		Walk(v, n.Object)
		Walk(v, n.Property)
	case *StaticPropertyFetch:
		Walk(v, n.Class)
		Walk(v, n.Property)
	case *ClassConstFetch:
		Walk(v, n.Class)
		Walk(v, n.Constant)
	case *ConstFetch:
		Walk(v, n.Name)
	case *Assign:
		Walk(v, n.Target)
		Walk(v, n.Value)
	case *Binary:
		Walk(v, n.Left)
		Walk(v, n.Right)
	case *Unary:
		Walk(v, n.Operand)
	case *Postfix:
		Walk(v, n.Operand)
	case *Cast:
		Walk(v, n.Expr)
	case *Ternary:
		Walk(v, n.Cond)
		walkExpr(v, n.Then)
		Walk(v, n.Else)
	case *Instanceof:
		Walk(v, n.Expr)
		Walk(v, n.Class)
	case *Pipe:
		Walk(v, n.Input)
		Walk(v, n.Callable)
	case *Call:
		Walk(v, n.Callee)
		walkArgs(v, n.Args)
	case *MethodCall:
		Walk(v, n.Object)
		Walk(v, n.Method)
		walkArgs(v, n.Args)
	case *StaticCall:
		Walk(v, n.Class)
		Walk(v, n.Method)
		walkArgs(v, n.Args)
	case *New:
		Walk(v, n.Class)
		walkArgs(v, n.Args)
	case *AnonymousClass:
		walkAttrs(v, n.Attributes)
		walkArgs(v, n.Args)
		if n.Extends != nil {
			Walk(v, n.Extends)
		}
		for _, i := range n.Implements {
			Walk(v, i)
		}
		walkMembers(v, n.Members)
	case *Clone:
		Walk(v, n.Expr)
	case *ClosureUse:
		Walk(v, n.Var)
	case *Closure:
		walkAttrs(v, n.Attributes)
		Walk(v, n.Params)
		for _, u := range n.Uses {
			Walk(v, u)
		}
		walkHint(v, n.ReturnType)
		Walk(v, n.Body)
	case *ArrowFunction:
		walkAttrs(v, n.Attributes)
		Walk(v, n.Params)
		walkHint(v, n.ReturnType)
		Walk(v, n.Body)
	case *Match:
		Walk(v, n.Subject)
		for _, a := range n.Arms {
			Walk(v, a)
		}
	case *MatchArm:
		walkExprs(v, n.Conditions)
		Walk(v, n.Body)
	case *Isset:
		walkExprs(v, n.Exprs)
	case *Empty:
		Walk(v, n.Expr)
	case *Include:
		Walk(v, n.Expr)
	case *Exit:
		walkExpr(v, n.Arg)
	case *Eval:
		Walk(v, n.Expr)
	case *Print:
		Walk(v, n.Expr)
	case *Yield:
		walkExpr(v, n.Key)
		walkExpr(v, n.Value)
	case *YieldFrom:
		Walk(v, n.Expr)
	case *Throw:
		Walk(v, n.Expr)
	case *Parenthesized:
		Walk(v, n.Expr)

	// Statements
	case *Tag, *InlineHTML, *Noop, *HaltCompiler:
	case *ExprStmt:
		Walk(v, n.Expr)
	case *Echo:
		walkExprs(v, n.Values)
	case *Block:
		walkStmts(v, n.Statements)
	case *If:
		Walk(v, n.Cond)
		Walk(v, n.Then)
		for _, e := range n.ElseIfs {
			Walk(v, e)
		}
		walkStmt(v, n.Else)
	case *ElseIf:
		Walk(v, n.Cond)
		Walk(v, n.Body)
	case *While:
		Walk(v, n.Cond)
		Walk(v, n.Body)
	case *DoWhile:
		Walk(v, n.Body)
		Walk(v, n.Cond)
	case *For:
		walkExprs(v, n.Init)
		walkExprs(v, n.Cond)
		walkExprs(v, n.Step)
		Walk(v, n.Body)
	case *Foreach:
		Walk(v, n.Expr)
		walkExpr(v, n.Key)
		Walk(v, n.Value)
		Walk(v, n.Body)
	case *Switch:
		Walk(v, n.Subject)
		for _, c := range n.Cases {
			Walk(v, c)
		}
	case *SwitchCase:
		walkExpr(v, n.Cond)
		walkStmts(v, n.Body)
	case *Break:
		walkExpr(v, n.Level)
	case *Continue:
		walkExpr(v, n.Level)
	case *Return:
		walkExpr(v, n.Value)
	case *Try:
		Walk(v, n.Body)
		for _, c := range n.Catches {
			Walk(v, c)
		}
		if n.Finally != nil {
			Walk(v, n.Finally)
		}
	case *Catch:
		for _, t := range n.Types {
			Walk(v, t)
		}
		if n.Var != nil {
			Walk(v, n.Var)
		}
		Walk(v, n.Body)
	case *Global:
		for _, g := range n.Vars {
			Walk(v, g)
		}
	case *Static:
		for _, s := range n.Vars {
			Walk(v, s)
		}
	case *StaticVar:
		Walk(v, n.Var)
		walkExpr(v, n.Default)
	case *Unset:
		walkExprs(v, n.Exprs)
	case *Function:
		walkAttrs(v, n.Attributes)
		Walk(v, n.Name)
		Walk(v, n.Params)
		walkHint(v, n.ReturnType)
		Walk(v, n.Body)
	case *Const:
		for _, i := range n.Items {
			Walk(v, i)
		}
	case *ConstItem:
		Walk(v, n.Name)
		Walk(v, n.Value)
	case *Namespace:
		if n.Name != nil {
			Walk(v, n.Name)
		}
		walkStmts(v, n.Statements)
	case *Use:
		for _, i := range n.Items {
			Walk(v, i)
		}
	case *UseItem:
		Walk(v, n.Name)
		if n.Alias != nil {
			Walk(v, n.Alias)
		}
	case *Declare:
		for _, i := range n.Items {
			Walk(v, i)
		}
		walkStmt(v, n.Body)
	case *Goto:
		Walk(v, n.Label)
	case *Label:
		Walk(v, n.Name)

	// Class-likes
	case *ClassLike:
		walkAttrs(v, n.Attributes)
		Walk(v, n.Name)
		for _, e := range n.Extends {
			Walk(v, e)
		}
		for _, i := range n.Implements {
			Walk(v, i)
		}
		walkHint(v, n.BackingType)
		walkMembers(v, n.Members)
	case *ClassConst:
		walkAttrs(v, n.Attributes)
		walkHint(v, n.Type)
		for _, i := range n.Items {
			Walk(v, i)
		}
	case *Property:
		walkAttrs(v, n.Attributes)
		walkHint(v, n.Type)
		for _, i := range n.Items {
			Walk(v, i)
		}
	case *PropertyItem:
		Walk(v, n.Var)
		walkExpr(v, n.Default)
	case *Method:
		walkAttrs(v, n.Attributes)
		Walk(v, n.Name)
		Walk(v, n.Params)
		walkHint(v, n.ReturnType)
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *TraitUse:
		for _, t := range n.Traits {
			Walk(v, t)
		}
		for _, a := range n.Adaptations {
			Walk(v, a)
		}
	case *TraitAdaptation:
		if n.Trait != nil {
			Walk(v, n.Trait)
		}
		Walk(v, n.Method)
		for _, i := range n.Insteadof {
			Walk(v, i)
		}
		if n.Alias != nil {
			Walk(v, n.Alias)
		}
	case *EnumCase:
		walkAttrs(v, n.Attributes)
		Walk(v, n.Name)
		walkExpr(v, n.Value)

	default:
		panic(fmt.Sprintf("ast.Walk: unexpected node type %T", n))
	}
	v.Visit(nil)
}

func walkExpr(v Visitor, e Expr) {
	if e != nil {
		Walk(v, e)
	}
}

func walkStmt(v Visitor, s Stmt) {
	if s != nil {
		Walk(v, s)
	}
}

func walkHint(v Visitor, h Hint) {
	if h != nil {
		Walk(v, h)
	}
}

func walkExprs(v Visitor, list []Expr) {
	for _, e := range list {
		walkExpr(v, e)
	}
}

func walkStmts(v Visitor, list []Stmt) {
	for _, s := range list {
		walkStmt(v, s)
	}
}

func walkArgs(v Visitor, args *ArgumentList) {
	if args != nil {
		Walk(v, args)
	}
}

func walkAttrs(v Visitor, attrs []*AttributeList) {
	for _, a := range attrs {
		Walk(v, a)
	}
}

func walkElements(v Visitor, elems []*ArrayElement) {
	for _, e := range elems {
		if e != nil {
			Walk(v, e)
		}
	}
}

func walkMembers(v Visitor, members []Member) {
	for _, m := range members {
		Walk(v, m)
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if node != nil && f(node) {
		return f
	}
	return nil
}

// Inspect traverses a syntax tree in depth-first order, calling f for each
// node.  Children are skipped when f returns false.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}
