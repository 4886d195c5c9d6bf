// Copyright © 2024 The Mago authors

package analysis

import (
	"fmt"
	"math"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
	"github.com/magophp/mago/ttype"
)

// compoundOps maps compound assignment operators to their binary operator.
var compoundOps = map[token.Kind]token.Kind{
	token.PlusEqual:       token.Plus,
	token.MinusEqual:      token.Minus,
	token.AsteriskEqual:   token.Asterisk,
	token.SlashEqual:      token.Slash,
	token.DotEqual:        token.Dot,
	token.PercentEqual:    token.Percent,
	token.PowEqual:        token.Pow,
	token.AmpersandEqual:  token.Ampersand,
	token.PipeEqual:       token.Pipe,
	token.CaretEqual:      token.Caret,
	token.LeftShiftEqual:  token.LeftShift,
	token.RightShiftEqual: token.RightShift,
}

func (a *analyzer) binary(e *ast.Binary, ctx *BlockContext) ttype.Union {
	switch e.Op {
	case token.AmpersandAmpersand, token.And, token.PipePipe, token.Or:
		return a.logical(e, ctx)
	case token.QuestionQuestion:
		prev := ctx.InsideIsset
		ctx.InsideIsset = true
		left := a.expr(e.Left, ctx)
		ctx.InsideIsset = prev
		right := ctx.fork()
		rt := a.expr(e.Right, right)
		ctx.mergeConditional(right)
		if left.IsMixed() {
			return ttype.Mixed()
		}
		nonNull := left.WithoutNull().Defined()
		if !left.IsNullable() && !left.PossiblyUndefined && !nonNull.IsNever() {
			return nonNull
		}
		return ttype.Merge(nonNull, rt)
	}
	left := a.expr(e.Left, ctx)
	right := a.expr(e.Right, ctx)
	return a.binaryType(e.Op, left, right, e.Span(), e)
}

// logical analyzes && and ||.  The right operand only runs when the left
// one did not decide the result, so it is analyzed in a narrowed fork.
func (a *analyzer) logical(e *ast.Binary, ctx *BlockContext) ttype.Union {
	left := a.expr(e.Left, ctx)
	lt, lf := a.assertions(e.Left)
	right := ctx.fork()
	and := e.Op == token.AmpersandAmpersand || e.Op == token.And
	if and {
		a.apply(right, lt, e.Left, false)
	} else {
		a.apply(right, lf, e.Left, false)
	}
	rt := a.expr(e.Right, right)
	ctx.mergeConditional(right)

	lk, rk := left.Truthiness(), rt.Truthiness()
	switch {
	case and && (lk == ttype.AlwaysFalsy || rk == ttype.AlwaysFalsy):
		return ttype.False()
	case and && lk == ttype.AlwaysTruthy && rk == ttype.AlwaysTruthy:
		return ttype.True()
	case !and && (lk == ttype.AlwaysTruthy || rk == ttype.AlwaysTruthy):
		return ttype.True()
	case !and && lk == ttype.AlwaysFalsy && rk == ttype.AlwaysFalsy:
		return ttype.False()
	}
	return ttype.Bool()
}

// binaryType computes the result of op applied to operands of type l and
// r.  node is the expression reported for invalid operands.
func (a *analyzer) binaryType(op token.Kind, l, r ttype.Union, span source.Span, node ast.Node) ttype.Union {
	switch op {
	case token.Dot:
		if ls, ok := l.LiteralString(); ok {
			if rs, ok := r.LiteralString(); ok {
				return ttype.Single(ttype.StringLit(ls + rs))
			}
		}
		return ttype.String()
	case token.EqualEqual, token.BangEqual, token.LessGreater, token.Less, token.Greater,
		token.LessEqual, token.GreaterEqual, token.Xor:
		return ttype.Bool()
	case token.EqualEqualEqual, token.BangEqualEqual:
		return a.identityType(op, l, r)
	case token.Spaceship:
		lo, hi := int64(-1), int64(1)
		return ttype.Single(ttype.IntRange(&lo, &hi))
	case token.Plus, token.Minus, token.Asterisk, token.Slash, token.Percent, token.Pow:
		return a.arithmetic(op, l, r, span)
	case token.Ampersand, token.Pipe, token.Caret, token.LeftShift, token.RightShift:
		a.checkOperands(op, l, r, span, false)
		if li, ok := l.LiteralInt(); ok {
			if ri, ok := r.LiteralInt(); ok {
				if v, ok := bitwise(op, li, ri); ok {
					return ttype.Single(ttype.IntLit(v))
				}
			}
		}
		if l.IsString() && r.IsString() && op != token.LeftShift && op != token.RightShift {
			return ttype.String()
		}
		return ttype.Int()
	}
	return ttype.Mixed()
}

func (a *analyzer) identityType(op token.Kind, l, r ttype.Union) ttype.Union {
	if l.IsSingle() && r.IsSingle() && l.Types[0].IsLiteral() && r.Types[0].IsLiteral() {
		same := ttype.Equal(l, r)
		if op == token.BangEqualEqual {
			same = !same
		}
		if same {
			return ttype.True()
		}
		return ttype.False()
	}
	return ttype.Bool()
}

// checkOperands reports arrays and objects used as arithmetic operands.
// Arrays are allowed for + when both sides are arrays.
func (a *analyzer) checkOperands(op token.Kind, l, r ttype.Union, span source.Span, arrayUnion bool) bool {
	ok := true
	for _, side := range []ttype.Union{l, r} {
		for _, at := range side.Types {
			switch {
			case at.IsArray() && arrayUnion:
			case at.IsArray(), at.Kind == ttype.KNamed, at.Kind == ttype.KObject, at.Kind == ttype.KEnumCase,
				at.Kind == ttype.KClosure:
				a.errorf(CodeInvalidOperand, span,
					fmt.Sprintf("Cannot use a value of type `%s` as an operand of `%s`.", ttype.Single(at), op),
					"invalid operand")
				ok = false
			}
			if !ok {
				return false
			}
		}
	}
	return ok
}

func (a *analyzer) arithmetic(op token.Kind, l, r ttype.Union, span source.Span) ttype.Union {
	if op == token.Plus && l.IsArray() && r.IsArray() {
		return ttype.Merge(l, r)
	}
	if !a.checkOperands(op, l, r, span, false) {
		return ttype.Mixed()
	}
	if li, ok := l.LiteralInt(); ok {
		if ri, ok := r.LiteralInt(); ok {
			if t, ok := foldInt(op, li, ri); ok {
				return t
			}
		}
	}
	switch {
	case op == token.Percent:
		return ttype.Int()
	case onlyInts(l) && onlyInts(r):
		if op == token.Slash {
			return ttype.IntOrFloat()
		}
		return ttype.Int()
	case onlyNumbers(l) && onlyNumbers(r) && (onlyFloats(l) || onlyFloats(r)):
		return ttype.Float()
	}
	return ttype.IntOrFloat()
}

func onlyInts(u ttype.Union) bool {
	return !u.IsNever() && u.Only(ttype.KInt)
}

func onlyFloats(u ttype.Union) bool {
	return !u.IsNever() && u.Only(ttype.KFloat)
}

func onlyNumbers(u ttype.Union) bool {
	return !u.IsNever() && u.Only(ttype.KInt, ttype.KFloat)
}

// foldInt evaluates arithmetic on two int literals.  Results that
// overflow become floats.
func foldInt(op token.Kind, l, r int64) (ttype.Union, bool) {
	switch op {
	case token.Plus:
		s := l + r
		if (s > l) == (r > 0) {
			return ttype.Single(ttype.IntLit(s)), true
		}
		return ttype.Single(ttype.FloatLit(float64(l) + float64(r))), true
	case token.Minus:
		d := l - r
		if (d < l) == (r > 0) {
			return ttype.Single(ttype.IntLit(d)), true
		}
		return ttype.Single(ttype.FloatLit(float64(l) - float64(r))), true
	case token.Asterisk:
		if l == 0 || r == 0 {
			return ttype.Single(ttype.IntLit(0)), true
		}
		p := l * r
		if p/r == l && !(l == -1 && r == math.MinInt64) && !(r == -1 && l == math.MinInt64) {
			return ttype.Single(ttype.IntLit(p)), true
		}
		return ttype.Single(ttype.FloatLit(float64(l) * float64(r))), true
	case token.Slash:
		if r == 0 {
			return ttype.Union{}, false
		}
		if l%r == 0 {
			return ttype.Single(ttype.IntLit(l / r)), true
		}
		return ttype.Single(ttype.FloatLit(float64(l) / float64(r))), true
	case token.Percent:
		if r == 0 {
			return ttype.Union{}, false
		}
		return ttype.Single(ttype.IntLit(l % r)), true
	}
	return ttype.Union{}, false
}

func bitwise(op token.Kind, l, r int64) (int64, bool) {
	switch op {
	case token.Ampersand:
		return l & r, true
	case token.Pipe:
		return l | r, true
	case token.Caret:
		return l ^ r, true
	case token.LeftShift:
		if r < 0 || r > 63 {
			return 0, false
		}
		return l << uint(r), true
	case token.RightShift:
		if r < 0 || r > 63 {
			return 0, false
		}
		return l >> uint(r), true
	}
	return 0, false
}

func (a *analyzer) unary(e *ast.Unary, ctx *BlockContext) ttype.Union {
	switch e.Op {
	case token.PlusPlus, token.MinusMinus:
		return a.increment(e.Operand, e.Op, false, e, ctx)
	}
	t := a.expr(e.Operand, ctx)
	switch e.Op {
	case token.Bang:
		switch t.Truthiness() {
		case ttype.AlwaysTruthy:
			return ttype.False()
		case ttype.AlwaysFalsy:
			return ttype.True()
		}
		return ttype.Bool()
	case token.Minus:
		if v, ok := t.LiteralInt(); ok && v != math.MinInt64 {
			return ttype.Single(ttype.IntLit(-v))
		}
		if t.IsSingle() && t.Types[0].Kind == ttype.KFloat && t.Types[0].Literal {
			return ttype.Single(ttype.FloatLit(-t.Types[0].Float))
		}
		return a.arithmetic(token.Minus, ttype.Single(ttype.IntLit(0)), t, e.Span())
	case token.Plus:
		return a.arithmetic(token.Plus, ttype.Single(ttype.IntLit(0)), t, e.Span())
	case token.Tilde:
		if v, ok := t.LiteralInt(); ok {
			return ttype.Single(ttype.IntLit(^v))
		}
		return ttype.Int()
	case token.At:
		return t
	}
	return ttype.Mixed()
}

// increment analyzes ++ and --.  The variable is read and then written.
func (a *analyzer) increment(operand ast.Expr, op token.Kind, postfix bool, node ast.Expr, ctx *BlockContext) ttype.Union {
	cur := a.expr(operand, ctx)
	var next ttype.Union
	switch {
	case cur.IsNullable() && cur.IsSingle():
		if op == token.PlusPlus {
			next = ttype.Single(ttype.IntLit(1))
		} else {
			next = ttype.Null()
		}
	case onlyInts(cur):
		if v, ok := cur.LiteralInt(); ok {
			delta := int64(1)
			if op == token.MinusMinus {
				delta = -1
			}
			next, _ = foldInt(token.Plus, v, delta)
		} else {
			next = ttype.Int()
		}
	case onlyNumbers(cur):
		next = cur
	case cur.IsString():
		next = ttype.String()
	default:
		next = ttype.Mixed()
	}
	a.assignTo(operand, next, node.Span(), modeAssign, true, a.taintsOf(operand), ctx)
	if postfix {
		return cur
	}
	return next
}

func (a *analyzer) cast(e *ast.Cast, ctx *BlockContext) ttype.Union {
	t := a.expr(e.Expr, ctx)
	switch e.Kind {
	case token.IntCast:
		if v, ok := t.LiteralInt(); ok {
			return ttype.Single(ttype.IntLit(v))
		}
		return ttype.Int()
	case token.FloatCast:
		return ttype.Float()
	case token.StringCast:
		if t.IsString() {
			return t
		}
		return ttype.String()
	case token.BoolCast:
		switch t.Truthiness() {
		case ttype.AlwaysTruthy:
			return ttype.True()
		case ttype.AlwaysFalsy:
			return ttype.False()
		}
		return ttype.Bool()
	case token.ArrayCast:
		if t.IsArray() {
			return t
		}
		return ttype.MixedArray()
	case token.ObjectCast:
		if t.HasObject() && !t.IsNullable() {
			return t
		}
		return ttype.Single(ttype.Named("stdClass"))
	case token.UnsetCast:
		return ttype.Null()
	}
	return ttype.Mixed()
}
