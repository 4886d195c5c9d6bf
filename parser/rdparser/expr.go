// Copyright © 2024 The Mago authors

package rdparser

import (
	"strconv"
	"strings"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

// Binding powers, lowest first.
const (
	precLowest = iota
	precOr
	precXor
	precAnd
	precAssign
	precTernary
	precCoalesce
	precBoolOr
	precBoolAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precComparison
	precPipe
	precConcat
	precShift
	precAdditive
	precMultiplicative
	precInstanceof
	precNot
	precUnary
	precPow
	precNew
)

func infixPrec(kind token.Kind) (prec int, rightAssoc bool) {
	switch kind {
	case token.Or:
		return precOr, false
	case token.Xor:
		return precXor, false
	case token.And:
		return precAnd, false
	case token.Question:
		return precTernary, false
	case token.QuestionQuestion:
		return precCoalesce, true
	case token.PipePipe:
		return precBoolOr, false
	case token.AmpersandAmpersand:
		return precBoolAnd, false
	case token.Pipe:
		return precBitOr, false
	case token.Caret:
		return precBitXor, false
	case token.Ampersand:
		return precBitAnd, false
	case token.EqualEqual, token.BangEqual, token.EqualEqualEqual, token.BangEqualEqual,
		token.LessGreater, token.Spaceship:
		return precEquality, false
	case token.Less, token.LessEqual, token.Greater, token.GreaterEqual:
		return precComparison, false
	case token.PipeGreater:
		return precPipe, false
	case token.Dot:
		return precConcat, false
	case token.LeftShift, token.RightShift:
		return precShift, false
	case token.Plus, token.Minus:
		return precAdditive, false
	case token.Asterisk, token.Slash, token.Percent:
		return precMultiplicative, false
	case token.Instanceof:
		return precInstanceof, false
	case token.Pow:
		return precPow, true
	}
	return 0, false
}

// isAssignable reports whether e may appear on the left of an assignment.
func isAssignable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Variable, *ast.VariableVariable, *ast.ArrayAccess, *ast.PropertyFetch,
		*ast.StaticPropertyFetch, *ast.List, *ast.ArrayLiteral:
		return true
	}
	return false
}

func join(a, b ast.Node) source.Span {
	return a.Span().Join(b.Span())
}

// parseExpr parses a complete expression.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseExprPrec(precOr)
}

func (p *Parser) parseExprPrec(min int) ast.Expr {
	left := p.parseUnary()
	for {
		tok := p.peek()
		if tok.Kind.IsAssignment() && isAssignable(left) {
			p.next()
			assign := &ast.Assign{Op: tok.Kind, Target: left}
			if tok.Kind == token.Equal {
				_, assign.ByRef = p.accept(token.Ampersand)
			}
			assign.Value = p.parseExprPrec(precAssign)
			assign.Range = join(left, assign.Value)
			left = assign
			continue
		}
		prec, right := infixPrec(tok.Kind)
		if prec == 0 || prec < min {
			return left
		}
		p.next()
		switch tok.Kind {
		case token.Question:
			t := &ast.Ternary{Cond: left}
			if _, ok := p.accept(token.Colon); !ok {
				t.Then = p.parseExpr()
				p.expect(token.Colon)
			}
			t.Else = p.parseExprPrec(precTernary + 1)
			t.Range = join(left, t.Else)
			left = t
			continue
		case token.Instanceof:
			class := p.parseClassReference()
			left = &ast.Instanceof{Loc: ast.At(join(left, class)), Expr: left, Class: class}
			continue
		}
		next := prec + 1
		if right {
			next = prec
		}
		rhs := p.parseExprPrec(next)
		if tok.Kind == token.PipeGreater {
			left = &ast.Pipe{Loc: ast.At(join(left, rhs)), Input: left, Callable: rhs}
			continue
		}
		left = &ast.Binary{Loc: ast.At(join(left, rhs)), Op: tok.Kind, OpSpan: tok.Span, Left: left, Right: rhs}
	}
}

// parseClassReference parses the class operand of new or instanceof.
func (p *Parser) parseClassReference() ast.Expr {
	switch p.peekKind() {
	case token.Identifier, token.QualifiedIdentifier, token.FullyQualifiedIdentifier, token.Static:
		return p.parseName()
	case token.LeftParen:
		start := p.next()
		e := p.parseExpr()
		p.expect(token.RightParen)
		return &ast.Parenthesized{Loc: ast.At(p.from(start.Span)), Expr: e}
	}
	var e ast.Expr
	if p.peekKind() == token.Dollar {
		e = p.parseVariableVariable()
	} else {
		e = variable(p.expect(token.Variable))
	}
	return p.parsePostfix(e, false)
}

func (p *Parser) parseUnary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.Bang:
		p.next()
		operand := p.parseExprPrec(precNot)
		return &ast.Unary{Loc: ast.At(p.from(tok.Span)), Op: tok.Kind, Operand: operand}
	case token.Minus, token.Plus, token.Tilde, token.At, token.PlusPlus, token.MinusMinus:
		p.next()
		operand := p.parseExprPrec(precUnary)
		return &ast.Unary{Loc: ast.At(p.from(tok.Span)), Op: tok.Kind, Operand: operand}
	case token.IntCast, token.FloatCast, token.StringCast, token.BoolCast,
		token.ArrayCast, token.ObjectCast, token.UnsetCast:
		p.next()
		operand := p.parseExprPrec(precUnary)
		return &ast.Cast{Loc: ast.At(p.from(tok.Span)), Kind: tok.Kind, Expr: operand}
	case token.New:
		return p.parseNew()
	case token.Clone:
		p.next()
		operand := p.parseExprPrec(precNew)
		return &ast.Clone{Loc: ast.At(p.from(tok.Span)), Expr: operand}
	case token.Print:
		p.next()
		operand := p.parseExprPrec(precAssign)
		return &ast.Print{Loc: ast.At(p.from(tok.Span)), Expr: operand}
	case token.Yield:
		return p.parseYield()
	case token.Throw:
		p.next()
		operand := p.parseExpr()
		return &ast.Throw{Loc: ast.At(p.from(tok.Span)), Expr: operand}
	case token.Include, token.IncludeOnce, token.Require, token.RequireOnce:
		p.next()
		operand := p.parseExprPrec(precAssign)
		return &ast.Include{Loc: ast.At(p.from(tok.Span)), Kind: tok.Kind, Expr: operand}
	}
	return p.parsePostfix(p.parsePrimary(), true)
}

func (p *Parser) parseYield() ast.Expr {
	tok := p.next()
	switch p.peekKind() {
	case token.Semicolon, token.RightParen, token.Comma, token.RightBracket, token.CloseTag, token.EOF:
		return &ast.Yield{Loc: ast.At(tok.Span)}
	}
	if from := p.peek(); from.Kind == token.Identifier && strings.EqualFold(from.Value, "from") {
		p.next()
		operand := p.parseExprPrec(precAssign)
		return &ast.YieldFrom{Loc: ast.At(p.from(tok.Span)), Expr: operand}
	}
	y := &ast.Yield{Value: p.parseExprPrec(precAssign)}
	if _, ok := p.accept(token.DoubleArrow); ok {
		y.Key = y.Value
		y.Value = p.parseExprPrec(precAssign)
	}
	y.Range = p.from(tok.Span)
	return y
}

func (p *Parser) parseVariableVariable() ast.Expr {
	start := p.expect(token.Dollar)
	var inner ast.Expr
	switch p.peekKind() {
	case token.LeftBrace:
		p.next()
		inner = p.parseExpr()
		p.expect(token.RightBrace)
	case token.Dollar:
		inner = p.parseVariableVariable()
	default:
		inner = variable(p.expect(token.Variable))
	}
	return &ast.VariableVariable{Loc: ast.At(p.from(start.Span)), Expr: inner}
}

func isTrueFalseNull(name *ast.Name) bool {
	if name.Kind != ast.Unqualified && name.Kind != ast.FullyQualified {
		return false
	}
	switch strings.ToLower(name.Value) {
	case "true", "false", "null":
		return true
	}
	return false
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.Variable:
		p.next()
		return variable(tok)
	case token.Dollar:
		return p.parseVariableVariable()
	case token.LiteralInteger:
		p.next()
		return parseInt(tok)
	case token.LiteralFloat:
		p.next()
		v, _ := strconv.ParseFloat(strings.ReplaceAll(tok.Value, "_", ""), 64)
		return &ast.FloatLiteral{Loc: ast.At(tok.Span), Raw: tok.Value, Value: v}
	case token.LiteralString:
		p.next()
		return &ast.StringLiteral{Loc: ast.At(tok.Span), Raw: tok.Value, Value: unquote(tok.Value)}
	case token.DoubleQuote:
		p.next()
		return p.parseInterpolated(tok, ast.DoubleQuoted, token.DoubleQuote)
	case token.Backtick:
		p.next()
		return p.parseInterpolated(tok, ast.ShellExec, token.Backtick)
	case token.DocumentStart:
		p.next()
		return p.parseInterpolated(tok, ast.Heredoc, token.DocumentEnd)
	case token.MagicConstant:
		p.next()
		return &ast.MagicConst{Loc: ast.At(tok.Span), Name: strings.ToUpper(tok.Value)}
	case token.LeftBracket:
		return p.parseArrayLiteral(true)
	case token.Array:
		if p.peekN(1).Kind == token.LeftParen {
			return p.parseArrayLiteral(false)
		}
	case token.List:
		return p.parseList()
	case token.LeftParen:
		p.next()
		e := p.parseExpr()
		p.expect(token.RightParen)
		return &ast.Parenthesized{Loc: ast.At(p.from(tok.Span)), Expr: e}
	case token.Isset:
		p.next()
		p.expect(token.LeftParen)
		isset := &ast.Isset{}
		for p.peekKind() != token.RightParen {
			isset.Exprs = append(isset.Exprs, p.parseExpr())
			comma, ok := p.accept(token.Comma)
			if !ok {
				break
			}
			isset.Separators = append(isset.Separators, comma.Span)
		}
		p.expect(token.RightParen)
		isset.Range = p.from(tok.Span)
		return isset
	case token.Empty:
		p.next()
		e := p.parseParenExpr()
		return &ast.Empty{Loc: ast.At(p.from(tok.Span)), Expr: e}
	case token.Eval:
		p.next()
		e := p.parseParenExpr()
		return &ast.Eval{Loc: ast.At(p.from(tok.Span)), Expr: e}
	case token.Exit, token.Die:
		p.next()
		exit := &ast.Exit{Die: tok.Kind == token.Die}
		if _, ok := p.accept(token.LeftParen); ok {
			if p.peekKind() != token.RightParen {
				exit.Arg = p.parseExpr()
			}
			p.expect(token.RightParen)
		}
		exit.Range = p.from(tok.Span)
		return exit
	case token.Function, token.Fn:
		return p.parseClosure(nil, false, tok.Span)
	case token.Static:
		switch p.peekN(1).Kind {
		case token.Function, token.Fn:
			p.next()
			return p.parseClosure(nil, true, tok.Span)
		}
		return p.parseName()
	case token.HashLeftBracket:
		attrs := p.parseAttributes()
		return p.parseAttributedClosure(attrs, tok.Span)
	case token.Match:
		if p.peekN(1).Kind == token.LeftParen {
			return p.parseMatch()
		}
	case token.Identifier, token.QualifiedIdentifier, token.FullyQualifiedIdentifier:
		name := p.parseName()
		switch p.peekKind() {
		case token.LeftParen, token.DoubleColon:
			return name
		}
		if isTrueFalseNull(name) {
			switch strings.ToLower(name.Value) {
			case "true":
				return &ast.BoolLiteral{Loc: name.Loc, Value: true}
			case "false":
				return &ast.BoolLiteral{Loc: name.Loc, Value: false}
			default:
				return &ast.NullLiteral{Loc: name.Loc}
			}
		}
		return &ast.ConstFetch{Loc: name.Loc, Name: name}
	}
	p.unexpected(tok, "expression")
	return nil
}

func (p *Parser) parseAttributedClosure(attrs []*ast.AttributeList, start source.Span) ast.Expr {
	static := false
	if _, ok := p.accept(token.Static); ok {
		static = true
	}
	switch p.peekKind() {
	case token.Function, token.Fn:
		e := p.parseClosure(attrs, static, start)
		return e
	}
	p.unexpected(p.peek(), "closure after attributes")
	return nil
}

func parseInt(tok *token.Token) ast.Expr {
	raw := strings.ReplaceAll(tok.Value, "_", "")
	lit := &ast.IntLiteral{Loc: ast.At(tok.Span), Raw: tok.Value}
	v, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		lit.Overflow = true
		return lit
	}
	lit.Value = v
	return lit
}

// parsePostfix applies member access, calls, subscripts, and postfix
// increments to left.  Calls are not parsed when allowCalls is false, which
// is the case for the class operand of new.
func (p *Parser) parsePostfix(left ast.Expr, allowCalls bool) ast.Expr {
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.LeftBracket:
			p.next()
			access := &ast.ArrayAccess{Array: left}
			if p.peekKind() != token.RightBracket {
				access.Index = p.parseExpr()
			}
			p.expect(token.RightBracket)
			access.Range = p.from(left.Span())
			left = access
		case token.Arrow, token.NullsafeArrow:
			p.next()
			member := p.parseMemberName()
			nullsafe := tok.Kind == token.NullsafeArrow
			if allowCalls && p.peekKind() == token.LeftParen {
				args := p.parseArgumentList()
				left = &ast.MethodCall{Loc: ast.At(p.from(left.Span())), Object: left, Method: member, Args: args, Nullsafe: nullsafe}
				continue
			}
			left = &ast.PropertyFetch{Loc: ast.At(p.from(left.Span())), Object: left, Property: member, Nullsafe: nullsafe}
		case token.DoubleColon:
			p.next()
			left = p.parseStaticMember(left, allowCalls)
		case token.LeftParen:
			if !allowCalls || !isCallable(left) {
				return left
			}
			args := p.parseArgumentList()
			left = &ast.Call{Loc: ast.At(p.from(left.Span())), Callee: left, Args: args}
		case token.PlusPlus, token.MinusMinus:
			if !allowCalls {
				return left
			}
			p.next()
			left = &ast.Postfix{Loc: ast.At(p.from(left.Span())), Op: tok.Kind, Operand: left}
		default:
			return left
		}
	}
}

func isCallable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral, *ast.NullLiteral, *ast.ConstFetch:
		return false
	}
	return true
}

func (p *Parser) parseStaticMember(class ast.Expr, allowCalls bool) ast.Expr {
	tok := p.peek()
	switch {
	case tok.Kind == token.Variable:
		p.next()
		v := variable(tok)
		if allowCalls && p.peekKind() == token.LeftParen {
			args := p.parseArgumentList()
			return &ast.StaticCall{Loc: ast.At(p.from(class.Span())), Class: class, Method: v, Args: args}
		}
		return &ast.StaticPropertyFetch{Loc: ast.At(p.from(class.Span())), Class: class, Property: v}
	case tok.Kind == token.LeftBrace:
		p.next()
		method := p.parseExpr()
		p.expect(token.RightBrace)
		args := p.parseArgumentList()
		return &ast.StaticCall{Loc: ast.At(p.from(class.Span())), Class: class, Method: method, Args: args}
	case isNameToken(tok):
		ident := p.parseIdent()
		if tok.Kind != token.Class && allowCalls && p.peekKind() == token.LeftParen {
			args := p.parseArgumentList()
			return &ast.StaticCall{Loc: ast.At(p.from(class.Span())), Class: class, Method: ident, Args: args}
		}
		return &ast.ClassConstFetch{Loc: ast.At(p.from(class.Span())), Class: class, Constant: ident}
	}
	p.unexpected(tok, "member name")
	return nil
}

func (p *Parser) parseMemberName() ast.Expr {
	tok := p.peek()
	switch {
	case tok.Kind == token.Variable:
		p.next()
		return variable(tok)
	case tok.Kind == token.LeftBrace:
		p.next()
		e := p.parseExpr()
		p.expect(token.RightBrace)
		return e
	case isNameToken(tok):
		return p.parseIdent()
	}
	p.unexpected(tok, "member name")
	return nil
}

func (p *Parser) parseArgumentList() *ast.ArgumentList {
	open := p.expect(token.LeftParen)
	list := &ast.ArgumentList{}
	if p.peekKind() == token.Ellipsis && p.peekN(1).Kind == token.RightParen {
		p.next()
		p.next()
		list.FirstClassCallable = true
		list.Range = p.from(open.Span)
		return list
	}
	for p.peekKind() != token.RightParen {
		start := p.peek()
		arg := &ast.Argument{}
		if isNameToken(start) && p.peekN(1).Kind == token.Colon {
			arg.Name = p.parseIdent()
			p.next()
		}
		if _, ok := p.accept(token.Ellipsis); ok {
			arg.Spread = true
		}
		arg.Value = p.parseExpr()
		arg.Range = p.from(start.Span)
		list.Args = append(list.Args, arg)
		comma, ok := p.accept(token.Comma)
		if !ok {
			break
		}
		list.Separators = append(list.Separators, comma.Span)
	}
	p.expect(token.RightParen)
	list.Range = p.from(open.Span)
	return list
}

// parseElements parses array or list elements up to end.
func (p *Parser) parseElements(end token.Kind) ([]*ast.ArrayElement, []source.Span) {
	var elems []*ast.ArrayElement
	var seps []source.Span
	for p.peekKind() != end {
		start := p.peek()
		if start.Kind == token.Comma {
			empty := source.NewSpan(p.file, int(start.Span.Start), int(start.Span.Start))
			elems = append(elems, &ast.ArrayElement{Loc: ast.At(empty)})
			seps = append(seps, p.next().Span)
			continue
		}
		elem := &ast.ArrayElement{}
		switch {
		case start.Kind == token.Ellipsis:
			p.next()
			elem.Spread = true
			elem.Value = p.parseExpr()
		case start.Kind == token.Ampersand:
			p.next()
			elem.ByRef = true
			elem.Value = p.parseExpr()
		default:
			value := p.parseExpr()
			if _, ok := p.accept(token.DoubleArrow); ok {
				elem.Key = value
				_, elem.ByRef = p.accept(token.Ampersand)
				value = p.parseExpr()
			}
			elem.Value = value
		}
		elem.Range = p.from(start.Span)
		elems = append(elems, elem)
		comma, ok := p.accept(token.Comma)
		if !ok {
			break
		}
		seps = append(seps, comma.Span)
	}
	return elems, seps
}

func (p *Parser) parseArrayLiteral(short bool) ast.Expr {
	start := p.next()
	end := token.RightBracket
	if !short {
		p.expect(token.LeftParen)
		end = token.RightParen
	}
	elems, seps := p.parseElements(end)
	p.expect(end)
	return &ast.ArrayLiteral{Loc: ast.At(p.from(start.Span)), Short: short, Elements: elems, Separators: seps}
}

func (p *Parser) parseList() ast.Expr {
	start := p.next()
	p.expect(token.LeftParen)
	elems, seps := p.parseElements(token.RightParen)
	p.expect(token.RightParen)
	return &ast.List{Loc: ast.At(p.from(start.Span)), Elements: elems, Separators: seps}
}

func (p *Parser) parseClosure(attrs []*ast.AttributeList, static bool, start source.Span) ast.Expr {
	tok := p.next()
	if tok.Kind == token.Fn {
		fn := &ast.ArrowFunction{Attributes: attrs, Static: static}
		_, fn.ByRef = p.accept(token.Ampersand)
		fn.Params = p.parseParams()
		if _, ok := p.accept(token.Colon); ok {
			fn.ReturnType = p.parseHint()
		}
		p.expect(token.DoubleArrow)
		fn.Body = p.parseExprPrec(precAssign)
		fn.Range = p.from(start)
		return fn
	}
	if tok.Kind != token.Function {
		p.unexpected(tok, "`function`")
	}
	fn := &ast.Closure{Attributes: attrs, Static: static}
	_, fn.ByRef = p.accept(token.Ampersand)
	fn.Params = p.parseParams()
	if _, ok := p.accept(token.Use); ok {
		p.expect(token.LeftParen)
		for p.peekKind() != token.RightParen {
			useStart := p.peek()
			_, byRef := p.accept(token.Ampersand)
			v := variable(p.expect(token.Variable))
			fn.Uses = append(fn.Uses, &ast.ClosureUse{Loc: ast.At(p.from(useStart.Span)), Var: v, ByRef: byRef})
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RightParen)
	}
	if _, ok := p.accept(token.Colon); ok {
		fn.ReturnType = p.parseHint()
	}
	fn.Body = p.parseBlock()
	fn.Range = p.from(start)
	return fn
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.next()
	m := &ast.Match{Subject: p.parseParenExpr()}
	p.expect(token.LeftBrace)
	for p.peekKind() != token.RightBrace {
		armStart := p.peek()
		arm := &ast.MatchArm{}
		if armStart.Kind == token.Default {
			p.next()
			p.accept(token.Comma)
		} else {
			for p.peekKind() != token.DoubleArrow {
				arm.Conditions = append(arm.Conditions, p.parseExpr())
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
		}
		p.expect(token.DoubleArrow)
		arm.Body = p.parseExpr()
		arm.Range = p.from(armStart.Span)
		m.Arms = append(m.Arms, arm)
		comma, ok := p.accept(token.Comma)
		if !ok {
			break
		}
		m.Separators = append(m.Separators, comma.Span)
	}
	p.expect(token.RightBrace)
	m.Range = p.from(start.Span)
	return m
}

func (p *Parser) parseNew() ast.Expr {
	start := p.next()
	tok := p.peek()
	if tok.Kind == token.Class || tok.Kind == token.HashLeftBracket ||
		(tok.Kind == token.Readonly && p.peekN(1).Kind == token.Class) {
		anon := p.parseAnonymousClass()
		n := &ast.New{Loc: ast.At(p.from(start.Span)), Class: anon, Args: anon.Args}
		return n
	}
	n := &ast.New{Class: p.parseClassReference()}
	if p.peekKind() == token.LeftParen {
		n.Args = p.parseArgumentList()
		n.Range = p.from(start.Span)
		return p.parsePostfix(n, true)
	}
	n.Range = p.from(start.Span)
	return n
}
