// Copyright © 2024 The Mago authors

// Package rdparser implements a recursive descent parser.  Statements are
// parsed by recursive descent and expressions by precedence climbing.  The
// parser stops at the first error and returns the tree built so far.
package rdparser

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/lexer"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

// ParseError is the single error a parse may report.
type ParseError struct {
	Span    source.Span
	Message string
}

func (err *ParseError) Error() string {
	return err.Message
}

type bailout struct{}

// Parser is a parser for one file.
type Parser struct {
	src    *TokenSource
	file   source.FileID
	size   int
	text   string
	err    *ParseError
	halted bool
}

// New initializes and returns a Parser over f.
func New(f *source.File) *Parser {
	lex := lexer.New(token.NewScanner(f))
	return &Parser{
		src:  NewTokenSource(lex),
		file: f.ID,
		size: len(f.Content),
		text: f.Content,
	}
}

// Parse parses f.  The returned program is never nil; when err is non-nil it
// holds every statement completed before the error.
func Parse(f *source.File) (*ast.Program, *ParseError) {
	return New(f).ParseProgram()
}

// ParseProgram parses the complete file.
func (p *Parser) ParseProgram() (prog *ast.Program, err *ParseError) {
	prog = &ast.Program{
		Loc:  ast.At(source.NewSpan(p.file, 0, p.size)),
		File: p.file,
	}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			err = p.err
		}
		p.finishTrivia(prog)
	}()
	for !p.halted && p.peek().Kind != token.EOF {
		stmt := p.parseTopStatement(prog)
		if stmt != nil {
			prog.Statements = append(prog.Statements, stmt)
		}
	}
	return prog, nil
}

func (p *Parser) finishTrivia(prog *ast.Program) {
	if p.err == nil && !p.halted {
		p.src.Drain()
	}
	prog.Trivia = p.src.Trivia()
}

// parseTopStatement handles unbraced namespaces, which own every statement
// up to the next namespace declaration.
func (p *Parser) parseTopStatement(prog *ast.Program) ast.Stmt {
	stmt := p.parseStatement()
	ns, ok := stmt.(*ast.Namespace)
	if !ok || ns.Braced {
		return stmt
	}
	prog.Statements = append(prog.Statements, ns)
	for !p.halted {
		tok := p.peek()
		if tok.Kind == token.EOF || tok.Kind == token.Namespace {
			break
		}
		inner := p.parseStatement()
		ns.Statements = append(ns.Statements, inner)
		ns.Range = ns.Range.Join(inner.Span())
	}
	return nil
}

func (p *Parser) fail(span source.Span, format string, v ...interface{}) {
	p.err = &ParseError{Span: span, Message: fmt.Sprintf(format, v...)}
	panic(bailout{})
}

func (p *Parser) unexpected(tok *token.Token, expected string) {
	found := tok.Kind.String()
	if tok.Kind != token.EOF && tok.Kind != token.InlineText && tok.Value != "" {
		found = fmt.Sprintf("`%s`", tok.Value)
	}
	if expected == "" {
		p.fail(tok.Span, "unexpected %s", found)
	}
	p.fail(tok.Span, "expected %s, found %s", expected, found)
}

func (p *Parser) peek() *token.Token {
	tok := p.src.Peek()
	if tok.Kind == token.SyntaxError {
		p.fail(tok.Span, "%s", tok.Value)
	}
	return tok
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) peekN(n int) *token.Token {
	return p.src.PeekN(n)
}

func (p *Parser) next() *token.Token {
	p.peek()
	p.src.Scan()
	return p.src.Token
}

// last returns the most recently consumed token.
func (p *Parser) last() *token.Token {
	return p.src.Token
}

func (p *Parser) accept(kind token.Kind) (*token.Token, bool) {
	if p.peekKind() != kind {
		return nil, false
	}
	return p.next(), true
}

func (p *Parser) expect(kind token.Kind) *token.Token {
	tok := p.peek()
	if tok.Kind != kind {
		p.unexpected(tok, "`"+kind.String()+"`")
	}
	return p.next()
}

func (p *Parser) slice(span source.Span) string {
	return p.text[span.Start:span.End]
}

// from returns the span from start to the end of the last consumed token.
func (p *Parser) from(start source.Span) source.Span {
	return start.To(p.last().Span)
}

// terminator consumes a statement terminator.  A closing tag also ends a
// statement but is left for the caller.
func (p *Parser) terminator() source.Span {
	tok := p.peek()
	switch tok.Kind {
	case token.Semicolon:
		p.next()
		return tok.Span
	case token.CloseTag:
		return source.NewSpan(p.file, int(tok.Span.Start), int(tok.Span.Start))
	}
	p.unexpected(tok, "`;`")
	return source.Span{}
}

func isNameToken(tok *token.Token) bool {
	return tok.Kind == token.Identifier || tok.Kind.IsKeyword()
}

// parseIdent parses an identifier, allowing reserved words.
func (p *Parser) parseIdent() *ast.Ident {
	tok := p.peek()
	if !isNameToken(tok) && tok.Kind != token.MagicConstant {
		p.unexpected(tok, "identifier")
	}
	p.next()
	return &ast.Ident{Loc: ast.At(tok.Span), Value: tok.Value}
}

// parseName parses a possibly qualified name.
func (p *Parser) parseName() *ast.Name {
	tok := p.peek()
	switch tok.Kind {
	case token.Identifier, token.Static, token.Array, token.Callable:
		p.next()
		return &ast.Name{Loc: ast.At(tok.Span), Value: tok.Value, Kind: ast.Unqualified}
	case token.QualifiedIdentifier:
		p.next()
		if rest, ok := cutPrefixFold(tok.Value, `namespace\`); ok {
			return &ast.Name{Loc: ast.At(tok.Span), Value: rest, Kind: ast.Relative}
		}
		return &ast.Name{Loc: ast.At(tok.Span), Value: tok.Value, Kind: ast.Qualified}
	case token.FullyQualifiedIdentifier:
		p.next()
		return &ast.Name{Loc: ast.At(tok.Span), Value: tok.Value[1:], Kind: ast.FullyQualified}
	}
	if tok.Kind.IsKeyword() {
		p.next()
		return &ast.Name{Loc: ast.At(tok.Span), Value: tok.Value, Kind: ast.Unqualified}
	}
	p.unexpected(tok, "name")
	return nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func (p *Parser) parseStatement() ast.Stmt {
	tok := p.peek()
	switch tok.Kind {
	case token.OpenTag, token.ShortOpenTag, token.CloseTag:
		p.next()
		return &ast.Tag{Loc: ast.At(tok.Span), Kind: tok.Kind}
	case token.InlineText:
		p.next()
		return &ast.InlineHTML{Loc: ast.At(tok.Span), Value: tok.Value}
	case token.EchoTag, token.Echo:
		return p.parseEcho()
	case token.LeftBrace:
		return p.parseBlock()
	case token.If:
		return p.parseIf()
	case token.While:
		return p.parseWhile()
	case token.Do:
		return p.parseDoWhile()
	case token.For:
		return p.parseFor()
	case token.Foreach:
		return p.parseForeach()
	case token.Switch:
		return p.parseSwitch()
	case token.Break:
		p.next()
		level := p.parseOptionalExpr()
		p.terminator()
		return &ast.Break{Loc: ast.At(p.from(tok.Span)), Level: level}
	case token.Continue:
		p.next()
		level := p.parseOptionalExpr()
		p.terminator()
		return &ast.Continue{Loc: ast.At(p.from(tok.Span)), Level: level}
	case token.Return:
		p.next()
		value := p.parseOptionalExpr()
		p.terminator()
		return &ast.Return{Loc: ast.At(p.from(tok.Span)), Value: value}
	case token.Try:
		return p.parseTry()
	case token.Global:
		return p.parseGlobal()
	case token.Static:
		if p.peekN(1).Kind == token.Variable {
			return p.parseStaticVars()
		}
	case token.Unset:
		return p.parseUnset()
	case token.Function:
		next := p.peekN(1)
		if next.Kind == token.Ampersand {
			next = p.peekN(2)
		}
		if isNameToken(next) {
			return p.parseFunction(nil, tok.Span)
		}
	case token.Abstract, token.Final, token.Readonly, token.Class, token.Interface, token.Trait:
		if tok.Kind != token.Readonly || p.peekN(1).Kind != token.Function {
			return p.parseClassLike(nil, tok.Span)
		}
	case token.Identifier:
		if strings.EqualFold(tok.Value, "enum") && p.peekN(1).Kind == token.Identifier {
			return p.parseClassLike(nil, tok.Span)
		}
		if p.peekN(1).Kind == token.Colon {
			p.next()
			p.next()
			name := &ast.Ident{Loc: ast.At(tok.Span), Value: tok.Value}
			return &ast.Label{Loc: ast.At(p.from(tok.Span)), Name: name}
		}
	case token.Namespace:
		return p.parseNamespace()
	case token.Use:
		return p.parseUse()
	case token.Const:
		return p.parseConst()
	case token.Declare:
		return p.parseDeclare()
	case token.Goto:
		p.next()
		label := p.parseIdent()
		p.terminator()
		return &ast.Goto{Loc: ast.At(p.from(tok.Span)), Label: label}
	case token.Semicolon:
		p.next()
		return &ast.Noop{Loc: ast.At(tok.Span)}
	case token.HaltCompiler:
		p.next()
		p.expect(token.LeftParen)
		p.expect(token.RightParen)
		p.terminator()
		p.halted = true
		return &ast.HaltCompiler{Loc: ast.At(p.from(tok.Span))}
	case token.HashLeftBracket:
		return p.parseAttributedStatement()
	}
	return p.parseExprStmt()
}

func (p *Parser) parseAttributedStatement() ast.Stmt {
	start := p.peek().Span
	attrs := p.parseAttributes()
	tok := p.peek()
	switch tok.Kind {
	case token.Function:
		next := p.peekN(1)
		if next.Kind == token.Ampersand {
			next = p.peekN(2)
		}
		if isNameToken(next) {
			return p.parseFunction(attrs, start)
		}
	case token.Abstract, token.Final, token.Readonly, token.Class, token.Interface, token.Trait:
		return p.parseClassLike(attrs, start)
	case token.Identifier:
		if strings.EqualFold(tok.Value, "enum") {
			return p.parseClassLike(attrs, start)
		}
	}
	expr := p.parseAttributedClosure(attrs, start)
	expr = p.parsePostfix(expr, true)
	term := p.terminator()
	return &ast.ExprStmt{Loc: ast.At(p.from(start)), Expr: expr, Terminator: term}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpr()
	term := p.terminator()
	return &ast.ExprStmt{Loc: ast.At(p.from(expr.Span())), Expr: expr, Terminator: term}
}

// parseOptionalExpr parses an expression unless the statement ends here.
func (p *Parser) parseOptionalExpr() ast.Expr {
	switch p.peekKind() {
	case token.Semicolon, token.CloseTag, token.EOF:
		return nil
	}
	return p.parseExpr()
}

func (p *Parser) parseEcho() ast.Stmt {
	start := p.next()
	echo := &ast.Echo{}
	for {
		echo.Values = append(echo.Values, p.parseExpr())
		comma, ok := p.accept(token.Comma)
		if !ok {
			break
		}
		echo.Separators = append(echo.Separators, comma.Span)
	}
	echo.Terminator = p.terminator()
	echo.Range = p.from(start.Span)
	return echo
}

func (p *Parser) parseBlock() *ast.Block {
	open := p.expect(token.LeftBrace)
	block := &ast.Block{}
	for p.peekKind() != token.RightBrace {
		if p.peekKind() == token.EOF {
			p.unexpected(p.peek(), "`}`")
		}
		block.Statements = append(block.Statements, p.parseStatement())
	}
	p.next()
	block.Range = p.from(open.Span)
	return block
}

// parseAltBlock parses the statement list of an alternative-syntax construct
// up to, but excluding, one of the terminating keywords.
func (p *Parser) parseAltBlock(end ...token.Kind) *ast.Block {
	start := p.peek().Span
	block := &ast.Block{Loc: ast.At(source.NewSpan(p.file, int(start.Start), int(start.Start)))}
	for {
		tok := p.peek()
		if tok.Is(end...) {
			break
		}
		if tok.Kind == token.EOF {
			p.unexpected(tok, "`"+end[len(end)-1].String()+"`")
		}
		stmt := p.parseStatement()
		block.Statements = append(block.Statements, stmt)
		block.Range = start.To(stmt.Span())
	}
	return block
}

func (p *Parser) parseParenExpr() ast.Expr {
	p.expect(token.LeftParen)
	e := p.parseExpr()
	p.expect(token.RightParen)
	return e
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.next()
	stmt := &ast.If{Cond: p.parseParenExpr()}
	if _, ok := p.accept(token.Colon); ok {
		stmt.Then = p.parseAltBlock(token.ElseIf, token.Else, token.EndIf)
		for p.peekKind() == token.ElseIf {
			tok := p.next()
			cond := p.parseParenExpr()
			p.expect(token.Colon)
			body := p.parseAltBlock(token.ElseIf, token.Else, token.EndIf)
			stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIf{Loc: ast.At(p.from(tok.Span)), Cond: cond, Body: body})
		}
		if _, ok := p.accept(token.Else); ok {
			p.expect(token.Colon)
			stmt.Else = p.parseAltBlock(token.EndIf)
		}
		p.expect(token.EndIf)
		p.terminator()
		stmt.Range = p.from(start.Span)
		return stmt
	}
	stmt.Then = p.parseStatement()
	for {
		tok := p.peek()
		if tok.Kind == token.ElseIf {
			p.next()
			cond := p.parseParenExpr()
			body := p.parseStatement()
			stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIf{Loc: ast.At(p.from(tok.Span)), Cond: cond, Body: body})
			continue
		}
		if tok.Kind == token.Else {
			p.next()
			stmt.Else = p.parseStatement()
		}
		break
	}
	stmt.Range = p.from(start.Span)
	return stmt
}

// parseLoopBody parses a loop body in either syntax.
func (p *Parser) parseLoopBody(end token.Kind) ast.Stmt {
	if _, ok := p.accept(token.Colon); ok {
		body := p.parseAltBlock(end)
		p.expect(end)
		p.terminator()
		return body
	}
	return p.parseStatement()
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.next()
	cond := p.parseParenExpr()
	body := p.parseLoopBody(token.EndWhile)
	return &ast.While{Loc: ast.At(p.from(start.Span)), Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() ast.Stmt {
	start := p.next()
	body := p.parseStatement()
	p.expect(token.While)
	cond := p.parseParenExpr()
	p.terminator()
	return &ast.DoWhile{Loc: ast.At(p.from(start.Span)), Body: body, Cond: cond}
}

func (p *Parser) parseExprList(end token.Kind) []ast.Expr {
	var list []ast.Expr
	for p.peekKind() != end {
		list = append(list, p.parseExpr())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	return list
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.next()
	p.expect(token.LeftParen)
	stmt := &ast.For{}
	stmt.Init = p.parseExprList(token.Semicolon)
	p.expect(token.Semicolon)
	stmt.Cond = p.parseExprList(token.Semicolon)
	p.expect(token.Semicolon)
	stmt.Step = p.parseExprList(token.RightParen)
	p.expect(token.RightParen)
	stmt.Body = p.parseLoopBody(token.EndFor)
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseForeach() ast.Stmt {
	start := p.next()
	p.expect(token.LeftParen)
	stmt := &ast.Foreach{Expr: p.parseExpr()}
	p.expect(token.As)
	_, byRef := p.accept(token.Ampersand)
	first := p.parseExpr()
	if _, ok := p.accept(token.DoubleArrow); ok {
		stmt.Key = first
		_, byRef = p.accept(token.Ampersand)
		first = p.parseExpr()
	}
	stmt.Value = first
	stmt.ByRef = byRef
	p.expect(token.RightParen)
	stmt.Body = p.parseLoopBody(token.EndForeach)
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseSwitch() ast.Stmt {
	start := p.next()
	stmt := &ast.Switch{Subject: p.parseParenExpr()}
	alt := false
	end := token.RightBrace
	if _, ok := p.accept(token.Colon); ok {
		alt = true
		end = token.EndSwitch
	} else {
		p.expect(token.LeftBrace)
	}
	for p.peekKind() != end {
		tok := p.peek()
		c := &ast.SwitchCase{}
		switch tok.Kind {
		case token.Case:
			p.next()
			c.Cond = p.parseExpr()
		case token.Default:
			p.next()
		default:
			p.unexpected(tok, "`case` or `default`")
		}
		if _, ok := p.accept(token.Colon); !ok {
			p.expect(token.Semicolon)
		}
		for !p.peek().Is(token.Case, token.Default, end, token.EOF) {
			c.Body = append(c.Body, p.parseStatement())
		}
		c.Range = p.from(tok.Span)
		stmt.Cases = append(stmt.Cases, c)
	}
	p.next()
	if alt {
		p.terminator()
	}
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseTry() ast.Stmt {
	start := p.next()
	stmt := &ast.Try{Body: p.parseBlock()}
	for p.peekKind() == token.Catch {
		tok := p.next()
		p.expect(token.LeftParen)
		c := &ast.Catch{}
		for {
			c.Types = append(c.Types, p.parseName())
			if _, ok := p.accept(token.Pipe); !ok {
				break
			}
		}
		if v, ok := p.accept(token.Variable); ok {
			c.Var = variable(v)
		}
		p.expect(token.RightParen)
		c.Body = p.parseBlock()
		c.Range = p.from(tok.Span)
		stmt.Catches = append(stmt.Catches, c)
	}
	if _, ok := p.accept(token.Finally); ok {
		stmt.Finally = p.parseBlock()
	}
	if len(stmt.Catches) == 0 && stmt.Finally == nil {
		p.unexpected(p.peek(), "`catch` or `finally`")
	}
	stmt.Range = p.from(start.Span)
	return stmt
}

func variable(tok *token.Token) *ast.Variable {
	return &ast.Variable{Loc: ast.At(tok.Span), Name: strings.TrimPrefix(tok.Value, "$")}
}

func (p *Parser) parseGlobal() ast.Stmt {
	start := p.next()
	stmt := &ast.Global{}
	for {
		stmt.Vars = append(stmt.Vars, variable(p.expect(token.Variable)))
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.terminator()
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseStaticVars() ast.Stmt {
	start := p.next()
	stmt := &ast.Static{}
	for {
		tok := p.expect(token.Variable)
		sv := &ast.StaticVar{Var: variable(tok)}
		if _, ok := p.accept(token.Equal); ok {
			sv.Default = p.parseExpr()
		}
		sv.Range = p.from(tok.Span)
		stmt.Vars = append(stmt.Vars, sv)
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.terminator()
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseUnset() ast.Stmt {
	start := p.next()
	p.expect(token.LeftParen)
	stmt := &ast.Unset{Exprs: p.parseExprList(token.RightParen)}
	p.expect(token.RightParen)
	p.terminator()
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseFunction(attrs []*ast.AttributeList, start source.Span) ast.Stmt {
	p.expect(token.Function)
	fn := &ast.Function{Attributes: attrs}
	_, fn.ByRef = p.accept(token.Ampersand)
	fn.Name = p.parseIdent()
	fn.Params = p.parseParams()
	if _, ok := p.accept(token.Colon); ok {
		fn.ReturnType = p.parseHint()
	}
	fn.Body = p.parseBlock()
	fn.Range = p.from(start)
	return fn
}

func (p *Parser) parseNamespace() ast.Stmt {
	start := p.next()
	ns := &ast.Namespace{}
	if p.peekKind() != token.LeftBrace {
		ns.Name = p.parseName()
	}
	if p.peekKind() == token.LeftBrace {
		ns.Braced = true
		block := p.parseBlock()
		ns.Statements = block.Statements
	} else {
		p.terminator()
	}
	ns.Range = p.from(start.Span)
	return ns
}

func useKind(tok *token.Token) (ast.UseKind, bool) {
	switch tok.Kind {
	case token.Function:
		return ast.UseFunction, true
	case token.Const:
		return ast.UseConst, true
	}
	return ast.UseClass, false
}

func (p *Parser) parseUse() ast.Stmt {
	start := p.next()
	use := &ast.Use{}
	if kind, ok := useKind(p.peek()); ok {
		p.next()
		use.Kind = kind
	}
	for {
		itemStart := p.peek().Span
		name := p.parseName()
		if _, ok := p.accept(token.Backslash); ok {
			use.Prefix = name
			p.expect(token.LeftBrace)
			for p.peekKind() != token.RightBrace {
				item := &ast.UseItem{Kind: use.Kind}
				tok := p.peek()
				if kind, ok := useKind(tok); ok {
					p.next()
					item.Kind = kind
				}
				item.Name = p.parseName()
				if _, ok := p.accept(token.As); ok {
					item.Alias = p.parseIdent()
				}
				item.Range = p.from(tok.Span)
				use.Items = append(use.Items, item)
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			p.expect(token.RightBrace)
			break
		}
		item := &ast.UseItem{Kind: use.Kind, Name: name}
		if _, ok := p.accept(token.As); ok {
			item.Alias = p.parseIdent()
		}
		item.Range = p.from(itemStart)
		use.Items = append(use.Items, item)
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.terminator()
	use.Range = p.from(start.Span)
	return use
}

func (p *Parser) parseConstItems() []*ast.ConstItem {
	var items []*ast.ConstItem
	for {
		name := p.parseIdent()
		p.expect(token.Equal)
		value := p.parseExpr()
		items = append(items, &ast.ConstItem{Loc: ast.At(p.from(name.Span())), Name: name, Value: value})
		if _, ok := p.accept(token.Comma); !ok {
			return items
		}
	}
}

func (p *Parser) parseConst() ast.Stmt {
	start := p.next()
	stmt := &ast.Const{Items: p.parseConstItems()}
	p.terminator()
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseDeclare() ast.Stmt {
	start := p.next()
	p.expect(token.LeftParen)
	stmt := &ast.Declare{Items: p.parseConstItems()}
	p.expect(token.RightParen)
	switch p.peekKind() {
	case token.Colon:
		p.next()
		stmt.Body = p.parseAltBlock(token.EndDeclare)
		p.expect(token.EndDeclare)
		p.terminator()
	case token.Semicolon, token.CloseTag:
		p.terminator()
	default:
		stmt.Body = p.parseStatement()
	}
	stmt.Range = p.from(start.Span)
	return stmt
}

func (p *Parser) parseAttributes() []*ast.AttributeList {
	var lists []*ast.AttributeList
	for p.peekKind() == token.HashLeftBracket {
		open := p.next()
		list := &ast.AttributeList{}
		for p.peekKind() != token.RightBracket {
			name := p.parseName()
			attr := &ast.Attribute{Name: name}
			if p.peekKind() == token.LeftParen {
				attr.Args = p.parseArgumentList()
			}
			attr.Range = p.from(name.Span())
			list.Attributes = append(list.Attributes, attr)
			comma, ok := p.accept(token.Comma)
			if !ok {
				break
			}
			list.Separators = append(list.Separators, comma.Span)
		}
		p.expect(token.RightBracket)
		list.Range = p.from(open.Span)
		lists = append(lists, list)
	}
	return lists
}

func (p *Parser) parseParams() *ast.ParameterList {
	open := p.expect(token.LeftParen)
	list := &ast.ParameterList{}
	for p.peekKind() != token.RightParen {
		list.Params = append(list.Params, p.parseParam())
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

func isParamModifier(k token.Kind) bool {
	switch k {
	case token.Public, token.Protected, token.Private, token.Readonly:
		return true
	}
	return false
}

func (p *Parser) parseParam() *ast.Parameter {
	start := p.peek().Span
	param := &ast.Parameter{Attributes: p.parseAttributes()}
	for isParamModifier(p.peekKind()) {
		tok := p.next()
		param.Modifiers = append(param.Modifiers, &ast.Modifier{Loc: ast.At(tok.Span), Kind: tok.Kind})
	}
	switch p.peekKind() {
	case token.Ampersand, token.Ellipsis, token.Variable:
	default:
		param.Type = p.parseHint()
	}
	_, param.ByRef = p.accept(token.Ampersand)
	_, param.Variadic = p.accept(token.Ellipsis)
	param.Var = variable(p.expect(token.Variable))
	if _, ok := p.accept(token.Equal); ok {
		param.Default = p.parseExpr()
	}
	param.Range = p.from(start)
	return param
}

// parseHint parses a type declaration including nullable, union,
// intersection, and disjunctive normal forms.
func (p *Parser) parseHint() ast.Hint {
	start := p.peek().Span
	if _, ok := p.accept(token.Question); ok {
		inner := p.parseAtomHint()
		return &ast.NullableHint{Loc: ast.At(p.from(start)), Inner: inner}
	}
	first := p.parseAtomHint()
	switch {
	case p.peekKind() == token.Pipe:
		union := &ast.UnionHint{Types: []ast.Hint{first}}
		for p.peekKind() == token.Pipe {
			union.Separators = append(union.Separators, p.next().Span)
			union.Types = append(union.Types, p.parseAtomHint())
		}
		union.Range = p.from(start)
		return union
	case p.isIntersectionAmpersand():
		inter := &ast.IntersectionHint{Types: []ast.Hint{first}}
		for p.isIntersectionAmpersand() {
			inter.Separators = append(inter.Separators, p.next().Span)
			inter.Types = append(inter.Types, p.parseAtomHint())
		}
		inter.Range = p.from(start)
		return inter
	}
	return first
}

// isIntersectionAmpersand distinguishes A&B from a by-reference parameter
// marker.
func (p *Parser) isIntersectionAmpersand() bool {
	if p.peekKind() != token.Ampersand {
		return false
	}
	switch p.peekN(1).Kind {
	case token.Variable, token.Ellipsis, token.Ampersand:
		return false
	}
	return true
}

func (p *Parser) parseAtomHint() ast.Hint {
	tok := p.peek()
	if tok.Kind == token.LeftParen {
		p.next()
		inter := &ast.IntersectionHint{Types: []ast.Hint{p.parseAtomHint()}}
		for p.peekKind() == token.Ampersand {
			inter.Separators = append(inter.Separators, p.next().Span)
			inter.Types = append(inter.Types, p.parseAtomHint())
		}
		p.expect(token.RightParen)
		inter.Range = p.from(tok.Span)
		return inter
	}
	switch tok.Kind {
	case token.Identifier, token.QualifiedIdentifier, token.FullyQualifiedIdentifier,
		token.Static, token.Array, token.Callable:
		name := p.parseName()
		return &ast.NamedHint{Loc: name.Loc, Name: name}
	}
	p.unexpected(tok, "type")
	return nil
}
