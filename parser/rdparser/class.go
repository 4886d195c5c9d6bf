// Copyright © 2024 The Mago authors

package rdparser

import (
	"strings"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

func (p *Parser) parseModifiers(allowed func(token.Kind) bool) ast.Modifiers {
	var mods ast.Modifiers
	for allowed(p.peekKind()) {
		tok := p.next()
		mods = append(mods, &ast.Modifier{Loc: ast.At(tok.Span), Kind: tok.Kind})
	}
	return mods
}

func isClassModifier(k token.Kind) bool {
	return k == token.Abstract || k == token.Final || k == token.Readonly
}

func isMemberModifier(k token.Kind) bool {
	switch k {
	case token.Public, token.Protected, token.Private, token.Static,
		token.Abstract, token.Final, token.Readonly, token.Var:
		return true
	}
	return false
}

func (p *Parser) parseNameList() []*ast.Name {
	var names []*ast.Name
	for {
		names = append(names, p.parseName())
		if _, ok := p.accept(token.Comma); !ok {
			return names
		}
	}
}

func (p *Parser) parseClassLike(attrs []*ast.AttributeList, start source.Span) ast.Stmt {
	cl := &ast.ClassLike{Attributes: attrs, Modifiers: p.parseModifiers(isClassModifier)}
	tok := p.next()
	switch {
	case tok.Kind == token.Class:
		cl.Kind = ast.KindClass
	case tok.Kind == token.Interface:
		cl.Kind = ast.KindInterface
	case tok.Kind == token.Trait:
		cl.Kind = ast.KindTrait
	case tok.Kind == token.Identifier && strings.EqualFold(tok.Value, "enum"):
		cl.Kind = ast.KindEnum
	default:
		p.unexpected(tok, "`class`")
	}
	cl.Name = p.parseIdent()
	switch cl.Kind {
	case ast.KindClass:
		if _, ok := p.accept(token.Extends); ok {
			cl.Extends = []*ast.Name{p.parseName()}
		}
		if _, ok := p.accept(token.Implements); ok {
			cl.Implements = p.parseNameList()
		}
	case ast.KindInterface:
		if _, ok := p.accept(token.Extends); ok {
			cl.Extends = p.parseNameList()
		}
	case ast.KindEnum:
		if _, ok := p.accept(token.Colon); ok {
			cl.BackingType = p.parseHint()
		}
		if _, ok := p.accept(token.Implements); ok {
			cl.Implements = p.parseNameList()
		}
	}
	cl.Members = p.parseMembers()
	cl.Range = p.from(start)
	return cl
}

func (p *Parser) parseAnonymousClass() *ast.AnonymousClass {
	start := p.peek().Span
	anon := &ast.AnonymousClass{Attributes: p.parseAttributes()}
	anon.Modifiers = p.parseModifiers(isClassModifier)
	p.expect(token.Class)
	if p.peekKind() == token.LeftParen {
		anon.Args = p.parseArgumentList()
	}
	if _, ok := p.accept(token.Extends); ok {
		anon.Extends = p.parseName()
	}
	if _, ok := p.accept(token.Implements); ok {
		anon.Implements = p.parseNameList()
	}
	anon.Members = p.parseMembers()
	anon.Range = p.from(start)
	return anon
}

func (p *Parser) parseMembers() []ast.Member {
	p.expect(token.LeftBrace)
	var members []ast.Member
	for p.peekKind() != token.RightBrace {
		if p.peekKind() == token.EOF {
			p.unexpected(p.peek(), "`}`")
		}
		members = append(members, p.parseMember())
	}
	p.next()
	return members
}

func (p *Parser) parseMember() ast.Member {
	start := p.peek().Span
	attrs := p.parseAttributes()
	switch p.peekKind() {
	case token.Use:
		return p.parseTraitUse(start)
	case token.Case:
		p.next()
		c := &ast.EnumCase{Attributes: attrs, Name: p.parseIdent()}
		if _, ok := p.accept(token.Equal); ok {
			c.Value = p.parseExpr()
		}
		p.terminator()
		c.Range = p.from(start)
		return c
	}
	mods := p.parseModifiers(isMemberModifier)
	switch p.peekKind() {
	case token.Const:
		p.next()
		c := &ast.ClassConst{Attributes: attrs, Modifiers: mods}
		if !(isNameToken(p.peek()) && p.peekN(1).Kind == token.Equal) {
			c.Type = p.parseHint()
		}
		c.Items = p.parseConstItems()
		p.terminator()
		c.Range = p.from(start)
		return c
	case token.Function:
		p.next()
		m := &ast.Method{Attributes: attrs, Modifiers: mods}
		_, m.ByRef = p.accept(token.Ampersand)
		m.Name = p.parseIdent()
		m.Params = p.parseParams()
		if _, ok := p.accept(token.Colon); ok {
			m.ReturnType = p.parseHint()
		}
		if p.peekKind() == token.LeftBrace {
			m.Body = p.parseBlock()
		} else {
			p.terminator()
		}
		m.Range = p.from(start)
		return m
	}
	prop := &ast.Property{Attributes: attrs, Modifiers: mods}
	if p.peekKind() != token.Variable {
		prop.Type = p.parseHint()
	}
	for {
		tok := p.expect(token.Variable)
		item := &ast.PropertyItem{Var: variable(tok)}
		if _, ok := p.accept(token.Equal); ok {
			item.Default = p.parseExpr()
		}
		item.Range = p.from(tok.Span)
		prop.Items = append(prop.Items, item)
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.terminator()
	prop.Range = p.from(start)
	return prop
}

func (p *Parser) parseTraitUse(start source.Span) ast.Member {
	p.expect(token.Use)
	use := &ast.TraitUse{Traits: p.parseNameList()}
	if _, ok := p.accept(token.LeftBrace); !ok {
		p.terminator()
		use.Range = p.from(start)
		return use
	}
	for p.peekKind() != token.RightBrace {
		tok := p.peek()
		adapt := &ast.TraitAdaptation{}
		if p.peekN(1).Kind == token.DoubleColon {
			adapt.Trait = p.parseName()
			p.next()
		}
		adapt.Method = p.parseIdent()
		if _, ok := p.accept(token.Insteadof); ok {
			adapt.Insteadof = p.parseNameList()
		} else {
			p.expect(token.As)
			switch k := p.peekKind(); k {
			case token.Public, token.Protected, token.Private:
				vis := p.next()
				adapt.Visibility = &ast.Modifier{Loc: ast.At(vis.Span), Kind: vis.Kind}
			}
			if p.peekKind() != token.Semicolon {
				adapt.Alias = p.parseIdent()
			}
		}
		p.expect(token.Semicolon)
		adapt.Range = p.from(tok.Span)
		use.Adaptations = append(use.Adaptations, adapt)
	}
	p.next()
	use.Range = p.from(start)
	return use
}
