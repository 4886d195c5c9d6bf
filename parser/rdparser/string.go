// Copyright © 2024 The Mago authors

package rdparser

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
)

// unquote returns the value of a single- or double-quoted literal.
func unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	body := raw[1 : len(raw)-1]
	if raw[0] == '\'' {
		return unescapeSingle(body)
	}
	return unescapeDouble(body, '"')
}

func unescapeSingle(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == '\'') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isOctal(c byte) bool {
	return c >= '0' && c <= '7'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// unescapeDouble processes the escape sequences of double-quoted strings and
// heredocs.  quote is the delimiter that may be escaped, or zero.
func unescapeDouble(s string, quote byte) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch e := s[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'v':
			b.WriteByte('\v')
		case 'e':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case '\\', '$':
			b.WriteByte(e)
		case 'x':
			j := i + 1
			for j < len(s) && j < i+3 && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				b.WriteString(`\x`)
				continue
			}
			v, _ := strconv.ParseUint(s[i+1:j], 16, 8)
			b.WriteByte(byte(v))
			i = j - 1
		case 'u':
			if i+1 < len(s) && s[i+1] == '{' {
				end := strings.IndexByte(s[i:], '}')
				if end > 2 {
					v, err := strconv.ParseUint(s[i+2:i+end], 16, 32)
					if err == nil && utf8.ValidRune(rune(v)) {
						b.WriteRune(rune(v))
						i += end
						continue
					}
				}
			}
			b.WriteString(`\u`)
		default:
			if e == quote && quote != 0 {
				b.WriteByte(e)
				continue
			}
			if isOctal(e) {
				j := i
				for j < len(s) && j < i+3 && isOctal(s[j]) {
					j++
				}
				v, _ := strconv.ParseUint(s[i:j], 8, 16)
				b.WriteByte(byte(v))
				i = j - 1
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

// parseInterpolated parses the parts of an interpolated string after its
// opening token.  Strings without embedded expressions collapse into a
// StringLiteral.
func (p *Parser) parseInterpolated(open *token.Token, kind ast.StringKind, end token.Kind) ast.Expr {
	nowdoc := kind == ast.Heredoc && strings.Contains(open.Value, "'")
	var quote byte
	switch kind {
	case ast.DoubleQuoted:
		quote = '"'
	case ast.ShellExec:
		quote = '`'
	}
	var parts []ast.Expr
	literal := true
	for {
		tok := p.peek()
		switch tok.Kind {
		case end:
			p.next()
			span := p.from(open.Span)
			if literal {
				var b strings.Builder
				for _, part := range parts {
					b.WriteString(part.(*ast.StringLiteral).Value)
				}
				if kind != ast.ShellExec {
					return &ast.StringLiteral{Loc: ast.At(span), Raw: p.slice(span), Value: b.String()}
				}
			}
			return &ast.InterpolatedString{Loc: ast.At(span), Kind: kind, Parts: parts}
		case token.StringPart:
			p.next()
			value := tok.Value
			if !nowdoc {
				value = unescapeDouble(value, quote)
			}
			parts = append(parts, &ast.StringLiteral{Loc: ast.At(tok.Span), Raw: tok.Value, Value: value})
		case token.Variable:
			literal = false
			parts = append(parts, p.parseSimpleInterpolation())
		case token.LeftBrace:
			literal = false
			p.next()
			parts = append(parts, p.parseExpr())
			p.expect(token.RightBrace)
		case token.DollarLeftBrace:
			literal = false
			parts = append(parts, p.parseDollarBrace())
		default:
			p.unexpected(tok, "string content")
		}
	}
}

// parseSimpleInterpolation parses "$a", "$a[k]", and "$a->b".
func (p *Parser) parseSimpleInterpolation() ast.Expr {
	v := variable(p.next())
	switch p.peekKind() {
	case token.LeftBracket:
		p.next()
		tok := p.next()
		var index ast.Expr
		switch tok.Kind {
		case token.Identifier:
			index = &ast.StringLiteral{Loc: ast.At(tok.Span), Raw: tok.Value, Value: tok.Value}
		case token.LiteralInteger:
			index = parseInt(tok)
		case token.Variable:
			index = variable(tok)
		default:
			p.unexpected(tok, "array offset")
		}
		p.expect(token.RightBracket)
		return &ast.ArrayAccess{Loc: ast.At(p.from(v.Span())), Array: v, Index: index}
	case token.Arrow:
		p.next()
		prop := p.parseIdent()
		return &ast.PropertyFetch{Loc: ast.At(p.from(v.Span())), Object: v, Property: prop}
	}
	return v
}

// parseDollarBrace parses "${name}", "${name[expr]}", and "${expr}".
func (p *Parser) parseDollarBrace() ast.Expr {
	open := p.next()
	tok := p.peek()
	if tok.Kind == token.Identifier {
		switch p.peekN(1).Kind {
		case token.RightBrace:
			p.next()
			p.next()
			return &ast.Variable{Loc: ast.At(p.from(open.Span)), Name: tok.Value}
		case token.LeftBracket:
			p.next()
			v := &ast.Variable{Loc: ast.At(tok.Span), Name: tok.Value}
			p.next()
			index := p.parseExpr()
			p.expect(token.RightBracket)
			p.expect(token.RightBrace)
			return &ast.ArrayAccess{Loc: ast.At(p.from(open.Span)), Array: v, Index: index}
		}
	}
	e := p.parseExpr()
	p.expect(token.RightBrace)
	return &ast.VariableVariable{Loc: ast.At(p.from(open.Span)), Expr: e}
}
