// Copyright © 2024 The Mago authors

package rdparser

import (
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/token"
)

// TokenStream is an arbitrary sequence of tokens.  Typically, a TokenStream
// will be a *lexer.Lexer.  When no more tokens can be generated ReadToken
// returns a token of kind token.EOF.
type TokenStream interface {
	ReadToken() *token.Token
}

// TokenGenerator implements TokenStream.
type TokenGenerator func() *token.Token

// ReadToken implements TokenStream.
func (fn TokenGenerator) ReadToken() *token.Token {
	return fn()
}

// TokenSource abstracts a TokenStream by adding lookahead over significant
// tokens.  Trivia read from the stream is set aside in source order.
type TokenSource struct {
	lex    TokenStream
	Token  *token.Token
	peek   []*token.Token
	trivia []ast.Trivia
}

// NewTokenSource returns a TokenSource reading from stream.
func NewTokenSource(stream TokenStream) *TokenSource {
	return &TokenSource{lex: stream}
}

func (s *TokenSource) fill(n int) {
	for len(s.peek) < n {
		if len(s.peek) > 0 && s.peek[len(s.peek)-1].Kind == token.EOF {
			s.peek = append(s.peek, s.peek[len(s.peek)-1])
			continue
		}
		tok := s.lex.ReadToken()
		if tok.Kind.IsTrivia() {
			s.trivia = append(s.trivia, ast.Trivia{Kind: tok.Kind, Range: tok.Span, Value: tok.Value})
			continue
		}
		s.peek = append(s.peek, tok)
	}
}

// Peek returns the next significant token without consuming it.
func (s *TokenSource) Peek() *token.Token {
	return s.PeekN(0)
}

// PeekN returns the significant token n positions ahead of Peek.
func (s *TokenSource) PeekN(n int) *token.Token {
	s.fill(n + 1)
	return s.peek[n]
}

// Scan consumes the next token, making it available as Token.  Scan returns
// false once the stream is exhausted.
func (s *TokenSource) Scan() bool {
	s.fill(1)
	s.Token = s.peek[0]
	s.peek = s.peek[1:]
	return s.Token.Kind != token.EOF
}

// IsEOF reports whether no significant tokens remain.
func (s *TokenSource) IsEOF() bool {
	return s.Peek().Kind == token.EOF
}

// Trivia returns the trivia read so far.
func (s *TokenSource) Trivia() []ast.Trivia {
	return s.trivia
}

// Drain reads the rest of the stream so that all trailing trivia is
// collected.
func (s *TokenSource) Drain() {
	for s.Scan() {
	}
}
