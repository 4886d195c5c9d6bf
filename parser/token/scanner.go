// Copyright © 2024 The Mago authors

package token

import (
	"strings"

	"github.com/magophp/mago/source"
)

// Scanner facilitates construction of tokens from a source file.  It tracks
// the start of the current token and the read position; the text in between
// becomes the token emitted by EmitToken.
type Scanner struct {
	file  source.FileID
	text  string
	start int
	pos   int
}

// NewScanner initializes and returns a new Scanner over f.
func NewScanner(f *source.File) *Scanner {
	return &Scanner{file: f.ID, text: f.Content}
}

// NewStringScanner scans text as though it were the content of file.
func NewStringScanner(file source.FileID, text string) *Scanner {
	return &Scanner{file: file, text: text}
}

// File returns the id of the file being scanned.
func (s *Scanner) File() source.FileID {
	return s.file
}

// Text returns the complete input.
func (s *Scanner) Input() string {
	return s.text
}

// EOF reports whether every byte has been consumed.
func (s *Scanner) EOF() bool {
	return s.pos >= len(s.text)
}

// Pos returns the read position.
func (s *Scanner) Pos() int {
	return s.pos
}

// Start returns the offset where the pending token began.
func (s *Scanner) Start() int {
	return s.start
}

// SetPos moves the read position.  It never moves before the token start.
func (s *Scanner) SetPos(pos int) {
	if pos < s.start {
		pos = s.start
	}
	if pos > len(s.text) {
		pos = len(s.text)
	}
	s.pos = pos
}

// Peek returns the byte n positions after the read position, or 0 past the
// end of input.
func (s *Scanner) Peek(n int) byte {
	if s.pos+n >= len(s.text) {
		return 0
	}
	return s.text[s.pos+n]
}

// HasPrefix reports whether the unread input starts with prefix.
func (s *Scanner) HasPrefix(prefix string) bool {
	return strings.HasPrefix(s.text[s.pos:], prefix)
}

// HasPrefixFold is HasPrefix ignoring ASCII case.
func (s *Scanner) HasPrefixFold(prefix string) bool {
	rest := s.text[s.pos:]
	return len(rest) >= len(prefix) && strings.EqualFold(rest[:len(prefix)], prefix)
}

// Rest returns the unread input.
func (s *Scanner) Rest() string {
	return s.text[s.pos:]
}

// Advance consumes n bytes.
func (s *Scanner) Advance(n int) {
	s.SetPos(s.pos + n)
}

// Accept consumes the next byte if fn returns true for it.
func (s *Scanner) Accept(fn func(c byte) bool) bool {
	if s.EOF() || !fn(s.text[s.pos]) {
		return false
	}
	s.pos++
	return true
}

// AcceptByte consumes c if it is next.
func (s *Scanner) AcceptByte(c byte) bool {
	if s.EOF() || s.text[s.pos] != c {
		return false
	}
	s.pos++
	return true
}

// AcceptString consumes lit if the input starts with it.
func (s *Scanner) AcceptString(lit string) bool {
	if !s.HasPrefix(lit) {
		return false
	}
	s.pos += len(lit)
	return true
}

// AcceptSeq consumes bytes while fn returns true and returns the number
// consumed.
func (s *Scanner) AcceptSeq(fn func(c byte) bool) int {
	n := 0
	for s.Accept(fn) {
		n++
	}
	return n
}

// Ignore discards the pending token text.
func (s *Scanner) Ignore() {
	s.start = s.pos
}

// Pending returns the text scanned since the last EmitToken or Ignore.
func (s *Scanner) Pending() string {
	return s.text[s.start:s.pos]
}

// Span returns the span of the pending token.
func (s *Scanner) Span() source.Span {
	return source.NewSpan(s.file, s.start, s.pos)
}

// EmitToken returns a token containing the text scanned since the last call to
// either EmitToken or Ignore.
func (s *Scanner) EmitToken(kind Kind) *Token {
	tok := &Token{Kind: kind, Span: s.Span(), Value: s.Pending()}
	s.start = s.pos
	return tok
}

// IsNameStart reports whether c may begin an identifier.
func IsNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

// IsNameChar reports whether c may continue an identifier.
func IsNameChar(c byte) bool {
	return IsNameStart(c) || IsDigit(c)
}

// IsDigit reports whether c is an ASCII digit.
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// IsSpace reports whether c is whitespace.
func IsSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
