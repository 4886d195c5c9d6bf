// Copyright © 2024 The Mago authors

// Package formatter normalizes the layout of source files.  It works on the
// token stream rather than the syntax tree, so it never moves code: keywords
// and casts are lowercased, trailing whitespace is trimmed, runs of blank
// lines are capped, and the file ends with exactly one newline.  String
// literals, heredocs, and inline text are copied verbatim.
package formatter

import (
	"fmt"

	"github.com/magophp/mago/parser/lexer"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

// Format formats source code.  If s is nil, DefaultSettings() is used.
func Format(src []byte, s *Settings) ([]byte, error) {
	return format(token.NewStringScanner(0, string(src)), "<stdin>", s)
}

// FormatFile formats the content of f, using its name in error messages.
func FormatFile(f *source.File, s *Settings) ([]byte, error) {
	return format(token.NewScanner(f), f.Name, s)
}

func format(sc *token.Scanner, name string, s *Settings) ([]byte, error) {
	if s == nil {
		d := DefaultSettings()
		s = &d
	}
	lex := lexer.New(sc)
	var toks []*token.Token
	for {
		tok := lex.ReadToken()
		if tok.Kind == token.SyntaxError {
			return nil, &Error{
				File:   name,
				Offset: int(tok.Span.Start),
				Msg:    tok.Value,
			}
		}
		if tok.Kind == token.EOF {
			break
		}
		toks = append(toks, tok)
	}

	pr := newPrinter(s, sc.Input())
	pr.writeTokens(toks)
	return pr.bytes(), nil
}

// Changed reports whether formatting src would modify it.
func Changed(src []byte, s *Settings) (bool, error) {
	out, err := Format(src, s)
	if err != nil {
		return false, err
	}
	return string(out) != string(src), nil
}

// Error is returned for input that cannot be tokenized.
type Error struct {
	File   string
	Offset int
	Msg    string
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s: offset %d: %s", err.File, err.Offset, err.Msg)
}
