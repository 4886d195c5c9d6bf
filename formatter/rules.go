// Copyright © 2024 The Mago authors

package formatter

import "github.com/magophp/mago/parser/token"

// Settings holds formatting configuration.
type Settings struct {
	MaxBlankLines          int  // max consecutive blank lines (default: 1)
	LowercaseKeywords      bool // lowercase reserved words and casts
	TrimTrailingWhitespace bool
}

// DefaultSettings returns the default formatting configuration.
func DefaultSettings() Settings {
	return Settings{
		MaxBlankLines:          1,
		LowercaseKeywords:      true,
		TrimTrailingWhitespace: true,
	}
}

// lowercaseRule reports whether tok may be lowercased given the previous
// significant token.  A reserved word following a member or declaration
// keyword is a name, and its spelling is kept.
func lowercaseRule(prev, tok *token.Token) bool {
	if tok.Kind.IsCast() {
		return true
	}
	if !tok.Kind.IsKeyword() {
		return false
	}
	if prev == nil {
		return true
	}
	switch prev.Kind {
	case token.Arrow, token.NullsafeArrow, token.DoubleColon,
		token.Function, token.Const, token.Case,
		token.Class, token.Interface, token.Trait:
		return false
	}
	return true
}

// preserved reports whether the text of kind is copied without change.
func preserved(kind token.Kind) bool {
	switch kind {
	case token.InlineText, token.LiteralString, token.StringPart,
		token.DocumentStart, token.DocumentEnd,
		token.MultiLineComment, token.DocBlockComment:
		return true
	}
	return false
}
