// Copyright © 2024 The Mago authors

// Package token defines the lexical tokens produced by the lexer.
package token

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/source"
)

// Source is an abstract stream of tokens which allows one token lookahead.
type Source interface {
	// Token returns the current token.  Token returns nil if Scan has not been
	// called.
	Token() *Token
	// Peek returns the next token in the stream.  At the end of the stream
	// Peek returns an EOF token.
	Peek() *Token
	// Scan advances the token stream if possible.  If there are no tokens
	// remaining Scan returns false.
	Scan() bool
}

// Token is a lexeme with its location.  Value holds the token text except for
// string parts inside heredocs, whose Value has the closing-label indentation
// removed from every line.
type Token struct {
	Kind  Kind
	Span  source.Span
	Value string
}

func (t *Token) String() string {
	return fmt.Sprintf("%s %q @%d", t.Kind, t.Value, t.Span.Start)
}

// Is reports whether t has one of the given kinds.
func (t *Token) Is(kinds ...Kind) bool {
	for _, k := range kinds {
		if t.Kind == k {
			return true
		}
	}
	return false
}

// Kind is the lexical class of a token.
type Kind uint16

const (
	Invalid Kind = iota
	EOF
	SyntaxError

	// Template boundaries
	InlineText
	OpenTag
	ShortOpenTag
	EchoTag
	CloseTag

	// Trivia
	Whitespace
	SingleLineComment
	HashComment
	MultiLineComment
	DocBlockComment

	// Names and literals
	Variable
	Identifier
	QualifiedIdentifier
	FullyQualifiedIdentifier
	LiteralInteger
	LiteralFloat
	LiteralString
	MagicConstant

	// Interpolated strings
	DoubleQuote
	Backtick
	StringPart
	DocumentStart
	DocumentEnd
	DollarLeftBrace

	// Casts
	IntCast
	FloatCast
	StringCast
	BoolCast
	ArrayCast
	ObjectCast
	UnsetCast

	// Punctuation
	Semicolon
	Comma
	LeftParen
	RightParen
	LeftBracket
	RightBracket
	LeftBrace
	RightBrace
	Arrow
	NullsafeArrow
	DoubleArrow
	DoubleColon
	Colon
	Question
	QuestionQuestion
	QuestionQuestionEqual
	Equal
	PlusEqual
	MinusEqual
	AsteriskEqual
	SlashEqual
	DotEqual
	PercentEqual
	PowEqual
	AmpersandEqual
	PipeEqual
	CaretEqual
	LeftShiftEqual
	RightShiftEqual
	EqualEqual
	BangEqual
	LessGreater
	EqualEqualEqual
	BangEqualEqual
	Less
	Greater
	LessEqual
	GreaterEqual
	Spaceship
	Plus
	Minus
	Asterisk
	Slash
	Percent
	Pow
	Dot
	Bang
	AmpersandAmpersand
	PipePipe
	Ampersand
	Pipe
	Caret
	Tilde
	LeftShift
	RightShift
	PlusPlus
	MinusMinus
	At
	Ellipsis
	Dollar
	Backslash
	HashLeftBracket
	PipeGreater

	// Keywords
	keywordStart
	Abstract
	And
	Array
	As
	Break
	Callable
	Case
	Catch
	Class
	Clone
	Const
	Continue
	Declare
	Default
	Die
	Do
	Echo
	Else
	ElseIf
	Empty
	EndDeclare
	EndFor
	EndForeach
	EndIf
	EndSwitch
	EndWhile
	Eval
	Exit
	Extends
	Final
	Finally
	Fn
	For
	Foreach
	Function
	Global
	Goto
	HaltCompiler
	If
	Implements
	Include
	IncludeOnce
	Instanceof
	Insteadof
	Interface
	Isset
	List
	Match
	Namespace
	New
	Or
	Print
	Private
	Protected
	Public
	Readonly
	Require
	RequireOnce
	Return
	Static
	Switch
	Throw
	Trait
	Try
	Unset
	Use
	Var
	While
	Xor
	Yield
	keywordEnd

	numKinds
)

var kindStrings = [numKinds]string{
	Invalid:                  "invalid",
	EOF:                      "end of file",
	SyntaxError:              "syntax error",
	InlineText:               "inline text",
	OpenTag:                  "<?php",
	ShortOpenTag:             "<?",
	EchoTag:                  "<?=",
	CloseTag:                 "?>",
	Whitespace:               "whitespace",
	SingleLineComment:        "comment",
	HashComment:              "comment",
	MultiLineComment:         "comment",
	DocBlockComment:          "docblock",
	Variable:                 "variable",
	Identifier:               "identifier",
	QualifiedIdentifier:      "qualified identifier",
	FullyQualifiedIdentifier: "fully qualified identifier",
	LiteralInteger:           "integer literal",
	LiteralFloat:             "float literal",
	LiteralString:            "string literal",
	MagicConstant:            "magic constant",
	DoubleQuote:              `"`,
	Backtick:                 "`",
	StringPart:               "string part",
	DocumentStart:            "<<<",
	DocumentEnd:              "heredoc end",
	DollarLeftBrace:          "${",
	IntCast:                  "(int)",
	FloatCast:                "(float)",
	StringCast:               "(string)",
	BoolCast:                 "(bool)",
	ArrayCast:                "(array)",
	ObjectCast:               "(object)",
	UnsetCast:                "(unset)",
	Semicolon:                ";",
	Comma:                    ",",
	LeftParen:                "(",
	RightParen:               ")",
	LeftBracket:              "[",
	RightBracket:             "]",
	LeftBrace:                "{",
	RightBrace:               "}",
	Arrow:                    "->",
	NullsafeArrow:            "?->",
	DoubleArrow:              "=>",
	DoubleColon:              "::",
	Colon:                    ":",
	Question:                 "?",
	QuestionQuestion:         "??",
	QuestionQuestionEqual:    "??=",
	Equal:                    "=",
	PlusEqual:                "+=",
	MinusEqual:               "-=",
	AsteriskEqual:            "*=",
	SlashEqual:               "/=",
	DotEqual:                 ".=",
	PercentEqual:             "%=",
	PowEqual:                 "**=",
	AmpersandEqual:           "&=",
	PipeEqual:                "|=",
	CaretEqual:               "^=",
	LeftShiftEqual:           "<<=",
	RightShiftEqual:          ">>=",
	EqualEqual:               "==",
	BangEqual:                "!=",
	LessGreater:              "<>",
	EqualEqualEqual:          "===",
	BangEqualEqual:           "!==",
	Less:                     "<",
	Greater:                  ">",
	LessEqual:                "<=",
	GreaterEqual:             ">=",
	Spaceship:                "<=>",
	Plus:                     "+",
	Minus:                    "-",
	Asterisk:                 "*",
	Slash:                    "/",
	Percent:                  "%",
	Pow:                      "**",
	Dot:                      ".",
	Bang:                     "!",
	AmpersandAmpersand:       "&&",
	PipePipe:                 "||",
	Ampersand:                "&",
	Pipe:                     "|",
	Caret:                    "^",
	Tilde:                    "~",
	LeftShift:                "<<",
	RightShift:               ">>",
	PlusPlus:                 "++",
	MinusMinus:               "--",
	At:                       "@",
	Ellipsis:                 "...",
	Dollar:                   "$",
	Backslash:                `\`,
	HashLeftBracket:          "#[",
	PipeGreater:              "|>",
	Abstract:                 "abstract",
	And:                      "and",
	Array:                    "array",
	As:                       "as",
	Break:                    "break",
	Callable:                 "callable",
	Case:                     "case",
	Catch:                    "catch",
	Class:                    "class",
	Clone:                    "clone",
	Const:                    "const",
	Continue:                 "continue",
	Declare:                  "declare",
	Default:                  "default",
	Die:                      "die",
	Do:                       "do",
	Echo:                     "echo",
	Else:                     "else",
	ElseIf:                   "elseif",
	Empty:                    "empty",
	EndDeclare:               "enddeclare",
	EndFor:                   "endfor",
	EndForeach:               "endforeach",
	EndIf:                    "endif",
	EndSwitch:                "endswitch",
	EndWhile:                 "endwhile",
	Eval:                     "eval",
	Exit:                     "exit",
	Extends:                  "extends",
	Final:                    "final",
	Finally:                  "finally",
	Fn:                       "fn",
	For:                      "for",
	Foreach:                  "foreach",
	Function:                 "function",
	Global:                   "global",
	Goto:                     "goto",
	HaltCompiler:             "__halt_compiler",
	If:                       "if",
	Implements:               "implements",
	Include:                  "include",
	IncludeOnce:              "include_once",
	Instanceof:               "instanceof",
	Insteadof:                "insteadof",
	Interface:                "interface",
	Isset:                    "isset",
	List:                     "list",
	Match:                    "match",
	Namespace:                "namespace",
	New:                      "new",
	Or:                       "or",
	Print:                    "print",
	Private:                  "private",
	Protected:                "protected",
	Public:                   "public",
	Readonly:                 "readonly",
	Require:                  "require",
	RequireOnce:              "require_once",
	Return:                   "return",
	Static:                   "static",
	Switch:                   "switch",
	Throw:                    "throw",
	Trait:                    "trait",
	Try:                      "try",
	Unset:                    "unset",
	Use:                      "use",
	Var:                      "var",
	While:                    "while",
	Xor:                      "xor",
	Yield:                    "yield",
}

func (k Kind) String() string {
	if k >= numKinds || kindStrings[k] == "" {
		return kindStrings[Invalid]
	}
	return kindStrings[k]
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k > keywordStart && k < keywordEnd
}

// IsTrivia reports whether k is whitespace or a comment.
func (k Kind) IsTrivia() bool {
	switch k {
	case Whitespace, SingleLineComment, HashComment, MultiLineComment, DocBlockComment:
		return true
	}
	return false
}

// IsComment reports whether k is any kind of comment.
func (k Kind) IsComment() bool {
	return k.IsTrivia() && k != Whitespace
}

// IsCast reports whether k is a (type) cast.
func (k Kind) IsCast() bool {
	return k >= IntCast && k <= UnsetCast
}

// IsAssignment reports whether k is = or a compound assignment operator.
func (k Kind) IsAssignment() bool {
	switch k {
	case Equal, PlusEqual, MinusEqual, AsteriskEqual, SlashEqual, DotEqual,
		PercentEqual, PowEqual, AmpersandEqual, PipeEqual, CaretEqual,
		LeftShiftEqual, RightShiftEqual, QuestionQuestionEqual:
		return true
	}
	return false
}

// IsName reports whether k is any identifier form.
func (k Kind) IsName() bool {
	return k == Identifier || k == QualifiedIdentifier || k == FullyQualifiedIdentifier
}

var keywords map[string]Kind

func init() {
	keywords = make(map[string]Kind, int(keywordEnd-keywordStart))
	for k := keywordStart + 1; k < keywordEnd; k++ {
		keywords[kindStrings[k]] = k
	}
}

// LookupKeyword returns the keyword kind for word, matched case-insensitively.
func LookupKeyword(word string) (Kind, bool) {
	k, ok := keywords[strings.ToLower(word)]
	return k, ok
}

var casts = map[string]Kind{
	"int":     IntCast,
	"integer": IntCast,
	"float":   FloatCast,
	"double":  FloatCast,
	"real":    FloatCast,
	"string":  StringCast,
	"binary":  StringCast,
	"bool":    BoolCast,
	"boolean": BoolCast,
	"array":   ArrayCast,
	"object":  ObjectCast,
	"unset":   UnsetCast,
}

// LookupCast returns the cast kind named by word, matched case-insensitively.
func LookupCast(word string) (Kind, bool) {
	k, ok := casts[strings.ToLower(word)]
	return k, ok
}

var magicConstants = map[string]bool{
	"__line__":      true,
	"__file__":      true,
	"__dir__":       true,
	"__function__":  true,
	"__class__":     true,
	"__method__":    true,
	"__namespace__": true,
	"__trait__":     true,
	"__property__":  true,
}

// IsMagicConstant reports whether word is a compile-time magic constant.
func IsMagicConstant(word string) bool {
	return magicConstants[strings.ToLower(word)]
}
