// Copyright © 2024 The Mago authors

package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

type tok struct {
	kind  token.Kind
	value string
}

func lex(t *testing.T, src string) []tok {
	t.Helper()
	db := source.NewDatabase(interner.New())
	f := db.Add("test.php", src, source.UserDefined)
	var out []tok
	for _, tk := range Tokenize(f) {
		require.LessOrEqual(t, int(tk.Span.End), len(src))
		if tk.Kind.IsTrivia() {
			continue
		}
		out = append(out, tok{tk.Kind, tk.Value})
	}
	return out
}

func TestLexer(t *testing.T) {
	tests := []struct {
		input  string
		tokens []tok
	}{
		{``, []tok{{token.EOF, ""}}},
		{`<html>`, []tok{{token.InlineText, "<html>"}, {token.EOF, ""}}},
		{`<?php echo $a;`, []tok{
			{token.OpenTag, "<?php"},
			{token.Echo, "echo"},
			{token.Variable, "$a"},
			{token.Semicolon, ";"},
			{token.EOF, ""},
		}},
		{`<?php ECHO Foo\Bar, \Baz, namespace\Qux;`, []tok{
			{token.OpenTag, "<?php"},
			{token.Echo, "ECHO"},
			{token.QualifiedIdentifier, `Foo\Bar`},
			{token.Comma, ","},
			{token.FullyQualifiedIdentifier, `\Baz`},
			{token.Comma, ","},
			{token.QualifiedIdentifier, `namespace\Qux`},
			{token.Semicolon, ";"},
			{token.EOF, ""},
		}},
		{`<?php 10 0x1F 0b101 1_000 0.5 .5 1e3 12.02E+5`, []tok{
			{token.OpenTag, "<?php"},
			{token.LiteralInteger, "10"},
			{token.LiteralInteger, "0x1F"},
			{token.LiteralInteger, "0b101"},
			{token.LiteralInteger, "1_000"},
			{token.LiteralFloat, "0.5"},
			{token.LiteralFloat, ".5"},
			{token.LiteralFloat, "1e3"},
			{token.LiteralFloat, "12.02E+5"},
			{token.EOF, ""},
		}},
		{`<?php $a ??= $b?->c <=> $d |> f(...);`, []tok{
			{token.OpenTag, "<?php"},
			{token.Variable, "$a"},
			{token.QuestionQuestionEqual, "??="},
			{token.Variable, "$b"},
			{token.NullsafeArrow, "?->"},
			{token.Identifier, "c"},
			{token.Spaceship, "<=>"},
			{token.Variable, "$d"},
			{token.PipeGreater, "|>"},
			{token.Identifier, "f"},
			{token.LeftParen, "("},
			{token.Ellipsis, "..."},
			{token.RightParen, ")"},
			{token.Semicolon, ";"},
			{token.EOF, ""},
		}},
		{`<?php $x->list; Foo::class; Foo::new;`, []tok{
			{token.OpenTag, "<?php"},
			{token.Variable, "$x"},
			{token.Arrow, "->"},
			{token.Identifier, "list"},
			{token.Semicolon, ";"},
			{token.Identifier, "Foo"},
			{token.DoubleColon, "::"},
			{token.Class, "class"},
			{token.Semicolon, ";"},
			{token.Identifier, "Foo"},
			{token.DoubleColon, "::"},
			{token.Identifier, "new"},
			{token.Semicolon, ";"},
			{token.EOF, ""},
		}},
		{`a<?= $b ?>c`, []tok{
			{token.InlineText, "a"},
			{token.EchoTag, "<?="},
			{token.Variable, "$b"},
			{token.CloseTag, "?>"},
			{token.InlineText, "c"},
			{token.EOF, ""},
		}},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			assert.Equal(t, test.tokens, lex(t, test.input))
		})
	}
}

func TestCasts(t *testing.T) {
	got := lex(t, `<?php $a = (int) $b . ( string )$c; foo(int);`)
	assert.Equal(t, []tok{
		{token.OpenTag, "<?php"},
		{token.Variable, "$a"},
		{token.Equal, "="},
		{token.IntCast, "(int)"},
		{token.Variable, "$b"},
		{token.Dot, "."},
		{token.StringCast, "( string )"},
		{token.Variable, "$c"},
		{token.Semicolon, ";"},
		{token.Identifier, "foo"},
		{token.LeftParen, "("},
		{token.Identifier, "int"},
		{token.RightParen, ")"},
		{token.Semicolon, ";"},
		{token.EOF, ""},
	}, got)
}

func TestStrings(t *testing.T) {
	got := lex(t, `<?php 'a\'b' "plain" "x $y {$z->w} $a[0] $o->p";`)
	assert.Equal(t, []tok{
		{token.OpenTag, "<?php"},
		{token.LiteralString, `'a\'b'`},
		{token.LiteralString, `"plain"`},
		{token.DoubleQuote, `"`},
		{token.StringPart, "x "},
		{token.Variable, "$y"},
		{token.StringPart, " "},
		{token.LeftBrace, "{"},
		{token.Variable, "$z"},
		{token.Arrow, "->"},
		{token.Identifier, "w"},
		{token.RightBrace, "}"},
		{token.StringPart, " "},
		{token.Variable, "$a"},
		{token.LeftBracket, "["},
		{token.LiteralInteger, "0"},
		{token.RightBracket, "]"},
		{token.StringPart, " "},
		{token.Variable, "$o"},
		{token.Arrow, "->"},
		{token.Identifier, "p"},
		{token.DoubleQuote, `"`},
		{token.Semicolon, ";"},
		{token.EOF, ""},
	}, got)
}

func TestHeredocIndent(t *testing.T) {
	src := "<?php\n$a = <<<EOT\n    one\n      two $x\n    EOT;\n"
	got := lex(t, src)
	assert.Equal(t, []tok{
		{token.OpenTag, "<?php"},
		{token.Variable, "$a"},
		{token.Equal, "="},
		{token.DocumentStart, "<<<EOT\n"},
		{token.StringPart, "one\n  two "},
		{token.Variable, "$x"},
		{token.DocumentEnd, "EOT"},
		{token.Semicolon, ";"},
		{token.EOF, ""},
	}, got)
}

func TestNowdoc(t *testing.T) {
	src := "<?php\n$a = <<<'EOT'\n  raw $x\n  EOT;\n"
	got := lex(t, src)
	assert.Equal(t, []tok{
		{token.OpenTag, "<?php"},
		{token.Variable, "$a"},
		{token.Equal, "="},
		{token.DocumentStart, "<<<'EOT'\n"},
		{token.StringPart, "raw $x"},
		{token.DocumentEnd, "EOT"},
		{token.Semicolon, ";"},
		{token.EOF, ""},
	}, got)
}

func TestComments(t *testing.T) {
	db := source.NewDatabase(interner.New())
	f := db.Add("c.php", "<?php // one\n/** doc */ # two\n/* three */", source.UserDefined)
	var kinds []token.Kind
	for _, tk := range Tokenize(f) {
		if tk.Kind.IsComment() {
			kinds = append(kinds, tk.Kind)
		}
	}
	assert.Equal(t, []token.Kind{
		token.SingleLineComment,
		token.DocBlockComment,
		token.HashComment,
		token.MultiLineComment,
	}, kinds)
}

func TestSyntaxError(t *testing.T) {
	got := lex(t, "<?php 'unterminated")
	require.Len(t, got, 3)
	assert.Equal(t, token.SyntaxError, got[1].kind)
	assert.Equal(t, token.EOF, got[2].kind)
}
