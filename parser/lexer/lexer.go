// Copyright © 2024 The Mago authors

// Package lexer turns source text into tokens.  The lexer is a single-pass
// state machine; a small stack of modes tracks template text, script code,
// and the inside of interpolated strings and heredocs.
package lexer

import (
	"fmt"
	"strings"

	"github.com/magophp/mago/parser/token"
	"github.com/magophp/mago/source"
)

type modeKind uint8

const (
	modeInline modeKind = iota
	modeScript
	modeDoubleQuote
	modeBacktick
	modeHeredoc
	modeVarOffset
	modeProperty
)

type heredoc struct {
	label     string
	indent    int
	bodyStart int
	bodyEnd   int
	closeEnd  int
	nowdoc    bool
}

type mode struct {
	kind modeKind
	doc  *heredoc
}

// Lexer produces the token stream of a single file, trivia included.
type Lexer struct {
	scanner *token.Scanner
	modes   []mode
	prev    token.Kind
	done    bool
}

// New returns a lexer reading from s.  Lexing starts in template mode, before
// any opening tag.
func New(s *token.Scanner) *Lexer {
	return &Lexer{
		scanner: s,
		modes:   []mode{{kind: modeInline}},
	}
}

// Tokenize lexes the complete file.  The final token is always EOF.
func Tokenize(f *source.File) []*token.Token {
	lex := New(token.NewScanner(f))
	var toks []*token.Token
	for {
		tok := lex.ReadToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

// ReadToken returns the next token.  Once the input is exhausted ReadToken
// keeps returning EOF.
func (lex *Lexer) ReadToken() *token.Token {
	if lex.done {
		return lex.eof()
	}
	var tok *token.Token
	switch m := lex.top(); m.kind {
	case modeInline:
		tok = lex.readInline()
	case modeScript:
		tok = lex.readScript()
	case modeDoubleQuote:
		tok = lex.readInterpolated('"', nil)
	case modeBacktick:
		tok = lex.readInterpolated('`', nil)
	case modeHeredoc:
		tok = lex.readInterpolated(0, m.doc)
	case modeVarOffset:
		tok = lex.readVarOffset()
	case modeProperty:
		tok = lex.readProperty()
	}
	if tok.Kind == token.EOF {
		lex.done = true
	}
	if !tok.Kind.IsTrivia() {
		lex.prev = tok.Kind
	}
	return tok
}

func (lex *Lexer) eof() *token.Token {
	lex.scanner.Ignore()
	return lex.scanner.EmitToken(token.EOF)
}

func (lex *Lexer) top() mode {
	return lex.modes[len(lex.modes)-1]
}

func (lex *Lexer) push(m mode) {
	lex.modes = append(lex.modes, m)
}

func (lex *Lexer) pop() {
	if len(lex.modes) > 1 {
		lex.modes = lex.modes[:len(lex.modes)-1]
	}
}

func (lex *Lexer) replace(kind modeKind) {
	lex.modes[len(lex.modes)-1] = mode{kind: kind}
}

func (lex *Lexer) emit(kind token.Kind) *token.Token {
	return lex.scanner.EmitToken(kind)
}

// errorf emits a SyntaxError token covering the pending text, consuming at
// least one byte so that lexing always makes progress.
func (lex *Lexer) errorf(format string, v ...interface{}) *token.Token {
	s := lex.scanner
	if s.Pos() == s.Start() && !s.EOF() {
		s.Advance(1)
	}
	tok := s.EmitToken(token.SyntaxError)
	tok.Value = fmt.Sprintf(format, v...)
	return tok
}

// errorRest emits a SyntaxError covering the remaining input.
func (lex *Lexer) errorRest(format string, v ...interface{}) *token.Token {
	s := lex.scanner
	s.SetPos(len(s.Input()))
	tok := s.EmitToken(token.SyntaxError)
	tok.Value = fmt.Sprintf(format, v...)
	lex.modes = lex.modes[:1]
	lex.replace(modeScript)
	return tok
}

func (lex *Lexer) readInline() *token.Token {
	s := lex.scanner
	if s.EOF() {
		return lex.eof()
	}
	idx := strings.Index(s.Rest(), "<?")
	if idx < 0 {
		s.SetPos(len(s.Input()))
		return lex.emit(token.InlineText)
	}
	if idx > 0 {
		s.Advance(idx)
		return lex.emit(token.InlineText)
	}
	lex.replace(modeScript)
	switch {
	case s.HasPrefixFold("<?php") && (len(s.Rest()) == 5 || token.IsSpace(s.Peek(5))):
		s.Advance(5)
		return lex.emit(token.OpenTag)
	case s.HasPrefix("<?="):
		s.Advance(3)
		return lex.emit(token.EchoTag)
	default:
		s.Advance(2)
		return lex.emit(token.ShortOpenTag)
	}
}

func (lex *Lexer) readScript() *token.Token {
	s := lex.scanner
	if s.EOF() {
		return lex.eof()
	}
	c := s.Peek(0)
	switch {
	case token.IsSpace(c):
		s.AcceptSeq(token.IsSpace)
		return lex.emit(token.Whitespace)
	case c == '#' && s.Peek(1) == '[':
		s.Advance(2)
		return lex.emit(token.HashLeftBracket)
	case c == '#':
		lex.skipLineComment()
		return lex.emit(token.HashComment)
	case c == '/' && s.Peek(1) == '/':
		lex.skipLineComment()
		return lex.emit(token.SingleLineComment)
	case c == '/' && s.Peek(1) == '*':
		kind := token.MultiLineComment
		if s.Peek(2) == '*' && token.IsSpace(s.Peek(3)) {
			kind = token.DocBlockComment
		}
		end := strings.Index(s.Rest()[2:], "*/")
		if end < 0 {
			return lex.errorRest("unterminated comment")
		}
		s.Advance(end + 4)
		return lex.emit(kind)
	case c == '?' && s.Peek(1) == '>':
		s.Advance(2)
		if !s.AcceptByte('\n') {
			s.AcceptString("\r\n")
		}
		lex.replace(modeInline)
		return lex.emit(token.CloseTag)
	case c == '$':
		if token.IsNameStart(s.Peek(1)) {
			s.Advance(1)
			s.AcceptSeq(token.IsNameChar)
			return lex.emit(token.Variable)
		}
		s.Advance(1)
		return lex.emit(token.Dollar)
	case token.IsDigit(c) || (c == '.' && token.IsDigit(s.Peek(1))):
		return lex.readNumber()
	case token.IsNameStart(c) || (c == '\\' && token.IsNameStart(s.Peek(1))):
		return lex.readName()
	case c == '\'':
		return lex.readSingleQuoted()
	case c == '"':
		return lex.readDoubleQuoted()
	case c == '`':
		s.Advance(1)
		lex.push(mode{kind: modeBacktick})
		return lex.emit(token.Backtick)
	case c == '<' && s.HasPrefix("<<<"):
		return lex.readHeredocStart()
	case c == '(':
		if tok := lex.readCast(); tok != nil {
			return tok
		}
		s.Advance(1)
		return lex.emit(token.LeftParen)
	case c == '{':
		s.Advance(1)
		lex.push(mode{kind: modeScript})
		return lex.emit(token.LeftBrace)
	case c == '}':
		s.Advance(1)
		lex.pop()
		return lex.emit(token.RightBrace)
	}
	for _, op := range operators {
		if s.AcceptString(op.text) {
			return lex.emit(op.kind)
		}
	}
	return lex.errorf("unexpected character %q", c)
}

var operators = []struct {
	text string
	kind token.Kind
}{
	{"<=>", token.Spaceship},
	{"**=", token.PowEqual},
	{"...", token.Ellipsis},
	{"<<=", token.LeftShiftEqual},
	{">>=", token.RightShiftEqual},
	{"===", token.EqualEqualEqual},
	{"!==", token.BangEqualEqual},
	{"??=", token.QuestionQuestionEqual},
	{"?->", token.NullsafeArrow},
	{"->", token.Arrow},
	{"=>", token.DoubleArrow},
	{"::", token.DoubleColon},
	{"??", token.QuestionQuestion},
	{"+=", token.PlusEqual},
	{"-=", token.MinusEqual},
	{"*=", token.AsteriskEqual},
	{"/=", token.SlashEqual},
	{".=", token.DotEqual},
	{"%=", token.PercentEqual},
	{"&=", token.AmpersandEqual},
	{"|=", token.PipeEqual},
	{"^=", token.CaretEqual},
	{"==", token.EqualEqual},
	{"!=", token.BangEqual},
	{"<>", token.LessGreater},
	{"<=", token.LessEqual},
	{">=", token.GreaterEqual},
	{"**", token.Pow},
	{"&&", token.AmpersandAmpersand},
	{"||", token.PipePipe},
	{"<<", token.LeftShift},
	{">>", token.RightShift},
	{"++", token.PlusPlus},
	{"--", token.MinusMinus},
	{"|>", token.PipeGreater},
	{";", token.Semicolon},
	{",", token.Comma},
	{")", token.RightParen},
	{"[", token.LeftBracket},
	{"]", token.RightBracket},
	{":", token.Colon},
	{"?", token.Question},
	{"=", token.Equal},
	{"<", token.Less},
	{">", token.Greater},
	{"+", token.Plus},
	{"-", token.Minus},
	{"*", token.Asterisk},
	{"/", token.Slash},
	{"%", token.Percent},
	{".", token.Dot},
	{"!", token.Bang},
	{"&", token.Ampersand},
	{"|", token.Pipe},
	{"^", token.Caret},
	{"~", token.Tilde},
	{"@", token.At},
	{`\`, token.Backslash},
}

// skipLineComment consumes a // or # comment up to, but excluding, the line
// terminator or a closing tag.
func (lex *Lexer) skipLineComment() {
	s := lex.scanner
	for !s.EOF() {
		c := s.Peek(0)
		if c == '\n' || c == '\r' || (c == '?' && s.Peek(1) == '>') {
			return
		}
		s.Advance(1)
	}
}

func isHexDigit(c byte) bool {
	return token.IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (lex *Lexer) readNumber() *token.Token {
	s := lex.scanner
	if s.Peek(0) == '0' {
		var digit func(byte) bool
		switch s.Peek(1) {
		case 'x', 'X':
			digit = isHexDigit
		case 'b', 'B':
			digit = func(c byte) bool { return c == '0' || c == '1' }
		case 'o', 'O':
			digit = func(c byte) bool { return c >= '0' && c <= '7' }
		}
		if digit != nil {
			s.Advance(2)
			if s.AcceptSeq(func(c byte) bool { return digit(c) || c == '_' }) == 0 {
				return lex.errorf("invalid numeric literal")
			}
			return lex.emit(token.LiteralInteger)
		}
	}
	kind := token.LiteralInteger
	digits := func(c byte) bool { return token.IsDigit(c) || c == '_' }
	s.AcceptSeq(digits)
	if s.Peek(0) == '.' && s.Peek(1) != '.' && s.Peek(1) != '=' {
		s.Advance(1)
		s.AcceptSeq(digits)
		kind = token.LiteralFloat
	}
	if c := s.Peek(0); c == 'e' || c == 'E' {
		n := 1
		if sign := s.Peek(1); sign == '+' || sign == '-' {
			n = 2
		}
		if token.IsDigit(s.Peek(n)) {
			s.Advance(n)
			s.AcceptSeq(digits)
			kind = token.LiteralFloat
		}
	}
	return lex.emit(kind)
}

func (lex *Lexer) readName() *token.Token {
	s := lex.scanner
	qualified := s.AcceptByte('\\')
	fully := qualified
	s.AcceptSeq(token.IsNameChar)
	for s.Peek(0) == '\\' && token.IsNameStart(s.Peek(1)) {
		qualified = true
		s.Advance(1)
		s.AcceptSeq(token.IsNameChar)
	}
	switch {
	case fully:
		return lex.emit(token.FullyQualifiedIdentifier)
	case qualified:
		return lex.emit(token.QualifiedIdentifier)
	}
	word := s.Pending()
	switch lex.prev {
	case token.Arrow, token.NullsafeArrow:
		return lex.emit(token.Identifier)
	case token.DoubleColon:
		if !strings.EqualFold(word, "class") {
			return lex.emit(token.Identifier)
		}
	}
	if token.IsMagicConstant(word) {
		return lex.emit(token.MagicConstant)
	}
	if kind, ok := token.LookupKeyword(word); ok {
		return lex.emit(kind)
	}
	return lex.emit(token.Identifier)
}

func (lex *Lexer) readSingleQuoted() *token.Token {
	s := lex.scanner
	s.Advance(1)
	for !s.EOF() {
		switch s.Peek(0) {
		case '\\':
			s.Advance(2)
		case '\'':
			s.Advance(1)
			return lex.emit(token.LiteralString)
		default:
			s.Advance(1)
		}
	}
	return lex.errorRest("unterminated string literal")
}

// readDoubleQuoted emits a plain LiteralString when the string contains no
// interpolation, and otherwise an opening DoubleQuote.
func (lex *Lexer) readDoubleQuoted() *token.Token {
	s := lex.scanner
	rest := s.Rest()
	for i := 1; i < len(rest); i++ {
		switch c := rest[i]; c {
		case '\\':
			i++
		case '"':
			s.Advance(i + 1)
			return lex.emit(token.LiteralString)
		case '$':
			if i+1 < len(rest) && (token.IsNameStart(rest[i+1]) || rest[i+1] == '{') {
				s.Advance(1)
				lex.push(mode{kind: modeDoubleQuote})
				return lex.emit(token.DoubleQuote)
			}
		case '{':
			if i+1 < len(rest) && rest[i+1] == '$' {
				s.Advance(1)
				lex.push(mode{kind: modeDoubleQuote})
				return lex.emit(token.DoubleQuote)
			}
		}
	}
	return lex.errorRest("unterminated string literal")
}

func (lex *Lexer) readCast() *token.Token {
	switch lex.prev {
	case token.Identifier, token.QualifiedIdentifier, token.FullyQualifiedIdentifier,
		token.Variable, token.RightParen, token.RightBracket,
		token.Function, token.Fn, token.Catch:
		return nil
	}
	s := lex.scanner
	rest := s.Rest()
	i := 1
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	wordStart := i
	for i < len(rest) && ((rest[i] >= 'a' && rest[i] <= 'z') || (rest[i] >= 'A' && rest[i] <= 'Z')) {
		i++
	}
	word := rest[wordStart:i]
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	if i >= len(rest) || rest[i] != ')' {
		return nil
	}
	kind, ok := token.LookupCast(word)
	if !ok {
		return nil
	}
	s.Advance(i + 1)
	return lex.emit(kind)
}

func (lex *Lexer) readHeredocStart() *token.Token {
	s := lex.scanner
	text := s.Input()
	p := s.Pos() + 3
	for p < len(text) && (text[p] == ' ' || text[p] == '\t') {
		p++
	}
	var quote byte
	if p < len(text) && (text[p] == '\'' || text[p] == '"') {
		quote = text[p]
		p++
	}
	labelStart := p
	for p < len(text) && token.IsNameChar(text[p]) {
		p++
	}
	label := text[labelStart:p]
	if label == "" || !token.IsNameStart(label[0]) {
		s.Advance(3)
		return lex.errorf("invalid heredoc label")
	}
	if quote != 0 {
		if p >= len(text) || text[p] != quote {
			s.Advance(p - s.Pos())
			return lex.errorf("unterminated heredoc label")
		}
		p++
	}
	switch {
	case strings.HasPrefix(text[p:], "\r\n"):
		p += 2
	case strings.HasPrefix(text[p:], "\n"):
		p++
	default:
		s.Advance(p - s.Pos())
		return lex.errorf("expected newline after heredoc label")
	}
	doc := &heredoc{label: label, bodyStart: p, nowdoc: quote == '\''}
	if !findHeredocEnd(text, doc) {
		return lex.errorRest("unterminated heredoc %s", label)
	}
	s.Advance(p - s.Pos())
	lex.push(mode{kind: modeHeredoc, doc: doc})
	return lex.emit(token.DocumentStart)
}

// findHeredocEnd locates the closing label line and records the body range
// and the indentation to strip.
func findHeredocEnd(text string, doc *heredoc) bool {
	ls := doc.bodyStart
	for ls <= len(text) {
		ws := ls
		for ws < len(text) && (text[ws] == ' ' || text[ws] == '\t') {
			ws++
		}
		if strings.HasPrefix(text[ws:], doc.label) {
			after := ws + len(doc.label)
			if after >= len(text) || !token.IsNameChar(text[after]) {
				doc.indent = ws - ls
				doc.closeEnd = after
				doc.bodyEnd = ls
				if ls > doc.bodyStart {
					doc.bodyEnd = ls - 1
					if doc.bodyEnd > doc.bodyStart && text[doc.bodyEnd-1] == '\r' {
						doc.bodyEnd--
					}
				}
				return true
			}
		}
		nl := strings.IndexByte(text[ls:], '\n')
		if nl < 0 {
			return false
		}
		ls += nl + 1
	}
	return false
}

// stripIndent removes up to indent leading blanks from every line of text.
// The first line is only stripped when it starts a source line.
func stripIndent(text string, atLineStart bool, indent int) string {
	if indent == 0 {
		return text
	}
	var b strings.Builder
	lineStart := atLineStart
	for i := 0; i < len(text); i++ {
		if lineStart {
			n := 0
			for n < indent && i < len(text) && (text[i] == ' ' || text[i] == '\t') {
				i++
				n++
			}
			lineStart = false
			if i >= len(text) {
				break
			}
		}
		b.WriteByte(text[i])
		if text[i] == '\n' {
			lineStart = true
		}
	}
	return b.String()
}

// readInterpolated lexes the inside of a double-quoted string, a backtick
// command, or a heredoc body.  For heredocs term is zero and the body ends at
// doc.bodyEnd.
func (lex *Lexer) readInterpolated(term byte, doc *heredoc) *token.Token {
	s := lex.scanner
	text := s.Input()
	end := len(text)
	if doc != nil {
		end = doc.bodyEnd
	}
	if doc != nil && s.Pos() >= end {
		s.SetPos(doc.closeEnd)
		lex.pop()
		tok := lex.emit(token.DocumentEnd)
		tok.Value = doc.label
		return tok
	}
	if doc != nil && doc.nowdoc {
		s.SetPos(end)
		tok := lex.emit(token.StringPart)
		tok.Value = stripIndent(tok.Value, true, doc.indent)
		return tok
	}
	if s.EOF() {
		lex.modes = lex.modes[:1]
		return lex.errorf("unterminated string")
	}
	c := s.Peek(0)
	if doc == nil && c == term {
		s.Advance(1)
		lex.pop()
		if term == '`' {
			return lex.emit(token.Backtick)
		}
		return lex.emit(token.DoubleQuote)
	}
	switch {
	case c == '{' && s.Peek(1) == '$':
		s.Advance(1)
		lex.push(mode{kind: modeScript})
		return lex.emit(token.LeftBrace)
	case c == '$' && s.Peek(1) == '{':
		s.Advance(2)
		lex.push(mode{kind: modeScript})
		return lex.emit(token.DollarLeftBrace)
	case c == '$' && token.IsNameStart(s.Peek(1)):
		s.Advance(1)
		s.AcceptSeq(token.IsNameChar)
		switch {
		case s.Peek(0) == '[':
			lex.push(mode{kind: modeVarOffset})
		case s.Peek(0) == '-' && s.Peek(1) == '>' && token.IsNameStart(s.Peek(2)):
			lex.push(mode{kind: modeProperty})
		}
		return lex.emit(token.Variable)
	}
	lineStart := s.Pos() == 0 || text[s.Pos()-1] == '\n'
	for s.Pos() < end {
		c := s.Peek(0)
		if doc == nil && c == term {
			break
		}
		if c == '\\' {
			s.Advance(2)
			continue
		}
		if (c == '{' && s.Peek(1) == '$') || (c == '$' && (s.Peek(1) == '{' || token.IsNameStart(s.Peek(1)))) {
			break
		}
		s.Advance(1)
	}
	if s.Pos() > end {
		s.SetPos(end)
	}
	if s.Pos() == s.Start() {
		lex.modes = lex.modes[:1]
		return lex.errorf("unterminated string")
	}
	tok := lex.emit(token.StringPart)
	if doc != nil {
		tok.Value = stripIndent(tok.Value, lineStart, doc.indent)
	}
	return tok
}

func (lex *Lexer) readVarOffset() *token.Token {
	s := lex.scanner
	c := s.Peek(0)
	switch {
	case c == '[':
		s.Advance(1)
		return lex.emit(token.LeftBracket)
	case c == ']':
		s.Advance(1)
		lex.pop()
		return lex.emit(token.RightBracket)
	case c == '-' && token.IsDigit(s.Peek(1)):
		s.Advance(1)
		s.AcceptSeq(token.IsDigit)
		return lex.emit(token.LiteralInteger)
	case token.IsDigit(c):
		s.AcceptSeq(token.IsDigit)
		return lex.emit(token.LiteralInteger)
	case c == '$' && token.IsNameStart(s.Peek(1)):
		s.Advance(1)
		s.AcceptSeq(token.IsNameChar)
		return lex.emit(token.Variable)
	case token.IsNameStart(c):
		s.AcceptSeq(token.IsNameChar)
		return lex.emit(token.Identifier)
	}
	lex.pop()
	return lex.errorf("unexpected character %q in string offset", c)
}

func (lex *Lexer) readProperty() *token.Token {
	s := lex.scanner
	if s.AcceptString("->") {
		return lex.emit(token.Arrow)
	}
	lex.pop()
	s.AcceptSeq(token.IsNameChar)
	return lex.emit(token.Identifier)
}
