// Copyright © 2024 The Mago authors

package formatter

import (
	"bytes"
	"strings"

	"github.com/magophp/mago/parser/token"
)

type printer struct {
	buf    bytes.Buffer
	cfg    *Settings
	src    string
	pos    int          // end of the last copied token
	prev   *token.Token // last significant token
	inline bool         // the last token was inline text
}

func newPrinter(cfg *Settings, src string) *printer {
	return &printer{cfg: cfg, src: src}
}

// writeTokens writes toks, normalizing whitespace and keyword case.
func (p *printer) writeTokens(toks []*token.Token) {
	for _, tok := range toks {
		start, end := int(tok.Span.Start), int(tok.Span.End)
		if start > p.pos {
			p.buf.WriteString(p.src[p.pos:start])
		}
		text := p.src[start:end]
		switch {
		case tok.Kind == token.Whitespace:
			p.writeWhitespace(text)
		case preserved(tok.Kind):
			p.buf.WriteString(text)
		case tok.Kind == token.SingleLineComment || tok.Kind == token.HashComment:
			p.writeLineComment(text)
		case p.cfg.LowercaseKeywords && lowercaseRule(p.prev, tok):
			p.buf.WriteString(strings.ToLower(text))
		default:
			p.buf.WriteString(text)
		}
		p.pos = end
		p.inline = tok.Kind == token.InlineText
		if !tok.Kind.IsTrivia() {
			p.prev = tok
		}
	}
	if p.pos < len(p.src) {
		p.buf.WriteString(p.src[p.pos:])
	}
}

// writeWhitespace writes a run of script whitespace.  Blank lines beyond
// the configured maximum are dropped along with trailing blanks.
func (p *printer) writeWhitespace(text string) {
	newlines := strings.Count(text, "\n")
	if newlines == 0 {
		p.buf.WriteString(text)
		return
	}
	first := text[:strings.IndexByte(text, '\n')]
	last := text[strings.LastIndexByte(text, '\n')+1:]
	eol := "\n"
	if strings.HasSuffix(first, "\r") {
		eol = "\r\n"
		first = first[:len(first)-1]
	}
	if p.cfg.TrimTrailingWhitespace {
		first = strings.TrimRight(first, " \t")
	}
	if limit := p.cfg.MaxBlankLines + 1; newlines > limit {
		newlines = limit
	}
	p.buf.WriteString(first)
	for i := 0; i < newlines; i++ {
		p.buf.WriteString(eol)
	}
	p.buf.WriteString(last)
}

func (p *printer) writeLineComment(text string) {
	if p.cfg.TrimTrailingWhitespace {
		text = strings.TrimRight(text, " \t\r")
	}
	p.buf.WriteString(text)
}

// bytes returns the output.  Output ending in script mode ends with exactly
// one newline; output ending in inline text is returned as is.
func (p *printer) bytes() []byte {
	out := p.buf.String()
	if out == "" || p.inline {
		return []byte(out)
	}
	return []byte(strings.TrimRight(out, " \t\r\n") + "\n")
}
