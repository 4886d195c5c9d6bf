// Copyright © 2024 The Mago authors

// Package docblock parses documentation comments and the type language used
// in their tags.
package docblock

import (
	"strings"
)

// Tag is one @tag of a docblock.  Offset is the byte offset of the @ within
// the comment text.
type Tag struct {
	Name   string
	Body   string
	Offset int
}

// Docblock is a parsed documentation comment.
type Docblock struct {
	Summary string
	Tags    []Tag
}

// Parse parses the text of a /** ... */ comment.
func Parse(text string) *Docblock {
	doc := &Docblock{}
	body := strings.TrimPrefix(text, "/**")
	body = strings.TrimSuffix(body, "*/")
	base := len(text) - len(strings.TrimPrefix(text, "/**"))
	var summary []string
	var cur *Tag
	offset := base
	for _, line := range strings.SplitAfter(body, "\n") {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimLeft(line, " \t")
		trimmed = strings.TrimPrefix(trimmed, "*")
		content := strings.TrimSpace(trimmed)
		if strings.HasPrefix(content, "@") {
			name, rest, _ := strings.Cut(content[1:], " ")
			if i := strings.IndexAny(name, "\t("); i > 0 {
				rest = name[i:] + " " + rest
				name = name[:i]
			}
			doc.Tags = append(doc.Tags, Tag{
				Name:   strings.ToLower(name),
				Body:   strings.TrimSpace(rest),
				Offset: lineStart + strings.Index(line, "@"),
			})
			cur = &doc.Tags[len(doc.Tags)-1]
			continue
		}
		if cur != nil {
			if content != "" {
				cur.Body += " " + content
			}
			continue
		}
		summary = append(summary, content)
	}
	doc.Summary = strings.TrimSpace(strings.Join(summary, "\n"))
	return doc
}

// Find returns the tags named name.
func (d *Docblock) Find(name string) []Tag {
	var out []Tag
	for _, t := range d.Tags {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}

// Has reports whether a tag named name is present.
func (d *Docblock) Has(name string) bool {
	for _, t := range d.Tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

// findPrefixed returns the tags for name, preferring the psalm- and
// phpstan- prefixed variants when present.
func (d *Docblock) findPrefixed(name string) []Tag {
	for _, prefix := range []string{"psalm-", "phpstan-"} {
		if tags := d.Find(prefix + name); len(tags) > 0 {
			return tags
		}
	}
	return d.Find(name)
}

// Param is a parsed @param tag.
type Param struct {
	Type     *TypeExpr
	Name     string
	Variadic bool
	ByRef    bool
}

// Params returns the @param tags whose type parses.
func (d *Docblock) Params() []Param {
	var out []Param
	for _, tag := range d.findPrefixed("param") {
		typeText, rest := SplitType(tag.Body)
		t, err := ParseType(typeText)
		if err != nil {
			continue
		}
		p := Param{Type: t}
		name, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
		if strings.HasPrefix(name, "&") {
			p.ByRef = true
			name = name[1:]
		}
		if strings.HasPrefix(name, "...") {
			p.Variadic = true
			name = name[3:]
		}
		p.Name = strings.TrimPrefix(name, "$")
		if p.Name == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Return returns the type of the @return tag.
func (d *Docblock) Return() (*TypeExpr, bool) {
	return d.typeTag("return")
}

// Var is a parsed @var tag.  Name is empty when the tag names no variable.
type Var struct {
	Type *TypeExpr
	Name string
}

// Var returns the @var tag.
func (d *Docblock) Var() (Var, bool) {
	tags := d.findPrefixed("var")
	if len(tags) == 0 {
		return Var{}, false
	}
	typeText, rest := SplitType(tags[0].Body)
	t, err := ParseType(typeText)
	if err != nil {
		return Var{}, false
	}
	name, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if !strings.HasPrefix(name, "$") {
		name = ""
	}
	return Var{Type: t, Name: strings.TrimPrefix(name, "$")}, true
}

// Template is a parsed @template tag.
type Template struct {
	Name      string
	Bound     *TypeExpr
	Covariant bool
}

// Templates returns the @template and @template-covariant tags in
// declaration order.
func (d *Docblock) Templates() []Template {
	var out []Template
	for _, tag := range d.Tags {
		name := strings.TrimPrefix(strings.TrimPrefix(tag.Name, "psalm-"), "phpstan-")
		if name != "template" && name != "template-covariant" {
			continue
		}
		fields := strings.Fields(tag.Body)
		if len(fields) == 0 {
			continue
		}
		tpl := Template{Name: fields[0], Covariant: name == "template-covariant"}
		if len(fields) > 2 && (fields[1] == "of" || fields[1] == "as") {
			rest := strings.TrimSpace(tag.Body[len(fields[0]):])
			rest = strings.TrimSpace(rest[len(fields[1]):])
			typeText, _ := SplitType(rest)
			if bound, err := ParseType(typeText); err == nil {
				tpl.Bound = bound
			}
		}
		out = append(out, tpl)
	}
	return out
}

// Throws returns the types of the @throws tags.
func (d *Docblock) Throws() []*TypeExpr {
	var out []*TypeExpr
	for _, tag := range d.Find("throws") {
		typeText, _ := SplitType(tag.Body)
		if t, err := ParseType(typeText); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// Extends returns the types of the @extends tags.
func (d *Docblock) Extends() []*TypeExpr {
	return d.typeTags("extends", "template-extends")
}

// Implements returns the types of the @implements tags.
func (d *Docblock) Implements() []*TypeExpr {
	return d.typeTags("implements", "template-implements")
}

// Deprecated reports whether the docblock carries @deprecated.
func (d *Docblock) Deprecated() bool {
	return d.Has("deprecated")
}

// Pure reports whether the docblock carries @pure or a prefixed variant.
func (d *Docblock) Pure() bool {
	return d.Has("pure") || d.Has("psalm-pure") || d.Has("phpstan-pure")
}

func (d *Docblock) typeTag(name string) (*TypeExpr, bool) {
	tags := d.findPrefixed(name)
	if len(tags) == 0 {
		return nil, false
	}
	typeText, _ := SplitType(tags[0].Body)
	t, err := ParseType(typeText)
	if err != nil {
		return nil, false
	}
	return t, true
}

func (d *Docblock) typeTags(names ...string) []*TypeExpr {
	var out []*TypeExpr
	for _, name := range names {
		for _, tag := range d.findPrefixed(name) {
			typeText, _ := SplitType(tag.Body)
			if t, err := ParseType(typeText); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// SplitType splits a tag body into its leading type and the remainder.  The
// type ends at the first whitespace outside brackets that is not adjacent to
// a union, intersection, or colon separator.
func SplitType(body string) (typ, rest string) {
	body = strings.TrimSpace(body)
	depth := 0
	for i := 0; i < len(body); i++ {
		switch c := body[i]; c {
		case '<', '(', '{', '[':
			depth++
		case '>', ')', '}', ']':
			if depth > 0 {
				depth--
			}
		case '\'', '"':
			if end := strings.IndexByte(body[i+1:], c); end >= 0 {
				i += end + 1
			}
		case ' ', '\t':
			if depth > 0 {
				continue
			}
			j := i
			for j < len(body) && (body[j] == ' ' || body[j] == '\t') {
				j++
			}
			if i > 0 && strings.ContainsRune("|&:", rune(body[i-1])) {
				continue
			}
			if j < len(body) && strings.ContainsRune("|&", rune(body[j])) {
				i = j - 1
				continue
			}
			return body[:i], strings.TrimSpace(body[i:])
		}
	}
	return body, ""
}
