// Copyright © 2024 The Mago authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentHover handles the textDocument/hover request.  Names of
// functions, classes, and constants show their declaration; any other
// expression shows its inferred type.
func (s *Server) textDocumentHover(_ *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	sem := s.semanticsOf(doc)
	if sem == nil {
		return nil, nil
	}
	offset := positionToOffset(sem.file, params.Position)

	if sym, ok := sem.symbolAt(offset); ok {
		return markdownHover(buildHoverContent(sym), nil), nil
	}
	node, t, ok := sem.typeAt(offset)
	if !ok {
		return nil, nil
	}
	rng := spanToRange(sem.file, node.Span())
	return markdownHover(codeBlock(t.String()), &rng), nil
}

// buildHoverContent builds Markdown hover text for a declaration.
func buildHoverContent(sym *symbol) string {
	var sb strings.Builder
	deprecated := false
	switch {
	case sym.class != nil:
		m := sym.class
		var mods []string
		if m.Abstract {
			mods = append(mods, "abstract")
		}
		if m.Final {
			mods = append(mods, "final")
		}
		if m.Readonly {
			mods = append(mods, "readonly")
		}
		mods = append(mods, m.Kind.String(), m.Name)
		if m.Parent != "" {
			mods = append(mods, "extends", m.Parent)
		}
		sb.WriteString(codeBlock(strings.Join(mods, " ")))
		deprecated = m.Deprecated
	case sym.function != nil:
		sb.WriteString(codeBlock(signature(sym.function)))
		deprecated = sym.function.Deprecated
	default:
		sb.WriteString(codeBlock(fmt.Sprintf("const %s: %s", sym.constant.Name, sym.constant.Type)))
	}
	if deprecated {
		sb.WriteString("\n\n*Deprecated*")
	}
	return sb.String()
}

func codeBlock(code string) string {
	return "```php\n" + code + "\n```"
}

func markdownHover(value string, rng *protocol.Range) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
		Range: rng,
	}
}
