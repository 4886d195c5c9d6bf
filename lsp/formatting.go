// Copyright © 2024 The Mago authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/formatter"
)

// textDocumentFormatting handles textDocument/formatting requests.
// It formats the document content with the configured formatter settings
// and returns a single whole-document text edit, or nil if no changes are
// needed.
func (s *Server) textDocumentFormatting(_ *glsp.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	doc.mu.Lock()
	content := doc.Content
	doc.mu.Unlock()

	if content == "" {
		return nil, nil
	}

	settings := s.currentConfig().FormatterSettings()
	if trim, ok := params.Options["trimTrailingWhitespace"].(bool); ok {
		settings.TrimTrailingWhitespace = trim
	}

	formatted, err := formatter.Format([]byte(content), &settings)
	if err != nil {
		// Tokenize error: return nil edits (not an error) so the editor
		// doesn't show an error dialog for incomplete code.
		return nil, nil
	}

	// No changes needed.
	if string(formatted) == content {
		return nil, nil
	}

	// Return a single edit replacing the entire document.
	return []protocol.TextEdit{
		{
			Range: protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   endPosition(content),
			},
			NewText: string(formatted),
		},
	}, nil
}
