// Copyright © 2024 The Mago authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// textDocumentDefinition handles the textDocument/definition request.
func (s *Server) textDocumentDefinition(_ *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}
	sem := s.semanticsOf(doc)
	if sem == nil {
		return nil, nil
	}
	sym, ok := sem.symbolAt(positionToOffset(sem.file, params.Position))
	if !ok {
		return nil, nil
	}
	span := sym.span()
	f, err := sem.db.Get(span.File)
	// Builtins have no navigable source.
	if err != nil || f.Path == "" {
		return nil, nil
	}
	uri := pathToURI(f.Path)
	if f.ID == sem.file.ID {
		uri = params.TextDocument.URI
	}
	return protocol.Location{URI: uri, Range: spanToRange(f, span)}, nil
}
