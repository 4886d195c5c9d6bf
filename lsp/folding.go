// Copyright © 2024 The Mago authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
)

// textDocumentFoldingRange handles the textDocument/foldingRange request.
// It returns folding ranges for multi-line blocks, class-like bodies, and
// comments.
func (s *Server) textDocumentFoldingRange(_ *glsp.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	doc.mu.Lock()
	prog, f := doc.prog, doc.file
	doc.mu.Unlock()
	if prog == nil {
		return nil, nil
	}

	var ranges []protocol.FoldingRange
	ast.Inspect(prog, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.Block, *ast.ClassLike:
			ranges = appendFold(ranges, f, n.Span(), protocol.FoldingRangeKindRegion)
		}
		return true
	})
	for _, c := range prog.Comments() {
		ranges = appendFold(ranges, f, c.Range, protocol.FoldingRangeKindComment)
	}
	return ranges, nil
}

// appendFold appends a folding range for span when it covers more than one
// line.
func appendFold(ranges []protocol.FoldingRange, f *source.File, span source.Span, kind protocol.FoldingRangeKind) []protocol.FoldingRange {
	start := f.LineNumber(int(span.Start)) - 1
	end := f.LineNumber(int(span.End)) - 1
	if end <= start {
		return ranges
	}
	k := string(kind)
	return append(ranges, protocol.FoldingRange{
		StartLine: safeUint(start),
		EndLine:   safeUint(end),
		Kind:      &k,
	})
}
