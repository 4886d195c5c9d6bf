// Copyright © 2024 The Mago authors

package lsp

import (
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/astutil"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
)

// textDocumentDocumentSymbol handles the textDocument/documentSymbol request.
// Class-likes are reported with their members as children; functions and
// constants are reported at the top level.
func (s *Server) textDocumentDocumentSymbol(_ *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
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

	symbols := []protocol.DocumentSymbol{}
	astutil.Walk(prog, func(n ast.Node, parents []ast.Node) {
		switch n := n.(type) {
		case *ast.ClassLike:
			if n.Name == nil {
				return
			}
			sym := newSymbol(f, n.Name.Value, mapClassKind(n.Kind), n, n.Name)
			detail := n.Kind.String()
			sym.Detail = &detail
			sym.Children = memberSymbols(f, n)
			symbols = append(symbols, sym)
		case *ast.Function:
			if _, inClass := astutil.EnclosingClass(parents); !inClass && n.Name != nil {
				symbols = append(symbols, newSymbol(f, n.Name.Value, protocol.SymbolKindFunction, n, n.Name))
			}
		case *ast.Const:
			for _, item := range n.Items {
				symbols = append(symbols, newSymbol(f, item.Name.Value, protocol.SymbolKindConstant, item, item.Name))
			}
		}
	})
	return symbols, nil
}

func memberSymbols(f *source.File, c *ast.ClassLike) []protocol.DocumentSymbol {
	var children []protocol.DocumentSymbol
	for _, m := range c.Members {
		switch m := m.(type) {
		case *ast.Method:
			kind := protocol.SymbolKindMethod
			if m.Name.Value == "__construct" {
				kind = protocol.SymbolKindConstructor
			}
			children = append(children, newSymbol(f, m.Name.Value, kind, m, m.Name))
		case *ast.Property:
			for _, item := range m.Items {
				children = append(children, newSymbol(f, "$"+item.Var.Name, protocol.SymbolKindProperty, item, item.Var))
			}
		case *ast.ClassConst:
			for _, item := range m.Items {
				children = append(children, newSymbol(f, item.Name.Value, protocol.SymbolKindConstant, item, item.Name))
			}
		}
	}
	return children
}

func newSymbol(f *source.File, name string, kind protocol.SymbolKind, node, sel ast.Node) protocol.DocumentSymbol {
	return protocol.DocumentSymbol{
		Name:           name,
		Kind:           kind,
		Range:          spanToRange(f, node.Span()),
		SelectionRange: spanToRange(f, sel.Span()),
	}
}

// mapClassKind converts a class-like kind to an LSP SymbolKind.
func mapClassKind(kind ast.ClassKind) protocol.SymbolKind {
	switch kind {
	case ast.KindInterface:
		return protocol.SymbolKindInterface
	case ast.KindEnum:
		return protocol.SymbolKindEnum
	default:
		return protocol.SymbolKindClass
	}
}
