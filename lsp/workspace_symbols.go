// Copyright © 2024 The Mago authors

package lsp

import (
	"sort"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/names"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/source"
)

// workspaceSymbol handles the workspace/symbol request.  It returns the
// classes, methods, functions, and constants declared in the workspace and
// in open documents whose name contains the query, ignoring case.  An
// empty query returns every symbol.
func (s *Server) workspaceSymbol(_ *glsp.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.ensureWorkspaceIndex()

	db := source.NewDatabase(interner.New())
	uris := make(map[source.FileID]string)
	open := make(map[string]bool)
	for _, doc := range s.docs.All() {
		doc.mu.Lock()
		uri, content := doc.URI, doc.Content
		doc.mu.Unlock()
		path := uriToPath(uri)
		open[path] = true
		f := db.AddPath(path, path, content, source.UserDefined)
		uris[f.ID] = uri
	}
	for _, wf := range s.workspaceFiles("") {
		if open[wf.Path] {
			continue
		}
		f := db.AddPath(wf.Name, wf.Path, wf.Content, source.UserDefined)
		uris[f.ID] = pathToURI(wf.Path)
	}

	cb := codebase.New()
	for _, f := range db.Files() {
		prog, _ := parser.Parse(f)
		cb.Merge(codebase.Scan(f, prog, names.Resolve(db.Interner(), prog)))
	}

	query := strings.ToLower(params.Query)
	results := []protocol.SymbolInformation{}
	add := func(name string, kind protocol.SymbolKind, span source.Span, container string) {
		if !matchesQuery(name, query) {
			return
		}
		f, err := db.Get(span.File)
		if err != nil {
			return
		}
		si := protocol.SymbolInformation{
			Name:     name,
			Kind:     kind,
			Location: protocol.Location{URI: uris[f.ID], Range: spanToRange(f, span)},
		}
		if container != "" {
			si.ContainerName = &container
		}
		results = append(results, si)
	}

	for _, m := range cb.Classes {
		if m.Anonymous {
			continue
		}
		add(m.Name, mapClassKind(m.Kind), m.NameSpan, "")
		for _, meth := range m.Methods {
			kind := protocol.SymbolKindMethod
			if strings.EqualFold(meth.Name, "__construct") {
				kind = protocol.SymbolKindConstructor
			}
			add(meth.Name, kind, meth.NameSpan, m.Name)
		}
	}
	for _, f := range cb.Functions {
		add(f.Name, protocol.SymbolKindFunction, f.NameSpan, "")
	}
	for _, c := range cb.Constants {
		add(c.Name, protocol.SymbolKindConstant, c.Span, "")
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Location.URI < b.Location.URI
	})
	return results, nil
}

func matchesQuery(name, query string) bool {
	return query == "" || strings.Contains(strings.ToLower(name), query)
}
