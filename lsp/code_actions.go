// Copyright © 2024 The Mago authors

package lsp

import (
	"fmt"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/pragma"
	"github.com/magophp/mago/source"
)

// textDocumentCodeAction handles the textDocument/codeAction request.
// For every issue overlapping the requested range it offers the issue's
// fix, when it has a safe one, and a pragma that ignores the issue.
func (s *Server) textDocumentCodeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil, nil
	}

	// If the client only wants specific kinds, check we support them.
	if len(params.Context.Only) > 0 {
		if !slicesContains(params.Context.Only, protocol.CodeActionKindQuickFix) {
			return nil, nil
		}
	}

	s.ensureAnalysis(doc)

	doc.mu.Lock()
	issues := doc.issues
	f := doc.issueFile
	doc.mu.Unlock()

	uri := params.TextDocument.URI
	var actions []protocol.CodeAction
	for _, i := range issues {
		diag := convertIssue(uri, f, i)
		if !rangesOverlap(diag.Range, params.Range) {
			continue
		}
		if a, ok := fixAction(uri, f, i, diag); ok {
			actions = append(actions, a)
		}
		if i.Category != pragma.Category {
			actions = append(actions, ignoreAction(uri, f, i, diag))
		}
	}

	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

// fixAction converts the fix plan of i into a quick fix.  Only plans
// without unsafe edits are offered.
func fixAction(uri string, f *source.File, i *diagnostic.Issue, diag protocol.Diagnostic) (protocol.CodeAction, bool) {
	if i.Fix == nil || i.Fix.Len() == 0 || i.Fix.Safety() == diagnostic.Unsafe {
		return protocol.CodeAction{}, false
	}
	var edits []protocol.TextEdit
	for _, e := range i.Fix.Edits() {
		edits = append(edits, protocol.TextEdit{
			Range:   spanToRange(f, e.Range),
			NewText: e.Replacement,
		})
	}
	kind := protocol.CodeActionKindQuickFix
	preferred := i.Fix.Safety() == diagnostic.Safe
	return protocol.CodeAction{
		Title:       fmt.Sprintf("Fix %s", i.Rule()),
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{diag},
		IsPreferred: &preferred,
		Edit: &protocol.WorkspaceEdit{
			Changes: map[string][]protocol.TextEdit{uri: edits},
		},
	}, true
}

// ignoreAction creates a code action that inserts an ignore pragma on its
// own line above the issue, indented like that line.  On a line holding the
// opening tag the pragma trails the line instead.
func ignoreAction(uri string, f *source.File, i *diagnostic.Issue, diag protocol.Diagnostic) protocol.CodeAction {
	line := f.LineNumber(int(i.Primary.Span.Start))
	text := f.Line(line)
	comment := fmt.Sprintf("// %s %s", pragma.Ignore, i.Rule())

	var edit protocol.TextEdit
	if strings.Contains(text, "<?") {
		pos := offsetToPosition(f, f.LineEnd(line))
		edit = protocol.TextEdit{Range: protocol.Range{Start: pos, End: pos}, NewText: " " + comment}
	} else {
		indent := text[:len(text)-len(strings.TrimLeft(text, " \t"))]
		pos := protocol.Position{Line: safeUint(line - 1), Character: 0}
		edit = protocol.TextEdit{Range: protocol.Range{Start: pos, End: pos}, NewText: indent + comment + "\n"}
	}

	kind := protocol.CodeActionKindQuickFix
	return protocol.CodeAction{
		Title:       fmt.Sprintf("Ignore %s on this line", i.Rule()),
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{diag},
		Edit: &protocol.WorkspaceEdit{
			Changes: map[string][]protocol.TextEdit{uri: {edit}},
		},
	}
}

// slicesContains checks if a string slice contains a value.
func slicesContains(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
