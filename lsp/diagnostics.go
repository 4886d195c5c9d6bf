// Copyright © 2024 The Mago authors

package lsp

import (
	"context"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/zap"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/pipeline"
	"github.com/magophp/mago/source"
)

const (
	debounceDelay = 300 * time.Millisecond
	diagSource    = "mago"
)

// textDocumentDidOpen handles the textDocument/didOpen notification.
func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.captureNotify(ctx)
	doc := s.docs.Open(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		params.TextDocument.Text,
	)
	s.analyzeAndPublish(doc)
	return nil
}

// textDocumentDidChange handles the textDocument/didChange notification.
func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(ctx)
	// With full sync, the last content change is the complete document.
	var content string
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			content = c.Text
		case protocol.TextDocumentContentChangeEvent:
			content = c.Text
		}
	}

	doc := s.docs.Change(
		params.TextDocument.URI,
		int32(params.TextDocument.Version),
		content,
	)

	// Debounce: delay analysis to avoid thrashing during rapid edits.
	s.debounceMu.Lock()
	if t, ok := s.debounce[doc.URI]; ok {
		t.Stop()
	}
	s.debounce[doc.URI] = time.AfterFunc(debounceDelay, func() {
		if d := s.docs.Get(doc.URI); d != nil {
			s.analyzeAndPublish(d)
		}
	})
	s.debounceMu.Unlock()
	return nil
}

// textDocumentDidSave handles the textDocument/didSave notification.
func (s *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.captureNotify(ctx)
	// Cancel any pending debounce and publish immediately.
	s.cancelDebounce(params.TextDocument.URI)

	doc := s.docs.Get(params.TextDocument.URI)
	if doc == nil {
		return nil
	}
	doc.mu.Lock()
	content := doc.Content
	doc.mu.Unlock()
	s.updateWorkspaceFile(doc.URI, content)
	s.analyzeAndPublish(doc)
	return nil
}

// textDocumentDidClose handles the textDocument/didClose notification.
func (s *Server) textDocumentDidClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.cancelDebounce(params.TextDocument.URI)

	// Clear diagnostics for the closed file.
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})

	s.docs.Close(params.TextDocument.URI)
	return nil
}

func (s *Server) cancelDebounce(uri string) {
	s.debounceMu.Lock()
	if t, ok := s.debounce[uri]; ok {
		t.Stop()
		delete(s.debounce, uri)
	}
	s.debounceMu.Unlock()
}

// ensureAnalysis ensures the document has a current analysis result.  The
// document is analyzed as the only user-defined file of a database that
// also holds every other workspace file.
func (s *Server) ensureAnalysis(doc *Document) {
	s.ensureWorkspaceIndex()

	doc.mu.Lock()
	defer doc.mu.Unlock()
	if doc.analyzed {
		return
	}
	doc.analyzed = true
	doc.issues = nil
	doc.sem = nil

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("lsp.analyze.panic", zap.String("uri", doc.URI), zap.Any("panic", r))
		}
	}()

	path := uriToPath(doc.URI)
	db := source.NewDatabase(interner.New())
	for _, wf := range s.workspaceFiles(path) {
		db.AddPath(wf.Name, wf.Path, wf.Content, source.External)
	}
	f := db.AddPath(path, path, doc.Content, source.UserDefined)
	cfg := s.currentConfig()
	report, err := pipeline.New(db, cfg.PipelineConfig(s.log)).Run(context.Background())
	if err != nil {
		s.log.Warn("lsp.analyze", zap.String("uri", doc.URI), zap.Error(err))
		return
	}
	doc.issues = report.Issues.File(f.ID)
	doc.issueFile = f
	doc.sem = &semantics{db: db, file: f, cb: report.Codebase}
}

// analyzeAndPublish runs analysis and lint on a document and publishes
// the resulting diagnostics to the client.
func (s *Server) analyzeAndPublish(doc *Document) {
	s.ensureAnalysis(doc)

	// Snapshot document fields under the lock.
	doc.mu.Lock()
	issues := doc.issues
	f := doc.issueFile
	uri := doc.URI
	doc.mu.Unlock()

	diags := []protocol.Diagnostic{}
	for _, i := range issues {
		diags = append(diags, convertIssue(uri, f, i))
	}
	s.sendNotification(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

// convertIssue converts an issue located in f to an LSP diagnostic.
// Secondary annotations in the same file become related information.
func convertIssue(uri string, f *source.File, i *diagnostic.Issue) protocol.Diagnostic {
	sev := mapSeverity(i.Level)
	code := protocol.IntegerOrString{Value: i.Rule()}
	message := i.Message
	if i.Help != "" {
		message += "\n" + i.Help
	}
	d := protocol.Diagnostic{
		Range:    spanToRange(f, i.Primary.Span),
		Severity: &sev,
		Source:   strPtr(diagSource),
		Code:     &code,
		Message:  message,
	}
	if i.Link != "" {
		d.CodeDescription = &protocol.CodeDescription{HRef: i.Link}
	}
	for _, a := range i.Secondary {
		if a.Span.File != f.ID {
			continue
		}
		d.RelatedInformation = append(d.RelatedInformation, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{URI: uri, Range: spanToRange(f, a.Span)},
			Message:  a.Message,
		})
	}
	return d
}

// mapSeverity converts an issue level to a protocol.DiagnosticSeverity.
func mapSeverity(level diagnostic.Level) protocol.DiagnosticSeverity {
	switch level {
	case diagnostic.LevelError:
		return protocol.DiagnosticSeverityError
	case diagnostic.LevelWarning:
		return protocol.DiagnosticSeverityWarning
	case diagnostic.LevelNote:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityHint
	}
}

func strPtr(s string) *string {
	return &s
}
