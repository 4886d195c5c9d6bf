// Copyright © 2024 The Mago authors

package lsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/config"
	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/source"
)

const testURI = "file:///tmp/mago-test/a.php"

// mockContext returns a minimal glsp.Context for testing.
func mockContext() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {},
	}
}

// capturingContext returns a context that captures published diagnostics.
func capturingContext() (*glsp.Context, *[]*protocol.PublishDiagnosticsParams) {
	var captured []*protocol.PublishDiagnosticsParams
	ctx := &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				captured = append(captured, params.(*protocol.PublishDiagnosticsParams))
			}
		},
	}
	return ctx, &captured
}

func openParams(uri, text string) *protocol.DidOpenTextDocumentParams {
	return &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "php", Version: 1, Text: text},
	}
}

// openAndCapture opens a document and returns the diagnostics published for
// it.
func openAndCapture(t *testing.T, s *Server, uri, text string) []protocol.Diagnostic {
	t.Helper()
	ctx, captured := capturingContext()
	require.NoError(t, s.textDocumentDidOpen(ctx, openParams(uri, text)))
	require.Len(t, *captured, 1)
	require.Equal(t, uri, (*captured)[0].URI)
	return (*captured)[0].Diagnostics
}

func diagCodes(diags []protocol.Diagnostic) []string {
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code.Value.(string))
	}
	return codes
}

func findDiag(t *testing.T, diags []protocol.Diagnostic, code string) protocol.Diagnostic {
	t.Helper()
	for _, d := range diags {
		if d.Code != nil && d.Code.Value == code {
			return d
		}
	}
	t.Fatalf("no diagnostic %s in %v", code, diagCodes(diags))
	return protocol.Diagnostic{}
}

func testFile(content string) *source.File {
	return source.NewDatabase(interner.New()).Add("a.php", content, source.UserDefined)
}

// --- Position conversion tests ---

func TestOffsetToPosition(t *testing.T) {
	f := testFile("<?php\n$s = '😀x';\n")
	pos := offsetToPosition(f, 0)
	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, pos)

	x := len("<?php\n$s = '😀")
	pos = offsetToPosition(f, x)
	assert.Equal(t, protocol.Position{Line: 1, Character: 8}, pos, "astral runes count as two units")
	assert.Equal(t, x, positionToOffset(f, pos))

	assert.Equal(t, len(f.Content), positionToOffset(f, protocol.Position{Line: 10}))
}

func TestEndPosition(t *testing.T) {
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, endPosition("a\nbc"))
	assert.Equal(t, protocol.Position{Line: 2, Character: 0}, endPosition("a\nb\n"))
	assert.Equal(t, protocol.Position{}, endPosition(""))
}

func TestRangesOverlap(t *testing.T) {
	r := func(l1, c1, l2, c2 int) protocol.Range {
		return protocol.Range{
			Start: protocol.Position{Line: safeUint(l1), Character: safeUint(c1)},
			End:   protocol.Position{Line: safeUint(l2), Character: safeUint(c2)},
		}
	}
	assert.True(t, rangesOverlap(r(1, 0, 1, 5), r(1, 3, 1, 3)))
	assert.True(t, rangesOverlap(r(1, 0, 1, 5), r(1, 5, 2, 0)), "touching")
	assert.False(t, rangesOverlap(r(1, 0, 1, 5), r(2, 0, 2, 1)))
}

func TestURIConversion(t *testing.T) {
	assert.Equal(t, "/a/b.php", uriToPath("file:///a/b.php"))
	assert.Equal(t, "file:///a/b.php", pathToURI("/a/b.php"))
	assert.Equal(t, "untitled:1", uriToPath("untitled:1"))
}

// --- Diagnostics ---

func TestDidOpen_PublishesDiagnostics(t *testing.T) {
	s := New()
	diags := openAndCapture(t, s, testURI, "<?php\necho UNDEFINED_X;\n")
	d := findDiag(t, diags, "analysis:non-existent-constant")
	assert.Equal(t, protocol.Position{Line: 1, Character: 5}, d.Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 16}, d.Range.End)
	require.NotNil(t, d.Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
	assert.Equal(t, diagSource, *d.Source)
}

func TestDidOpen_CleanDocument(t *testing.T) {
	s := New()
	diags := openAndCapture(t, s, testURI, "<?php\nfunction greet(string $n): string { return \"Hi \" . $n; }\n")
	assert.NotNil(t, diags)
	assert.Empty(t, diags)
}

func TestDidOpen_ParseError(t *testing.T) {
	s := New()
	diags := openAndCapture(t, s, testURI, "<?php\nfunction (\n")
	d := findDiag(t, diags, "syntax:parse-error")
	assert.Equal(t, protocol.DiagnosticSeverityError, *d.Severity)
}

func TestDidOpen_PragmaSuppresses(t *testing.T) {
	s := New()
	diags := openAndCapture(t, s, testURI, "<?php\n// @mago-ignore analysis:non-existent-constant\necho UNDEFINED_X;\n")
	assert.Empty(t, diags)
}

func TestDidChange_InvalidatesAnalysis(t *testing.T) {
	s := New()
	openAndCapture(t, s, testURI, "<?php\necho 1;\n")
	doc := s.docs.Get(testURI)
	require.NotNil(t, doc)
	assert.True(t, doc.analyzed)

	err := s.textDocumentDidChange(mockContext(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: testURI},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "<?php\necho NOPE;\n"}},
	})
	require.NoError(t, err)
	s.cancelDebounce(testURI)

	doc.mu.Lock()
	assert.False(t, doc.analyzed)
	assert.Equal(t, int32(2), doc.Version)
	doc.mu.Unlock()

	ctx, captured := capturingContext()
	require.NoError(t, s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))
	require.Len(t, *captured, 1)
	findDiag(t, (*captured)[0].Diagnostics, "analysis:non-existent-constant")
}

func TestDidClose_ClearsDiagnostics(t *testing.T) {
	s := New()
	openAndCapture(t, s, testURI, "<?php\necho NOPE;\n")
	ctx, captured := capturingContext()
	s.captureNotify(ctx)
	require.NoError(t, s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	}))
	require.Len(t, *captured, 1)
	assert.Empty(t, (*captured)[0].Diagnostics)
	assert.Nil(t, s.docs.Get(testURI))
}

func TestWorkspaceIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dep.php"), []byte("<?php\nclass Dep {}\n"), 0o644))

	s := New(WithConfig(config.Default()))
	root := pathToURI(dir)
	_, err := s.initialize(mockContext(), &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)

	diags := openAndCapture(t, s, pathToURI(filepath.Join(dir, "main.php")), "<?php\nfunction make(): Dep { return new Dep(); }\n")
	assert.NotContains(t, diagCodes(diags), "analysis:non-existent-class-like")

	diags = openAndCapture(t, s, pathToURI(filepath.Join(dir, "other.php")), "<?php\nfunction make(): Missing { return new Missing(); }\n")
	assert.Contains(t, diagCodes(diags), "analysis:non-existent-class-like")
}

func TestConvertIssue(t *testing.T) {
	f := testFile("<?php\nfoo();\nbar();\n")
	i := diagnostic.NewIssue(diagnostic.LevelWarning, "lint", "demo", "Message.").
		At(source.Span{File: f.ID, Start: 6, End: 11}, "here").
		Also(source.Span{File: f.ID, Start: 13, End: 18}, "and here").
		WithHelp("Do something else.").
		WithLink("https://example.com/demo")
	d := convertIssue(testURI, f, i)
	assert.Equal(t, "Message.\nDo something else.", d.Message)
	assert.Equal(t, "lint:demo", d.Code.Value)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *d.Severity)
	require.NotNil(t, d.CodeDescription)
	assert.Equal(t, "https://example.com/demo", d.CodeDescription.HRef)
	require.Len(t, d.RelatedInformation, 1)
	assert.Equal(t, protocol.UInteger(2), d.RelatedInformation[0].Location.Range.Start.Line)
	assert.Equal(t, "and here", d.RelatedInformation[0].Message)
}

func TestMapSeverity(t *testing.T) {
	assert.Equal(t, protocol.DiagnosticSeverityError, mapSeverity(diagnostic.LevelError))
	assert.Equal(t, protocol.DiagnosticSeverityWarning, mapSeverity(diagnostic.LevelWarning))
	assert.Equal(t, protocol.DiagnosticSeverityInformation, mapSeverity(diagnostic.LevelNote))
	assert.Equal(t, protocol.DiagnosticSeverityHint, mapSeverity(diagnostic.LevelHelp))
}

// --- Formatting ---

func TestFormatting(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nECHO 1;   \n\n\n\necho 2;")
	edits, err := s.textDocumentFormatting(mockContext(), &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "<?php\necho 1;\n\necho 2;\n", edits[0].NewText)
	assert.Equal(t, protocol.Position{Line: 5, Character: 7}, edits[0].Range.End)
}

func TestFormatting_NoChange(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\necho 1;\n")
	edits, err := s.textDocumentFormatting(mockContext(), &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	assert.Nil(t, edits)
}

func TestFormatting_UnknownDocument(t *testing.T) {
	s := New()
	edits, err := s.textDocumentFormatting(mockContext(), &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///nope.php"},
	})
	require.NoError(t, err)
	assert.Nil(t, edits)
}

// --- Code actions ---

func codeActions(t *testing.T, s *Server, rng protocol.Range) []protocol.CodeAction {
	t.Helper()
	result, err := s.textDocumentCodeAction(mockContext(), &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Range:        rng,
	})
	require.NoError(t, err)
	if result == nil {
		return nil
	}
	actions, ok := result.([]protocol.CodeAction)
	require.True(t, ok, "got %T", result)
	return actions
}

func lineRange(line int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: safeUint(line)},
		End:   protocol.Position{Line: safeUint(line), Character: 100},
	}
}

func TestCodeAction_Ignore(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nfunction f(): void {\n    echo NOPE;\n}\n")
	actions := codeActions(t, s, lineRange(2))
	require.Len(t, actions, 1)
	a := actions[0]
	assert.Equal(t, "Ignore analysis:non-existent-constant on this line", a.Title)
	edit := a.Edit.Changes[testURI][0]
	assert.Equal(t, protocol.Position{Line: 2}, edit.Range.Start)
	assert.Equal(t, "    // @mago-ignore analysis:non-existent-constant\n", edit.NewText)

	assert.Empty(t, codeActions(t, s, lineRange(0)))
}

func TestCodeAction_IgnoreOnOpenTagLine(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php echo NOPE;\n")
	actions := codeActions(t, s, lineRange(0))
	require.Len(t, actions, 1)
	edit := actions[0].Edit.Changes[testURI][0]
	assert.Equal(t, protocol.Position{Line: 0, Character: 16}, edit.Range.Start)
	assert.Equal(t, " // @mago-ignore analysis:non-existent-constant", edit.NewText)
}

func TestCodeAction_Fix(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nfunction f(int $x): int { $y = $x + 1; return $x; }\n")
	actions := codeActions(t, s, lineRange(1))
	var fix *protocol.CodeAction
	for k := range actions {
		if actions[k].Title == "Fix analysis:unused-assignment" {
			fix = &actions[k]
		}
	}
	require.NotNil(t, fix)
	require.NotNil(t, fix.IsPreferred)
	assert.True(t, *fix.IsPreferred)
	require.NotEmpty(t, fix.Edit.Changes[testURI])
}

func TestCodeAction_OnlyOtherKinds(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php echo NOPE;\n")
	result, err := s.textDocumentCodeAction(mockContext(), &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
		Range:        lineRange(0),
		Context:      protocol.CodeActionContext{Only: []protocol.CodeActionKind{protocol.CodeActionKindRefactor}},
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestFixAction_SkipsUnsafe(t *testing.T) {
	f := testFile("<?php\n$a = 1;\n")
	span := source.Span{File: f.ID, Start: 6, End: 13}
	plan, err := diagnostic.NewFixPlan(diagnostic.Delete(span, diagnostic.Unsafe))
	require.NoError(t, err)
	i := diagnostic.NewIssue(diagnostic.LevelWarning, "lint", "demo", "Demo.").At(span, "").WithFix(plan)
	_, ok := fixAction(testURI, f, i, convertIssue(testURI, f, i))
	assert.False(t, ok)

	plan, err = diagnostic.NewFixPlan(diagnostic.Delete(span, diagnostic.PotentiallyUnsafe))
	require.NoError(t, err)
	i.WithFix(plan)
	a, ok := fixAction(testURI, f, i, convertIssue(testURI, f, i))
	require.True(t, ok)
	assert.False(t, *a.IsPreferred)
	edit := a.Edit.Changes[testURI][0]
	assert.Equal(t, "", edit.NewText)
	assert.Equal(t, protocol.Position{Line: 1, Character: 0}, edit.Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 7}, edit.Range.End)
}

// --- Symbols and folding ---

func TestDocumentSymbols(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, `<?php
namespace App;
interface Shape {}
class A {
  const X = 1;
  private int $p = 1;
  public function __construct() {}
  public function m(): void {}
}
function f(): void {}
const Y = 2;
`)
	result, err := s.textDocumentDocumentSymbol(mockContext(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	symbols := result.([]protocol.DocumentSymbol)

	var names []string
	for _, sym := range symbols {
		names = append(names, sym.Name)
	}
	assert.Equal(t, []string{"Shape", "A", "f", "Y"}, names)
	assert.Equal(t, protocol.SymbolKindInterface, symbols[0].Kind)

	a := symbols[1]
	assert.Equal(t, protocol.SymbolKindClass, a.Kind)
	assert.Equal(t, protocol.UInteger(3), a.SelectionRange.Start.Line)
	var members []string
	for _, m := range a.Children {
		members = append(members, m.Name)
	}
	assert.Equal(t, []string{"X", "$p", "__construct", "m"}, members)
	assert.Equal(t, protocol.SymbolKindConstructor, a.Children[2].Kind)
}

func TestFoldingRanges(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nfunction f() {\n  return 1;\n}\n/*\n * c\n */\n// one line\n")
	ranges, err := s.textDocumentFoldingRange(mockContext(), &protocol.FoldingRangeParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: testURI},
	})
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	assert.Equal(t, protocol.UInteger(1), ranges[0].StartLine)
	assert.Equal(t, protocol.UInteger(3), ranges[0].EndLine)
	assert.Equal(t, string(protocol.FoldingRangeKindRegion), *ranges[0].Kind)
	assert.Equal(t, protocol.UInteger(4), ranges[1].StartLine)
	assert.Equal(t, protocol.UInteger(6), ranges[1].EndLine)
	assert.Equal(t, string(protocol.FoldingRangeKindComment), *ranges[1].Kind)
}

// --- Lifecycle ---

func TestInitialize_Capabilities(t *testing.T) {
	s := New()
	result, err := s.initialize(mockContext(), &protocol.InitializeParams{})
	require.NoError(t, err)
	init := result.(protocol.InitializeResult)
	assert.Equal(t, serverName, init.ServerInfo.Name)
	assert.NotNil(t, init.Capabilities.DocumentFormattingProvider)
	assert.NotNil(t, init.Capabilities.CodeActionProvider)
	assert.NotNil(t, init.Capabilities.HoverProvider)
	assert.NotNil(t, init.Capabilities.DefinitionProvider)
	assert.NotNil(t, init.Capabilities.WorkspaceSymbolProvider)
}

func TestExit(t *testing.T) {
	s := New()
	code := -1
	s.exitFn = func(c int) { code = c }
	require.NoError(t, s.shutdown(mockContext()))
	require.NoError(t, s.exit(mockContext()))
	assert.Equal(t, 0, code)
}
