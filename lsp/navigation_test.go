// Copyright © 2024 The Mago authors

package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/config"
)

func hoverAt(t *testing.T, s *Server, uri string, line, char uint32) *protocol.Hover {
	t.Helper()
	h, err := s.textDocumentHover(mockContext(), &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: line, Character: char},
		},
	})
	require.NoError(t, err)
	return h
}

func definitionAt(t *testing.T, s *Server, uri string, line, char uint32) any {
	t.Helper()
	loc, err := s.textDocumentDefinition(mockContext(), &protocol.DefinitionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     protocol.Position{Line: line, Character: char},
		},
	})
	require.NoError(t, err)
	return loc
}

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	require.NotNil(t, h)
	content, ok := h.Contents.(protocol.MarkupContent)
	require.True(t, ok)
	assert.Equal(t, protocol.MarkupKindMarkdown, content.Kind)
	return content.Value
}

// initWorkspace writes files into a temporary workspace and initializes s
// with it.
func initWorkspace(t *testing.T, s *Server, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	root := pathToURI(dir)
	_, err := s.initialize(mockContext(), &protocol.InitializeParams{RootURI: &root})
	require.NoError(t, err)
	return dir
}

func TestHover_ExpressionType(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nfunction f(): void {\n    $x = 1 + 2;\n    echo $x;\n}\n")

	h := hoverAt(t, s, testURI, 3, 9)
	text := hoverText(t, h)
	assert.True(t, strings.HasPrefix(text, "```php\nint"), text)
	require.NotNil(t, h.Range)
	assert.Equal(t, protocol.Position{Line: 3, Character: 9}, h.Range.Start)
	assert.Equal(t, protocol.Position{Line: 3, Character: 11}, h.Range.End)
}

func TestHover_Function(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\n/** @deprecated */\nfunction twice(int $n): int { return $n * 2; }\n\necho twice(2);\n")

	text := hoverText(t, hoverAt(t, s, testURI, 4, 6))
	assert.Equal(t, "```php\nfunction twice(int $n): int\n```\n\n*Deprecated*", text)
}

func TestHover_Class(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nfinal class Box {}\n$b = new Box();\n")

	text := hoverText(t, hoverAt(t, s, testURI, 2, 10))
	assert.Equal(t, "```php\nfinal class Box\n```", text)
}

func TestHover_Nothing(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\n\n\n")
	assert.Nil(t, hoverAt(t, s, testURI, 1, 0))
	assert.Nil(t, hoverAt(t, s, "file:///tmp/unknown.php", 0, 0))
}

func TestDefinition_SameFile(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nfunction helper(): int { return 1; }\nfunction main(): int { return helper(); }\n")

	loc, ok := definitionAt(t, s, testURI, 2, 32).(protocol.Location)
	require.True(t, ok)
	assert.Equal(t, testURI, loc.URI)
	assert.Equal(t, protocol.Position{Line: 1, Character: 9}, loc.Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 15}, loc.Range.End)
}

func TestDefinition_Method(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\nclass Greeter {\n    public function hello(): string { return 'hi'; }\n}\n"+
		"function run(Greeter $g): string { return $g->hello(); }\n")

	loc, ok := definitionAt(t, s, testURI, 4, 47).(protocol.Location)
	require.True(t, ok)
	assert.Equal(t, protocol.Position{Line: 2, Character: 20}, loc.Range.Start)
	assert.Equal(t, protocol.Position{Line: 2, Character: 25}, loc.Range.End)
}

func TestDefinition_Workspace(t *testing.T) {
	s := New(WithConfig(config.Default()))
	dir := initWorkspace(t, s, map[string]string{"dep.php": "<?php\nclass Dep {}\n"})
	uri := pathToURI(filepath.Join(dir, "main.php"))
	s.docs.Open(uri, 1, "<?php\n$d = new Dep();\n")

	loc, ok := definitionAt(t, s, uri, 1, 10).(protocol.Location)
	require.True(t, ok)
	assert.Equal(t, pathToURI(filepath.Join(dir, "dep.php")), loc.URI)
	assert.Equal(t, protocol.Position{Line: 1, Character: 6}, loc.Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 9}, loc.Range.End)
}

func TestDefinition_Builtin(t *testing.T) {
	s := New()
	s.docs.Open(testURI, 1, "<?php\necho strlen('a');\n")
	assert.Nil(t, definitionAt(t, s, testURI, 1, 7))
}

func TestWorkspaceSymbol(t *testing.T) {
	s := New(WithConfig(config.Default()))
	dir := initWorkspace(t, s, map[string]string{
		"dep.php": "<?php\nclass Dep {\n    public function run(): void {}\n}\nfunction dep_helper(): void {}\n",
	})
	s.docs.Open(pathToURI(filepath.Join(dir, "main.php")), 1, "<?php\nconst DEPTH = 1;\n")

	query := func(q string) []protocol.SymbolInformation {
		syms, err := s.workspaceSymbol(mockContext(), &protocol.WorkspaceSymbolParams{Query: q})
		require.NoError(t, err)
		return syms
	}
	names := func(syms []protocol.SymbolInformation) []string {
		var out []string
		for _, si := range syms {
			out = append(out, si.Name)
		}
		return out
	}

	syms := query("dep")
	assert.Equal(t, []string{"DEPTH", "Dep", "dep_helper"}, names(syms))
	assert.Equal(t, protocol.SymbolKindConstant, syms[0].Kind)
	assert.Equal(t, pathToURI(filepath.Join(dir, "main.php")), syms[0].Location.URI)
	assert.Equal(t, protocol.SymbolKindClass, syms[1].Kind)
	assert.Equal(t, pathToURI(filepath.Join(dir, "dep.php")), syms[1].Location.URI)

	syms = query("RUN")
	require.Len(t, syms, 1)
	assert.Equal(t, protocol.SymbolKindMethod, syms[0].Kind)
	require.NotNil(t, syms[0].ContainerName)
	assert.Equal(t, "Dep", *syms[0].ContainerName)

	assert.Len(t, query(""), 4)
	assert.Empty(t, query("zzz"))
}
