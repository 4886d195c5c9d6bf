// Copyright © 2024 The Mago authors

package pragma

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/diagnostic"
	"github.com/magophp/mago/parser"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/source"
)

func parse(t *testing.T, src string) (*ast.Program, *source.File) {
	t.Helper()
	prog, f, err := parser.ParseString("test.php", src)
	require.NoError(t, err)
	return prog, f
}

// issueOnLine fabricates an issue whose primary span starts at line.
func issueOnLine(f *source.File, line int, category, code string) *diagnostic.Issue {
	start := uint32(f.LineStart(line))
	return diagnostic.NewIssue(diagnostic.LevelError, category, code, "msg").
		At(source.Span{File: f.ID, Start: start, End: start + 1}, "")
}

func TestParseComment(t *testing.T) {
	tests := []struct {
		text  string
		kind  Kind
		rules []string
		ok    bool
	}{
		{"// @mago-ignore analysis:unused-assignment", Ignore, []string{"analysis:unused-assignment"}, true},
		{"# @mago-expect lint:no-eval, analysis:invalid-argument", Expect, []string{"lint:no-eval", "analysis:invalid-argument"}, true},
		{"/** @mago-expect analysis:tainted-data */", Expect, []string{"analysis:tainted-data"}, true},
		{"// @mago-ignore analysis:x because reasons", Ignore, []string{"analysis:x"}, true},
		{"// @mago-ignore", Ignore, nil, false},
		{"// @mago-ignored analysis:x", Ignore, nil, false},
		{"// nothing to see", Ignore, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			kind, rules, ok := parseComment(tt.text)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.kind, kind)
				assert.Equal(t, tt.rules, rules)
			}
		})
	}
}

func TestCollect_TargetLines(t *testing.T) {
	prog, f := parse(t, `<?php
// @mago-ignore analysis:a

// @mago-expect analysis:b
$x = 1;
$y = 2; // @mago-ignore analysis:c
`)
	ps := Collect(f, prog)
	require.Len(t, ps, 3)
	assert.Equal(t, 5, ps[0].Line)
	assert.Equal(t, 5, ps[1].Line)
	assert.Equal(t, Expect, ps[1].Kind)
	assert.Equal(t, 6, ps[2].Line)
}

func TestApply(t *testing.T) {
	prog, f := parse(t, `<?php
// @mago-ignore analysis:unused-assignment
$x = 1;
// @mago-expect analysis:invalid-argument
foo("a");
// @mago-expect lint:no-eval
$z = 3;
`)
	c := diagnostic.NewIssueCollection(
		issueOnLine(f, 3, "analysis", "unused-assignment"),
		issueOnLine(f, 3, "analysis", "undefined-variable"),
		issueOnLine(f, 5, "analysis", "invalid-argument"),
	)
	out := Apply(f, prog, c)
	assert.ElementsMatch(t, []string{"undefined-variable", CodeUnfulfilledExpect}, out.Codes())

	var unfulfilled *diagnostic.Issue
	for _, i := range out.All() {
		if i.Code == CodeUnfulfilledExpect {
			unfulfilled = i
		}
	}
	require.NotNil(t, unfulfilled)
	assert.Equal(t, "// @mago-expect lint:no-eval", unfulfilled.Primary.Span.Text(f))
	assert.Equal(t, diagnostic.LevelWarning, unfulfilled.Level)
	assert.Len(t, unfulfilled.Notes, 1)
	require.NotNil(t, unfulfilled.Fix)
	assert.Equal(t, diagnostic.PotentiallyUnsafe, unfulfilled.Fix.Safety())
}

func TestApply_NoPragmas(t *testing.T) {
	prog, f := parse(t, `<?php
$x = 1;
`)
	c := diagnostic.NewIssueCollection(issueOnLine(f, 2, "analysis", "unused-assignment"))
	assert.Same(t, c, Apply(f, prog, c))
}

func TestSuppressed_OtherFile(t *testing.T) {
	prog, f := parse(t, `<?php
// @mago-ignore analysis:a
$x = 1;
`)
	s := NewSet(f, prog)
	i := issueOnLine(f, 3, "analysis", "a")
	i.Primary.Span.File = f.ID + 1
	assert.False(t, s.Suppressed(i))
}
