// Copyright © 2024 The Mago authors

package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/source"
)

func TestFixPlanOrdering(t *testing.T) {
	plan, err := NewFixPlan(
		Replace(source.NewSpan(0, 10, 12), "b", Safe),
		Replace(source.NewSpan(0, 0, 2), "a", Safe),
	)
	require.NoError(t, err)
	edits := plan.Edits()
	require.Len(t, edits, 2)
	assert.Equal(t, uint32(0), edits[0].Range.Start)
	assert.Equal(t, uint32(10), edits[1].Range.Start)

	assert.ErrorIs(t, plan.Add(Delete(source.NewSpan(0, 1, 4), Safe)), ErrOverlappingEdit)
	assert.ErrorIs(t, plan.Add(Delete(source.NewSpan(0, 8, 11), Safe)), ErrOverlappingEdit)
	assert.NoError(t, plan.Add(Insert(0, 2, "!", Safe)))
}

func TestFixPlanApply(t *testing.T) {
	content := "<?php $a = 1; echo 2;"
	plan, err := NewFixPlan(
		Delete(source.NewSpan(0, 6, 14), Safe),
		Replace(source.NewSpan(0, 19, 20), "3", PotentiallyUnsafe),
	)
	require.NoError(t, err)
	assert.Equal(t, PotentiallyUnsafe, plan.Safety())
	assert.Equal(t, "<?php echo 2;", plan.Apply(content, Safe))
	assert.Equal(t, "<?php echo 3;", plan.Apply(content, Unsafe))

	var none *FixPlan
	assert.Equal(t, content, none.Apply(content, Unsafe))
}

func TestIssueCollection(t *testing.T) {
	c := &IssueCollection{}
	c.Add(NewIssue(LevelWarning, "analysis", "b", "").At(source.NewSpan(2, 5, 6), ""))
	c.Add(NewIssue(LevelError, "analysis", "a", "").At(source.NewSpan(1, 9, 10), ""))
	c.Add(NewIssue(LevelError, "analysis", "c", "").At(source.NewSpan(1, 3, 4), ""))
	c.Add(nil)

	other := NewIssueCollection(NewIssue(LevelNote, "lint", "d", "").At(source.NewSpan(2, 1, 2), ""))
	c.Extend(other)

	assert.Equal(t, 4, c.Len())
	assert.Equal(t, []string{"c", "a", "d", "b"}, c.Codes())
	assert.Equal(t, []source.FileID{1, 2}, c.Files())
	assert.Equal(t, 2, c.Count(LevelError))
	assert.True(t, c.HasErrors())

	warnings := c.Filter(func(i *Issue) bool { return i.Level < LevelError })
	assert.False(t, warnings.HasErrors())
	assert.Equal(t, 2, warnings.Len())
	assert.Equal(t, "lint:d", warnings.All()[0].Rule())
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"error": LevelError, "Warning": LevelWarning, "info": LevelNote, "help": LevelHelp,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("fatal")
	assert.Error(t, err)
}
