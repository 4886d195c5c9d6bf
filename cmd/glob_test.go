// Copyright © 2024 The Mago authors

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandArgs(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	got, err := expandArgs([]string{"src/...", "./...", "...", "a.php", "/abs/b.php"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(wd, "src"),
		wd,
		wd,
		filepath.Join(wd, "a.php"),
		"/abs/b.php",
	}, got)
}

func TestExpandArgs_Empty(t *testing.T) {
	got, err := expandArgs(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
