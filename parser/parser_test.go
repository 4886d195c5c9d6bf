// Copyright © 2024 The Mago authors

package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/parser/rdparser"
)

func TestParseString(t *testing.T) {
	prog, f, err := ParseString("a.php", "<?php $a = 1;")
	require.NoError(t, err)
	assert.Equal(t, "a.php", f.Name)
	assert.Len(t, prog.Statements, 2)
}

func TestParseStringError(t *testing.T) {
	prog, _, err := ParseString("a.php", "<?php function (")
	require.Error(t, err)
	var perr *rdparser.ParseError
	require.True(t, errors.As(err, &perr))
	assert.NotNil(t, prog)
}
