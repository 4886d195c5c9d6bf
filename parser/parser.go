// Copyright © 2024 The Mago authors

// Package parser turns source files into syntax trees.
package parser

import (
	"github.com/magophp/mago/interner"
	"github.com/magophp/mago/parser/ast"
	"github.com/magophp/mago/parser/rdparser"
	"github.com/magophp/mago/source"
)

// Parse parses f.  The program is always returned; a non-nil error is a
// *rdparser.ParseError and the program holds what was parsed before it.
func Parse(f *source.File) (*ast.Program, error) {
	prog, err := rdparser.Parse(f)
	if err != nil {
		return prog, err
	}
	return prog, nil
}

// ParseString registers content under name in a fresh database and parses
// it.
func ParseString(name, content string) (*ast.Program, *source.File, error) {
	db := source.NewDatabase(interner.New())
	f := db.Add(name, content, source.UserDefined)
	prog, err := Parse(f)
	return prog, f, err
}
