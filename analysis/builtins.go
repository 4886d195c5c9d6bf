// Copyright © 2024 The Mago authors

package analysis

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/magophp/mago/source"
)

// stubs holds the declarations of the engine's builtin functions, classes,
// and constants.
//
//go:embed stubs/*.php
var stubs embed.FS

// preludePrefix names the builtin files in the source database.
const preludePrefix = "<prelude>/"

// AddPrelude adds the builtin stub files to db as Builtin files and returns
// them in a stable order.  It is idempotent.
func AddPrelude(db *source.Database) ([]*source.File, error) {
	names, err := fs.Glob(stubs, "stubs/*.php")
	if err != nil {
		return nil, fmt.Errorf("prelude: %w", err)
	}
	sort.Strings(names)
	files := make([]*source.File, 0, len(names))
	for _, name := range names {
		logical := preludePrefix + path.Base(name)
		if f, ok := db.ByName(logical); ok {
			files = append(files, f)
			continue
		}
		content, err := stubs.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("prelude: %s: %w", name, err)
		}
		files = append(files, db.Add(logical, string(content), source.Builtin))
	}
	return files, nil
}

// IsPrelude reports whether f is one of the builtin stub files.
func IsPrelude(f *source.File) bool {
	return f.Category == source.Builtin && strings.HasPrefix(f.Name, preludePrefix)
}
