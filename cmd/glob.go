// Copyright © 2024 The Mago authors

package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
)

// expandArgs turns command line paths into absolute paths.  A trailing
// "/..." is accepted for familiarity and dropped, since directories are
// always searched recursively.
func expandArgs(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if dir, ok := strings.CutSuffix(arg, "/..."); ok {
			arg = dir
			if arg == "" {
				arg = "."
			}
		} else if arg == "..." {
			arg = "."
		}
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", arg, err)
		}
		out = append(out, abs)
	}
	return out, nil
}
