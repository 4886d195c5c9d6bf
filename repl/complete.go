// Copyright © 2024 The Mago authors

package repl

import (
	"sort"
	"strings"

	"github.com/magophp/mago/codebase"
	"github.com/magophp/mago/parser/token"
)

// symbolCompleter implements readline.AutoCompleter by enumerating the
// functions, classes, constants, and variables known to the session.
type symbolCompleter struct {
	session *Session
}

func (c *symbolCompleter) Do(line []rune, pos int) ([][]rune, int) {
	// Extract the word being typed, backwards from the cursor.
	start := pos
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	candidates := c.collectSymbols(prefix)
	if len(candidates) == 0 {
		return nil, 0
	}

	// Each entry is the suffix to append.
	result := make([][]rune, 0, len(candidates))
	for _, sym := range candidates {
		result = append(result, []rune(sym[len(prefix):]))
	}
	return result, len([]rune(prefix))
}

func isWordRune(r rune) bool {
	return r == '_' || r == '$' || r == '\\' || r >= 0x80 ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

func (c *symbolCompleter) collectSymbols(prefix string) []string {
	seen := make(map[string]bool)
	var result []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}

	if strings.HasPrefix(prefix, "$") {
		for _, tok := range significant(c.session.Source()) {
			if tok.Kind == token.Variable {
				add(tok.Value)
			}
		}
	} else {
		addCodebase(c.session.Codebase(), add)
	}

	sort.Strings(result)
	return result
}

func addCodebase(cb *codebase.Codebase, add func(string)) {
	for _, f := range cb.Functions {
		add(f.Name)
	}
	for _, m := range cb.Classes {
		if !m.Anonymous {
			add(m.Name)
		}
	}
	for _, k := range cb.Constants {
		add(k.Name)
	}
}
