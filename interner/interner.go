// Copyright © 2024 The Mago authors

// Package interner provides a deduplicated string store that hands out compact
// 32-bit identifiers.  A single Interner is created at startup and shared by
// reference between every component of a run.
package interner

import (
	"strings"
	"sync"
)

// ID is an opaque handle to an interned string.  The empty string is always
// Empty.
type ID uint32

// Empty is the ID of the empty string.
const Empty ID = 0

// Interner is safe for concurrent use.
type Interner struct {
	mu      sync.RWMutex
	ids     map[string]ID
	strs    []string
	lowered map[ID]ID
}

// New returns an Interner containing only the empty string.
func New() *Interner {
	return &Interner{
		ids:     map[string]ID{"": Empty},
		strs:    []string{""},
		lowered: map[ID]ID{Empty: Empty},
	}
}

// Intern returns the ID for s, allocating one when s has not been seen.
func (in *Interner) Intern(s string) ID {
	in.mu.RLock()
	id, ok := in.ids[s]
	in.mu.RUnlock()
	if ok {
		return id
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internLocked(s)
}

func (in *Interner) internLocked(s string) ID {
	if id, ok := in.ids[s]; ok {
		return id
	}
	id := ID(len(in.strs))
	// Clone so that callers slicing large buffers do not pin them.
	s = strings.Clone(s)
	in.strs = append(in.strs, s)
	in.ids[s] = id
	return id
}

// Lookup returns the string for id.  Lookup panics for an ID that was not
// issued by in.
func (in *Interner) Lookup(id ID) string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.strs[id]
}

// Find returns the ID of s without interning it.
func (in *Interner) Find(s string) (ID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.ids[s]
	return id, ok
}

// Lowered returns the ID of the ASCII-lowercased form of id's string.
func (in *Interner) Lowered(id ID) ID {
	in.mu.RLock()
	low, ok := in.lowered[id]
	in.mu.RUnlock()
	if ok {
		return low
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if low, ok := in.lowered[id]; ok {
		return low
	}
	s := in.strs[id]
	ls := asciiLower(s)
	if ls == s {
		low = id
	} else {
		low = in.internLocked(ls)
	}
	in.lowered[id] = low
	in.lowered[low] = low
	return low
}

// asciiLower folds A-Z only, matching PHP's case-insensitive names.
func asciiLower(s string) string {
	i := 0
	for i < len(s) && (s[i] < 'A' || s[i] > 'Z') {
		i++
	}
	if i == len(s) {
		return s
	}
	b := []byte(s)
	for ; i < len(b); i++ {
		if c := b[i]; 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

// InternLowered interns the lowercased form of s.
func (in *Interner) InternLowered(s string) ID {
	return in.Lowered(in.Intern(s))
}

// Len returns the number of distinct non-empty strings interned.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.strs) - 1
}

// IsEmpty reports whether nothing besides the empty string was interned.
func (in *Interner) IsEmpty() bool {
	return in.Len() == 0
}
