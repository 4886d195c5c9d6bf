// Copyright © 2024 The Mago authors

package codebase

import (
	"sort"
	"strings"
)

// SymbolReferences records which scopes refer to which symbols and class
// members.  Scopes and symbols are lowercase keys; members are written
// class::member.
type SymbolReferences struct {
	symbols map[string]map[string]bool
	members map[string]map[string]bool
}

// NewSymbolReferences returns an empty reference table.
func NewSymbolReferences() *SymbolReferences {
	return &SymbolReferences{
		symbols: make(map[string]map[string]bool),
		members: make(map[string]map[string]bool),
	}
}

// MemberKey returns the key of a class member.  Methods are
// case-insensitive; properties are written with their dollar sign.
func MemberKey(class, member string) string {
	if !strings.HasPrefix(member, "$") {
		member = strings.ToLower(member)
	}
	return Key(class) + "::" + member
}

// AddSymbol records that scope from refers to a class, function, or
// constant.
func (r *SymbolReferences) AddSymbol(from, symbol string) {
	add(r.symbols, Key(symbol), from)
}

// AddMember records that scope from refers to member of class.
func (r *SymbolReferences) AddMember(from, class, member string) {
	add(r.members, MemberKey(class, member), from)
}

func add(m map[string]map[string]bool, key, from string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]bool)
		m[key] = set
	}
	set[from] = true
}

// SymbolReferenced reports whether any scope refers to symbol.
func (r *SymbolReferences) SymbolReferenced(symbol string) bool {
	return len(r.symbols[Key(symbol)]) > 0
}

// MemberReferenced reports whether any scope refers to member of class.
func (r *SymbolReferences) MemberReferenced(class, member string) bool {
	return len(r.members[MemberKey(class, member)]) > 0
}

// Referencers returns the scopes referring to member of class, sorted.
func (r *SymbolReferences) Referencers(class, member string) []string {
	set := r.members[MemberKey(class, member)]
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of distinct referenced symbols and members.
func (r *SymbolReferences) Len() int {
	return len(r.symbols) + len(r.members)
}

// Extend adds every reference of other.
func (r *SymbolReferences) Extend(other *SymbolReferences) {
	if other == nil {
		return
	}
	for key, set := range other.symbols {
		for from := range set {
			add(r.symbols, key, from)
		}
	}
	for key, set := range other.members {
		for from := range set {
			add(r.members, key, from)
		}
	}
}
