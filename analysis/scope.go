// Copyright © 2024 The Mago authors

package analysis

import (
	"sort"
	"strings"

	"github.com/magophp/mago/dataflow"
	"github.com/magophp/mago/ttype"
)

// Actions is the set of ways a block may exit.
type Actions uint8

const (
	// ActionNone means the block falls through.
	ActionNone Actions = 1 << iota
	ActionReturn
	ActionBreak
	ActionContinue
	ActionThrow
	// ActionEnd is a terminating construct such as exit.
	ActionEnd
)

var actionNames = []struct {
	a    Actions
	name string
}{
	{ActionNone, "none"},
	{ActionReturn, "return"},
	{ActionBreak, "break"},
	{ActionContinue, "continue"},
	{ActionThrow, "throw"},
	{ActionEnd, "end"},
}

func (s Actions) String() string {
	var parts []string
	for _, n := range actionNames {
		if s&n.a != 0 {
			parts = append(parts, n.name)
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Has reports whether any of the actions in o is in s.
func (s Actions) Has(o Actions) bool {
	return s&o != 0
}

// FallsThrough reports whether s contains ActionNone.
func (s Actions) FallsThrough() bool {
	return s&ActionNone != 0
}

// Then sequences s with the actions of the statement that follows.
func (s Actions) Then(next Actions) Actions {
	if !s.FallsThrough() {
		return s
	}
	return s&^ActionNone | next
}

// BlockContext is the state of the analysis at one point in a block:
// the types of live variables, where their values came from, and how the
// block has exited so far.  Variable keys include the dollar sign and may
// name narrowed sub-expressions such as $a['x'] or $this->p.
type BlockContext struct {
	Vars    map[string]ttype.Union
	Actions Actions

	HasReturned  bool
	InsideIsset  bool
	InsideUnset  bool
	InsideLoop   bool
	InsideCall   bool
	InsideAssign bool

	// sources maps a variable to the assignments its current value may
	// come from, for unused-variable detection.
	sources map[string][]*dataflow.Node
	// taint maps a variable to the taint graph nodes its value may carry.
	taint map[string][]*dataflow.Node
	// refs holds variables bound by reference, global, or static, whose
	// assignments are always considered used.
	refs map[string]bool
}

// NewBlockContext returns the context at the entry of a function body.
func NewBlockContext() *BlockContext {
	return &BlockContext{
		Vars:    make(map[string]ttype.Union),
		Actions: ActionNone,
		sources: make(map[string][]*dataflow.Node),
		taint:   make(map[string][]*dataflow.Node),
		refs:    make(map[string]bool),
	}
}

// Clone returns an independent copy of c.
func (c *BlockContext) Clone() *BlockContext {
	out := *c
	out.Vars = make(map[string]ttype.Union, len(c.Vars))
	for k, v := range c.Vars {
		out.Vars[k] = v
	}
	out.sources = make(map[string][]*dataflow.Node, len(c.sources))
	for k, v := range c.sources {
		out.sources[k] = v
	}
	out.taint = make(map[string][]*dataflow.Node, len(c.taint))
	for k, v := range c.taint {
		out.taint[k] = v
	}
	out.refs = make(map[string]bool, len(c.refs))
	for k, v := range c.refs {
		out.refs[k] = v
	}
	return &out
}

// fork returns a copy of c for a branch that has not exited yet.
func (c *BlockContext) fork() *BlockContext {
	out := c.Clone()
	out.Actions = ActionNone
	return out
}

// Lookup returns the type of the variable or narrowed expression key.
func (c *BlockContext) Lookup(key string) (ttype.Union, bool) {
	t, ok := c.Vars[key]
	return t, ok
}

// assign binds key to t and forgets everything narrowed below it.
func (c *BlockContext) assign(key string, t ttype.Union) {
	c.invalidate(key)
	c.Vars[key] = t
}

// invalidate removes the narrowed keys derived from key.
func (c *BlockContext) invalidate(key string) {
	for k := range c.Vars {
		if k != key && derivedFrom(k, key) {
			delete(c.Vars, k)
		}
	}
}

func derivedFrom(k, base string) bool {
	if !strings.HasPrefix(k, base) {
		return false
	}
	rest := k[len(base):]
	return strings.HasPrefix(rest, "[") || strings.HasPrefix(rest, "->") || strings.HasPrefix(rest, "::")
}

// isPlainVar reports whether key names a variable rather than a narrowed
// sub-expression.
func isPlainVar(key string) bool {
	return strings.HasPrefix(key, "$") && !strings.ContainsAny(key, "[-:")
}

func sortedVarKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func unionNodes(a, b []*dataflow.Node) []*dataflow.Node {
	if len(a) == 0 {
		return b
	}
	out := append([]*dataflow.Node(nil), a...)
	for _, n := range b {
		dup := false
		for _, m := range out {
			if m.ID == n.ID {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, n)
		}
	}
	return out
}

// merge folds the branches that fall through into c.  A variable bound in
// only some of them becomes possibly undefined; narrowed keys survive only
// when every branch has them.  c.Actions becomes the union of the branch
// actions.
func (c *BlockContext) merge(branches ...*BlockContext) {
	var live []*BlockContext
	actions := c.Actions &^ ActionNone
	for _, b := range branches {
		actions |= b.Actions
		if b.Actions.FallsThrough() {
			live = append(live, b)
		}
		for k, v := range b.sources {
			c.sources[k] = unionNodes(c.sources[k], v)
		}
		for k, v := range b.taint {
			c.taint[k] = unionNodes(c.taint[k], v)
		}
		for k := range b.refs {
			c.refs[k] = true
		}
	}
	c.Actions = actions
	if len(live) == 0 {
		return
	}
	keys := make(map[string]bool)
	for _, b := range live {
		for k := range b.Vars {
			keys[k] = true
		}
	}
	vars := make(map[string]ttype.Union, len(keys))
	for k := range keys {
		var parts []ttype.Union
		missing := false
		for _, b := range live {
			t, ok := b.Vars[k]
			if !ok {
				missing = true
				continue
			}
			parts = append(parts, t)
		}
		if missing && !isPlainVar(k) {
			continue
		}
		u := ttype.Merge(parts...)
		for _, p := range parts {
			u.PossiblyUndefined = u.PossiblyUndefined || p.PossiblyUndefined
		}
		if missing {
			u.PossiblyUndefined = true
		}
		vars[k] = u
	}
	c.Vars = vars
}

// mergeConditional folds in a branch that may or may not have run, such as
// the right side of && or the body of a loop that may not iterate.
// Narrowing done in the branch does not survive.
func (c *BlockContext) mergeConditional(b *BlockContext) {
	for k, t := range b.Vars {
		prev, ok := c.Vars[k]
		switch {
		case !ok && isPlainVar(k):
			t.PossiblyUndefined = true
			c.Vars[k] = t
		case ok && isPlainVar(k) && !ttype.Equal(prev, t):
			u := ttype.Merge(prev, t)
			u.PossiblyUndefined = prev.PossiblyUndefined || t.PossiblyUndefined
			c.Vars[k] = u
		}
	}
	for k := range c.Vars {
		if _, ok := b.Vars[k]; !ok && !isPlainVar(k) {
			delete(c.Vars, k)
		}
	}
	for k, v := range b.sources {
		c.sources[k] = unionNodes(c.sources[k], v)
	}
	for k, v := range b.taint {
		c.taint[k] = unionNodes(c.taint[k], v)
	}
	for k := range b.refs {
		c.refs[k] = true
	}
}
