// Copyright © 2024 The Mago authors

package diagnostic

import (
	"errors"
	"sort"
	"strings"

	"github.com/magophp/mago/source"
)

// ErrOverlappingEdit is returned when an edit intersects one already in the
// plan.
var ErrOverlappingEdit = errors.New("overlapping edit")

// Safety classifies how confident a fix is that it preserves behavior.
type Safety int

const (
	Safe Safety = iota
	PotentiallyUnsafe
	Unsafe
)

func (s Safety) String() string {
	switch s {
	case Safe:
		return "safe"
	case PotentiallyUnsafe:
		return "potentially-unsafe"
	case Unsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// Edit replaces the bytes covered by Range.
type Edit struct {
	Range       source.Span
	Replacement string
	Safety      Safety
}

// Delete returns an edit removing span.
func Delete(span source.Span, safety Safety) Edit {
	return Edit{Range: span, Safety: safety}
}

// Replace returns an edit replacing span with text.
func Replace(span source.Span, text string, safety Safety) Edit {
	return Edit{Range: span, Replacement: text, Safety: safety}
}

// Insert returns an edit inserting text at offset.
func Insert(file source.FileID, offset uint32, text string, safety Safety) Edit {
	return Edit{Range: source.Span{File: file, Start: offset, End: offset}, Replacement: text, Safety: safety}
}

// FixPlan is an ordered list of non-overlapping edits within one file.
type FixPlan struct {
	edits []Edit
}

// NewFixPlan builds a plan from edits, failing if any two overlap.
func NewFixPlan(edits ...Edit) (*FixPlan, error) {
	p := &FixPlan{}
	for _, e := range edits {
		if err := p.Add(e); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add inserts e keeping the plan sorted by start offset.
func (p *FixPlan) Add(e Edit) error {
	i := sort.Search(len(p.edits), func(i int) bool {
		return p.edits[i].Range.Start >= e.Range.Start
	})
	if i > 0 && p.edits[i-1].Range.End > e.Range.Start {
		return ErrOverlappingEdit
	}
	if i < len(p.edits) && e.Range.End > p.edits[i].Range.Start {
		return ErrOverlappingEdit
	}
	if i < len(p.edits) && e.Range.Len() == 0 && p.edits[i].Range.Start == e.Range.Start && p.edits[i].Range.Len() == 0 {
		return ErrOverlappingEdit
	}
	p.edits = append(p.edits, Edit{})
	copy(p.edits[i+1:], p.edits[i:])
	p.edits[i] = e
	return nil
}

// Edits returns the edits in application order.
func (p *FixPlan) Edits() []Edit {
	if p == nil {
		return nil
	}
	return p.edits
}

// Len returns the number of edits.
func (p *FixPlan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.edits)
}

// Safety returns the least safe classification among the edits.
func (p *FixPlan) Safety() Safety {
	s := Safe
	for _, e := range p.Edits() {
		if e.Safety > s {
			s = e.Safety
		}
	}
	return s
}

// Apply returns content with every edit at or below limit applied.
// Skipped edits leave their range untouched.
func (p *FixPlan) Apply(content string, limit Safety) string {
	var sb strings.Builder
	last := 0
	for _, e := range p.Edits() {
		if e.Safety > limit {
			continue
		}
		start, end := int(e.Range.Start), int(e.Range.End)
		if start < last || end > len(content) {
			continue
		}
		sb.WriteString(content[last:start])
		sb.WriteString(e.Replacement)
		last = end
	}
	sb.WriteString(content[last:])
	return sb.String()
}
