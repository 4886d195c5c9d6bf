// Copyright © 2024 The Mago authors

package source

import "fmt"

// Position is a byte offset within a file.
type Position struct {
	File   FileID
	Offset uint32
}

// Span is a half-open byte range [Start, End) within a file.
type Span struct {
	File  FileID
	Start uint32
	End   uint32
}

// NewSpan constructs a span from int offsets.
func NewSpan(file FileID, start, end int) Span {
	return Span{File: file, Start: uint32(start), End: uint32(end)}
}

// Join returns the smallest span enclosing both s and other.  Both spans must
// belong to the same file.
func (s Span) Join(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// To returns the span from the start of s to the end of other.
func (s Span) To(other Span) Span {
	return Span{File: s.File, Start: s.Start, End: other.End}
}

// Len returns the length of the span in bytes.
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return int(s.End - s.Start)
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset uint32) bool {
	return offset >= s.Start && offset < s.End
}

// Encloses reports whether other lies within s.
func (s Span) Encloses(other Span) bool {
	return s.File == other.File && other.Start >= s.Start && other.End <= s.End
}

// StartPosition returns the position of the first byte.
func (s Span) StartPosition() Position {
	return Position{File: s.File, Offset: s.Start}
}

// EndPosition returns the position just past the last byte.
func (s Span) EndPosition() Position {
	return Position{File: s.File, Offset: s.End}
}

// Key returns the (start, end) pair identifying an expression in a file.
func (s Span) Key() [2]uint32 {
	return [2]uint32{s.Start, s.End}
}

// Text returns the slice of f covered by s.
func (s Span) Text(f *File) string {
	end := int(s.End)
	if end > len(f.Content) {
		end = len(f.Content)
	}
	start := int(s.Start)
	if start > end {
		return ""
	}
	return f.Content[start:end]
}

func (s Span) String() string {
	return fmt.Sprintf("%d:[%d,%d)", s.File, s.Start, s.End)
}
