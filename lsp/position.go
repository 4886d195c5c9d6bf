// Copyright © 2024 The Mago authors

package lsp

import (
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/magophp/mago/source"
)

// safeUint converts a non-negative int to protocol.UInteger, clamping
// negative values to zero.
func safeUint(n int) protocol.UInteger {
	if n < 0 {
		return 0
	}
	return protocol.UInteger(n) // #nosec G115 -- line/col are always small positive ints
}

// utf16Len returns the length of s in UTF-16 code units, the unit of LSP
// character offsets.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// offsetToPosition converts a byte offset in f to a 0-based LSP position.
func offsetToPosition(f *source.File, offset int) protocol.Position {
	if offset > len(f.Content) {
		offset = len(f.Content)
	}
	line := f.LineNumber(offset)
	start := f.LineStart(line)
	return protocol.Position{
		Line:      safeUint(line - 1),
		Character: safeUint(utf16Len(f.Content[start:offset])),
	}
}

// positionToOffset converts a 0-based LSP position to a byte offset in f.
func positionToOffset(f *source.File, pos protocol.Position) int {
	line := int(pos.Line) + 1
	if line > f.LineCount() {
		return len(f.Content)
	}
	offset := f.LineStart(line)
	end := f.LineEnd(line)
	for units := 0; offset < end && units < int(pos.Character); {
		r, size := utf8.DecodeRuneInString(f.Content[offset:])
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
		offset += size
	}
	return offset
}

// spanToRange converts a span of f to an LSP range.
func spanToRange(f *source.File, span source.Span) protocol.Range {
	return protocol.Range{
		Start: offsetToPosition(f, int(span.Start)),
		End:   offsetToPosition(f, int(span.End)),
	}
}

// endPosition returns the position just past the end of content.
func endPosition(content string) protocol.Position {
	line := strings.Count(content, "\n")
	last := content[strings.LastIndexByte(content, '\n')+1:]
	return protocol.Position{Line: safeUint(line), Character: safeUint(utf16Len(last))}
}

// rangesOverlap reports whether a and b share a position.  Touching ranges
// overlap so that an empty request range at a diagnostic edge matches it.
func rangesOverlap(a, b protocol.Range) bool {
	return !before(a.End, b.Start) && !before(b.End, a.Start)
}

func before(a, b protocol.Position) bool {
	return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
}

// uriToPath converts a file:// URI to a filesystem path.
func uriToPath(uri string) string {
	if path, ok := strings.CutPrefix(uri, "file://"); ok {
		return path
	}
	return uri
}

// pathToURI converts a filesystem path to a file:// URI.
func pathToURI(path string) string {
	if strings.HasPrefix(path, "/") {
		return "file://" + path
	}
	return path
}
