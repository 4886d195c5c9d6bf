// Copyright © 2024 The Mago authors

// Package source owns the text of every file taking part in a run.  Files are
// registered once in a Database, which hands out FileIDs used by spans
// throughout the parser, analyzer and diagnostics.
package source

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/magophp/mago/interner"
)

// ErrUnknownFile is returned when a FileID was not issued by the Database.
var ErrUnknownFile = errors.New("unknown file")

// FileID is a handle into a Database.
type FileID uint32

// Category classifies where a file came from.  Only UserDefined files are
// reported on.
type Category uint8

const (
	UserDefined Category = iota
	External
	Builtin
)

func (c Category) String() string {
	switch c {
	case UserDefined:
		return "user-defined"
	case External:
		return "external"
	case Builtin:
		return "builtin"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// File is an immutable source file.
type File struct {
	ID        FileID
	Name      string
	NameID    interner.ID
	Path      string // physical location, empty for in-memory files
	ContentID interner.ID
	Content   string
	Category  Category
	lines     []int
}

func newFile(id FileID, name, path, content string, nameID, contentID interner.ID, cat Category) *File {
	f := &File{
		ID:        id,
		Name:      name,
		NameID:    nameID,
		Path:      path,
		ContentID: contentID,
		Content:   content,
		Category:  cat,
		lines:     []int{0},
	}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			f.lines = append(f.lines, i+1)
		}
	}
	return f
}

// Size returns the length of the file in bytes.
func (f *File) Size() int {
	return len(f.Content)
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int {
	return len(f.lines)
}

// LineNumber returns the 1-based line containing offset.
func (f *File) LineNumber(offset int) int {
	if offset < 0 {
		return 1
	}
	return sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > offset })
}

// ColumnNumber returns the 1-based byte column of offset within its line.
func (f *File) ColumnNumber(offset int) int {
	line := f.LineNumber(offset)
	return offset - f.lines[line-1] + 1
}

// LineStart returns the offset of the first byte of the 1-based line.
func (f *File) LineStart(line int) int {
	if line < 1 {
		return 0
	}
	if line > len(f.lines) {
		return len(f.Content)
	}
	return f.lines[line-1]
}

// LineEnd returns the offset just past the last byte of the 1-based line,
// excluding the newline.
func (f *File) LineEnd(line int) int {
	if line >= len(f.lines) {
		return len(f.Content)
	}
	end := f.lines[line] - 1
	if end > 0 && f.Content[end-1] == '\r' {
		end--
	}
	return end
}

// Line returns the text of the 1-based line without its terminator.
func (f *File) Line(line int) string {
	return f.Content[f.LineStart(line):f.LineEnd(line)]
}

// Database is an append-only registry of files.  It is safe for concurrent
// use.
type Database struct {
	mu     sync.RWMutex
	in     *interner.Interner
	files  []*File
	byName map[string]FileID
}

// NewDatabase returns an empty Database interning names and contents in in.
func NewDatabase(in *interner.Interner) *Database {
	return &Database{
		in:     in,
		byName: make(map[string]FileID),
	}
}

// Interner returns the interner shared by the database.
func (db *Database) Interner() *interner.Interner {
	return db.in
}

// Add registers content under name.  Adding a name twice registers a new file
// which shadows the previous one in ByName.
func (db *Database) Add(name, content string, cat Category) *File {
	return db.AddPath(name, "", content, cat)
}

// AddPath is like Add but records the physical path the content was read
// from.
func (db *Database) AddPath(name, path, content string, cat Category) *File {
	nameID := db.in.Intern(name)
	contentID := db.in.Intern(content)
	content = db.in.Lookup(contentID)
	db.mu.Lock()
	defer db.mu.Unlock()
	f := newFile(FileID(len(db.files)), name, path, content, nameID, contentID, cat)
	db.files = append(db.files, f)
	db.byName[name] = f.ID
	return f
}

// Get returns the file for id.
func (db *Database) Get(id FileID) (*File, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if int(id) >= len(db.files) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFile, id)
	}
	return db.files[id], nil
}

// MustGet is like Get but panics for an unknown id.
func (db *Database) MustGet(id FileID) *File {
	f, err := db.Get(id)
	if err != nil {
		panic(err)
	}
	return f
}

// ByName returns the most recently added file called name.
func (db *Database) ByName(name string) (*File, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	id, ok := db.byName[name]
	if !ok {
		return nil, false
	}
	return db.files[id], true
}

// Files returns a snapshot of every registered file in ID order.
func (db *Database) Files() []*File {
	db.mu.RLock()
	defer db.mu.RUnlock()
	files := make([]*File, len(db.files))
	copy(files, db.files)
	return files
}

// FilesIn returns the files belonging to any of the given categories.
func (db *Database) FilesIn(cats ...Category) []*File {
	var files []*File
	for _, f := range db.Files() {
		for _, c := range cats {
			if f.Category == c {
				files = append(files, f)
				break
			}
		}
	}
	return files
}

// Len returns the number of registered files.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.files)
}
