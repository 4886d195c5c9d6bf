// Copyright © 2024 The Mago authors

package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// LoaderConfig selects which files make up a workspace.
type LoaderConfig struct {
	// Workspace is the root against which relative paths are resolved.
	Workspace string
	// Paths are user-defined roots.  When empty the workspace itself is used.
	Paths []string
	// Includes are external dependency roots.  Their files are indexed but
	// never reported on.
	Includes []string
	// Excludes are glob patterns or plain paths, relative to the workspace.
	Excludes []string
	// Extensions accepted without the leading dot.  Defaults to "php".
	Extensions []string
}

// LoadError records a file that could not be read.
type LoadError struct {
	Path string
	Err  error
}

func (err *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", err.Path, err.Err)
}

func (err *LoadError) Unwrap() error {
	return err.Err
}

// Loader reads workspace files into a Database.
type Loader struct {
	workspace  string
	cfg        LoaderConfig
	globs      []glob.Glob
	prefixes   []string
	extensions map[string]bool
}

// NewLoader validates cfg and compiles its exclude patterns.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	ws := cfg.Workspace
	if ws == "" {
		ws = "."
	}
	ws, err := filepath.Abs(ws)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	l := &Loader{
		workspace:  ws,
		cfg:        cfg,
		extensions: make(map[string]bool),
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = []string{"php"}
	}
	for _, ext := range exts {
		l.extensions[strings.TrimPrefix(ext, ".")] = true
	}
	for _, p := range cfg.Excludes {
		p = filepath.ToSlash(p)
		if !strings.ContainsAny(p, "*?[{") {
			l.prefixes = append(l.prefixes, strings.TrimSuffix(strings.TrimPrefix(p, "./"), "/"))
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		l.globs = append(l.globs, g)
	}
	return l, nil
}

// Workspace returns the absolute workspace root.
func (l *Loader) Workspace() string {
	return l.workspace
}

// Load reads every selected file into db.  Files found under both a user path
// and an include are registered as UserDefined.  Unreadable files are
// returned as LoadErrors and skipped; the returned error is non-nil only when
// a configured root does not exist.
func (l *Loader) Load(db *Database) ([]*File, []*LoadError, error) {
	userRoots := l.cfg.Paths
	if len(userRoots) == 0 {
		userRoots = []string{l.workspace}
	}
	user, err := l.collect(userRoots)
	if err != nil {
		return nil, nil, err
	}
	external, err := l.collect(l.cfg.Includes)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool, len(user)+len(external))
	var files []*File
	var loadErrs []*LoadError
	add := func(paths []string, cat Category) {
		for _, path := range paths {
			if seen[path] {
				continue
			}
			seen[path] = true
			content, err := os.ReadFile(path) //nolint:gosec // reads user-configured workspace files
			if err != nil {
				loadErrs = append(loadErrs, &LoadError{Path: path, Err: err})
				continue
			}
			files = append(files, db.AddPath(l.relative(path), path, string(content), cat))
		}
	}
	add(user, UserDefined)
	add(external, External)
	return files, loadErrs, nil
}

func (l *Loader) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(l.workspace, p)
}

func (l *Loader) relative(path string) string {
	rel, err := filepath.Rel(l.workspace, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Excluded reports whether the workspace-relative path is excluded.
func (l *Loader) Excluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range l.prefixes {
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	for _, g := range l.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Accepts reports whether path has an accepted extension.
func (l *Loader) Accepts(path string) bool {
	return l.extensions[strings.TrimPrefix(filepath.Ext(path), ".")]
}

func (l *Loader) collect(roots []string) ([]string, error) {
	var paths []string
	for _, root := range roots {
		root = l.resolve(root)
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("source path: %w", err)
		}
		if !info.IsDir() {
			if !l.Excluded(l.relative(root)) {
				paths = append(paths, root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable directories are skipped.
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			rel := l.relative(path)
			if d.IsDir() {
				if path != root && (shouldSkipDir(d.Name()) || l.Excluded(rel)) {
					return filepath.SkipDir
				}
				return nil
			}
			if l.Accepts(path) && !l.Excluded(rel) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// shouldSkipDir returns true for hidden directories such as .git.
func shouldSkipDir(name string) bool {
	return len(name) > 1 && name[0] == '.' && name != ".."
}
