// Package catalog holds the ordered, mutable list of images being triaged.
package catalog

import (
	"path/filepath"
	"strings"

	"github.com/justyntemme/triage/internal/natsort"
)

// Entry is one image in the set. Identity is Path.
type Entry struct {
	Path string // absolute
	Name string // base name
	Stem string
	Ext  string // with the leading dot, original case
}

// NewEntry splits path into its cached name parts. path should already be absolute.
func NewEntry(path string) Entry {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return Entry{
		Path: path,
		Name: name,
		Stem: strings.TrimSuffix(name, ext),
		Ext:  ext,
	}
}

// Set is a natural-sorted sequence of entries with a path index. After
// construction it only changes through RemoveAt and Insert; it is never
// re-sorted. Set is not safe for concurrent use.
type Set struct {
	entries []Entry
	index   map[string]int
}

// New builds a Set from unordered candidate paths. Relative paths are made
// absolute, duplicates are dropped and the result is natural-sorted.
func New(paths []string) *Set {
	seen := make(map[string]bool, len(paths))
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		a, err := filepath.Abs(p)
		if err != nil {
			a = filepath.Clean(p)
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		abs = append(abs, a)
	}
	natsort.Sort(abs)

	s := &Set{entries: make([]Entry, len(abs))}
	for i, p := range abs {
		s.entries[i] = NewEntry(p)
	}
	s.reindex(0)
	return s
}

// reindex rebuilds index positions from i onward.
func (s *Set) reindex(from int) {
	if s.index == nil {
		s.index = make(map[string]int, len(s.entries))
	}
	for i := from; i < len(s.entries); i++ {
		s.index[s.entries[i].Path] = i
	}
}

// Len returns the number of entries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// At returns the entry at i. ok is false when i is out of range.
func (s *Set) At(i int) (Entry, bool) {
	if s == nil || i < 0 || i >= len(s.entries) {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Path returns the path at i, or "" when i is out of range.
func (s *Set) Path(i int) string {
	e, _ := s.At(i)
	return e.Path
}

// IndexOf returns the current index of path, or -1.
func (s *Set) IndexOf(path string) int {
	if s == nil {
		return -1
	}
	if i, ok := s.index[path]; ok {
		return i
	}
	return -1
}

// Contains reports whether path is in the set.
func (s *Set) Contains(path string) bool {
	return s.IndexOf(path) >= 0
}

// RemoveAt removes and returns the entry at i.
func (s *Set) RemoveAt(i int) (Entry, bool) {
	e, ok := s.At(i)
	if !ok {
		return Entry{}, false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, e.Path)
	s.reindex(i)
	return e, true
}

// Insert places e at i, clamped to [0, Len()], and returns the index used.
// An entry whose path is already present is rejected with -1.
func (s *Set) Insert(i int, e Entry) int {
	if s.Contains(e.Path) {
		return -1
	}
	if i < 0 {
		i = 0
	}
	if i > len(s.entries) {
		i = len(s.entries)
	}
	s.entries = append(s.entries, Entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	s.reindex(i)
	return i
}

// Entries returns a copy of the current sequence.
func (s *Set) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Paths returns the current sequence of paths.
func (s *Set) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Path
	}
	return out
}
