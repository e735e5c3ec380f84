package catalog

import (
	"path/filepath"
	"reflect"
	"testing"
)

func names(s *Set) []string {
	var out []string
	for _, e := range s.Entries() {
		out = append(out, e.Name)
	}
	return out
}

func TestNewSortsAndDedupes(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "img10.jpg"),
		filepath.Join(dir, "img2.jpg"),
		filepath.Join(dir, "img1.jpg"),
		filepath.Join(dir, "sub", "..", "img2.jpg"),
		"",
	}
	s := New(paths)

	expected := []string{"img1.jpg", "img2.jpg", "img10.jpg"}
	if got := names(s); !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i, e := range s.Entries() {
		if !filepath.IsAbs(e.Path) {
			t.Errorf("entry %d path %q is not absolute", i, e.Path)
		}
		if s.IndexOf(e.Path) != i {
			t.Errorf("IndexOf(%q) = %d, expected %d", e.Path, s.IndexOf(e.Path), i)
		}
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("/photos/DSC_0001.NEF")
	if e.Name != "DSC_0001.NEF" || e.Stem != "DSC_0001" || e.Ext != ".NEF" {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestRemoveAndInsert(t *testing.T) {
	s := New([]string{"/p/a1.jpg", "/p/a2.jpg", "/p/a3.jpg", "/p/a4.jpg"})

	removed, ok := s.RemoveAt(1)
	if !ok || removed.Name != "a2.jpg" {
		t.Fatalf("RemoveAt(1) = %+v, %v", removed, ok)
	}
	if s.Contains(removed.Path) {
		t.Error("removed path still indexed")
	}
	if s.IndexOf("/p/a4.jpg") != 2 {
		t.Errorf("indices not shifted after removal: %d", s.IndexOf("/p/a4.jpg"))
	}

	if idx := s.Insert(1, removed); idx != 1 {
		t.Errorf("Insert returned %d, expected 1", idx)
	}
	expected := []string{"a1.jpg", "a2.jpg", "a3.jpg", "a4.jpg"}
	if got := names(s); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
	if s.Insert(0, removed) != -1 {
		t.Error("duplicate insert should be rejected")
	}
}

func TestInsertClamps(t *testing.T) {
	testCases := []struct {
		name  string
		index int
		want  int
	}{
		{"negative", -5, 0},
		{"past end", 99, 2},
		{"inside", 1, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New([]string{"/p/a.jpg", "/p/b.jpg"})
			if got := s.Insert(tc.index, NewEntry("/p/new.jpg")); got != tc.want {
				t.Errorf("Insert(%d) = %d, expected %d", tc.index, got, tc.want)
			}
			if s.Len() != 3 || s.IndexOf("/p/new.jpg") != tc.want {
				t.Errorf("set not updated: %v", s.Paths())
			}
		})
	}
}

func TestOutOfRange(t *testing.T) {
	s := New(nil)
	if _, ok := s.At(0); ok {
		t.Error("At(0) on empty set should fail")
	}
	if _, ok := s.RemoveAt(-1); ok {
		t.Error("RemoveAt(-1) should fail")
	}
	if s.Path(3) != "" || s.IndexOf("/nope") != -1 {
		t.Error("expected empty results for missing entries")
	}
}
