package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

var imageExts = []string{"jpg", "JPEG", ".png", "nef"}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("test content"), 0644); err != nil {
		t.Fatalf("failed to create file %s: %v", path, err)
	}
}

func names(entries []Entry) []string {
	var out []string
	for _, e := range entries {
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}

func TestNewSystem(t *testing.T) {
	s := NewSystem()
	if s == nil {
		t.Fatal("NewSystem returned nil")
	}
	if s.RequestChan == nil {
		t.Error("RequestChan is nil")
	}
	if s.ResponseChan == nil {
		t.Error("ResponseChan is nil")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()

	for _, d := range []string{"keep", "discard", "nested.jpg"} {
		if err := os.Mkdir(filepath.Join(tmpDir, d), 0755); err != nil {
			t.Fatalf("failed to create dir %s: %v", d, err)
		}
	}
	for _, f := range []string{"a.jpg", "B.JPG", "c.jpeg", "d.png", "e.NEF", "notes.txt", "noext"} {
		touch(t, filepath.Join(tmpDir, f))
	}
	// moved files must not be rescanned
	touch(t, filepath.Join(tmpDir, "keep", "old.jpg"))

	s := NewSystem()
	resp := s.scanDir(tmpDir, imageExts)
	if resp.Err != nil {
		t.Fatalf("scanDir returned error: %v", resp.Err)
	}
	if resp.Op != ScanDir || resp.Path != tmpDir {
		t.Errorf("unexpected response header: op=%d path=%q", resp.Op, resp.Path)
	}

	expected := []string{"B.JPG", "a.jpg", "c.jpeg", "d.png", "e.NEF"}
	got := names(resp.Entries)
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("entry %d: expected %q, got %q", i, expected[i], got[i])
		}
	}
}

func TestScanDir_NonExistent(t *testing.T) {
	if _, err := Scan("/nonexistent/path/that/does/not/exist", imageExts); err == nil {
		t.Error("expected error for nonexistent path")
	}
}

func TestScanDir_Symlink(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.jpg")
	touch(t, target)
	if err := os.Symlink(target, filepath.Join(tmpDir, "link.jpg")); err != nil {
		t.Skipf("cannot create symlinks: %v", err)
	}

	entries, err := Scan(tmpDir, imageExts)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "link.jpg" {
		t.Errorf("expected symlinked image to be listed, got %v", names(entries))
	}
}

func TestEntry_Fields(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.jpg")
	content := []byte("hello world")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := Scan(tmpDir, imageExts)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.Path != testFile {
		t.Errorf("expected Path=%q, got %q", testFile, e.Path)
	}
	if e.Size != int64(len(content)) {
		t.Errorf("expected Size=%d, got %d", len(content), e.Size)
	}
	if time.Since(e.ModTime) > time.Minute {
		t.Errorf("ModTime seems too old: %v", e.ModTime)
	}
}

func TestSystem_Start_ScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	touch(t, filepath.Join(tmpDir, "test.jpg"))

	s := NewSystem()
	go s.Start()
	defer s.Close()

	s.RequestChan <- Request{
		Op:         ScanDir,
		Path:       tmpDir,
		Gen:        7,
		Extensions: imageExts,
	}

	select {
	case resp := <-s.ResponseChan:
		if resp.Err != nil {
			t.Fatalf("unexpected error: %v", resp.Err)
		}
		if resp.Gen != 7 {
			t.Errorf("expected Gen=7, got %d", resp.Gen)
		}
		if len(resp.Entries) != 1 {
			t.Errorf("expected 1 entry, got %d", len(resp.Entries))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for response")
	}
}

func TestIsDir(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "f.jpg")
	touch(t, file)

	if !IsDir(tmpDir) {
		t.Error("temp dir should be a directory")
	}
	if IsDir(file) || IsDir(filepath.Join(tmpDir, "missing")) {
		t.Error("files and missing paths are not directories")
	}
}
