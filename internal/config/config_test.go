package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gioui.org/io/key"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triage", "config.json")
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	cfg := m.Get()
	if cfg.Prefetch.Forward != 10 || cfg.Prefetch.Backward != 5 {
		t.Errorf("unexpected prefetch defaults: %+v", cfg.Prefetch)
	}
	if cfg.Thumbnails.Concurrency != 3 || cfg.Undo.Depth != 20 {
		t.Errorf("unexpected defaults: thumbs=%+v undo=%+v", cfg.Thumbnails, cfg.Undo)
	}
	if cfg.Folders.Keep != "keep" || cfg.Folders.Discard != "discard" {
		t.Errorf("unexpected folders: %+v", cfg.Folders)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"undo": {"depth": 5}, "folders": {"keep": "picks"}, "prefetch": {"workers": 0}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Undo.Depth != 5 || cfg.Folders.Keep != "picks" {
		t.Errorf("explicit values lost: %+v %+v", cfg.Undo, cfg.Folders)
	}
	if cfg.Folders.Discard != "discard" || cfg.Prefetch.Forward != 10 {
		t.Errorf("missing keys should keep defaults: %+v %+v", cfg.Folders, cfg.Prefetch)
	}
	if cfg.Prefetch.Workers != 2 {
		t.Errorf("invalid worker count should be normalized, got %d", cfg.Prefetch.Workers)
	}
	if cfg.Hotkeys.Keep != "K" {
		t.Errorf("hotkeys should default, got %+v", cfg.Hotkeys)
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("parse errors should not fail Load: %v", err)
	}
	if m.ParseError() == nil {
		t.Error("expected ParseError to be set")
	}
	if m.Get().Undo.Depth != 20 {
		t.Error("defaults should be used after a parse error")
	}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		check  func(*Config) bool
	}{
		{"folder with separator", func(c *Config) { c.Folders.Keep = "../elsewhere" }, func(c *Config) bool { return c.Folders.Keep == "keep" }},
		{"same folders", func(c *Config) { c.Folders.Keep, c.Folders.Discard = "x", "x" }, func(c *Config) bool {
			return c.Folders.Keep == "keep" && c.Folders.Discard == "discard"
		}},
		{"negative depth", func(c *Config) { c.Prefetch.Backward = -1 }, func(c *Config) bool { return c.Prefetch.Backward == 5 }},
		{"zero undo", func(c *Config) { c.Undo.Depth = 0 }, func(c *Config) bool { return c.Undo.Depth == 20 }},
		{"tiny thumbnails", func(c *Config) { c.Thumbnails.Size = 2 }, func(c *Config) bool { return c.Thumbnails.Size == 128 }},
		{"unknown theme", func(c *Config) { c.UI.Theme = "neon" }, func(c *Config) bool { return c.UI.Theme == "light" }},
		{"empty extensions", func(c *Config) { c.Extensions.Raw = nil }, func(c *Config) bool { return len(c.Extensions.Raw) > 0 }},
		{"zero forward is allowed", func(c *Config) { c.Prefetch.Forward = 0 }, func(c *Config) bool { return c.Prefetch.Forward == 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			tc.mutate(c)
			c.Normalize()
			if !tc.check(c) {
				t.Errorf("unexpected config after Normalize: %+v", c)
			}
		})
	}
}

func TestScanExtensions(t *testing.T) {
	c := DefaultConfig()
	c.Decode.Raw = false
	for _, e := range c.ScanExtensions() {
		if e == "nef" {
			t.Error("RAW extensions should be excluded when RAW decoding is off")
		}
	}
	c.Decode.Raw = true
	if len(c.ScanExtensions()) != len(c.Extensions.Raster)+len(c.Extensions.Raw) {
		t.Error("expected raster and RAW extensions")
	}
}

func TestGenerateConfigBacksUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"undo":{"depth":3}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	backup, err := GenerateConfig(path)
	if err != nil {
		t.Fatalf("GenerateConfig: %v", err)
	}
	if !strings.Contains(filepath.Base(backup), "config.backup.") {
		t.Errorf("unexpected backup path %q", backup)
	}
	old, err := os.ReadFile(backup)
	if err != nil || !strings.Contains(string(old), `"depth":3`) {
		t.Errorf("backup does not hold the old config: %q, %v", old, err)
	}

	m := NewManagerAt(path)
	m.Load()
	if m.Get().Undo.Depth != 20 {
		t.Error("config was not reset to defaults")
	}
}

func TestParseHotkey(t *testing.T) {
	testCases := []struct {
		in   string
		key  key.Name
		mods key.Modifiers
		str  string
	}{
		{"K", "K", 0, "K"},
		{"ctrl+z", "Z", key.ModCtrl, "Ctrl+Z"},
		{"Cmd+Z", "Z", key.ModCommand, "Cmd+Z"},
		{"Right", key.NameRightArrow, 0, string(key.NameRightArrow)},
		{"Return", key.NameReturn, 0, string(key.NameReturn)},
		{"Shift+1", "!", key.ModShift, "Shift+1"},
		{"", "", 0, ""},
	}
	for _, tc := range testCases {
		h := ParseHotkey(tc.in)
		if h.Key != tc.key || h.Modifiers != tc.mods {
			t.Errorf("ParseHotkey(%q) = %+v, expected key=%q mods=%v", tc.in, h, tc.key, tc.mods)
		}
		if h.String() != tc.str {
			t.Errorf("ParseHotkey(%q).String() = %q, expected %q", tc.in, h.String(), tc.str)
		}
	}
}

func TestHotkeyMatcher(t *testing.T) {
	m := NewHotkeyMatcher(DefaultHotkeys())
	if !m.Keep.Matches(key.Event{Name: "K"}) {
		t.Error("K should match Keep")
	}
	if m.Keep.Matches(key.Event{Name: "K", Modifiers: key.ModCtrl}) {
		t.Error("Ctrl+K must not match Keep")
	}
	if !m.OpenFolder.Matches(key.Event{Name: "O"}) {
		t.Error("O should match OpenFolder")
	}
	if len(m.All()) != 9 {
		t.Errorf("expected 9 hotkeys, got %d", len(m.All()))
	}
	if len(m.Filters(nil)) != 9 {
		t.Error("expected a filter per hotkey")
	}
}

func TestHotkeyConflicts(t *testing.T) {
	if c := NewHotkeyMatcher(DefaultHotkeys()).Conflicts(); len(c) != 0 {
		t.Errorf("defaults conflict: %v", c)
	}

	cfg := DefaultHotkeys()
	cfg.Discard = "k"
	c := NewHotkeyMatcher(cfg).Conflicts()
	if len(c) != 1 || !strings.Contains(c[0], "keep and discard") {
		t.Errorf("Conflicts() = %v", c)
	}
}
