package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/justyntemme/triage/internal/decode"
	"github.com/justyntemme/triage/internal/fs"
	"github.com/justyntemme/triage/internal/logging"
	"github.com/justyntemme/triage/internal/store"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// writeConfig points the journal into the test's temp dir.
func writeConfig(t *testing.T, dir string) (cfgPath, journalPath string) {
	t.Helper()
	cfgPath = filepath.Join(dir, "config.json")
	journalPath = filepath.Join(dir, "journal.db")
	data, err := json.Marshal(map[string]any{
		"journal": map[string]any{"enabled": true, "path": journalPath},
		"decode":  map[string]any{"raw": false, "demosaic": false},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, journalPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSortCommand(t *testing.T) {
	tmp := t.TempDir()
	cfgPath, _ := writeConfig(t, tmp)
	photos := filepath.Join(tmp, "photos")
	if err := os.MkdirAll(photos, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{"img10.jpg", "IMG2.png", "img1.jpg", "readme.md"} {
		if err := os.WriteFile(filepath.Join(photos, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := execute(t, "--config", cfgPath, "sort", photos)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"img1.jpg", "IMG2.png", "img10.jpg"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), out)
	}
	for i, w := range want {
		if !strings.HasSuffix(lines[i], w) {
			t.Errorf("line %d = %q, want suffix %q", i, lines[i], w)
		}
	}
}

func TestSortCommandRejectsFile(t *testing.T) {
	tmp := t.TempDir()
	cfgPath, _ := writeConfig(t, tmp)
	if _, err := execute(t, "--config", cfgPath, "sort", cfgPath); err == nil {
		t.Error("expected an error for a non-directory")
	}
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "good.png"))
	if err := os.WriteFile(filepath.Join(dir, "bad.jpg"), []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := fs.Scan(dir, []string{"png", "jpg"})
	if err != nil {
		t.Fatal(err)
	}

	ticks := 0
	strategy := decode.New(decode.Options{})
	r := runCheck(context.Background(), entries, strategy, 2, decode.Size{}, func() { ticks++ })

	if r.Files != 2 || ticks != 2 {
		t.Errorf("files=%d ticks=%d, want 2 and 2", r.Files, ticks)
	}
	if r.Stages[decode.StageScaled] != 1 || r.Stages[decode.StagePlaceholder] != 1 {
		t.Errorf("stages = %v", r.Stages)
	}
	if len(r.Placeholders) != 1 || filepath.Base(r.Placeholders[0]) != "bad.jpg" {
		t.Errorf("placeholders = %v", r.Placeholders)
	}

	var buf bytes.Buffer
	writeReport(&buf, r)
	for _, want := range []string{"Checked 2 files", "scaled", "placeholder", "Could not decode:", "bad.jpg"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report missing %q:\n%s", want, buf.String())
		}
	}
}

func TestHistoryCommand(t *testing.T) {
	tmp := t.TempDir()
	cfgPath, journalPath := writeConfig(t, tmp)

	out, err := execute(t, "--config", cfgPath, "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No moves recorded yet.") {
		t.Errorf("empty journal output = %q", out)
	}

	db := store.NewDB()
	if err := db.Open(journalPath); err != nil {
		t.Fatal(err)
	}
	go db.Start()
	db.Record(store.Move{Source: "/p/a.jpg", Destination: "/p/keep/a.jpg", Action: store.ActionKeep, Status: store.StatusDone})
	db.Record(store.Move{Source: "/p/b.jpg", Destination: "/p/discard/b.jpg", Action: store.ActionDiscard, Status: store.StatusFailed, Error: "boom"})
	db.Stop()

	out, err = execute(t, "--config", cfgPath, "history", "-n", "1")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one row, got %q", out)
	}
	for _, want := range []string{"discard", "failed", "b.jpg -> discard/b.jpg", "(boom)"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("row %q missing %q", lines[0], want)
		}
	}
}

func TestConfigInit(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "nested", "config.json")

	out, err := execute(t, "--config", cfgPath, "config", "init")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote default config") || strings.Contains(out, "Backed up") {
		t.Errorf("first init output = %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "config", "init")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Backed up previous config") {
		t.Errorf("second init should back up, got %q", out)
	}

	out, err = execute(t, "--config", cfgPath, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != cfgPath {
		t.Errorf("config path = %q", out)
	}
}

func TestConfigTheme(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")

	out, err := execute(t, "--config", cfgPath, "config", "theme", "dark")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Theme set to dark") {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	var saved struct {
		UI struct {
			Theme string `json:"theme"`
		} `json:"ui"`
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved.UI.Theme != "dark" {
		t.Errorf("saved theme = %q", saved.UI.Theme)
	}

	if _, err := execute(t, "--config", cfgPath, "config", "theme", "sepia"); err == nil {
		t.Error("unknown theme should fail")
	}

	if err := os.WriteFile(cfgPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "--config", cfgPath, "config", "theme", "light"); err == nil {
		t.Error("broken config should not be rewritten")
	}
}

func TestLogFile(t *testing.T) {
	defer logging.SetOutput(io.Discard)

	tmp := t.TempDir()
	logPath := filepath.Join(tmp, "logs", "triage.log")
	cfgPath := filepath.Join(tmp, "fresh", "config.json")

	if _, err := execute(t, "--log-file", logPath, "--config", cfgPath, "sort", tmp); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "creating default config") {
		t.Errorf("log file = %q", data)
	}
}

func TestShortDest(t *testing.T) {
	tests := []struct{ src, dst, want string }{
		{"/p/a.jpg", "/p/keep/a.jpg", filepath.Join("keep", "a.jpg")},
		{"/p/a.jpg", "/q/a.jpg", "/q/a.jpg"},
	}
	for _, tt := range tests {
		if got := shortDest(tt.src, tt.dst); got != tt.want {
			t.Errorf("shortDest(%s, %s) = %s, want %s", tt.src, tt.dst, got, tt.want)
		}
	}
}
