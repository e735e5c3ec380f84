package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/justyntemme/triage/internal/decode"
	"github.com/justyntemme/triage/internal/logging"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Folders    FoldersConfig    `json:"folders"`
	Prefetch   PrefetchConfig   `json:"prefetch"`
	Thumbnails ThumbnailsConfig `json:"thumbnails"`
	Undo       UndoConfig       `json:"undo"`
	Decode     DecodeConfig     `json:"decode"`
	Extensions ExtensionsConfig `json:"extensions"`
	Watch      WatchConfig      `json:"watch"`
	Journal    JournalConfig    `json:"journal"`
	UI         UIConfig         `json:"ui"`
	Hotkeys    HotkeysConfig    `json:"hotkeys"`
}

// FoldersConfig names the subfolders of the source directory files are moved to
type FoldersConfig struct {
	Keep    string `json:"keep"`
	Discard string `json:"discard"`
}

// PrefetchConfig sizes the full-view window around the cursor
type PrefetchConfig struct {
	Forward  int `json:"forward"`
	Backward int `json:"backward"`
	Workers  int `json:"workers"`
	// Display box images are decoded into; 0 means native resolution
	MaxWidth  int `json:"maxWidth"`
	MaxHeight int `json:"maxHeight"`
}

// ThumbnailsConfig holds thumbnail strip settings
type ThumbnailsConfig struct {
	Size        int `json:"size"`
	Concurrency int `json:"concurrency"`
}

// UndoConfig holds undo settings
type UndoConfig struct {
	Depth int `json:"depth"`
}

// DecodeConfig selects decode backends
type DecodeConfig struct {
	Raw          bool   `json:"raw"`
	Demosaic     bool   `json:"demosaic"`
	DcrawCommand string `json:"dcrawCommand"`
}

// ExtensionsConfig lists the file types picked up by a directory scan
type ExtensionsConfig struct {
	Raster []string `json:"raster"`
	Raw    []string `json:"raw"`
}

// WatchConfig controls detection of files removed behind our back
type WatchConfig struct {
	Enabled    bool `json:"enabled"`
	DebounceMs int  `json:"debounceMs"`
}

// JournalConfig controls the move journal database
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// UIConfig holds UI-related settings
type UIConfig struct {
	Theme        string `json:"theme"` // "light" or "dark"
	StripBefore  int    `json:"stripBefore"`
	StripAfter   int    `json:"stripAfter"`
	ShowFileName bool   `json:"showFileName"`
}

// HotkeysConfig holds the keyboard shortcuts as strings like "Ctrl+Z"
type HotkeysConfig struct {
	Keep       string `json:"keep"`
	Discard    string `json:"discard"`
	Undo       string `json:"undo"`
	Next       string `json:"next"`
	Previous   string `json:"previous"`
	First      string `json:"first"`
	Last       string `json:"last"`
	Open       string `json:"open"`
	OpenFolder string `json:"openFolder"`
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManagerAt creates a manager for path; "" selects ConfigPath()
func NewManagerAt(path string) *Manager {
	if path == "" {
		path = ConfigPath()
	}
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Folders: FoldersConfig{
			Keep:    "keep",
			Discard: "discard",
		},
		Prefetch: PrefetchConfig{
			Forward:   10,
			Backward:  5,
			Workers:   2,
			MaxWidth:  2560,
			MaxHeight: 1600,
		},
		Thumbnails: ThumbnailsConfig{
			Size:        128,
			Concurrency: 3,
		},
		Undo: UndoConfig{
			Depth: 20,
		},
		Decode: DecodeConfig{
			Raw:          true,
			Demosaic:     true,
			DcrawCommand: "dcraw",
		},
		Extensions: ExtensionsConfig{
			Raster: append([]string(nil), decode.DefaultRasterExtensions...),
			Raw:    append([]string(nil), decode.DefaultRawExtensions...),
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMs: 300,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    filepath.Join(configDir(), "journal.db"),
		},
		UI: UIConfig{
			Theme:        "light",
			StripBefore:  3,
			StripAfter:   6,
			ShowFileName: true,
		},
		Hotkeys: DefaultHotkeys(),
	}
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "triage")
}

// ConfigPath returns the config file path: ~/.config/triage/config.json
// This is consistent across all platforms (Windows, macOS, Linux)
func ConfigPath() string {
	return filepath.Join(configDir(), "config.json")
}

// Normalize replaces out-of-range values with their defaults.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if !isPlainName(c.Folders.Keep) {
		c.Folders.Keep = def.Folders.Keep
	}
	if !isPlainName(c.Folders.Discard) {
		c.Folders.Discard = def.Folders.Discard
	}
	if c.Folders.Keep == c.Folders.Discard {
		c.Folders.Keep, c.Folders.Discard = def.Folders.Keep, def.Folders.Discard
	}
	if c.Prefetch.Forward < 0 {
		c.Prefetch.Forward = def.Prefetch.Forward
	}
	if c.Prefetch.Backward < 0 {
		c.Prefetch.Backward = def.Prefetch.Backward
	}
	if c.Prefetch.Workers < 1 {
		c.Prefetch.Workers = def.Prefetch.Workers
	}
	if c.Prefetch.MaxWidth < 0 || c.Prefetch.MaxHeight < 0 {
		c.Prefetch.MaxWidth, c.Prefetch.MaxHeight = def.Prefetch.MaxWidth, def.Prefetch.MaxHeight
	}
	if c.Thumbnails.Size < 16 {
		c.Thumbnails.Size = def.Thumbnails.Size
	}
	if c.Thumbnails.Concurrency < 1 {
		c.Thumbnails.Concurrency = def.Thumbnails.Concurrency
	}
	if c.Undo.Depth < 1 {
		c.Undo.Depth = def.Undo.Depth
	}
	if c.Decode.DcrawCommand == "" {
		c.Decode.DcrawCommand = def.Decode.DcrawCommand
	}
	if len(c.Extensions.Raster) == 0 {
		c.Extensions.Raster = def.Extensions.Raster
	}
	if len(c.Extensions.Raw) == 0 {
		c.Extensions.Raw = def.Extensions.Raw
	}
	if c.Watch.DebounceMs <= 0 {
		c.Watch.DebounceMs = def.Watch.DebounceMs
	}
	if c.Journal.Path == "" {
		c.Journal.Path = def.Journal.Path
	}
	if c.UI.Theme != "dark" {
		c.UI.Theme = "light"
	}
	if c.UI.StripBefore < 0 {
		c.UI.StripBefore = def.UI.StripBefore
	}
	if c.UI.StripAfter < 0 {
		c.UI.StripAfter = def.UI.StripAfter
	}
	c.Hotkeys.fillDefaults(def.Hotkeys)
}

func isPlainName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}

// ScanExtensions returns every extension a directory scan should accept.
func (c *Config) ScanExtensions() []string {
	out := make([]string, 0, len(c.Extensions.Raster)+len(c.Extensions.Raw))
	out = append(out, c.Extensions.Raster...)
	if c.Decode.Raw {
		out = append(out, c.Extensions.Raw...)
	}
	return out
}

// Path returns the file the manager loads from and saves to.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logging.Default()
	m.parseErr = nil

	configDir := filepath.Dir(m.path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", configDir).Msg("config: failed to create directory")
		return err
	}

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		log.Info().Str("path", m.path).Msg("config: creating default config")
		m.config = DefaultConfig()
		if saveErr := m.saveUnlocked(); saveErr != nil {
			log.Error().Err(saveErr).Msg("config: failed to save default config")
			return saveErr
		}
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("path", m.path).Msg("config: failed to read")
		return err
	}

	// Missing keys keep their defaults
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		// Store error for UI display, use defaults
		log.Warn().Err(err).Str("path", m.path).Msg("config: JSON parse error, using defaults")
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}
	cfg.Normalize()

	log.Debug().Str("path", m.path).Msg("config: loaded")
	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetTheme updates the theme setting and saves the file. theme must be
// "light" or "dark".
func (m *Manager) SetTheme(theme string) error {
	if theme != "light" && theme != "dark" {
		return fmt.Errorf("unknown theme %q: want light or dark", theme)
	}
	m.mu.Lock()
	m.config.UI.Theme = theme
	m.mu.Unlock()
	return m.Save()
}

// GenerateConfig backs up an existing config and writes a fresh default one.
// configPath "" selects ConfigPath(). Returns the backup path, or "" if there
// was nothing to back up.
func GenerateConfig(configPath string) (backupPath string, err error) {
	if configPath == "" {
		configPath = ConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		timestamp := time.Now().Format("20060102-150405")
		backupPath = filepath.Join(filepath.Dir(configPath), "config.backup."+timestamp+".json")

		data, err := os.ReadFile(configPath)
		if err != nil {
			return "", fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(backupPath, data, 0o644); err != nil {
			return "", fmt.Errorf("failed to write backup: %w", err)
		}
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return backupPath, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return backupPath, fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return backupPath, fmt.Errorf("failed to write config: %w", err)
	}
	return backupPath, nil
}
