// Package cli provides the command-line interface for triage.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/justyntemme/triage/internal/app"
	"github.com/justyntemme/triage/internal/config"
	"github.com/justyntemme/triage/internal/debug"
	"github.com/justyntemme/triage/internal/decode"
	"github.com/justyntemme/triage/internal/logging"
	"github.com/justyntemme/triage/internal/store"
)

var (
	// Global flags
	cfgFile   string
	debugMode bool
	logFile   string
)

// NewRootCmd creates the root command. Without a subcommand it opens the
// triage window.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "triage [dir]",
		Short: "Sort a folder of photos into keep and discard with single keys",
		Long: `triage shows the photos of one folder in natural order and moves each
one into a "keep" or "discard" subfolder with a single key press.
Moves run in the background and can be undone.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logFile != "" {
				if err := redirectLogs(logFile); err != nil {
					return err
				}
			}
			logging.SetVerbose(debugMode)
			if debugMode {
				debug.EnableAll()
			}
			return nil
		},
		RunE: runWindow,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default ~/.config/triage/config.json)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to this file instead of stderr")

	rootCmd.AddCommand(newSortCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

// redirectLogs appends operational and trace logs to path. The file stays
// open for the life of the process.
func redirectLogs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logging.SetOutput(f)
	debug.SetOutput(f)
	return nil
}

// loadConfig reads the configuration named by --config. Parse errors are
// logged and the defaults are used.
func loadConfig() (config.Config, *config.Manager) {
	m := config.NewManagerAt(cfgFile)
	if err := m.Load(); err != nil {
		logging.Default().Warn().Err(err).Str("path", m.Path()).Msg("could not load config")
	}
	if err := m.ParseError(); err != nil {
		logging.Default().Warn().Err(err).Str("path", m.Path()).Msg("config has errors, using defaults")
	}
	cfg := m.Get()
	for _, c := range config.NewHotkeyMatcher(cfg.Hotkeys).Conflicts() {
		logging.Default().Warn().Str("path", m.Path()).Msg("hotkey conflict: " + c)
	}
	return cfg, m
}

func newStrategy(cfg config.Config) *decode.Strategy {
	s := decode.New(decode.Options{
		Raw:           cfg.Decode.Raw,
		Demosaic:      cfg.Decode.Demosaic,
		DcrawCommand:  cfg.Decode.DcrawCommand,
		RawExtensions: cfg.Extensions.Raw,
	})
	for _, b := range s.Backends() {
		ev := logging.Default().Debug()
		if !b.Available {
			ev = logging.Default().Warn()
		}
		ev.Str("backend", b.Name).Str("command", b.Command).Bool("available", b.Available).Msg("decode backend")
	}
	return s
}

// openJournal opens and starts the move journal. It returns nil when the
// journal is disabled or cannot be opened.
func openJournal(cfg config.Config) *store.DB {
	if !cfg.Journal.Enabled {
		return nil
	}
	db := store.NewDB()
	if err := db.Open(cfg.Journal.Path); err != nil {
		logging.Default().Error().Err(err).Str("path", cfg.Journal.Path).Msg("journal unavailable")
		return nil
	}
	go db.Start()
	return db
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg, _ := loadConfig()
	dir := ""
	if len(args) == 1 {
		dir = args[0]
	}
	app.Main(cfg, newStrategy(cfg), openJournal(cfg), dir)
	return nil
}
