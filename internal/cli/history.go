package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/triage/internal/fs"
	"github.com/justyntemme/triage/internal/store"
)

func newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent moves from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			out := cmd.OutOrStdout()
			if !fs.PathExists(cfg.Journal.Path) {
				fmt.Fprintln(out, "No moves recorded yet.")
				return nil
			}

			db := store.NewDB()
			if err := db.Open(cfg.Journal.Path); err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			go db.Start()
			defer db.Stop()

			moves, err := db.History(limit)
			if err != nil {
				return err
			}
			printHistory(out, moves)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of rows to show (0 for all)")
	return cmd
}

func printHistory(w io.Writer, moves []store.Move) {
	if len(moves) == 0 {
		fmt.Fprintln(w, "No moves recorded yet.")
		return
	}
	for _, m := range moves {
		session := m.Session
		if len(session) > 8 {
			session = session[:8]
		}
		line := fmt.Sprintf("%-16s %s  %-7s %-9s %s -> %s",
			humanize.Time(m.At), session, m.Action, m.Status,
			filepath.Base(m.Source), shortDest(m.Source, m.Destination))
		if m.Error != "" {
			line += "  (" + m.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}

// shortDest shows the destination relative to the source folder when it
// lives below it.
func shortDest(src, dst string) string {
	rel, err := filepath.Rel(filepath.Dir(src), dst)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dst
	}
	return rel
}
