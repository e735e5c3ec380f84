package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/triage/internal/catalog"
	"github.com/justyntemme/triage/internal/fs"
)

func newSortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sort <dir>",
		Short: "Print the images of a folder in triage order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			set, err := scanSet(args[0], cfg.ScanExtensions())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, e := range set.Entries() {
				fmt.Fprintf(out, "%5d  %s\n", i+1, e.Name)
			}
			return nil
		},
	}
}

func scanSet(dir string, exts []string) (*catalog.Set, error) {
	if !fs.IsDir(dir) {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	entries, err := fs.Scan(dir, exts)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return catalog.New(paths), nil
}
