package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/justyntemme/triage/internal/decode"
	"github.com/justyntemme/triage/internal/fs"
	"github.com/justyntemme/triage/internal/natsort"
)

type checkReport struct {
	Files        int
	Bytes        uint64
	Stages       map[decode.Stage]int
	Abandoned    int
	Placeholders []string
	Elapsed      time.Duration
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <dir>",
		Short: "Decode every image in a folder and report which stage handled it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			if !fs.IsDir(args[0]) {
				return fmt.Errorf("%s is not a directory", args[0])
			}
			entries, err := fs.Scan(args[0], cfg.ScanExtensions())
			if err != nil {
				return fmt.Errorf("scan %s: %w", args[0], err)
			}

			var tick func()
			if term.IsTerminal(int(os.Stderr.Fd())) && len(entries) > 0 {
				bar := progressbar.NewOptions(len(entries),
					progressbar.OptionSetDescription("decoding"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionThrottle(100*time.Millisecond),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprint(os.Stderr, "\n")
					}),
					progressbar.OptionSetRenderBlankState(true),
				)
				tick = func() { _ = bar.Add(1) }
				defer bar.Finish()
			}

			target := decode.Size{Width: cfg.Prefetch.MaxWidth, Height: cfg.Prefetch.MaxHeight}
			report := runCheck(cmd.Context(), entries, newStrategy(cfg), cfg.Prefetch.Workers, target, tick)
			writeReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

// runCheck decodes entries on a pool of workers. tick, if set, is called
// once per finished file.
func runCheck(ctx context.Context, entries []fs.Entry, dec decode.ImageDecoder, workers int, target decode.Size, tick func()) checkReport {
	if ctx == nil {
		ctx = context.Background()
	}
	report := checkReport{Files: len(entries), Stages: make(map[decode.Stage]int)}
	start := time.Now()

	results := make(chan decode.Completion, len(entries))
	pool := decode.NewPool("check", max(1, workers), dec, decode.SinkFunc(func(c decode.Completion) {
		results <- c
	}))
	defer pool.Close()

	handles := make([]*decode.Handle, 0, len(entries))
	for i, e := range entries {
		report.Bytes += uint64(max(0, e.Size))
		handles = append(handles, pool.Submit(decode.Request{ID: uint64(i + 1), Path: e.Path, Target: target}))
	}

	for range entries {
		var c decode.Completion
		select {
		case c = <-results:
		case <-ctx.Done():
			for _, h := range handles {
				pool.Cancel(h)
			}
			c = <-results
		}
		switch {
		case c.Abandoned:
			report.Abandoned++
		default:
			report.Stages[c.Result.Stage]++
			if c.Result.Stage == decode.StagePlaceholder {
				report.Placeholders = append(report.Placeholders, c.Path)
			}
		}
		if tick != nil {
			tick()
		}
	}
	natsort.Sort(report.Placeholders)
	report.Elapsed = time.Since(start)
	return report
}

func writeReport(w io.Writer, r checkReport) {
	fmt.Fprintf(w, "Checked %s files (%s) in %s\n",
		humanize.Comma(int64(r.Files)), humanize.Bytes(r.Bytes), r.Elapsed.Round(time.Millisecond))

	stages := make([]decode.Stage, 0, len(r.Stages))
	for s := range r.Stages {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	for _, s := range stages {
		fmt.Fprintf(w, "  %-13s %d\n", s, r.Stages[s])
	}
	if r.Abandoned > 0 {
		fmt.Fprintf(w, "  %-13s %d\n", "abandoned", r.Abandoned)
	}
	if len(r.Placeholders) > 0 {
		fmt.Fprintln(w, "Could not decode:")
		for _, p := range r.Placeholders {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}
