package cmd

import (
	"fmt"
	"time"

	"pastemd/pkg/filter"
	"pastemd/pkg/history"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyLimit      int
	historyTarget     string
	historyFailed     bool
	historySince      time.Duration
	historyErrorRegex string
	historyErrorFuzzy string
	historyMethod     string
)

type historyStats struct {
	Total     int       `json:"total" yaml:"total"`
	Succeeded int       `json:"succeeded" yaml:"succeeded"`
	Failed    int       `json:"failed" yaml:"failed"`
	Last      time.Time `json:"last,omitempty" yaml:"last,omitempty"`
}

var historyCmd = NewCommand(
	"history",
	"List recorded placements",
	`List past pipeline runs, newest first: when, what content, which target and
method, whether it worked and how long it took.`,
).WithExample(`  # Last 20 runs
  pastemd history

  # Failures into Word during the last day, as JSON
  pastemd history --target word --failed --since 24h --format json

  # Runs whose error mentions pandoc
  pastemd history --error pandoc`).
	WithHistory(func(cmd *cobra.Command, store *history.Store) error {
		filters := map[string]any{}
		if historyTarget != "" {
			filters["target"] = historyTarget
		}
		if historyFailed {
			filters["success"] = false
		}
		if historySince > 0 {
			filters["since"] = time.Now().Add(-historySince)
		}

		ef := &filter.EntryFilter{
			ErrorRegex: historyErrorRegex,
			ErrorFuzzy: historyErrorFuzzy,
			Method:     historyMethod,
		}
		// The limit applies after the in-memory filters when any are set.
		narrowing := ef.ErrorRegex != "" || ef.ErrorFuzzy != "" || ef.Method != ""
		if !narrowing && historyLimit > 0 {
			filters["limit"] = historyLimit
		}

		entries, err := store.Search(filters)
		if err != nil {
			return err
		}
		entries, err = ef.Apply(entries)
		if err != nil {
			return err
		}
		if historyLimit > 0 && len(entries) > historyLimit {
			entries = entries[:historyLimit]
		}

		w := NewOutputWriter(outputFormat)
		if w.IsStructured() {
			return w.Write(entries)
		}
		printHistoryTable(entries)
		return nil
	}).Build()

var historyStatsCmd = NewCommand(
	"stats",
	"Show placement totals",
	"",
).WithHistory(func(cmd *cobra.Command, store *history.Store) error {
	raw, err := store.Stats()
	if err != nil {
		return err
	}
	stats := historyStats{
		Total:     raw["total"].(int),
		Succeeded: raw["succeeded"].(int),
		Failed:    raw["failed"].(int),
	}
	if last, ok := raw["last"].(time.Time); ok {
		stats.Last = last
	}

	w := NewOutputWriter(outputFormat)
	if w.IsStructured() {
		return w.Write(stats)
	}
	fmt.Printf("Total:     %d\n", stats.Total)
	fmt.Printf("Succeeded: %d\n", stats.Succeeded)
	fmt.Printf("Failed:    %d\n", stats.Failed)
	fmt.Printf("Last run:  %s\n", FormatTimestamp(stats.Last))
	return nil
}).Build()

var historyClearCmd = NewCommand(
	"clear",
	"Delete all recorded placements",
	"",
).WithHistory(func(cmd *cobra.Command, store *history.Store) error {
	if err := RequireConfirmation("delete the placement history", nil); err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return err
	}
	fmt.Println("History cleared.")
	return nil
}).Build()

func printHistoryTable(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Println("No placements recorded.")
		return
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Printf("%-15s %-9s %-10s %-20s %-7s %8s\n", "WHEN", "CONTENT", "TARGET", "METHOD", "RESULT", "TOOK")
	for _, e := range entries {
		target := e.Target
		if target == "" {
			target = "-"
		}
		fmt.Printf("%-15s %-9s %-10s %-20s ", FormatTimestamp(e.Time), e.ContentType, target, e.Method)
		if e.Success {
			_, _ = green.Printf("%-7s", "ok")
		} else {
			_, _ = red.Printf("%-7s", "failed")
		}
		fmt.Printf(" %8s\n", FormatDuration(e.Duration))
		if e.Error != "" {
			fmt.Printf("  %s\n", e.Error)
		}
		if file := e.Metadata["file"]; file != "" {
			fmt.Printf("  -> %s\n", file)
		}
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	historyCmd.Flags().StringVar(&historyTarget, "target", "", "Only runs into this target")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "Only failed runs")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "Only runs newer than this (e.g. 24h)")
	historyCmd.Flags().StringVar(&historyErrorRegex, "error", "", "Only runs whose error matches this regex")
	historyCmd.Flags().StringVar(&historyErrorFuzzy, "error-fuzzy", "", "Only runs whose error fuzzy-matches this text")
	historyCmd.Flags().StringVar(&historyMethod, "method", "", "Only runs placed with this method (native_automation, scripted_automation, clipboard_paste)")
}
