package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tabnotes/internal/stats"
	"tabnotes/internal/storage"
)

var (
	listJSON  bool
	listStats bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved notes, most recently updated first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		lazy, store := openStore()
		defer lazy.Close()

		var counter *stats.Counter
		if listStats {
			counter = stats.NewCounter(stats.DefaultEncoding)
		}
		if err := listNotes(context.Background(), store, os.Stdout, listJSON, counter); err != nil {
			fatal("Error listing notes", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listStats, "stats", false, "Include word, line and token counts")
}

type listEntry struct {
	storage.Note
	Stats *stats.Summary `json:"stats,omitempty"`
}

// listNotes counter 为空时不输出统计 / no stats are printed when counter is nil
func listNotes(ctx context.Context, store storage.Store, w io.Writer, asJSON bool, counter *stats.Counter) error {
	notes, err := store.GetAll(ctx)
	if err != nil {
		return err
	}
	notes = storage.SortNotes(notes)

	entries := make([]listEntry, len(notes))
	for i, n := range notes {
		entries[i] = listEntry{Note: n}
		if counter != nil {
			s := counter.Compute(n.Content)
			entries[i].Stats = &s
		}
	}

	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %s  %s", e.ID, e.DisplayTitle(), e.UpdatedAt.Local().Format(time.DateTime))
		if e.Stats != nil {
			line += fmt.Sprintf("  (%d words, %d lines, %d tokens)", e.Stats.Words, e.Stats.Lines, e.Stats.Tokens)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
