package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tabnotes/internal/storage"
	"tabnotes/internal/transfer"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a saved note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lazy, store := openStore()
		defer lazy.Close()

		if err := showNote(context.Background(), store, os.Stdout, args[0], showJSON); err != nil {
			fatal("Error reading note", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
}

func showNote(ctx context.Context, store storage.Store, w io.Writer, id string, asJSON bool) error {
	note, err := getNote(ctx, store, id)
	if err != nil {
		return err
	}
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(note)
	}
	_, err = fmt.Fprintln(w, transfer.FormatNote(note.Title, note.Content))
	return err
}

// getNote 不存在时返回 errNoteNotFound / getNote returns errNoteNotFound for unknown ids
func getNote(ctx context.Context, store storage.Store, id string) (storage.Note, error) {
	note, ok, err := store.Get(ctx, id)
	if err != nil {
		return storage.Note{}, err
	}
	if !ok {
		return storage.Note{}, fmt.Errorf("%w: %s", errNoteNotFound, id)
	}
	return note, nil
}
