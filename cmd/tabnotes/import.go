package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tabnotes/internal/storage"
	"tabnotes/internal/tabs"
	"tabnotes/internal/transfer"
)

var importCmd = &cobra.Command{
	Use:   "import [file...]",
	Short: "Import text files as new notes",
	Long:  `Each file becomes a new note titled after the file name without its extension.`,
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lazy, store := openStore()
		defer lazy.Close()

		notes, err := importFiles(context.Background(), store, args, time.Now)
		for _, n := range notes {
			fmt.Printf("Imported %q as %s\n", n.Title, n.ID)
		}
		if err != nil {
			fatal("Error importing notes", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// importFiles 按顺序导入，遇到第一个错误即停止 / importFiles stops at the first failure
func importFiles(ctx context.Context, store storage.Store, paths []string, now func() time.Time) ([]storage.Note, error) {
	imported := make([]storage.Note, 0, len(paths))
	for _, path := range paths {
		content, err := transfer.ReadFile(path)
		if err != nil {
			return imported, err
		}
		ts := now()
		note := storage.Note{
			ID:        storage.NewNoteID(),
			Title:     tabs.ImportTitle(path, content),
			Content:   content,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		if err := store.Put(ctx, note); err != nil {
			return imported, fmt.Errorf("save imported note %s: %w", path, err)
		}
		imported = append(imported, note)
	}
	return imported, nil
}
