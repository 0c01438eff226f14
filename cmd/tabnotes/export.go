package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tabnotes/internal/storage"
	"tabnotes/internal/transfer"
)

var (
	exportAll bool
	exportDir string
)

var exportCmd = &cobra.Command{
	Use:   "export [id...]",
	Short: "Export notes as plain text",
	Long: `Export writes each given note to "<title>.txt" in the export directory.
With --all every note is written to a single all-notes.txt.`,
	Run: func(cmd *cobra.Command, args []string) {
		lazy, store := openStore()
		defer lazy.Close()

		dir := exportDir
		if strings.TrimSpace(dir) == "" {
			dir = cfg.ExportDir()
		}
		paths, err := exportNotes(context.Background(), store, dir, args, exportAll)
		if err != nil {
			fatal("Error exporting notes", err)
		}
		for _, p := range paths {
			fmt.Println("Exported", p)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every note into one file")
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Export directory (default: export.dir)")
}

func exportNotes(ctx context.Context, store storage.Store, dir string, ids []string, all bool) ([]string, error) {
	if all {
		notes, err := store.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		path, err := transfer.ExportAll(dir, storage.SortNotes(notes))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}
	if len(ids) == 0 {
		return nil, errors.New("specify note ids or --all")
	}

	paths := make([]string, 0, len(ids))
	for _, id := range ids {
		note, err := getNote(ctx, store, id)
		if err != nil {
			return paths, err
		}
		path, err := transfer.ExportNote(dir, note.Title, note.Content)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
