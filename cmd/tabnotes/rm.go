package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tabnotes/internal/storage"
)

var errNoteNotFound = errors.New("note not found")

var clearYes bool

var rmCmd = &cobra.Command{
	Use:   "rm [id...]",
	Short: "Delete saved notes",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lazy, store := openStore()
		defer lazy.Close()

		if err := removeNotes(context.Background(), store, args); err != nil {
			fatal("Error deleting notes", err)
		}
		for _, id := range args {
			fmt.Printf("Note deleted: %s\n", id)
		}
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved note",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if !clearYes {
			fatal("Refusing to clear", errors.New("pass --yes to delete every note"))
		}
		lazy, store := openStore()
		defer lazy.Close()

		if err := store.Clear(context.Background()); err != nil {
			fatal("Error clearing notes", err)
		}
		fmt.Println("All notes deleted")
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(clearCmd)
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm deleting every note")
}

// removeNotes 先检查全部 ID 存在再删除 / removeNotes checks every id exists before deleting any
func removeNotes(ctx context.Context, store storage.Store, ids []string) error {
	for _, id := range ids {
		if _, err := getNote(ctx, store, id); err != nil {
			return err
		}
	}
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}
	return nil
}
