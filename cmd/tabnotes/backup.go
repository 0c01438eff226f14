package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tabnotes/internal/storage"
	"tabnotes/internal/transfer"
)

var (
	restorePattern string
	restoreClear   bool
)

var backupCmd = &cobra.Command{
	Use:   "backup [dir]",
	Short: "Write every note as Markdown with YAML frontmatter",
	Long: `Backup writes one <id>.md file per note. Without a directory argument the
backup goes to <base_dir>/backups/<timestamp>.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lazy, store := openStore()
		defer lazy.Close()

		dir := filepath.Join(cfg.Storage.BaseDir, "backups", time.Now().Format("20060102-150405"))
		if len(args) == 1 {
			dir = args[0]
		}
		n, err := backupNotes(context.Background(), store, dir)
		if err != nil {
			fatal("Error writing backup", err)
		}
		fmt.Printf("Backed up %d note(s) to %s\n", n, dir)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [dir]",
	Short: "Restore notes from a Markdown backup",
	Long: `Restore reads every file under dir matching --pattern and upserts it by id.
Files without frontmatter are restored as new notes titled after the file name.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		lazy, store := openStore()
		defer lazy.Close()

		n, err := restoreNotes(context.Background(), store, args[0], restorePattern, restoreClear)
		if err != nil {
			fatal("Error restoring backup", err)
		}
		fmt.Printf("Restored %d note(s) from %s\n", n, args[0])
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringVar(&restorePattern, "pattern", transfer.DefaultBackupPattern, "Glob of files to restore (doublestar syntax)")
	restoreCmd.Flags().BoolVar(&restoreClear, "clear", false, "Delete all existing notes before restoring")
}

func backupNotes(ctx context.Context, store storage.Store, dir string) (int, error) {
	notes, err := store.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	return transfer.WriteBackup(dir, notes)
}

// restoreNotes 先完整解析备份再写入，解析失败时存储不变
// restoreNotes parses the whole backup before writing, so a parse failure leaves the store untouched
func restoreNotes(ctx context.Context, store storage.Store, dir, pattern string, clearFirst bool) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, fmt.Errorf("backup dir is empty")
	}
	notes, err := transfer.ReadBackup(dir, pattern)
	if err != nil {
		return 0, err
	}
	if clearFirst {
		if err := store.Clear(ctx); err != nil {
			return 0, err
		}
	}
	now := time.Now()
	for i, n := range notes {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = n.CreatedAt
		}
		if err := store.Put(ctx, n); err != nil {
			return i, fmt.Errorf("restore note %s: %w", n.ID, err)
		}
	}
	return len(notes), nil
}
