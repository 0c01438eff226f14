package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"tabnotes/internal/bootstrap"
	"tabnotes/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Edit notes with slash commands",
	Long:  `Start a line-oriented session. Lines starting with "/" are commands, anything else is appended to the active tab.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()

		res, err := bootstrap.Build(cfg, slog.Default())
		if err != nil {
			fatal("Failed to initialize", err)
		}
		if err := res.Start(ctx); err != nil {
			slog.Error("load notes failed", "error", err)
		}

		input, inputErr := repl.NewLineInput(filepath.Join(cfg.Storage.BaseDir, "repl.history"))
		if inputErr != nil {
			fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", inputErr)
		}
		defer input.Close()

		cwd, _ := os.Getwd()
		loop := repl.NewLoop(res.Manager, repl.Options{
			ExportDir:  cfg.ExportDir(),
			ProjectDir: cwd,
			Out:        os.Stdout,
			Stats:      res.Stats,
			Color:      true,
		})
		runErr := loop.Run(ctx, input)

		if err := res.Close(context.Background()); err != nil {
			fatal("Failed to save notes", err)
		}
		if runErr != nil {
			fatal("REPL exited with error", runErr)
		}
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}
