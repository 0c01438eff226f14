package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tabnotes/internal/bootstrap"
	"tabnotes/internal/logging"
	"tabnotes/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal UI (default)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runTUI()
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

// runTUI 日志写入文件，终端留给界面 / logs go to a file so the terminal belongs to the UI
func runTUI() {
	logger, closer, err := logging.OpenFile(cfg.LogFile(), logLevel())
	if err != nil {
		fatal("Failed to open log file", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := bootstrap.Build(cfg, logger)
	if err != nil {
		fatal("Failed to initialize", err)
	}
	if err := res.Start(ctx); err != nil {
		// 读取失败时仍有一个空白标签可用 / an empty tab is still usable after a failed load
		logger.Error("load notes failed", "error", err)
	}

	runErr := tui.Run(ctx, tui.Deps{
		Manager: res.Manager,
		Stats:   res.Stats,
		Inbox:   res.Inbox,
	}, tui.Options{
		ExportDir: cfg.ExportDir(),
		Preview:   cfg.UI.Preview,
		Logger:    logger,
	})

	if err := res.Close(context.Background()); err != nil {
		fatal("Failed to save notes", err)
	}
	if runErr != nil {
		fatal("TUI exited with error", runErr)
	}
}
