package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tabnotes/internal/bootstrap"
	"tabnotes/internal/config"
	"tabnotes/internal/i18n"
	"tabnotes/internal/logging"
	"tabnotes/internal/storage"
)

var (
	configPath string
	verbose    bool

	// cfg 由 PersistentPreRun 加载 / cfg is loaded by PersistentPreRun
	cfg config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tabnotes",
	Short: "Tabbed plain-text notes with debounced auto-save",
	Long: `tabnotes keeps several plain-text notes open as tabs and saves each one
automatically a moment after you stop typing. Run without a subcommand to open the
terminal UI.`,
	Args: cobra.NoArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loaded, err := config.Load(configPath)
		if err != nil {
			fatal("Failed to load config", err)
		}
		cfg = loaded

		opts := &slog.HandlerOptions{
			Level: logging.ParseLevel(logLevel()),
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		i18n.Init(cfg.UI.Lang)
	},
	Run: func(cmd *cobra.Command, args []string) {
		runTUI()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func logLevel() string {
	if verbose {
		return "debug"
	}
	return cfg.Log.Level
}

// openStore 打开带重试的存储；调用方 defer lazy.Close()
// openStore opens the retrying store; callers defer lazy.Close()
func openStore() (*storage.Lazy, storage.Store) {
	lazy, store, err := bootstrap.OpenStore(cfg, slog.Default())
	if err != nil {
		fatal("Failed to open storage", err)
	}
	return lazy, store
}
