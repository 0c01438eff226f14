package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tabnotes/internal/config"
	"tabnotes/internal/inbox"
	"tabnotes/internal/stats"
	"tabnotes/internal/storage"
	"tabnotes/internal/tabs"
)

// BuildResult 与 UI 无关的构建结果，供 TUI / REPL 使用
// BuildResult is UI-agnostic; the TUI and the REPL are built on top of it
type BuildResult struct {
	Config  config.Config
	Logger  *slog.Logger
	Lazy    *storage.Lazy
	Store   storage.Store
	Manager *tabs.Manager
	Stats   *stats.Counter
	// Inbox 未配置 inbox.dir 时为 nil / Inbox is nil when inbox.dir is not configured
	Inbox *inbox.Watcher
}

// OpenStore 按配置返回带重试的存储与其底层 Lazy 句柄；调用方负责 Close
// OpenStore returns the retrying store for cfg and the Lazy handle under it; the caller closes it
func OpenStore(cfg config.Config, logger *slog.Logger) (*storage.Lazy, storage.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lazy, err := storage.Open(storage.OpenOptions{
		Driver:  cfg.Storage.Driver,
		BaseDir: cfg.Storage.BaseDir,
		DBName:  cfg.Storage.DBName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	policy := storage.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.InitialBackoff(),
		MaxBackoff:     cfg.MaxBackoff(),
	}
	return lazy, storage.NewRetryStore(lazy, policy, logger), nil
}

// Build 按顺序初始化存储、管理器、统计与收件箱；不做任何 IO，IO 发生在 Start
// Build wires storage, the tab manager, stats and the inbox. It performs no IO;
// that happens in Start.
func Build(cfg config.Config, logger *slog.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lazy, store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	manager := tabs.New(store,
		tabs.WithLogger(logger.With("component", "tabs")),
		tabs.WithAutosaveDelay(cfg.AutosaveDelay()),
	)

	res := &BuildResult{
		Config:  cfg,
		Logger:  logger,
		Lazy:    lazy,
		Store:   store,
		Manager: manager,
		Stats:   stats.NewCounter(stats.DefaultEncoding),
	}

	if dir := strings.TrimSpace(cfg.Inbox.Dir); dir != "" {
		watcher, err := inbox.New(dir, manager,
			inbox.WithPattern(cfg.Inbox.Pattern),
			inbox.WithConsume(cfg.Inbox.Consume),
			inbox.WithSettle(cfg.InboxSettle()),
			inbox.WithLogger(logger.With("component", "inbox")),
		)
		if err != nil {
			return nil, fmt.Errorf("init inbox: %w", err)
		}
		res.Inbox = watcher
	}
	return res, nil
}

// Start 加载笔记、后台加载 token 编码并启动收件箱监听
// Start loads notes, loads the token encoding in the background and starts the inbox watcher
func (r *BuildResult) Start(ctx context.Context) error {
	if err := r.Manager.Load(ctx); err != nil {
		return err
	}
	r.Stats.LoadAsync()
	if r.Inbox != nil {
		if err := r.Inbox.Start(ctx); err != nil {
			// 收件箱不可用不影响编辑 / the editor keeps working without the inbox
			r.Logger.Warn("inbox disabled", "dir", r.Config.Inbox.Dir, "error", err)
		}
	}
	return nil
}

// Close 先停止收件箱，再保存未保存的标签，停止计时器并关闭存储
// Close stops the inbox first, then saves dirty tabs, stops timers and closes the store
func (r *BuildResult) Close(ctx context.Context) error {
	if r.Inbox != nil {
		r.Inbox.Stop()
	}
	var errs []error
	if err := r.Manager.Flush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := r.Manager.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Lazy.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
