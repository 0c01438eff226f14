// Package inbox 监听一个目录，把新写入的文本文件导入为标签页。
// Package inbox watches a directory and imports newly written text files as tabs.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"tabnotes/internal/debounce"
	"tabnotes/internal/tabs"
	"tabnotes/internal/transfer"
)

const (
	DefaultPattern = "*.{txt,md}"
	DefaultSettle  = 200 * time.Millisecond
)

// Importer 接收导入的文本，通常是 *tabs.Manager。
// consume 模式下源文件只在 SaveTab 成功后删除。
// Importer receives imported text; usually a *tabs.Manager. In consume mode the
// source file is removed only after SaveTab succeeds.
type Importer interface {
	ImportNote(content, filename string) tabs.Tab
	SaveTab(ctx context.Context, id string) error
}

// Watcher 收件箱目录监听器 / Watcher imports files dropped into an inbox directory
type Watcher struct {
	dir      string
	pattern  string
	consume  bool
	settle   time.Duration
	importer Importer
	logger   *slog.Logger
	onImport func(tab tabs.Tab, path string)
	sched    *debounce.Scheduler

	mu         sync.Mutex
	cancel     context.CancelFunc
	task       lifecycle.Task
	stopping   bool
	inflight   sync.WaitGroup
	active     bool
	imported   int
	lastImport *time.Time
	lastErr    string
}

type Option func(*Watcher)

func WithPattern(pattern string) Option {
	return func(w *Watcher) {
		if strings.TrimSpace(pattern) != "" {
			w.pattern = pattern
		}
	}
}

// WithConsume 导入后删除源文件 / WithConsume removes the source file after import
func WithConsume(consume bool) Option {
	return func(w *Watcher) { w.consume = consume }
}

// WithSettle 同一文件事件静默多久后才导入 / WithSettle sets how long a file must stay quiet before import
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnImport 导入成功回调 / WithOnImport registers a callback for each imported file
func WithOnImport(fn func(tab tabs.Tab, path string)) Option {
	return func(w *Watcher) { w.onImport = fn }
}

func New(dir string, importer Importer, opts ...Option) (*Watcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("inbox dir is empty")
	}
	if importer == nil {
		return nil, errors.New("inbox importer is nil")
	}
	w := &Watcher{
		dir:      dir,
		pattern:  DefaultPattern,
		settle:   DefaultSettle,
		importer: importer,
		logger:   slog.Default(),
		sched:    debounce.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if !doublestar.ValidatePattern(w.pattern) {
		return nil, fmt.Errorf("invalid inbox pattern %q", w.pattern)
	}
	return w, nil
}

// Start 创建目录并开始监听，直到 ctx 取消或调用 Stop。consume 模式下先导入已存在的文件。
// Start creates the directory and watches it until ctx is cancelled or Stop is
// called. In consume mode files already present are imported first.
func (w *Watcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	w.mu.Lock()
	if w.cancel != nil || w.stopping {
		w.mu.Unlock()
		return errors.New("inbox watcher already started or stopped")
	}
	w.mu.Unlock()
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch inbox %s: %w", w.dir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.active = true
	w.mu.Unlock()

	if w.consume {
		w.scanExisting(runCtx)
	}

	task := lifecycle.Go(runCtx, func(ctx context.Context) error {
		return w.run(ctx, watcher)
	}, lifecycle.WithErrorHandler(func(err error) {
		w.recordErr(err)
		w.logger.Error("inbox watcher panic", "error", err)
	}))
	w.mu.Lock()
	w.task = task
	w.mu.Unlock()
	return nil
}

// Stop 停止监听并等待进行中的导入完成；之后不再导入任何文件。可重复调用。
// Stop ends the watch loop and waits for in-flight imports; nothing is imported
// afterwards. Safe to call more than once, or without Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.stopping = true
	cancel, task := w.cancel, w.task
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if task != nil {
		_ = task.Wait()
	}
	w.inflight.Wait()
}

// beginImport 停止后返回 false / beginImport reports false once Stop has begun
func (w *Watcher) beginImport() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopping {
		return false
	}
	w.inflight.Add(1)
	return true
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer func() {
		w.sched.Stop()
		_ = watcher.Close()
		w.setActive(false)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.recordErr(err)
			w.logger.Warn("inbox watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.matches(event.Name) {
		return
	}
	path := event.Name
	w.logger.Debug("inbox event", "name", path, "op", event.Op.String())
	w.sched.Schedule(path, w.settle, func() {
		if ctx.Err() != nil || !w.beginImport() {
			return
		}
		defer w.inflight.Done()
		w.importFile(ctx, path)
	})
}

func (w *Watcher) matches(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ok, err := doublestar.Match(w.pattern, name)
	return err == nil && ok
}

func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.recordErr(err)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && w.matches(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		w.importFile(ctx, filepath.Join(w.dir, name))
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	content, err := transfer.ReadFile(path)
	if err != nil {
		w.recordErr(err)
		w.logger.Error("inbox import failed", "path", path, "error", err)
		return
	}
	tab := w.importer.ImportNote(content, filepath.Base(path))

	if w.consume {
		// 保存完成前不删除源文件；Stop 会等待这次保存
		// the source stays until the note is persisted; Stop waits for this save
		err := lifecycle.DoDetached(ctx, func(ctx context.Context) error {
			return w.importer.SaveTab(ctx, tab.ID)
		})
		if err != nil {
			w.recordErr(err)
			w.logger.Warn("inbox file kept, imported note not saved", "path", path, "tab", tab.ID, "error", err)
		} else if err := os.Remove(path); err != nil {
			w.recordErr(err)
			w.logger.Warn("inbox file not removed", "path", path, "error", err)
		}
	}

	now := time.Now()
	w.mu.Lock()
	w.imported++
	w.lastImport = &now
	fn := w.onImport
	w.mu.Unlock()

	w.logger.Info("inbox file imported", "path", path, "tab", tab.ID, "title", tab.Title)
	if fn != nil {
		fn(tab, path)
	}
}

func (w *Watcher) setActive(active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = active
}

func (w *Watcher) recordErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err.Error()
}

// SetOnImport 替换导入回调 / SetOnImport replaces the import callback
func (w *Watcher) SetOnImport(fn func(tab tabs.Tab, path string)) {
	w.mu.Lock()
	w.onImport = fn
	w.mu.Unlock()
}

// Imported 已导入文件数 / Imported returns how many files were imported
func (w *Watcher) Imported() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.imported
}
