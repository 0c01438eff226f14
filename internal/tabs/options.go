package tabs

import (
	"log/slog"
	"time"
)

// Option 配置 Manager / Option configures a Manager
type Option func(*Manager)

// WithLogger 设置日志记录器 / WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithAutosaveDelay 设置去抖间隔（默认 1s） / WithAutosaveDelay sets the debounce interval (default 1s)
func WithAutosaveDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithClock 注入时钟，便于测试 / WithClock injects the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator 注入笔记 ID 生成器 / WithIDGenerator injects the note ID generator
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithOnChange 状态变化回调，在锁外调用 / WithOnChange registers a state-change hook, called outside the lock
func WithOnChange(fn func()) Option {
	return func(m *Manager) {
		m.onChange = fn
	}
}
