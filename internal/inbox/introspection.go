package inbox

import (
	"time"

	"github.com/aretw0/introspection"
)

// WatcherState exposes internal state for observability.
type WatcherState struct {
	Dir        string     `json:"dir"`
	Pattern    string     `json:"pattern"`
	Consume    bool       `json:"consume"`
	Active     bool       `json:"active"`
	Imported   int        `json:"imported"`
	Pending    int        `json:"pending"`
	LastImport *time.Time `json:"last_import,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// State implements introspection.Introspectable.
func (w *Watcher) State() any {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WatcherState{
		Dir:        w.dir,
		Pattern:    w.pattern,
		Consume:    w.consume,
		Active:     w.active,
		Imported:   w.imported,
		Pending:    w.sched.Len(),
		LastImport: w.lastImport,
		LastError:  w.lastErr,
	}
}

// ComponentType implements introspection.Component.
func (w *Watcher) ComponentType() string {
	return "inbox-watcher"
}

var _ introspection.Introspectable = (*Watcher)(nil)
var _ introspection.Component = (*Watcher)(nil)
