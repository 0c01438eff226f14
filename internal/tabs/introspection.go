package tabs

import (
	"github.com/aretw0/introspection"
)

// ManagerState exposes internal state for observability.
type ManagerState struct {
	TabCount      int      `json:"tab_count"`
	ActiveTabID   string   `json:"active_tab_id"`
	DirtyTabs     []string `json:"dirty_tabs,omitempty"`
	FailedTabs    []string `json:"failed_tabs,omitempty"`
	PendingSaves  int      `json:"pending_saves"`
	CachedNotes   int      `json:"cached_notes"`
	AutosaveDelay string   `json:"autosave_delay"`
	Closed        bool     `json:"closed"`
}

// State implements introspection.Introspectable.
func (m *Manager) State() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := ManagerState{
		TabCount:      len(m.tabs),
		ActiveTabID:   m.activeID,
		PendingSaves:  m.sched.Len(),
		CachedNotes:   len(m.notes),
		AutosaveDelay: m.delay.String(),
		Closed:        m.closed,
	}
	for _, t := range m.tabs {
		if t.HasUnsavedChanges {
			st.DirtyTabs = append(st.DirtyTabs, t.ID)
		}
		if t.SaveErr != "" {
			st.FailedTabs = append(st.FailedTabs, t.ID)
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (m *Manager) ComponentType() string {
	return "tab-manager"
}

var _ introspection.Introspectable = (*Manager)(nil)
var _ introspection.Component = (*Manager)(nil)
