// Package tabs 管理打开的笔记标签页：有序标签、当前标签、笔记缓存与去抖自动保存。
// Package tabs manages open note tabs: ordered tabs, the active tab, the note
// cache and debounced auto-save to a storage.Store.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tabnotes/internal/debounce"
	"tabnotes/internal/storage"
)

var (
	ErrTabNotFound     = errors.New("tab not found")
	ErrNoteNotFound    = errors.New("note not found")
	ErrIndexOutOfRange = errors.New("tab index out of range")
)

// DefaultAutosaveDelay 编辑停止后多久自动保存 / Quiet period before an edited tab is saved
const DefaultAutosaveDelay = time.Second

// Tab 一个打开的编辑会话 / Tab is an open, possibly unsaved editing session for one note
type Tab struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Content           string `json:"content"`
	HasUnsavedChanges bool   `json:"has_unsaved_changes"`
	// IsNew 尚无已保存的笔记 / IsNew means no note has been persisted for this tab yet
	IsNew bool `json:"is_new"`
	// SaveErr 最近一次保存失败的原因 / SaveErr holds the last save failure, empty when healthy
	SaveErr string `json:"save_error,omitempty"`

	rev uint64
}

// DisplayTitle 空标题显示为 "Untitled"
func (t Tab) DisplayTitle() string {
	if t.Title == "" {
		return "Untitled"
	}
	return t.Title
}

// TabUpdate 部分更新；nil 字段保持不变 / TabUpdate is a partial update; nil fields are left alone
type TabUpdate struct {
	Title   *string
	Content *string
}

// Manager 标签页与笔记生命周期管理器，可并发使用
// Manager owns the tab/note lifecycle and is safe for concurrent use
type Manager struct {
	store    storage.Store
	logger   *slog.Logger
	delay    time.Duration
	now      func() time.Time
	newID    func() string
	sched    *debounce.Scheduler
	ctx      context.Context
	cancel   context.CancelFunc
	onChange func()

	mu        sync.Mutex
	tabs      []*Tab
	activeID  string
	notes     map[string]storage.Note
	saveLocks map[string]*sync.Mutex
	closed    bool
}

// New 创建管理器；store 由调用方持有并负责关闭
// New creates a Manager over store; the caller keeps ownership of store
func New(store storage.Store, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:     store,
		logger:    slog.Default(),
		delay:     DefaultAutosaveDelay,
		now:       time.Now,
		newID:     storage.NewNoteID,
		sched:     debounce.New(),
		ctx:       ctx,
		cancel:    cancel,
		notes:     map[string]storage.Note{},
		saveLocks: map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetOnChange 替换状态变化回调 / SetOnChange replaces the state-change hook
func (m *Manager) SetOnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

func (m *Manager) changed() {
	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Load 读取全部笔记并打开最近更新的一条；没有笔记时打开一个空白标签。
// 读取失败时仍打开空白标签并返回错误。
// Load reads all notes and opens the most recently updated one, or one empty
// tab when the store is empty. On a read failure an empty tab is still opened
// and the error is returned.
func (m *Manager) Load(ctx context.Context) error {
	notes, err := m.store.GetAll(ctx)

	m.mu.Lock()
	m.notes = make(map[string]storage.Note, len(notes))
	for _, n := range notes {
		m.notes[n.ID] = n
	}
	m.tabs = nil
	var tab *Tab
	if sorted := storage.SortNotes(notes); err == nil && len(sorted) > 0 {
		tab = tabFromNote(sorted[0])
	} else {
		tab = &Tab{ID: m.newID(), IsNew: true}
	}
	m.tabs = append(m.tabs, tab)
	m.activeID = tab.ID
	m.mu.Unlock()

	m.changed()
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	m.logger.Debug("notes loaded", "count", len(notes), "active", tab.ID)
	return nil
}

// CreateTab 追加一个新的空白标签并激活 / CreateTab appends a fresh empty tab and activates it
func (m *Manager) CreateTab() Tab {
	m.mu.Lock()
	tab := &Tab{ID: m.newID(), IsNew: true}
	m.tabs = append(m.tabs, tab)
	m.activeID = tab.ID
	out := *tab
	m.mu.Unlock()

	m.changed()
	return out
}

// UpdateTab 更新标题/内容，标记为未保存并重启该标签的去抖计时
// UpdateTab applies the update, marks the tab dirty and restarts its debounce timer
func (m *Manager) UpdateTab(id string, u TabUpdate) error {
	m.mu.Lock()
	tab := m.find(id)
	if tab == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	if u.Title != nil {
		tab.Title = *u.Title
	}
	if u.Content != nil {
		tab.Content = *u.Content
	}
	tab.HasUnsavedChanges = true
	tab.rev++
	m.mu.Unlock()

	m.scheduleSave(id)
	m.changed()
	return nil
}

// CloseTab 关闭标签；未保存的标签先立即保存，保存失败则保留标签并返回错误。
// 关闭当前标签时激活剩余标签中的最后一个。
// CloseTab closes a tab. A dirty tab is saved first; if that save fails the tab
// stays open and the error is returned. Closing the active tab activates the
// last remaining tab, or none.
func (m *Manager) CloseTab(ctx context.Context, id string) error {
	for {
		m.mu.Lock()
		idx := m.index(id)
		if idx < 0 {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrTabNotFound, id)
		}
		if m.tabs[idx].HasUnsavedChanges {
			m.mu.Unlock()
			m.sched.Cancel(id)
			if err := m.SaveTab(ctx, id); err != nil {
				return err
			}
			continue
		}

		m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
		// 进行中的 SaveTab 持有自己的锁指针 / an in-flight SaveTab keeps its own lock pointer
		delete(m.saveLocks, id)
		if m.activeID == id {
			m.activeID = ""
			if n := len(m.tabs); n > 0 {
				m.activeID = m.tabs[n-1].ID
			}
		}
		m.mu.Unlock()
		break
	}

	m.sched.Cancel(id)
	m.changed()
	return nil
}

// SwitchTab 仅切换当前标签 / SwitchTab changes the active pointer only
func (m *Manager) SwitchTab(id string) error {
	m.mu.Lock()
	if m.find(id) == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	m.activeID = id
	m.mu.Unlock()

	m.changed()
	return nil
}

// ReorderTabs 将 from 处的标签移动到 to；越界返回 ErrIndexOutOfRange
// ReorderTabs moves the tab at from to to; out-of-range indices return ErrIndexOutOfRange
func (m *Manager) ReorderTabs(from, to int) error {
	m.mu.Lock()
	n := len(m.tabs)
	if from < 0 || from >= n || to < 0 || to >= n {
		m.mu.Unlock()
		return fmt.Errorf("%w: move %d -> %d with %d tabs", ErrIndexOutOfRange, from, to, n)
	}
	if from != to {
		tab := m.tabs[from]
		m.tabs = append(m.tabs[:from], m.tabs[from+1:]...)
		m.tabs = append(m.tabs[:to], append([]*Tab{tab}, m.tabs[to:]...)...)
	}
	m.mu.Unlock()

	m.changed()
	return nil
}

// OpenNote 打开已保存的笔记；已打开时直接切换过去
// OpenNote activates the tab for a saved note, opening one if needed
func (m *Manager) OpenNote(id string) (Tab, error) {
	m.mu.Lock()
	if tab := m.find(id); tab != nil {
		m.activeID = id
		out := *tab
		m.mu.Unlock()
		m.changed()
		return out, nil
	}
	note, ok := m.notes[id]
	if !ok {
		m.mu.Unlock()
		return Tab{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	tab := tabFromNote(note)
	m.tabs = append(m.tabs, tab)
	m.activeID = id
	out := *tab
	m.mu.Unlock()

	m.changed()
	return out, nil
}

// ImportNote 以导入的文本创建一个未保存的新标签并激活，随后由去抖保存
// ImportNote opens imported text as a new dirty, active tab and schedules its save
func (m *Manager) ImportNote(content, filename string) Tab {
	m.mu.Lock()
	tab := &Tab{
		ID:                m.newID(),
		Title:             ImportTitle(filename, content),
		Content:           content,
		HasUnsavedChanges: true,
		IsNew:             true,
		rev:               1,
	}
	m.tabs = append(m.tabs, tab)
	m.activeID = tab.ID
	out := *tab
	m.mu.Unlock()

	m.scheduleSave(tab.ID)
	m.changed()
	return out
}

// SaveTab 将标签当前内容写入存储并更新缓存。
// 首次保存时 createdAt 取当前时间，之后保留；updatedAt 每次刷新。
// 保存期间若标签又被编辑，则保持未保存状态。失败时记录错误并重新排期。
// SaveTab writes the tab's current title and content to the store and upserts
// the note cache. The tab turns clean only if it was not edited meanwhile. On
// failure the error is recorded on the tab and another save is scheduled.
func (m *Manager) SaveTab(ctx context.Context, id string) error {
	lock := m.saveLock(id)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	tab := m.find(id)
	if tab == nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	rev := tab.rev
	now := m.now()
	note := storage.Note{
		ID:        id,
		Title:     tab.Title,
		Content:   tab.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prev, ok := m.notes[id]; ok && !prev.CreatedAt.IsZero() {
		note.CreatedAt = prev.CreatedAt
	}
	m.mu.Unlock()

	if err := m.store.Put(ctx, note); err != nil {
		m.mu.Lock()
		if tab := m.find(id); tab != nil {
			tab.SaveErr = err.Error()
		}
		m.mu.Unlock()
		m.logger.Error("save failed, will retry", "note", id, "error", err)
		m.scheduleSave(id)
		m.changed()
		return fmt.Errorf("save note %s: %w", id, err)
	}

	m.mu.Lock()
	m.notes[id] = note
	if tab := m.find(id); tab != nil {
		tab.IsNew = false
		tab.SaveErr = ""
		if tab.rev == rev {
			tab.HasUnsavedChanges = false
		}
	}
	m.mu.Unlock()

	m.logger.Debug("note saved", "note", id, "bytes", len(note.Content))
	m.changed()
	return nil
}

// Flush 立即保存所有未保存的标签 / Flush saves every dirty tab now
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	var dirty []string
	for _, t := range m.tabs {
		if t.HasUnsavedChanges {
			dirty = append(dirty, t.ID)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range dirty {
		m.sched.Cancel(id)
		if err := m.SaveTab(ctx, id); err != nil && !errors.Is(err, ErrTabNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close 取消所有待执行的保存；之后不再排期
// Close cancels all pending saves; nothing is scheduled afterwards
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.sched.Stop()
	m.cancel()
	return nil
}

func (m *Manager) scheduleSave(id string) {
	m.sched.Schedule(id, m.delay, func() {
		if err := m.SaveTab(m.ctx, id); err != nil && !errors.Is(err, ErrTabNotFound) {
			m.logger.Debug("autosave did not complete", "note", id, "error", err)
		}
	})
}

func (m *Manager) saveLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.saveLocks[id]
	if !ok {
		l = &sync.Mutex{}
		m.saveLocks[id] = l
	}
	return l
}

// --- Readers ---

// Tabs 返回标签的有序快照 / Tabs returns an ordered snapshot of open tabs
func (m *Manager) Tabs() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tab, len(m.tabs))
	for i, t := range m.tabs {
		out[i] = *t
	}
	return out
}

// Snapshot 在同一把锁下返回标签快照与当前标签下标（无则 -1）
// Snapshot returns the ordered tabs and the active index (-1 if none) read under
// one lock, so the index always fits the slice.
func (m *Manager) Snapshot() ([]Tab, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Tab, len(m.tabs))
	for i, t := range m.tabs {
		out[i] = *t
	}
	return out, m.index(m.activeID)
}

// Tab 按 ID 查找标签 / Tab looks up an open tab by ID
func (m *Manager) Tab(id string) (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.find(id); t != nil {
		return *t, true
	}
	return Tab{}, false
}

// ActiveTabID 当前标签 ID，无标签时为空 / ActiveTabID is empty when no tab is open
func (m *Manager) ActiveTabID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// ActiveTab 当前标签 / ActiveTab returns the active tab, if any
func (m *Manager) ActiveTab() (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t := m.find(m.activeID); t != nil {
		return *t, true
	}
	return Tab{}, false
}

// ActiveIndex 当前标签在顺序中的下标，无则为 -1
func (m *Manager) ActiveIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index(m.activeID)
}

// Notes 缓存中的全部笔记，按更新时间倒序 / Notes returns cached notes, most recently updated first
func (m *Manager) Notes() []storage.Note {
	m.mu.Lock()
	notes := make([]storage.Note, 0, len(m.notes))
	for _, n := range m.notes {
		notes = append(notes, n)
	}
	m.mu.Unlock()
	return storage.SortNotes(notes)
}

// DirtyCount 未保存标签数 / DirtyCount returns the number of tabs with unsaved changes
func (m *Manager) DirtyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tabs {
		if t.HasUnsavedChanges {
			n++
		}
	}
	return n
}

// PendingSave 是否有等待中的自动保存 / PendingSave reports whether an autosave is scheduled for id
func (m *Manager) PendingSave(id string) bool {
	return m.sched.Pending(id)
}

func (m *Manager) find(id string) *Tab {
	if i := m.index(id); i >= 0 {
		return m.tabs[i]
	}
	return nil
}

func (m *Manager) index(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range m.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func tabFromNote(n storage.Note) *Tab {
	return &Tab{ID: n.ID, Title: n.Title, Content: n.Content}
}
