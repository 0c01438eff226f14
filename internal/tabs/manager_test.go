package tabs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabnotes/internal/storage"
)

const testDelay = 30 * time.Millisecond

// recordingStore 记录每次 Put，可注入失败
type recordingStore struct {
	*storage.MemoryStore
	mu      sync.Mutex
	puts    []storage.Note
	failing atomic.Bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: storage.NewMemoryStore()}
}

func (r *recordingStore) Put(ctx context.Context, n storage.Note) error {
	if r.failing.Load() {
		return errors.New("disk full")
	}
	r.mu.Lock()
	r.puts = append(r.puts, n)
	r.mu.Unlock()
	return r.MemoryStore.Put(ctx, n)
}

func (r *recordingStore) putCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.puts)
}

func (r *recordingStore) lastPut() storage.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.puts[len(r.puts)-1]
}

func newTestManager(t *testing.T, store storage.Store, opts ...Option) *Manager {
	t.Helper()
	var seq atomic.Int64
	base := []Option{
		WithAutosaveDelay(testDelay),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(func() string { return fmt.Sprintf("note_%d", seq.Add(1)) }),
	}
	m := New(store, append(base, opts...)...)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func strPtr(s string) *string { return &s }

func tabIDs(tabs []Tab) []string {
	out := make([]string, len(tabs))
	for i, t := range tabs {
		out[i] = t.ID
	}
	return out
}

func TestLoad_EmptyStoreOpensOneEmptyTab(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore())
	require.NoError(t, m.Load(context.Background()))

	tabs := m.Tabs()
	require.Len(t, tabs, 1)
	assert.Equal(t, tabs[0].ID, m.ActiveTabID())
	assert.Empty(t, tabs[0].Title)
	assert.Empty(t, tabs[0].Content)
	assert.False(t, tabs[0].HasUnsavedChanges)
	assert.True(t, tabs[0].IsNew)
}

func TestLoad_OpensMostRecentlyUpdatedNote(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, storage.Note{ID: "old", Title: "old", UpdatedAt: base}))
	require.NoError(t, store.Put(ctx, storage.Note{ID: "b-new", Title: "newest", UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Put(ctx, storage.Note{ID: "a-new", Title: "tie", UpdatedAt: base.Add(time.Hour)}))

	m := newTestManager(t, store)
	require.NoError(t, m.Load(ctx))

	tabs := m.Tabs()
	require.Len(t, tabs, 1)
	// Ties on updatedAt are broken by id.
	assert.Equal(t, "a-new", tabs[0].ID)
	assert.Equal(t, "a-new", m.ActiveTabID())
	assert.Len(t, m.Notes(), 3)
	assert.Equal(t, "a-new", m.Notes()[0].ID)
}

type failingGetAll struct{ *storage.MemoryStore }

func (failingGetAll) GetAll(context.Context) ([]storage.Note, error) {
	return nil, errors.New("store unavailable")
}

func TestLoad_ReadFailureStillOpensTab(t *testing.T) {
	m := newTestManager(t, failingGetAll{storage.NewMemoryStore()})
	err := m.Load(context.Background())
	require.Error(t, err)
	require.Len(t, m.Tabs(), 1)
	assert.NotEmpty(t, m.ActiveTabID())
}

func TestCreateTab_BecomesActive(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore())
	require.NoError(t, m.Load(context.Background()))

	tab := m.CreateTab()
	assert.Equal(t, tab.ID, m.ActiveTabID())
	assert.False(t, tab.HasUnsavedChanges)
	assert.Len(t, m.Tabs(), 2)
}

func TestCloseAllButOne_LeavesLastActive(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemoryStore())
	require.NoError(t, m.Load(ctx))
	for i := 0; i < 4; i++ {
		m.CreateTab()
	}
	tabs := m.Tabs()
	require.Len(t, tabs, 5)

	keep := tabs[2].ID
	for _, tab := range tabs {
		if tab.ID != keep {
			require.NoError(t, m.CloseTab(ctx, tab.ID))
		}
	}
	remaining := m.Tabs()
	require.Len(t, remaining, 1)
	assert.Equal(t, keep, remaining[0].ID)
	assert.Equal(t, keep, m.ActiveTabID())
}

func TestCloseActiveTab_ActivatesLastRemaining(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemoryStore())
	require.NoError(t, m.Load(ctx))
	first := m.Tabs()[0].ID
	second := m.CreateTab().ID
	third := m.CreateTab().ID

	require.NoError(t, m.SwitchTab(first))
	require.NoError(t, m.CloseTab(ctx, first))
	assert.Equal(t, third, m.ActiveTabID())

	// Closing a background tab keeps the active pointer.
	require.NoError(t, m.CloseTab(ctx, second))
	assert.Equal(t, third, m.ActiveTabID())

	require.NoError(t, m.CloseTab(ctx, third))
	assert.Empty(t, m.ActiveTabID())
	_, ok := m.ActiveTab()
	assert.False(t, ok)
}

func TestUpdateTab_DirtyUntilDebouncedSave(t *testing.T) {
	store := newRecordingStore()
	m := newTestManager(t, store)
	require.NoError(t, m.Load(context.Background()))
	id := m.ActiveTabID()

	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("draft")}))
	tab, _ := m.Tab(id)
	assert.True(t, tab.HasUnsavedChanges)
	assert.True(t, m.PendingSave(id))
	assert.Equal(t, 0, store.putCount())

	require.Eventually(t, func() bool {
		tab, _ := m.Tab(id)
		return !tab.HasUnsavedChanges
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, store.putCount())
	tab, _ = m.Tab(id)
	assert.False(t, tab.IsNew)
}

func TestUpdateTab_CoalescesEditsWithinWindow(t *testing.T) {
	store := newRecordingStore()
	m := newTestManager(t, store)
	require.NoError(t, m.Load(context.Background()))
	id := m.ActiveTabID()

	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("first")}))
	time.Sleep(testDelay / 3)
	require.NoError(t, m.UpdateTab(id, TabUpdate{Title: strPtr("T"), Content: strPtr("second")}))

	require.Eventually(t, func() bool { return store.putCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * testDelay)
	assert.Equal(t, 1, store.putCount())
	assert.Equal(t, "second", store.lastPut().Content)
	assert.Equal(t, "T", store.lastPut().Title)
}

func TestUpdateTab_TimersAreIndependentPerTab(t *testing.T) {
	store := newRecordingStore()
	m := newTestManager(t, store, WithAutosaveDelay(60*time.Millisecond))
	require.NoError(t, m.Load(context.Background()))
	a := m.ActiveTabID()
	b := m.CreateTab().ID

	require.NoError(t, m.UpdateTab(a, TabUpdate{Content: strPtr("a")}))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.UpdateTab(b, TabUpdate{Content: strPtr("b")}))

	require.Eventually(t, func() bool {
		tab, _ := m.Tab(a)
		return !tab.HasUnsavedChanges
	}, time.Second, 2*time.Millisecond)
	tabB, _ := m.Tab(b)
	assert.True(t, tabB.HasUnsavedChanges, "editing b must not delay or trigger a's save")
}

func TestUpdateTab_UnknownID(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore())
	require.NoError(t, m.Load(context.Background()))
	err := m.UpdateTab("missing", TabUpdate{Content: strPtr("x")})
	assert.ErrorIs(t, err, ErrTabNotFound)
	assert.ErrorIs(t, m.SwitchTab("missing"), ErrTabNotFound)
	assert.ErrorIs(t, m.CloseTab(context.Background(), "missing"), ErrTabNotFound)
}

func TestCloseDirtyTab_PersistsExactContent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "notes.db")
	sqlite, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	m := newTestManager(t, sqlite, WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(ctx))
	id := m.ActiveTabID()
	require.NoError(t, m.UpdateTab(id, TabUpdate{Title: strPtr("Groceries"), Content: strPtr("eggs\nflour")}))
	require.NoError(t, m.CloseTab(ctx, id))
	assert.False(t, m.PendingSave(id))
	require.NoError(t, m.Close())
	require.NoError(t, sqlite.Close())

	reopened, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	note, found, err := reopened.Get(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Groceries", note.Title)
	assert.Equal(t, "eggs\nflour", note.Content)
}

func TestCloseDirtyTab_FailedSaveKeepsTab(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	m := newTestManager(t, store, WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(ctx))
	id := m.ActiveTabID()
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("precious")}))

	store.failing.Store(true)
	err := m.CloseTab(ctx, id)
	require.Error(t, err)

	tab, ok := m.Tab(id)
	require.True(t, ok, "tab must survive a failed save")
	assert.True(t, tab.HasUnsavedChanges)
	assert.Contains(t, tab.SaveErr, "disk full")
	assert.True(t, m.PendingSave(id), "a retry save should be scheduled")

	store.failing.Store(false)
	require.NoError(t, m.CloseTab(ctx, id))
	_, ok = m.Tab(id)
	assert.False(t, ok)
}

func TestSaveTab_FailureRetriesOnNextCycle(t *testing.T) {
	store := newRecordingStore()
	m := newTestManager(t, store)
	require.NoError(t, m.Load(context.Background()))
	id := m.ActiveTabID()

	store.failing.Store(true)
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("x")}))
	require.Eventually(t, func() bool {
		tab, _ := m.Tab(id)
		return tab.SaveErr != ""
	}, time.Second, 5*time.Millisecond)

	store.failing.Store(false)
	require.Eventually(t, func() bool {
		tab, _ := m.Tab(id)
		return !tab.HasUnsavedChanges && tab.SaveErr == ""
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "x", store.lastPut().Content)
}

func TestSaveTab_PreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		mu.Lock()
		clock = clock.Add(d)
		mu.Unlock()
	}

	m := newTestManager(t, store, WithClock(now), WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(ctx))
	id := m.ActiveTabID()

	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("v1")}))
	require.NoError(t, m.SaveTab(ctx, id))
	first, _, _ := store.Get(ctx, id)
	assert.Equal(t, now(), first.CreatedAt)
	assert.Equal(t, now(), first.UpdatedAt)

	advance(time.Hour)
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("v2")}))
	require.NoError(t, m.SaveTab(ctx, id))
	second, _, _ := store.Get(ctx, id)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, now(), second.UpdatedAt)
	assert.Equal(t, "v2", second.Content)

	cached := m.Notes()
	require.Len(t, cached, 1)
	assert.Equal(t, "v2", cached[0].Content)
}

// blockingStore 在 Put 中阻塞直到 release 关闭
type blockingStore struct {
	*storage.MemoryStore
	entered  chan struct{}
	release  chan struct{}
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (b *blockingStore) Put(ctx context.Context, n storage.Note) error {
	cur := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	if cur > b.maxSeen.Load() {
		b.maxSeen.Store(cur)
	}
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return b.MemoryStore.Put(ctx, n)
}

func TestSaveTab_EditDuringSaveKeepsTabDirty(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{MemoryStore: storage.NewMemoryStore(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := newTestManager(t, store, WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(ctx))
	id := m.ActiveTabID()
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("one")}))

	done := make(chan error, 1)
	go func() { done <- m.SaveTab(ctx, id) }()
	<-store.entered
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("two")}))
	close(store.release)
	require.NoError(t, <-done)

	tab, _ := m.Tab(id)
	assert.True(t, tab.HasUnsavedChanges, "edit made during the write must stay dirty")
}

func TestSaveTab_AtMostOneInFlightPerTab(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{MemoryStore: storage.NewMemoryStore(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	m := newTestManager(t, store, WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(ctx))
	id := m.ActiveTabID()
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("x")}))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.SaveTab(ctx, id)
		}()
	}
	<-store.entered
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()
	assert.Equal(t, int32(1), store.maxSeen.Load())
}

func TestReorderTabs(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore())
	require.NoError(t, m.Load(context.Background()))
	m.CreateTab()
	m.CreateTab()
	orig := tabIDs(m.Tabs())
	require.Len(t, orig, 3)

	require.NoError(t, m.ReorderTabs(0, 2))
	assert.Equal(t, []string{orig[1], orig[2], orig[0]}, tabIDs(m.Tabs()))

	require.NoError(t, m.ReorderTabs(2, 0))
	assert.Equal(t, orig, tabIDs(m.Tabs()))

	for _, c := range [][2]int{{-1, 0}, {0, 3}, {3, 1}, {1, -2}} {
		err := m.ReorderTabs(c[0], c[1])
		assert.ErrorIs(t, err, ErrIndexOutOfRange, "move %d -> %d", c[0], c[1])
	}
	assert.Equal(t, orig, tabIDs(m.Tabs()))
}

func TestSwitchTab_NoPersistence(t *testing.T) {
	store := newRecordingStore()
	m := newTestManager(t, store)
	require.NoError(t, m.Load(context.Background()))
	first := m.ActiveTabID()
	m.CreateTab()

	require.NoError(t, m.SwitchTab(first))
	assert.Equal(t, first, m.ActiveTabID())
	time.Sleep(2 * testDelay)
	assert.Equal(t, 0, store.putCount())
}

func TestImportNote(t *testing.T) {
	store := newRecordingStore()
	m := newTestManager(t, store)
	require.NoError(t, m.Load(context.Background()))

	tab := m.ImportNote("Hello", "draft.md")
	assert.Equal(t, "draft", tab.Title)
	assert.Equal(t, "Hello", tab.Content)
	assert.True(t, tab.HasUnsavedChanges)
	assert.Equal(t, tab.ID, m.ActiveTabID())

	require.Eventually(t, func() bool { return store.putCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "draft", store.lastPut().Title)
}

func TestImportTitle(t *testing.T) {
	cases := []struct {
		filename, content, want string
	}{
		{"draft.md", "Hello", "draft"},
		{"notes.txt", "x", "notes"},
		{"/tmp/dir/report.final.txt", "", "report.final"},
		{"README", "body", "README"},
		{"", "First line\r\nsecond", "First line"},
		{".md", "  Heading  \nrest", "Heading"},
		{"", "   \nrest", ImportedNoteTitle},
		{"", "\n\nlater", ImportedNoteTitle},
		{"", "", ImportedNoteTitle},
	}
	for _, c := range cases {
		if got := ImportTitle(c.filename, c.content); got != c.want {
			t.Fatalf("ImportTitle(%q, %q)=%q, want %q", c.filename, c.content, got, c.want)
		}
	}
}

func TestOpenNote(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	now := time.Now()
	require.NoError(t, store.Put(ctx, storage.Note{ID: "n1", Title: "one", UpdatedAt: now}))
	require.NoError(t, store.Put(ctx, storage.Note{ID: "n2", Title: "two", Content: "body", UpdatedAt: now.Add(-time.Hour)}))

	m := newTestManager(t, store)
	require.NoError(t, m.Load(ctx))
	require.Equal(t, "n1", m.ActiveTabID())

	tab, err := m.OpenNote("n2")
	require.NoError(t, err)
	assert.Equal(t, "body", tab.Content)
	assert.Equal(t, "n2", m.ActiveTabID())
	assert.Len(t, m.Tabs(), 2)

	// Opening an already open note switches to it.
	_, err = m.OpenNote("n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", m.ActiveTabID())
	assert.Len(t, m.Tabs(), 2)

	_, err = m.OpenNote("missing")
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestFlush_SavesAllDirtyTabs(t *testing.T) {
	ctx := context.Background()
	store := newRecordingStore()
	m := newTestManager(t, store, WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(ctx))
	a := m.ActiveTabID()
	b := m.CreateTab().ID
	require.NoError(t, m.UpdateTab(a, TabUpdate{Content: strPtr("a")}))
	require.NoError(t, m.UpdateTab(b, TabUpdate{Content: strPtr("b")}))

	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, 2, store.putCount())
	assert.Equal(t, 0, m.DirtyCount())
	assert.False(t, m.PendingSave(a))
}

func TestClose_CancelsPendingSaves(t *testing.T) {
	store := newRecordingStore()
	m := newTestManager(t, store)
	require.NoError(t, m.Load(context.Background()))
	id := m.ActiveTabID()
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("x")}))

	require.NoError(t, m.Close())
	time.Sleep(3 * testDelay)
	assert.Equal(t, 0, store.putCount())

	// Edits after teardown never schedule a save.
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("y")}))
	assert.False(t, m.PendingSave(id))
}

func TestOnChange_CalledOutsideLock(t *testing.T) {
	var calls atomic.Int32
	var m *Manager
	m = newTestManager(t, storage.NewMemoryStore(), WithOnChange(func() {
		calls.Add(1)
		_ = m.Tabs()
	}))
	require.NoError(t, m.Load(context.Background()))
	m.CreateTab()
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestState(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore(), WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(context.Background()))
	id := m.ActiveTabID()
	require.NoError(t, m.UpdateTab(id, TabUpdate{Content: strPtr("x")}))

	st, ok := m.State().(ManagerState)
	require.True(t, ok)
	assert.Equal(t, 1, st.TabCount)
	assert.Equal(t, id, st.ActiveTabID)
	assert.Equal(t, []string{id}, st.DirtyTabs)
	assert.Equal(t, 1, st.PendingSaves)
	assert.Equal(t, "tab-manager", m.ComponentType())
}

func TestSnapshot_IndexAlwaysFitsDuringImports(t *testing.T) {
	m := newTestManager(t, storage.NewMemoryStore(), WithAutosaveDelay(time.Hour))
	require.NoError(t, m.Load(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			m.ImportNote("body", fmt.Sprintf("drop-%d.txt", i))
		}
	}()
	for {
		list, idx := m.Snapshot()
		require.True(t, idx >= 0 && idx < len(list), "idx=%d len=%d", idx, len(list))
		select {
		case <-done:
			list, idx = m.Snapshot()
			assert.Len(t, list, 201)
			assert.Equal(t, 200, idx)
			return
		default:
		}
	}
}

func TestCloseTab_ReleasesSaveLock(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemoryStore())
	require.NoError(t, m.Load(ctx))
	tab := m.CreateTab()
	require.NoError(t, m.UpdateTab(tab.ID, TabUpdate{Content: strPtr("x")}))
	require.NoError(t, m.CloseTab(ctx, tab.ID))

	m.mu.Lock()
	_, held := m.saveLocks[tab.ID]
	m.mu.Unlock()
	assert.False(t, held, "closed tab should not keep a save lock")
}
