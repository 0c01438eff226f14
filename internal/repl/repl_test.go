package repl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tabnotes/internal/i18n"
	"tabnotes/internal/logging"
	"tabnotes/internal/storage"
	"tabnotes/internal/tabs"
)

func newTestLoop(t *testing.T) (*Loop, *tabs.Manager, *bytes.Buffer, storage.Store) {
	t.Helper()
	i18n.Init("en")
	store := storage.NewMemoryStore()
	m := tabs.New(store,
		tabs.WithAutosaveDelay(time.Hour),
		tabs.WithLogger(logging.Discard()),
	)
	t.Cleanup(func() { _ = m.Close() })
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	var out bytes.Buffer
	loop := NewLoop(m, Options{
		ExportDir:  filepath.Join(t.TempDir(), "exports"),
		ProjectDir: t.TempDir(),
		Out:        &out,
	})
	return loop, m, &out, store
}

func exec(t *testing.T, l *Loop, line string) {
	t.Helper()
	if _, err := l.Execute(context.Background(), line); err != nil {
		t.Fatalf("Execute(%q): %v", line, err)
	}
}

func TestExecute_EditActiveTab(t *testing.T) {
	l, m, _, _ := newTestLoop(t)

	exec(t, l, "/title Todo")
	exec(t, l, "Buy milk")
	exec(t, l, "/append eggs")

	tab, _ := m.ActiveTab()
	if tab.Title != "Todo" || tab.Content != "Buy milk\neggs" {
		t.Fatalf("unexpected tab: %+v", tab)
	}
	if !tab.HasUnsavedChanges {
		t.Fatal("edits should mark the tab dirty")
	}

	exec(t, l, `/set line1\nline2`)
	tab, _ = m.ActiveTab()
	if tab.Content != "line1\nline2" {
		t.Fatalf("content=%q", tab.Content)
	}
}

func TestExecute_TabsSwitchMoveClose(t *testing.T) {
	l, m, out, _ := newTestLoop(t)
	first := m.ActiveTabID()

	exec(t, l, "/new")
	exec(t, l, "/title Second")
	exec(t, l, "/switch 1")
	if m.ActiveTabID() != first {
		t.Fatal("/switch 1 should activate the first tab")
	}

	out.Reset()
	exec(t, l, "/tabs")
	if !strings.Contains(out.String(), "* 1. Untitled") || !strings.Contains(out.String(), "2. Second ●") {
		t.Fatalf("unexpected /tabs output:\n%s", out.String())
	}

	exec(t, l, "/move 1 2")
	if m.Tabs()[1].ID != first {
		t.Fatal("/move 1 2 should move the first tab to the end")
	}

	exec(t, l, "/close 1")
	if n := len(m.Tabs()); n != 1 {
		t.Fatalf("tabs=%d, want 1", n)
	}
	notes := m.Notes()
	if len(notes) != 1 || notes[0].Title != "Second" {
		t.Fatalf("closing a dirty tab should save it first: %+v", notes)
	}
}

func TestExecute_Errors(t *testing.T) {
	l, _, _, _ := newTestLoop(t)
	ctx := context.Background()

	cases := map[string]string{
		"/bogus":       "Unknown command",
		"/switch 9":    "out of range",
		"/switch nope": "not found",
		"/move 1":      "Usage",
		"/open nope":   "not found",
		"/import":      "Usage",
	}
	for line, want := range cases {
		_, err := l.Execute(ctx, line)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("Execute(%q) err=%v, want containing %q", line, err, want)
		}
	}
}

func TestExecute_SaveNotesOpen(t *testing.T) {
	l, m, out, store := newTestLoop(t)
	id := m.ActiveTabID()

	exec(t, l, "/title Groceries")
	exec(t, l, "/save")
	if _, ok, _ := store.Get(context.Background(), id); !ok {
		t.Fatal("/save should persist the note")
	}

	exec(t, l, "/close")
	if len(m.Tabs()) != 0 {
		t.Fatal("closing the only tab should leave none")
	}

	out.Reset()
	exec(t, l, "/notes")
	if !strings.Contains(out.String(), id) || !strings.Contains(out.String(), "Groceries") {
		t.Fatalf("/notes output:\n%s", out.String())
	}

	exec(t, l, "/open "+id)
	if m.ActiveTabID() != id {
		t.Fatal("/open should reopen the saved note")
	}
}

func TestExecute_ExportAndImport(t *testing.T) {
	l, m, _, _ := newTestLoop(t)
	exec(t, l, "/title Todo")
	exec(t, l, "Buy milk")
	exec(t, l, "/export")

	data, err := os.ReadFile(filepath.Join(l.exportDir, "Todo.txt"))
	if err != nil {
		t.Fatalf("export missing: %v", err)
	}
	if string(data) != "Todo\n\nBuy milk" {
		t.Fatalf("export=%q", string(data))
	}

	src := filepath.Join(t.TempDir(), "ideas.md")
	if err := os.WriteFile(src, []byte("ship it"), 0o644); err != nil {
		t.Fatal(err)
	}
	exec(t, l, "/import "+src)
	tab, _ := m.ActiveTab()
	if tab.Title != "ideas" || tab.Content != "ship it" {
		t.Fatalf("imported tab=%+v", tab)
	}

	exec(t, l, "/save")
	exec(t, l, "/export all")
	all, err := os.ReadFile(filepath.Join(l.exportDir, "all-notes.txt"))
	if err != nil {
		t.Fatalf("export all missing: %v", err)
	}
	if !strings.Contains(string(all), "--- ideas ---") {
		t.Fatalf("export all=%q", string(all))
	}
}

func TestExecute_Lang(t *testing.T) {
	l, _, out, _ := newTestLoop(t)
	defer i18n.Init("en")

	exec(t, l, "/lang zh-CN")
	if l.locale.Locale() != "zh-CN" {
		t.Fatalf("locale=%q", l.locale.Locale())
	}
	data, err := os.ReadFile(filepath.Join(l.projectDir, ".tabnotes", "config.json"))
	if err != nil || !strings.Contains(string(data), "zh-CN") {
		t.Fatalf("project config not updated: %v %q", err, string(data))
	}
	if !strings.Contains(out.String(), "zh-CN") {
		t.Fatalf("output=%q", out.String())
	}
}

func TestRun_ScriptedSession(t *testing.T) {
	l, m, out, store := newTestLoop(t)
	script := "/title Script\nhello\n/stats\n/bogus\n/exit\n/title ignored\n"

	if err := l.Run(context.Background(), NewBasicLineInput(strings.NewReader(script), out)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	text := out.String()
	for _, want := range []string{"1 tab(s) open", "[1/1] Untitled> ", "1 words", "Unknown command: /bogus", "Bye."} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}

	tab, _ := m.ActiveTab()
	if tab.Title != "Script" {
		t.Fatal("commands after /exit should not run")
	}
	// 退出时保存 / quitting flushes dirty tabs
	if note, ok, _ := store.Get(context.Background(), tab.ID); !ok || note.Content != "hello" {
		t.Fatalf("note not flushed on exit: %+v ok=%v", note, ok)
	}
}

func TestRun_EOFFlushes(t *testing.T) {
	l, m, out, store := newTestLoop(t)
	if err := l.Run(context.Background(), NewBasicLineInput(strings.NewReader("last words"), out)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	id := m.ActiveTabID()
	if note, ok, _ := store.Get(context.Background(), id); !ok || note.Content != "last words" {
		t.Fatalf("EOF should flush: %+v ok=%v", note, ok)
	}
}

func TestBasicLineInput(t *testing.T) {
	var out bytes.Buffer
	in := NewBasicLineInput(strings.NewReader("one\r\ntwo"), &out)
	line, err := in.ReadLine("> ")
	if err != nil || line != "one" {
		t.Fatalf("first line=%q err=%v", line, err)
	}
	line, err = in.ReadLine("> ")
	if err != nil || line != "two" {
		t.Fatalf("second line=%q err=%v", line, err)
	}
	if _, err := in.ReadLine("> "); err == nil {
		t.Fatal("expected EOF")
	}
	if out.String() != "> > > " {
		t.Fatalf("prompts=%q", out.String())
	}
}
