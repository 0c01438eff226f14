package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type flakyStore struct {
	*MemoryStore
	failures int
	puts     int
}

func (f *flakyStore) Put(ctx context.Context, note Note) error {
	f.puts++
	if f.puts <= f.failures {
		return errors.New("database is locked")
	}
	return f.MemoryStore.Put(ctx, note)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestRetryStore_RecoversFromTransientFailure(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 2}
	store := NewRetryStore(inner, fastPolicy(3), quietLogger())

	if err := store.Put(context.Background(), Note{ID: "n1", Content: "x"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if inner.puts != 3 {
		t.Fatalf("puts=%d, want 3", inner.puts)
	}
	if _, found, _ := store.Get(context.Background(), "n1"); !found {
		t.Fatalf("note should be stored after retry")
	}
}

func TestRetryStore_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 10}
	store := NewRetryStore(inner, fastPolicy(3), quietLogger())

	err := store.Put(context.Background(), Note{ID: "n1"})
	if err == nil {
		t.Fatalf("Put should fail after exhausting retries")
	}
	if inner.puts != 3 {
		t.Fatalf("puts=%d, want 3", inner.puts)
	}
}

func TestRetryStore_StopsOnCancel(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 10}
	store := NewRetryStore(inner, RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := store.Put(ctx, Note{ID: "n1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if inner.puts != 1 {
		t.Fatalf("puts=%d, want 1", inner.puts)
	}
}

func TestRetryStore_BackoffIsCapped(t *testing.T) {
	store := NewRetryStore(NewMemoryStore(), RetryPolicy{MaxAttempts: 10, InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}, quietLogger())
	cases := map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 300 * time.Millisecond,
		8: 300 * time.Millisecond,
	}
	for attempt, want := range cases {
		if got := store.backoff(attempt); got != want {
			t.Fatalf("backoff(%d)=%v, want %v", attempt, got, want)
		}
	}
}
