package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore 进程内存储，用于测试与 memory 驱动
// MemoryStore keeps notes in process memory; used by tests and the memory driver
type MemoryStore struct {
	mu    sync.RWMutex
	notes map[string]Note
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{notes: map[string]Note{}}
}

func (s *MemoryStore) Put(ctx context.Context, note Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if note.ID == "" {
		return fmt.Errorf("put note: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[note.ID] = note
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Note, bool, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[id]
	return note, ok, nil
}

func (s *MemoryStore) GetAll(ctx context.Context) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, id)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = map[string]Note{}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
