package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ErrClosed 存储已关闭 / ErrClosed is returned after Close
var ErrClosed = errors.New("store is closed")

// Opener 打开底层存储句柄 / Opener opens the underlying store handle
type Opener func() (Store, error)

// Lazy 延迟打开存储：首次使用时打开并缓存句柄，并发首次调用只会打开一次；
// 打开失败不缓存，下次调用重试。
// Lazy opens the store on first use and memoizes the handle. Concurrent first
// callers share a single open; a failed open is not memoized.
type Lazy struct {
	open  Opener
	group singleflight.Group
	opens atomic.Int64

	mu     sync.Mutex
	store  Store
	closed bool
}

var _ Store = (*Lazy)(nil)

func NewLazy(open Opener) *Lazy {
	return &Lazy{open: open}
}

// Opens 底层 Opener 成功调用的次数 / Opens reports how many handles were opened
func (l *Lazy) Opens() int64 {
	return l.opens.Load()
}

// Handle 返回（必要时打开）底层存储 / Handle returns the underlying store, opening it if needed
func (l *Lazy) Handle() (Store, error) {
	if s, err := l.current(); s != nil || err != nil {
		return s, err
	}
	v, err, _ := l.group.Do("open", func() (any, error) {
		if s, err := l.current(); s != nil || err != nil {
			return s, err
		}
		s, err := l.open()
		if err != nil {
			return nil, err
		}
		l.opens.Add(1)

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			_ = s.Close()
			return nil, ErrClosed
		}
		l.store = s
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Store), nil
}

func (l *Lazy) current() (Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	return l.store, nil
}

func (l *Lazy) Put(ctx context.Context, note Note) error {
	s, err := l.Handle()
	if err != nil {
		return err
	}
	return s.Put(ctx, note)
}

func (l *Lazy) Get(ctx context.Context, id string) (Note, bool, error) {
	s, err := l.Handle()
	if err != nil {
		return Note{}, false, err
	}
	return s.Get(ctx, id)
}

func (l *Lazy) GetAll(ctx context.Context) ([]Note, error) {
	s, err := l.Handle()
	if err != nil {
		return nil, err
	}
	return s.GetAll(ctx)
}

func (l *Lazy) Delete(ctx context.Context, id string) error {
	s, err := l.Handle()
	if err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

func (l *Lazy) Clear(ctx context.Context) error {
	s, err := l.Handle()
	if err != nil {
		return err
	}
	return s.Clear(ctx)
}

// Close 关闭已打开的句柄；未打开时仅标记关闭
// Close closes the opened handle, if any, and rejects further use
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}
