package storage

import "context"

// Store 笔记持久化接口，支持多后端 (SQLite / Badger / Memory)
// Store is the note persistence interface supporting multiple backends
type Store interface {
	// Put 按 ID 插入或覆盖 / Put inserts or overwrites a note by ID
	Put(ctx context.Context, note Note) error
	// Get 读取单条笔记；不存在时 found=false 且 err=nil
	// Get reads one note; found is false with a nil error when the ID is absent
	Get(ctx context.Context, id string) (note Note, found bool, err error)
	// GetAll 返回全部笔记，顺序不保证 / GetAll returns every note in no particular order
	GetAll(ctx context.Context) ([]Note, error)
	// Delete 删除单条；不存在时为空操作 / Delete removes one note; absent IDs are a no-op
	Delete(ctx context.Context, id string) error
	// Clear 删除全部笔记 / Clear removes all notes
	Clear(ctx context.Context) error

	// 生命周期 / Lifecycle
	Close() error
}
