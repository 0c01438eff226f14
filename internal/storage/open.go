package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// OpenOptions 选择后端与数据目录 / OpenOptions selects the backend and its data directory
type OpenOptions struct {
	Driver  string
	BaseDir string
	DBName  string
}

// Location 返回驱动对应的数据库路径 / Location returns the on-disk path for the driver
func (o OpenOptions) Location() string {
	switch normalizeDriver(o.Driver) {
	case DriverBadger:
		return filepath.Join(o.BaseDir, "badger")
	case DriverMemory:
		return ""
	default:
		name := strings.TrimSpace(o.DBName)
		if name == "" {
			name = "notes.db"
		}
		return filepath.Join(o.BaseDir, name)
	}
}

// Open 返回按需打开的存储；真正打开发生在首次读写时
// Open returns a lazily opened store; the handle is opened on first use
func Open(opts OpenOptions) (*Lazy, error) {
	driver := normalizeDriver(opts.Driver)
	location := opts.Location()
	switch driver {
	case DriverSQLite:
		return NewLazy(func() (Store, error) { return NewSQLiteStore(location) }), nil
	case DriverBadger:
		return NewLazy(func() (Store, error) { return NewBadgerStore(location) }), nil
	case DriverMemory:
		return NewLazy(func() (Store, error) { return NewMemoryStore(), nil }), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

func normalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		return DriverSQLite
	}
	return driver
}
