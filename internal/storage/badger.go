package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerNotePrefix = StoreName + ":"
	badgerSchemaKey  = "meta:schema_version"
)

// BadgerStore 基于 Badger 的嵌入式 KV 笔记存储，值为 JSON
// BadgerStore implements Store on an embedded Badger KV database with JSON values
type BadgerStore struct {
	db  *badger.DB
	dir string
}

// NewBadgerStore 打开（或创建）Badger 目录
// NewBadgerStore opens (or creates) a Badger directory
func NewBadgerStore(dir string) (*BadgerStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("badger dir is empty")
	}
	opts := badger.DefaultOptions(dir).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	store := &BadgerStore{db: db, dir: dir}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func (s *BadgerStore) ensureSchema() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerSchemaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set([]byte(badgerSchemaKey), []byte(strconv.Itoa(SchemaVersion)))
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := strconv.Atoi(string(val))
			if err != nil {
				return fmt.Errorf("parse schema version %q: %w", val, err)
			}
			if v > SchemaVersion {
				return fmt.Errorf("notes schema version %d is newer than supported %d", v, SchemaVersion)
			}
			return nil
		})
	})
}

func badgerKey(id string) []byte {
	return []byte(badgerNotePrefix + id)
}

// Close 关闭数据库 / Close the database
func (s *BadgerStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) Put(ctx context.Context, note Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(note.ID) == "" {
		return fmt.Errorf("put note: empty id")
	}
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal note %s: %w", note.ID, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(note.ID), data)
	})
	if err != nil {
		return fmt.Errorf("put note %s: %w", note.ID, err)
	}
	return nil
}

func (s *BadgerStore) Get(ctx context.Context, id string) (Note, bool, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, false, err
	}
	var (
		note  Note
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &note)
		})
	})
	if err != nil {
		return Note{}, false, fmt.Errorf("get note %s: %w", id, err)
	}
	return note, found, nil
}

func (s *BadgerStore) GetAll(ctx context.Context) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Note
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerNotePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var note Note
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &note)
			}); err != nil {
				return err
			}
			out = append(out, note)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete note %s: %w", id, err)
	}
	return nil
}

func (s *BadgerStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropPrefix([]byte(badgerNotePrefix)); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	return nil
}
