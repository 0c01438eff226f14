package storage

import (
	"sort"
	"time"
)

// SchemaVersion 笔记存储的结构版本（暂无迁移）
// SchemaVersion is the persisted layout version of the notes store (no migrations yet)
const SchemaVersion = 1

// StoreName 笔记存储名 / Logical name of the notes store
const StoreName = "notes"

// Note 持久化的笔记实体
// Note is the persisted note entity keyed by ID
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayTitle 返回标题，空标题时返回 "Untitled"
// DisplayTitle returns the title or "Untitled" when it is empty
func (n Note) DisplayTitle() string {
	if n.Title == "" {
		return "Untitled"
	}
	return n.Title
}

// SortNotes 返回按 UpdatedAt 倒序的副本，相同时间按 ID 升序
// SortNotes returns a copy ordered by UpdatedAt descending, ties broken by ID ascending
func SortNotes(notes []Note) []Note {
	out := append([]Note(nil), notes...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
