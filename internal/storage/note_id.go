package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewNoteID 生成新的笔记 ID：note_<毫秒时间戳>_<随机后缀>
// NewNoteID generates a new note ID: note_<unix millis>_<random suffix>
func NewNoteID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("note_%d_%s", time.Now().UTC().UnixMilli(), suffix)
}
