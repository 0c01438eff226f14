// Package transfer 负责笔记的文本导出、导入读取与 Markdown 备份。
// Package transfer renders notes to plain-text exports, reads imported files
// and writes/reads Markdown backups with YAML frontmatter.
package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tabnotes/internal/storage"
)

// AllNotesFileName 全部导出的文件名 / File name used by ExportAll
const AllNotesFileName = "all-notes.txt"

const untitled = "Untitled"

// FormatNote 单条导出格式："{title}\n\n{content}"
// FormatNote renders one note as "{title}\n\n{content}"
func FormatNote(title, content string) string {
	return title + "\n\n" + content
}

// NoteFileName 导出文件名："{title 或 Untitled}.txt"，路径分隔符替换为 "-"
// NoteFileName returns "{title or Untitled}.txt" with path separators replaced
func NoteFileName(title string) string {
	name := title
	if name == "" {
		name = untitled
	}
	name = strings.NewReplacer("/", "-", "\\", "-", "\x00", "").Replace(name)
	return name + ".txt"
}

// FormatAll 拼接全部笔记，每条为 "--- {title} ---\n\n{content}\n\n"，条目间以 "\n" 分隔
// FormatAll renders every note as "--- {title} ---\n\n{content}\n\n", joined by "\n"
func FormatAll(notes []storage.Note) string {
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = fmt.Sprintf("--- %s ---\n\n%s\n\n", n.DisplayTitle(), n.Content)
	}
	return strings.Join(parts, "\n")
}

// ExportNote 将单条笔记写入 dir，返回文件路径
// ExportNote writes one note into dir and returns the file path
func ExportNote(dir, title, content string) (string, error) {
	return writeExport(dir, NoteFileName(title), FormatNote(title, content))
}

// ExportAll 将全部笔记写入 dir/all-notes.txt，返回文件路径
// ExportAll writes every note into dir/all-notes.txt and returns the file path
func ExportAll(dir string, notes []storage.Note) (string, error) {
	return writeExport(dir, AllNotesFileName, FormatAll(notes))
}

func writeExport(dir, name, body string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write export %s: %w", path, err)
	}
	return path, nil
}
