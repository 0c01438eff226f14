package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"tabnotes/internal/storage"
)

// DefaultBackupPattern 恢复时匹配的文件 / Files matched by ReadBackup by default
const DefaultBackupPattern = "**/*.md"

type frontmatter struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	CreatedAt string `yaml:"created_at,omitempty"`
	UpdatedAt string `yaml:"updated_at,omitempty"`
}

// MarshalMarkdown 将笔记编码为带 YAML frontmatter 的 Markdown
// MarshalMarkdown encodes a note as Markdown with YAML frontmatter
func MarshalMarkdown(n storage.Note) ([]byte, error) {
	fm := frontmatter{ID: n.ID, Title: n.Title}
	if !n.CreatedAt.IsZero() {
		fm.CreatedAt = n.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !n.UpdatedAt.IsZero() {
		fm.UpdatedAt = n.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fm); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// UnmarshalMarkdown 解析 MarshalMarkdown 的输出；没有 frontmatter 时整个文件作为内容
// UnmarshalMarkdown parses MarshalMarkdown output; without frontmatter the whole file is content
func UnmarshalMarkdown(data []byte) (storage.Note, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return storage.Note{Content: string(data)}, nil
	}
	rest := data[len("---\n"):]
	var yamlData, content []byte
	if bytes.HasPrefix(rest, []byte("---\n")) {
		content = rest[len("---\n"):]
	} else {
		idx := bytes.Index(rest, []byte("\n---\n"))
		if idx < 0 {
			return storage.Note{}, errors.New("frontmatter started but no closing delimiter found")
		}
		yamlData = rest[:idx+1]
		content = rest[idx+len("\n---\n"):]
	}

	var fm frontmatter
	if err := yaml.Unmarshal(yamlData, &fm); err != nil {
		return storage.Note{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	n := storage.Note{ID: fm.ID, Title: fm.Title, Content: string(content)}
	var err error
	if n.CreatedAt, err = parseStamp(fm.CreatedAt); err != nil {
		return storage.Note{}, fmt.Errorf("parse created_at: %w", err)
	}
	if n.UpdatedAt, err = parseStamp(fm.UpdatedAt); err != nil {
		return storage.Note{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return n, nil
}

func parseStamp(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// WriteBackup 每条笔记写一个 <id>.md，返回写入数量
// WriteBackup writes one <id>.md file per note and returns the count written
func WriteBackup(dir string, notes []storage.Note) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create backup directory: %w", err)
	}
	written := 0
	for _, n := range notes {
		data, err := MarshalMarkdown(n)
		if err != nil {
			return written, fmt.Errorf("encode note %s: %w", n.ID, err)
		}
		name := strings.NewReplacer("/", "-", "\\", "-").Replace(n.ID) + ".md"
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return written, fmt.Errorf("write backup %s: %w", name, err)
		}
		written++
	}
	return written, nil
}

// ReadBackup 读取 dir 下匹配 pattern (doublestar) 的备份文件。
// 缺少 id 的文件使用新 ID，缺少标题时使用文件名。
// ReadBackup parses every file under dir matching the doublestar pattern.
// Files without an id get a fresh one; files without a title use their name.
func ReadBackup(dir, pattern string) ([]storage.Note, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultBackupPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid backup pattern %q", pattern)
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("glob backup %s: %w", dir, err)
	}
	sort.Strings(matches)

	notes := make([]storage.Note, 0, len(matches))
	for _, rel := range matches {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		text, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		n, err := UnmarshalMarkdown([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
		if n.ID == "" {
			n.ID = storage.NewNoteID()
		}
		if n.Title == "" {
			base := filepath.Base(rel)
			n.Title = strings.TrimSuffix(base, filepath.Ext(base))
		}
		notes = append(notes, n)
	}
	return notes, nil
}
