package tabs

import (
	"path/filepath"
	"strings"
)

// ImportedNoteTitle 无法推导标题时使用 / Fallback title for imports
const ImportedNoteTitle = "Imported Note"

// ImportTitle 推导导入笔记的标题：去掉扩展名的文件名，其次内容首行，最后 "Imported Note"
// ImportTitle derives an imported note's title: the file name without its
// extension, else the content's first line, else "Imported Note".
func ImportTitle(filename, content string) string {
	if name := strings.TrimSpace(filename); name != "" {
		base := filepath.Base(name)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if base = strings.TrimSpace(base); base != "" && base != "." {
			return base
		}
	}
	first, _, _ := strings.Cut(content, "\n")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return ImportedNoteTitle
}
