package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrRead 读取导入文件失败 / ErrRead marks a failed import read
var ErrRead = errors.New("read import")

// ReadFile 读取整个文件为文本；失败时包装 ErrRead，不重试
// ReadFile returns the whole file as text; failures wrap ErrRead and are not retried
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	return string(data), nil
}

// Read 从 r 读取全部文本 / Read returns all text from r
func Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRead, err)
	}
	return string(data), nil
}
