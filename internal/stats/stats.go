// Package stats 统计笔记的词数、行数、字符数与 token 数。
// Package stats counts words, lines, characters and tokens of a note.
package stats

import (
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding 默认 BPE 编码 / Default BPE encoding
const DefaultEncoding = "cl100k_base"

// Summary 一段文本的统计结果 / Summary holds the counts for one text
type Summary struct {
	Words   int  `json:"words"`
	Lines   int  `json:"lines"`
	Chars   int  `json:"chars"`
	Tokens  int  `json:"tokens"`
	Precise bool `json:"precise_tokens"`
}

// Counter token 计数器：BPE 可用时精确计数，否则启发式估算
// Counter counts tokens precisely once the BPE encoding is loaded, heuristically before that
type Counter struct {
	encodingName string
	encoder      atomic.Pointer[tiktoken.Tiktoken]
	loadOnce     sync.Once
	loadErr      error
	mu           sync.Mutex
}

// NewCounter 创建计数器，不触发加载 / NewCounter creates a Counter without loading the encoding
func NewCounter(encodingName string) *Counter {
	if strings.TrimSpace(encodingName) == "" {
		encodingName = DefaultEncoding
	}
	return &Counter{encodingName: encodingName}
}

// Load 同步加载 BPE 编码；离线环境可能失败，失败后继续使用启发式
// Load fetches the BPE encoding synchronously; offline environments may fail and keep the heuristic
func (c *Counter) Load() error {
	c.loadOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encodingName)
		if err != nil {
			c.loadErr = err
			return
		}
		c.encoder.Store(enc)
	})
	return c.loadErr
}

// LoadAsync 后台加载编码 / LoadAsync loads the encoding in the background
func (c *Counter) LoadAsync() {
	go func() { _ = c.Load() }()
}

// IsPrecise 返回是否使用精确计数 / IsPrecise reports whether BPE counting is active
func (c *Counter) IsPrecise() bool {
	return c.encoder.Load() != nil
}

// EncodingName 返回编码名称 / EncodingName returns the encoding name
func (c *Counter) EncodingName() string {
	return c.encodingName
}

// CountTokens 计算文本 token 数 / CountTokens counts tokens in text
func (c *Counter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	enc := c.encoder.Load()
	if enc == nil {
		return heuristicTokenCount(text)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(enc.Encode(text, nil, nil))
}

// Compute 统计文本 / Compute returns the full summary for text
func (c *Counter) Compute(text string) Summary {
	return Summary{
		Words:   CountWords(text),
		Lines:   CountLines(text),
		Chars:   utf8.RuneCountInString(text),
		Tokens:  c.CountTokens(text),
		Precise: c.IsPrecise(),
	}
}

// CountWords 以空白分词；每个 CJK 字符单独计为一个词
// CountWords splits on whitespace and counts every CJK character as its own word
func CountWords(text string) int {
	words := 0
	for _, field := range strings.Fields(text) {
		inWord := false
		for _, r := range field {
			if isCJK(r) {
				words++
				inWord = false
				continue
			}
			if !inWord {
				words++
				inWord = true
			}
		}
	}
	return words
}

// CountLines 空文本为 0 行 / CountLines is 0 for empty text
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	return strings.Count(text, "\n") + 1
}

// heuristicTokenCount 启发式 token 估算
// heuristicTokenCount estimates tokens for mixed CJK/English text
func heuristicTokenCount(text string) int {
	if text == "" {
		return 0
	}
	// CJK 字符通常 1-2 token/字, 英文约 4 chars/token
	cjkCount := 0
	asciiCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		} else {
			asciiCount++
		}
	}
	estimate := int(float64(cjkCount)*1.5 + float64(asciiCount)*0.25)
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified
		(r >= 0x3400 && r <= 0x4DBF) || // CJK Extension A
		(r >= 0x3040 && r <= 0x30FF) || // Hiragana / Katakana
		(r >= 0xAC00 && r <= 0xD7AF) // Korean Hangul
}
