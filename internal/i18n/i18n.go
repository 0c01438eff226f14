// Package i18n 提供 TUI 与 REPL 的中英文文案。
// Package i18n holds the en / zh-CN message catalogs shown by the TUI and REPL.
package i18n

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
)

// FallbackLocale 缺少翻译时使用的 locale / Locale used when a key has no translation
const FallbackLocale = "en"

var catalogs = map[string]map[string]string{
	"en":    EnMessages,
	"zh-CN": ZhCNMessages,
}

// I18n 绑定一个 locale 的只读翻译器
// I18n is a read-only translator bound to one locale
type I18n struct {
	locale   string
	messages map[string]string
}

var global atomic.Pointer[I18n]

// Global 返回全局实例；未初始化时按环境检测 locale
// Global returns the shared translator, detecting the locale on first use
func Global() *I18n {
	if i := global.Load(); i != nil {
		return i
	}
	global.CompareAndSwap(nil, New(""))
	return global.Load()
}

// Init 替换全局实例，运行中切换语言也走这里
// Init replaces the shared translator; /lang switches go through here too
func Init(locale string) {
	global.Store(New(locale))
}

// T 全局翻译快捷函数 / T translates with the shared translator
func T(key string, args ...any) string {
	return Global().T(key, args...)
}

// New 创建翻译器；不支持的 locale 退回英文
// New returns a translator for locale; unsupported locales fall back to English
func New(locale string) *I18n {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DetectLocale()
	}
	locale = normalizeLocale(locale)
	messages, ok := catalogs[locale]
	if !ok {
		locale, messages = FallbackLocale, catalogs[FallbackLocale]
	}
	return &I18n{locale: locale, messages: messages}
}

func (i *I18n) lookup(key string) (string, bool) {
	if tmpl, ok := i.messages[key]; ok {
		return tmpl, true
	}
	tmpl, ok := catalogs[FallbackLocale][key]
	return tmpl, ok
}

// T 翻译 key，带参数时按 fmt 格式化；未知 key 原样返回
// T translates key, formatting args with fmt; unknown keys are returned as is
func (i *I18n) T(key string, args ...any) string {
	tmpl, ok := i.lookup(key)
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

// Has reports whether key is translated in this locale or the fallback.
func (i *I18n) Has(key string) bool {
	_, ok := i.lookup(key)
	return ok
}

// Locale 返回当前 locale / Locale returns the active locale
func (i *I18n) Locale() string {
	return i.locale
}

// Supported 返回可用的 locale / Supported lists the locales with a catalog
func Supported() []string {
	return []string{"en", "zh-CN"}
}

// IsSupported 判断输入（如 "zh_CN.UTF-8"）是否对应已有目录
// IsSupported reports whether locale (e.g. "zh_CN.UTF-8") maps to a catalog
func IsSupported(locale string) bool {
	_, ok := catalogs[normalizeLocale(locale)]
	return ok
}

// DetectLocale 依次读取 TABNOTES_LANG、LANG、LC_ALL、LC_MESSAGES
// DetectLocale reads TABNOTES_LANG, then LANG, LC_ALL and LC_MESSAGES
func DetectLocale() string {
	for _, env := range []string{"TABNOTES_LANG", "LANG", "LC_ALL", "LC_MESSAGES"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return normalizeLocale(v)
		}
	}
	return FallbackLocale
}

// normalizeLocale 把 "zh_CN.UTF-8" 之类的值映射到目录名，无法识别时原样返回
func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return FallbackLocale
	}
	if idx := strings.IndexAny(s, ".@"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.ReplaceAll(s, "_", "-")
	switch lower := strings.ToLower(s); {
	case strings.HasPrefix(lower, "zh"):
		return "zh-CN"
	case lower == "c" || lower == "posix" || strings.HasPrefix(lower, "en"):
		return "en"
	}
	return s
}
