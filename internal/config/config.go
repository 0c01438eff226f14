package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type StorageConfig struct {
	// Driver 存储后端：sqlite | badger | memory
	// Driver selects the storage backend: sqlite | badger | memory
	Driver  string `json:"driver"`
	BaseDir string `json:"base_dir"`
	DBName  string `json:"db_name"`
}

type EditorConfig struct {
	AutosaveMS int `json:"autosave_ms"`
}

type RetryConfig struct {
	MaxAttempts      int `json:"max_attempts"`
	InitialBackoffMS int `json:"initial_backoff_ms"`
	MaxBackoffMS     int `json:"max_backoff_ms"`
}

type ExportConfig struct {
	Dir string `json:"dir"`
}

type InboxConfig struct {
	// Dir 为空时不启用收件箱监听 / An empty Dir disables the inbox watcher
	Dir      string `json:"dir"`
	Pattern  string `json:"pattern"`
	Consume  bool   `json:"consume"`
	SettleMS int    `json:"settle_ms"`
}

type UIConfig struct {
	Lang    string `json:"lang"`
	Preview bool   `json:"preview"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

type Config struct {
	Storage StorageConfig `json:"storage"`
	Editor  EditorConfig  `json:"editor"`
	Retry   RetryConfig   `json:"retry"`
	Export  ExportConfig  `json:"export"`
	Inbox   InboxConfig   `json:"inbox"`
	UI      UIConfig      `json:"ui"`
	Log     LogConfig     `json:"log"`
}

type fileInboxConfig struct {
	Dir      *string `json:"dir"`
	Pattern  *string `json:"pattern"`
	Consume  *bool   `json:"consume"`
	SettleMS *int    `json:"settle_ms"`
}

type fileUIConfig struct {
	Lang    *string `json:"lang"`
	Preview *bool   `json:"preview"`
}

type fileConfig struct {
	Storage *StorageConfig   `json:"storage"`
	Editor  *EditorConfig    `json:"editor"`
	Retry   *RetryConfig     `json:"retry"`
	Export  *ExportConfig    `json:"export"`
	Inbox   *fileInboxConfig `json:"inbox"`
	UI      *fileUIConfig    `json:"ui"`
	Log     *LogConfig       `json:"log"`
}

func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver:  DefaultStorageDriver,
			BaseDir: "~/.tabnotes",
			DBName:  "notes.db",
		},
		Editor: EditorConfig{AutosaveMS: DefaultAutosaveMS},
		Retry: RetryConfig{
			MaxAttempts:      DefaultRetryMaxAttempts,
			InitialBackoffMS: DefaultRetryInitialBackoffMS,
			MaxBackoffMS:     DefaultRetryMaxBackoffMS,
		},
		Inbox: InboxConfig{
			Pattern:  DefaultInboxPattern,
			SettleMS: DefaultInboxSettleMS,
		},
		UI:  UIConfig{Lang: "en"},
		Log: LogConfig{Level: "info"},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("TABNOTES_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".tabnotes", "config.json"),
		filepath.Join(home, ".tabnotes", "config.jsonc"),
	}
}

func findProjectConfigPath() string {
	candidates := []string{
		"tabnotes.config.json",
		"tabnotes.config.jsonc",
		".tabnotes/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Storage != nil {
		cfg.Storage = mergeStorage(cfg.Storage, *fc.Storage)
	}
	if fc.Editor != nil && fc.Editor.AutosaveMS > 0 {
		cfg.Editor.AutosaveMS = fc.Editor.AutosaveMS
	}
	if fc.Retry != nil {
		cfg.Retry = mergeRetry(cfg.Retry, *fc.Retry)
	}
	if fc.Export != nil && strings.TrimSpace(fc.Export.Dir) != "" {
		cfg.Export.Dir = fc.Export.Dir
	}
	if fc.Inbox != nil {
		if fc.Inbox.Dir != nil {
			cfg.Inbox.Dir = *fc.Inbox.Dir
		}
		if fc.Inbox.Pattern != nil {
			cfg.Inbox.Pattern = *fc.Inbox.Pattern
		}
		if fc.Inbox.Consume != nil {
			cfg.Inbox.Consume = *fc.Inbox.Consume
		}
		if fc.Inbox.SettleMS != nil {
			cfg.Inbox.SettleMS = *fc.Inbox.SettleMS
		}
	}
	if fc.UI != nil {
		if fc.UI.Lang != nil {
			cfg.UI.Lang = *fc.UI.Lang
		}
		if fc.UI.Preview != nil {
			cfg.UI.Preview = *fc.UI.Preview
		}
	}
	if fc.Log != nil {
		cfg.Log = mergeLog(cfg.Log, *fc.Log)
	}
}

func mergeStorage(base StorageConfig, override StorageConfig) StorageConfig {
	if strings.TrimSpace(override.Driver) != "" {
		base.Driver = override.Driver
	}
	if strings.TrimSpace(override.BaseDir) != "" {
		base.BaseDir = override.BaseDir
	}
	if strings.TrimSpace(override.DBName) != "" {
		base.DBName = override.DBName
	}
	return base
}

func mergeRetry(base RetryConfig, override RetryConfig) RetryConfig {
	if override.MaxAttempts > 0 {
		base.MaxAttempts = override.MaxAttempts
	}
	if override.InitialBackoffMS > 0 {
		base.InitialBackoffMS = override.InitialBackoffMS
	}
	if override.MaxBackoffMS > 0 {
		base.MaxBackoffMS = override.MaxBackoffMS
	}
	return base
}

func mergeLog(base LogConfig, override LogConfig) LogConfig {
	if strings.TrimSpace(override.Level) != "" {
		base.Level = override.Level
	}
	if strings.TrimSpace(override.File) != "" {
		base.File = override.File
	}
	return base
}

func normalize(cfg *Config) error {
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DefaultStorageDriver
	}
	switch cfg.Storage.Driver {
	case "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("unsupported storage.driver %q (want sqlite, badger or memory)", cfg.Storage.Driver)
	}
	if strings.TrimSpace(cfg.Storage.BaseDir) == "" {
		cfg.Storage.BaseDir = Default().Storage.BaseDir
	}
	baseDir, err := expandPath(cfg.Storage.BaseDir)
	if err != nil {
		return fmt.Errorf("expand storage.base_dir: %w", err)
	}
	cfg.Storage.BaseDir = baseDir
	if strings.TrimSpace(cfg.Storage.DBName) == "" {
		cfg.Storage.DBName = Default().Storage.DBName
	}

	if cfg.Editor.AutosaveMS <= 0 {
		cfg.Editor.AutosaveMS = DefaultAutosaveMS
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultRetryMaxAttempts
	}
	if cfg.Retry.InitialBackoffMS <= 0 {
		cfg.Retry.InitialBackoffMS = DefaultRetryInitialBackoffMS
	}
	if cfg.Retry.MaxBackoffMS < cfg.Retry.InitialBackoffMS {
		cfg.Retry.MaxBackoffMS = cfg.Retry.InitialBackoffMS
	}

	if strings.TrimSpace(cfg.Export.Dir) != "" {
		if cfg.Export.Dir, err = expandPath(cfg.Export.Dir); err != nil {
			return fmt.Errorf("expand export.dir: %w", err)
		}
	}

	if strings.TrimSpace(cfg.Inbox.Dir) != "" {
		if cfg.Inbox.Dir, err = expandPath(cfg.Inbox.Dir); err != nil {
			return fmt.Errorf("expand inbox.dir: %w", err)
		}
	}
	if strings.TrimSpace(cfg.Inbox.Pattern) == "" {
		cfg.Inbox.Pattern = DefaultInboxPattern
	}
	if cfg.Inbox.SettleMS <= 0 {
		cfg.Inbox.SettleMS = DefaultInboxSettleMS
	}

	cfg.UI.Lang = strings.TrimSpace(cfg.UI.Lang)
	if cfg.UI.Lang == "" {
		cfg.UI.Lang = "en"
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "":
		cfg.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log.level %q", cfg.Log.Level)
	}
	if strings.TrimSpace(cfg.Log.File) != "" {
		if cfg.Log.File, err = expandPath(cfg.Log.File); err != nil {
			return fmt.Errorf("expand log.file: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("TABNOTES_STORAGE_DRIVER")); v != "" {
		cfg.Storage.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("TABNOTES_BASE_DIR")); v != "" {
		cfg.Storage.BaseDir = v
	}
	if v := strings.TrimSpace(os.Getenv("TABNOTES_AUTOSAVE_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid TABNOTES_AUTOSAVE_MS: %q", v)
		}
		cfg.Editor.AutosaveMS = n
	}
	if v := strings.TrimSpace(os.Getenv("TABNOTES_EXPORT_DIR")); v != "" {
		cfg.Export.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("TABNOTES_INBOX_DIR")); v != "" {
		cfg.Inbox.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("TABNOTES_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("TABNOTES_LANG")); v != "" {
		cfg.UI.Lang = v
	}

	return cfg, normalize(&cfg)
}

// ExportDir 导出目录，未配置时为 <base_dir>/exports
// ExportDir returns export.dir, defaulting to <base_dir>/exports
func (c Config) ExportDir() string {
	if c.Export.Dir != "" {
		return c.Export.Dir
	}
	return filepath.Join(c.Storage.BaseDir, "exports")
}

// LogFile 日志文件，未配置时为 <base_dir>/logs/tabnotes.log
// LogFile returns log.file, defaulting to <base_dir>/logs/tabnotes.log
func (c Config) LogFile() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Storage.BaseDir, "logs", "tabnotes.log")
}

// AutosaveDelay 自动保存去抖间隔 / AutosaveDelay is the debounce interval for edits
func (c Config) AutosaveDelay() time.Duration {
	return time.Duration(c.Editor.AutosaveMS) * time.Millisecond
}

// InboxSettle 收件箱事件稳定时间 / InboxSettle is how long an inbox file must stay quiet before import
func (c Config) InboxSettle() time.Duration {
	return time.Duration(c.Inbox.SettleMS) * time.Millisecond
}

func (c Config) InitialBackoff() time.Duration {
	return time.Duration(c.Retry.InitialBackoffMS) * time.Millisecond
}

func (c Config) MaxBackoff() time.Duration {
	return time.Duration(c.Retry.MaxBackoffMS) * time.Millisecond
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}
	return out.Bytes()
}
