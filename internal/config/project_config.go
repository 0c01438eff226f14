package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectDirName 项目级配置目录 / Project-level config directory name
const ProjectDirName = ".tabnotes"

// InitProjectConfigScaffold 在 projectDir 下初始化项目级配置模板（./.tabnotes/config.json），返回路径；
// 已存在时保持不变。
// InitProjectConfigScaffold writes a project-level config scaffold
// (./.tabnotes/config.json) under projectDir and returns its path; an existing file is left alone.
func InitProjectConfigScaffold(projectDir string) (string, error) {
	if strings.TrimSpace(projectDir) == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get current working directory: %w", err)
		}
		projectDir = cwd
	}

	dir := filepath.Join(projectDir, ProjectDirName)
	path := filepath.Join(dir, "config.json")

	// 若项目已经有配置，则尊重用户现有配置。
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("project config path is a directory: %s", path)
		}
		return path, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat project config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", ProjectDirName, err)
	}

	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write project config: %w", err)
	}
	return path, nil
}

// WriteUILang 将 ui.lang 写入项目配置（./.tabnotes/config.json）；目录不存在则创建
// WriteUILang writes ui.lang to the project config (./.tabnotes/config.json); creates the dir if needed
func WriteUILang(projectDir, lang string) error {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return errors.New("lang is empty")
	}
	dir := filepath.Join(strings.TrimSpace(projectDir), ProjectDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", ProjectDirName, err)
	}
	path := filepath.Join(dir, "config.json")
	var out map[string]any
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(stripJSONComments(data), &out); err != nil {
			out = nil
		}
	}
	if out == nil {
		out = make(map[string]any)
	}
	uiMap, _ := out["ui"].(map[string]any)
	if uiMap == nil {
		uiMap = make(map[string]any)
	}
	uiMap["lang"] = lang
	out["ui"] = uiMap
	data, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
