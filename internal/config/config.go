package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/lumen/internal/imgapi"
)

// Config holds the client settings Lumen reads at startup.
type Config struct {
	APIBind              string
	LogFile              string
	PageSize             int
	ThumbnailConcurrency int
	TaskPollInterval     time.Duration
	BoardPollInterval    time.Duration
	HealthPollInterval   time.Duration
	Timeouts             imgapi.Budgets
}

const (
	defaultConfigPath = "~/.config/lumen/config.toml"
	defaultLogFile    = "~/.local/state/lumen/lumen.log"
	defaultAPIBind    = "127.0.0.1:8000"
	defaultPageSize   = 100

	defaultTaskPoll   = 2 * time.Second
	defaultBoardPoll  = 5 * time.Second
	defaultHealthPoll = 10 * time.Second
)

type rawConfig struct {
	APIBind              string `toml:"api_bind"`
	LogFile              string `toml:"log_file"`
	PageSize             int    `toml:"page_size"`
	ThumbnailConcurrency int    `toml:"thumbnail_concurrency"`
	Poll                 struct {
		TaskMS     int64 `toml:"task_ms"`
		AllTasksMS int64 `toml:"all_tasks_ms"`
		HealthMS   int64 `toml:"health_ms"`
	} `toml:"poll"`
	Timeouts map[string]int64 `toml:"timeouts"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBind:            defaultAPIBind,
		LogFile:            mustExpand(defaultLogFile),
		PageSize:           defaultPageSize,
		TaskPollInterval:   defaultTaskPoll,
		BoardPollInterval:  defaultBoardPoll,
		HealthPollInterval: defaultHealthPoll,
		Timeouts:           imgapi.DefaultBudgets(),
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if bind := strings.TrimSpace(raw.APIBind); bind != "" {
		cfg.APIBind = bind
	}
	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}
	if raw.PageSize > 0 {
		cfg.PageSize = raw.PageSize
	}
	if raw.ThumbnailConcurrency > 0 {
		cfg.ThumbnailConcurrency = raw.ThumbnailConcurrency
	}
	cfg.TaskPollInterval = millis(raw.Poll.TaskMS, defaultTaskPoll)
	cfg.BoardPollInterval = millis(raw.Poll.AllTasksMS, defaultBoardPoll)
	cfg.HealthPollInterval = millis(raw.Poll.HealthMS, defaultHealthPoll)

	for name, ms := range raw.Timeouts {
		kind, ok := kindByName(name)
		if !ok {
			return Config{}, fmt.Errorf("parse config: unknown timeout %q", name)
		}
		if ms > 0 {
			cfg.Timeouts[kind] = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg, nil
}

// Budgets returns a copy of the request budget table.
func (c Config) Budgets() imgapi.Budgets {
	out := imgapi.DefaultBudgets()
	for kind, d := range c.Timeouts {
		if d > 0 {
			out[kind] = d
		}
	}
	return out
}

func kindByName(name string) (imgapi.Kind, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, kind := range imgapi.Kinds() {
		if kind.String() == name {
			return kind, true
		}
	}
	return 0, false
}

func millis(ms int64, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
