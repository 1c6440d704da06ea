// Package store persists local client state: config.json and session.json in
// the per-user config directory.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	DefaultAPIURL       = "http://localhost:8080"
	DefaultCacheVersion = "v1"
	DefaultDebounceMs   = 500
)

type GlobalConfig struct {
	// APIURL is the REST API origin.
	APIURL string `json:"apiUrl,omitempty"`
	// WSURL overrides the presence endpoint. Derived from APIURL when empty.
	WSURL string `json:"wsUrl,omitempty"`

	// CacheVersion names the offline cache generation; bumping it drops old entries.
	CacheVersion string `json:"cacheVersion,omitempty"`
	// Offline serves GET requests from the cache only.
	Offline bool `json:"offline,omitempty"`

	DebounceMs int `json:"debounceMs,omitempty"`
	// FlushOnClose sends pending edits when an editing session ends (default true).
	FlushOnClose *bool `json:"flushOnClose,omitempty"`

	TUI *TUIConfig `json:"tui,omitempty"`
}

type TUIConfig struct {
	// Profile is the appearance profile id ("default", "mono").
	Profile string `json:"profile,omitempty"`
	// Preview renders text widgets as markdown in the side pane.
	Preview *bool `json:"preview,omitempty"`
}

func (c *GlobalConfig) APIBase() string {
	if c == nil || strings.TrimSpace(c.APIURL) == "" {
		return DefaultAPIURL
	}
	return strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
}

func (c *GlobalConfig) CacheGeneration() string {
	if c == nil || strings.TrimSpace(c.CacheVersion) == "" {
		return DefaultCacheVersion
	}
	return strings.TrimSpace(c.CacheVersion)
}

func (c *GlobalConfig) Debounce() time.Duration {
	if c == nil || c.DebounceMs <= 0 {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

func (c *GlobalConfig) ShouldFlushOnClose() bool {
	if c == nil || c.FlushOnClose == nil {
		return true
	}
	return *c.FlushOnClose
}

func (c *GlobalConfig) ShowPreview() bool {
	if c == nil || c.TUI == nil || c.TUI.Preview == nil {
		return true
	}
	return *c.TUI.Preview
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.bookcraft).
	if v := strings.TrimSpace(os.Getenv("BOOKCRAFT_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".bookcraft"), nil
}

func ConfigPath() (string, error) {
	return inConfigDir("config.json")
}

// CachePath is the offline cache database.
func CachePath() (string, error) {
	return inConfigDir("cache.sqlite")
}

func inConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	var cfg GlobalConfig
	if err := readJSON(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	return &cfg, nil
}

var writeMu sync.Mutex

func SaveConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return writeJSON(path, "config.json.*.tmp", cfg, 0o644)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func writeJSON(path, tmpPattern string, v any, perm os.FileMode) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, tmpPattern, path, b, perm)
}

// atomicWriteFile writes through a uniquely named temp file and renames it
// into place so concurrent writers never leave a torn file.
func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SetConfigValue sets one config key from its string form, as used by
// `bookcraft config set`.
func SetConfigValue(cfg *GlobalConfig, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "apiUrl":
		cfg.APIURL = value
	case "wsUrl":
		cfg.WSURL = value
	case "cacheVersion":
		cfg.CacheVersion = value
	case "offline":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		cfg.Offline = b
	case "debounceMs":
		var n int
		if err := json.Unmarshal([]byte(value), &n); err != nil || n < 0 {
			return errors.New("debounceMs must be a non-negative integer")
		}
		cfg.DebounceMs = n
	case "flushOnClose":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		cfg.FlushOnClose = &b
	case "tui.profile":
		if cfg.TUI == nil {
			cfg.TUI = &TUIConfig{}
		}
		cfg.TUI.Profile = value
	case "tui.preview":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		if cfg.TUI == nil {
			cfg.TUI = &TUIConfig{}
		}
		cfg.TUI.Preview = &b
	default:
		return errors.New("unknown config key: " + key)
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, errors.New("expected a boolean, got " + s)
}
