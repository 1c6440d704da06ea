package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSaveConfig_ConcurrentWriters_DoesNotCorruptConfig(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("BOOKCRAFT_CONFIG_DIR", cfgDir)

	if err := SaveConfig(&GlobalConfig{APIURL: "https://seed.example.com"}); err != nil {
		t.Fatalf("SaveConfig(seed): %v", err)
	}

	const n = 32
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg, err := LoadConfig()
			if err != nil {
				errCh <- err
				return
			}
			cfg.CacheVersion = fmt.Sprintf("v%d", i)
			if err := SaveConfig(cfg); err != nil {
				errCh <- err
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent SaveConfig: %v", err)
	}
	if t.Failed() {
		return
	}

	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config.json: %v", err)
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("config.json corrupted/unparseable: %v\nraw:\n%s", err, string(raw))
	}
	if cfg.APIURL != "https://seed.example.com" {
		t.Fatalf("expected seed apiUrl to survive, got %q", cfg.APIURL)
	}

	ents, err := os.ReadDir(cfgDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range ents {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Setenv("BOOKCRAFT_CONFIG_DIR", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIBase() != DefaultAPIURL {
		t.Fatalf("unexpected default api %q", cfg.APIBase())
	}
	if cfg.Debounce() != 500*time.Millisecond {
		t.Fatalf("unexpected default debounce %v", cfg.Debounce())
	}
	if !cfg.ShouldFlushOnClose() {
		t.Fatalf("expected flushOnClose default true")
	}
	if cfg.CacheGeneration() != "v1" {
		t.Fatalf("unexpected cache generation %q", cfg.CacheGeneration())
	}
}

func TestSetConfigValue(t *testing.T) {
	cfg := &GlobalConfig{}
	for k, v := range map[string]string{
		"apiUrl":       "https://api.example.com/",
		"debounceMs":   "250",
		"flushOnClose": "false",
		"offline":      "yes",
		"tui.preview":  "off",
	} {
		if err := SetConfigValue(cfg, k, v); err != nil {
			t.Fatalf("SetConfigValue(%s): %v", k, err)
		}
	}
	if cfg.APIBase() != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBase())
	}
	if cfg.Debounce() != 250*time.Millisecond || cfg.ShouldFlushOnClose() || !cfg.Offline || cfg.ShowPreview() {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := SetConfigValue(cfg, "debounceMs", "soon"); err == nil {
		t.Fatalf("expected invalid debounce to fail")
	}
	if err := SetConfigValue(cfg, "nope", "x"); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
}
