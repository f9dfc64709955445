package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
url: https://repo1.example.org/maven2/
baseFolder: /srv/mirror
cacheFolder: /srv/cache
logFolder: /srv/logs
retryCount: 5
parallelCount: 16
cacheExpireDate: 3
http:
  timeout_seconds: 45
  user_agent: real-agent
  rate_limit_per_second: 2.5
  rate_limit_burst: 4
logging:
  development: false
  level: debug
  to_file: false
server:
  listen: ":9090"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.URL != "https://repo1.example.org/maven2/" {
		t.Fatalf("unexpected url %q", cfg.URL)
	}
	if cfg.BaseFolder != "/srv/mirror" || cfg.CacheFolder != "/srv/cache" || cfg.LogFolder != "/srv/logs" {
		t.Fatalf("expected folder overrides to apply: %+v", cfg)
	}
	if cfg.RetryCount != 5 || cfg.ParallelCount != 16 {
		t.Fatalf("expected retry/parallel overrides, got %d/%d", cfg.RetryCount, cfg.ParallelCount)
	}
	if got := cfg.CacheTTL(); got != 72*time.Hour {
		t.Fatalf("expected cache TTL 72h, got %v", got)
	}
	if got := cfg.RequestTimeout(); got != 45*time.Second {
		t.Fatalf("expected request timeout 45s, got %v", got)
	}
	if cfg.HTTP.UserAgent != "real-agent" || cfg.HTTP.RateLimitPerSecond != 2.5 || cfg.HTTP.RateLimitBurst != 4 {
		t.Fatalf("expected http overrides: %+v", cfg.HTTP)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" || cfg.Logging.ToFile {
		t.Fatalf("expected logging overrides: %+v", cfg.Logging)
	}
	if cfg.Server.Listen != ":9090" {
		t.Fatalf("expected listen override, got %q", cfg.Server.Listen)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("url", "https://repo.example/")
	cfg, err := LoadWith(v, "")
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if cfg.BaseFolder != "./mirror" || cfg.CacheFolder != "./cache" || cfg.LogFolder != "./logs" {
		t.Fatalf("unexpected folder defaults: %+v", cfg)
	}
	if cfg.RetryCount != 3 || cfg.ParallelCount != 4 || cfg.CacheExpireDays != 1 {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
	if !cfg.Logging.Development || cfg.Logging.Level != "info" || !cfg.Logging.ToFile {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if cfg.Server.Listen != "" {
		t.Fatalf("status server should be disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MIRROR_URL", "https://env.example/repo/")
	t.Setenv("MIRROR_PARALLELCOUNT", "9")
	t.Setenv("MIRROR_HTTP_TIMEOUT_SECONDS", "12")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.URL != "https://env.example/repo/" {
		t.Fatalf("expected env url, got %q", cfg.URL)
	}
	if cfg.ParallelCount != 9 {
		t.Fatalf("expected env parallelCount 9, got %d", cfg.ParallelCount)
	}
	if cfg.HTTP.TimeoutSeconds != 12 {
		t.Fatalf("expected env timeout 12, got %d", cfg.HTTP.TimeoutSeconds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		URL:           "https://repo.example/",
		BaseFolder:    "mirror",
		CacheFolder:   "cache",
		LogFolder:     "logs",
		RetryCount:    1,
		ParallelCount: 1,
		HTTP:          HTTPConfig{TimeoutSeconds: 10},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing url", func(c *Config) { c.URL = "" }, "url is required"},
		{"relative url", func(c *Config) { c.URL = "repo/maven2" }, "absolute http(s)"},
		{"ftp url", func(c *Config) { c.URL = "ftp://repo.example/" }, "absolute http(s)"},
		{"missing base folder", func(c *Config) { c.BaseFolder = " " }, "baseFolder"},
		{"missing cache folder", func(c *Config) { c.CacheFolder = "" }, "cacheFolder"},
		{"missing log folder", func(c *Config) { c.LogFolder = "" }, "logFolder"},
		{"negative retries", func(c *Config) { c.RetryCount = -1 }, "retryCount"},
		{"zero parallelism", func(c *Config) { c.ParallelCount = 0 }, "parallelCount"},
		{"negative ttl", func(c *Config) { c.CacheExpireDays = -1 }, "cacheExpireDate"},
		{"invalid timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, "http.timeout_seconds"},
		{"negative rate", func(c *Config) { c.HTTP.RateLimitPerSecond = -1 }, "http.rate_limit_per_second"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
