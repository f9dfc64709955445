// Package config loads and validates mirror configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MIRROR_URL or
// MIRROR_HTTP_TIMEOUT_SECONDS.
const EnvPrefix = "MIRROR"

// Config captures all mirror configuration knobs loaded via Viper.
type Config struct {
	URL             string        `mapstructure:"url"`
	BaseFolder      string        `mapstructure:"baseFolder"`
	CacheFolder     string        `mapstructure:"cacheFolder"`
	LogFolder       string        `mapstructure:"logFolder"`
	RetryCount      int           `mapstructure:"retryCount"`
	ParallelCount   int           `mapstructure:"parallelCount"`
	CacheExpireDays int           `mapstructure:"cacheExpireDate"`
	HTTP            HTTPConfig    `mapstructure:"http"`
	Logging         LoggingConfig `mapstructure:"logging"`
	Server          ServerConfig  `mapstructure:"server"`
}

// HTTPConfig configures the upstream HTTP clients.
type HTTPConfig struct {
	TimeoutSeconds     int     `mapstructure:"timeout_seconds"`
	UserAgent          string  `mapstructure:"user_agent"`
	RateLimitPerSecond float64 `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
}

// LoggingConfig toggles zap development features and log outputs.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	// ToFile additionally writes <logFolder>/<runTimestamp>.log.
	ToFile bool `mapstructure:"to_file"`
}

// ServerConfig controls the optional status server. An empty Listen address
// disables it.
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith builds a Config using v, which may already carry bound flags.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.URL = strings.TrimSpace(cfg.URL)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("url", "")
	v.SetDefault("baseFolder", "./mirror")
	v.SetDefault("cacheFolder", "./cache")
	v.SetDefault("logFolder", "./logs")
	v.SetDefault("retryCount", 3)
	v.SetDefault("parallelCount", 4)
	v.SetDefault("cacheExpireDate", 1)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "maven-tree-mirror/0.1")
	v.SetDefault("http.rate_limit_per_second", 0)
	v.SetDefault("http.rate_limit_burst", 1)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.to_file", true)
	v.SetDefault("server.listen", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL, got %q", c.URL)
	}
	if strings.TrimSpace(c.BaseFolder) == "" {
		return fmt.Errorf("baseFolder is required")
	}
	if strings.TrimSpace(c.CacheFolder) == "" {
		return fmt.Errorf("cacheFolder is required")
	}
	if strings.TrimSpace(c.LogFolder) == "" {
		return fmt.Errorf("logFolder is required")
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retryCount must be >= 0")
	}
	if c.ParallelCount < 1 {
		return fmt.Errorf("parallelCount must be >= 1")
	}
	if c.CacheExpireDays < 0 {
		return fmt.Errorf("cacheExpireDate must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RateLimitPerSecond < 0 {
		return fmt.Errorf("http.rate_limit_per_second must be >= 0")
	}
	return nil
}

// CacheTTL converts cacheExpireDate (days) into a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheExpireDays) * 24 * time.Hour
}

// RequestTimeout is the per-request HTTP timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
