package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// AIKeyEnv overrides or supplies the AI provider key.
const AIKeyEnv = "PHNEWS_AI_KEY"

type HTTPConfig struct {
	UserAgent         string  `yaml:"user_agent"`
	Timeout           string  `yaml:"timeout"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"` // 0 disables the limiter
	Burst             int     `yaml:"burst"`
	BypassCloudflare  bool    `yaml:"bypass_cloudflare"`
}

type ImagesConfig struct {
	CacheSize int    `yaml:"cache_size"`
	CacheTTL  string `yaml:"cache_ttl"`
}

type LogConfig struct {
	Level       string   `yaml:"level"`
	Format      string   `yaml:"format"`
	OutputPaths []string `yaml:"output_paths"`
}

type AIConfig struct {
	Provider string `yaml:"provider"` // "claude" or "openai"
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

type Config struct {
	HostURL         string       `yaml:"host_url"`
	RefreshInterval string       `yaml:"refresh_interval"`
	Retention       string       `yaml:"retention"`
	HTTP            HTTPConfig   `yaml:"http"`
	Images          ImagesConfig `yaml:"images"`
	Log             LogConfig    `yaml:"log"`
	AI              *AIConfig    `yaml:"ai,omitempty"`
}

// AIEnabled returns true if AI is configured with a valid API key.
func (c *Config) AIEnabled() bool {
	return c.AI != nil && c.AIKey() != ""
}

// AIKey returns the resolved API key (config or env var).
func (c *Config) AIKey() string {
	if c.AI != nil && c.AI.APIKey != "" {
		return c.AI.APIKey
	}
	return os.Getenv(AIKeyEnv)
}

// RefreshDuration is how long a frontpage snapshot stays fresh.
func (c *Config) RefreshDuration() time.Duration {
	return durationOr(c.RefreshInterval, time.Minute)
}

func (c *Config) RetentionDuration() time.Duration {
	d, err := parseRetention(c.Retention)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

func (c *Config) HTTPTimeout() time.Duration {
	return durationOr(c.HTTP.Timeout, 30*time.Second)
}

// RequestRate is the request rate limit per second; 0 means unlimited.
func (c *Config) RequestRate() float64 {
	if c.HTTP.RequestsPerSecond == nil {
		return 2
	}
	return *c.HTTP.RequestsPerSecond
}

func (c *Config) ImageCacheTTL() time.Duration {
	return durationOr(c.Images.CacheTTL, time.Hour)
}

func (c *Config) ImageCacheSize() int {
	if c.Images.CacheSize <= 0 {
		return 256
	}
	return c.Images.CacheSize
}

func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// parseRetention accepts Go durations and a whole-day "Nd" form.
func parseRetention(s string) (time.Duration, error) {
	if s == "" {
		return 7 * 24 * time.Hour, nil
	}
	if strings.HasSuffix(s, "d") {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid retention %q", s)
	}
	return d, nil
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "phnews", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "phnews", "phnews.db")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "phnews", "phnews.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path, or the default path when empty. Keys the
// file leaves out keep their embedded defaults. A missing file is created
// from the defaults.
func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults still apply.
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	// Without dereferencing, a pointer the user set (even to zero) is kept.
	if err := mergo.Merge(&cfg, *defaults, mergo.WithoutDereference); err != nil {
		return nil, fmt.Errorf("merging defaults: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	u, err := url.Parse(cfg.HostURL)
	if err != nil {
		return fmt.Errorf("host_url: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("host_url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host_url: missing host in %q", cfg.HostURL)
	}

	for key, v := range map[string]string{
		"refresh_interval": cfg.RefreshInterval,
		"http.timeout":     cfg.HTTP.Timeout,
		"images.cache_ttl": cfg.Images.CacheTTL,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: invalid duration %q", key, v)
		}
	}
	if _, err := parseRetention(cfg.Retention); err != nil {
		return fmt.Errorf("retention: %w", err)
	}
	if cfg.RequestRate() < 0 {
		return fmt.Errorf("http.requests_per_second: must not be negative")
	}

	if cfg.AI != nil {
		switch cfg.AI.Provider {
		case "claude", "openai":
		default:
			return fmt.Errorf("ai.provider: unknown provider %q (valid: claude, openai)", cfg.AI.Provider)
		}
	}
	return nil
}
