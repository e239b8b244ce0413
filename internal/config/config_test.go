package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if cfg.HostURL != "https://www.producthunt.com/" {
		t.Errorf("unexpected default host_url %q", cfg.HostURL)
	}
	if cfg.RefreshInterval == "" {
		t.Error("expected refresh_interval to be set")
	}
	if cfg.AI != nil {
		t.Error("expected AI to be disabled by default")
	}
	if err := validate(cfg); err != nil {
		t.Errorf("embedded defaults do not validate: %v", err)
	}
}

func TestRefreshDuration(t *testing.T) {
	cfg := &Config{RefreshInterval: "30m"}
	d := cfg.RefreshDuration()
	if d.Minutes() != 30 {
		t.Errorf("expected 30m, got %v", d)
	}

	cfg.RefreshInterval = "invalid"
	d = cfg.RefreshDuration()
	if d != time.Minute {
		t.Errorf("expected 1m default for invalid interval, got %v", d)
	}
}

func TestRetentionDuration(t *testing.T) {
	tests := []struct {
		input    string
		wantDays int
	}{
		{"90d", 90},
		{"30d", 30},
		{"720h", 30},
		{"", 7},        // default
		{"invalid", 7}, // fallback to default
	}
	for _, tt := range tests {
		cfg := &Config{Retention: tt.input}
		got := cfg.RetentionDuration()
		wantHours := float64(tt.wantDays * 24)
		if got.Hours() != wantHours {
			t.Errorf("RetentionDuration(%q) = %v, want %dd", tt.input, got, tt.wantDays)
		}
	}
}

func TestHTTPAndImageDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, time.Hour, cfg.ImageCacheTTL())
	assert.Equal(t, 256, cfg.ImageCacheSize())

	cfg = &Config{
		HTTP:   HTTPConfig{Timeout: "5s"},
		Images: ImagesConfig{CacheSize: 10, CacheTTL: "10m"},
	}
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout())
	assert.Equal(t, 10*time.Minute, cfg.ImageCacheTTL())
	assert.Equal(t, 10, cfg.ImageCacheSize())
}

func TestLoadFromFileMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `refresh_interval: 2h
http:
  user_agent: phnews-test
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "2h", cfg.RefreshInterval)
	assert.Equal(t, "phnews-test", cfg.HTTP.UserAgent)
	// Keys the user left out come from the embedded defaults.
	assert.Equal(t, "https://www.producthunt.com/", cfg.HostURL)
	assert.Equal(t, "30s", cfg.HTTP.Timeout)
	assert.Equal(t, 256, cfg.Images.CacheSize)
	assert.Equal(t, "7d", cfg.Retention)
	assert.Equal(t, 2.0, cfg.RequestRate())
}

func TestLoadKeepsZeroRequestRate(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `http:
  requests_per_second: 0
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.NotNil(t, cfg.HTTP.RequestsPerSecond)
	assert.Zero(t, cfg.RequestRate())
	assert.Equal(t, "30s", cfg.HTTP.Timeout)

	assert.Equal(t, 2.0, (&Config{}).RequestRate())
}

func TestLoadNonexistentWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "config.yaml")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "https://www.producthunt.com/", cfg.HostURL)

	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "defaults should be written on first run")
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("host_url: ftp://example.com/\n"), 0o644))

	_, err := Load(cfgPath)
	assert.ErrorContains(t, err, "host_url")
}

func TestAIKey(t *testing.T) {
	t.Setenv(AIKeyEnv, "from-env")

	cfg := &Config{}
	assert.False(t, cfg.AIEnabled())

	cfg.AI = &AIConfig{Provider: "claude"}
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, "from-env", cfg.AIKey())

	cfg.AI.APIKey = "from-file"
	assert.Equal(t, "from-file", cfg.AIKey())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{HostURL: "https://www.producthunt.com/", RefreshInterval: "1m", Retention: "7d"}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"accepts https", func(*Config) {}, ""},
		{"accepts http", func(c *Config) { c.HostURL = "http://localhost:8080/" }, ""},
		{"rejects relative host", func(c *Config) { c.HostURL = "/posts" }, "host_url"},
		{"rejects file scheme", func(c *Config) { c.HostURL = "file:///etc/passwd" }, "host_url"},
		{"rejects bad refresh", func(c *Config) { c.RefreshInterval = "soon" }, "refresh_interval"},
		{"rejects bad timeout", func(c *Config) { c.HTTP.Timeout = "x" }, "http.timeout"},
		{"rejects bad retention", func(c *Config) { c.Retention = "forever" }, "retention"},
		{"rejects negative rate", func(c *Config) { rps := -1.0; c.HTTP.RequestsPerSecond = &rps }, "requests_per_second"},
		{"rejects unknown provider", func(c *Config) { c.AI = &AIConfig{Provider: "gemini"} }, "ai.provider"},
		{"accepts openai", func(c *Config) { c.AI = &AIConfig{Provider: "openai"} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
