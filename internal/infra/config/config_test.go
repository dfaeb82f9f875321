package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  address: ":9090"
risk:
  highThreshold: 0.8
  mediumThreshold: 0.5
sites:
  - id: jh-01
    name: Jharia Pit 4
    region: JHARKHAND
monitor:
  interval: 1m
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("HTTP_ADDRESS", ":7070")
	t.Setenv("VALKEY_ADDR", "localhost:6379")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://ops.example.com, https://hq.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.HTTP.Address)
	require.Equal(t, 0.8, cfg.Risk.HighThreshold)
	require.Equal(t, time.Minute, cfg.Monitor.Interval)
	require.Equal(t, "jh-01", cfg.Sites[0].ID)
	require.True(t, cfg.Valkey.Enabled)
	require.Equal(t, []string{"https://ops.example.com", "https://hq.example.com"}, cfg.HTTP.AllowedOrigins)
	// untouched defaults survive the file
	require.Equal(t, 80.0, cfg.Risk.Confidence.FallbackCeiling)
}

func TestDefaultRetryNeverReplaysWrites(t *testing.T) {
	cfg := defaultConfig()
	require.ElementsMatch(t, []string{
		"/api/v1/evaluations",
		"/api/v1/alerts/*/acknowledge",
		"/api/v1/alerts/*/resolve",
	}, cfg.HTTP.Retry.Exclude)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]func(*Config){
		"inverted thresholds": func(c *Config) { c.Risk.MediumThreshold = 0.9 },
		"high above one":      func(c *Config) { c.Risk.HighThreshold = 1.5 },
		"duplicate site": func(c *Config) {
			c.Sites = []SiteConfig{{ID: "a"}, {ID: "a"}}
		},
		"empty site id":         func(c *Config) { c.Sites = []SiteConfig{{Name: "x"}} },
		"bucket missing":        func(c *Config) { c.Storage.Endpoint = "r2.example.com" },
		"valkey without addr":   func(c *Config) { c.Valkey.Enabled = true },
		"zero monitor interval": func(c *Config) { c.Monitor.Interval = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
	require.NoError(t, defaultConfig().Validate())
}
