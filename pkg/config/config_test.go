package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pokedex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(&cfg))
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "https://pokeapi.co/api/v2/", cfg.BaseURL)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
base_url: http://localhost:9000/api/v2
user_agent: pokedex-test/2.0
timeout: 5s
page_size: 10
max_concurrency: 4
log:
  level: DEBUG
  pretty: true
redis:
  enabled: true
  addr: redis:6379
  db: 2
colors:
  background: "#123456"
  text: "#fff"
server:
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/api/v2/", cfg.BaseURL)
	assert.Equal(t, "pokedex-test/2.0", cfg.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 10, cfg.PageSize)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "#123456", cfg.Colors.Background)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "page_size: 50\n"))
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, Default().UserAgent, cfg.UserAgent)
	assert.Equal(t, Default().Colors, cfg.Colors)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "page_size: [1, 2\n"))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POKEDEX_PAGE_SIZE", "12")
	t.Setenv("POKEDEX_TIMEOUT", "2s")
	t.Setenv("POKEDEX_LOG_PRETTY", "true")
	t.Setenv("POKEDEX_REDIS_ENABLED", "1")
	t.Setenv("POKEDEX_REDIS_ADDR", "cache:6380")
	t.Setenv("POKEDEX_USER_AGENT", "env-agent/1.0")

	cfg, err := Load(writeFile(t, "page_size: 50\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.PageSize, "environment wins over file")
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.True(t, cfg.Log.Pretty)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "env-agent/1.0", cfg.UserAgent)
}

func TestApplyEnv_InvalidValues(t *testing.T) {
	env := map[string]string{
		"POKEDEX_PAGE_SIZE":     "many",
		"POKEDEX_TIMEOUT":       "soon",
		"POKEDEX_REDIS_ENABLED": "maybe",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	err := applyEnv(&cfg, lookup)
	require.Error(t, err)
	assert.ErrorContains(t, err, "POKEDEX_PAGE_SIZE")
	assert.ErrorContains(t, err, "POKEDEX_TIMEOUT")
	assert.ErrorContains(t, err, "POKEDEX_REDIS_ENABLED")
	assert.Equal(t, Default().PageSize, cfg.PageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{name: "bad base url", mutate: func(c *Config) { c.BaseURL = "pokeapi" }, wantField: "BaseURL"},
		{name: "non http base url", mutate: func(c *Config) { c.BaseURL = "ftp://pokeapi.co/" }, wantField: "BaseURL"},
		{name: "empty user agent", mutate: func(c *Config) { c.UserAgent = "" }, wantField: "UserAgent"},
		{name: "page size too large", mutate: func(c *Config) { c.PageSize = 1000 }, wantField: "PageSize"},
		{name: "page size zero", mutate: func(c *Config) { c.PageSize = 0 }, wantField: "PageSize"},
		{name: "timeout too short", mutate: func(c *Config) { c.Timeout = time.Millisecond }, wantField: "Timeout"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantField: "Log.Level"},
		{name: "bad colour", mutate: func(c *Config) { c.Colors.Text = "black" }, wantField: "Colors.Text"},
		{name: "bad redis addr", mutate: func(c *Config) { c.Redis.Addr = "no-port" }, wantField: "Redis.Addr"},
		{name: "redis enabled without addr", mutate: func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, wantField: "Redis.Addr"},
		{name: "redis db out of range", mutate: func(c *Config) { c.Redis.DB = 16 }, wantField: "Redis.DB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := Validate(&cfg)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)

			fields := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.wantField)
			assert.Contains(t, err.Error(), tt.wantField)
		})
	}

	assert.Error(t, Validate(nil))
}
