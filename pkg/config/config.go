// Package config loads the client configuration from an optional YAML file
// and POKEDEX_* environment variables. A loaded Config is never mutated.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete client configuration.
type Config struct {
	BaseURL        string        `yaml:"base_url" validate:"required,url,startswith=http"`
	UserAgent      string        `yaml:"user_agent" validate:"required,min=3"`
	Timeout        time.Duration `yaml:"timeout" validate:"min=100ms,max=5m"`
	PageSize       int           `yaml:"page_size" validate:"min=1,max=100"`
	MaxConcurrency int           `yaml:"max_concurrency" validate:"min=0,max=64"`

	Log    LogConfig    `yaml:"log"`
	Redis  RedisConfig  `yaml:"redis"`
	Colors ColorConfig  `yaml:"colors"`
	Server ServerConfig `yaml:"server"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level" validate:"loglevel"`
	Pretty bool   `yaml:"pretty"`
}

// RedisConfig enables the revalidation cache and fair-use gate.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"min=0,max=15"`
}

// ColorConfig is the fallback colour pair of detail views.
type ColorConfig struct {
	Background string `yaml:"background" validate:"required,hexcolor"`
	Text       string `yaml:"text" validate:"required,hexcolor"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		BaseURL:        "https://pokeapi.co/api/v2/",
		UserAgent:      "pokedex-client/0.1.0",
		Timeout:        30 * time.Second,
		PageSize:       25,
		MaxConcurrency: 0,
		Log: LogConfig{
			Level: "info",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Colors: ColorConfig{
			Background: "#e0e0e0",
			Text:       "#212121",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overrides cfg from POKEDEX_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("POKEDEX_BASE_URL", &cfg.BaseURL)
	str("POKEDEX_USER_AGENT", &cfg.UserAgent)
	if v, ok := lookup("POKEDEX_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("POKEDEX_TIMEOUT: %w", err))
		} else {
			cfg.Timeout = d
		}
	}
	integer("POKEDEX_PAGE_SIZE", &cfg.PageSize)
	integer("POKEDEX_MAX_CONCURRENCY", &cfg.MaxConcurrency)

	str("POKEDEX_LOG_LEVEL", &cfg.Log.Level)
	boolean("POKEDEX_LOG_PRETTY", &cfg.Log.Pretty)

	boolean("POKEDEX_REDIS_ENABLED", &cfg.Redis.Enabled)
	str("POKEDEX_REDIS_ADDR", &cfg.Redis.Addr)
	str("POKEDEX_REDIS_PASSWORD", &cfg.Redis.Password)
	integer("POKEDEX_REDIS_DB", &cfg.Redis.DB)

	str("POKEDEX_COLOR_BACKGROUND", &cfg.Colors.Background)
	str("POKEDEX_COLOR_TEXT", &cfg.Colors.Text)

	str("POKEDEX_SERVER_ADDR", &cfg.Server.Addr)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

// Normalize lower-cases the log level and ensures the base URL ends in a
// slash.
func (c *Config) Normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
}
