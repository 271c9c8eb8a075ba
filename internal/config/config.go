// ABOUTME: Process configuration read from the environment and an optional .env file.
// ABOUTME: Also builds the storage backend and Strava credentials it describes.

package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/harperreed/ultratrainer/internal/storage"
	"github.com/harperreed/ultratrainer/internal/strava"
)

// Backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the immutable process configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "postgres".
	Backend string `env:"ULTRATRAINER_BACKEND" envDefault:"sqlite"`

	// DataDir holds ultratrainer.db for the sqlite backend. Supports ~ expansion.
	// Defaults to $XDG_DATA_HOME/ultratrainer.
	DataDir     string        `env:"ULTRATRAINER_DATA_DIR"`
	DatabaseURL string        `env:"ULTRATRAINER_DATABASE_URL"`
	ToolTimeout time.Duration `env:"ULTRATRAINER_TOOL_TIMEOUT" envDefault:"30s"`
	LogLevel    string        `env:"ULTRATRAINER_LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"ULTRATRAINER_LOG_FORMAT" envDefault:"console"`

	// Listen is the TCP address of the line protocol; HTTPAddr, when set,
	// also serves MCP over streamable HTTP.
	Listen   string `env:"ULTRATRAINER_LISTEN" envDefault:"127.0.0.1:7433"`
	HTTPAddr string `env:"ULTRATRAINER_HTTP_ADDR"`

	Strava Strava
}

// Strava holds gateway settings. Either AccessToken or the refresh triple is used.
type Strava struct {
	APIBase        string        `env:"STRAVA_API_BASE" envDefault:"https://www.strava.com/api/v3"`
	AccessToken    string        `env:"STRAVA_ACCESS_TOKEN"`
	ClientID       string        `env:"STRAVA_CLIENT_ID"`
	ClientSecret   string        `env:"STRAVA_CLIENT_SECRET"`
	RefreshToken   string        `env:"STRAVA_REFRESH_TOKEN"`
	TokenURL       string        `env:"STRAVA_TOKEN_URL" envDefault:"https://www.strava.com/oauth/token"`
	MaxRetries     int           `env:"STRAVA_MAX_RETRIES" envDefault:"3"`
	BackoffInitial time.Duration `env:"STRAVA_BACKOFF_INITIAL" envDefault:"1s"`
}

// Load reads .env from the working directory, if present, then the process
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, cfg.Validate()
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, cfg.Validate()
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("ULTRATRAINER_DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}

	if c.ToolTimeout <= 0 {
		return fmt.Errorf("ULTRATRAINER_TOOL_TIMEOUT must be positive, got %s", c.ToolTimeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("ULTRATRAINER_LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("ULTRATRAINER_LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.Strava.MaxRetries < 0 {
		return fmt.Errorf("STRAVA_MAX_RETRIES must not be negative")
	}
	if c.Strava.BackoffInitial <= 0 {
		return fmt.Errorf("STRAVA_BACKOFF_INITIAL must be positive")
	}
	return nil
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// DBPath returns the sqlite database file path.
func (c *Config) DBPath() string {
	return filepath.Join(c.GetDataDir(), storage.DBFileName)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage opens the configured backend.
func (c *Config) OpenStorage(ctx context.Context) (*storage.DB, error) {
	switch c.Backend {
	case BackendSQLite:
		return storage.Open(c.DBPath())
	case BackendPostgres:
		return storage.OpenPostgres(ctx, c.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// TokenSource returns the configured Strava credentials, or nil when none are
// set. A static access token takes precedence over the refresh triple.
func (c *Config) TokenSource(ctx context.Context) oauth2.TokenSource {
	s := c.Strava
	switch {
	case s.AccessToken != "":
		return strava.StaticTokenSource(s.AccessToken)
	case s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != "":
		return strava.RefreshTokenSource(ctx, s.ClientID, s.ClientSecret, s.RefreshToken, s.TokenURL)
	default:
		return nil
	}
}

// StravaClient builds the activity gateway. ok is false when no credentials
// are configured.
func (c *Config) StravaClient(ctx context.Context, logger zerolog.Logger) (client *strava.Client, ok bool) {
	tokens := c.TokenSource(ctx)
	if tokens == nil {
		return nil, false
	}
	return strava.NewClient(tokens,
		strava.WithBaseURL(c.Strava.APIBase),
		strava.WithRetry(c.Strava.MaxRetries, c.Strava.BackoffInitial),
		strava.WithLogger(logger),
	), true
}
