// ABOUTME: Tests for environment configuration.
// ABOUTME: Covers defaults, validation, backend selection, credentials, and path expansion.
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/ultratrainer/internal/storage"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "https://www.strava.com/api/v3", cfg.Strava.APIBase)
	assert.Equal(t, 3, cfg.Strava.MaxRetries)
	assert.Equal(t, time.Second, cfg.Strava.BackoffInitial)
	assert.Equal(t, storage.DataDir(), cfg.GetDataDir())
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"ULTRATRAINER_DATA_DIR":     "/tmp/ultratrainer-test",
		"ULTRATRAINER_TOOL_TIMEOUT": "5s",
		"ULTRATRAINER_LOG_FORMAT":   "json",
		"STRAVA_MAX_RETRIES":        "0",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ultratrainer-test/ultratrainer.db", cfg.DBPath())
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 0, cfg.Strava.MaxRetries)
}

func TestLoadFromRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"unknown backend", map[string]string{"ULTRATRAINER_BACKEND": "markdown"}},
		{"postgres without url", map[string]string{"ULTRATRAINER_BACKEND": "postgres"}},
		{"zero timeout", map[string]string{"ULTRATRAINER_TOOL_TIMEOUT": "0s"}},
		{"bad duration", map[string]string{"ULTRATRAINER_TOOL_TIMEOUT": "soon"}},
		{"bad level", map[string]string{"ULTRATRAINER_LOG_LEVEL": "loud"}},
		{"bad format", map[string]string{"ULTRATRAINER_LOG_FORMAT": "xml"}},
		{"negative retries", map[string]string{"STRAVA_MAX_RETRIES": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			assert.Error(t, err)
		})
	}
}

func TestTokenSourceSelection(t *testing.T) {
	ctx := context.Background()

	none := &Config{}
	assert.Nil(t, none.TokenSource(ctx))
	_, ok := none.StravaClient(ctx, zerolog.Nop())
	assert.False(t, ok)

	static := &Config{Strava: Strava{AccessToken: "abc", RefreshToken: "ignored"}}
	ts := static.TokenSource(ctx)
	require.NotNil(t, ts)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)

	partial := &Config{Strava: Strava{ClientID: "id", RefreshToken: "r"}}
	assert.Nil(t, partial.TokenSource(ctx), "refresh needs id, secret, and token")

	refresh := &Config{Strava: Strava{ClientID: "id", ClientSecret: "s", RefreshToken: "r", TokenURL: "http://127.0.0.1:1/token"}}
	assert.NotNil(t, refresh.TokenSource(ctx))
}

func TestOpenStorageSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{Backend: BackendSQLite, DataDir: dir}

	db, err := cfg.OpenStorage(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	assert.Equal(t, storage.DialectSQLite, db.Dialect())
	_, err = os.Stat(filepath.Join(dir, "ultratrainer.db"))
	assert.NoError(t, err)
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/tmp/foo", "/tmp/foo"},
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"relative/path", "relative/path"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
