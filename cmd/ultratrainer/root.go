// ABOUTME: Root Cobra command for the ultratrainer CLI.
// ABOUTME: Loads configuration and manages the store lifecycle via PersistentPre/PostRunE.
package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harperreed/ultratrainer/internal/config"
	"github.com/harperreed/ultratrainer/internal/logging"
	"github.com/harperreed/ultratrainer/internal/storage"
	"github.com/harperreed/ultratrainer/internal/tools"
)

var (
	cfg    *config.Config
	logger = zerolog.Nop()
	db     *storage.DB
)

var rootCmd = &cobra.Command{
	Use:   "ultratrainer",
	Short: "Training coach tool server",
	Long: `Ultratrainer gives a conversational coach a set of tools over your
Strava activities, athlete profile, race goals, health episodes, and
conversation history.

QUICK START:

  $ export STRAVA_ACCESS_TOKEN=...          # Strava API credentials
  $ ultratrainer tools                      # List available tools
  $ ultratrainer call get_profile           # Invoke a tool once
  $ ultratrainer call add_goal '{"name":"Western States","distance_km":161,"date":"2026-06-27"}'
  $ ultratrainer serve                      # Line-delimited JSON over TCP
  $ ultratrainer mcp                        # MCP over stdio

CONFIGURATION:

  Settings come from the environment, optionally from a .env file in the
  working directory. The main variables are:

  ULTRATRAINER_BACKEND        sqlite (default) or postgres
  ULTRATRAINER_DATA_DIR       sqlite location (default ~/.local/share/ultratrainer)
  ULTRATRAINER_DATABASE_URL   postgres DSN
  ULTRATRAINER_TOOL_TIMEOUT   per-invocation budget (default 30s)
  ULTRATRAINER_LOG_LEVEL      debug, info, warn, error
  STRAVA_ACCESS_TOKEN         static bearer token, or
  STRAVA_CLIENT_ID / STRAVA_CLIENT_SECRET / STRAVA_REFRESH_TOKEN

  Logs always go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "install-skill" {
			return nil
		}

		// PostRun is skipped when RunE fails.
		if db != nil {
			_ = db.Close()
			db = nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		logger, err = logging.Stderr(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}

		db, err = cfg.OpenStorage(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		logger.Debug().Str("backend", cfg.Backend).Msg("storage opened")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			err := db.Close()
			db = nil
			return err
		}
		return nil
	},
}

// newRegistry builds the tool registry over the open store and, when
// credentials are configured, the Strava gateway.
func newRegistry(ctx context.Context) (*tools.Registry, error) {
	var activities tools.ActivitySource
	if client, ok := cfg.StravaClient(ctx, logger); ok {
		activities = client
	} else {
		logger.Warn().Msg("no Strava credentials configured; activity tools will report UpstreamUnauthorized")
	}

	return tools.NewCoachRegistry(db, activities, []tools.Option{
		tools.WithTimeout(cfg.ToolTimeout),
		tools.WithLogger(logger),
	})
}
