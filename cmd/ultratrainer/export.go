// ABOUTME: CLI command for exporting every coaching record.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/ultratrainer/internal/storage"
)

var (
	exportOutput string
	exportSince  string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export coaching data",
	Long: `Export the profile, goals, health episodes, and conversation turns.

FORMATS:

  json       Full JSON export (suitable for backup)
  yaml       YAML export (human-readable)
  markdown   Markdown tables (for sharing with a coach)

OPTIONS:

  --output, -o   Write to file instead of stdout
  --since        Only health episodes since date (YYYY-MM-DD, markdown only)

EXAMPLES:

  ultratrainer export json                  # Export all data as JSON
  ultratrainer export json -o backup.json   # Save to file
  ultratrainer export yaml                  # Export as YAML
  ultratrainer export markdown --since 2026-01-01`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]

		var data []byte
		var err error

		switch format {
		case "json":
			data, err = storage.ExportJSON(cmd.Context(), db)
		case "yaml":
			data, err = storage.ExportYAML(cmd.Context(), db)
		case "markdown":
			var since *time.Time
			if exportSince != "" {
				t, perr := time.Parse("2006-01-02", exportSince)
				if perr != nil {
					return fmt.Errorf("invalid since date (use YYYY-MM-DD): %w", perr)
				}
				since = &t
			}
			var md string
			md, err = storage.ExportMarkdown(cmd.Context(), db, since)
			data = []byte(md)
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", format)
		}

		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "✓ Exported to %s\n", exportOutput)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only episodes since date (YYYY-MM-DD)")
	rootCmd.AddCommand(exportCmd)
}
