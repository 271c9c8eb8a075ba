// ABOUTME: CLI command for reviewing health episodes and conversation turns.
// ABOUTME: Reads through the same tools a coach would call.
package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/ultratrainer/internal/models"
)

var (
	historyKind         string
	historySince        string
	historyLimit        int
	historyConversation bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"hist"},
	Short:   "Show health episodes or conversation turns",
	Long: `Show logged health episodes, most recent first.

OUTPUT FORMAT:

  Each line shows: ID  RECORDED  KIND  SEVERITY  DESCRIPTION  (LOCATION)

  With --conversation, shows the latest conversation turns oldest first.

EXAMPLES:

  ultratrainer history                       # Last 20 episodes
  ultratrainer history --kind injury         # Injuries only
  ultratrainer history --since 2026-05-01    # Since a date
  ultratrainer history --conversation -n 10  # Last 10 conversation turns`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyConversation && (historyKind != "" || historySince != "") {
			return fmt.Errorf("--kind and --since apply to health episodes, not --conversation")
		}

		registry, err := newRegistry(cmd.Context())
		if err != nil {
			return err
		}

		name, query := "get_health_history", map[string]any{"limit": historyLimit}
		if historyConversation {
			name = "get_conversation_history"
		} else {
			if historyKind != "" {
				query["kind"] = historyKind
			}
			if historySince != "" {
				query["since"] = historySince
			}
		}

		raw, err := json.Marshal(query)
		if err != nil {
			return err
		}
		env := registry.Invoke(cmd.Context(), name, raw)
		if !env.OK() {
			return fmt.Errorf("%s: %s", env.Kind, env.Message)
		}

		data, err := json.Marshal(env.Result)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if historyConversation {
			var turns []models.ConversationTurn
			if err := json.Unmarshal(data, &turns); err != nil {
				return err
			}
			printTurns(out, turns)
			return nil
		}

		var episodes []models.HealthEpisode
		if err := json.Unmarshal(data, &episodes); err != nil {
			return err
		}
		printEpisodes(out, episodes)
		return nil
	},
}

func printEpisodes(out io.Writer, episodes []models.HealthEpisode) {
	if len(episodes) == 0 {
		fmt.Fprintln(out, "No health episodes found.")
		return
	}

	faint := color.New(color.Faint)
	for _, e := range episodes {
		location := ""
		if e.Location != nil {
			location = faint.Sprintf(" (%s)", *e.Location)
		}
		fmt.Fprintf(out, "%s %s %s %s %s%s\n",
			faint.Sprintf("%-5d", e.ID),
			faint.Sprint(e.RecordedAt.Local().Format("2006-01-02 15:04")),
			padRight(string(e.Kind), 8),
			severityColor(e.Severity).Sprintf("%2d", e.Severity),
			truncate(e.Description, 60),
			location)
	}
}

func severityColor(n int) *color.Color {
	switch {
	case n >= 7:
		return color.New(color.FgRed)
	case n >= 4:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func printTurns(out io.Writer, turns []models.ConversationTurn) {
	if len(turns) == 0 {
		fmt.Fprintln(out, "No conversation turns found.")
		return
	}

	faint := color.New(color.Faint)
	roleColor := map[models.TurnRole]*color.Color{
		models.RoleUser:      color.New(color.FgCyan),
		models.RoleAssistant: color.New(color.FgMagenta),
	}
	for _, t := range turns {
		fmt.Fprintf(out, "%s %s %s\n",
			faint.Sprint(t.CreatedAt.Local().Format("2006-01-02 15:04")),
			roleColor[t.Role].Sprint(padRight(string(t.Role), 9)),
			truncate(t.Content, 100))
	}
}

func init() {
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "filter by episode kind (injury, fatigue, effort)")
	historyCmd.Flags().StringVar(&historySince, "since", "", "only episodes since date (YYYY-MM-DD) or timestamp")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "max number of results")
	historyCmd.Flags().BoolVarP(&historyConversation, "conversation", "c", false, "show conversation turns instead")
	rootCmd.AddCommand(historyCmd)
}
