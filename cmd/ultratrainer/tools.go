// ABOUTME: CLI commands for listing and invoking tools directly.
// ABOUTME: call prints the same envelope a protocol client would receive.
package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harperreed/ultratrainer/internal/tools"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	Long: `List the tool catalog in discovery order.

Use --json to print the exact discovery payload, including argument and
return schemas.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := newRegistry(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if toolsJSON {
			data, err := registry.CatalogJSON()
			if err != nil {
				return fmt.Errorf("render catalog: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		bold := color.New(color.Bold)
		faint := color.New(color.Faint)
		for _, t := range registry.Tools() {
			var names []string
			for _, f := range t.Args {
				name := f.Name
				if !f.Required {
					name += "?"
				}
				names = append(names, name)
			}
			fmt.Fprintf(out, "%s %s\n", bold.Sprint(padRight(t.Name, 26)), faint.Sprintf("[%s] (%s)", t.Access, strings.Join(names, ", ")))
			fmt.Fprintf(out, "  %s\n", t.Description)
		}
		return nil
	},
}

var callCmd = &cobra.Command{
	Use:   "call <tool> [arguments-json]",
	Short: "Invoke one tool",
	Long: `Invoke a tool once and print its result envelope as JSON.

EXAMPLES:

  ultratrainer call get_profile
  ultratrainer call update_profile '{"age":41,"timezone":"America/Denver"}'
  ultratrainer call get_recent_activities '{"days":7}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := newRegistry(cmd.Context())
		if err != nil {
			return err
		}

		var raw json.RawMessage
		if len(args) == 2 {
			raw = json.RawMessage(args[1])
		}

		env := registry.Invoke(tools.WithSessionID(cmd.Context(), "cli"), args[0], raw)
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))

		if !env.OK() {
			return fmt.Errorf("%s failed: %s", args[0], env.Kind)
		}
		return nil
	},
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print the discovery payload as JSON")
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(callCmd)
}
