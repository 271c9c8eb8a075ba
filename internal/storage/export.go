// ABOUTME: Export of all stored coaching context.
// ABOUTME: Supports JSON, YAML, and Markdown output formats.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/ultratrainer/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for coaching data.
type ExportData struct {
	Version    string                     `json:"version" yaml:"version"`
	ExportedAt time.Time                  `json:"exported_at" yaml:"exported_at"`
	Tool       string                     `json:"tool" yaml:"tool"`
	Profile    *models.AthleteProfile     `json:"profile" yaml:"profile"`
	Goals      []*models.Goal             `json:"goals" yaml:"goals"`
	Episodes   []*models.HealthEpisode    `json:"health_episodes" yaml:"health_episodes"`
	Turns      []*models.ConversationTurn `json:"conversation_turns" yaml:"conversation_turns"`
}

// GetAllData reads everything in a single read transaction.
func GetAllData(ctx context.Context, store Store) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "ultratrainer",
	}

	err := store.View(ctx, func(repo Repository) error {
		profile, err := repo.GetProfile(ctx)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("get profile: %w", err)
		}
		data.Profile = profile

		if data.Goals, err = repo.ListGoals(ctx, nil); err != nil {
			return fmt.Errorf("list goals: %w", err)
		}
		if data.Episodes, err = repo.ListEpisodes(ctx, EpisodeFilter{}); err != nil {
			return fmt.Errorf("list episodes: %w", err)
		}
		if data.Turns, err = repo.ListTurns(ctx, TurnFilter{}); err != nil {
			return fmt.Errorf("list turns: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ExportJSON exports all data as indented JSON.
func ExportJSON(ctx context.Context, store Store) ([]byte, error) {
	data, err := GetAllData(ctx, store)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data as YAML.
func ExportYAML(ctx context.Context, store Store) ([]byte, error) {
	data, err := GetAllData(ctx, store)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(data)
}

// ExportMarkdown renders the profile, goals, and health episodes as Markdown
// tables. When since is set only episodes recorded at or after it are included.
func ExportMarkdown(ctx context.Context, store Store, since *time.Time) (string, error) {
	data, err := GetAllData(ctx, store)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Coaching Export - %s\n\n", data.ExportedAt.Format(models.DateLayout))
	fmt.Fprintf(&sb, "Generated: %s\n\n", data.ExportedAt.Format(time.RFC3339))

	sb.WriteString("## Profile\n\n")
	if data.Profile == nil {
		sb.WriteString("No profile recorded.\n\n")
	} else {
		writeProfileMarkdown(&sb, data.Profile)
	}

	sb.WriteString("## Goals\n\n")
	sb.WriteString("| Date | Name | Distance | Target | Status |\n")
	sb.WriteString("|------|------|----------|--------|--------|\n")
	for _, g := range data.Goals {
		target := ""
		if g.TargetTime != nil {
			target = *g.TargetTime
		}
		fmt.Fprintf(&sb, "| %s | %s | %.1f km | %s | %s |\n",
			g.TargetDate, mdCell(g.Name), g.DistanceKm, target, g.Status)
	}
	sb.WriteString("\n")

	sb.WriteString("## Health Episodes\n\n")
	sb.WriteString("| Date | Kind | Severity | Location | Description |\n")
	sb.WriteString("|------|------|----------|----------|-------------|\n")
	for _, e := range data.Episodes {
		if since != nil && e.RecordedAt.Before(*since) {
			continue
		}
		location := ""
		if e.Location != nil {
			location = mdCell(*e.Location)
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %s | %s |\n",
			e.RecordedAt.Format("2006-01-02 15:04"), e.Kind, e.Severity, location, mdCell(e.Description))
	}

	return sb.String(), nil
}

func writeProfileMarkdown(sb *strings.Builder, p *models.AthleteProfile) {
	row := func(label string, value any) {
		fmt.Fprintf(sb, "- **%s:** %v\n", label, value)
	}
	if p.Age != nil {
		row("Age", *p.Age)
	}
	if p.WeightKg != nil {
		row("Weight", fmt.Sprintf("%.1f kg", *p.WeightKg))
	}
	if p.YearsRunning != nil {
		row("Years running", *p.YearsRunning)
	}
	if p.PreferredTerrain != nil {
		row("Preferred terrain", *p.PreferredTerrain)
	}
	if p.HomePlace != nil {
		row("Home", *p.HomePlace)
	}
	if p.Timezone != nil {
		row("Timezone", *p.Timezone)
	}
	if p.MaxHeartRate != nil {
		row("Max heart rate", *p.MaxHeartRate)
	}
	if p.WeeklyDistanceKm != nil {
		row("Weekly distance", fmt.Sprintf("%.1f km", *p.WeeklyDistanceKm))
	}
	if p.History != nil {
		row("History", *p.History)
	}
	sb.WriteString("\n")
}

// mdCell keeps free text from breaking a table row.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
