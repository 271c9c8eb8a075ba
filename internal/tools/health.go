// ABOUTME: Health episode tools over the append-only episode log.
// ABOUTME: History is returned most recent first.
package tools

import (
	"context"
	"fmt"

	"github.com/harperreed/ultratrainer/internal/models"
	"github.com/harperreed/ultratrainer/internal/storage"
)

const maxHistoryLimit = 500

func episodeKindNames() []string {
	names := make([]string, 0, len(models.AllEpisodeKinds))
	for _, k := range models.AllEpisodeKinds {
		names = append(names, string(k))
	}
	return names
}

func (c *coach) logHealthEpisodeTool() Tool {
	return Tool{
		Name: "log_health_episode",
		Description: "Record an injury, fatigue, or effort episode. Episodes are permanent " +
			"and each call appends a new one.",
		Args: []Field{
			{Name: "kind", Type: TypeString, Required: true, Enum: episodeKindNames(), Description: "Episode kind"},
			{Name: "severity", Type: TypeInteger, Required: true,
				Min: Bound(models.MinSeverity), Max: Bound(models.MaxSeverity),
				Description: "Severity from 1 (minor) to 10 (severe)"},
			{Name: "description", Type: TypeString, Required: true, MaxLength: 2000, Description: "What happened"},
			{Name: "location", Type: TypeString, MaxLength: 100, Check: checkInjuryOnly,
				Description: "Body location; only for injuries"},
		},
		Returns: episodeSchema(),
		Access:  AccessWrite,
		Handler: c.logHealthEpisode,
	}
}

func checkInjuryOnly(_ any, args Args) error {
	if kind, _ := args.String("kind"); kind != string(models.EpisodeInjury) {
		return fmt.Errorf("is only allowed for injury episodes")
	}
	return nil
}

func (c *coach) logHealthEpisode(ctx context.Context, call Call) (any, error) {
	kind, _ := call.Args.String("kind")
	severity, _ := call.Args.Int("severity")
	description, _ := call.Args.String("description")

	e := models.NewHealthEpisode(models.EpisodeKind(kind), int(severity), description)
	if v, ok := call.Args.String("location"); ok {
		e.WithLocation(v)
	}

	if err := call.Repo.AppendEpisode(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (c *coach) getHealthHistoryTool() Tool {
	return Tool{
		Name:        "get_health_history",
		Description: "List logged health episodes, most recent first.",
		Args: []Field{
			{Name: "kind", Type: TypeString, Enum: episodeKindNames(), Description: "Only return this kind"},
			{Name: "since", Type: TypeDateTime, Description: "Only return episodes recorded at or after this date or timestamp"},
			{Name: "limit", Type: TypeInteger, Min: Bound(1), Max: Bound(maxHistoryLimit), Description: "Maximum number of episodes"},
		},
		Returns: arrayOf(episodeSchema()),
		Access:  AccessRead,
		Handler: c.getHealthHistory,
	}
}

func (c *coach) getHealthHistory(ctx context.Context, call Call) (any, error) {
	var filter storage.EpisodeFilter
	if v, ok := call.Args.String("kind"); ok {
		k := models.EpisodeKind(v)
		filter.Kind = &k
	}
	if v, ok := call.Args.Time("since"); ok {
		filter.Since = &v
	}
	if v, ok := call.Args.Int("limit"); ok {
		filter.Limit = int(v)
	}
	return call.Repo.ListEpisodes(ctx, filter)
}
