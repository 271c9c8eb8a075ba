// ABOUTME: Conversation memory tools and the combined coaching context summary.
// ABOUTME: Turns are tagged with the calling session and read back oldest first.
package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/ultratrainer/internal/models"
	"github.com/harperreed/ultratrainer/internal/storage"
)

const (
	defaultTurnLimit = 20
	maxTurnLimit     = 200

	summaryEpisodeWindow = 30 * 24 * time.Hour
	summaryEpisodeLimit  = 50
	summaryTurnLimit     = 10
)

// ContextSummary is everything a coaching reply usually needs in one read.
type ContextSummary struct {
	Profile        *models.AthleteProfile     `json:"profile"`
	ActiveGoals    []*models.Goal             `json:"active_goals"`
	RecentEpisodes []*models.HealthEpisode    `json:"recent_episodes"`
	RecentTurns    []*models.ConversationTurn `json:"recent_turns"`
}

func (c *coach) recordConversationTurnTool() Tool {
	return Tool{
		Name:        "record_conversation_turn",
		Description: "Append a message to the conversation log for the current session.",
		Args: []Field{
			{Name: "role", Type: TypeString, Required: true, Enum: []string{string(models.RoleUser), string(models.RoleAssistant)},
				Description: "Who sent the message"},
			{Name: "content", Type: TypeString, Required: true, MaxLength: 20000, Description: "Message text"},
			{Name: "tools", Type: TypeStringList, Check: c.checkToolNames,
				Description: "Names of tools invoked while producing this turn"},
		},
		Returns: turnSchema(),
		Access:  AccessWrite,
		Handler: c.recordConversationTurn,
	}
}

func (c *coach) checkToolNames(value any, _ Args) error {
	for _, name := range value.([]string) {
		if _, ok := c.registry.Lookup(name); !ok {
			return fmt.Errorf("names unknown tool %q", name)
		}
	}
	return nil
}

func (c *coach) recordConversationTurn(ctx context.Context, call Call) (any, error) {
	role, _ := call.Args.String("role")
	content, _ := call.Args.String("content")

	turn := models.NewConversationTurn(call.SessionID, models.TurnRole(role), content)
	if names, ok := call.Args.Strings("tools"); ok {
		turn.Tools = names
	}

	if err := call.Repo.AppendTurn(ctx, turn); err != nil {
		return nil, err
	}
	return turn, nil
}

func (c *coach) getConversationHistoryTool() Tool {
	return Tool{
		Name:        "get_conversation_history",
		Description: "Read the most recent conversation turns, oldest first.",
		Args: []Field{
			{Name: "limit", Type: TypeInteger, Min: Bound(1), Max: Bound(maxTurnLimit),
				Description: "Number of turns to return (default 20)"},
			{Name: "session_id", Type: TypeString, MaxLength: 64, Description: "Only return turns from this session"},
		},
		Returns: arrayOf(turnSchema()),
		Access:  AccessRead,
		Handler: c.getConversationHistory,
	}
}

func (c *coach) getConversationHistory(ctx context.Context, call Call) (any, error) {
	filter := storage.TurnFilter{Limit: defaultTurnLimit}
	if v, ok := call.Args.Int("limit"); ok {
		filter.Limit = int(v)
	}
	if v, ok := call.Args.String("session_id"); ok {
		filter.SessionID = v
	}
	return call.Repo.ListTurns(ctx, filter)
}

func (c *coach) getContextSummaryTool() Tool {
	return Tool{
		Name: "get_context_summary",
		Description: "Read the profile, active goals, health episodes from the last 30 days, " +
			"and the last 10 conversation turns in one call.",
		Returns: contextSummarySchema(),
		Access:  AccessRead,
		Handler: c.getContextSummary,
	}
}

func (c *coach) getContextSummary(ctx context.Context, call Call) (any, error) {
	var summary ContextSummary

	profile, err := call.Repo.GetProfile(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		summary.Profile = profile
	}

	active := models.GoalActive
	if summary.ActiveGoals, err = call.Repo.ListGoals(ctx, &active); err != nil {
		return nil, err
	}

	since := c.now().Add(-summaryEpisodeWindow)
	summary.RecentEpisodes, err = call.Repo.ListEpisodes(ctx, storage.EpisodeFilter{
		Since: &since,
		Limit: summaryEpisodeLimit,
	})
	if err != nil {
		return nil, err
	}

	if summary.RecentTurns, err = call.Repo.ListTurns(ctx, storage.TurnFilter{Limit: summaryTurnLimit}); err != nil {
		return nil, err
	}
	return summary, nil
}
