// ABOUTME: The coaching tool catalog wired to the store and activity gateway.
// ABOUTME: Registration order here is the discovery order every transport sees.
package tools

import (
	"context"
	"time"

	"github.com/harperreed/ultratrainer/internal/storage"
	"github.com/harperreed/ultratrainer/internal/strava"
)

// ActivitySource is the subset of the Strava client the tools use.
type ActivitySource interface {
	ListActivities(ctx context.Context, after, before time.Time, perPage int) ([]strava.ActivitySummary, error)
	GetActivityDetail(ctx context.Context, id int64) (*strava.ActivityDetail, error)
}

// coach holds the collaborators shared by the catalog's handlers.
type coach struct {
	activities ActivitySource
	registry   *Registry
	now        func() time.Time
}

// CoachOption configures the coaching catalog.
type CoachOption func(*coach)

// WithClock overrides the clock used for relative time windows.
func WithClock(now func() time.Time) CoachOption {
	return func(c *coach) { c.now = now }
}

// RegisterCoachTools registers the full coaching catalog on r.
func RegisterCoachTools(r *Registry, activities ActivitySource, opts ...CoachOption) error {
	c := &coach{activities: activities, registry: r, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	catalog := []Tool{
		c.getRecentActivitiesTool(),
		c.getActivitiesInRangeTool(),
		c.getActivityDetailTool(),
		c.getProfileTool(),
		c.updateProfileTool(),
		c.listGoalsTool(),
		c.addGoalTool(),
		c.removeGoalTool(),
		c.logHealthEpisodeTool(),
		c.getHealthHistoryTool(),
		c.recordConversationTurnTool(),
		c.getConversationHistoryTool(),
		c.getContextSummaryTool(),
	}
	for _, t := range catalog {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// NewCoachRegistry builds a registry with the coaching catalog registered.
func NewCoachRegistry(store storage.Store, activities ActivitySource, opts []Option, coachOpts ...CoachOption) (*Registry, error) {
	r := NewRegistry(store, opts...)
	if err := RegisterCoachTools(r, activities, coachOpts...); err != nil {
		return nil, err
	}
	return r, nil
}
