// ABOUTME: Activity tools backed by the Strava gateway.
// ABOUTME: They run outside any store transaction.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/harperreed/ultratrainer/internal/models"
	"github.com/harperreed/ultratrainer/internal/strava"
)

const maxActivityDays = 365

func (c *coach) getRecentActivitiesTool() Tool {
	return Tool{
		Name:        "get_recent_activities",
		Description: "List the athlete's Strava activities from the past N days, most recent first.",
		Args: []Field{
			{Name: "days", Type: TypeInteger, Required: true, Min: Bound(1), Max: Bound(maxActivityDays),
				Description: "How many days back to look"},
			{Name: "limit", Type: TypeInteger, Min: Bound(1), Max: Bound(strava.MaxPerPage),
				Description: "Maximum number of activities to return"},
		},
		Returns: arrayOf(activitySummarySchema()),
		Access:  AccessNone,
		Handler: c.getRecentActivities,
	}
}

func (c *coach) getRecentActivities(ctx context.Context, call Call) (any, error) {
	if c.activities == nil {
		return nil, fmt.Errorf("%w: activity source not configured", strava.ErrUnauthorized)
	}

	days, _ := call.Args.Int("days")
	after := c.now().Add(-time.Duration(days) * 24 * time.Hour)

	list, err := c.activities.ListActivities(ctx, after, time.Time{}, strava.MaxPerPage)
	if err != nil {
		return nil, err
	}
	limit, _ := call.Args.Int("limit")
	return recentFirst(list, int(limit)), nil
}

// recentFirst sorts most recent first, ties by descending id, and keeps at
// most limit entries when limit is positive. Strava returns ascending order
// whenever after is set.
func recentFirst(list []strava.ActivitySummary, limit int) []strava.ActivitySummary {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].StartTime.Equal(list[j].StartTime) {
			return list[i].ID > list[j].ID
		}
		return list[i].StartTime.After(list[j].StartTime)
	})
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

const defaultRangeLimit = 30

func (c *coach) getActivitiesInRangeTool() Tool {
	return Tool{
		Name:        "get_activities_in_range",
		Description: "List the athlete's Strava activities between two calendar dates (inclusive, UTC), most recent first.",
		Args: []Field{
			{Name: "start", Type: TypeDate, Required: true, Description: "First day of the range (YYYY-MM-DD)"},
			{Name: "end", Type: TypeDate, Required: true, Check: checkRangeEnd,
				Description: "Last day of the range (YYYY-MM-DD)"},
			{Name: "limit", Type: TypeInteger, Min: Bound(1), Max: Bound(strava.MaxPerPage),
				Description: "Maximum number of activities to return (default 30)"},
		},
		Returns: arrayOf(activitySummarySchema()),
		Access:  AccessNone,
		Handler: c.getActivitiesInRange,
	}
}

// checkRangeEnd rejects an end date before start. Dates are canonical
// YYYY-MM-DD strings, so they order lexically.
func checkRangeEnd(value any, args Args) error {
	if start, ok := args.String("start"); ok && value.(string) < start {
		return fmt.Errorf("must not be before start (%s)", start)
	}
	return nil
}

func (c *coach) getActivitiesInRange(ctx context.Context, call Call) (any, error) {
	if c.activities == nil {
		return nil, fmt.Errorf("%w: activity source not configured", strava.ErrUnauthorized)
	}

	startDate, _ := call.Args.String("start")
	endDate, _ := call.Args.String("end")
	start, err := models.ParseDate(startDate)
	if err != nil {
		return nil, InvalidArguments("start", err.Error())
	}
	end, err := models.ParseDate(endDate)
	if err != nil {
		return nil, InvalidArguments("end", err.Error())
	}
	if start.After(c.now()) {
		return nil, InvalidArguments("start", "must not be in the future")
	}

	// Strava bounds are exclusive; widen by a second to keep midnight starts.
	after := start.Add(-time.Second)
	before := end.AddDate(0, 0, 1)

	list, err := c.activities.ListActivities(ctx, after, before, strava.MaxPerPage)
	if err != nil {
		return nil, err
	}

	limit, ok := call.Args.Int("limit")
	if !ok {
		limit = defaultRangeLimit
	}
	return recentFirst(list, int(limit)), nil
}

func (c *coach) getActivityDetailTool() Tool {
	return Tool{
		Name:        "get_activity_detail",
		Description: "Fetch one Strava activity with its laps and time-series streams.",
		Args: []Field{
			{Name: "id", Type: TypeInteger, Required: true, Min: Bound(1),
				Description: "Strava activity id"},
		},
		Returns: activityDetailSchema(),
		Access:  AccessNone,
		Handler: c.getActivityDetail,
	}
}

func (c *coach) getActivityDetail(ctx context.Context, call Call) (any, error) {
	if c.activities == nil {
		return nil, fmt.Errorf("%w: activity source not configured", strava.ErrUnauthorized)
	}

	id, _ := call.Args.Int("id")
	detail, err := c.activities.GetActivityDetail(ctx, id)
	if errors.Is(err, strava.ErrNotFound) {
		return nil, InvalidArguments("id", fmt.Sprintf("does not match any activity (%d)", id))
	}
	if err != nil {
		return nil, err
	}
	return detail, nil
}
