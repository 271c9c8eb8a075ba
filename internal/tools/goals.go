// ABOUTME: Goal tools: list, add, and remove target races.
// ABOUTME: Removal either deletes the row or records a terminal status.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/ultratrainer/internal/models"
	"github.com/harperreed/ultratrainer/internal/storage"
)

// RemoveGoalResult confirms a remove_goal call.
type RemoveGoalResult struct {
	ID      int64  `json:"id"`
	Removed bool   `json:"removed"`
	Status  string `json:"status"`
}

const removedDeleted = "deleted"

func goalStatusNames() []string {
	names := make([]string, 0, len(models.AllGoalStatuses))
	for _, s := range models.AllGoalStatuses {
		names = append(names, string(s))
	}
	return names
}

func (c *coach) listGoalsTool() Tool {
	return Tool{
		Name:        "list_goals",
		Description: "List goals ordered by target date, then creation order. Optionally filter by status.",
		Args: []Field{
			{Name: "status", Type: TypeString, Enum: goalStatusNames(), Description: "Only return goals with this status"},
		},
		Returns: arrayOf(goalSchema()),
		Access:  AccessRead,
		Handler: c.listGoals,
	}
}

func (c *coach) listGoals(ctx context.Context, call Call) (any, error) {
	var status *models.GoalStatus
	if v, ok := call.Args.String("status"); ok {
		s := models.GoalStatus(v)
		status = &s
	}
	return call.Repo.ListGoals(ctx, status)
}

func (c *coach) addGoalTool() Tool {
	return Tool{
		Name: "add_goal",
		Description: "Add a target race as an active goal. Not idempotent: " +
			"each call creates a new goal.",
		Args: []Field{
			{Name: "name", Type: TypeString, Required: true, MaxLength: 200, Description: "Race name"},
			{Name: "distance_km", Type: TypeNumber, Required: true, Min: Bound(0), ExclusiveMin: true, Max: Bound(1000),
				Description: "Race distance in km"},
			{Name: "date", Type: TypeDate, Required: true, Description: "Race date (YYYY-MM-DD)"},
			{Name: "target_time", Type: TypeString, MaxLength: 12, Check: checkDuration,
				Description: "Target finish time as H:MM:SS or MM:SS"},
			{Name: "notes", Type: TypeString, MaxLength: 2000, Description: "Free-text notes"},
		},
		Returns: goalSchema(),
		Access:  AccessWrite,
		Handler: c.addGoal,
	}
}

func checkDuration(value any, _ Args) error {
	_, err := models.ParseDuration(value.(string))
	return err
}

func (c *coach) addGoal(ctx context.Context, call Call) (any, error) {
	name, _ := call.Args.String("name")
	distance, _ := call.Args.Float("distance_km")
	date, _ := call.Args.String("date")

	g := models.NewGoal(name, distance, date)
	if v, ok := call.Args.String("target_time"); ok {
		seconds, err := models.ParseDuration(v)
		if err != nil {
			return nil, InvalidArguments("target_time", err.Error())
		}
		g.WithTargetTime(seconds)
	}
	if v, ok := call.Args.String("notes"); ok {
		g.WithNotes(v)
	}

	if err := call.Repo.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (c *coach) removeGoalTool() Tool {
	return Tool{
		Name: "remove_goal",
		Description: "Remove a goal. Without an outcome the goal is deleted; with an outcome " +
			"an active goal is marked completed or abandoned.",
		Args: []Field{
			{Name: "id", Type: TypeInteger, Required: true, Min: Bound(1), Description: "Goal id"},
			{Name: "outcome", Type: TypeString, Enum: []string{string(models.GoalCompleted), string(models.GoalAbandoned)},
				Description: "Record the goal as completed or abandoned instead of deleting it"},
		},
		Returns: removeGoalResultSchema(),
		Access:  AccessWrite,
		Handler: c.removeGoal,
	}
}

func (c *coach) removeGoal(ctx context.Context, call Call) (any, error) {
	id, _ := call.Args.Int("id")

	outcome, ok := call.Args.String("outcome")
	if !ok {
		err := call.Repo.DeleteGoal(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, InvalidArguments("id", fmt.Sprintf("does not match any goal (%d)", id))
		}
		if err != nil {
			return nil, err
		}
		return RemoveGoalResult{ID: id, Removed: true, Status: removedDeleted}, nil
	}

	g, err := call.Repo.SetGoalStatus(ctx, id, models.GoalStatus(outcome))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, InvalidArguments("id", fmt.Sprintf("does not match any goal (%d)", id))
	case errors.Is(err, storage.ErrInvalidTransition):
		return nil, InvalidArguments("outcome", "cannot be applied to a goal that is no longer active")
	case err != nil:
		return nil, err
	}
	return RemoveGoalResult{ID: g.ID, Removed: true, Status: string(g.Status)}, nil
}
