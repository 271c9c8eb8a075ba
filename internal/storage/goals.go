// ABOUTME: Goal CRUD operations and monotonic status transitions.
// ABOUTME: Goals list ordered by target date, then id.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/ultratrainer/internal/models"
)

const goalColumns = `id, name, distance_km, target_date, target_time_seconds, status, notes, created_at, updated_at`

// CreateGoal inserts a new goal and sets its ID and timestamps.
func (r *txRepo) CreateGoal(ctx context.Context, g *models.Goal) error {
	now := r.timestamp()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.Status == "" {
		g.Status = models.GoalActive
	}
	if !models.IsValidGoalStatus(string(g.Status)) {
		return fmt.Errorf("%w: goal status %q", ErrInvalidRecord, g.Status)
	}

	query := `
		INSERT INTO goals (name, distance_km, target_date, target_time_seconds, status, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.queryRow(ctx, query,
		g.Name, g.DistanceKm, g.TargetDate, nullInt(g.TargetTimeSeconds),
		string(g.Status), nullString(g.Notes), formatTime(now), formatTime(now),
	).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

// GetGoal retrieves a goal by ID.
func (r *txRepo) GetGoal(ctx context.Context, id int64) (*models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = ?`
	g, err := scanGoal(r.queryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

// ListGoals returns goals, optionally filtered by status.
func (r *txRepo) ListGoals(ctx context.Context, status *models.GoalStatus) ([]*models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY target_date ASC, id ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	goals := []*models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// SetGoalStatus moves a goal to a new status.
// Returns ErrInvalidTransition unless the goal is active and next is terminal.
func (r *txRepo) SetGoalStatus(ctx context.Context, id int64, next models.GoalStatus) (*models.Goal, error) {
	g, err := r.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, g.Status, next)
	}

	now := r.timestamp()
	_, err = r.exec(ctx, `UPDATE goals SET status = ?, updated_at = ? WHERE id = ?`,
		string(next), formatTime(now), id)
	if err != nil {
		return nil, fmt.Errorf("update goal status: %w", err)
	}

	g.Status = next
	g.UpdatedAt = now
	return g, nil
}

// DeleteGoal removes a goal.
func (r *txRepo) DeleteGoal(ctx context.Context, id int64) error {
	result, err := r.exec(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(s rowScanner) (*models.Goal, error) {
	var (
		g                    models.Goal
		status               string
		targetTime           sql.NullInt64
		notes                sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&g.ID, &g.Name, &g.DistanceKm, &g.TargetDate, &targetTime,
		&status, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	g.Status = models.GoalStatus(status)
	g.Notes = stringPtr(notes)
	if seconds := intPtr(targetTime); seconds != nil {
		g.WithTargetTime(*seconds)
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}
