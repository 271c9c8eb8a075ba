// ABOUTME: Repository interface for transaction-scoped coaching data access.
// ABOUTME: Implemented by txRepo, which binds every call to one *sql.Tx.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/ultratrainer/internal/models"
)

// Repository defines the storage operations available inside a transaction.
// Health episodes and conversation turns only expose append and list.
type Repository interface {
	// Profile operations
	GetProfile(ctx context.Context) (*models.AthleteProfile, error)
	UpsertProfile(ctx context.Context, patch models.ProfilePatch) (*models.AthleteProfile, error)

	// Goal operations
	CreateGoal(ctx context.Context, g *models.Goal) error
	GetGoal(ctx context.Context, id int64) (*models.Goal, error)
	ListGoals(ctx context.Context, status *models.GoalStatus) ([]*models.Goal, error)
	SetGoalStatus(ctx context.Context, id int64, status models.GoalStatus) (*models.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error

	// Health episode operations
	AppendEpisode(ctx context.Context, e *models.HealthEpisode) error
	ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]*models.HealthEpisode, error)

	// Conversation operations
	AppendTurn(ctx context.Context, t *models.ConversationTurn) error
	ListTurns(ctx context.Context, filter TurnFilter) ([]*models.ConversationTurn, error)
}

// EpisodeFilter narrows ListEpisodes. Zero values mean no filter.
type EpisodeFilter struct {
	Kind  *models.EpisodeKind
	Since *time.Time
	Limit int
}

// TurnFilter narrows ListTurns. Limit selects the most recent N turns.
type TurnFilter struct {
	SessionID string
	Limit     int
}

// timeLayout has fixed-width fractional seconds so stored text sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// txRepo implements Repository on top of a single transaction.
type txRepo struct {
	tx      *sql.Tx
	dialect Dialect
	now     func() time.Time
}

var _ Repository = (*txRepo)(nil)

func (r *txRepo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.tx.ExecContext(ctx, rebind(r.dialect, query), args...)
}

func (r *txRepo) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.tx.QueryContext(ctx, rebind(r.dialect, query), args...)
}

func (r *txRepo) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.tx.QueryRowContext(ctx, rebind(r.dialect, query), args...)
}

func (r *txRepo) timestamp() time.Time {
	return r.now().UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}
