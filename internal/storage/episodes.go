// ABOUTME: Append-only health episode log.
// ABOUTME: Episodes list newest first, with optional kind and time filters.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/harperreed/ultratrainer/internal/models"
)

// AppendEpisode records a health episode and sets its ID and RecordedAt.
func (r *txRepo) AppendEpisode(ctx context.Context, e *models.HealthEpisode) error {
	if !models.IsValidEpisodeKind(string(e.Kind)) {
		return fmt.Errorf("%w: episode kind %q", ErrInvalidRecord, e.Kind)
	}
	if !models.IsValidSeverity(e.Severity) {
		return fmt.Errorf("%w: severity %d", ErrInvalidRecord, e.Severity)
	}
	e.RecordedAt = r.timestamp()

	query := `
		INSERT INTO health_episodes (kind, severity, description, location, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	err := r.queryRow(ctx, query,
		string(e.Kind), e.Severity, e.Description, nullString(e.Location), formatTime(e.RecordedAt),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("append episode: %w", err)
	}
	return nil
}

// ListEpisodes returns episodes newest first.
func (r *txRepo) ListEpisodes(ctx context.Context, filter EpisodeFilter) ([]*models.HealthEpisode, error) {
	query := `SELECT id, kind, severity, description, location, recorded_at FROM health_episodes WHERE 1=1`
	var args []any

	if filter.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, string(*filter.Kind))
	}
	if filter.Since != nil {
		query += ` AND recorded_at >= ?`
		args = append(args, formatTime(*filter.Since))
	}
	query += ` ORDER BY recorded_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	episodes := []*models.HealthEpisode{}
	for rows.Next() {
		var (
			e          models.HealthEpisode
			kind       string
			location   sql.NullString
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &kind, &e.Severity, &e.Description, &location, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		e.Kind = models.EpisodeKind(kind)
		e.Location = stringPtr(location)
		if e.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		episodes = append(episodes, &e)
	}
	return episodes, rows.Err()
}
