// ABOUTME: Athlete profile read and upsert operations.
// ABOUTME: The profile is a single row created on first write and never deleted.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/ultratrainer/internal/models"
)

// GetProfile returns the athlete profile, or ErrNotFound if none was ever written.
func (r *txRepo) GetProfile(ctx context.Context) (*models.AthleteProfile, error) {
	query := `
		SELECT age, weight_kg, years_running, preferred_terrain, home_lat, home_lng,
		       home_place, timezone, max_heart_rate, weekly_distance_km, history, updated_at
		FROM athlete_profile
		WHERE id = ?
	`
	var (
		p                           models.AthleteProfile
		age, years, maxHR           sql.NullInt64
		weight, lat, lng, weekly    sql.NullFloat64
		terrain, place, tz, history sql.NullString
		updatedAt                   string
	)

	err := r.queryRow(ctx, query, models.ProfileID).Scan(
		&age, &weight, &years, &terrain, &lat, &lng,
		&place, &tz, &maxHR, &weekly, &history, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	p.Age = intPtr(age)
	p.WeightKg = floatPtr(weight)
	p.YearsRunning = intPtr(years)
	p.PreferredTerrain = stringPtr(terrain)
	p.HomeLat = floatPtr(lat)
	p.HomeLng = floatPtr(lng)
	p.HomePlace = stringPtr(place)
	p.Timezone = stringPtr(tz)
	p.MaxHeartRate = intPtr(maxHR)
	p.WeeklyDistanceKm = floatPtr(weekly)
	p.History = stringPtr(history)
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &p, nil
}

// UpsertProfile applies the patch to the stored profile, creating it if needed.
func (r *txRepo) UpsertProfile(ctx context.Context, patch models.ProfilePatch) (*models.AthleteProfile, error) {
	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: empty profile patch", ErrInvalidRecord)
	}
	current, err := r.GetProfile(ctx)
	exists := err == nil
	if errors.Is(err, ErrNotFound) {
		current = &models.AthleteProfile{}
	} else if err != nil {
		return nil, err
	}

	// Re-applying identical values leaves the row, including updated_at, untouched.
	if changed := patch.Apply(current); exists && !changed {
		return current, nil
	}
	current.UpdatedAt = r.timestamp()

	query := `
		INSERT INTO athlete_profile (
			id, age, weight_kg, years_running, preferred_terrain, home_lat, home_lng,
			home_place, timezone, max_heart_rate, weekly_distance_km, history, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			age = excluded.age,
			weight_kg = excluded.weight_kg,
			years_running = excluded.years_running,
			preferred_terrain = excluded.preferred_terrain,
			home_lat = excluded.home_lat,
			home_lng = excluded.home_lng,
			home_place = excluded.home_place,
			timezone = excluded.timezone,
			max_heart_rate = excluded.max_heart_rate,
			weekly_distance_km = excluded.weekly_distance_km,
			history = excluded.history,
			updated_at = excluded.updated_at
	`
	_, err = r.exec(ctx, query,
		models.ProfileID,
		nullInt(current.Age),
		nullFloat(current.WeightKg),
		nullInt(current.YearsRunning),
		nullString(current.PreferredTerrain),
		nullFloat(current.HomeLat),
		nullFloat(current.HomeLng),
		nullString(current.HomePlace),
		nullString(current.Timezone),
		nullInt(current.MaxHeartRate),
		nullFloat(current.WeeklyDistanceKm),
		nullString(current.History),
		formatTime(current.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	// Round-trip through storage so the caller sees exactly what was persisted.
	return r.GetProfile(ctx)
}
