// ABOUTME: Goal model for target races and its status lifecycle.
// ABOUTME: Status moves active -> completed|abandoned and never back.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalAbandoned GoalStatus = "abandoned"
)

// AllGoalStatuses lists every valid status in display order.
var AllGoalStatuses = []GoalStatus{GoalActive, GoalCompleted, GoalAbandoned}

// IsValidGoalStatus checks if a string is a valid goal status.
func IsValidGoalStatus(s string) bool {
	for _, st := range AllGoalStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s GoalStatus) CanTransitionTo(next GoalStatus) bool {
	return s == GoalActive && (next == GoalCompleted || next == GoalAbandoned)
}

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Goal is a target race.
type Goal struct {
	ID                int64      `json:"id" yaml:"id"`
	Name              string     `json:"name" yaml:"name"`
	DistanceKm        float64    `json:"distance_km" yaml:"distance_km"`
	TargetDate        string     `json:"target_date" yaml:"target_date"`
	TargetTimeSeconds *int       `json:"target_time_seconds" yaml:"target_time_seconds,omitempty"`
	TargetTime        *string    `json:"target_time" yaml:"target_time,omitempty"`
	Status            GoalStatus `json:"status" yaml:"status"`
	Notes             *string    `json:"notes" yaml:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" yaml:"updated_at"`
}

// NewGoal creates an active goal. The ID is assigned by storage.
func NewGoal(name string, distanceKm float64, targetDate string) *Goal {
	now := time.Now().UTC()
	return &Goal{
		Name:       name,
		DistanceKm: distanceKm,
		TargetDate: targetDate,
		Status:     GoalActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// WithTargetTime sets the target finish time in seconds.
func (g *Goal) WithTargetTime(seconds int) *Goal {
	g.TargetTimeSeconds = &seconds
	formatted := FormatDuration(seconds)
	g.TargetTime = &formatted
	return g
}

// WithNotes sets free-text notes on the goal.
func (g *Goal) WithNotes(notes string) *Goal {
	g.Notes = &notes
	return g
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected date as YYYY-MM-DD, got %q", s)
	}
	return t, nil
}

// ParseDuration parses H:MM:SS or MM:SS into seconds.
func ParseDuration(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected duration as H:MM:SS or MM:SS, got %q", s)
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("expected duration as H:MM:SS or MM:SS, got %q", s)
		}
		// minutes and seconds past the leading field must be < 60
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("expected duration as H:MM:SS or MM:SS, got %q", s)
		}
		total = total*60 + n
	}
	if total == 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", s)
	}
	return total, nil
}

// FormatDuration renders seconds as H:MM:SS.
func FormatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
