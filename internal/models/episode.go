// ABOUTME: HealthEpisode model for injury, fatigue, and effort logs.
// ABOUTME: Episodes are append-only; there is no mutation API.
package models

import "time"

// EpisodeKind tags what a health episode describes.
type EpisodeKind string

const (
	EpisodeInjury  EpisodeKind = "injury"
	EpisodeFatigue EpisodeKind = "fatigue"
	EpisodeEffort  EpisodeKind = "effort"
)

// AllEpisodeKinds lists every valid kind.
var AllEpisodeKinds = []EpisodeKind{EpisodeInjury, EpisodeFatigue, EpisodeEffort}

// Severity bounds, inclusive.
const (
	MinSeverity = 1
	MaxSeverity = 10
)

// IsValidEpisodeKind checks if a string is a valid episode kind.
func IsValidEpisodeKind(s string) bool {
	for _, k := range AllEpisodeKinds {
		if string(k) == s {
			return true
		}
	}
	return false
}

// IsValidSeverity reports whether n is within [MinSeverity, MaxSeverity].
func IsValidSeverity(n int) bool {
	return n >= MinSeverity && n <= MaxSeverity
}

// HealthEpisode is a single self-reported health signal.
type HealthEpisode struct {
	ID          int64       `json:"id" yaml:"id"`
	Kind        EpisodeKind `json:"kind" yaml:"kind"`
	Severity    int         `json:"severity" yaml:"severity"`
	Description string      `json:"description" yaml:"description"`
	Location    *string     `json:"location" yaml:"location,omitempty"`
	RecordedAt  time.Time   `json:"recorded_at" yaml:"recorded_at"`
}

// NewHealthEpisode creates an episode. ID and RecordedAt are set by storage.
func NewHealthEpisode(kind EpisodeKind, severity int, description string) *HealthEpisode {
	return &HealthEpisode{
		Kind:        kind,
		Severity:    severity,
		Description: description,
	}
}

// WithLocation sets the body location. Only meaningful for injuries.
func (e *HealthEpisode) WithLocation(location string) *HealthEpisode {
	e.Location = &location
	return e
}
