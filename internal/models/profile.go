// ABOUTME: AthleteProfile model and partial-update patch type.
// ABOUTME: One profile per installation; fields are optional and last-write-wins.
package models

import (
	"fmt"
	"time"
)

// ProfileID is the fixed primary key of the single profile row.
const ProfileID = 1

// AthleteProfile holds stable attributes of the athlete.
// Nil fields have never been set.
type AthleteProfile struct {
	Age              *int     `json:"age" yaml:"age,omitempty"`
	WeightKg         *float64 `json:"weight_kg" yaml:"weight_kg,omitempty"`
	YearsRunning     *int     `json:"years_running" yaml:"years_running,omitempty"`
	PreferredTerrain *string  `json:"preferred_terrain" yaml:"preferred_terrain,omitempty"`
	HomeLat          *float64 `json:"home_lat" yaml:"home_lat,omitempty"`
	HomeLng          *float64 `json:"home_lng" yaml:"home_lng,omitempty"`
	HomePlace        *string  `json:"home_place" yaml:"home_place,omitempty"`
	Timezone         *string  `json:"timezone" yaml:"timezone,omitempty"`
	MaxHeartRate     *int     `json:"max_heart_rate" yaml:"max_heart_rate,omitempty"`
	WeeklyDistanceKm *float64 `json:"weekly_distance_km" yaml:"weekly_distance_km,omitempty"`
	History          *string  `json:"history" yaml:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	Age              *int
	WeightKg         *float64
	YearsRunning     *int
	PreferredTerrain *string
	HomeLat          *float64
	HomeLng          *float64
	HomePlace        *string
	Timezone         *string
	MaxHeartRate     *int
	WeeklyDistanceKm *float64
	History          *string
}

// IsEmpty reports whether the patch sets no field at all.
func (p ProfilePatch) IsEmpty() bool {
	return p.Age == nil && p.WeightKg == nil && p.YearsRunning == nil &&
		p.PreferredTerrain == nil && p.HomeLat == nil && p.HomeLng == nil &&
		p.HomePlace == nil && p.Timezone == nil && p.MaxHeartRate == nil &&
		p.WeeklyDistanceKm == nil && p.History == nil
}

// Apply copies every set field of the patch onto the profile and reports
// whether any stored value changed.
func (p ProfilePatch) Apply(prof *AthleteProfile) bool {
	changed := false
	changed = applyField(&prof.Age, p.Age) || changed
	changed = applyField(&prof.WeightKg, p.WeightKg) || changed
	changed = applyField(&prof.YearsRunning, p.YearsRunning) || changed
	changed = applyField(&prof.PreferredTerrain, p.PreferredTerrain) || changed
	changed = applyField(&prof.HomeLat, p.HomeLat) || changed
	changed = applyField(&prof.HomeLng, p.HomeLng) || changed
	changed = applyField(&prof.HomePlace, p.HomePlace) || changed
	changed = applyField(&prof.Timezone, p.Timezone) || changed
	changed = applyField(&prof.MaxHeartRate, p.MaxHeartRate) || changed
	changed = applyField(&prof.WeeklyDistanceKm, p.WeeklyDistanceKm) || changed
	changed = applyField(&prof.History, p.History) || changed
	return changed
}

func applyField[T comparable](dst **T, v *T) bool {
	if v == nil {
		return false
	}
	changed := *dst == nil || **dst != *v
	val := *v
	*dst = &val
	return changed
}

// ValidateTimezone checks that tz is a loadable IANA zone name.
func ValidateTimezone(tz string) error {
	if tz == "" || tz == "Local" {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	return nil
}
