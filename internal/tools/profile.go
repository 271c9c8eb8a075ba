// ABOUTME: Athlete profile tools.
// ABOUTME: get_profile distinguishes "not set"; update_profile merges fields.
package tools

import (
	"context"
	"errors"

	"github.com/harperreed/ultratrainer/internal/models"
	"github.com/harperreed/ultratrainer/internal/storage"
)

// ProfileResult is returned by get_profile.
type ProfileResult struct {
	Profile *models.AthleteProfile `json:"profile"`
	Set     bool                   `json:"set"`
}

func (c *coach) getProfileTool() Tool {
	return Tool{
		Name:        "get_profile",
		Description: "Read the athlete profile. Returns set=false and a null profile if none has been saved.",
		Returns:     profileResultSchema(),
		Access:      AccessRead,
		Handler:     c.getProfile,
	}
}

func (c *coach) getProfile(ctx context.Context, call Call) (any, error) {
	profile, err := call.Repo.GetProfile(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return ProfileResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ProfileResult{Profile: profile, Set: true}, nil
}

func (c *coach) updateProfileTool() Tool {
	return Tool{
		Name: "update_profile",
		Description: "Create or update the athlete profile. Only supplied fields change; " +
			"at least one field is required.",
		Args: []Field{
			{Name: "age", Type: TypeInteger, Min: Bound(1), Max: Bound(120), Description: "Age in years"},
			{Name: "weight_kg", Type: TypeNumber, Min: Bound(0), ExclusiveMin: true, Max: Bound(500), Description: "Body weight in kg"},
			{Name: "years_running", Type: TypeInteger, Min: Bound(0), Max: Bound(100), Description: "Years of running experience"},
			{Name: "preferred_terrain", Type: TypeString, MaxLength: 100, Description: "e.g. trail, road, mountain"},
			{Name: "home_lat", Type: TypeNumber, Min: Bound(-90), Max: Bound(90), Description: "Home latitude"},
			{Name: "home_lng", Type: TypeNumber, Min: Bound(-180), Max: Bound(180), Description: "Home longitude"},
			{Name: "home_place", Type: TypeString, MaxLength: 200, Description: "Home place name"},
			{Name: "timezone", Type: TypeString, MaxLength: 64, Check: checkTimezone, Description: "IANA timezone, e.g. America/Denver"},
			{Name: "max_heart_rate", Type: TypeInteger, Min: Bound(100), Max: Bound(250), Description: "Maximum heart rate in bpm"},
			{Name: "weekly_distance_km", Type: TypeNumber, Min: Bound(0), Max: Bound(1000), Description: "Typical weekly distance in km"},
			{Name: "history", Type: TypeString, MaxLength: 4000, Description: "Free-text running history"},
		},
		Check: func(args Args) error {
			if profilePatch(args).IsEmpty() {
				return InvalidArguments("", "at least one profile field is required")
			}
			return nil
		},
		Returns: profileSchema(),
		Access:  AccessWrite,
		Handler: c.updateProfile,
	}
}

func checkTimezone(value any, _ Args) error {
	return models.ValidateTimezone(value.(string))
}

func (c *coach) updateProfile(ctx context.Context, call Call) (any, error) {
	return call.Repo.UpsertProfile(ctx, profilePatch(call.Args))
}

func profilePatch(args Args) models.ProfilePatch {
	var p models.ProfilePatch
	if v, ok := args.Int("age"); ok {
		p.Age = intRef(v)
	}
	if v, ok := args.Float("weight_kg"); ok {
		p.WeightKg = &v
	}
	if v, ok := args.Int("years_running"); ok {
		p.YearsRunning = intRef(v)
	}
	if v, ok := args.String("preferred_terrain"); ok {
		p.PreferredTerrain = &v
	}
	if v, ok := args.Float("home_lat"); ok {
		p.HomeLat = &v
	}
	if v, ok := args.Float("home_lng"); ok {
		p.HomeLng = &v
	}
	if v, ok := args.String("home_place"); ok {
		p.HomePlace = &v
	}
	if v, ok := args.String("timezone"); ok {
		p.Timezone = &v
	}
	if v, ok := args.Int("max_heart_rate"); ok {
		p.MaxHeartRate = intRef(v)
	}
	if v, ok := args.Float("weekly_distance_km"); ok {
		p.WeeklyDistanceKm = &v
	}
	if v, ok := args.String("history"); ok {
		p.History = &v
	}
	return p
}

func intRef(v int64) *int {
	n := int(v)
	return &n
}
