// ABOUTME: Tests for Repository implementations.
// ABOUTME: Verifies profile, goal, episode, and turn operations using SQLite.
package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harperreed/ultratrainer/internal/models"
)

func TestGetProfileEmptyStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.View(ctx, func(repo Repository) error {
		_, err := repo.GetProfile(ctx)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertProfileMergesFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	age := 41
	terrain := "trail"
	weight := 68.5

	err := db.Update(ctx, func(repo Repository) error {
		_, err := repo.UpsertProfile(ctx, models.ProfilePatch{Age: &age, PreferredTerrain: &terrain})
		return err
	})
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	var got *models.AthleteProfile
	err = db.Update(ctx, func(repo Repository) error {
		var err error
		got, err = repo.UpsertProfile(ctx, models.ProfilePatch{WeightKg: &weight})
		return err
	})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	if got.Age == nil || *got.Age != 41 {
		t.Errorf("Age lost on merge: %v", got.Age)
	}
	if got.PreferredTerrain == nil || *got.PreferredTerrain != "trail" {
		t.Errorf("PreferredTerrain lost on merge: %v", got.PreferredTerrain)
	}
	if got.WeightKg == nil || *got.WeightKg != 68.5 {
		t.Errorf("WeightKg mismatch: %v", got.WeightKg)
	}
	if got.HomePlace != nil {
		t.Errorf("HomePlace should be unset, got %v", *got.HomePlace)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestCreateAndGetGoal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	g := models.NewGoal("Western States", 161, "2027-06-26").WithTargetTime(86400 - 1).WithNotes("silver buckle")
	if err := db.Update(ctx, func(repo Repository) error { return repo.CreateGoal(ctx, g) }); err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}
	if g.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	var got *models.Goal
	err := db.View(ctx, func(repo Repository) error {
		var err error
		got, err = repo.GetGoal(ctx, g.ID)
		return err
	})
	if err != nil {
		t.Fatalf("GetGoal failed: %v", err)
	}

	if got.Name != "Western States" {
		t.Errorf("Name mismatch: got %q", got.Name)
	}
	if got.Status != models.GoalActive {
		t.Errorf("Status mismatch: got %q", got.Status)
	}
	if got.TargetTimeSeconds == nil || *got.TargetTimeSeconds != 86399 {
		t.Errorf("TargetTimeSeconds mismatch: got %v", got.TargetTimeSeconds)
	}
	if got.TargetTime == nil || *got.TargetTime != "23:59:59" {
		t.Errorf("TargetTime mismatch: got %v", got.TargetTime)
	}
	if got.Notes == nil || *got.Notes != "silver buckle" {
		t.Errorf("Notes mismatch: got %v", got.Notes)
	}
}

func TestListGoalsOrderingAndFilter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	goals := []*models.Goal{
		models.NewGoal("C", 50, "2027-03-01"),
		models.NewGoal("A", 42.2, "2027-01-15"),
		models.NewGoal("B", 100, "2027-03-01"),
	}
	err := db.Update(ctx, func(repo Repository) error {
		for _, g := range goals {
			if err := repo.CreateGoal(ctx, g); err != nil {
				return err
			}
		}
		_, err := repo.SetGoalStatus(ctx, goals[1].ID, models.GoalCompleted)
		return err
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	var all, active []*models.Goal
	err = db.View(ctx, func(repo Repository) error {
		var err error
		if all, err = repo.ListGoals(ctx, nil); err != nil {
			return err
		}
		status := models.GoalActive
		active, err = repo.ListGoals(ctx, &status)
		return err
	})
	if err != nil {
		t.Fatalf("ListGoals failed: %v", err)
	}

	wantAll := []string{"A", "C", "B"}
	if len(all) != len(wantAll) {
		t.Fatalf("expected %d goals, got %d", len(wantAll), len(all))
	}
	for i, name := range wantAll {
		if all[i].Name != name {
			t.Errorf("position %d: got %q, want %q", i, all[i].Name, name)
		}
	}

	if len(active) != 2 || active[0].Name != "C" || active[1].Name != "B" {
		t.Errorf("unexpected active goals: %+v", active)
	}
}

func TestSetGoalStatusMonotonic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	g := models.NewGoal("UTMB", 171, "2027-08-27")
	if err := db.Update(ctx, func(repo Repository) error { return repo.CreateGoal(ctx, g) }); err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}

	err := db.Update(ctx, func(repo Repository) error {
		_, err := repo.SetGoalStatus(ctx, g.ID, models.GoalAbandoned)
		return err
	})
	if err != nil {
		t.Fatalf("abandon failed: %v", err)
	}

	tests := []models.GoalStatus{models.GoalActive, models.GoalCompleted, models.GoalAbandoned}
	for _, next := range tests {
		err := db.Update(ctx, func(repo Repository) error {
			_, err := repo.SetGoalStatus(ctx, g.ID, next)
			return err
		})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("abandoned -> %s: expected ErrInvalidTransition, got %v", next, err)
		}
	}
}

func TestSetGoalStatusNotFound(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Update(ctx, func(repo Repository) error {
		_, err := repo.SetGoalStatus(ctx, 999, models.GoalCompleted)
		return err
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteGoal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	g := models.NewGoal("Local 50k", 50, "2027-04-10")
	if err := db.Update(ctx, func(repo Repository) error { return repo.CreateGoal(ctx, g) }); err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}

	if err := db.Update(ctx, func(repo Repository) error { return repo.DeleteGoal(ctx, g.ID) }); err != nil {
		t.Fatalf("DeleteGoal failed: %v", err)
	}

	err := db.Update(ctx, func(repo Repository) error { return repo.DeleteGoal(ctx, g.ID) })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestEpisodesNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	db.now = steppingClock(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), time.Hour)
	ctx := context.Background()

	episodes := []*models.HealthEpisode{
		models.NewHealthEpisode(models.EpisodeFatigue, 4, "heavy legs"),
		models.NewHealthEpisode(models.EpisodeInjury, 6, "sore achilles").WithLocation("left achilles"),
		models.NewHealthEpisode(models.EpisodeEffort, 8, "hill repeats"),
	}
	err := db.Update(ctx, func(repo Repository) error {
		for _, e := range episodes {
			if err := repo.AppendEpisode(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AppendEpisode failed: %v", err)
	}

	var got []*models.HealthEpisode
	err = db.View(ctx, func(repo Repository) error {
		var err error
		got, err = repo.ListEpisodes(ctx, EpisodeFilter{})
		return err
	})
	if err != nil {
		t.Fatalf("ListEpisodes failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(got))
	}
	if got[0].Description != "hill repeats" || got[2].Description != "heavy legs" {
		t.Errorf("unexpected order: %q, %q, %q", got[0].Description, got[1].Description, got[2].Description)
	}
	if got[1].Location == nil || *got[1].Location != "left achilles" {
		t.Errorf("Location mismatch: %v", got[1].Location)
	}
	if !got[0].RecordedAt.After(got[1].RecordedAt) {
		t.Errorf("RecordedAt not descending: %v then %v", got[0].RecordedAt, got[1].RecordedAt)
	}
}

func TestEpisodesSameTimestampTieBreak(t *testing.T) {
	db := setupTestDB(t)
	fixed := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }
	ctx := context.Background()

	err := db.Update(ctx, func(repo Repository) error {
		for _, desc := range []string{"first", "second", "third"} {
			if err := repo.AppendEpisode(ctx, models.NewHealthEpisode(models.EpisodeFatigue, 3, desc)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AppendEpisode failed: %v", err)
	}

	var got []*models.HealthEpisode
	err = db.View(ctx, func(repo Repository) error {
		var err error
		got, err = repo.ListEpisodes(ctx, EpisodeFilter{})
		return err
	})
	if err != nil {
		t.Fatalf("ListEpisodes failed: %v", err)
	}

	want := []string{"third", "second", "first"}
	for i, desc := range want {
		if got[i].Description != desc {
			t.Errorf("position %d: got %q, want %q", i, got[i].Description, desc)
		}
	}
}

func TestEpisodesFilter(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	db.now = steppingClock(start, 24*time.Hour)
	ctx := context.Background()

	kinds := []models.EpisodeKind{
		models.EpisodeInjury, models.EpisodeFatigue, models.EpisodeInjury, models.EpisodeEffort,
	}
	err := db.Update(ctx, func(repo Repository) error {
		for _, k := range kinds {
			if err := repo.AppendEpisode(ctx, models.NewHealthEpisode(k, 5, string(k))); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AppendEpisode failed: %v", err)
	}

	injury := models.EpisodeInjury
	since := start.Add(36 * time.Hour)

	tests := []struct {
		name   string
		filter EpisodeFilter
		want   int
	}{
		{"all", EpisodeFilter{}, 4},
		{"kind", EpisodeFilter{Kind: &injury}, 2},
		{"since", EpisodeFilter{Since: &since}, 2},
		{"kind and since", EpisodeFilter{Kind: &injury, Since: &since}, 1},
		{"limit", EpisodeFilter{Limit: 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []*models.HealthEpisode
			err := db.View(ctx, func(repo Repository) error {
				var err error
				got, err = repo.ListEpisodes(ctx, tt.filter)
				return err
			})
			if err != nil {
				t.Fatalf("ListEpisodes failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d episodes, want %d", len(got), tt.want)
			}
		})
	}
}

func TestListTurnsLastN(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Update(ctx, func(repo Repository) error {
		for i, content := range []string{"one", "two", "three", "four"} {
			session := "s1"
			if i%2 == 1 {
				session = "s2"
			}
			turn := models.NewConversationTurn(session, models.RoleUser, content)
			if content == "three" {
				turn.Tools = []string{"list_goals", "get_profile"}
			}
			if err := repo.AppendTurn(ctx, turn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	var last, session []*models.ConversationTurn
	err = db.View(ctx, func(repo Repository) error {
		var err error
		if last, err = repo.ListTurns(ctx, TurnFilter{Limit: 2}); err != nil {
			return err
		}
		session, err = repo.ListTurns(ctx, TurnFilter{SessionID: "s1"})
		return err
	})
	if err != nil {
		t.Fatalf("ListTurns failed: %v", err)
	}

	if len(last) != 2 || last[0].Content != "three" || last[1].Content != "four" {
		t.Fatalf("unexpected last turns: %+v", last)
	}
	if len(last[0].Tools) != 2 || last[0].Tools[0] != "list_goals" {
		t.Errorf("Tools mismatch: %v", last[0].Tools)
	}
	if last[1].Tools == nil || len(last[1].Tools) != 0 {
		t.Errorf("expected empty tools slice, got %v", last[1].Tools)
	}

	if len(session) != 2 || session[0].Content != "one" || session[1].Content != "three" {
		t.Errorf("unexpected session turns: %+v", session)
	}
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ultratrainer-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	dbPath := filepath.Join(tmpDir, "ultratrainer.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(step)
		return now
	}
}
