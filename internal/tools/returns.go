// ABOUTME: JSON Schemas describing each tool's return value.
// ABOUTME: Inferred from the Go result types so discovery cannot drift from the wire shape.
package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/harperreed/ultratrainer/internal/models"
	"github.com/harperreed/ultratrainer/internal/strava"
)

// schemaFor infers the schema of T. Result types are fixed at compile time,
// so a failure here is a programming error.
func schemaFor[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		panic(fmt.Sprintf("infer return schema: %v", err))
	}
	return s
}

func arrayOf(items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: items}
}

func enumOf[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// property returns the named property of an object schema, or of the items
// of an array schema.
func property(s *jsonschema.Schema, name string) *jsonschema.Schema {
	if s.Items != nil {
		s = s.Items
	}
	return s.Properties[name]
}

func activitySummarySchema() *jsonschema.Schema {
	return schemaFor[strava.ActivitySummary]()
}

func activityDetailSchema() *jsonschema.Schema {
	return schemaFor[strava.ActivityDetail]()
}

func profileSchema() *jsonschema.Schema {
	return schemaFor[models.AthleteProfile]()
}

func profileResultSchema() *jsonschema.Schema {
	return schemaFor[ProfileResult]()
}

func goalSchema() *jsonschema.Schema {
	return withGoalEnums(schemaFor[models.Goal]())
}

func withGoalEnums(s *jsonschema.Schema) *jsonschema.Schema {
	property(s, "status").Enum = enumOf(models.AllGoalStatuses)
	property(s, "target_date").Format = "date"
	return s
}

func episodeSchema() *jsonschema.Schema {
	return withEpisodeEnums(schemaFor[models.HealthEpisode]())
}

func withEpisodeEnums(s *jsonschema.Schema) *jsonschema.Schema {
	property(s, "kind").Enum = enumOf(models.AllEpisodeKinds)
	severity := property(s, "severity")
	severity.Minimum = Bound(models.MinSeverity)
	severity.Maximum = Bound(models.MaxSeverity)
	return s
}

func turnSchema() *jsonschema.Schema {
	return withTurnEnums(schemaFor[models.ConversationTurn]())
}

func withTurnEnums(s *jsonschema.Schema) *jsonschema.Schema {
	property(s, "role").Enum = enumOf(models.AllTurnRoles)
	return s
}

func removeGoalResultSchema() *jsonschema.Schema {
	s := schemaFor[RemoveGoalResult]()
	s.Properties["status"].Enum = []any{removedDeleted, string(models.GoalCompleted), string(models.GoalAbandoned)}
	return s
}

func contextSummarySchema() *jsonschema.Schema {
	s := schemaFor[ContextSummary]()
	withGoalEnums(s.Properties["active_goals"])
	withEpisodeEnums(s.Properties["recent_episodes"])
	withTurnEnums(s.Properties["recent_turns"])
	return s
}
