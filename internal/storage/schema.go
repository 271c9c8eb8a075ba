// ABOUTME: Schema definition and initialization for SQLite and PostgreSQL.
// ABOUTME: Defines profile, goals, health_episodes, and conversation_turns tables.
package storage

import (
	"context"
	"fmt"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS athlete_profile (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	age INTEGER,
	weight_kg REAL,
	years_running INTEGER,
	preferred_terrain TEXT,
	home_lat REAL,
	home_lng REAL,
	home_place TEXT,
	timezone TEXT,
	max_heart_rate INTEGER,
	weekly_distance_km REAL,
	history TEXT,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	distance_km REAL NOT NULL,
	target_date TEXT NOT NULL,
	target_time_seconds INTEGER,
	status TEXT NOT NULL CHECK (status IN ('active', 'completed', 'abandoned')),
	notes TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS health_episodes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL CHECK (kind IN ('injury', 'fatigue', 'effort')),
	severity INTEGER NOT NULL CHECK (severity BETWEEN 1 AND 10),
	description TEXT NOT NULL,
	location TEXT,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	tools TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_goals_status_date ON goals(status, target_date, id);
CREATE INDEX IF NOT EXISTS idx_goals_date ON goals(target_date, id);
CREATE INDEX IF NOT EXISTS idx_episodes_recorded ON health_episodes(recorded_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_episodes_kind_recorded ON health_episodes(kind, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_turns_session ON conversation_turns(session_id, id);

CREATE TRIGGER IF NOT EXISTS health_episodes_no_update BEFORE UPDATE ON health_episodes
BEGIN SELECT RAISE(ABORT, 'health_episodes is append-only'); END;
CREATE TRIGGER IF NOT EXISTS health_episodes_no_delete BEFORE DELETE ON health_episodes
BEGIN SELECT RAISE(ABORT, 'health_episodes is append-only'); END;
CREATE TRIGGER IF NOT EXISTS conversation_turns_no_update BEFORE UPDATE ON conversation_turns
BEGIN SELECT RAISE(ABORT, 'conversation_turns is append-only'); END;
CREATE TRIGGER IF NOT EXISTS conversation_turns_no_delete BEFORE DELETE ON conversation_turns
BEGIN SELECT RAISE(ABORT, 'conversation_turns is append-only'); END;
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS athlete_profile (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	age INTEGER,
	weight_kg DOUBLE PRECISION,
	years_running INTEGER,
	preferred_terrain TEXT,
	home_lat DOUBLE PRECISION,
	home_lng DOUBLE PRECISION,
	home_place TEXT,
	timezone TEXT,
	max_heart_rate INTEGER,
	weekly_distance_km DOUBLE PRECISION,
	history TEXT,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS goals (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	name TEXT NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL,
	target_date TEXT NOT NULL,
	target_time_seconds INTEGER,
	status TEXT NOT NULL CHECK (status IN ('active', 'completed', 'abandoned')),
	notes TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS health_episodes (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	kind TEXT NOT NULL CHECK (kind IN ('injury', 'fatigue', 'effort')),
	severity INTEGER NOT NULL CHECK (severity BETWEEN 1 AND 10),
	description TEXT NOT NULL,
	location TEXT,
	recorded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_turns (
	id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content TEXT NOT NULL,
	tools TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_goals_status_date ON goals(status, target_date, id);
CREATE INDEX IF NOT EXISTS idx_goals_date ON goals(target_date, id);
CREATE INDEX IF NOT EXISTS idx_episodes_recorded ON health_episodes(recorded_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_episodes_kind_recorded ON health_episodes(kind, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_turns_session ON conversation_turns(session_id, id);

CREATE OR REPLACE FUNCTION reject_append_only_mutation() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION '% is append-only', TG_TABLE_NAME;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS health_episodes_append_only ON health_episodes;
CREATE TRIGGER health_episodes_append_only BEFORE UPDATE OR DELETE ON health_episodes
	FOR EACH ROW EXECUTE FUNCTION reject_append_only_mutation();

DROP TRIGGER IF EXISTS conversation_turns_append_only ON conversation_turns;
CREATE TRIGGER conversation_turns_append_only BEFORE UPDATE OR DELETE ON conversation_turns
	FOR EACH ROW EXECUTE FUNCTION reject_append_only_mutation();
`

// initSchema creates or updates the database schema.
func (d *DB) initSchema(ctx context.Context) error {
	schema := sqliteSchema
	if d.dialect == DialectPostgres {
		schema = postgresSchema
	}

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
