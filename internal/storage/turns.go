// ABOUTME: Append-only conversation memory.
// ABOUTME: ListTurns returns the most recent N turns in arrival order.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harperreed/ultratrainer/internal/models"
)

// AppendTurn records a conversation turn and sets its ID and CreatedAt.
func (r *txRepo) AppendTurn(ctx context.Context, t *models.ConversationTurn) error {
	if !models.IsValidTurnRole(string(t.Role)) {
		return fmt.Errorf("%w: turn role %q", ErrInvalidRecord, t.Role)
	}
	if t.Tools == nil {
		t.Tools = []string{}
	}
	tools, err := json.Marshal(t.Tools)
	if err != nil {
		return fmt.Errorf("encode turn tools: %w", err)
	}
	t.CreatedAt = r.timestamp()

	query := `
		INSERT INTO conversation_turns (session_id, role, content, tools, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`
	err = r.queryRow(ctx, query,
		t.SessionID, string(t.Role), t.Content, string(tools), formatTime(t.CreatedAt),
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// ListTurns returns the last Limit turns (all if Limit is 0), oldest first.
func (r *txRepo) ListTurns(ctx context.Context, filter TurnFilter) ([]*models.ConversationTurn, error) {
	inner := `SELECT id, session_id, role, content, tools, created_at FROM conversation_turns`
	var args []any
	if filter.SessionID != "" {
		inner += ` WHERE session_id = ?`
		args = append(args, filter.SessionID)
	}
	inner += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		inner += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	query := `SELECT id, session_id, role, content, tools, created_at FROM (` + inner + `) recent ORDER BY id ASC`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := []*models.ConversationTurn{}
	for rows.Next() {
		var (
			t                models.ConversationTurn
			role             string
			tools, createdAt string
		)
		if err := rows.Scan(&t.ID, &t.SessionID, &role, &t.Content, &tools, &createdAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = models.TurnRole(role)
		if err := json.Unmarshal([]byte(tools), &t.Tools); err != nil {
			return nil, fmt.Errorf("decode turn tools: %w", err)
		}
		if t.Tools == nil {
			t.Tools = []string{}
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}
