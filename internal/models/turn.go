// ABOUTME: ConversationTurn model for persistent conversation memory.
// ABOUTME: Turns are append-only and ordered by arrival.
package models

import "time"

// TurnRole identifies who produced a conversation turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// AllTurnRoles lists every valid role.
var AllTurnRoles = []TurnRole{RoleUser, RoleAssistant}

// IsValidTurnRole checks if a string is a valid role.
func IsValidTurnRole(s string) bool {
	for _, r := range AllTurnRoles {
		if string(r) == s {
			return true
		}
	}
	return false
}

// ConversationTurn is one message in a coaching conversation.
type ConversationTurn struct {
	ID        int64     `json:"id" yaml:"id"`
	SessionID string    `json:"session_id" yaml:"session_id"`
	Role      TurnRole  `json:"role" yaml:"role"`
	Content   string    `json:"content" yaml:"content"`
	Tools     []string  `json:"tools" yaml:"tools,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewConversationTurn creates a turn. ID and CreatedAt are set by storage.
func NewConversationTurn(sessionID string, role TurnRole, content string) *ConversationTurn {
	return &ConversationTurn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Tools:     []string{},
	}
}
