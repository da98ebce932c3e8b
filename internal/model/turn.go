// Package model defines data structures shared across the assistant API.
package model

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one role-tagged message in a conversation. Turns are immutable once
// appended; insertion order is the only ordering guarantee.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the full persisted conversation state: an ordered sequence of
// turns per conversation id.
type History map[string][]Turn
