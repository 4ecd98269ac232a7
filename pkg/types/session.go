package types

import (
	"errors"
	"time"
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Session groups the ordered messages of one chat conversation. A session
// with ExpiresAt in the past is treated as gone by the store.
type Session struct {
	ID        string
	UserID    string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt *time.Time // Nullable: nil never expires
}

// Expired reports whether the session has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Message is one turn in a session.
type Message struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
}

// Validate checks the message role and content.
func (m *Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return errors.New("invalid message role")
	}
	if m.Content == "" {
		return errors.New("message content cannot be empty")
	}
	return nil
}
