package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus is the lifecycle state of a conversation.
type ConversationStatus string

const (
	StatusWaiting  ConversationStatus = "WAITING"
	StatusActive   ConversationStatus = "ACTIVE"
	StatusInactive ConversationStatus = "INACTIVE"
	StatusEnded    ConversationStatus = "ENDED"
)

// ConversationType distinguishes plain chat from a promoted video call.
type ConversationType string

const (
	TypeChat ConversationType = "CHAT"
	TypeCall ConversationType = "CALL"
)

// Conversation represents a support conversation between an anonymous
// customer and one agent of a tenant.
// Maps to the conversations table.
//
// AgentID is nil exactly while the conversation is WAITING; it is set
// once by a successful claim and never changes afterwards.
// EndedAt is set exactly when the conversation transitions to ENDED.
type Conversation struct {
	ConversationID uuid.UUID          `json:"conversation_id" db:"conversation_id"`
	TenantID       uuid.UUID          `json:"tenant_id" db:"tenant_id"`
	AgentID        *uuid.UUID         `json:"agent_id,omitempty" db:"agent_id"`
	CustomerName   string             `json:"customer_name" db:"customer_name"`
	CustomerEmail  *string            `json:"customer_email,omitempty" db:"customer_email"`
	Type           ConversationType   `json:"type" db:"type"`
	Status         ConversationStatus `json:"status" db:"status"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
	LastActiveAt   time.Time          `json:"last_active_at" db:"last_active_at"`
	EndedAt        *time.Time         `json:"ended_at,omitempty" db:"ended_at"`
}

// IsEnded reports whether the conversation is in its terminal state.
func (c *Conversation) IsEnded() bool {
	return c.Status == StatusEnded
}

// ValidStatus reports whether s is one of the four lifecycle states.
func ValidStatus(s ConversationStatus) bool {
	switch s {
	case StatusWaiting, StatusActive, StatusInactive, StatusEnded:
		return true
	}
	return false
}

// CanTransition reports whether a conversation may move from one status
// to another via SetStatus. ENDED is terminal. WAITING is never a
// transition target, and it is never a SetStatus source either: a
// WAITING conversation leaves that state only through a claim (which
// assigns the agent) or a decline.
func CanTransition(from, to ConversationStatus) bool {
	if from == StatusEnded {
		return false
	}
	switch to {
	case StatusActive:
		return from == StatusInactive || from == StatusActive
	case StatusInactive:
		return from == StatusActive || from == StatusInactive
	case StatusEnded:
		return true
	}
	return false
}

// ConversationCreate carries the customer-supplied fields of the
// widget's "start conversation" call.
type ConversationCreate struct {
	TenantID       uuid.UUID `json:"tenant_id" binding:"required"`
	CustomerName   string    `json:"customer_name"`
	CustomerEmail  *string   `json:"customer_email,omitempty"`
	InitialMessage string    `json:"initial_message,omitempty"`
}

// QueueEntry is the agent-console view of a conversation in a queue
// listing: the conversation plus the most recent message, if any.
type QueueEntry struct {
	Conversation Conversation `json:"conversation"`
	LastMessage  *Message     `json:"last_message,omitempty"`
}
