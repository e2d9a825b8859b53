package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultWelcomeMessage is sent when a tenant has not configured its own.
const DefaultWelcomeMessage = "Hello! How can we help you today?"

// Tenant is the organization that owns agents and conversations.
// Tenant records are administered elsewhere; this service only reads
// the fields the conversation lifecycle needs.
type Tenant struct {
	TenantID       uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name           string    `json:"name" db:"name"`
	WelcomeMessage *string   `json:"welcome_message,omitempty" db:"welcome_message"`
	AgentName      *string   `json:"agent_name,omitempty" db:"agent_name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// WelcomeText returns the tenant's configured welcome message, falling
// back to the platform default.
func (t *Tenant) WelcomeText() string {
	if t.WelcomeMessage != nil && *t.WelcomeMessage != "" {
		return *t.WelcomeMessage
	}
	return DefaultWelcomeMessage
}

// Agent is a support agent account belonging to a tenant. Account
// management lives in the admin surface; this core reads agents only to
// validate claims and tenant provisioning.
type Agent struct {
	AgentID     uuid.UUID `json:"agent_id" db:"agent_id"`
	TenantID    uuid.UUID `json:"tenant_id" db:"tenant_id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AgentPresence is the read-only liveness view of an agent, kept in
// Redis with a TTL refreshed by the agent console's heartbeat.
type AgentPresence struct {
	AgentID    uuid.UUID `json:"agent_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	IsOnline   bool      `json:"is_online"`
	LastActive time.Time `json:"last_active"`
}
