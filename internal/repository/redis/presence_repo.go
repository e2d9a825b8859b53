package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"supportdesk-backend/internal/database"
	"supportdesk-backend/internal/domain"
)

// PresenceTTL is how long an agent stays online without a refresh.
const PresenceTTL = 5 * time.Minute

// PresenceRepository keeps agent online/offline status in Redis.
// Presence is collaborator state the lifecycle engine consumes
// read-mostly: a TTL key per agent that the console's heartbeat
// refreshes, plus a per-tenant set for quick listing. An abandoned
// console simply expires.
type PresenceRepository struct {
	client *database.RedisClient
}

// NewPresenceRepository creates a new PresenceRepository.
func NewPresenceRepository(client *database.RedisClient) *PresenceRepository {
	return &PresenceRepository{client: client}
}

func presenceKey(agentID uuid.UUID) string {
	return fmt.Sprintf("presence:agent:%s", agentID)
}

func tenantOnlineKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("presence:tenant:%s:online", tenantID)
}

// SetOnline marks an agent as online for its tenant.
func (r *PresenceRepository) SetOnline(ctx context.Context, tenantID, agentID uuid.UUID) error {
	now := time.Now().UTC()

	err := r.client.SafeSet(ctx, presenceKey(agentID), now.Format(time.RFC3339), PresenceTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to set agent online: %w", err)
	}

	if err := r.client.SafeSAdd(ctx, tenantOnlineKey(tenantID), agentID.String()).Err(); err != nil {
		return fmt.Errorf("failed to add to online set: %w", err)
	}

	return nil
}

// SetOffline marks an agent as offline.
func (r *PresenceRepository) SetOffline(ctx context.Context, tenantID, agentID uuid.UUID) error {
	if err := r.client.SafeDel(ctx, presenceKey(agentID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}

	if err := r.client.SafeSRem(ctx, tenantOnlineKey(tenantID), agentID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove from online set: %w", err)
	}

	return nil
}

// Refresh extends an agent's online TTL (console heartbeat).
func (r *PresenceRepository) Refresh(ctx context.Context, agentID uuid.UUID) error {
	if err := r.client.SafeExpire(ctx, presenceKey(agentID), PresenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}
	return nil
}

// IsOnline checks whether an agent's presence key is live.
func (r *PresenceRepository) IsOnline(ctx context.Context, agentID uuid.UUID) (bool, error) {
	exists, err := r.client.SafeExists(ctx, presenceKey(agentID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}
	return exists > 0, nil
}

// ListOnline returns presence entries for a tenant's currently online
// agents. Set members whose TTL key already expired are pruned as a
// side effect.
func (r *PresenceRepository) ListOnline(ctx context.Context, tenantID uuid.UUID) ([]domain.AgentPresence, error) {
	members, err := r.client.SafeSMembers(ctx, tenantOnlineKey(tenantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list online agents: %w", err)
	}

	presences := make([]domain.AgentPresence, 0, len(members))
	for _, member := range members {
		agentID, err := uuid.Parse(member)
		if err != nil {
			continue
		}

		val, err := r.client.SafeGet(ctx, presenceKey(agentID)).Result()
		if err != nil {
			// Expired key: this agent went silent. Prune lazily.
			r.client.SafeSRem(ctx, tenantOnlineKey(tenantID), member)
			continue
		}

		lastActive, _ := time.Parse(time.RFC3339, val)
		presences = append(presences, domain.AgentPresence{
			AgentID:    agentID,
			TenantID:   tenantID,
			IsOnline:   true,
			LastActive: lastActive,
		})
	}

	return presences, nil
}

// IsDegraded reports whether Redis is in degraded mode.
func (r *PresenceRepository) IsDegraded() bool {
	return r.client.IsDegraded()
}
