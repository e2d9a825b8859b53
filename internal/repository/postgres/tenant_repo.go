package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportdesk-backend/internal/domain"
)

// TenantRepository reads tenant and agent records. Both are administered
// by the out-of-scope admin surface; the lifecycle engine only needs
// existence checks, the welcome text, and tenant membership of agents.
type TenantRepository struct {
	pool *pgxpool.Pool
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// GetTenant retrieves a tenant by ID.
func (r *TenantRepository) GetTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT tenant_id, name, welcome_message, agent_name, created_at
		FROM tenants
		WHERE tenant_id = $1
	`

	tenant := &domain.Tenant{}
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&tenant.TenantID,
		&tenant.Name,
		&tenant.WelcomeMessage,
		&tenant.AgentName,
		&tenant.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return tenant, nil
}

// CountAgents returns the number of agent accounts provisioned for a
// tenant. A tenant with zero agents cannot receive conversations.
func (r *TenantRepository) CountAgents(ctx context.Context, tenantID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM agents WHERE tenant_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count agents: %w", err)
	}

	return count, nil
}

// GetAgent retrieves an agent by ID.
func (r *TenantRepository) GetAgent(ctx context.Context, agentID uuid.UUID) (*domain.Agent, error) {
	query := `
		SELECT agent_id, tenant_id, display_name, created_at
		FROM agents
		WHERE agent_id = $1
	`

	agent := &domain.Agent{}
	err := r.pool.QueryRow(ctx, query, agentID).Scan(
		&agent.AgentID,
		&agent.TenantID,
		&agent.DisplayName,
		&agent.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	return agent, nil
}
