package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportdesk-backend/internal/domain"
)

// ConversationRepository owns the conversations table. Every mutating
// method is a single conditional statement: status transitions commit
// only if the expected precondition still holds at write time, so two
// racing callers can never both observe success.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository creates a new conversation repository.
func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

const conversationColumns = `conversation_id, tenant_id, agent_id, customer_name, customer_email, type, status, created_at, last_active_at, ended_at`

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	conv := &domain.Conversation{}
	err := row.Scan(
		&conv.ConversationID,
		&conv.TenantID,
		&conv.AgentID,
		&conv.CustomerName,
		&conv.CustomerEmail,
		&conv.Type,
		&conv.Status,
		&conv.CreatedAt,
		&conv.LastActiveAt,
		&conv.EndedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}
	return conv, nil
}

// Create inserts a new WAITING conversation.
func (r *ConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	query := `
		INSERT INTO conversations (
			conversation_id, tenant_id, agent_id, customer_name, customer_email,
			type, status, created_at, last_active_at, ended_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		conv.ConversationID,
		conv.TenantID,
		conv.AgentID,
		conv.CustomerName,
		conv.CustomerEmail,
		conv.Type,
		conv.Status,
		conv.CreatedAt,
		conv.LastActiveAt,
		conv.EndedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetByID retrieves a conversation by ID.
func (r *ConversationRepository) GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE conversation_id = $1`
	return scanConversation(r.pool.QueryRow(ctx, query, conversationID))
}

// Claim atomically assigns the conversation to an agent: the update
// commits only if the row is still WAITING, so of N concurrent claims
// exactly one succeeds. Losing callers get domain.ErrClaimConflict;
// an unknown conversation gets domain.ErrNotFound.
func (r *ConversationRepository) Claim(ctx context.Context, conversationID, agentID uuid.UUID, now time.Time) (*domain.Conversation, error) {
	query := `
		UPDATE conversations
		SET agent_id = $2, status = $3, last_active_at = $4
		WHERE conversation_id = $1 AND status = $5
		RETURNING ` + conversationColumns

	conv, err := scanConversation(r.pool.QueryRow(ctx, query,
		conversationID, agentID, domain.StatusActive, now, domain.StatusWaiting))
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// Zero rows: either the conversation is gone or someone else won.
	if _, getErr := r.GetByID(ctx, conversationID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrClaimConflict
}

// TransitionStatus moves a conversation from an expected status to a new
// one in a single conditional update. Transitions into ENDED stamp
// ended_at; every other target clears it. Returns domain.ErrNotFound if
// the row no longer matches the expected status (the caller re-reads and
// re-decides) or does not exist.
func (r *ConversationRepository) TransitionStatus(ctx context.Context, conversationID uuid.UUID, from, to domain.ConversationStatus, now time.Time) (*domain.Conversation, error) {
	query := `
		UPDATE conversations
		SET status = $2,
		    last_active_at = $3,
		    ended_at = CASE WHEN $2 = 'ENDED' THEN $3 ELSE NULL END
		WHERE conversation_id = $1 AND status = $4
		RETURNING ` + conversationColumns

	return scanConversation(r.pool.QueryRow(ctx, query, conversationID, to, now, from))
}

// Touch refreshes last_active_at unless the conversation has ended.
// A heartbeat against an ENDED conversation is accepted silently and
// never resurrects it.
func (r *ConversationRepository) Touch(ctx context.Context, conversationID uuid.UUID, now time.Time) error {
	query := `
		UPDATE conversations
		SET last_active_at = $2
		WHERE conversation_id = $1 AND status <> $3
	`

	tag, err := r.pool.Exec(ctx, query, conversationID, now, domain.StatusEnded)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Either ENDED (fine) or missing (not found).
	_, err = r.GetByID(ctx, conversationID)
	return err
}

// MarkInactive demotes the conversation to INACTIVE unless it has
// already ended; the terminal state always wins over a late disconnect
// signal.
func (r *ConversationRepository) MarkInactive(ctx context.Context, conversationID uuid.UUID, now time.Time) error {
	query := `
		UPDATE conversations
		SET status = $2, last_active_at = $3
		WHERE conversation_id = $1 AND status <> $4
	`

	tag, err := r.pool.Exec(ctx, query, conversationID, domain.StatusInactive, now, domain.StatusEnded)
	if err != nil {
		return fmt.Errorf("failed to mark conversation inactive: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = r.GetByID(ctx, conversationID)
	return err
}

// ListStaleActive returns the ids of ACTIVE conversations whose last
// activity is older than the cutoff. Sweep candidates only: the actual
// demotion re-checks the condition per row in DemoteIfStale.
func (r *ConversationRepository) ListStaleActive(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT conversation_id FROM conversations
		WHERE status = $1 AND last_active_at < $2
		ORDER BY last_active_at ASC
	`

	rows, err := r.pool.Query(ctx, query, domain.StatusActive, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale conversations: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// DemoteIfStale marks one conversation INACTIVE only if it is still
// ACTIVE and still stale at commit time. A heartbeat or message that
// lands between the sweep's select and this update makes the condition
// fail, which is the desired outcome. Returns whether a demotion
// happened.
func (r *ConversationRepository) DemoteIfStale(ctx context.Context, conversationID uuid.UUID, cutoff time.Time) (bool, error) {
	query := `
		UPDATE conversations
		SET status = $2
		WHERE conversation_id = $1 AND status = $3 AND last_active_at < $4
	`

	tag, err := r.pool.Exec(ctx, query, conversationID, domain.StatusInactive, domain.StatusActive, cutoff)
	if err != nil {
		return false, fmt.Errorf("failed to demote conversation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByStatus returns a tenant's conversations in one status, oldest
// first, for the agent-console queue views.
func (r *ConversationRepository) ListByStatus(ctx context.Context, tenantID uuid.UUID, status domain.ConversationStatus, limit int) ([]*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE tenant_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, tenantID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

// ListByAgent returns the conversations currently assigned to an agent,
// most recently active first.
func (r *ConversationRepository) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE agent_id = $1
		ORDER BY last_active_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}
