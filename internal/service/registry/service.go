package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supportdesk-backend/internal/domain"
	"supportdesk-backend/pkg/metrics"
)

// System message texts emitted by lifecycle transitions.
const (
	AgentJoinedMessage = "Agent has joined the conversation"
	DeclinedMessage    = "Conversation was declined by an agent"
)

// ConversationStore is the registry's view of conversation persistence.
// Every transition method must be atomic against the backing store:
// Claim and TransitionStatus commit only if their status precondition
// still holds at write time.
type ConversationStore interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error)
	Claim(ctx context.Context, conversationID, agentID uuid.UUID, now time.Time) (*domain.Conversation, error)
	TransitionStatus(ctx context.Context, conversationID uuid.UUID, from, to domain.ConversationStatus, now time.Time) (*domain.Conversation, error)
	Touch(ctx context.Context, conversationID uuid.UUID, now time.Time) error
	MarkInactive(ctx context.Context, conversationID uuid.UUID, now time.Time) error
	ListByStatus(ctx context.Context, tenantID uuid.UUID, status domain.ConversationStatus, limit int) ([]*domain.Conversation, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]*domain.Conversation, error)
}

// MessageStore is the registry's write path into the message log. The
// registry appends welcome and lifecycle system messages directly; the
// ended-conversation guard of the synchronizer does not apply to these
// transition-time appends.
type MessageStore interface {
	Append(ctx context.Context, message *domain.Message) error
	Latest(ctx context.Context, conversationID uuid.UUID, start time.Time) (*domain.Message, error)
}

// TenantDirectory is the read-only collaborator that supplies tenant
// and agent identity.
type TenantDirectory interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error)
	CountAgents(ctx context.Context, tenantID uuid.UUID) (int, error)
	GetAgent(ctx context.Context, agentID uuid.UUID) (*domain.Agent, error)
}

// PresenceChecker reports whether an agent currently has a live
// presence entry. Presence gates claim eligibility only; it never
// affects conversations an agent already holds.
type PresenceChecker interface {
	IsOnline(ctx context.Context, agentID uuid.UUID) (bool, error)
}

// Service is the conversation registry: it owns every status
// transition of a conversation. All other components mutate
// conversation state only through this service.
type Service struct {
	conversations ConversationStore
	messages      MessageStore
	tenants       TenantDirectory
	presence      PresenceChecker
	logger        *zap.Logger

	// clock is injectable for deterministic tests.
	clock func() time.Time
}

// NewService creates a new registry service. presence may be nil, in
// which case claims are not gated on agent presence.
func NewService(conversations ConversationStore, messages MessageStore, tenants TenantDirectory, presence PresenceChecker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		conversations: conversations,
		messages:      messages,
		tenants:       tenants,
		presence:      presence,
		logger:        logger,
		clock:         time.Now,
	}
}

// Create opens a new WAITING conversation for a tenant. The tenant
// must exist and have at least one agent account provisioned. The
// customer's opening message (if any) and the tenant's welcome message
// are appended to the new log.
func (s *Service) Create(ctx context.Context, input *domain.ConversationCreate) (*domain.Conversation, error) {
	if input.TenantID == uuid.Nil {
		return nil, domain.ErrInvalidArgument
	}

	tenant, err := s.tenants.GetTenant(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}

	agentCount, err := s.tenants.CountAgents(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if agentCount == 0 {
		return nil, domain.ErrNoAgentsAvailable
	}

	now := s.clock().UTC()
	customerName := input.CustomerName
	if customerName == "" {
		customerName = "Anonymous"
	}

	conv := &domain.Conversation{
		ConversationID: uuid.New(),
		TenantID:       input.TenantID,
		AgentID:        nil, // set by the winning claim, never before
		CustomerName:   customerName,
		CustomerEmail:  input.CustomerEmail,
		Type:           domain.TypeChat,
		Status:         domain.StatusWaiting,
		CreatedAt:      now,
		LastActiveAt:   now,
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	if input.InitialMessage != "" {
		if err := s.appendSystem(ctx, conv, domain.SenderCustomer, input.InitialMessage); err != nil {
			return nil, err
		}
	}

	// The welcome message is authored as the agent side, matching how
	// the widget renders it.
	if err := s.appendSystem(ctx, conv, domain.SenderAgent, tenant.WelcomeText()); err != nil {
		return nil, err
	}

	metrics.ConversationCreatedTotal.Inc()
	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ConversationID.String()),
		zap.String("tenant_id", conv.TenantID.String()),
	)

	return conv, nil
}

// Claim atomically assigns a WAITING conversation to an agent. Exactly
// one of any number of concurrent claimants succeeds; the rest receive
// domain.ErrClaimConflict and should refresh their queue view. On
// success a system message announces the join.
func (s *Service) Claim(ctx context.Context, conversationID, agentID uuid.UUID) (*domain.Conversation, error) {
	agent, err := s.tenants.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if s.presence != nil {
		online, err := s.presence.IsOnline(ctx, agentID)
		if err != nil {
			// Presence store unavailable: let the claim through rather
			// than block the whole tenant on Redis.
			s.logger.Warn("presence check failed, allowing claim",
				zap.String("agent_id", agentID.String()),
				zap.Error(err),
			)
		} else if !online {
			return nil, domain.ErrAgentOffline
		}
	}

	cur, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if cur.TenantID != agent.TenantID {
		return nil, domain.ErrInvalidArgument
	}

	now := s.clock().UTC()
	conv, err := s.conversations.Claim(ctx, conversationID, agentID, now)
	if err != nil {
		if errors.Is(err, domain.ErrClaimConflict) {
			// Expected outcome of the race, not an error condition.
			metrics.ConversationClaimConflictTotal.Inc()
			return nil, err
		}
		return nil, err
	}

	if err := s.appendSystem(ctx, conv, domain.SenderSystem, AgentJoinedMessage); err != nil {
		return nil, err
	}

	metrics.ConversationClaimedTotal.Inc()
	s.logger.Info("conversation claimed",
		zap.String("conversation_id", conversationID.String()),
		zap.String("agent_id", agentID.String()),
	)

	return conv, nil
}

// Decline ends a WAITING conversation without claiming it. Only legal
// from WAITING; any other state returns domain.ErrNotWaiting.
func (s *Service) Decline(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	now := s.clock().UTC()

	conv, err := s.conversations.TransitionStatus(ctx, conversationID, domain.StatusWaiting, domain.StatusEnded, now)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		// Distinguish "gone" from "no longer waiting".
		if _, getErr := s.conversations.GetByID(ctx, conversationID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrNotWaiting
	}

	if err := s.appendSystem(ctx, conv, domain.SenderSystem, DeclinedMessage); err != nil {
		return nil, err
	}

	metrics.ConversationDeclinedTotal.Inc()
	metrics.ConversationEndedTotal.Inc()
	s.logger.Info("conversation declined",
		zap.String("conversation_id", conversationID.String()),
	)

	return conv, nil
}

// SetStatus is the general transition entry point for ACTIVE, INACTIVE
// and ENDED targets. Transitions into ENDED stamp endedAt and are
// idempotent: ending an already-ended conversation returns it unchanged
// with no repeated side effects. WAITING is never a valid target.
func (s *Service) SetStatus(ctx context.Context, conversationID uuid.UUID, status domain.ConversationStatus, actor domain.MessageSender) (*domain.Conversation, error) {
	if !domain.ValidStatus(status) || status == domain.StatusWaiting {
		return nil, domain.ErrInvalidTransition
	}

	// The conditional update can lose a race with a concurrent
	// transition; re-read and re-decide a bounded number of times.
	for attempt := 0; attempt < 3; attempt++ {
		cur, err := s.conversations.GetByID(ctx, conversationID)
		if err != nil {
			return nil, err
		}

		if cur.Status == domain.StatusEnded {
			if status == domain.StatusEnded {
				return cur, nil // idempotent: no second ENDED side effects
			}
			return nil, domain.ErrInvalidTransition
		}
		if !domain.CanTransition(cur.Status, status) {
			return nil, domain.ErrInvalidTransition
		}
		if cur.Status == status {
			return cur, nil
		}

		now := s.clock().UTC()
		conv, err := s.conversations.TransitionStatus(ctx, conversationID, cur.Status, status, now)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue // status moved under us; re-read
			}
			return nil, err
		}

		metrics.ConversationStatusTransitionTotal.WithLabelValues(string(status)).Inc()
		if status == domain.StatusEnded {
			metrics.ConversationEndedTotal.Inc()
			s.logger.Info("conversation ended",
				zap.String("conversation_id", conversationID.String()),
				zap.String("actor", string(actor)),
			)
		}

		return conv, nil
	}

	return nil, fmt.Errorf("status transition contended for conversation %s", conversationID)
}

// Heartbeat refreshes the conversation's last activity timestamp. Safe
// to call on an ENDED conversation: accepted silently, never
// resurrects it.
func (s *Service) Heartbeat(ctx context.Context, conversationID uuid.UUID) error {
	return s.conversations.Touch(ctx, conversationID, s.clock().UTC())
}

// MarkInactiveOnDisconnect handles the widget's best-effort "customer
// left the page" signal. ENDED wins: a late disconnect never
// overwrites the terminal state.
func (s *Service) MarkInactiveOnDisconnect(ctx context.Context, conversationID uuid.UUID) error {
	return s.conversations.MarkInactive(ctx, conversationID, s.clock().UTC())
}

// Get retrieves one conversation.
func (s *Service) Get(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	return s.conversations.GetByID(ctx, conversationID)
}

// Queue returns a tenant's conversations in one status as queue
// entries (conversation plus newest message), oldest conversation
// first. This backs the agent console's pending and inactive views.
func (s *Service) Queue(ctx context.Context, tenantID uuid.UUID, status domain.ConversationStatus, limit int) ([]domain.QueueEntry, error) {
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	conversations, err := s.conversations.ListByStatus(ctx, tenantID, status, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.QueueEntry, 0, len(conversations))
	for _, conv := range conversations {
		entry := domain.QueueEntry{Conversation: *conv}
		last, err := s.messages.Latest(ctx, conv.ConversationID, conv.CreatedAt)
		if err == nil {
			entry.LastMessage = last
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// AgentConversations returns the conversations assigned to one agent,
// most recently active first.
func (s *Service) AgentConversations(ctx context.Context, agentID uuid.UUID, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.conversations.ListByAgent(ctx, agentID, limit)
}

func (s *Service) appendSystem(ctx context.Context, conv *domain.Conversation, sender domain.MessageSender, content string) error {
	msg := &domain.Message{
		ConversationID: conv.ConversationID,
		Sender:         sender,
		Content:        content,
		Type:           domain.MessageTypeText,
		CreatedAt:      s.clock().UTC(),
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return fmt.Errorf("failed to append lifecycle message: %w", err)
	}
	metrics.MessageAppendedTotal.WithLabelValues(string(sender), string(domain.MessageTypeText)).Inc()
	return nil
}
