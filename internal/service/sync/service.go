package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supportdesk-backend/internal/domain"
	"supportdesk-backend/pkg/metrics"
)

// MessageLog is message persistence as the synchronizer sees it.
type MessageLog interface {
	Append(ctx context.Context, message *domain.Message) error
	ListSince(ctx context.Context, conversationID uuid.UUID, start, since time.Time) ([]*domain.Message, error)
}

// ConversationReader supplies conversation state for the ended guard
// and refreshes activity on sends.
type ConversationReader interface {
	GetByID(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error)
	Touch(ctx context.Context, conversationID uuid.UUID, now time.Time) error
}

// Publisher is the best-effort fan-out for new messages. A publish
// failure never fails the send.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Service is the message synchronizer: the append path for customer
// and agent messages and the incremental polling read path.
type Service struct {
	log       MessageLog
	convs     ConversationReader
	publisher Publisher
	logger    *zap.Logger

	clock func() time.Time
}

// NewService creates a new message synchronizer.
func NewService(log MessageLog, convs ConversationReader, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		log:       log,
		convs:     convs,
		publisher: publisher,
		logger:    logger,
		clock:     time.Now,
	}
}

// AppendInput carries one outbound message.
type AppendInput struct {
	ConversationID uuid.UUID
	Sender         domain.MessageSender
	Content        string
	Type           domain.MessageType
}

// AppendOutput contains the stored message.
type AppendOutput struct {
	Message *domain.Message
}

// Append stores a message on a live conversation. Sends to an ENDED
// conversation are rejected with domain.ErrConversationEnded; reads
// stay open so both sides can fetch the final transcript.
func (s *Service) Append(ctx context.Context, input *AppendInput) (*AppendOutput, error) {
	if input.Content == "" {
		metrics.MessageAppendRejectedTotal.WithLabelValues("empty_content").Inc()
		return nil, domain.ErrInvalidArgument
	}
	if input.Sender != domain.SenderCustomer && input.Sender != domain.SenderAgent && input.Sender != domain.SenderSystem {
		metrics.MessageAppendRejectedTotal.WithLabelValues("bad_sender").Inc()
		return nil, domain.ErrInvalidArgument
	}

	conv, err := s.convs.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv.IsEnded() {
		metrics.MessageAppendRejectedTotal.WithLabelValues("ended").Inc()
		return nil, domain.ErrConversationEnded
	}

	msgType := input.Type
	if msgType == "" {
		msgType = domain.MessageTypeText
	}

	now := s.clock().UTC()
	message := &domain.Message{
		ConversationID: input.ConversationID,
		Sender:         input.Sender,
		Content:        input.Content,
		Type:           msgType,
		CreatedAt:      now,
	}

	if err := s.log.Append(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	// Any message counts as conversation activity for the sweep.
	if err := s.convs.Touch(ctx, input.ConversationID, now); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("failed to refresh conversation activity",
			zap.String("conversation_id", input.ConversationID.String()),
			zap.Error(err),
		)
	}

	s.publish(ctx, message)

	metrics.MessageAppendedTotal.WithLabelValues(string(message.Sender), string(message.Type)).Inc()

	return &AppendOutput{Message: message}, nil
}

// SyncSinceInput carries the incremental read cursor. A zero Since
// returns the full transcript.
type SyncSinceInput struct {
	ConversationID uuid.UUID
	Since          time.Time
}

// SyncSinceOutput contains the messages newer than the cursor plus the
// conversation's current status, so the polling client learns about
// lifecycle changes in the same round trip.
type SyncSinceOutput struct {
	Messages []*domain.Message
	Status   domain.ConversationStatus
	SyncedAt time.Time
}

// SyncSince returns all messages strictly newer than the cursor in
// insertion order. Works on ENDED conversations: the transcript stays
// readable after the conversation closes.
func (s *Service) SyncSince(ctx context.Context, input *SyncSinceInput) (*SyncSinceOutput, error) {
	conv, err := s.convs.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.log.ListSince(ctx, input.ConversationID, conv.CreatedAt, input.Since)
	if err != nil {
		return nil, fmt.Errorf("failed to sync messages: %w", err)
	}

	return &SyncSinceOutput{
		Messages: messages,
		Status:   conv.Status,
		SyncedAt: s.clock().UTC(),
	}, nil
}

// Channel returns the pub/sub channel name for a conversation.
func Channel(conversationID uuid.UUID) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}

func (s *Service) publish(ctx context.Context, message *domain.Message) {
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		s.logger.Warn("failed to marshal message for publish", zap.Error(err))
		metrics.MessagePublishedTotal.WithLabelValues("error").Inc()
		return
	}

	if err := s.publisher.Publish(ctx, Channel(message.ConversationID), payload); err != nil {
		s.logger.Warn("failed to publish message",
			zap.String("conversation_id", message.ConversationID.String()),
			zap.Error(err),
		)
		metrics.MessagePublishedTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.MessagePublishedTotal.WithLabelValues("ok").Inc()
}
