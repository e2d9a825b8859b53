package call

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supportdesk-backend/internal/domain"
	syncsvc "supportdesk-backend/internal/service/sync"
	"supportdesk-backend/pkg/metrics"
)

// Message contents carried by the handshake protocol messages. The
// message type, not the text, is what clients key their UI on.
const (
	RequestedMessage = "Video call requested"
	AcceptedMessage  = "Video call accepted"
	DeclinedMessage  = "Video call declined"
)

// Appender is the message path the handshake rides on. The
// synchronizer's ended-conversation guard applies to handshake
// messages exactly as it does to text.
type Appender interface {
	Append(ctx context.Context, input *syncsvc.AppendInput) (*syncsvc.AppendOutput, error)
}

// Service negotiates video-call consent over the message log. It is
// stateless: the log itself is the handshake state, and consumers
// derive "pending request" by scanning for an unanswered
// VIDEO_REQUEST. Neither step mutates the conversation's type or
// status; media setup after an accept happens outside this service.
type Service struct {
	messages Appender
	logger   *zap.Logger
}

// NewService creates a new call handshake service.
func NewService(messages Appender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{messages: messages, logger: logger}
}

// RequestVideo appends a VIDEO_REQUEST message from the requesting
// party. Repeat requests before a response are allowed; the UI decides
// whether to surface them.
func (s *Service) RequestVideo(ctx context.Context, conversationID uuid.UUID, requester domain.MessageSender) (*domain.Message, error) {
	if requester != domain.SenderCustomer && requester != domain.SenderAgent {
		return nil, domain.ErrInvalidArgument
	}

	output, err := s.messages.Append(ctx, &syncsvc.AppendInput{
		ConversationID: conversationID,
		Sender:         requester,
		Content:        RequestedMessage,
		Type:           domain.MessageTypeVideoRequest,
	})
	if err != nil {
		return nil, err
	}

	metrics.VideoHandshakeTotal.WithLabelValues("requested").Inc()
	s.logger.Info("video call requested",
		zap.String("conversation_id", conversationID.String()),
		zap.String("requester", string(requester)),
	)

	return output.Message, nil
}

// RespondVideo records the answer to a video request as a
// VIDEO_ACCEPTED or VIDEO_DECLINED message. On accept the caller owns
// establishing the media session, keyed by the conversation id; this
// service only records consent.
func (s *Service) RespondVideo(ctx context.Context, conversationID uuid.UUID, responder domain.MessageSender, accepted bool) (*domain.Message, error) {
	if responder != domain.SenderCustomer && responder != domain.SenderAgent {
		return nil, domain.ErrInvalidArgument
	}

	msgType := domain.MessageTypeVideoDeclined
	content := DeclinedMessage
	outcome := "declined"
	if accepted {
		msgType = domain.MessageTypeVideoAccepted
		content = AcceptedMessage
		outcome = "accepted"
	}

	output, err := s.messages.Append(ctx, &syncsvc.AppendInput{
		ConversationID: conversationID,
		Sender:         responder,
		Content:        content,
		Type:           msgType,
	})
	if err != nil {
		return nil, err
	}

	metrics.VideoHandshakeTotal.WithLabelValues(outcome).Inc()
	s.logger.Info("video call response recorded",
		zap.String("conversation_id", conversationID.String()),
		zap.String("responder", string(responder)),
		zap.Bool("accepted", accepted),
	)

	return output.Message, nil
}
