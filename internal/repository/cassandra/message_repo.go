package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"supportdesk-backend/internal/domain"
)

// MessageRepository is the append-only message log in Cassandra.
// Partitioned by (conversation_id, bucket) with one bucket per month,
// clustered by (created_at ASC, message_id ASC). Rows are never updated
// or deleted; the total order within a conversation is the clustering
// order.
type MessageRepository struct {
	session *gocql.Session
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(session *gocql.Session) *MessageRepository {
	return &MessageRepository{session: session}
}

// Append inserts one message. The message id is a TIMEUUID so that
// messages created in the same millisecond still sort in insertion
// order under the clustering key.
func (r *MessageRepository) Append(ctx context.Context, message *domain.Message) error {
	if message.Bucket == 0 {
		message.Bucket = domain.CalculateBucket(message.CreatedAt)
	}
	if message.MessageID == uuid.Nil {
		message.MessageID = uuid.UUID(gocql.TimeUUID())
	}

	query := `
		INSERT INTO messages (
			conversation_id, bucket, message_id, sender, content, message_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := r.session.Query(query,
		message.ConversationID,
		message.Bucket,
		message.MessageID,
		string(message.Sender),
		message.Content,
		string(message.Type),
		message.CreatedAt,
	).WithContext(ctx).Exec()

	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// ListSince returns every message of a conversation with created_at
// strictly after since, oldest first. A zero since returns the full
// log. The walk starts at the bucket of `start` (the conversation's
// creation time) and ends at the current bucket, so month boundaries
// never lose messages.
func (r *MessageRepository) ListSince(ctx context.Context, conversationID uuid.UUID, start time.Time, since time.Time) ([]*domain.Message, error) {
	from := start
	if since.After(from) {
		from = since
	}

	var messages []*domain.Message
	for _, bucket := range domain.BucketsInRange(from, time.Now().UTC()) {
		chunk, err := r.listBucketSince(ctx, conversationID, bucket, since)
		if err != nil {
			return nil, err
		}
		messages = append(messages, chunk...)
	}

	return messages, nil
}

func (r *MessageRepository) listBucketSince(ctx context.Context, conversationID uuid.UUID, bucket int, since time.Time) ([]*domain.Message, error) {
	query := `
		SELECT conversation_id, bucket, message_id, sender, content, message_type, created_at
		FROM messages
		WHERE conversation_id = ? AND bucket = ? AND created_at > ?
		ORDER BY created_at ASC
	`

	iter := r.session.Query(query, conversationID, bucket, since).WithContext(ctx).Iter()

	var messages []*domain.Message
	for {
		message := &domain.Message{}
		var sender, msgType string
		if !iter.Scan(
			&message.ConversationID,
			&message.Bucket,
			&message.MessageID,
			&sender,
			&message.Content,
			&msgType,
			&message.CreatedAt,
		) {
			break
		}
		message.Sender = domain.MessageSender(sender)
		message.Type = domain.MessageType(msgType)
		messages = append(messages, message)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, nil
}

// Latest returns the newest message of a conversation, or
// domain.ErrNotFound when the log is empty. Walks buckets newest first
// back to the conversation's creation month.
func (r *MessageRepository) Latest(ctx context.Context, conversationID uuid.UUID, start time.Time) (*domain.Message, error) {
	buckets := domain.BucketsInRange(start, time.Now().UTC())

	query := `
		SELECT conversation_id, bucket, message_id, sender, content, message_type, created_at
		FROM messages
		WHERE conversation_id = ? AND bucket = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	for i := len(buckets) - 1; i >= 0; i-- {
		message := &domain.Message{}
		var sender, msgType string
		err := r.session.Query(query, conversationID, buckets[i]).WithContext(ctx).Scan(
			&message.ConversationID,
			&message.Bucket,
			&message.MessageID,
			&sender,
			&message.Content,
			&msgType,
			&message.CreatedAt,
		)
		if err == gocql.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get latest message: %w", err)
		}
		message.Sender = domain.MessageSender(sender)
		message.Type = domain.MessageType(msgType)
		return message, nil
	}

	return nil, domain.ErrNotFound
}
