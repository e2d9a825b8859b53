package redis

import (
	"context"

	"supportdesk-backend/internal/database"
)

// Publisher fans new messages out over Redis pub/sub so future push
// transports can subscribe. Best-effort: in degraded mode publishes
// are dropped.
type Publisher struct {
	client *database.RedisClient
}

// NewPublisher creates a new Redis publisher.
func NewPublisher(client *database.RedisClient) *Publisher {
	return &Publisher{client: client}
}

// Publish sends a payload to a channel.
func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.SafePublish(ctx, channel, payload).Err()
}
