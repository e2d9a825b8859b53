package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageSender identifies which party authored a message.
type MessageSender string

const (
	SenderCustomer MessageSender = "customer"
	SenderAgent    MessageSender = "agent"
	SenderSystem   MessageSender = "system"
)

// MessageType distinguishes ordinary text from the video-call
// handshake protocol messages.
type MessageType string

const (
	MessageTypeText          MessageType = "TEXT"
	MessageTypeVideoRequest  MessageType = "VIDEO_REQUEST"
	MessageTypeVideoAccepted MessageType = "VIDEO_ACCEPTED"
	MessageTypeVideoDeclined MessageType = "VIDEO_DECLINED"
)

// ValidSender reports whether s is a known sender role.
func ValidSender(s MessageSender) bool {
	switch s {
	case SenderCustomer, SenderAgent, SenderSystem:
		return true
	}
	return false
}

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeVideoRequest, MessageTypeVideoAccepted, MessageTypeVideoDeclined:
		return true
	}
	return false
}

// Message is one immutable entry in a conversation's append-only log.
// Maps to the Cassandra messages table, bucketed by month.
// Ordered within a conversation by (created_at, message_id).
type Message struct {
	MessageID      uuid.UUID     `json:"message_id" cql:"message_id"`
	ConversationID uuid.UUID     `json:"conversation_id" cql:"conversation_id"`
	Sender         MessageSender `json:"sender" cql:"sender"`
	Content        string        `json:"content" cql:"content"`
	Type           MessageType   `json:"type" cql:"message_type"`
	Bucket         int           `json:"-" cql:"bucket"`
	CreatedAt      time.Time     `json:"created_at" cql:"created_at"`
}

// MessageCreate represents the fields needed to append a message.
type MessageCreate struct {
	Content string        `json:"content" binding:"required"`
	Sender  MessageSender `json:"sender" binding:"required"`
	Type    MessageType   `json:"type,omitempty"`
}

// CalculateBucket maps a timestamp to its YYYYMM storage bucket.
// Messages for one conversation land in one partition per month.
func CalculateBucket(t time.Time) int {
	t = t.UTC()
	return t.Year()*100 + int(t.Month())
}

// BucketsInRange returns every month bucket touched by [start, end],
// oldest first. Used to walk the log across month boundaries.
func BucketsInRange(start, end time.Time) []int {
	var buckets []int
	cur := time.Date(start.UTC().Year(), start.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	last := CalculateBucket(end)
	for {
		b := CalculateBucket(cur)
		buckets = append(buckets, b)
		if b >= last {
			break
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return buckets
}
