// Package events defines the community domain events exchanged over Kafka
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types carried on the post-events topic
const (
	PostCreated    = "post.created"
	PostUpdated    = "post.updated"
	PostDeleted    = "post.deleted"
	ContentBlocked = "content.blocked"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregateId"`
	AggregateType string          `json:"aggregateType"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent creates a new event
func NewEvent(aggregateID, aggregateType, eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		EventVersion:  1,
		Timestamp:     time.Now(),
		Payload:       payloadBytes,
	}, nil
}

// PostPayload is the payload for post lifecycle events
type PostPayload struct {
	PostID      int64  `json:"postId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ContentBlockedPayload is the payload for moderation block events
type ContentBlockedPayload struct {
	PostID    int64 `json:"postId,omitempty"`
	CommentID int64 `json:"commentId,omitempty"`
	UserID    int64 `json:"userId"`
}
