package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event on its way to the publishers.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	SessionID int             `json:"session_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventPublisher delivers one event to a downstream system.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// envelope is the wire form shared by the stream publishers.
type envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID int             `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func newEnvelope(event Event) envelope {
	return envelope{
		EventID:   event.ID.String(),
		EventType: event.EventType,
		SessionID: event.SessionID,
		Timestamp: event.CreatedAt,
		Payload:   event.Payload,
	}
}
