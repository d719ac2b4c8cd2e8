package domain

import (
	"regexp"
	"time"
)

// eventTypeRe constrains event types to a token-like charset
var eventTypeRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

const (
	// MaxUserIDLength is the maximum allowed length for a user identifier
	MaxUserIDLength = 255
	// MaxEventTypeLength is the maximum allowed length for an event type
	MaxEventTypeLength = 255
)

// EventType is the classification of a behavioral event (e.g. "page_view", "purchase")
type EventType string

// Valid reports whether the event type is non-empty, bounded, and token-like
func (t EventType) Valid() bool {
	return len(t) > 0 && len(t) <= MaxEventTypeLength && eventTypeRe.MatchString(string(t))
}

// UserID identifies the end user an event belongs to
type UserID string

// Valid reports whether the user identifier is non-empty and bounded
func (u UserID) Valid() bool {
	return len(u) > 0 && len(u) <= MaxUserIDLength
}

// EventInput is one raw event in an ingestion batch, as received from a client.
// EventID may be empty or malformed; the pipeline normalizes it before persisting.
type EventInput struct {
	EventID    string
	OccurredAt time.Time
	UserID     string
	EventType  string
	Properties map[string]interface{}
}

// EventEnvelope is the message published to the bus for each accepted event
type EventEnvelope struct {
	EventID     string                 `json:"event_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	UserID      string                 `json:"user_id"`
	EventType   string                 `json:"event_type"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	PublishedAt time.Time              `json:"published_at"`
	Source      string                 `json:"source"`
}

// IngestResult summarizes the outcome of one ingestion call
type IngestResult struct {
	Accepted      int `json:"accepted_count"`
	TotalReceived int `json:"total_received"`
}
