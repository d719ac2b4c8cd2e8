package messaging

import (
	"context"

	"github.com/eventfold/analytics/internal/domain"
)

// Publisher defines the interface for publishing accepted events to the
// message bus. Publishing is best effort throughout: implementations report
// errors, but no caller treats them as fatal.
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// Publish sends one event envelope to the given subject
	Publish(ctx context.Context, subject string, envelope *domain.EventEnvelope) error
	// Connected reports whether the underlying connection is live
	Connected() bool
	// Close drains and closes the connection
	Close()
}

// SubjectFor builds the bus subject for an event type.
// Consumers subscribe per event type, e.g. "events.purchase".
func SubjectFor(eventType string) string {
	return "events." + eventType
}
