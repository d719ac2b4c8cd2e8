package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/eventfold/analytics/internal/domain"
)

type fakePublisher struct {
	mu        sync.Mutex
	connected bool
	subjects  []string
	eventIDs  []string
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, envelope *domain.EventEnvelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.eventIDs = append(f.eventIDs, envelope.EventID)
	return nil
}

func (f *fakePublisher) Connected() bool { return f.connected }

func (f *fakePublisher) Close() {}

func envelopes(types ...string) []domain.EventEnvelope {
	out := make([]domain.EventEnvelope, 0, len(types))
	for i, et := range types {
		out = append(out, domain.EventEnvelope{
			EventID:    string(rune('a' + i)),
			EventType:  et,
			UserID:     "u1",
			OccurredAt: time.Now().UTC(),
		})
	}
	return out
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "events.page_view", SubjectFor("page_view"))
	assert.Equal(t, "events.purchase", SubjectFor("purchase"))
}

func TestFanoutPublishesAllEnvelopes(t *testing.T) {
	pub := &fakePublisher{connected: true}
	f := NewFanout(pub, 2, 16)

	f.Publish(envelopes("page_view", "click"))
	f.Close() // waits for in-flight work

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.ElementsMatch(t, []string{"events.page_view", "events.click"}, pub.subjects)
	assert.Len(t, pub.eventIDs, 2)
}

func TestFanoutSkipsWhenDisconnected(t *testing.T) {
	pub := &fakePublisher{connected: false}
	f := NewFanout(pub, 2, 16)

	f.Publish(envelopes("page_view"))
	f.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Empty(t, pub.subjects)
}

func TestFanoutSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{connected: true, err: errors.New("broker unavailable")}
	f := NewFanout(pub, 2, 16)

	// Must not panic or block the caller
	f.Publish(envelopes("page_view"))
	f.Close()
}
