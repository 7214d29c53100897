package sink

import (
	"context"
	"sync"

	"social-chat/domain/chat"
	"social-chat/domain/event"
)

// Timeline holds the messages delivered to one connection, in delivery order.
type Timeline struct {
	mu       sync.Mutex
	Owner    string
	messages []chat.HydratedMessage
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessageCreated:
		t.mu.Lock()
		t.messages = append(t.messages, evt.Message)
		t.mu.Unlock()
	}
	return nil
}

func (t *Timeline) Messages() []chat.HydratedMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]chat.HydratedMessage(nil), t.messages...)
}
