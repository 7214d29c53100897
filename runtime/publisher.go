package runtime

import (
	"context"
	"fmt"

	"social-chat/domain/event"
	"social-chat/errors"
)

// ChannelPublisher hands events to the fanout worker through a buffered channel.
// Publishing never blocks the caller: a full buffer is reported as ErrDelivery.
type ChannelPublisher struct {
	events chan event.DomainEvent
}

func NewChannelPublisher(events chan event.DomainEvent) *ChannelPublisher {
	return &ChannelPublisher{events: events}
}

func (p *ChannelPublisher) Publish(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDelivery, err)
	}
	select {
	case p.events <- e:
		return nil
	default:
		return fmt.Errorf("%w: event buffer is full (room=%s)", errors.ErrDelivery, e.RoomID())
	}
}
