package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"social-chat/contract"
	"social-chat/domain/event"
)

const defaultSinkTimeout = 2 * time.Second

// EventFanout delivers every published event to the connections joined to its room.
//
// Delivery is best-effort: no ordering across rooms, no durability, no retries.
// A sink that does not consume within sinkTimeout is abandoned for that event,
// so a slow connection never holds back the rest of the room.
type EventFanout struct {
	log         *slog.Logger
	events      chan event.DomainEvent
	registry    contract.IRegistry
	sinkTimeout time.Duration
}

func NewEventFanout(log *slog.Logger, events chan event.DomainEvent,
	registry contract.IRegistry, sinkTimeout time.Duration) *EventFanout {
	if sinkTimeout <= 0 {
		sinkTimeout = defaultSinkTimeout
	}
	return &EventFanout{log: log, events: events, registry: registry, sinkTimeout: sinkTimeout}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Event channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout waits for every sink of the room, each one bounded by its own timeout.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := w.registry.GetSinksForRoom(evt.RoomID())
	if len(sinks) == 0 {
		w.log.Debug("No connection joined the room", "room_id", evt.RoomID(), "event", evt.Name())
		return
	}

	var wg sync.WaitGroup
	for _, sink := range sinks {
		wg.Add(1)
		go func(sink contract.EventSink) {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
			defer cancel()
			if err := sink.Consume(sinkCtx, evt); err != nil {
				w.log.Warn("Event not delivered to connection",
					"room_id", evt.RoomID(), "event", evt.Name(), "error", err)
			}
		}(sink)
	}
	wg.Wait()
}
