package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"social-chat/contract"
	"social-chat/domain/chat"
	"social-chat/domain/event"
	"social-chat/errors"
	"social-chat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func messageCreated(conversationID string) event.MessageCreated {
	return event.MessageCreated{
		Message: chat.HydratedMessage{Message: chat.Message{ID: "m1", ConversationID: conversationID}},
		At:      time.Now().UTC(),
	}
}

func TestEventFanoutWorker_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink1 := mocks.NewMockEventSink(ctrl)
	mockSink2 := mocks.NewMockEventSink(ctrl)

	fanoutWorker := NewEventFanout(log, nil, mockRegistry, time.Second)
	evt := messageCreated("c1")

	// Given two connections joined the room
	mockRegistry.EXPECT().GetSinksForRoom(chat.RoomID("c1")).
		Return([]contract.EventSink{mockSink1, mockSink2}).Times(1)
	// Then both consume the event, one failure doesn't prevent the other
	mockSink1.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	mockSink2.EXPECT().Consume(gomock.Any(), evt).Return(errors.ErrConnectionClosed).Times(1)

	// When an event is handled by the worker
	fanoutWorker.Fanout(context.Background(), evt)
	req.True(ctrl.Satisfied())
}

func TestEventFanoutWorker_EmptyRoom(t *testing.T) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRegistry := mocks.NewMockIRegistry(ctrl)

	mockRegistry.EXPECT().GetSinksForRoom(chat.RoomID("c1")).Return(nil).Times(1)

	NewEventFanout(log, nil, mockRegistry, time.Second).Fanout(context.Background(), messageCreated("c1"))
}

func TestEventFanoutWorker_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)
	fastSink := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	fanoutWorker := NewEventFanout(log, nil, mockRegistry, sinkTimeout)

	mockRegistry.EXPECT().GetSinksForRoom(gomock.Any()).
		Return([]contract.EventSink{slowSink, fastSink}).Times(1)
	// Given a sink that never answers on its own
	slowSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).Times(1)
	fastSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	// When the event is fanned out
	start := time.Now()
	fanoutWorker.Fanout(context.Background(), messageCreated("c1"))

	// Then the slow sink is abandoned after its timeout
	req.Less(time.Since(start), 500*time.Millisecond)
}

func TestEventFanoutWorker_Run(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	mockSink := mocks.NewMockEventSink(ctrl)

	events := make(chan event.DomainEvent, 2)
	fanoutWorker := NewEventFanout(log, events, mockRegistry, time.Second)

	var delivered atomic.Int32
	done := make(chan struct{})
	mockRegistry.EXPECT().GetSinksForRoom(gomock.Any()).Return([]contract.EventSink{mockSink}).Times(2)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
			if delivered.Add(1) == 2 {
				close(done)
			}
			return nil
		}).Times(2)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- fanoutWorker.Run(ctx) }()

	events <- messageCreated("c1")
	events <- messageCreated("c2")

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Events were not delivered in time")
	}

	// When the context is cancelled the worker ends without error
	cancel()
	select {
	case err := <-stopped:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Worker did not stop")
	}
}
