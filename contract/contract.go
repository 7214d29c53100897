//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"io"
	"reflect"

	"social-chat/domain/chat"
	"social-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry maps realtime rooms to the connection handles joined to them.
type IRegistry interface {
	Attach(connectionID string, sink EventSink)
	Detach(connectionID string)
	Join(roomID chat.RoomID, connectionID string) error
	Leave(roomID chat.RoomID, connectionID string)
	GetSinksForRoom(roomID chat.RoomID) []EventSink
}

// Publisher hands an event to the realtime delivery channel.
type Publisher interface {
	Publish(ctx context.Context, e event.DomainEvent) error
}

type Principal struct {
	UserID string
	Roles  []string
}

type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (Principal, error)
}

type StoredMedia struct {
	Ref      chat.MediaRef
	Kind     chat.Kind
	MimeType string
	Size     int64
}

type BlobStore interface {
	Store(ctx context.Context, filename string, r io.Reader) (StoredMedia, error)
	Open(ctx context.Context, ref chat.MediaRef) (io.ReadCloser, string, error)
	URLFor(ref chat.MediaRef) string
	Delete(ctx context.Context, ref chat.MediaRef) error
}

// ContentFilter rewrites text content before it is persisted.
type ContentFilter interface {
	Sanitize(senderID, content string) string
}
