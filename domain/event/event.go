package event

import (
	"time"

	"social-chat/domain/chat"
)

const MessageEventName = "message"

// DomainEvent is published to the realtime room named by RoomID.
type DomainEvent interface {
	RoomID() chat.RoomID
	Name() string
}

// MessageCreated carries a fully hydrated message to every connection of the room.
type MessageCreated struct {
	Message chat.HydratedMessage
	At      time.Time
}

func (m MessageCreated) RoomID() chat.RoomID {
	return chat.RoomID(m.Message.ConversationID)
}

func (MessageCreated) Name() string {
	return MessageEventName
}
