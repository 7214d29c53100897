package chat

// RoomID names the realtime room of a conversation. It is the conversation id.
type RoomID string

type CreateConversationCommand struct {
	CreatorID    string   `validate:"required"`
	Participants []string `validate:"required,min=1,max=32,dive,required"`
}

type SendMessageCommand struct {
	ConversationID string `validate:"required"`
	SenderID       string `validate:"required"`
	Kind           Kind   `validate:"required,oneof=text image video"`
	Content        *string
	MediaRef       *string
}

type GetMessagesCommand struct {
	ConversationID string `validate:"required"`
	UserID         string `validate:"required"`
	Limit          int    `validate:"gte=0,lte=200"`
	Cursor         *string
}
