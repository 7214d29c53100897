package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"social-chat/contract"
	"social-chat/domain/chat"
	"social-chat/domain/event"
	"social-chat/errors"
	"social-chat/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const DefaultMaxContentLength = 4000

var validate = validator.New()

type IChatService interface {
	CreateConversation(ctx context.Context, cmd chat.CreateConversationCommand) (ConversationSummary, error)
	ListConversations(ctx context.Context, userID string) ([]ConversationSummary, error)
	SearchConversations(ctx context.Context, userID, query string) ([]ConversationSummary, error)
	GetConversation(ctx context.Context, userID, conversationID string) (ConversationSummary, error)
	SendMessage(ctx context.Context, cmd chat.SendMessageCommand) (chat.HydratedMessage, error)
	GetMessages(ctx context.Context, cmd chat.GetMessagesCommand) (MessagePage, error)
	Connect(connectionID string, sink contract.EventSink)
	JoinRoom(ctx context.Context, userID, connectionID string, roomID chat.RoomID) error
	LeaveRoom(connectionID string, roomID chat.RoomID)
	Disconnect(connectionID string)
	UploadMedia(ctx context.Context, userID, filename string, r io.Reader) (contract.StoredMedia, error)
}

// ConversationSummary is a conversation with its participants resolved and its latest message.
type ConversationSummary struct {
	Conversation chat.Conversation
	Participants []chat.Profile
	LastMessage  *chat.Message
}

type MessagePage struct {
	Messages []chat.HydratedMessage
	Cursor   *string
}

type ChatService struct {
	log              *slog.Logger
	conversations    repositories.IConversationRepository
	messages         repositories.IMessageRepository
	directory        repositories.IProfileDirectory
	publisher        contract.Publisher
	registry         contract.IRegistry
	blobs            contract.BlobStore
	filter           contract.ContentFilter
	maxContentLength int
	now              func() time.Time
}

func NewChatService(log *slog.Logger,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	directory repositories.IProfileDirectory,
	publisher contract.Publisher,
	registry contract.IRegistry,
	blobs contract.BlobStore,
	filter contract.ContentFilter,
	maxContentLength int) *ChatService {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	return &ChatService{
		log:              log,
		conversations:    conversations,
		messages:         messages,
		directory:        directory,
		publisher:        publisher,
		registry:         registry,
		blobs:            blobs,
		filter:           filter,
		maxContentLength: maxContentLength,
		now:              time.Now,
	}
}

// CreateConversation opens a conversation between the creator and the given participants.
func (s *ChatService) CreateConversation(_ context.Context, cmd chat.CreateConversationCommand) (ConversationSummary, error) {
	if err := validate.Struct(cmd); err != nil {
		return ConversationSummary{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	participants := append([]string{cmd.CreatorID}, cmd.Participants...)
	conversation, err := chat.NewConversation(uuid.NewString(), participants, s.now().UTC())
	if err != nil {
		return ConversationSummary{}, err
	}
	if err := s.conversations.Create(conversation); err != nil {
		return ConversationSummary{}, err
	}
	s.log.Debug("Conversation created", "conversation_id", conversation.ID,
		"creator_id", cmd.CreatorID, "participants", len(conversation.Participants))
	return s.summarize(conversation), nil
}

func (s *ChatService) ListConversations(_ context.Context, userID string) ([]ConversationSummary, error) {
	conversations, err := s.conversations.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	return lo.Map(conversations, func(c chat.Conversation, _ int) ConversationSummary {
		return s.summarize(c)
	}), nil
}

func (s *ChatService) SearchConversations(_ context.Context, userID, query string) ([]ConversationSummary, error) {
	conversations, err := s.conversations.SearchByParticipantText(userID, query)
	if err != nil {
		return nil, err
	}
	return lo.Map(conversations, func(c chat.Conversation, _ int) ConversationSummary {
		return s.summarize(c)
	}), nil
}

func (s *ChatService) GetConversation(_ context.Context, userID, conversationID string) (ConversationSummary, error) {
	conversation, err := s.conversations.FindByID(conversationID)
	if err != nil {
		return ConversationSummary{}, err
	}
	if !conversation.HasParticipant(userID) {
		s.logForbidden("get_conversation", conversationID, userID)
		return ConversationSummary{}, fmt.Errorf("%w: not a participant of conversation %s", errors.ErrForbidden, conversationID)
	}
	return s.summarize(conversation), nil
}

// SendMessage walks a message through Validating, Persisting, Propagating and Delivered.
// Once persisted, a message is never rolled back: a failure of the conversation
// bookkeeping is returned as a PropagationError alongside the message, and a failed
// realtime delivery is only logged.
func (s *ChatService) SendMessage(ctx context.Context, cmd chat.SendMessageCommand) (chat.HydratedMessage, error) {
	// Validating: existence and membership come before the payload rules
	if err := requireIDs(cmd.ConversationID, cmd.SenderID); err != nil {
		return chat.HydratedMessage{}, err
	}
	if err := s.authorize("send_message", cmd.ConversationID, cmd.SenderID); err != nil {
		return chat.HydratedMessage{}, err
	}
	if err := validate.Struct(cmd); err != nil {
		return chat.HydratedMessage{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	payload, err := chat.NewPayload(cmd.Kind, cmd.Content, cmd.MediaRef)
	if err != nil {
		return chat.HydratedMessage{}, err
	}
	if text, ok := payload.(chat.TextPayload); ok {
		if utf8.RuneCountInString(text.Content) > s.maxContentLength {
			return chat.HydratedMessage{}, fmt.Errorf("%w: content exceeds %d characters", errors.ErrValidation, s.maxContentLength)
		}
		if s.filter != nil {
			payload = chat.TextPayload{Content: s.filter.Sanitize(cmd.SenderID, text.Content)}
		}
	}
	if err := ctx.Err(); err != nil {
		return chat.HydratedMessage{}, err
	}

	// Persisting
	message, err := s.messages.Append(cmd.ConversationID, cmd.SenderID, payload)
	if err != nil {
		return chat.HydratedMessage{}, err
	}

	// Propagating
	propagationErr := s.propagate(message)

	// Delivered
	hydrated := s.hydrate([]chat.Message{message})[0]
	if err := s.publisher.Publish(ctx, event.MessageCreated{Message: hydrated, At: s.now().UTC()}); err != nil {
		s.log.Warn("Realtime delivery failed",
			"conversation_id", message.ConversationID, "message_id", message.ID, "error", err)
	}

	return hydrated, propagationErr
}

// propagate runs both bookkeeping steps even if the first one fails.
func (s *ChatService) propagate(message chat.Message) error {
	var errs []error
	if err := s.conversations.TouchLastMessage(message.ConversationID, message.ID, message.CreatedAt); err != nil {
		errs = append(errs, fmt.Errorf("touch last message: %w", err))
	}
	if err := s.conversations.IncrementUnread(message.ConversationID, message.SenderID); err != nil {
		errs = append(errs, fmt.Errorf("increment unread: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	s.log.Error("Message persisted but conversation not updated",
		"conversation_id", message.ConversationID, "message_id", message.ID, "error", err)
	return &errors.PropagationError{ConversationID: message.ConversationID, MessageID: message.ID, Err: err}
}

// GetMessages returns a page of messages, newest first, and marks the conversation as read
// by the caller. A failure while marking is returned as a PropagationError together with the page.
func (s *ChatService) GetMessages(_ context.Context, cmd chat.GetMessagesCommand) (MessagePage, error) {
	if err := requireIDs(cmd.ConversationID, cmd.UserID); err != nil {
		return MessagePage{}, err
	}
	if err := s.authorize("get_messages", cmd.ConversationID, cmd.UserID); err != nil {
		return MessagePage{}, err
	}
	if err := validate.Struct(cmd); err != nil {
		return MessagePage{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	messages, cursor, err := s.messages.ListByConversation(cmd.ConversationID, cmd.Limit, cmd.Cursor)
	if err != nil {
		return MessagePage{}, err
	}

	// The counter is reset before the receipts are written: a message appended in between
	// is then counted as unread even if marked, never the other way around.
	var errs []error
	if err := s.conversations.ResetUnread(cmd.ConversationID, cmd.UserID); err != nil {
		errs = append(errs, fmt.Errorf("reset unread: %w", err))
	}
	if _, err := s.messages.MarkReadByOthers(cmd.ConversationID, cmd.UserID); err != nil {
		errs = append(errs, fmt.Errorf("mark read: %w", err))
	} else {
		for i := range messages {
			if !messages[i].IsReadBy(cmd.UserID) {
				messages[i].ReadBy = append(messages[i].ReadBy, cmd.UserID)
			}
		}
	}

	page := MessagePage{Messages: s.hydrate(messages), Cursor: cursor}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.log.Error("Messages read but conversation not updated",
			"conversation_id", cmd.ConversationID, "user_id", cmd.UserID, "error", err)
		return page, &errors.PropagationError{ConversationID: cmd.ConversationID, Err: err}
	}
	return page, nil
}

// Connect makes a connection reachable by the realtime channel. It joins no room.
func (s *ChatService) Connect(connectionID string, sink contract.EventSink) {
	s.registry.Attach(connectionID, sink)
}

// JoinRoom subscribes a connection to the room of a conversation the user participates in.
func (s *ChatService) JoinRoom(_ context.Context, userID, connectionID string, roomID chat.RoomID) error {
	if err := s.authorize("join_room", string(roomID), userID); err != nil {
		return err
	}
	if err := s.registry.Join(roomID, connectionID); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	s.log.Debug("Connection joined room", "room_id", roomID, "user_id", userID, "connection_id", connectionID)
	return nil
}

func (s *ChatService) LeaveRoom(connectionID string, roomID chat.RoomID) {
	s.registry.Leave(roomID, connectionID)
}

// Disconnect removes the connection from every room it joined.
func (s *ChatService) Disconnect(connectionID string) {
	s.registry.Detach(connectionID)
}

func (s *ChatService) UploadMedia(ctx context.Context, userID, filename string, r io.Reader) (contract.StoredMedia, error) {
	stored, err := s.blobs.Store(ctx, filename, r)
	if err != nil {
		return contract.StoredMedia{}, err
	}
	s.log.Info("Media uploaded", "user_id", userID, "ref", stored.Ref, "kind", stored.Kind, "size", stored.Size)
	return stored, nil
}

func (s *ChatService) authorize(operation, conversationID, userID string) error {
	isParticipant, err := s.conversations.IsParticipant(conversationID, userID)
	if err != nil {
		return err
	}
	if !isParticipant {
		s.logForbidden(operation, conversationID, userID)
		return fmt.Errorf("%w: not a participant of conversation %s", errors.ErrForbidden, conversationID)
	}
	return nil
}

func requireIDs(conversationID, userID string) error {
	if strings.TrimSpace(conversationID) == "" || strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: conversation and user ids are required", errors.ErrValidation)
	}
	return nil
}

func (s *ChatService) logForbidden(operation, conversationID, userID string) {
	s.log.Warn("Security: access to a conversation denied",
		"operation", operation, "conversation_id", conversationID, "user_id", userID)
}

// hydrate attaches the sender profile to each message.
// A directory failure never fails the caller, unknown senders get a placeholder profile.
func (s *ChatService) hydrate(messages []chat.Message) []chat.HydratedMessage {
	profiles := s.profiles(lo.Map(messages, func(m chat.Message, _ int) string { return m.SenderID }))
	return lo.Map(messages, func(m chat.Message, _ int) chat.HydratedMessage {
		return chat.HydratedMessage{Message: m, Sender: profileOrUnknown(profiles, m.SenderID)}
	})
}

func (s *ChatService) summarize(conversation chat.Conversation) ConversationSummary {
	profiles := s.profiles(conversation.Participants)
	summary := ConversationSummary{
		Conversation: conversation,
		Participants: lo.Map(conversation.Participants, func(id string, _ int) chat.Profile {
			return profileOrUnknown(profiles, id)
		}),
	}

	if conversation.LastMessageID != nil {
		last, err := s.messages.FindByID(*conversation.LastMessageID)
		if err != nil {
			s.log.Debug("Last message not found", "conversation_id", conversation.ID,
				"message_id", *conversation.LastMessageID, "error", err)
		} else {
			summary.LastMessage = &last
		}
	}
	return summary
}

func (s *ChatService) profiles(ids []string) map[string]chat.Profile {
	if len(ids) == 0 {
		return nil
	}
	profiles, err := s.directory.GetProfiles(lo.Uniq(ids))
	if err != nil {
		s.log.Warn("Profiles unavailable, using placeholders", "error", err)
		return nil
	}
	return profiles
}

func profileOrUnknown(profiles map[string]chat.Profile, id string) chat.Profile {
	if profile, ok := profiles[id]; ok {
		return profile
	}
	return chat.UnknownProfile(id)
}
