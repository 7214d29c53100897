package server

import (
	"time"

	"social-chat/domain/chat"
	"social-chat/services"

	"github.com/samber/lo"
)

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type tokenResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type avatarRequest struct {
	MediaRef string `json:"media_ref"`
}

type createConversationRequest struct {
	Participants []string `json:"participants"`
}

type sendMessageRequest struct {
	Kind     string  `json:"kind"`
	Content  *string `json:"content,omitempty"`
	MediaRef *string `json:"media_ref,omitempty"`
}

type profileView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type messageView struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Sender         profileView `json:"sender"`
	Kind           chat.Kind   `json:"kind"`
	Content        string      `json:"content,omitempty"`
	MediaRef       string      `json:"media_ref,omitempty"`
	MediaURL       string      `json:"media_url,omitempty"`
	ReadBy         []string    `json:"read_by"`
	CreatedAt      time.Time   `json:"created_at"`
}

type conversationView struct {
	ID           string            `json:"id"`
	Participants []profileView     `json:"participants"`
	LastMessage  *messageView      `json:"last_message,omitempty"`
	Unread       uint64            `json:"unread"`
	UnreadCounts map[string]uint64 `json:"unread_counts"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type messagePageView struct {
	Messages []messageView `json:"messages"`
	Cursor   *string       `json:"cursor"`
	Warning  string        `json:"warning,omitempty"`
}

type sentMessageView struct {
	Message messageView `json:"message"`
	Warning string      `json:"warning,omitempty"`
}

type mediaView struct {
	MediaRef chat.MediaRef `json:"media_ref"`
	Kind     chat.Kind     `json:"kind"`
	MimeType string        `json:"mime_type"`
	Size     int64         `json:"size"`
	URL      string        `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// presenter turns domain values into the JSON shapes of the API.
// Media references are exposed as URLs served by the blob store.
type presenter struct {
	urlFor func(ref chat.MediaRef) string
}

func (p presenter) profile(profile chat.Profile) profileView {
	return profileView{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		AvatarURL:   p.urlFor(chat.MediaRef(profile.AvatarRef)),
	}
}

func (p presenter) message(m chat.HydratedMessage) messageView {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []string{}
	}
	return messageView{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         p.profile(m.Sender),
		Kind:           m.Kind(),
		Content:        m.Content(),
		MediaRef:       string(m.MediaRef()),
		MediaURL:       p.urlFor(m.MediaRef()),
		ReadBy:         readBy,
		CreatedAt:      m.CreatedAt,
	}
}

func (p presenter) messages(messages []chat.HydratedMessage) []messageView {
	return lo.Map(messages, func(m chat.HydratedMessage, _ int) messageView {
		return p.message(m)
	})
}

// conversation renders a summary from the point of view of userID.
func (p presenter) conversation(summary services.ConversationSummary, userID string) conversationView {
	c := summary.Conversation
	view := conversationView{
		ID: c.ID,
		Participants: lo.Map(summary.Participants, func(profile chat.Profile, _ int) profileView {
			return p.profile(profile)
		}),
		Unread:       c.UnreadFor(userID),
		UnreadCounts: c.UnreadCounts,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if summary.LastMessage != nil {
		sender, ok := lo.Find(summary.Participants, func(profile chat.Profile) bool {
			return profile.ID == summary.LastMessage.SenderID
		})
		if !ok {
			sender = chat.UnknownProfile(summary.LastMessage.SenderID)
		}
		last := p.message(chat.HydratedMessage{Message: *summary.LastMessage, Sender: sender})
		view.LastMessage = &last
	}
	return view
}

func (p presenter) conversations(summaries []services.ConversationSummary, userID string) []conversationView {
	return lo.Map(summaries, func(s services.ConversationSummary, _ int) conversationView {
		return p.conversation(s, userID)
	})
}
