// Package chat contains core concepts of the direct messaging system.
// This file defines messages and their kind-discriminated payloads.
// Messages are immutable once created, except for their read receipts.
package chat

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"social-chat/errors"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// MediaRef is the opaque reference returned by the blob store.
type MediaRef string

// Payload is the content of a message, discriminated by its kind.
// Only TextPayload and MediaPayload implement it.
type Payload interface {
	Kind() Kind
	isPayload()
}

type TextPayload struct {
	Content string
}

func (TextPayload) Kind() Kind { return KindText }
func (TextPayload) isPayload() {}

type MediaPayload struct {
	MediaKind Kind
	Ref       MediaRef
}

func (p MediaPayload) Kind() Kind { return p.MediaKind }
func (MediaPayload) isPayload()   {}

// NewPayload builds the payload matching kind from raw request fields.
// Content and media reference are mutually exclusive: text requires non-blank
// content and no media reference, image and video require a media reference and no content.
func NewPayload(kind Kind, content *string, mediaRef *string) (Payload, error) {
	text := ""
	if content != nil {
		text = strings.TrimSpace(*content)
	}
	ref := ""
	if mediaRef != nil {
		ref = strings.TrimSpace(*mediaRef)
	}

	if text == "" && ref == "" {
		return nil, fmt.Errorf("%w: either content or a media reference is required", errors.ErrValidation)
	}

	switch kind {
	case KindText:
		if ref != "" {
			return nil, fmt.Errorf("%w: text message cannot carry a media reference", errors.ErrValidation)
		}
		if text == "" {
			return nil, fmt.Errorf("%w: text message requires content", errors.ErrValidation)
		}
		return TextPayload{Content: text}, nil
	case KindImage, KindVideo:
		if text != "" {
			return nil, fmt.Errorf("%w: %s message cannot carry text content", errors.ErrValidation, kind)
		}
		if ref == "" {
			return nil, fmt.Errorf("%w: %s message requires a media reference", errors.ErrValidation, kind)
		}
		return MediaPayload{MediaKind: kind, Ref: MediaRef(ref)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message kind %q", errors.ErrValidation, kind)
	}
}

// ValidatePayload re-checks a payload that was not built by NewPayload.
func ValidatePayload(p Payload) error {
	switch v := p.(type) {
	case TextPayload:
		_, err := NewPayload(KindText, &v.Content, nil)
		return err
	case MediaPayload:
		ref := string(v.Ref)
		_, err := NewPayload(v.MediaKind, nil, &ref)
		return err
	default:
		return fmt.Errorf("%w: missing payload", errors.ErrValidation)
	}
}

// Message represents a persisted chat message.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Payload        Payload
	ReadBy         []string
	CreatedAt      time.Time
}

func (m Message) Kind() Kind {
	if m.Payload == nil {
		return ""
	}
	return m.Payload.Kind()
}

// Content returns the text content, empty for media messages.
func (m Message) Content() string {
	if p, ok := m.Payload.(TextPayload); ok {
		return p.Content
	}
	return ""
}

// MediaRef returns the media reference, empty for text messages.
func (m Message) MediaRef() MediaRef {
	if p, ok := m.Payload.(MediaPayload); ok {
		return p.Ref
	}
	return ""
}

func (m Message) IsReadBy(userID string) bool {
	return slices.Contains(m.ReadBy, userID)
}

// HydratedMessage is a message whose sender has been resolved to a public profile.
type HydratedMessage struct {
	Message
	Sender Profile
}
