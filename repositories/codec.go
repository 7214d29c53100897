package repositories

import (
	"encoding/binary"
	"fmt"
	"time"

	"social-chat/domain/chat"

	"google.golang.org/protobuf/encoding/protowire"
)

// Values are stored with the protobuf wire format so records stay
// forward compatible: unknown field numbers are skipped on decode.

type encoder struct {
	buf []byte
}

func (e *encoder) string(num protowire.Number, v string) {
	if v == "" {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendString(e.buf, v)
}

func (e *encoder) strings(num protowire.Number, vs []string) {
	for _, v := range vs {
		e.string(num, v)
	}
}

func (e *encoder) time(num protowire.Number, t time.Time) {
	if t.IsZero() {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, uint64(t.UnixNano()))
}

type wireValue struct {
	varint uint64
	bytes  []byte
}

func (v wireValue) string() string {
	return string(v.bytes)
}

func (v wireValue) time() time.Time {
	return time.Unix(0, int64(v.varint)).UTC()
}

func decode(b []byte, visit func(num protowire.Number, v wireValue)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			visit(num, wireValue{varint: v})
			b = b[m:]
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			visit(num, wireValue{bytes: v})
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
			b = b[m:]
		}
	}
	return nil
}

const (
	messageFieldID             protowire.Number = 1
	messageFieldConversationID protowire.Number = 2
	messageFieldSenderID       protowire.Number = 3
	messageFieldKind           protowire.Number = 4
	messageFieldContent        protowire.Number = 5
	messageFieldMediaRef       protowire.Number = 6
	messageFieldCreatedAt      protowire.Number = 7
)

func encodeMessage(m chat.Message) []byte {
	var e encoder
	e.string(messageFieldID, m.ID)
	e.string(messageFieldConversationID, m.ConversationID)
	e.string(messageFieldSenderID, m.SenderID)
	e.string(messageFieldKind, string(m.Kind()))
	e.string(messageFieldContent, m.Content())
	e.string(messageFieldMediaRef, string(m.MediaRef()))
	e.time(messageFieldCreatedAt, m.CreatedAt)
	return e.buf
}

func decodeMessage(b []byte) (chat.Message, error) {
	var (
		m        chat.Message
		kind     string
		content  string
		mediaRef string
	)
	err := decode(b, func(num protowire.Number, v wireValue) {
		switch num {
		case messageFieldID:
			m.ID = v.string()
		case messageFieldConversationID:
			m.ConversationID = v.string()
		case messageFieldSenderID:
			m.SenderID = v.string()
		case messageFieldKind:
			kind = v.string()
		case messageFieldContent:
			content = v.string()
		case messageFieldMediaRef:
			mediaRef = v.string()
		case messageFieldCreatedAt:
			m.CreatedAt = v.time()
		}
	})
	if err != nil {
		return chat.Message{}, err
	}
	switch k := chat.Kind(kind); k {
	case chat.KindText:
		m.Payload = chat.TextPayload{Content: content}
	case chat.KindImage, chat.KindVideo:
		m.Payload = chat.MediaPayload{MediaKind: k, Ref: chat.MediaRef(mediaRef)}
	default:
		return chat.Message{}, fmt.Errorf("message %s has unknown kind %q", m.ID, kind)
	}
	return m, nil
}

const (
	conversationFieldID           protowire.Number = 1
	conversationFieldParticipants protowire.Number = 2
	conversationFieldCreatedAt    protowire.Number = 3
)

func encodeConversation(c chat.Conversation) []byte {
	var e encoder
	e.string(conversationFieldID, c.ID)
	e.strings(conversationFieldParticipants, c.Participants)
	e.time(conversationFieldCreatedAt, c.CreatedAt)
	return e.buf
}

func decodeConversation(b []byte) (chat.Conversation, error) {
	var c chat.Conversation
	err := decode(b, func(num protowire.Number, v wireValue) {
		switch num {
		case conversationFieldID:
			c.ID = v.string()
		case conversationFieldParticipants:
			c.Participants = append(c.Participants, v.string())
		case conversationFieldCreatedAt:
			c.CreatedAt = v.time()
		}
	})
	return c, err
}

// lastPointer is stored apart from the conversation record so that
// a send only rewrites this small value.
type lastPointer struct {
	MessageID string
	UpdatedAt time.Time
}

const (
	lastFieldMessageID protowire.Number = 1
	lastFieldUpdatedAt protowire.Number = 2
)

func encodeLastPointer(p lastPointer) []byte {
	var e encoder
	e.string(lastFieldMessageID, p.MessageID)
	e.time(lastFieldUpdatedAt, p.UpdatedAt)
	return e.buf
}

func decodeLastPointer(b []byte) (lastPointer, error) {
	var p lastPointer
	err := decode(b, func(num protowire.Number, v wireValue) {
		switch num {
		case lastFieldMessageID:
			p.MessageID = v.string()
		case lastFieldUpdatedAt:
			p.UpdatedAt = v.time()
		}
	})
	return p, err
}

const (
	userFieldID           protowire.Number = 1
	userFieldEmail        protowire.Number = 2
	userFieldDisplayName  protowire.Number = 3
	userFieldAvatarRef    protowire.Number = 4
	userFieldPasswordHash protowire.Number = 5
	userFieldRoles        protowire.Number = 6
	userFieldCreatedAt    protowire.Number = 7
)

func encodeUser(u User) []byte {
	var e encoder
	e.string(userFieldID, u.ID)
	e.string(userFieldEmail, u.Email)
	e.string(userFieldDisplayName, u.DisplayName)
	e.string(userFieldAvatarRef, u.AvatarRef)
	e.string(userFieldPasswordHash, u.PasswordHash)
	e.strings(userFieldRoles, u.Roles)
	e.time(userFieldCreatedAt, u.CreatedAt)
	return e.buf
}

func decodeUser(b []byte) (User, error) {
	var u User
	err := decode(b, func(num protowire.Number, v wireValue) {
		switch num {
		case userFieldID:
			u.ID = v.string()
		case userFieldEmail:
			u.Email = v.string()
		case userFieldDisplayName:
			u.DisplayName = v.string()
		case userFieldAvatarRef:
			u.AvatarRef = v.string()
		case userFieldPasswordHash:
			u.PasswordHash = v.string()
		case userFieldRoles:
			u.Roles = append(u.Roles, v.string())
		case userFieldCreatedAt:
			u.CreatedAt = v.time()
		}
	})
	return u, err
}

func encodeCounter(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeCounter(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid counter length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
