//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const DefaultLimitMessages = 50

type IMessageRepository interface {
	Append(conversationID, senderID string, payload chat.Payload) (chat.Message, error)
	ListByConversation(conversationID string, limit int, cursor *string) ([]chat.Message, *string, error)
	FindByID(messageID string) (chat.Message, error)
	MarkReadByOthers(conversationID, readerID string) (int, error)
	IsMediaReferenced(ref chat.MediaRef) (bool, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	now           func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages, now: time.Now}
}

// Append persists a message, its id index and the sender's own read receipt atomically.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func (m MessageRepository) Append(conversationID, senderID string, payload chat.Payload) (chat.Message, error) {
	if err := chat.ValidatePayload(payload); err != nil {
		return chat.Message{}, err
	}
	message := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Payload:        payload,
		ReadBy:         []string{senderID},
		CreatedAt:      m.now().UTC(),
	}
	key := messageKey(conversationID, message.CreatedAt, message.ID)

	err := m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, encodeMessage(message)); err != nil {
			return err
		}
		if err := txn.Set(messageIndexKey(message.ID), key); err != nil {
			return err
		}
		if media, ok := payload.(chat.MediaPayload); ok {
			if err := txn.Set(mediaKey(string(media.Ref)), []byte(message.ID)); err != nil {
				return err
			}
		}
		return txn.Set(receiptKey(conversationID, message.ID, senderID), nil)
	})
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return message, nil
}

// ListByConversation retrieves the newest messages first using a reverse prefix scan.
// The returned cursor is the key suffix of the oldest message of the page, it is nil
// when no older message exists.
func (m MessageRepository) ListByConversation(conversationID string, limit int, cursor *string) ([]chat.Message, *string, error) {
	limit = m.effectiveLimit(limit)
	var messages []chat.Message
	var lastKey string
	var hasMore bool

	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)

		var seekKey []byte
		switch cursor {
		case nil:
			// Largest possible timestamp, iteration goes back in time from there
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				// One more key under the prefix, so an older page exists
				hasMore = true
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			raw, err := item.ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			message, err := decodeMessage(raw)
			if err != nil {
				it.Close()
				return err
			}
			messages = append(messages, message)
		}
		it.Close()

		for i := range messages {
			readBy, err := readReceipts(txn, conversationID, messages[i].ID)
			if err != nil {
				return err
			}
			messages[i].ReadBy = readBy
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	if !hasMore {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

func (m MessageRepository) FindByID(messageID string) (chat.Message, error) {
	var message chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(messageIndexKey(messageID))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(key)
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		message, err = decodeMessage(raw)
		if err != nil {
			return err
		}
		message.ReadBy, err = readReceipts(txn, message.ConversationID, message.ID)
		return err
	})
	switch {
	case err == nil:
		return message, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return chat.Message{}, fmt.Errorf("%w: message %s", errors.ErrNotFound, messageID)
	default:
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
}

// MarkReadByOthers adds a receipt for readerID on every message of the conversation
// sent by someone else and not yet read by readerID. Receipts only ever get added,
// so calling it again is a no-op. It returns the number of receipts written.
func (m MessageRepository) MarkReadByOthers(conversationID, readerID string) (int, error) {
	var pending [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			message, err := decodeMessage(raw)
			if err != nil {
				return err
			}
			if message.SenderID == readerID {
				continue
			}
			key := receiptKey(conversationID, message.ID, readerID)
			if _, err := txn.Get(key); err == nil {
				continue
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			pending = append(pending, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	wb := m.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range pending {
		if err := wb.Set(key, nil); err != nil {
			return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	m.log.Debug("Read receipts written", "conversation_id", conversationID,
		"reader_id", readerID, "count", len(pending))
	return len(pending), nil
}

// IsMediaReferenced reports whether a message carries the blob.
func (m MessageRepository) IsMediaReferenced(ref chat.MediaRef) (bool, error) {
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(mediaKey(string(ref)))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
}

func (m MessageRepository) effectiveLimit(limit int) int {
	if limit > 0 {
		return limit
	}
	if m.limitMessages != nil && *m.limitMessages > 0 {
		return *m.limitMessages
	}
	return DefaultLimitMessages
}

func readReceipts(txn *badger.Txn, conversationID, messageID string) ([]string, error) {
	prefix := receiptPrefix(conversationID, messageID)
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	var readBy []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		readBy = append(readBy, string(it.Item().Key()[len(prefix):]))
	}
	return readBy, nil
}
