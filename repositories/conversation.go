//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// maxCounterAttempts bounds the optimistic retries of a counter update.
const maxCounterAttempts = 100

type IConversationRepository interface {
	Create(conversation chat.Conversation) error
	FindByID(id string) (chat.Conversation, error)
	ListForUser(userID string) ([]chat.Conversation, error)
	SearchByParticipantText(userID, query string) ([]chat.Conversation, error)
	IsParticipant(conversationID, userID string) (bool, error)
	TouchLastMessage(conversationID, messageID string, at time.Time) error
	IncrementUnread(conversationID, excludeUserID string) error
	ResetUnread(conversationID, userID string) error
}

type ConversationRepository struct {
	db        *badger.DB
	log       *slog.Logger
	directory IProfileDirectory
}

func NewConversationRepository(db *badger.DB, log *slog.Logger, directory IProfileDirectory) *ConversationRepository {
	return &ConversationRepository{db: db, log: log, directory: directory}
}

// Create writes the conversation record, one membership entry and one zeroed
// unread counter per participant, and the initial last message pointer.
func (r ConversationRepository) Create(conversation chat.Conversation) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(conversationKey(conversation.ID)); err == nil {
			return fmt.Errorf("conversation %s already exists", conversation.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(conversationKey(conversation.ID), encodeConversation(conversation)); err != nil {
			return err
		}
		for _, p := range conversation.Participants {
			if err := txn.Set(memberKey(p, conversation.ID), nil); err != nil {
				return err
			}
			if err := txn.Set(unreadKey(conversation.ID, p), encodeCounter(0)); err != nil {
				return err
			}
		}
		return txn.Set(lastKey(conversation.ID), encodeLastPointer(lastPointer{UpdatedAt: conversation.UpdatedAt}))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

func (r ConversationRepository) FindByID(id string) (chat.Conversation, error) {
	var conversation chat.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		conversation, err = loadConversation(txn, id)
		return err
	})
	return conversation, mapConversationError(id, err)
}

func (r ConversationRepository) IsParticipant(conversationID, userID string) (bool, error) {
	conversation, err := r.FindByID(conversationID)
	if err != nil {
		return false, err
	}
	return conversation.HasParticipant(userID), nil
}

// ListForUser walks the membership index of the user and returns the
// conversations most recently updated first.
func (r ConversationRepository) ListForUser(userID string) ([]chat.Conversation, error) {
	var conversations []chat.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		it.Close()

		for _, id := range ids {
			conversation, err := loadConversation(txn, id)
			if errors.Is(err, badger.ErrKeyNotFound) {
				r.log.Warn("Dangling membership entry", "user_id", userID, "conversation_id", id)
				continue
			}
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}

	slices.SortFunc(conversations, func(a, b chat.Conversation) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return conversations, nil
}

// SearchByParticipantText keeps the conversations of userID where at least one
// other participant matches query on display name or id, ignoring case.
// Conversations without any matching participant are left out.
func (r ConversationRepository) SearchByParticipantText(userID, query string) ([]chat.Conversation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is empty", errors.ErrValidation)
	}
	conversations, err := r.ListForUser(userID)
	if err != nil {
		return nil, err
	}

	others := lo.Uniq(lo.FlatMap(conversations, func(c chat.Conversation, _ int) []string {
		return c.Others(userID)
	}))
	profiles, err := r.directory.GetProfiles(others)
	if err != nil {
		return nil, err
	}

	return lo.Filter(conversations, func(c chat.Conversation, _ int) bool {
		return lo.ContainsBy(c.Others(userID), func(id string) bool {
			profile, ok := profiles[id]
			if !ok {
				profile = chat.UnknownProfile(id)
			}
			return profile.Matches(query)
		})
	}), nil
}

// TouchLastMessage is a single blind write: the last send to complete wins.
func (r ConversationRepository) TouchLastMessage(conversationID, messageID string, at time.Time) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lastKey(conversationID), encodeLastPointer(lastPointer{MessageID: messageID, UpdatedAt: at}))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return nil
}

// IncrementUnread adds one to the counter of every participant except excludeUserID.
// Counters are read and written in one optimistic transaction; when another
// writer committed one of them first, badger rejects the commit with ErrConflict
// and the whole read-modify-write is replayed, so no increment is lost.
func (r ConversationRepository) IncrementUnread(conversationID, excludeUserID string) error {
	var err error
	for attempt := 1; attempt <= maxCounterAttempts; attempt++ {
		err = r.db.Update(func(txn *badger.Txn) error {
			conversation, err := getConversationRecord(txn, conversationID)
			if err != nil {
				return err
			}
			for _, p := range conversation.Others(excludeUserID) {
				count, err := getCounter(txn, unreadKey(conversationID, p))
				if err != nil {
					return err
				}
				if err := txn.Set(unreadKey(conversationID, p), encodeCounter(count+1)); err != nil {
					return err
				}
			}
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		r.log.Debug("Unread counter conflict, retrying",
			"conversation_id", conversationID, "attempt", attempt)
	}
	return mapConversationError(conversationID, err)
}

// ResetUnread zeroes the counter of a participant.
func (r ConversationRepository) ResetUnread(conversationID, userID string) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		conversation, err := getConversationRecord(txn, conversationID)
		if err != nil {
			return err
		}
		if !conversation.HasParticipant(userID) {
			return fmt.Errorf("%w: %s is not a participant", errors.ErrForbidden, userID)
		}
		return txn.Set(unreadKey(conversationID, userID), encodeCounter(0))
	})
	return mapConversationError(conversationID, err)
}

func getConversationRecord(txn *badger.Txn, id string) (chat.Conversation, error) {
	item, err := txn.Get(conversationKey(id))
	if err != nil {
		return chat.Conversation{}, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return chat.Conversation{}, err
	}
	return decodeConversation(raw)
}

// loadConversation assembles the record, the last message pointer and the unread counters.
func loadConversation(txn *badger.Txn, id string) (chat.Conversation, error) {
	conversation, err := getConversationRecord(txn, id)
	if err != nil {
		return chat.Conversation{}, err
	}
	conversation.UpdatedAt = conversation.CreatedAt

	item, err := txn.Get(lastKey(id))
	switch {
	case err == nil:
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return chat.Conversation{}, err
		}
		pointer, err := decodeLastPointer(raw)
		if err != nil {
			return chat.Conversation{}, err
		}
		if pointer.MessageID != "" {
			conversation.LastMessageID = lo.ToPtr(pointer.MessageID)
		}
		if !pointer.UpdatedAt.IsZero() {
			conversation.UpdatedAt = pointer.UpdatedAt
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return chat.Conversation{}, err
	}

	conversation.UnreadCounts = make(map[string]uint64, len(conversation.Participants))
	for _, p := range conversation.Participants {
		conversation.UnreadCounts[p] = 0
	}
	prefix := unreadPrefix(id)
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		userID := string(bytes.TrimPrefix(key, prefix))
		if !conversation.HasParticipant(userID) {
			continue
		}
		raw, err := it.Item().ValueCopy(nil)
		if err != nil {
			return chat.Conversation{}, err
		}
		count, err := decodeCounter(raw)
		if err != nil {
			return chat.Conversation{}, err
		}
		conversation.UnreadCounts[userID] = count
	}
	return conversation, nil
}

func getCounter(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return decodeCounter(raw)
}

func mapConversationError(id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%w: conversation %s", errors.ErrNotFound, id)
	case errors.Is(err, errors.ErrForbidden):
		return err
	default:
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
}
