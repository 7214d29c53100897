package repositories

import (
	"fmt"
	"testing"
	"time"

	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock advancing one minute per call so that ordering does not depend on timer resolution.
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(1 * time.Minute)
		return current
	}
}

func newTestMessageRepository(t *testing.T, limit *int) *MessageRepository {
	repo := NewMessageRepository(openTestDB(t), testLogger(), limit)
	repo.now = fixedClock(time.Now().UTC())
	return repo
}

func TestMessageRepository_Append(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()

	// When Alice sends "hi"
	message, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: "hi"})
	req.NoError(err)

	// Then the message is stored with Alice as its first reader
	req.NotEmpty(message.ID)
	req.Equal(conversationID, message.ConversationID)
	req.Equal("alice", message.SenderID)
	req.Equal([]string{"alice"}, message.ReadBy)

	found, err := repo.FindByID(message.ID)
	req.NoError(err)
	req.Equal(message, found)
}

func TestMessageRepository_Append_RejectsInvalidPayload(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()

	_, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: "  "})
	req.ErrorIs(err, errors.ErrValidation)
	_, err = repo.Append(conversationID, "alice", chat.MediaPayload{MediaKind: chat.KindImage})
	req.ErrorIs(err, errors.ErrValidation)
	_, err = repo.Append(conversationID, "alice", nil)
	req.ErrorIs(err, errors.ErrValidation)

	// Then nothing was written
	messages, _, err := repo.ListByConversation(conversationID, 0, nil)
	req.NoError(err)
	req.Empty(messages)
}

func TestMessageRepository_MediaRoundTrip(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()

	message, err := repo.Append(conversationID, "bob", chat.MediaPayload{MediaKind: chat.KindVideo, Ref: "clip.mp4"})
	req.NoError(err)

	messages, _, err := repo.ListByConversation(conversationID, 0, nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(chat.KindVideo, messages[0].Kind())
	req.Equal(chat.MediaRef("clip.mp4"), messages[0].MediaRef())
	req.Equal(message.CreatedAt, messages[0].CreatedAt)

	// Then the blob is known to be carried by a message, text messages reference nothing
	referenced, err := repo.IsMediaReferenced("clip.mp4")
	req.NoError(err)
	req.True(referenced)
	referenced, err = repo.IsMediaReferenced("other.mp4")
	req.NoError(err)
	req.False(referenced)
}

func TestMessageRepository_List_SortedNewestFirstAndScoped(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()
	otherID := uuid.NewString()

	for _, author := range []string{"alice", "bob", "clara"} {
		_, err := repo.Append(conversationID, author, chat.TextPayload{Content: "hello from " + author})
		req.NoError(err)
	}
	_, err := repo.Append(otherID, "dave", chat.TextPayload{Content: "elsewhere"})
	req.NoError(err)

	messages, cursor, err := repo.ListByConversation(conversationID, 0, nil)
	req.NoError(err)
	req.Nil(cursor)
	req.Equal([]string{"clara", "bob", "alice"}, lo.Map(messages, func(m chat.Message, _ int) string {
		return m.SenderID
	}))
}

func TestMessageRepository_List_DefaultAndConfiguredLimit(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()
	for i := 0; i < DefaultLimitMessages+5; i++ {
		_, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: fmt.Sprintf("message %d", i)})
		req.NoError(err)
	}

	messages, cursor, err := repo.ListByConversation(conversationID, 0, nil)
	req.NoError(err)
	req.Len(messages, DefaultLimitMessages)
	req.NotNil(cursor)

	limit := 2
	configured := newTestMessageRepository(t, &limit)
	for i := 0; i < 3; i++ {
		_, err := configured.Append(conversationID, "alice", chat.TextPayload{Content: "x"})
		req.NoError(err)
	}
	messages, _, err = configured.ListByConversation(conversationID, 0, nil)
	req.NoError(err)
	req.Len(messages, limit)

	// An explicit limit wins over the configured one
	messages, _, err = configured.ListByConversation(conversationID, 3, nil)
	req.NoError(err)
	req.Len(messages, 3)
}

func TestMessageRepository_Pagination(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()

	// Given 10 messages from the oldest to the newest
	for i := 1; i <= 10; i++ {
		_, err := repo.Append(conversationID, fmt.Sprintf("user_%d", i), chat.TextPayload{Content: fmt.Sprintf("Message %d", i)})
		req.NoError(err)
	}

	// Page 1
	page1, cursor1, err := repo.ListByConversation(conversationID, 4, nil)
	req.NoError(err)
	req.Len(page1, 4)
	req.Equal("user_10", page1[0].SenderID)
	req.Equal("user_7", page1[3].SenderID)
	req.NotNil(cursor1)

	// Page 2 starts right after the cursor, without duplicates
	page2, cursor2, err := repo.ListByConversation(conversationID, 4, cursor1)
	req.NoError(err)
	req.Len(page2, 4)
	req.Equal("user_6", page2[0].SenderID)
	req.Equal("user_3", page2[3].SenderID)
	req.NotNil(cursor2)

	// Page 3 is the end
	page3, cursor3, err := repo.ListByConversation(conversationID, 4, cursor2)
	req.NoError(err)
	req.Len(page3, 2)
	req.Equal("user_2", page3[0].SenderID)
	req.Equal("user_1", page3[1].SenderID)
	req.Nil(cursor3)
}

func TestMessageRepository_Pagination_ExactlyFullLastPage(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()

	// Given as many messages as the page size
	for i := 0; i < 6; i++ {
		_, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: fmt.Sprintf("message %d", i)})
		req.NoError(err)
	}

	// Then the full page has no cursor since nothing older exists
	messages, cursor, err := repo.ListByConversation(conversationID, 6, nil)
	req.NoError(err)
	req.Len(messages, 6)
	req.Nil(cursor)

	// And a page ending exactly on the oldest message has none either
	page1, cursor1, err := repo.ListByConversation(conversationID, 3, nil)
	req.NoError(err)
	req.Len(page1, 3)
	req.NotNil(cursor1)
	page2, cursor2, err := repo.ListByConversation(conversationID, 3, cursor1)
	req.NoError(err)
	req.Len(page2, 3)
	req.Nil(cursor2)
}

func TestMessageRepository_MarkReadByOthers_IsIdempotent(t *testing.T) {
	req := require.New(t)
	repo := newTestMessageRepository(t, nil)
	conversationID := uuid.NewString()

	fromAlice, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: "hi"})
	req.NoError(err)
	fromBob, err := repo.Append(conversationID, "bob", chat.TextPayload{Content: "hey"})
	req.NoError(err)
	_, err = repo.Append(conversationID, "alice", chat.MediaPayload{MediaKind: chat.KindImage, Ref: "cat.png"})
	req.NoError(err)

	// When Bob reads the conversation
	marked, err := repo.MarkReadByOthers(conversationID, "bob")
	req.NoError(err)
	req.Equal(2, marked)

	messages, _, err := repo.ListByConversation(conversationID, 0, nil)
	req.NoError(err)
	firstPass := lo.Map(messages, func(m chat.Message, _ int) []string { return m.ReadBy })

	// Then Alice's messages are read by Bob and his own message is untouched
	found, err := repo.FindByID(fromAlice.ID)
	req.NoError(err)
	req.ElementsMatch([]string{"alice", "bob"}, found.ReadBy)
	found, err = repo.FindByID(fromBob.ID)
	req.NoError(err)
	req.Equal([]string{"bob"}, found.ReadBy)

	// When Bob reads again
	marked, err = repo.MarkReadByOthers(conversationID, "bob")
	req.NoError(err)
	req.Zero(marked)

	// Then nothing changed
	messages, _, err = repo.ListByConversation(conversationID, 0, nil)
	req.NoError(err)
	req.Equal(firstPass, lo.Map(messages, func(m chat.Message, _ int) []string { return m.ReadBy }))
}

func TestMessageRepository_FindUnknown(t *testing.T) {
	repo := newTestMessageRepository(t, nil)
	_, err := repo.FindByID(uuid.NewString())
	require.ErrorIs(t, err, errors.ErrNotFound)
}
