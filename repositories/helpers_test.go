package repositories

import (
	"log/slog"
	"testing"
	"time"

	"social-chat/domain/chat"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

func createConversation(t *testing.T, repo *ConversationRepository, participants ...string) chat.Conversation {
	t.Helper()
	conversation, err := chat.NewConversation(uuid.NewString(), participants, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.Create(conversation))
	return conversation
}
