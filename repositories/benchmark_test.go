package repositories

import (
	"fmt"
	"log/slog"
	"testing"

	"social-chat/domain/chat"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/db"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

func setupBenchmark(b *testing.B) (*slog.Logger, *badger.DB) {
	log := logs.GetLoggerFromLevel(slog.LevelError)
	badgerDB, err := db.LoadBadger(b)
	if err != nil {
		b.Fatal(err)
	}
	return log, badgerDB
}

func BenchmarkMessageRepository_Append(b *testing.B) {
	log, badgerDB := setupBenchmark(b)
	defer func() { _ = badgerDB.Close() }()

	repo := NewMessageRepository(badgerDB, log, lo.ToPtr(50))
	conversationID := uuid.NewString()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: fmt.Sprintf("message %d", i)}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMessageRepository_ListByConversation(b *testing.B) {
	log, badgerDB := setupBenchmark(b)
	defer func() { _ = badgerDB.Close() }()

	repo := NewMessageRepository(badgerDB, log, lo.ToPtr(50))
	conversationID := uuid.NewString()
	for i := 0; i < 5_000; i++ {
		if _, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: fmt.Sprintf("message %d", i)}); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var cursor *string
		for page := 0; page < 10; page++ {
			messages, next, err := repo.ListByConversation(conversationID, 50, cursor)
			if err != nil {
				b.Fatal(err)
			}
			if len(messages) != 50 {
				b.Fatalf("expected a full page, got %d", len(messages))
			}
			cursor = next
		}
	}
}

func BenchmarkMessageRepository_MarkReadByOthers(b *testing.B) {
	log, badgerDB := setupBenchmark(b)
	defer func() { _ = badgerDB.Close() }()

	repo := NewMessageRepository(badgerDB, log, lo.ToPtr(50))
	conversationID := uuid.NewString()
	for i := 0; i < 1_000; i++ {
		if _, err := repo.Append(conversationID, "alice", chat.TextPayload{Content: "ping"}); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.MarkReadByOthers(conversationID, fmt.Sprintf("reader-%d", i)); err != nil {
			b.Fatal(err)
		}
	}
}
