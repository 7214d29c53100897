package chat

import (
	"testing"
	"time"

	"social-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestNewConversation_DeduplicatesParticipants(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()

	conv, err := NewConversation("c1", []string{"bob", "alice", "bob", " "}, at)
	req.NoError(err)

	req.Equal([]string{"alice", "bob"}, conv.Participants)
	req.Equal(map[string]uint64{"alice": 0, "bob": 0}, conv.UnreadCounts)
	req.Equal(at, conv.CreatedAt)
	req.Equal(at, conv.UpdatedAt)
	req.Nil(conv.LastMessageID)
}

func TestNewConversation_RequiresTwoDistinctParticipants(t *testing.T) {
	req := require.New(t)
	_, err := NewConversation("c1", []string{"alice", "alice"}, time.Now())
	req.ErrorIs(err, errors.ErrValidation)

	_, err = NewConversation("c1", nil, time.Now())
	req.ErrorIs(err, errors.ErrValidation)
}

func TestConversation_Helpers(t *testing.T) {
	req := require.New(t)
	conv, err := NewConversation("c1", []string{"alice", "bob", "carol"}, time.Now())
	req.NoError(err)
	conv.UnreadCounts["bob"] = 3
	delete(conv.UnreadCounts, "carol")

	req.True(conv.HasParticipant("alice"))
	req.False(conv.HasParticipant("mallory"))
	req.Equal(uint64(3), conv.UnreadFor("bob"))
	req.Equal(uint64(0), conv.UnreadFor("carol"))
	req.Equal([]string{"bob", "carol"}, conv.Others("alice"))
}

func TestProfile_Matches(t *testing.T) {
	req := require.New(t)
	p := Profile{ID: "u-42", DisplayName: "Bob Marley"}

	req.True(p.Matches("marl"))
	req.True(p.Matches("BOB"))
	req.True(p.Matches("u-4"))
	req.False(p.Matches("alice"))
	req.False(p.Matches("  "))
}
