package chat

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"social-chat/errors"

	"github.com/samber/lo"
)

const MinParticipants = 2

// Conversation is a thread between a fixed set of participants.
// Participants never change after creation.
type Conversation struct {
	ID            string
	Participants  []string
	LastMessageID *string
	UnreadCounts  map[string]uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewConversation deduplicates participants and initializes one zero counter per participant.
func NewConversation(id string, participants []string, at time.Time) (Conversation, error) {
	cleaned := lo.Uniq(lo.FilterMap(participants, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	}))
	if len(cleaned) < MinParticipants {
		return Conversation{}, fmt.Errorf("%w: a conversation needs at least %d distinct participants",
			errors.ErrValidation, MinParticipants)
	}
	slices.Sort(cleaned)

	counts := make(map[string]uint64, len(cleaned))
	for _, p := range cleaned {
		counts[p] = 0
	}
	return Conversation{
		ID:           id,
		Participants: cleaned,
		UnreadCounts: counts,
		CreatedAt:    at,
		UpdatedAt:    at,
	}, nil
}

func (c Conversation) HasParticipant(userID string) bool {
	return slices.Contains(c.Participants, userID)
}

// UnreadFor defaults to 0 when the counter is absent.
func (c Conversation) UnreadFor(userID string) uint64 {
	return c.UnreadCounts[userID]
}

// Others returns every participant except userID.
func (c Conversation) Others(userID string) []string {
	return lo.Without(c.Participants, userID)
}
