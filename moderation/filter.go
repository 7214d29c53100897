package moderation

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

// ContentFilter censors text messages before they are persisted.
// Found words are only logged together with the detected language.
type ContentFilter struct {
	moderator *Moderator
	log       *slog.Logger
}

func NewContentFilter(moderator *Moderator, log *slog.Logger) *ContentFilter {
	return &ContentFilter{moderator: moderator, log: log}
}

func (f *ContentFilter) Sanitize(senderID, content string) string {
	sanitized, found := f.moderator.Censor(content)
	if len(found) == 0 {
		return content
	}
	info := whatlanggo.Detect(content)
	f.log.Info("Message censored",
		"sender_id", senderID,
		"lang", info.Lang.Iso6391(),
		"confidence", info.Confidence,
		"words", len(found))
	return sanitized
}
