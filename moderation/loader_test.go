package moderation

import (
	"log/slog"
	"testing"
	"testing/fstest"

	"social-chat/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_Embedded(t *testing.T) {
	req := require.New(t)

	data, err := NewCensoredLoader(Censored).LoadAll(CensoredDir)
	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
	req.Contains(data.Words, "merde")
	req.IsIncreasing(data.Words)
}

func TestCensoredLoader_DeduplicatesAndSkipsComments(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words/en.txt":       {Data: []byte("# comment\r\nBadger\r\n\r\nsnake\n")},
		"words/fr.txt":       {Data: []byte("badger\nserpent\n")},
		"words/readme.md":    {Data: []byte("ignored")},
		"words/nested/x.txt": {Data: []byte("hidden")},
	}

	data, err := NewCensoredLoader(fsys).LoadAll("words")
	req.NoError(err)
	req.Equal([]string{"badger", "serpent", "snake"}, data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}

func TestCensoredLoader_Empty(t *testing.T) {
	fsys := fstest.MapFS{"words/en.txt": {Data: []byte("\n\n")}}
	_, err := NewCensoredLoader(fsys).LoadAll("words")
	require.ErrorIs(t, err, errors.ErrEmptyWords)
}

func TestContentFilter_Sanitize(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"badger"}, replacementChar, log)
	req.NoError(err)
	filter := NewContentFilter(mod, log)

	req.Equal("The ****** is here", filter.Sanitize("alice", "The badger is here"))
	req.Equal("hello there", filter.Sanitize("alice", "hello there"))
}
