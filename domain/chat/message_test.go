package chat

import (
	"testing"

	"social-chat/errors"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestNewPayload(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		content  *string
		mediaRef *string
		want     Payload
		wantErr  bool
	}{
		{"text with content", KindText, lo.ToPtr("hi"), nil, TextPayload{Content: "hi"}, false},
		{"text is trimmed", KindText, lo.ToPtr("  hi  "), nil, TextPayload{Content: "hi"}, false},
		{"text without content", KindText, nil, nil, nil, true},
		{"text with blank content", KindText, lo.ToPtr("   "), nil, nil, true},
		{"text with content and media", KindText, lo.ToPtr("hi"), lo.ToPtr("media/abc.png"), nil, true},
		{"text with media only", KindText, nil, lo.ToPtr("media/abc.png"), nil, true},
		{"image with media", KindImage, nil, lo.ToPtr("abc.png"), MediaPayload{MediaKind: KindImage, Ref: "abc.png"}, false},
		{"video with media", KindVideo, nil, lo.ToPtr("abc.mp4"), MediaPayload{MediaKind: KindVideo, Ref: "abc.mp4"}, false},
		{"image without media", KindImage, lo.ToPtr("caption"), nil, nil, true},
		{"image with media and content", KindImage, lo.ToPtr("caption"), lo.ToPtr("abc.png"), nil, true},
		{"unknown kind", Kind("audio"), lo.ToPtr("hi"), nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			got, err := NewPayload(tt.kind, tt.content, tt.mediaRef)
			if tt.wantErr {
				req.ErrorIs(err, errors.ErrValidation)
				req.Nil(got)
				return
			}
			req.NoError(err)
			req.Equal(tt.want, got)
			req.NoError(ValidatePayload(got))
		})
	}
}

func TestMessage_Accessors(t *testing.T) {
	req := require.New(t)
	text := Message{Payload: TextPayload{Content: "hi"}, ReadBy: []string{"alice"}}
	media := Message{Payload: MediaPayload{MediaKind: KindVideo, Ref: "clip.mp4"}}

	req.Equal(KindText, text.Kind())
	req.Equal("hi", text.Content())
	req.Empty(text.MediaRef())
	req.True(text.IsReadBy("alice"))
	req.False(text.IsReadBy("bob"))

	req.Equal(KindVideo, media.Kind())
	req.Empty(media.Content())
	req.Equal(MediaRef("clip.mp4"), media.MediaRef())

	req.ErrorIs(ValidatePayload(nil), errors.ErrValidation)
}
