package internal

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("BADGER_FILEPATH", "/tmp/badger")
	t.Setenv("MEDIA_DIR", "/tmp/media")
	t.Setenv("JWT_SECRET", "a-test-secret-of-at-least-32-bytes!!")
	t.Setenv("LIMIT_MESSAGES", "20")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8000")
	t.Setenv("GRPC_PORT", "9000")

	var config Config
	_, err := env.UnmarshalFromEnviron(&config)
	req.NoError(err)

	req.Equal("127.0.0.1:8000", config.HTTPAddress())
	req.Equal("127.0.0.1:9000", config.GrpcAddress())
	req.Equal(2*time.Second, config.IdentityTimeout)
	req.Equal("/media", config.MediaBaseURL)
	req.NotNil(config.LimitMessages)
	req.Equal(20, *config.LimitMessages)
	req.Equal(int64(20<<20), config.MaxUploadBytes)
}

func TestCharacterRune(t *testing.T) {
	r, err := CharacterRune("#")
	require.NoError(t, err)
	require.Equal(t, '#', r)

	_, err = CharacterRune("**")
	require.Error(t, err)
	_, err = CharacterRune("")
	require.Error(t, err)
}
