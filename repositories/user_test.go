package repositories

import (
	"testing"

	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	id, err := repo.CreateUser(" Alice@Example.com ", "Alice", "$argon2id$hash")
	req.NoError(err)
	req.NotEmpty(id)

	byEmail, err := repo.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)
	req.Equal("alice@example.com", byEmail.Email)
	req.Equal("Alice", byEmail.DisplayName)
	req.Equal("$argon2id$hash", byEmail.PasswordHash)
	req.Equal([]string{"user"}, byEmail.Roles)

	byID, err := repo.GetUserByID(id)
	req.NoError(err)
	req.Equal(byEmail, byID)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.CreateUser("bob@example.com", "Bob", "hash")
	req.NoError(err)
	_, err = repo.CreateUser("BOB@example.com", "Bobby", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_UnknownUser(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	_, err := repo.GetUserByEmail("ghost@example.com")
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repo.GetUserByID("ghost")
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = repo.SetAvatar("ghost", "a.png")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestUserRepository_ProfilesAndAvatar(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))

	aliceID, err := repo.CreateUser("alice@example.com", "", "hash")
	req.NoError(err)
	previous, err := repo.SetAvatar(aliceID, "avatar.png")
	req.NoError(err)
	req.Empty(previous)

	profiles, err := repo.GetProfiles([]string{aliceID, aliceID, "ghost"})
	req.NoError(err)

	// Then unknown ids are skipped and a blank display name falls back to the email
	req.Len(profiles, 1)
	req.Equal(chat.Profile{ID: aliceID, DisplayName: "alice@example.com", AvatarRef: "avatar.png"}, profiles[aliceID])
}

func TestUserRepository_SetAvatar_ReplacesAndOwns(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))
	aliceID, err := repo.CreateUser("alice@example.com", "Alice", "hash")
	req.NoError(err)
	bobID, err := repo.CreateUser("bob@example.com", "Bob", "hash")
	req.NoError(err)

	_, err = repo.SetAvatar(aliceID, "first.png")
	req.NoError(err)

	// When Alice replaces her avatar, the previous one is returned
	previous, err := repo.SetAvatar(aliceID, "second.png")
	req.NoError(err)
	req.Equal(chat.MediaRef("first.png"), previous)

	// Then Bob cannot take her current avatar, but the released one is free
	_, err = repo.SetAvatar(bobID, "second.png")
	req.ErrorIs(err, errors.ErrForbidden)
	_, err = repo.SetAvatar(bobID, "first.png")
	req.NoError(err)

	alice, err := repo.GetUserByID(aliceID)
	req.NoError(err)
	req.Equal("second.png", alice.AvatarRef)
}
