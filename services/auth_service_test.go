package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"social-chat/auth"
	"social-chat/domain/chat"
	"social-chat/errors"
	"social-chat/mocks"
	"social-chat/repositories"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "a-very-long-test-secret-for-hs256-signing"

func newTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	manager, err := auth.NewTokenManager(testSecret, 24*time.Hour)
	require.NoError(t, err)
	return manager
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := newTokenManager(t)
	svc := NewAuthService(logs.GetLoggerFromLevel(slog.LevelDebug), mockRepo, tokens, nil, nil)

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		password := "ComplexPass123!"
		expectedUserID := "user-uuid"

		// Expect CreateUser to be called with a normalized email and a hashed password
		mockRepo.EXPECT().
			CreateUser("test@example.com", "Tester", gomock.Not(password)).
			Return(expectedUserID, nil).
			Times(1)

		session, err := svc.Register(" Test@Example.com ", password, " Tester ")
		req.NoError(err)
		req.Equal(expectedUserID, session.UserID)

		principal, err := tokens.VerifyToken(context.Background(), session.Token.String())
		req.NoError(err)
		req.Equal(expectedUserID, principal.UserID)
		req.Equal([]string{repositories.DefaultRole}, principal.Roles)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)

		// Repository should never be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		session, err := svc.Register("test@example.com", "simple-but-long", "")
		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(session.Token)
	})

	t.Run("should fail when email is invalid", func(t *testing.T) {
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register("not-an-email", "ComplexPass123!", "")
		require.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		mockRepo.EXPECT().
			CreateUser("duplicate@example.com", "", gomock.Any()).
			Return("", errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register("duplicate@example.com", "ComplexPass123!", "")
		require.ErrorIs(t, err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := newTokenManager(t)
	svc := NewAuthService(logs.GetLoggerFromLevel(slog.LevelDebug), mockRepo, tokens, nil, nil)

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		email := "user@example.com"
		password := "Secret123456!"

		hashedPassword, err := auth.HashPassword(password)
		req.NoError(err)
		storedUser := repositories.User{
			ID:           "uuid-123",
			Email:        email,
			PasswordHash: hashedPassword,
			Roles:        []string{"user"},
		}
		mockRepo.EXPECT().GetUserByEmail(email).Return(storedUser, nil).Times(1)

		session, err := svc.Login("USER@example.com", password)
		req.NoError(err)

		claims, err := tokens.ValidateToken(session.Token.String())
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		email := "user@example.com"
		hashedPassword, err := auth.HashPassword("CorrectPassword123!")
		require.NoError(t, err)

		mockRepo.EXPECT().
			GetUserByEmail(email).
			Return(repositories.User{Email: email, PasswordHash: hashedPassword}, nil).
			Times(1)

		_, err = svc.Login(email, "WrongPassword123!")
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials when user is not found", func(t *testing.T) {
		mockRepo.EXPECT().
			GetUserByEmail("unknown@example.com").
			Return(repositories.User{}, errors.ErrNotFound).
			Times(1)

		_, err := svc.Login("unknown@example.com", "anyPassword")
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	})

	t.Run("should surface storage failures", func(t *testing.T) {
		mockRepo.EXPECT().
			GetUserByEmail("user@example.com").
			Return(repositories.User{}, errors.ErrStorage).
			Times(1)

		_, err := svc.Login("user@example.com", "anyPassword")
		require.ErrorIs(t, err, errors.ErrStorage)
	})
}

func TestAuthService_Profile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(logs.GetLoggerFromLevel(slog.LevelDebug), mockRepo, newTokenManager(t), nil, nil)

	mockRepo.EXPECT().GetUserByID("alice").
		Return(repositories.User{ID: "alice", Email: "alice@example.com", DisplayName: "Alice", AvatarRef: "a.png"}, nil)

	profile, err := svc.Profile("alice")
	require.NoError(t, err)
	require.Equal(t, chat.Profile{ID: "alice", DisplayName: "Alice", AvatarRef: "a.png"}, profile)
}

func TestAuthService_SetAvatar(t *testing.T) {
	newService := func(t *testing.T) (*AuthService, *mocks.MockIUserRepository, *mocks.MockBlobStore, *mocks.MockIMessageRepository) {
		ctrl := gomock.NewController(t)
		users := mocks.NewMockIUserRepository(ctrl)
		blobs := mocks.NewMockBlobStore(ctrl)
		messages := mocks.NewMockIMessageRepository(ctrl)
		svc := NewAuthService(logs.GetLoggerFromLevel(slog.LevelDebug), users, newTokenManager(t), blobs, messages)
		return svc, users, blobs, messages
	}
	ctx := context.Background()

	t.Run("first avatar", func(t *testing.T) {
		svc, users, blobs, _ := newService(t)
		users.EXPECT().SetAvatar("alice", chat.MediaRef("a.png")).Return(chat.MediaRef(""), nil)
		blobs.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

		require.NoError(t, svc.SetAvatar(ctx, "alice", "a.png"))
	})

	t.Run("previous avatar is deleted", func(t *testing.T) {
		svc, users, blobs, messages := newService(t)
		users.EXPECT().SetAvatar("alice", chat.MediaRef("b.png")).Return(chat.MediaRef("a.png"), nil)
		messages.EXPECT().IsMediaReferenced(chat.MediaRef("a.png")).Return(false, nil)
		blobs.EXPECT().Delete(gomock.Any(), chat.MediaRef("a.png")).Return(nil)

		require.NoError(t, svc.SetAvatar(ctx, "alice", "b.png"))
	})

	t.Run("previous avatar sent in a message is kept", func(t *testing.T) {
		svc, users, blobs, messages := newService(t)
		users.EXPECT().SetAvatar("alice", chat.MediaRef("b.png")).Return(chat.MediaRef("a.png"), nil)
		messages.EXPECT().IsMediaReferenced(chat.MediaRef("a.png")).Return(true, nil)
		blobs.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

		require.NoError(t, svc.SetAvatar(ctx, "alice", "b.png"))
	})

	t.Run("same avatar again", func(t *testing.T) {
		svc, users, blobs, messages := newService(t)
		users.EXPECT().SetAvatar("alice", chat.MediaRef("a.png")).Return(chat.MediaRef("a.png"), nil)
		messages.EXPECT().IsMediaReferenced(gomock.Any()).Times(0)
		blobs.EXPECT().Delete(gomock.Any(), gomock.Any()).Times(0)

		require.NoError(t, svc.SetAvatar(ctx, "alice", "a.png"))
	})

	t.Run("cleanup failures never fail the update", func(t *testing.T) {
		svc, users, blobs, messages := newService(t)
		users.EXPECT().SetAvatar("alice", chat.MediaRef("b.png")).Return(chat.MediaRef("a.png"), nil)
		messages.EXPECT().IsMediaReferenced(chat.MediaRef("a.png")).Return(false, nil)
		blobs.EXPECT().Delete(gomock.Any(), chat.MediaRef("a.png")).Return(errors.ErrStorage)

		require.NoError(t, svc.SetAvatar(ctx, "alice", "b.png"))
	})

	t.Run("rejections", func(t *testing.T) {
		svc, users, _, _ := newService(t)
		require.ErrorIs(t, svc.SetAvatar(ctx, "alice", ""), errors.ErrValidation)

		users.EXPECT().SetAvatar("bob", chat.MediaRef("a.png")).Return(chat.MediaRef(""), errors.ErrForbidden)
		require.ErrorIs(t, svc.SetAvatar(ctx, "bob", "a.png"), errors.ErrForbidden)
	})
}
