package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"social-chat/auth"
	"social-chat/contract"
	"social-chat/domain/chat"
	"social-chat/errors"
	"social-chat/repositories"
)

type IAuthService interface {
	Register(email, password, displayName string) (Session, error)
	Login(email, password string) (Session, error)
	Profile(userID string) (chat.Profile, error)
	SetAvatar(ctx context.Context, userID string, ref chat.MediaRef) error
}

// TokenIssuer signs session tokens, implemented by auth.TokenManager.
type TokenIssuer interface {
	GenerateToken(userID string, roles []string) (string, error)
}

// MediaReferences tells whether a message still needs a blob, implemented by the message store.
type MediaReferences interface {
	IsMediaReferenced(ref chat.MediaRef) (bool, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

type Session struct {
	UserID string
	Token  Token
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	issuer         TokenIssuer
	blobs          contract.BlobStore
	media          MediaReferences
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, issuer TokenIssuer,
	blobs contract.BlobStore, media MediaReferences) *AuthService {
	return &AuthService{log: log, userRepository: repo, issuer: issuer, blobs: blobs, media: media}
}

func (s *AuthService) Register(email, password, displayName string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)

	// Business rules are checked before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}); err != nil {
		return Session{}, err
	}

	// The repository never sees plain passwords
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("hashing failed: %w", err)
	}

	userID, err := s.userRepository.CreateUser(email, displayName, hashedPassword)
	if err != nil {
		return Session{}, err
	}

	token, err := s.issuer.GenerateToken(userID, []string{repositories.DefaultRole})
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	return Session{UserID: userID, Token: Token(token)}, nil
}

func (s *AuthService) Login(email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := auth.ValidateLogin(auth.LoginRequest{Email: email, Password: password}); err != nil {
		return Session{}, errors.ErrInvalidCredentials
	}

	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, errors.ErrStorage) {
			return Session{}, err
		}
		// Generic error to prevent user enumeration attacks
		return Session{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return Session{}, errors.ErrInvalidCredentials
	}

	token, err := s.issuer.GenerateToken(user.ID, user.Roles)
	if err != nil {
		return Session{}, errors.ErrTokenGeneration
	}
	return Session{UserID: user.ID, Token: Token(token)}, nil
}

func (s *AuthService) Profile(userID string) (chat.Profile, error) {
	user, err := s.userRepository.GetUserByID(userID)
	if err != nil {
		return chat.Profile{}, err
	}
	return user.Profile(), nil
}

// SetAvatar replaces the avatar of a user and removes the previous blob unless a message carries it.
// Failing to remove the previous blob never fails the update.
func (s *AuthService) SetAvatar(ctx context.Context, userID string, ref chat.MediaRef) error {
	if ref == "" {
		return fmt.Errorf("%w: media reference is required", errors.ErrValidation)
	}
	previous, err := s.userRepository.SetAvatar(userID, ref)
	if err != nil {
		return err
	}
	if previous == "" || previous == ref {
		return nil
	}

	referenced, err := s.media.IsMediaReferenced(previous)
	if err != nil {
		s.log.Warn("Previous avatar kept", "user_id", userID, "media_ref", previous, "error", err)
		return nil
	}
	if referenced {
		s.log.Debug("Previous avatar still used by a message", "user_id", userID, "media_ref", previous)
		return nil
	}
	if err := s.blobs.Delete(ctx, previous); err != nil {
		s.log.Warn("Failed to delete previous avatar", "user_id", userID, "media_ref", previous, "error", err)
	}
	return nil
}
