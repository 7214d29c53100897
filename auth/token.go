package auth

import (
	"context"
	"fmt"
	"time"

	"social-chat/contract"
	"social-chat/errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer          = "social-chat"
	minSecretLength = 32
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens with a secret injected from configuration.
// It is the IdentityProvider used by both the HTTP API and the websocket endpoint.
type TokenManager struct {
	key      []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenManager(secret string, duration time.Duration) (*TokenManager, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes long", minSecretLength)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("token duration must be positive, got %s", duration)
	}
	return &TokenManager{key: []byte(secret), duration: duration, now: time.Now}, nil
}

// GenerateToken creates a signed JWT for a specific user.
func (m *TokenManager) GenerateToken(userID string, roles []string) (string, error) {
	now := m.now()
	claims := &CustomClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return signed, nil
}

// ValidateToken parses and validates the signature, issuer and expiration of a JWT string.
func (m *TokenManager) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// VerifyToken resolves the principal behind a bearer token.
func (m *TokenManager) VerifyToken(ctx context.Context, token string) (contract.Principal, error) {
	if err := ctx.Err(); err != nil {
		return contract.Principal{}, err
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		return contract.Principal{}, fmt.Errorf("%w: %v", errors.ErrUnauthenticated, err)
	}
	return contract.Principal{UserID: claims.UserID, Roles: claims.Roles}, nil
}
