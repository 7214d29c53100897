package auth

import (
	"context"
	"net/http"
	"strings"

	"social-chat/contract"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	RolesKey  contextKey = "roles"
)

// WithPrincipal injects the user identity into the context for downstream service layers.
func WithPrincipal(ctx context.Context, principal contract.Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, principal.UserID)
	return context.WithValue(ctx, RolesKey, principal.Roles)
}

// PrincipalFromContext returns the identity injected by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (contract.Principal, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok || userID == "" {
		return contract.Principal{}, false
	}
	roles, _ := ctx.Value(RolesKey).([]string)
	return contract.Principal{UserID: userID, Roles: roles}, true
}

// BearerToken extracts the token from the standard "Bearer <token>" header.
// Browsers cannot set headers on a websocket handshake, so the "token" query
// parameter is accepted as a fallback.
func BearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
