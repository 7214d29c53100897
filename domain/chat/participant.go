package chat

import "strings"

// Profile is the public projection of a user, attached to delivered messages.
type Profile struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// Matches reports whether the display name or the id contains query, ignoring case.
func (p Profile) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(p.DisplayName), q) ||
		strings.Contains(strings.ToLower(p.ID), q)
}

// UnknownProfile is used when the directory has no entry for a user.
func UnknownProfile(userID string) Profile {
	return Profile{ID: userID, DisplayName: userID}
}
