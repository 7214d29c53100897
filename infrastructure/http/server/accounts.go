package server

import (
	"fmt"
	"net/http"
	"strings"

	"social-chat/domain/chat"
	"social-chat/errors"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.accounts.Register(req.Email, req.Password, req.DisplayName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{UserID: session.UserID, Token: session.Token.String()})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.accounts.Login(req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{UserID: session.UserID, Token: session.Token.String()})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.Profile(principal(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.profile(profile))
}

// setAvatar accepts only a stored image as avatar.
func (h *Handler) setAvatar(w http.ResponseWriter, r *http.Request) {
	var req avatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ref := chat.MediaRef(strings.TrimSpace(req.MediaRef))
	if ref == "" {
		h.writeError(w, r, fmt.Errorf("%w: media_ref is required", errors.ErrValidation))
		return
	}
	reader, mimeType, err := h.blobs.Open(r.Context(), ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = reader.Close()
	if !strings.HasPrefix(mimeType, "image/") {
		h.writeError(w, r, fmt.Errorf("%w: avatar must be an image, got %s", errors.ErrValidation, mimeType))
		return
	}

	userID := principal(r).UserID
	if err := h.accounts.SetAvatar(r.Context(), userID, ref); err != nil {
		h.writeError(w, r, err)
		return
	}
	profile, err := h.accounts.Profile(userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.profile(profile))
}
