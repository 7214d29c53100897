package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"social-chat/domain/chat"
	"social-chat/errors"

	"github.com/gorilla/mux"
)

func (h *Handler) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	userID := principal(r).UserID
	summary, err := h.chat.CreateConversation(r.Context(), chat.CreateConversationCommand{
		CreatorID:    userID,
		Participants: req.Participants,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present.conversation(summary, userID))
}

func (h *Handler) listConversations(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	summaries, err := h.chat.ListConversations(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.conversations(summaries, userID))
}

func (h *Handler) searchConversations(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	summaries, err := h.chat.SearchConversations(r.Context(), userID, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.conversations(summaries, userID))
}

func (h *Handler) getConversation(w http.ResponseWriter, r *http.Request) {
	userID := principal(r).UserID
	summary, err := h.chat.GetConversation(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present.conversation(summary, userID))
}

// getMessages answers 202 with a warning when the page was read but the
// conversation could not be marked as read.
func (h *Handler) getMessages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: limit must be an integer", errors.ErrValidation))
			return
		}
		limit = parsed
	}
	var cursor *string
	if raw := strings.TrimSpace(query.Get("cursor")); raw != "" {
		cursor = &raw
	}

	page, err := h.chat.GetMessages(r.Context(), chat.GetMessagesCommand{
		ConversationID: mux.Vars(r)["id"],
		UserID:         principal(r).UserID,
		Limit:          limit,
		Cursor:         cursor,
	})
	if err != nil && !errors.Is(err, errors.ErrPartialSuccess) {
		h.writeError(w, r, err)
		return
	}

	view := messagePageView{Messages: h.present.messages(page.Messages), Cursor: page.Cursor}
	if err != nil {
		view.Warning = err.Error()
	}
	writeJSON(w, errors.MapToHTTPStatus(err), view)
}

// sendMessage answers 201 once stored, or 202 with a warning when the message
// is stored but the conversation bookkeeping failed.
func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	message, err := h.chat.SendMessage(r.Context(), chat.SendMessageCommand{
		ConversationID: mux.Vars(r)["id"],
		SenderID:       principal(r).UserID,
		Kind:           chat.Kind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Content:        req.Content,
		MediaRef:       req.MediaRef,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, sentMessageView{Message: h.present.message(message)})
	case errors.Is(err, errors.ErrPartialSuccess):
		writeJSON(w, http.StatusAccepted, sentMessageView{Message: h.present.message(message), Warning: err.Error()})
	default:
		h.writeError(w, r, err)
	}
}
