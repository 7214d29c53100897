package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"social-chat/domain/chat"
	"social-chat/domain/event"
	"social-chat/errors"
	"social-chat/sink"

	"github.com/gorilla/websocket"
)

const (
	defaultReadTimeout = 60 * time.Second
	readLimit          = 1 << 20
	inflightTimeout    = 5 * time.Second
)

type inboundFrame struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversation_id,omitempty"`
	Kind           string  `json:"kind,omitempty"`
	Content        *string `json:"content,omitempty"`
	MediaRef       *string `json:"media_ref,omitempty"`
}

type outboundFrame struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversation_id,omitempty"`
	Data           any    `json:"data,omitempty"`
	Warning        string `json:"warning,omitempty"`
}

type errorFrame struct {
	Event string `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// encodeEvent renders a domain event as the frame pushed to subscribers.
func (h *Handler) encodeEvent(e event.DomainEvent) ([]byte, error) {
	switch evt := e.(type) {
	case event.MessageCreated:
		return json.Marshal(outboundFrame{
			Event:          evt.Name(),
			ConversationID: string(evt.RoomID()),
			Data:           h.present.message(evt.Message),
		})
	default:
		return nil, fmt.Errorf("unsupported event %s", e.Name())
	}
}

// serveWebsocket authenticates the handshake, then processes frames until the client disconnects.
// A connection receives nothing until it joins a room.
func (h *Handler) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	principal, err := h.verify(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the response.
		h.log.Debug("Websocket upgrade failed", "user_id", principal.UserID, "error", err)
		return
	}

	conn := sink.NewConnection(principal.UserID, ws, h.encodeEvent, h.config.ConnectionBufferSize, h.log)
	conn.Start()
	h.chat.Connect(conn.ID, conn)
	h.log.Info("Websocket connected", "user_id", principal.UserID, "connection_id", conn.ID)
	defer func() {
		h.chat.Disconnect(conn.ID)
		conn.Close(websocket.CloseNormalClosure, "session closed")
		h.log.Info("Websocket disconnected", "user_id", principal.UserID, "connection_id", conn.ID)
	}()

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
	})

	h.reply(conn, outboundFrame{Event: "connected"})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.log.Debug("Websocket read stopped", "connection_id", conn.ID, "error", err)
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.replyError(conn, "bad_request", "invalid payload")
			continue
		}
		frame.ConversationID = strings.TrimSpace(frame.ConversationID)
		if frame.ConversationID == "" {
			h.replyError(conn, "bad_request", "conversation_id is required")
			continue
		}

		switch frame.Type {
		case "join":
			h.handleJoin(r.Context(), conn, frame)
		case "leave":
			h.chat.LeaveRoom(conn.ID, chat.RoomID(frame.ConversationID))
			h.reply(conn, outboundFrame{Event: "left", ConversationID: frame.ConversationID})
		case "message":
			h.handleMessage(r.Context(), conn, frame)
		default:
			h.replyError(conn, "unsupported_type", "unknown frame type")
		}
	}
}

func (h *Handler) handleJoin(ctx context.Context, conn *sink.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, inflightTimeout)
	defer cancel()

	if err := h.chat.JoinRoom(ctx, conn.UserID, conn.ID, chat.RoomID(frame.ConversationID)); err != nil {
		h.replyError(conn, errorCode(err), err.Error())
		return
	}
	h.reply(conn, outboundFrame{Event: "joined", ConversationID: frame.ConversationID})
}

// handleMessage sends through the same path as the HTTP endpoint.
// The socket closing does not cancel a send already started.
func (h *Handler) handleMessage(ctx context.Context, conn *sink.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inflightTimeout)
	defer cancel()

	message, err := h.chat.SendMessage(ctx, chat.SendMessageCommand{
		ConversationID: frame.ConversationID,
		SenderID:       conn.UserID,
		Kind:           chat.Kind(strings.ToLower(strings.TrimSpace(frame.Kind))),
		Content:        frame.Content,
		MediaRef:       frame.MediaRef,
	})
	if err != nil && !errors.Is(err, errors.ErrPartialSuccess) {
		h.replyError(conn, errorCode(err), err.Error())
		return
	}
	ack := outboundFrame{Event: "sent", ConversationID: frame.ConversationID, Data: h.present.message(message)}
	if err != nil {
		ack.Warning = err.Error()
	}
	h.reply(conn, ack)
}

func (h *Handler) reply(conn *sink.Connection, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error("Cannot encode frame", "error", err)
		return
	}
	_ = conn.Send(payload)
}

func (h *Handler) replyError(conn *sink.Connection, code, message string) {
	h.reply(conn, errorFrame{Event: "error", Code: code, Error: message})
}

func errorCode(err error) string {
	switch errors.MapToHTTPStatus(err) {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}
