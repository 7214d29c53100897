package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"social-chat/contract"
	"social-chat/errors"
	"social-chat/services"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	DefaultIdentityTimeout = 2 * time.Second
	maxJSONBody            = 1 << 20
	multipartMemory        = 8 << 20
)

type Config struct {
	IdentityTimeout      time.Duration
	MaxUploadBytes       int64
	ConnectionBufferSize int
}

// Handler exposes the chat service over HTTP and websockets.
type Handler struct {
	log      *slog.Logger
	chat     services.IChatService
	accounts services.IAuthService
	identity contract.IdentityProvider
	blobs    contract.BlobStore
	present  presenter
	config   Config
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger,
	chat services.IChatService,
	accounts services.IAuthService,
	identity contract.IdentityProvider,
	blobs contract.BlobStore,
	config Config) *Handler {
	if config.IdentityTimeout <= 0 {
		config.IdentityTimeout = DefaultIdentityTimeout
	}
	return &Handler{
		log:      log,
		chat:     chat,
		accounts: accounts,
		identity: identity,
		blobs:    blobs,
		present:  presenter{urlFor: blobs.URLFor},
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients authenticate with a bearer token, not cookies.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router wires every route. Authentication, media download and the websocket
// handshake are public, the websocket verifies its token before upgrading.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/media/{ref}", h.downloadMedia).Methods(http.MethodGet)
	r.HandleFunc("/ws", h.serveWebsocket).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(h.authenticate)
	api.HandleFunc("/me", h.me).Methods(http.MethodGet)
	api.HandleFunc("/me/avatar", h.setAvatar).Methods(http.MethodPut)
	api.HandleFunc("/conversations", h.createConversation).Methods(http.MethodPost)
	api.HandleFunc("/conversations", h.listConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/search", h.searchConversations).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}", h.getConversation).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", h.getMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", h.sendMessage).Methods(http.MethodPost)
	api.HandleFunc("/media", h.uploadMedia).Methods(http.MethodPost)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError hides the cause of unexpected errors, domain errors are returned as is.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.MapToHTTPStatus(err)
	message := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		message = errors.ErrStorage.Error()
	case status >= http.StatusInternalServerError:
		message = http.StatusText(status)
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", errors.ErrValidation, err)
	}
	return nil
}
