package internal

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"social-chat/errors"
	"social-chat/repositories"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

const (
	defaultPrefix = "conv:"
	defaultLimit  = 500
)

type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Limit  int
	Items  []repositories.Record
	Stats  map[string]any
}

// InspectHandler renders the decoded badger records under the "prefix" query parameter.
func InspectHandler(db *badger.DB, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = defaultPrefix
		}
		limit := defaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		data := PageData{Prefix: prefix, Limit: limit, Stats: make(map[string]any)}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}
		err := repositories.ScanRecords(db, prefix, limit, func(record repositories.Record) {
			data.Items = append(data.Items, record)
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
}

// StartDebugServer serves the inspector in the background. Only enabled at debug level.
func StartDebugServer(log *slog.Logger, db *badger.DB, address, endpoint string, statsProvider StatsProvider) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(endpoint, InspectHandler(db, statsProvider))
	server := &http.Server{Addr: address, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Debug inspector stopped", "error", err)
		}
	}()
	return server
}
