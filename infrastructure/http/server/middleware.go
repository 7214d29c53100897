package server

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"social-chat/auth"
	"social-chat/contract"
)

// authenticate verifies the bearer token and stores the principal in the request context.
// Verification is bounded by the identity timeout and fails closed.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := h.verify(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

func (h *Handler) verify(r *http.Request) (contract.Principal, error) {
	principal, err := auth.VerifyWithTimeout(r.Context(), h.identity, auth.BearerToken(r), h.config.IdentityTimeout)
	if err != nil {
		h.log.Warn("Security: request rejected", "method", r.Method, "path", r.URL.Path,
			"remote_addr", r.RemoteAddr, "error", err)
		return contract.Principal{}, err
	}
	return principal, nil
}

// principal is only called behind authenticate.
func principal(r *http.Request) contract.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		h.log.Debug("HTTP request", "method", r.Method, "path", r.URL.Path,
			"status", recorder.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}
