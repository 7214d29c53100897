package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation         = fmt.Errorf("validation error")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrUnauthenticated    = fmt.Errorf("unauthenticated")
	ErrNotFound           = fmt.Errorf("not found")
	ErrStorage            = fmt.Errorf("storage unavailable")
	ErrDelivery           = fmt.Errorf("realtime delivery failed")
	ErrPartialSuccess     = fmt.Errorf("message persisted with pending propagation")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrConnectionFull     = fmt.Errorf("connection buffer exceeded")
	ErrInvalidHash        = fmt.Errorf("invalid hash format")
	ErrNotAttached        = fmt.Errorf("connection is not attached")
)

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// PropagationError is returned once a message is durably stored but the
// conversation bookkeeping (unread counters, last message pointer) failed.
// The message stays persisted; callers treat it as a partial success.
type PropagationError struct {
	ConversationID string
	MessageID      string
	Err            error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("%s (conversation=%s message=%s): %v",
		ErrPartialSuccess, e.ConversationID, e.MessageID, e.Err)
}

func (e *PropagationError) Unwrap() []error {
	return []error{ErrPartialSuccess, e.Err}
}

// MapToHTTPStatus translates a domain error into the status code returned by the request layer.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case stderrors.Is(err, ErrPartialSuccess):
		return http.StatusAccepted
	case stderrors.Is(err, ErrValidation), stderrors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case stderrors.Is(err, ErrUnauthenticated), stderrors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case stderrors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
