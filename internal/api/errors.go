package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when the requested event does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when the backend rejects missing or expired credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden is returned when the viewer may not act on the event.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when the request clashes with server state, such
// as subscribing to a full event or subscribing twice.
var ErrConflict = errors.New("conflict")

// StatusError is returned for every non-2xx response.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string // server supplied message, if any
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Is maps well-known statuses onto the package sentinels.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// ServerMessage extracts the server supplied message from err, if any.
func ServerMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
