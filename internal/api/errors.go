package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/fmdesk/internal/action"
)

// Error is returned by every Client method that fails after the request was
// built. Status is 0 when no response was received.
type Error struct {
	Method string
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: network error: %v", e.Method, e.Path, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: server error %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the request may succeed if sent again. Whether
// it is safe to send again also depends on the method; see idempotent.
func (e *Error) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Unauthorized reports a 401 or 403.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Failure converts e into the payload of a failure action.
func (e *Error) Failure() action.Failure {
	if e.Status == 0 {
		return action.Failure{Kind: action.FailureNetwork, Message: "network error"}
	}
	msg := fmt.Sprintf("server error %d: %s", e.Status, e.Body)
	if e.Body == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	kind := action.FailureServer
	if e.Unauthorized() {
		kind = action.FailureAuth
	}
	return action.Failure{Kind: kind, Status: e.Status, Message: msg}
}

// IsNotFound reports whether err is an *Error carrying a 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
