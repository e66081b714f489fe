package client

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated indicates a 401 response. The stored token has
// been cleared by the time callers see this error.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrAccessDenied indicates a 403 response, typically a token whose
// subject lacks the required role.
var ErrAccessDenied = errors.New("access denied")

// ErrNotFound indicates a 404 response.
var ErrNotFound = errors.New("resource not found")

// ConnectivityError wraps transport-level failures where no HTTP
// response was received at all.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach inventory service: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ValidationError carries a rejected field from a 400 response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ServerError carries the status code of a 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the error class could succeed on a
// later attempt. The client itself never retries; callers that queue
// work use this to decide whether to requeue.
func IsRetryable(err error) bool {
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return true
	}
	var se *ServerError
	return errors.As(err, &se)
}
