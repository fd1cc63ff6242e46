package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Client errors
var (
	// ErrUnauthorized indicates an expired or rejected credential (HTTP 401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates that the authority does not hold the resource (HTTP 404)
	ErrNotFound = errors.New("not found")

	// ErrUnknownEntity indicates an entity type without a configured endpoint
	ErrUnknownEntity = errors.New("no endpoint for entity type")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Code)
	}
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// Unwrap maps well-known status codes to sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// Temporary reports whether retrying the same request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout
}
