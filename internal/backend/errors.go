package backend

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrUnavailable covers transport failures, 5xx answers and an open breaker.
	ErrUnavailable = errors.New("backend unavailable")
)

// APIError is a 4xx rejection carrying the backend's message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected request: status %d", e.Status)
	}
	return fmt.Sprintf("backend rejected request: status %d: %s", e.Status, e.Message)
}
