package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConnection is returned when the backend could not be reached at all.
	ErrConnection = errors.New("connection error")
	// ErrInvalidPayload is returned when a 2xx body fails to decode or validate.
	ErrInvalidPayload = errors.New("invalid backend payload")
)

// APIError is a non-2xx answer from the backend. Message is the backend's own
// error text and is meant to be shown verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether the backend rejected the bearer token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized
	}
	return false
}

// errorBody covers the error envelopes the backend uses.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

func (b errorBody) text() string {
	switch {
	case b.Error != "":
		return b.Error
	case b.Message != "":
		return b.Message
	default:
		return b.Msg
	}
}
