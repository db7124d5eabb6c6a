// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// RespondError maps domain and backend errors to HTTP responses using RFC7807.
// Backend error messages are passed through verbatim.
func RespondError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		Problem(w, backendStatus(apiErr.Status), "Backend Error", apiErr.Message)
	case errors.Is(err, backend.ErrConnection):
		Problem(w, http.StatusBadGateway, "Bad Gateway", backend.ErrConnection.Error())
	case errors.Is(err, backend.ErrInvalidPayload):
		Problem(w, http.StatusBadGateway, "Bad Gateway", "unexpected backend response")
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, commission.ErrInvalidRange):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// backendStatus keeps client errors and folds server errors into 502.
func backendStatus(status int) int {
	if status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}
