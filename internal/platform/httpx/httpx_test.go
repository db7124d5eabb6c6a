package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/backend"
)

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&p))
	return p
}

func TestRespondErrorMapsBackendErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"api client error", &backend.APIError{Status: 409, Message: "Venta ya pagada"}, 409, "Venta ya pagada"},
		{"api server error", fmt.Errorf("wrap: %w", &backend.APIError{Status: 500, Message: "boom"}), 502, "boom"},
		{"unreachable", fmt.Errorf("x: %w", backend.ErrConnection), 502, "connection error"},
		{"validation", fmt.Errorf("%w: note too short", ErrValidation), 400, "validation failed: note too short"},
		{"conflict", ErrConflict, 409, "conflict"},
		{"unknown", fmt.Errorf("mystery"), 500, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			RespondError(rr, tc.err)
			require.Equal(t, tc.status, rr.Code)
			require.Equal(t, tc.detail, decodeProblem(t, rr).Detail)
		})
	}
}

func TestIDParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x/12", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "12")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	id, err := IDParam(req, "id")
	require.NoError(t, err)
	require.Equal(t, int64(12), id)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "-1")
	_, err = IDParam(req, "id")
	require.ErrorIs(t, err, ErrValidation)
}

func TestDecodeJSONRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var target map[string]any
	require.ErrorIs(t, DecodeJSON(req, &target), ErrValidation)
}

func TestBindValidatesTags(t *testing.T) {
	type form struct {
		Mode string `json:"modo" validate:"required,oneof=vendedor supervisor"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"modo":"otro"}`))
	var f form
	err := Bind(req, &f)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "Mode (oneof)")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"modo":"supervisor"}`))
	require.NoError(t, Bind(req, &f))
	require.Equal(t, "supervisor", f.Mode)
}
