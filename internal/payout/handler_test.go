package payout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/shared"
)

func newTestRouter(t *testing.T, withSession bool) http.Handler {
	t.Helper()
	svc, _, _, _, _ := newTestService(t)
	h := NewHandler(nil, svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{ID: admin.SessionID}
			if withSession {
				sess.SetPrincipal(shared.Principal{Token: admin.Token, Role: commission.RoleAdmin, Name: admin.Name})
			}
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	h.MountRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&out)
	return rr, out
}

func TestHandlerRequiresPrincipal(t *testing.T) {
	rr, _ := do(t, newTestRouter(t, false), http.MethodGet, "/sellers/7/payout", "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerWorkflowRoundTrip(t *testing.T) {
	h := newTestRouter(t, true)

	rr, body := do(t, h, http.MethodPost, "/sellers/7/payout/toggle", `{"ventaId":1}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "$ 15.000", body["totalSeleccionadoTexto"])

	rr, _ = do(t, h, http.MethodPost, "/sellers/7/payout/mode", `{"modo":"otro"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, h, http.MethodPost, "/sellers/7/payout/submit", `{"token":"nope"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr, body = do(t, h, http.MethodPost, "/sellers/7/payout/confirm", "")
	require.Equal(t, http.StatusOK, rr.Code)
	token := body["workflow"].(map[string]any)["confirmacion"].(map[string]any)["token"].(string)

	rr, body = do(t, h, http.MethodPost, "/sellers/7/payout/submit", `{"token":"`+token+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, string(StateSuccess), body["workflow"].(map[string]any)["estado"])

	rr, body = do(t, h, http.MethodGet, "/sellers/7/payout/history", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, body["pagos"], 1)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	h := newTestRouter(t, true)
	rr, _ := do(t, h, http.MethodPost, "/sellers/7/payout/submit", `{"token":"x"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, h, http.MethodGet, "/sellers/abc/payout", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
