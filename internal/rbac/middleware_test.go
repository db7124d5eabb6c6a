package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/shared"
)

func requestAs(p *shared.Principal) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/panel/sellers", nil)
	sess := &shared.Session{ID: "s1"}
	if p != nil {
		sess.SetPrincipal(*p)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func serve(h http.Handler, req *http.Request) int {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := Middleware{}.RequireRole(commission.RoleAdmin, commission.RoleSupervisor)(ok)

	require.Equal(t, http.StatusUnauthorized, serve(guard, requestAs(nil)))
	require.Equal(t, http.StatusForbidden, serve(guard, requestAs(&shared.Principal{Token: "t", Role: commission.RoleSeller})))
	require.Equal(t, http.StatusNoContent, serve(guard, requestAs(&shared.Principal{Token: "t", Role: commission.RoleSupervisor})))
	require.Equal(t, http.StatusForbidden, serve(guard, requestAs(&shared.Principal{Token: "t", Role: commission.RoleAdmin, MustChangePassword: true})))
}

func TestRequireAuthenticated(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := Middleware{}.RequireAuthenticated(ok)

	require.Equal(t, http.StatusUnauthorized, serve(guard, requestAs(nil)))
	require.Equal(t, http.StatusNoContent, serve(guard, requestAs(&shared.Principal{Token: "t", Role: commission.RoleSeller, MustChangePassword: true})))
}
