// Package rbac guards routes by the role carried in the session principal.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// Middleware wires role authorization helpers for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAuthenticated rejects anonymous requests with 401.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.PrincipalFromContext(r.Context()) == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the principal holds one of roles. A principal that still
// has to change its password is only let through routes that allow it.
func (m Middleware) RequireRole(roles ...commission.Role) func(http.Handler) http.Handler {
	allowed := make(map[commission.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := shared.PrincipalFromContext(r.Context())
			if p == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrUnauthenticated.Error())
				return
			}
			if _, ok := allowed[p.Role]; !ok {
				if m.Logger != nil {
					m.Logger.Warn("rbac role denied", slog.String("role", string(p.Role)), slog.String("path", r.URL.Path))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "role not allowed")
				return
			}
			if p.MustChangePassword {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "password change required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
