package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/alerts"
	"github.com/puntomas/panel/internal/auth"
	"github.com/puntomas/panel/internal/businesses"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/contests"
	"github.com/puntomas/panel/internal/dashboard"
	"github.com/puntomas/panel/internal/observability"
	"github.com/puntomas/panel/internal/payout"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/raffles"
	"github.com/puntomas/panel/internal/rbac"
	"github.com/puntomas/panel/internal/sellers"
	"github.com/puntomas/panel/internal/shared"
	"github.com/puntomas/panel/internal/stats"
	"github.com/puntomas/panel/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	AlertsHandler     *alerts.Handler
	PayoutHandler     *payout.Handler
	DashboardHandler  *dashboard.Handler
	SellersHandler    *sellers.Handler
	BusinessesHandler *businesses.Handler
	ContestsHandler   *contests.Handler
	RafflesHandler    *raffles.Handler
	StatsHandler      *stats.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router of the panel API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, httpx.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" "+r.URL.Path)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/api/auth", params.AuthHandler.MountRoutes)
	}

	guard := params.RBACMiddleware
	r.Route("/api/panel", func(r chi.Router) {
		r.Use(guard.RequireAuthenticated)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireRole(commission.RoleAdmin, commission.RoleSupervisor))
			if params.AlertsHandler != nil {
				params.AlertsHandler.MountCountRoute(r)
			}
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(guard.RequireRole(commission.RoleAdmin))
			if params.DashboardHandler != nil {
				params.DashboardHandler.MountRoutes(r)
			}
			if params.SellersHandler != nil {
				params.SellersHandler.MountAdminRoutes(r)
			}
			if params.PayoutHandler != nil {
				params.PayoutHandler.MountRoutes(r)
			}
			if params.AlertsHandler != nil {
				params.AlertsHandler.MountAdminRoutes(r)
			}
			if params.BusinessesHandler != nil {
				params.BusinessesHandler.MountRoutes(r)
			}
			if params.ContestsHandler != nil {
				params.ContestsHandler.MountRoutes(r)
			}
			if params.RafflesHandler != nil {
				params.RafflesHandler.MountRoutes(r)
			}
			if params.StatsHandler != nil {
				params.StatsHandler.MountRoutes(r)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})

		r.Route("/supervisor", func(r chi.Router) {
			r.Use(guard.RequireRole(commission.RoleSupervisor))
			if params.SellersHandler != nil {
				params.SellersHandler.MountSupervisorRoutes(r)
			}
			if params.AlertsHandler != nil {
				params.AlertsHandler.MountSupervisorRoutes(r)
			}
		})

		r.Route("/vendedor", func(r chi.Router) {
			r.Use(guard.RequireRole(commission.RoleSeller))
			if params.SellersHandler != nil {
				params.SellersHandler.MountSellerRoutes(r)
			}
		})
	})

	return r
}
