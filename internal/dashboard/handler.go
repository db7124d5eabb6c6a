package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/chart"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// OverviewService is the dashboard contract used by the handler.
type OverviewService interface {
	Overview(ctx context.Context, token string) (Overview, error)
	Invalidate(ctx context.Context) error
}

// Handler serves the admin dashboard.
type Handler struct {
	logger  *slog.Logger
	service OverviewService
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, service OverviewService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the dashboard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.handleOverview)
	r.Get("/dashboard/income.svg", h.handleIncomeChart)
	r.Post("/dashboard/refresh", h.handleRefresh)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Overview, bool) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return Overview{}, false
	}
	ov, err := h.service.Overview(r.Context(), p.Token)
	if err != nil {
		h.logger.Warn("load dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return Overview{}, false
	}
	return ov, true
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	if ov, ok := h.load(w, r); ok {
		httpx.JSON(w, http.StatusOK, ov)
	}
}

func (h *Handler) handleIncomeChart(w http.ResponseWriter, r *http.Request) {
	ov, ok := h.load(w, r)
	if !ok {
		return
	}
	s := ov.Summary
	values := []float64{
		s.IncomeLastMonth.InexactFloat64(),
		s.IncomeThisMonth.InexactFloat64(),
		s.IncomeNextMonthEst.InexactFloat64(),
	}
	svg, err := chart.Bars(0, 0, values, []string{"Mes anterior", "Mes actual", "Proyección"}, chart.BarOpts{
		Title:       "Ingresos por suscripciones",
		Description: "Mes anterior, mes actual y proyección del próximo mes",
	})
	if err != nil {
		h.logger.Error("render income chart", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "private, max-age=60")
	_, _ = w.Write([]byte(svg))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.logger.Error("invalidate dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
