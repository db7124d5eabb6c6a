package stats

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/raffles"
	"github.com/puntomas/panel/internal/shared"
)

// StatsService is the operation set behind the statistics page.
type StatsService interface {
	Overview(ctx context.Context, token string, p backend.RafflePeriod) (Overview, error)
	Ranking(ctx context.Context, token string, p backend.RafflePeriod) (backend.ProvinceRanking, error)
	ProvincesSVG(ctx context.Context, token string) (string, error)
}

// Handler exposes the statistics over HTTP.
type Handler struct {
	logger  *slog.Logger
	service StatsService
	now     func() time.Time
}

// NewHandler constructs the stats handler. loc resolves the default month.
func NewHandler(logger *slog.Logger, service StatsService, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, now: func() time.Time { return time.Now().In(loc) }}
}

// MountRoutes registers the statistics endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/stats", h.handleOverview)
	r.Get("/stats/provinces.svg", h.handleProvincesSVG)
	r.Get("/stats/ranking", h.handleRanking)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	var period backend.RafflePeriod
	if q.Get("provincia") != "" {
		parsed, err := raffles.ParsePeriod(q.Get("provincia"), q.Get("mes"), q.Get("anio"), h.now())
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		period = parsed
	}
	ov, err := h.service.Overview(r.Context(), p.Token, period)
	if err != nil {
		h.logger.Warn("stats overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ov)
}

func (h *Handler) handleRanking(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	q := r.URL.Query()
	if q.Get("provincia") == "" {
		httpx.RespondError(w, ErrProvinceRequired)
		return
	}
	period, err := raffles.ParsePeriod(q.Get("provincia"), q.Get("mes"), q.Get("anio"), h.now())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ranking, err := h.service.Ranking(r.Context(), p.Token, period)
	if err != nil {
		h.logger.Warn("province ranking", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ranking)
}

func (h *Handler) handleProvincesSVG(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	svg, err := h.service.ProvincesSVG(r.Context(), p.Token)
	if err != nil {
		h.logger.Warn("provinces svg", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(svg))
}
