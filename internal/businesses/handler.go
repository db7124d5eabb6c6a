package businesses

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// BusinessService is the operation set behind the business page.
type BusinessService interface {
	Overview(ctx context.Context, token string, q Query) (Overview, error)
	Heatmap(ctx context.Context, token string, q Query) ([]commission.ProvinceCount, error)
	HeatmapSVG(ctx context.Context, token string, q Query) (string, error)
}

// Handler exposes the business page over HTTP.
type Handler struct {
	logger  *slog.Logger
	service BusinessService
}

// NewHandler constructs the businesses handler.
func NewHandler(logger *slog.Logger, service BusinessService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the business endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/businesses", h.handleOverview)
	r.Get("/businesses/heatmap", h.handleHeatmap)
	r.Get("/businesses/heatmap.svg", h.handleHeatmapSVG)
}

func parseQuery(r *http.Request) (Query, error) {
	v := r.URL.Query()
	q := Query{
		Text:       v.Get("q"),
		Province:   strings.TrimSpace(v.Get("provincia")),
		PlanStatus: commission.PlanStatus(strings.TrimSpace(v.Get("estadoPlan"))),
		Origin:     commission.Origin(strings.TrimSpace(v.Get("origen"))),
		Order:      strings.TrimSpace(v.Get("orden")),
	}
	if q.PlanStatus == "todos" {
		q.PlanStatus = ""
	}
	if q.Origin == "todos" {
		q.Origin = ""
	}
	if raw := strings.TrimSpace(v.Get("vendedorId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return Query{}, fmt.Errorf("%w: vendedorId %q", ErrInvalidFilter, raw)
		}
		q.SellerID = id
	}
	return q, nil
}

func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (string, Query, bool) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return "", Query{}, false
	}
	q, err := parseQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return "", Query{}, false
	}
	return p.Token, q, true
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	token, q, ok := h.prepare(w, r)
	if !ok {
		return
	}
	ov, err := h.service.Overview(r.Context(), token, q)
	if err != nil {
		h.logger.Warn("business overview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ov)
}

func (h *Handler) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	token, q, ok := h.prepare(w, r)
	if !ok {
		return
	}
	counts, err := h.service.Heatmap(r.Context(), token, q)
	if err != nil {
		h.logger.Warn("business heatmap", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"provincias": counts})
}

func (h *Handler) handleHeatmapSVG(w http.ResponseWriter, r *http.Request) {
	token, q, ok := h.prepare(w, r)
	if !ok {
		return
	}
	svg, err := h.service.HeatmapSVG(r.Context(), token, q)
	if err != nil {
		h.logger.Warn("business heatmap svg", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(svg))
}
