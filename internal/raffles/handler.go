package raffles

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// RaffleService is the operation set behind the raffle page.
type RaffleService interface {
	Winners(ctx context.Context, token string, p backend.RafflePeriod) (Result, error)
	Draw(ctx context.Context, token string, p backend.RafflePeriod) (Result, error)
	SetPrize(ctx context.Context, token string, winnerID int64, prize string) (*backend.RaffleWinner, error)
}

// Handler exposes the raffles over HTTP.
type Handler struct {
	logger  *slog.Logger
	service RaffleService
	now     func() time.Time
}

// NewHandler constructs the raffles handler. loc resolves the default period.
func NewHandler(logger *slog.Logger, service RaffleService, loc *time.Location) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, now: func() time.Time { return time.Now().In(loc) }}
}

type drawRequest struct {
	Province string `json:"provincia" validate:"required"`
	Month    int    `json:"mes" validate:"min=1,max=12"`
	Year     int    `json:"anio" validate:"min=2000"`
}

type prizeRequest struct {
	Prize string `json:"premio"`
}

// MountRoutes registers the raffle endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/raffles", h.handleWinners)
	r.With(shared.StrictLimiter(5, time.Minute)).Post("/raffles/draw", h.handleDraw)
	r.Patch("/raffles/winners/{id}/prize", h.handlePrize)
}

func (h *Handler) handleWinners(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	period, err := ParsePeriod(q.Get("provincia"), q.Get("mes"), q.Get("anio"), h.now())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Winners(r.Context(), p.Token, period)
	if err != nil {
		h.fail(w, "raffle winners", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleDraw(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req drawRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Draw(r.Context(), p.Token, backend.RafflePeriod{Province: req.Province, Month: req.Month, Year: req.Year})
	if err != nil {
		h.fail(w, "draw raffle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handlePrize(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req prizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	winner, err := h.service.SetPrize(r.Context(), p.Token, id, req.Prize)
	if err != nil {
		h.fail(w, "set raffle prize", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ganador": winner})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func principal(w http.ResponseWriter, r *http.Request) (*shared.Principal, bool) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return nil, false
	}
	return p, true
}
