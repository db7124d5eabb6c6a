package payout

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

const historyLimit = 50

// WorkflowService is the operation set behind the payment screen.
type WorkflowService interface {
	State(ctx context.Context, actor Actor, sellerID int64) (View, error)
	Toggle(ctx context.Context, actor Actor, sellerID, saleID int64) (View, error)
	SetRange(ctx context.Context, actor Actor, sellerID int64, from, to string) (View, error)
	SetPresetRange(ctx context.Context, actor Actor, sellerID int64, preset string) (View, error)
	SelectAllPending(ctx context.Context, actor Actor, sellerID int64) (View, error)
	Clear(ctx context.Context, actor Actor, sellerID int64) (View, error)
	SwitchMode(ctx context.Context, actor Actor, sellerID int64, mode commission.PayMode) (View, error)
	Confirm(ctx context.Context, actor Actor, sellerID int64) (View, error)
	Submit(ctx context.Context, actor Actor, sellerID int64, token string) (View, error)
	History(ctx context.Context, sellerID int64, limit int) ([]AuditEntry, error)
}

// Handler exposes the workflow over HTTP.
type Handler struct {
	logger  *slog.Logger
	service WorkflowService
}

// NewHandler constructs the payout handler.
func NewHandler(logger *slog.Logger, service WorkflowService) *Handler {
	return &Handler{logger: logger, service: service}
}

type toggleRequest struct {
	SaleID int64 `json:"ventaId" validate:"required,gt=0"`
}

type rangeRequest struct {
	From string `json:"desde"`
	To   string `json:"hasta"`
}

type presetRequest struct {
	Preset string `json:"preset" validate:"required,oneof=hoy ayer ultimos7"`
}

type modeRequest struct {
	Mode commission.PayMode `json:"modo" validate:"required,oneof=vendedor supervisor"`
}

type submitRequest struct {
	Token string `json:"token" validate:"required"`
}

// MountRoutes registers the payment workflow under /sellers/{id}/payout.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/sellers/{id}/payout", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Get("/history", h.handleHistory)
		r.Post("/toggle", h.handleToggle)
		r.Post("/select-pending", h.simple(h.service.SelectAllPending))
		r.Post("/clear", h.simple(h.service.Clear))
		r.Post("/range", h.handleRange)
		r.Post("/preset", h.handlePreset)
		r.Post("/mode", h.handleMode)
		r.Post("/confirm", h.simple(h.service.Confirm))
		r.Group(func(gr chi.Router) {
			gr.Use(shared.StrictLimiter(10, time.Minute))
			gr.Post("/submit", h.handleSubmit)
		})
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.simple(h.service.State)(w, r)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	h.withBody(w, r, &req, func(actor Actor, sellerID int64) (View, error) {
		return h.service.Toggle(r.Context(), actor, sellerID, req.SaleID)
	})
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	h.withBody(w, r, &req, func(actor Actor, sellerID int64) (View, error) {
		return h.service.SetRange(r.Context(), actor, sellerID, req.From, req.To)
	})
}

func (h *Handler) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	h.withBody(w, r, &req, func(actor Actor, sellerID int64) (View, error) {
		return h.service.SetPresetRange(r.Context(), actor, sellerID, req.Preset)
	})
}

func (h *Handler) handleMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	h.withBody(w, r, &req, func(actor Actor, sellerID int64) (View, error) {
		return h.service.SwitchMode(r.Context(), actor, sellerID, req.Mode)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	h.withBody(w, r, &req, func(actor Actor, sellerID int64) (View, error) {
		return h.service.Submit(r.Context(), actor, sellerID, req.Token)
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sellerID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	limit := historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= historyLimit {
			limit = n
		}
	}
	entries, err := h.service.History(r.Context(), sellerID, limit)
	if err != nil {
		h.fail(w, "payout history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"pagos": entries})
}

// simple adapts a body-less operation.
func (h *Handler) simple(op func(ctx context.Context, actor Actor, sellerID int64) (View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, sellerID, ok := h.target(w, r)
		if !ok {
			return
		}
		view, err := op(r.Context(), actor, sellerID)
		h.respond(w, view, err)
	}
}

func (h *Handler) withBody(w http.ResponseWriter, r *http.Request, body any, op func(actor Actor, sellerID int64) (View, error)) {
	actor, sellerID, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := httpx.Bind(r, body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := op(actor, sellerID)
	h.respond(w, view, err)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (Actor, int64, bool) {
	actor, ok := ActorFromRequest(r)
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", shared.ErrUnauthenticated.Error())
		return Actor{}, 0, false
	}
	sellerID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return Actor{}, 0, false
	}
	return actor, sellerID, true
}

func (h *Handler) respond(w http.ResponseWriter, view View, err error) {
	if err != nil {
		h.fail(w, "payout workflow", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// ActorFromRequest builds the workflow actor from the request session.
func ActorFromRequest(r *http.Request) (Actor, bool) {
	sess := shared.SessionFromContext(r.Context())
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		return Actor{}, false
	}
	return Actor{SessionID: sess.ID, Token: p.Token, Name: p.Name, Role: p.Role}, true
}
