package contests

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// ContestService is the operation set behind the contest page.
type ContestService interface {
	List(ctx context.Context, token, province string) ([]backend.Contest, error)
	Create(ctx context.Context, token string, form Form) (backend.Contest, error)
	SetActive(ctx context.Context, token string, id int64, active bool) error
	Progress(ctx context.Context, token string, id int64, top int) (ProgressView, error)
	RunWinners(ctx context.Context, token string, id int64) error
}

// Handler exposes the contests over HTTP.
type Handler struct {
	logger  *slog.Logger
	service ContestService
}

// NewHandler constructs the contests handler.
func NewHandler(logger *slog.Logger, service ContestService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type activeRequest struct {
	Active *bool `json:"activo" validate:"required"`
}

// MountRoutes registers the contest endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/contests", h.handleList)
	r.Get("/contests/templates", h.handleTemplates)
	r.Post("/contests", h.handleCreate)
	r.Patch("/contests/{id}/active", h.handleSetActive)
	r.Get("/contests/{id}/progress", h.handleProgress)
	r.With(shared.StrictLimiter(5, time.Minute)).Post("/contests/{id}/winners", h.handleWinners)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), p.Token, r.URL.Query().Get("provincia"))
	if err != nil {
		h.fail(w, "list contests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"retos": list})
}

func (h *Handler) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"plantillas": Templates})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var form Form
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), p.Token, form)
	if err != nil {
		h.fail(w, "create contest", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req activeRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SetActive(r.Context(), p.Token, id, *req.Active); err != nil {
		h.fail(w, "set contest active", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	top, _ := strconv.Atoi(r.URL.Query().Get("top"))
	view, err := h.service.Progress(r.Context(), p.Token, id, top)
	if err != nil {
		h.fail(w, "contest progress", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleWinners(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RunWinners(r.Context(), p.Token, id); err != nil {
		h.fail(w, "run contest winners", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
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
