package alerts

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// AlertService is the operation set behind the alert inboxes.
type AlertService interface {
	PendingCount(ctx context.Context, sessionID string, p shared.Principal) (Count, error)
	AdminInbox(ctx context.Context, token string, f Filter) (Inbox, error)
	Resolve(ctx context.Context, sessionID, token string, id int64, note string) error
	SupervisorInbox(ctx context.Context, token string, f Filter, province, email string) (Inbox, error)
	MarkRead(ctx context.Context, sessionID, token string, id int64, note string) error
	Unblock(ctx context.Context, sessionID, token string, id int64, note string) error
	Raise(ctx context.Context, token string, alert backend.NewAlert) error
}

// Handler exposes the alert inboxes over HTTP.
type Handler struct {
	logger  *slog.Logger
	service AlertService
}

// NewHandler constructs the alerts handler.
func NewHandler(logger *slog.Logger, service AlertService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

type resolveRequest struct {
	Note string `json:"notaAdmin"`
}

type noteRequest struct {
	Note string `json:"observacion"`
}

type raiseRequest struct {
	SellerID int64                `json:"vendedorId"`
	Type     commission.AlertType `json:"tipo"`
	Message  string               `json:"mensaje"`
}

// MountCountRoute registers the badge endpoint shared by admins and supervisors.
func (h *Handler) MountCountRoute(r chi.Router) {
	r.Get("/alerts/count", h.handleCount)
}

// MountAdminRoutes registers the admin inbox.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/alerts", h.handleAdminInbox)
	r.Patch("/alerts/{id}/resolve", h.handleResolve)
}

// MountSupervisorRoutes registers the supervisor inbox.
func (h *Handler) MountSupervisorRoutes(r chi.Router) {
	r.Get("/alerts", h.handleSupervisorInbox)
	r.Post("/alerts", h.handleRaise)
	r.Post("/alerts/{id}/read", h.handleMarkRead)
	r.Post("/alerts/{id}/unblock", h.handleUnblock)
}

func (h *Handler) handleCount(w http.ResponseWriter, r *http.Request) {
	sess, p, ok := principal(w, r)
	if !ok {
		return
	}
	count, err := h.service.PendingCount(r.Context(), sess.ID, *p)
	if err != nil {
		h.fail(w, "alert count", err)
		return
	}
	httpx.JSON(w, http.StatusOK, count)
}

func (h *Handler) handleAdminInbox(w http.ResponseWriter, r *http.Request) {
	_, p, ok := principal(w, r)
	if !ok {
		return
	}
	f, err := ParseFilter(r.URL.Query().Get("estado"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inbox, err := h.service.AdminInbox(r.Context(), p.Token, f)
	if err != nil {
		h.fail(w, "admin alerts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inbox)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	sess, p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req resolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Resolve(r.Context(), sess.ID, p.Token, id, req.Note); err != nil {
		h.fail(w, "resolve alert", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSupervisorInbox(w http.ResponseWriter, r *http.Request) {
	_, p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f, err := ParseFilter(q.Get("estado"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	inbox, err := h.service.SupervisorInbox(r.Context(), p.Token, f, q.Get("provincia"), q.Get("email"))
	if err != nil {
		h.fail(w, "supervisor alerts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inbox)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, "mark alert read", h.service.MarkRead)
}

func (h *Handler) handleUnblock(w http.ResponseWriter, r *http.Request) {
	h.withNote(w, r, "unblock seller", h.service.Unblock)
}

func (h *Handler) withNote(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, sessionID, token string, id int64, note string) error) {
	sess, p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req noteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := fn(r.Context(), sess.ID, p.Token, id, req.Note); err != nil {
		h.fail(w, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRaise(w http.ResponseWriter, r *http.Request) {
	_, p, ok := principal(w, r)
	if !ok {
		return
	}
	var req raiseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	err := h.service.Raise(r.Context(), p.Token, backend.NewAlert{SellerID: req.SellerID, Type: req.Type, Message: req.Message})
	if err != nil {
		h.fail(w, "raise alert", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func principal(w http.ResponseWriter, r *http.Request) (*shared.Session, *shared.Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return nil, nil, false
	}
	return sess, p, true
}
