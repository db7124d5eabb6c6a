package sellers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// SellerService is the operation set behind the seller screens.
type SellerService interface {
	Summaries(ctx context.Context, token string, scope backend.Scope, q SummaryQuery) (SummaryPage, error)
	Detail(ctx context.Context, token string, sellerID int64, from, to string) (SalesView, error)
	SupervisorSales(ctx context.Context, token, from, to string) (SalesView, error)
	PaySupervisorSale(ctx context.Context, token string, saleID int64) error
	Supervised(ctx context.Context, token string, sellerID int64, from, to string) (SupervisedView, error)
	Team(ctx context.Context, token, province, query string) ([]backend.ManagedSeller, error)
	Enrol(ctx context.Context, token string, form NewSellerForm) error
	SetActive(ctx context.Context, token string, sellerID int64, active bool) error
	OwnSales(ctx context.Context, token string) (SalesView, error)
	RegisterBusiness(ctx context.Context, token, email string) error
}

// Handler exposes the seller screens over HTTP.
type Handler struct {
	logger  *slog.Logger
	service SellerService
	now     func() time.Time
}

// NewHandler constructs the sellers handler.
func NewHandler(logger *slog.Logger, service SellerService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

type statusRequest struct {
	Active *bool `json:"activo" validate:"required"`
}

type registerRequest struct {
	Email string `json:"email" validate:"required"`
}

// MountAdminRoutes registers the admin seller summaries, export and detail.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/sellers", h.summaries(backend.ScopeAdmin))
	r.With(shared.StrictLimiter(5, time.Minute)).Get("/sellers/export.csv", h.handleExport)
	r.Get("/sellers/{id}", h.handleDetail)
}

// MountSupervisorRoutes registers the supervisor seller pages, sales and team.
func (h *Handler) MountSupervisorRoutes(r chi.Router) {
	r.Get("/sellers", h.summaries(backend.ScopeSupervisor))
	r.Get("/sellers/{id}", h.handleSupervised)
	r.Get("/sales", h.handleSupervisorSales)
	r.Post("/sales/{id}/pay", h.handlePaySale)
	r.Get("/team", h.handleTeam)
	r.Post("/team", h.handleEnrol)
	r.Patch("/team/{id}/status", h.handleSetActive)
}

// MountSellerRoutes registers the vendedor's own pages.
func (h *Handler) MountSellerRoutes(r chi.Router) {
	r.Get("/sales", h.handleOwnSales)
	r.Post("/businesses", h.handleRegister)
}

func summaryQuery(r *http.Request) SummaryQuery {
	q := r.URL.Query()
	top, _ := strconv.Atoi(q.Get("top"))
	return SummaryQuery{
		Filter: backend.SellerFilter{
			Query:    q.Get("q"),
			Locality: q.Get("localidad"),
			Province: q.Get("provincia"),
			From:     q.Get("desde"),
			To:       q.Get("hasta"),
		},
		OnlyDebt: q.Get("conDeuda") == "1" || q.Get("conDeuda") == "true",
		Mode:     commission.PayMode(q.Get("modo")),
		Top:      top,
	}
}

func (h *Handler) summaries(scope backend.Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		page, err := h.service.Summaries(r.Context(), p.Token, scope, summaryQuery(r))
		if err != nil {
			h.fail(w, "seller summaries", err)
			return
		}
		httpx.JSON(w, http.StatusOK, page)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, err := h.service.Summaries(r.Context(), p.Token, backend.ScopeAdmin, summaryQuery(r))
	if err != nil {
		h.fail(w, "export seller summaries", err)
		return
	}
	filename := fmt.Sprintf("vendedores-%s.csv", h.now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := WriteSummariesCSV(w, page.Sellers); err != nil {
		h.logger.Error("write seller csv", slog.Any("error", err))
	}
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	view, err := h.service.Detail(r.Context(), p.Token, id, q.Get("desde"), q.Get("hasta"))
	if err != nil {
		h.fail(w, "seller detail", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleSupervised(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q := r.URL.Query()
	view, err := h.service.Supervised(r.Context(), p.Token, id, q.Get("desde"), q.Get("hasta"))
	if err != nil {
		h.fail(w, "supervised seller", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleSupervisorSales(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	view, err := h.service.SupervisorSales(r.Context(), p.Token, q.Get("desde"), q.Get("hasta"))
	if err != nil {
		h.fail(w, "supervisor sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handlePaySale(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.PaySupervisorSale(r.Context(), p.Token, id); err != nil {
		h.fail(w, "pay supervisor sale", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	team, err := h.service.Team(r.Context(), p.Token, q.Get("provincia"), q.Get("q"))
	if err != nil {
		h.fail(w, "seller team", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vendedores": team})
}

func (h *Handler) handleEnrol(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var form NewSellerForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Enrol(r.Context(), p.Token, form); err != nil {
		h.fail(w, "enrol seller", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
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
	var req statusRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.SetActive(r.Context(), p.Token, id, *req.Active); err != nil {
		h.fail(w, "set seller status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleOwnSales(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	view, err := h.service.OwnSales(r.Context(), p.Token)
	if err != nil {
		h.fail(w, "own sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if err := httpx.Bind(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RegisterBusiness(r.Context(), p.Token, req.Email); err != nil {
		h.fail(w, "register business", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
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
