package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.handleCSRF)
	r.Get("/me", h.handleMe)
	r.Post("/logout", h.handleLogout)
	r.Post("/password", h.handleChangePassword)
	r.Group(func(gr chi.Router) {
		gr.Use(shared.StrictLimiter(10, time.Minute))
		gr.Post("/login", h.handleLogin)
	})
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type passwordForm struct {
	NewPassword string `json:"passwordNueva"`
	Repeat      string `json:"passwordRepetir"`
}

type sessionResponse struct {
	Role               string `json:"rol"`
	Name               string `json:"nombre"`
	MustChangePassword bool   `json:"debeCambiarPassword"`
	Landing            string `json:"destino"`
	CSRFToken          string `json:"csrfToken,omitempty"`
}

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("ensure csrf", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	var form loginForm
	if err := httpx.Bind(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if sess.Authenticated() {
		h.service.Ended(r.Context(), sess.ID)
	}
	h.sessionManager.Renew(sess)
	sess.SetPrincipal(p)
	token, err := h.csrfManager.RotateToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("rotate csrf", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.service.Started(r.Context(), sess.ID, p)
	h.logger.Info("login", slog.String("role", string(p.Role)), slog.String("name", p.Name))

	resp := newSessionResponse(p)
	resp.CSRFToken = token
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.JSON(w, http.StatusOK, newSessionResponse(*p))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.service.Ended(r.Context(), sess.ID)
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	p := shared.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var form passwordForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), *p, form.NewPassword, form.Repeat); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sess.UpdatePrincipal(func(p *shared.Principal) { p.MustChangePassword = false })
	httpx.JSON(w, http.StatusOK, newSessionResponse(*sess.Principal()))
}

func newSessionResponse(p shared.Principal) sessionResponse {
	return sessionResponse{
		Role:               string(p.Role),
		Name:               p.Name,
		MustChangePassword: p.MustChangePassword,
		Landing:            Landing(p.Role, p.MustChangePassword),
	}
}
