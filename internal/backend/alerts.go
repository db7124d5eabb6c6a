package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/puntomas/panel/internal/commission"
)

type alertDTO struct {
	ID          int64      `json:"id" validate:"gt=0"`
	Tipo        string     `json:"tipo"`
	Mensaje     string     `json:"mensaje"`
	Leida       *bool      `json:"leida"`
	Estado      *string    `json:"estado"`
	CreatedAt   *Timestamp `json:"createdAt"`
	NotaAdmin   *string    `json:"notaAdmin"`
	Observacion *string    `json:"observacion"`
	Supervisor  *personDTO `json:"supervisor" validate:"omitempty"`
	Vendedor    *personDTO `json:"vendedor" validate:"omitempty"`
}

// status prefers the explicit estado and falls back to the leida flag.
func (a alertDTO) status() commission.AlertStatus {
	if s := deref(a.Estado); s != "" {
		return commission.AlertStatus(s)
	}
	if boolOr(a.Leida) {
		return commission.AlertResolved
	}
	return commission.AlertPending
}

func (a alertDTO) alert() commission.Alert {
	out := commission.Alert{
		ID:             a.ID,
		Type:           commission.AlertType(a.Tipo),
		Message:        a.Mensaje,
		Status:         a.status(),
		ResolutionNote: deref(a.Observacion),
		AdminNote:      deref(a.NotaAdmin),
		RaisedBy:       a.Supervisor.ref(),
		TargetSeller:   a.Vendedor.ref(),
	}
	if a.CreatedAt != nil {
		out.CreatedAt = a.CreatedAt.Time
	}
	return out
}

type alertList struct {
	okEnvelope
	Alertas []alertDTO `json:"alertas" validate:"dive"`
}

func (l alertList) alerts() []commission.Alert {
	out := make([]commission.Alert, 0, len(l.Alertas))
	for _, a := range l.Alertas {
		out = append(out, a.alert())
	}
	return out
}

// AdminAlerts lists every alert visible to admins.
func (c *Client) AdminAlerts(ctx context.Context, token string) ([]commission.Alert, error) {
	var out alertList
	if err := c.do(ctx, token, get("alerts.admin_list", "/api/admin-supervisor/alertas", nil), &out); err != nil {
		return nil, err
	}
	if err := out.check(http.StatusBadGateway); err != nil {
		return nil, err
	}
	return out.alerts(), nil
}

type resolveRequest struct {
	AdminNote *string `json:"notaAdmin,omitempty"`
}

// ResolveAlert closes an alert from the admin side. An empty note is omitted.
func (c *Client) ResolveAlert(ctx context.Context, token string, id int64, note string) error {
	body := resolveRequest{}
	if note != "" {
		body.AdminNote = &note
	}
	return c.do(ctx, token, send("alerts.resolve", http.MethodPatch,
		idPath("/api/admin-supervisor/alertas/%d/resolver", id), body), nil)
}

type pendingCount struct {
	okEnvelope
	Count int `json:"count" validate:"gte=0"`
}

// AdminPendingAlertCount returns the number of unresolved alerts.
func (c *Client) AdminPendingAlertCount(ctx context.Context, token string) (int, error) {
	var out pendingCount
	if err := c.do(ctx, token, get("alerts.admin_pending", "/api/admin-supervisor/alertas/count-pendientes", nil), &out); err != nil {
		return 0, err
	}
	if err := out.check(http.StatusBadGateway); err != nil {
		return 0, err
	}
	return out.Count, nil
}

type unreadCount struct {
	Unread int `json:"noLeidas" validate:"gte=0"`
}

// SupervisorUnreadAlertCount returns how many alerts the supervisor has not read.
func (c *Client) SupervisorUnreadAlertCount(ctx context.Context, token string) (int, error) {
	var out unreadCount
	if err := c.do(ctx, token, get("alerts.supervisor_unread", "/api/supervisor/alertas/no-leidas", nil), &out); err != nil {
		return 0, err
	}
	return out.Unread, nil
}

// SupervisorAlertFilter narrows the supervisor alert list. Status takes
// "pendientes" or "resueltas"; empty means all.
type SupervisorAlertFilter struct {
	Status   string
	Province string
	Email    string
}

// SupervisorAlerts lists the alerts raised by the supervisor.
func (c *Client) SupervisorAlerts(ctx context.Context, token string, f SupervisorAlertFilter) ([]commission.Alert, error) {
	q := url.Values{}
	optional(q, "estado", f.Status)
	optional(q, "provincia", f.Province)
	optional(q, "email", f.Email)
	var out alertList
	if err := c.do(ctx, token, get("alerts.supervisor_list", "/api/supervisor/alertas", q), &out); err != nil {
		return nil, err
	}
	if err := out.check(http.StatusBadGateway); err != nil {
		return nil, err
	}
	return out.alerts(), nil
}

type noteRequest struct {
	Note string `json:"observacion"`
}

// MarkAlertRead resolves a supervisor alert with a note.
func (c *Client) MarkAlertRead(ctx context.Context, token string, id int64, note string) error {
	var env okEnvelope
	if err := c.do(ctx, token, send("alerts.mark_read", http.MethodPost,
		idPath("/api/supervisor/alertas/%d/marcar-leida", id), noteRequest{Note: note}), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}

// UnblockSeller resolves a blocked-seller alert and unblocks the seller.
func (c *Client) UnblockSeller(ctx context.Context, token string, id int64, note string) error {
	var env okEnvelope
	if err := c.do(ctx, token, send("alerts.unblock", http.MethodPost,
		idPath("/api/supervisor/alertas/%d/desbloquear-vendedor", id), noteRequest{Note: note}), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}

// NewAlert is a supervisor-raised alert about a seller.
type NewAlert struct {
	SellerID int64                `json:"vendedorId"`
	Type     commission.AlertType `json:"tipo"`
	Message  string               `json:"mensaje"`
}

// RaiseAlert creates an alert for a seller.
func (c *Client) RaiseAlert(ctx context.Context, token string, alert NewAlert) error {
	var env okEnvelope
	if err := c.do(ctx, token, send("alerts.raise", http.MethodPost, "/api/supervisor/alertas", alert), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}
