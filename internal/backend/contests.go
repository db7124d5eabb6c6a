package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// ContestType enumerates how contest progress is measured.
type ContestType string

const (
	ContestVisits      ContestType = "visitas"
	ContestDistance    ContestType = "movimiento_distancia"
	ContestPoints      ContestType = "puntos"
	ContestDestination ContestType = "destino_unico"
	ContestGeneral     ContestType = "general"
)

// Valid reports whether the type is known.
func (t ContestType) Valid() bool {
	switch t {
	case ContestVisits, ContestDistance, ContestPoints, ContestDestination, ContestGeneral:
		return true
	}
	return false
}

// ContestUserStats counts the users a contest can reach.
type ContestUserStats struct {
	Total      int            `json:"total"`
	ByProvince map[string]int `json:"porProvincia"`
}

// Contest is a time-boxed challenge users complete for points.
type Contest struct {
	ID               int64               `json:"id" validate:"gt=0"`
	Title            string              `json:"titulo"`
	Description      string              `json:"descripcion"`
	Points           int64               `json:"puntos" validate:"gte=0"`
	Type             ContestType         `json:"tipo"`
	Goal             *int64              `json:"meta"`
	RangeDays        *int                `json:"rangoDias"`
	DestLatitude     decimal.NullDecimal `json:"destinoLatitud"`
	DestLongitude    decimal.NullDecimal `json:"destinoLongitud"`
	DestRadiusMeters *int                `json:"destinoRadioMetros"`
	Active           bool                `json:"activo"`
	Province         *string             `json:"provincia"`
	Locality         *string             `json:"localidad"`
	CreatedAt        *Timestamp          `json:"createdAt"`
	UserStats        *ContestUserStats   `json:"statsUsuarios,omitempty"`
}

// contestList decodes either a bare array or an {retos} envelope.
type contestList struct {
	Contests []Contest `validate:"dive"`
}

func (l *contestList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &l.Contests)
	}
	var env struct {
		Retos []Contest `json:"retos"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return err
	}
	l.Contests = env.Retos
	return nil
}

// Contests lists contests, optionally for one province.
func (c *Client) Contests(ctx context.Context, token, province string) ([]Contest, error) {
	q := url.Values{}
	optional(q, "provincia", province)
	var out contestList
	if err := c.do(ctx, token, get("contests.list", "/api/admin/retos", q), &out); err != nil {
		return nil, err
	}
	if out.Contests == nil {
		return []Contest{}, nil
	}
	return out.Contests, nil
}

// NewContest is the contest creation payload. A nil province targets every province.
type NewContest struct {
	Title            string       `json:"titulo"`
	Description      string       `json:"descripcion"`
	Points           int64        `json:"puntos"`
	Type             ContestType  `json:"tipo"`
	Goal             *int64       `json:"meta"`
	RangeDays        *int         `json:"rangoDias"`
	DestLatitude     *float64     `json:"destinoLatitud"`
	DestLongitude    *float64     `json:"destinoLongitud"`
	DestRadiusMeters *int         `json:"destinoRadioMetros"`
	Province         *string      `json:"provincia"`
	Locality         *string      `json:"localidad"`
}

// CreateContest creates a contest and returns it as stored.
func (c *Client) CreateContest(ctx context.Context, token string, contest NewContest) (Contest, error) {
	var out Contest
	err := c.do(ctx, token, send("contests.create", http.MethodPost, "/api/admin/retos/crear", contest), &out)
	return out, err
}

// SetContestActive activates or deactivates a contest.
func (c *Client) SetContestActive(ctx context.Context, token string, id int64, active bool) error {
	format := "/api/admin/retos/%d/desactivar"
	name := "contests.deactivate"
	if active {
		format = "/api/admin/retos/%d/activar"
		name = "contests.activate"
	}
	return c.do(ctx, token, send(name, http.MethodPatch, idPath(format, id), nil), nil)
}

// ContestProgress is one participant's standing in a contest.
type ContestProgress struct {
	UserID        int64  `json:"usuarioId"`
	Name          string `json:"nombre"`
	Province      string `json:"provincia,omitempty"`
	Locality      string `json:"localidad,omitempty"`
	PointsAwarded int64  `json:"puntosOtorgados"`
}

type progressDTO struct {
	Reto       Contest `json:"reto"`
	Progresos  []struct {
		UsuarioID       int64      `json:"usuarioId"`
		PuntosOtorgados int64      `json:"puntosOtorgados"`
		Usuario         *personDTO `json:"usuario"`
	} `json:"progresos" validate:"dive"`
}

// ContestProgress loads a contest and the progress of each participant, in
// backend order.
func (c *Client) ContestProgress(ctx context.Context, token string, id int64) (Contest, []ContestProgress, error) {
	var out progressDTO
	if err := c.do(ctx, token, get("contests.progress", idPath("/api/admin/retos/%d/progreso", id), nil), &out); err != nil {
		return Contest{}, nil, err
	}
	rows := make([]ContestProgress, 0, len(out.Progresos))
	for _, p := range out.Progresos {
		row := ContestProgress{UserID: p.UsuarioID, PointsAwarded: p.PuntosOtorgados}
		if ref := p.Usuario.ref(); ref != nil {
			row.Name = ref.Name
			row.Province = ref.Province
			row.Locality = ref.Locality
		}
		rows = append(rows, row)
	}
	return out.Reto, rows, nil
}

// RunContestWinners stores the final standings of a contest.
func (c *Client) RunContestWinners(ctx context.Context, token string, id int64) error {
	return c.do(ctx, token, send("contests.winners", http.MethodPost, idPath("/api/admin/retos/%d/ganadores", id), nil), nil)
}
