package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/puntomas/panel/internal/commission"
)

// BusinessFilter carries the backend-side filters of the business list.
type BusinessFilter struct {
	Query      string
	Province   string
	SellerID   string
	PlanStatus string
	Origin     string
	Order      string
}

func (f BusinessFilter) values() url.Values {
	q := url.Values{}
	optional(q, "q", f.Query)
	optional(q, "provincia", f.Province)
	optional(q, "vendedorId", f.SellerID)
	optional(q, "estadoPlan", f.PlanStatus)
	optional(q, "origen", f.Origin)
	optional(q, "orden", f.Order)
	return q
}

type businessDTO struct {
	ID              int64      `json:"id" validate:"gt=0"`
	Nombre          string     `json:"nombre"`
	Rubro           *string    `json:"rubro"`
	Provincia       *string    `json:"provincia"`
	Localidad       *string    `json:"localidad"`
	PlanNombre      *string    `json:"planNombre"`
	EstadoPlan      string     `json:"estadoPlan" validate:"omitempty,oneof=sin_plan al_dia por_vencer vencido"`
	FechaAlta       Timestamp  `json:"fechaAlta"`
	Origen          string     `json:"origen"`
	Vendedor        *personDTO `json:"vendedor" validate:"omitempty"`
	Owner           *personDTO `json:"owner" validate:"omitempty"`
	PuntosMes       *int64     `json:"puntosMes"`
	ClientesActivos *int64     `json:"clientesActivos"`
}

func (b businessDTO) business() commission.Business {
	status := commission.PlanStatus(b.EstadoPlan)
	if status == "" {
		status = commission.PlanNone
	}
	origin := commission.Origin(b.Origen)
	switch origin {
	case commission.OriginSeller, commission.OriginApp:
	default:
		origin = commission.OriginUnknown
	}
	out := commission.Business{
		ID:         b.ID,
		Name:       b.Nombre,
		Category:   deref(b.Rubro),
		Province:   deref(b.Provincia),
		Locality:   deref(b.Localidad),
		PlanName:   deref(b.PlanNombre),
		PlanStatus: status,
		Origin:     origin,
		JoinedAt:   b.FechaAlta.Time,
		Owner:      b.Owner.ref(),
		Seller:     b.Vendedor.ref(),
	}
	if b.PuntosMes != nil {
		out.MonthlyPoints = *b.PuntosMes
	}
	if b.ClientesActivos != nil {
		out.ActiveClients = *b.ClientesActivos
	}
	return out
}

// BusinessStats are the backend counters returned next to the list.
type BusinessStats struct {
	Total    int `json:"totalNegocios"`
	WithPlan int `json:"conPlan"`
	NoPlan   int `json:"sinPlan"`
	Expiring int `json:"porVencer"`
	Expired  int `json:"vencidos"`
}

type businessListDTO struct {
	okEnvelope
	Negocios   []businessDTO `json:"negocios" validate:"dive"`
	FiltrosAux struct {
		Provincias []string    `json:"provincias"`
		Vendedores []personDTO `json:"vendedores" validate:"dive"`
	} `json:"filtrosAux"`
	Stats *BusinessStats `json:"stats"`
}

// BusinessPage is the business list together with the filter options.
type BusinessPage struct {
	Businesses []commission.Business  `json:"negocios"`
	Provinces  []string               `json:"provincias"`
	Sellers    []commission.PersonRef `json:"vendedores"`
	Stats      *BusinessStats         `json:"stats,omitempty"`
}

// Businesses lists businesses with the backend filters applied.
func (c *Client) Businesses(ctx context.Context, token string, f BusinessFilter) (BusinessPage, error) {
	var out businessListDTO
	if err := c.do(ctx, token, get("businesses.list", "/api/admin-supervisor/negocios", f.values()), &out); err != nil {
		return BusinessPage{}, err
	}
	if err := out.check(http.StatusBadGateway); err != nil {
		return BusinessPage{}, err
	}
	page := BusinessPage{
		Businesses: make([]commission.Business, 0, len(out.Negocios)),
		Provinces:  out.FiltrosAux.Provincias,
		Sellers:    make([]commission.PersonRef, 0, len(out.FiltrosAux.Vendedores)),
		Stats:      out.Stats,
	}
	if page.Provinces == nil {
		page.Provinces = []string{}
	}
	for _, b := range out.Negocios {
		page.Businesses = append(page.Businesses, b.business())
	}
	for i := range out.FiltrosAux.Vendedores {
		page.Sellers = append(page.Sellers, *out.FiltrosAux.Vendedores[i].ref())
	}
	return page, nil
}
