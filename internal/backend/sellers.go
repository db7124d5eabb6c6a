package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/commission"
)

// Scope selects which side of the API a shared listing is read from.
type Scope string

const (
	ScopeAdmin      Scope = "admin-supervisor"
	ScopeSupervisor Scope = "supervisor"
)

// SellerFilter carries the backend-side filters of the seller summary list.
type SellerFilter struct {
	Query    string
	Locality string
	Province string
	From     string
	To       string
}

func (f SellerFilter) values() url.Values {
	q := url.Values{}
	optional(q, "q", f.Query)
	optional(q, "localidad", f.Locality)
	optional(q, "provincia", f.Province)
	optional(q, "desde", f.From)
	optional(q, "hasta", f.To)
	return q
}

type sellerSummaryDTO struct {
	ID                       int64           `json:"id" validate:"gt=0"`
	Nombre                   string          `json:"nombre"`
	Email                    string          `json:"email"`
	Localidad                *string         `json:"localidad"`
	Provincia                *string         `json:"provincia"`
	TotalVentas              int             `json:"totalVentas" validate:"gte=0"`
	TotalComisionVendedor    decimal.Decimal `json:"totalComisionVendedor"`
	TotalPagadoVendedor      decimal.Decimal `json:"totalPagadoVendedor"`
	TotalPendienteVendedor   decimal.Decimal `json:"totalPendienteVendedor"`
	TotalComisionSupervisor  decimal.Decimal `json:"totalComisionSupervisor"`
	TotalPagadoSupervisor    decimal.Decimal `json:"totalPagadoSupervisor"`
	TotalPendienteSupervisor decimal.Decimal `json:"totalPendienteSupervisor"`
}

func (s sellerSummaryDTO) summary() commission.SellerSummary {
	return commission.SellerSummary{
		SellerID:                  s.ID,
		Name:                      s.Nombre,
		Email:                     s.Email,
		Locality:                  deref(s.Localidad),
		Province:                  deref(s.Provincia),
		SaleCount:                 s.TotalVentas,
		TotalSellerCommission:     s.TotalComisionVendedor,
		TotalSellerPaid:           s.TotalPagadoVendedor,
		TotalSellerPending:        s.TotalPendienteVendedor,
		TotalSupervisorCommission: s.TotalComisionSupervisor,
		TotalSupervisorPaid:       s.TotalPagadoSupervisor,
		TotalSupervisorPending:    s.TotalPendienteSupervisor,
	}
}

type sellerSummaryList struct {
	Vendedores []sellerSummaryDTO `json:"vendedores" validate:"dive"`
}

// SellerSummaries lists per-seller commission totals.
func (c *Client) SellerSummaries(ctx context.Context, token string, scope Scope, f SellerFilter) ([]commission.SellerSummary, error) {
	var out sellerSummaryList
	path := "/api/" + string(scope) + "/vendedores-resumen"
	if err := c.do(ctx, token, get("sellers.summaries", path, f.values()), &out); err != nil {
		return nil, err
	}
	summaries := make([]commission.SellerSummary, 0, len(out.Vendedores))
	for _, s := range out.Vendedores {
		summaries = append(summaries, s.summary())
	}
	return summaries, nil
}

type saleDTO struct {
	ID                  int64               `json:"id" validate:"gt=0"`
	Fecha               Timestamp           `json:"fecha"`
	NegocioNombre       *string             `json:"negocioNombre"`
	NegocioLocalidad    *string             `json:"negocioLocalidad"`
	NegocioProvincia    *string             `json:"negocioProvincia"`
	MontoVenta          decimal.NullDecimal `json:"montoVenta"`
	ComisionSupervisor  decimal.NullDecimal `json:"comisionSupervisor"`
	PagadaVendedor      *bool               `json:"pagadaVendedor"`
	Pagado              *bool               `json:"pagado"`
	PagadaSupervisor    *bool               `json:"pagadaSupervisor"`
	PagadoSupervisor    *bool               `json:"pagadoSupervisor"`
	FechaPagoSupervisor *Timestamp          `json:"fechaPagoSupervisor"`
}

// sale normalises a detail row: the seller commission is fixed, the supervisor
// commission defaults when missing or non-positive, and the legacy paid flags
// are used when the new ones are absent.
func (s saleDTO) sale(seller *commission.PersonRef) commission.Sale {
	supervisor := commission.DefaultSupervisorCommission
	if s.ComisionSupervisor.Valid && s.ComisionSupervisor.Decimal.IsPositive() {
		supervisor = s.ComisionSupervisor.Decimal
	}
	out := commission.Sale{
		ID:                   s.ID,
		Date:                 s.Fecha.Time,
		BusinessName:         deref(s.NegocioNombre),
		BusinessLocality:     deref(s.NegocioLocalidad),
		BusinessProvince:     deref(s.NegocioProvincia),
		SellerCommission:     commission.DefaultSellerCommission,
		SupervisorCommission: supervisor,
		PaidToSeller:         boolOr(s.PagadaVendedor, s.Pagado),
		PaidToSupervisor:     boolOr(s.PagadaSupervisor, s.PagadoSupervisor),
		SupervisorPaidAt:     s.FechaPagoSupervisor.ptr(),
	}
	if s.MontoVenta.Valid {
		out.Amount = s.MontoVenta.Decimal
	}
	if seller != nil {
		out.SellerID = seller.ID
		out.SellerName = seller.Name
	}
	return out
}

// SupervisorPayment is a past payment made to the supervisor for a seller.
type SupervisorPayment struct {
	ID     int64           `json:"id" validate:"gt=0"`
	PaidAt Timestamp       `json:"fechaPago"`
	Amount decimal.Decimal `json:"monto"`
	Note   string          `json:"observacion,omitempty"`
}

type sellerDetailDTO struct {
	Vendedor        personDTO           `json:"vendedor"`
	Ventas          []saleDTO           `json:"ventas" validate:"dive"`
	PagosSupervisor []SupervisorPayment `json:"pagosSupervisor" validate:"dive"`
	Pagos           []SupervisorPayment `json:"pagos" validate:"dive"`
}

// SellerDetail is a seller with normalised sales and supervisor payments.
type SellerDetail struct {
	Seller             commission.PersonRef `json:"vendedor"`
	Sales              []commission.Sale    `json:"ventas"`
	SupervisorPayments []SupervisorPayment  `json:"pagosSupervisor"`
}

// SellerDetail loads one seller with every sale, normalised.
func (c *Client) SellerDetail(ctx context.Context, token string, sellerID int64) (SellerDetail, error) {
	var out sellerDetailDTO
	if err := c.do(ctx, token, get("sellers.detail", idPath("/api/admin-supervisor/vendedor/%d/detalle", sellerID), nil), &out); err != nil {
		return SellerDetail{}, err
	}
	seller := out.Vendedor.ref()
	if seller.ID == 0 {
		seller.ID = sellerID
	}
	detail := SellerDetail{
		Seller:             *seller,
		Sales:              make([]commission.Sale, 0, len(out.Ventas)),
		SupervisorPayments: out.PagosSupervisor,
	}
	if detail.SupervisorPayments == nil {
		detail.SupervisorPayments = out.Pagos
	}
	if detail.SupervisorPayments == nil {
		detail.SupervisorPayments = []SupervisorPayment{}
	}
	for _, s := range out.Ventas {
		detail.Sales = append(detail.Sales, s.sale(seller))
	}
	return detail, nil
}

type payBatchRequest struct {
	SaleIDs []int64 `json:"ventasIds"`
}

// PayBatch marks every listed sale as paid for the given mode in one request.
func (c *Client) PayBatch(ctx context.Context, token string, mode commission.PayMode, saleIDs []int64) error {
	path := "/api/admin-supervisor/ventas/pagar-multiple"
	if mode == commission.PayModeSeller {
		path += "-vendedor"
	}
	var env okEnvelope
	if err := c.do(ctx, token, send("sales.pay_batch", http.MethodPatch, path, payBatchRequest{SaleIDs: saleIDs}), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}

type supervisorSaleDTO struct {
	ID                  int64               `json:"id" validate:"gt=0"`
	NombreNegocio       string              `json:"nombreNegocio"`
	FechaVenta          Timestamp           `json:"fechaVenta"`
	VendedorNombre      string              `json:"vendedorNombre"`
	ComisionSupervisor  decimal.NullDecimal `json:"comisionSupervisor"`
	PagadoSupervisor    bool                `json:"pagadoSupervisor"`
	FechaPagoSupervisor *Timestamp          `json:"fechaPagoSupervisor"`
}

type supervisorSaleList struct {
	Ventas []supervisorSaleDTO `json:"ventas" validate:"dive"`
}

// SupervisorSales lists the sales that generated a supervisor commission.
func (c *Client) SupervisorSales(ctx context.Context, token string) ([]commission.Sale, error) {
	var out supervisorSaleList
	if err := c.do(ctx, token, get("supervisor.sales", "/api/supervisor/ventas", nil), &out); err != nil {
		return nil, err
	}
	sales := make([]commission.Sale, 0, len(out.Ventas))
	for _, s := range out.Ventas {
		amount := commission.DefaultSupervisorCommission
		if s.ComisionSupervisor.Valid {
			amount = s.ComisionSupervisor.Decimal
		}
		sales = append(sales, commission.Sale{
			ID:                   s.ID,
			Date:                 s.FechaVenta.Time,
			BusinessName:         s.NombreNegocio,
			SellerName:           s.VendedorNombre,
			SellerCommission:     commission.DefaultSellerCommission,
			SupervisorCommission: amount,
			PaidToSupervisor:     s.PagadoSupervisor,
			SupervisorPaidAt:     s.FechaPagoSupervisor.ptr(),
		})
	}
	return sales, nil
}

// PaySupervisorSale settles the supervisor commission of a single sale.
func (c *Client) PaySupervisorSale(ctx context.Context, token string, saleID int64) error {
	return c.do(ctx, token, send("supervisor.pay_sale", http.MethodPatch, idPath("/api/supervisor/pagar/%d", saleID), nil), nil)
}

type ownSaleDTO struct {
	ID            int64               `json:"id" validate:"gt=0"`
	NombreNegocio string              `json:"nombreNegocio"`
	FechaVenta    Timestamp           `json:"fechaVenta"`
	Comision      decimal.NullDecimal `json:"comision"`
	Pagado        bool                `json:"pagado"`
	Negocio       *struct {
		ID     int64  `json:"id"`
		Nombre string `json:"nombre"`
	} `json:"Negocio"`
}

func (s ownSaleDTO) sale(sellerID int64) commission.Sale {
	amount := commission.DefaultSellerCommission
	if s.Comision.Valid {
		amount = s.Comision.Decimal
	}
	name := s.NombreNegocio
	if name == "" && s.Negocio != nil {
		name = s.Negocio.Nombre
	}
	return commission.Sale{
		ID:                   s.ID,
		Date:                 s.FechaVenta.Time,
		BusinessName:         name,
		SellerID:             sellerID,
		SellerCommission:     amount,
		SupervisorCommission: commission.DefaultSupervisorCommission,
		PaidToSeller:         s.Pagado,
	}
}

type ownSaleList struct {
	Ventas []ownSaleDTO `json:"ventas" validate:"dive"`
}

// SellerOwnSales lists the sales of the logged-in seller.
func (c *Client) SellerOwnSales(ctx context.Context, token string) ([]commission.Sale, error) {
	var out ownSaleList
	if err := c.do(ctx, token, get("seller.own_sales", "/api/vendedor/mias", nil), &out); err != nil {
		return nil, err
	}
	sales := make([]commission.Sale, 0, len(out.Ventas))
	for _, s := range out.Ventas {
		sales = append(sales, s.sale(0))
	}
	return sales, nil
}

type registerRequest struct {
	Email string `json:"email"`
}

// RegisterBusiness registers a sale for the business owned by email.
func (c *Client) RegisterBusiness(ctx context.Context, token, email string) error {
	var env okEnvelope
	if err := c.do(ctx, token, send("seller.register", http.MethodPost, "/api/vendedor/registrar", registerRequest{Email: email}), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}

// SupervisedSeller is the seller profile a supervisor sees.
type SupervisedSeller struct {
	ID       int64  `json:"id" validate:"gt=0"`
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Document string `json:"documento,omitempty"`
	Phone    string `json:"telefono,omitempty"`
	Province string `json:"provincia,omitempty"`
	Locality string `json:"localidad,omitempty"`
	Blocked  bool   `json:"bloqueado"`
}

type supervisedSellerDTO struct {
	ID        int64   `json:"id" validate:"gt=0"`
	Nombre    string  `json:"nombre"`
	Email     string  `json:"email"`
	Documento *string `json:"documento"`
	Telefono  *string `json:"telefono"`
	Provincia *string `json:"provincia"`
	Localidad *string `json:"localidad"`
	Bloqueado *bool   `json:"bloqueado"`
}

type supervisedDetailDTO struct {
	Vendedor supervisedSellerDTO `json:"vendedor"`
	Ventas   []ownSaleDTO        `json:"ventas" validate:"dive"`
}

// SupervisedSellerDetail is a seller profile plus its sales, supervisor view.
type SupervisedSellerDetail struct {
	Seller SupervisedSeller  `json:"vendedor"`
	Sales  []commission.Sale `json:"ventas"`
}

// SupervisorSellerDetail loads a seller from the supervisor side.
func (c *Client) SupervisorSellerDetail(ctx context.Context, token string, sellerID int64) (SupervisedSellerDetail, error) {
	var out supervisedDetailDTO
	if err := c.do(ctx, token, get("supervisor.seller_detail", idPath("/api/supervisor/vendedor/%d", sellerID), nil), &out); err != nil {
		return SupervisedSellerDetail{}, err
	}
	v := out.Vendedor
	detail := SupervisedSellerDetail{
		Seller: SupervisedSeller{
			ID:       v.ID,
			Name:     v.Nombre,
			Email:    v.Email,
			Document: deref(v.Documento),
			Phone:    deref(v.Telefono),
			Province: deref(v.Provincia),
			Locality: deref(v.Localidad),
			Blocked:  boolOr(v.Bloqueado),
		},
		Sales: make([]commission.Sale, 0, len(out.Ventas)),
	}
	for _, s := range out.Ventas {
		sale := s.sale(v.ID)
		sale.SellerName = v.Nombre
		detail.Sales = append(detail.Sales, sale)
	}
	return detail, nil
}

// ManagedSeller is a row of the supervisor's seller management list.
type ManagedSeller struct {
	ID           int64   `json:"id" validate:"gt=0"`
	Name         string  `json:"nombre"`
	Email        string  `json:"email"`
	Province     *string `json:"provincia"`
	PaymentAlias *string `json:"aliasPago"`
	Document     *string `json:"documento"`
	Phone        *string `json:"telefono"`
	Active       bool    `json:"activo"`
}

type managedSellerList struct {
	Vendedores []ManagedSeller `json:"vendedores" validate:"dive"`
}

// ManagedSellers lists the supervisor's sellers.
func (c *Client) ManagedSellers(ctx context.Context, token, province, query string) ([]ManagedSeller, error) {
	q := url.Values{}
	optional(q, "provincia", province)
	optional(q, "q", query)
	var out managedSellerList
	if err := c.do(ctx, token, get("supervisor.sellers", "/api/supervisor/gestion-vendedores", q), &out); err != nil {
		return nil, err
	}
	if out.Vendedores == nil {
		return []ManagedSeller{}, nil
	}
	return out.Vendedores, nil
}

// NewSeller is the payload to enrol a seller.
type NewSeller struct {
	Name         string `json:"nombre"`
	Email        string `json:"email"`
	Phone        string `json:"telefono,omitempty"`
	Document     string `json:"documento,omitempty"`
	Province     string `json:"provincia"`
	PaymentAlias string `json:"aliasPago,omitempty"`
}

// CreateSeller enrols a seller under the supervisor.
func (c *Client) CreateSeller(ctx context.Context, token string, seller NewSeller) error {
	var env okEnvelope
	if err := c.do(ctx, token, send("supervisor.create_seller", http.MethodPost, "/api/supervisor/gestion-vendedores", seller), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}

type sellerStatusRequest struct {
	Active bool `json:"activo"`
}

// SetSellerActive enables or disables a seller account.
func (c *Client) SetSellerActive(ctx context.Context, token string, sellerID int64, active bool) error {
	var env okEnvelope
	path := "/api/supervisor/gestion-vendedores/" + strconv.FormatInt(sellerID, 10) + "/estado"
	if err := c.do(ctx, token, send("supervisor.seller_status", http.MethodPatch, path, sellerStatusRequest{Active: active}), &env); err != nil {
		return err
	}
	return env.check(http.StatusBadRequest)
}
