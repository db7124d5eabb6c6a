// Package commission holds the sales-operations entities the panel works with.
// Every entity is owned by the backend; the panel only keeps request-scoped copies.
package commission

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role identifies the panel role carried by a session.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleSeller     Role = "vendedor"
)

// Valid reports whether the role is one the panel understands.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleSeller:
		return true
	}
	return false
}

// Default commission amounts applied when the backend omits them.
var (
	DefaultSellerCommission     = decimal.NewFromInt(15000)
	DefaultSupervisorCommission = decimal.NewFromInt(5000)
)

// PayMode selects which commission a payment batch settles.
type PayMode string

const (
	PayModeSeller     PayMode = "vendedor"
	PayModeSupervisor PayMode = "supervisor"
)

// Valid reports whether the mode is known.
func (m PayMode) Valid() bool {
	return m == PayModeSeller || m == PayModeSupervisor
}

// Sale is a registered sale with the commissions it generated.
type Sale struct {
	ID                   int64           `json:"id"`
	Date                 time.Time       `json:"fecha"`
	BusinessName         string          `json:"negocioNombre"`
	BusinessLocality     string          `json:"negocioLocalidad,omitempty"`
	BusinessProvince     string          `json:"negocioProvincia,omitempty"`
	SellerID             int64           `json:"vendedorId"`
	SellerName           string          `json:"vendedorNombre,omitempty"`
	Amount               decimal.Decimal `json:"montoVenta"`
	SellerCommission     decimal.Decimal `json:"comisionVendedor"`
	SupervisorCommission decimal.Decimal `json:"comisionSupervisor"`
	PaidToSeller         bool            `json:"pagadaVendedor"`
	PaidToSupervisor     bool            `json:"pagadaSupervisor"`
	SupervisorPaidAt     *time.Time      `json:"fechaPagoSupervisor,omitempty"`
}

// Commission returns the amount owed for the given payment mode.
func (s Sale) Commission(mode PayMode) decimal.Decimal {
	if mode == PayModeSupervisor {
		return s.SupervisorCommission
	}
	return s.SellerCommission
}

// Paid reports whether the commission for the given mode was already settled.
func (s Sale) Paid(mode PayMode) bool {
	if mode == PayModeSupervisor {
		return s.PaidToSupervisor
	}
	return s.PaidToSeller
}

// PlanStatus is the backend-derived subscription state of a business.
type PlanStatus string

const (
	PlanCurrent      PlanStatus = "al_dia"
	PlanExpiringSoon PlanStatus = "por_vencer"
	PlanExpired      PlanStatus = "vencido"
	PlanNone         PlanStatus = "sin_plan"
)

// HasPlan reports whether the business has a plan that is still usable.
func (p PlanStatus) HasPlan() bool {
	return p == PlanCurrent || p == PlanExpiringSoon
}

// Origin tells how a business joined.
type Origin string

const (
	OriginSeller  Origin = "vendedor"
	OriginApp     Origin = "app"
	OriginUnknown Origin = "desconocido"
)

// PersonRef is the short reference to a user embedded in other records.
type PersonRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Locality string `json:"localidad,omitempty"`
	Province string `json:"provincia,omitempty"`
}

// Business is a merchant registered on the platform.
type Business struct {
	ID            int64      `json:"id"`
	Name          string     `json:"nombre"`
	Category      string     `json:"rubro,omitempty"`
	Province      string     `json:"provincia,omitempty"`
	Locality      string     `json:"localidad,omitempty"`
	PlanName      string     `json:"planNombre,omitempty"`
	PlanStatus    PlanStatus `json:"estadoPlan"`
	Origin        Origin     `json:"origen"`
	JoinedAt      time.Time  `json:"fechaAlta"`
	Owner         *PersonRef `json:"owner,omitempty"`
	Seller        *PersonRef `json:"vendedor,omitempty"`
	MonthlyPoints int64      `json:"puntosMes"`
	ActiveClients int64      `json:"clientesActivos"`
}

// SearchText is the lower-cased text free-text filters match against.
func (b Business) SearchText() string {
	seller := ""
	if b.Seller != nil {
		seller = b.Seller.Name
	}
	return strings.ToLower(strings.Join([]string{b.Name, b.Locality, b.Province, seller}, " "))
}

// SellerSummary is the per-seller commission rollup.
type SellerSummary struct {
	SellerID                  int64           `json:"id"`
	Name                      string          `json:"nombre"`
	Email                     string          `json:"email"`
	Locality                  string          `json:"localidad,omitempty"`
	Province                  string          `json:"provincia,omitempty"`
	SaleCount                 int             `json:"totalVentas"`
	TotalSellerCommission     decimal.Decimal `json:"totalComisionVendedor"`
	TotalSellerPaid           decimal.Decimal `json:"totalPagadoVendedor"`
	TotalSellerPending        decimal.Decimal `json:"totalPendienteVendedor"`
	TotalSupervisorCommission decimal.Decimal `json:"totalComisionSupervisor"`
	TotalSupervisorPaid       decimal.Decimal `json:"totalPagadoSupervisor"`
	TotalSupervisorPending    decimal.Decimal `json:"totalPendienteSupervisor"`
}

// AlertType enumerates the alert kinds a supervisor can raise.
type AlertType string

const (
	AlertSellerBlocked   AlertType = "vendedor_bloqueado"
	AlertSellerQuits     AlertType = "vendedor_solicita_baja"
	AlertSuspiciousSale  AlertType = "venta_sospechosa"
	AlertMissingPayments AlertType = "faltan_pagos"
	AlertOther           AlertType = "otro"
)

// Valid reports whether the type is one of the known alert kinds.
func (t AlertType) Valid() bool {
	switch t {
	case AlertSellerBlocked, AlertSellerQuits, AlertSuspiciousSale, AlertMissingPayments, AlertOther:
		return true
	}
	return false
}

// AlertStatus is the resolution state of an alert.
type AlertStatus string

const (
	AlertPending  AlertStatus = "pendiente"
	AlertResolved AlertStatus = "resuelta"
)

// Alert is a supervisor-raised flag awaiting resolution.
type Alert struct {
	ID             int64       `json:"id"`
	Type           AlertType   `json:"tipo"`
	Message        string      `json:"mensaje"`
	Status         AlertStatus `json:"estado"`
	CreatedAt      time.Time   `json:"createdAt"`
	ResolutionNote string      `json:"observacion,omitempty"`
	AdminNote      string      `json:"notaAdmin,omitempty"`
	RaisedBy       *PersonRef  `json:"supervisor,omitempty"`
	TargetSeller   *PersonRef  `json:"vendedor,omitempty"`
}

// Resolved reports whether the alert already transitioned out of pending.
func (a Alert) Resolved() bool {
	return a.Status == AlertResolved
}

// ProvinceCount is one row of a province heatmap.
type ProvinceCount struct {
	Province     string  `json:"provincia"`
	Count        int     `json:"cantidad"`
	PercentOfMax float64 `json:"porcentaje"`
}
