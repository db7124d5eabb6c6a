package backend

import (
	"context"

	"github.com/shopspring/decimal"
)

// DashboardSummary is the admin landing report.
type DashboardSummary struct {
	ActiveBusinesses   int64           `json:"totalNegociosActivos"`
	InactiveBusinesses int64           `json:"totalNegociosInactivos"`
	PremiumBusinesses  int64           `json:"totalNegociosPremium"`
	Sellers            int64           `json:"totalVendedores"`
	MonthSalesAmount   decimal.Decimal `json:"ventasMesMonto"`
	MonthCommission    decimal.Decimal `json:"ventasMesComision"`
	MonthPoints        int64           `json:"puntosMesTotales"`
	NextRaffleDate     *Timestamp      `json:"proximaFechaSorteo"`

	MonthlyPlanPrice       decimal.Decimal `json:"precioPlanMensual"`
	IncomeThisMonth        decimal.Decimal `json:"ingresosMesActual"`
	IncomeLastMonth        decimal.Decimal `json:"ingresosMesAnterior"`
	IncomeNextMonthEst     decimal.Decimal `json:"ingresosEstimadoProximoMes"`
	NewBusinessesMonth     int64           `json:"negociosMesActual"`
	NewBusinessesLastMonth int64           `json:"negociosMesAnterior"`

	PremiumActive   int64 `json:"negociosPremiumActivos"`
	PremiumExpired  int64 `json:"negociosPremiumVencidos"`
	PremiumExpiring int64 `json:"negociosPremiumPorVencer"`
	PremiumCurrent  int64 `json:"negociosPremiumAlDia"`
}

// DashboardSummary loads the admin dashboard report.
func (c *Client) DashboardSummary(ctx context.Context, token string) (DashboardSummary, error) {
	var out DashboardSummary
	err := c.do(ctx, token, get("admin.dashboard", "/api/admin/dashboard-resumen", nil), &out)
	return out, err
}
