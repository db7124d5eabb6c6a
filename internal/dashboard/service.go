// Package dashboard serves the admin landing report with month-over-month
// deltas, cached in Redis.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/cache"
)

// Backend loads the dashboard report.
type Backend interface {
	DashboardSummary(ctx context.Context, token string) (backend.DashboardSummary, error)
}

// Trend is the direction of a Delta.
type Trend string

const (
	TrendUp   Trend = "sube"
	TrendDown Trend = "baja"
	TrendFlat Trend = "igual"
)

// Delta compares a month with the previous one. Percent is nil when the
// previous month is zero.
type Delta struct {
	Current  decimal.Decimal `json:"actual"`
	Previous decimal.Decimal `json:"anterior"`
	Change   decimal.Decimal `json:"diferencia"`
	Percent  *float64        `json:"porcentaje"`
	Trend    Trend           `json:"tendencia"`
}

// NewDelta computes the change from previous to current.
func NewDelta(current, previous decimal.Decimal) Delta {
	d := Delta{Current: current, Previous: previous, Change: current.Sub(previous), Trend: TrendFlat}
	switch d.Change.Sign() {
	case 1:
		d.Trend = TrendUp
	case -1:
		d.Trend = TrendDown
	}
	if !previous.IsZero() {
		pct, _ := d.Change.Mul(decimal.NewFromInt(100)).Div(previous).Round(1).Float64()
		d.Percent = &pct
	}
	return d
}

// Overview is the dashboard payload.
type Overview struct {
	Summary       backend.DashboardSummary `json:"resumen"`
	Income        Delta                    `json:"variacionIngresos"`
	NewBusinesses Delta                    `json:"variacionAltas"`
	Display       Display                  `json:"textos"`
	GeneratedAt   time.Time                `json:"generado"`
}

// Display holds the es-AR formatted figures of the cards.
type Display struct {
	MonthSales      string `json:"ventasMes"`
	MonthCommission string `json:"comisionMes"`
	PlanPrice       string `json:"precioPlan"`
	IncomeThisMonth string `json:"ingresosMesActual"`
	IncomeLastMonth string `json:"ingresosMesAnterior"`
	IncomeNextMonth string `json:"ingresosProyectados"`
	NextRaffle      string `json:"proximoSorteo"`
}

// Service builds overviews through the cache.
type Service struct {
	backend Backend
	cache   *cache.Versioned
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewService constructs a Service. c may be nil to disable caching.
func NewService(b Backend, c *cache.Versioned, logger *slog.Logger, loc *time.Location) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{backend: b, cache: c, logger: logger, loc: loc, now: time.Now}
}

// Overview returns the cached report, loading it with token on a miss.
func (s *Service) Overview(ctx context.Context, token string) (Overview, error) {
	key, err := s.cache.BuildKey(ctx, "overview")
	if err != nil {
		s.logger.Warn("dashboard cache key", slog.Any("error", err))
		return s.Build(ctx, token)
	}
	var out Overview
	hit, err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.Build(ctx, token)
	})
	if err != nil {
		return Overview{}, err
	}
	s.logger.Debug("dashboard overview", slog.Bool("cache_hit", hit))
	return out, nil
}

// Warm rebuilds the report and overwrites the cached copy.
func (s *Service) Warm(ctx context.Context, token string) error {
	ov, err := s.Build(ctx, token)
	if err != nil {
		return err
	}
	key, err := s.cache.BuildKey(ctx, "overview")
	if err != nil {
		return err
	}
	return s.cache.Store(ctx, key, ov)
}

// Invalidate drops every cached report.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Build loads the report from the backend without the cache.
func (s *Service) Build(ctx context.Context, token string) (Overview, error) {
	sum, err := s.backend.DashboardSummary(ctx, token)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Summary:       sum,
		Income:        NewDelta(sum.IncomeThisMonth, sum.IncomeLastMonth),
		NewBusinesses: NewDelta(decimal.NewFromInt(sum.NewBusinessesMonth), decimal.NewFromInt(sum.NewBusinessesLastMonth)),
		Display:       s.display(sum),
		GeneratedAt:   s.now().UTC(),
	}, nil
}

func (s *Service) display(sum backend.DashboardSummary) Display {
	next := "—"
	if sum.NextRaffleDate != nil && !sum.NextRaffleDate.IsZero() {
		next = sum.NextRaffleDate.In(s.loc).Format("02/01/2006")
	}
	return Display{
		MonthSales:      commission.FormatARS(sum.MonthSalesAmount),
		MonthCommission: commission.FormatARS(sum.MonthCommission),
		PlanPrice:       commission.FormatARS(sum.MonthlyPlanPrice),
		IncomeThisMonth: commission.FormatARS(sum.IncomeThisMonth),
		IncomeLastMonth: commission.FormatARS(sum.IncomeLastMonth),
		IncomeNextMonth: commission.FormatARS(sum.IncomeNextMonthEst),
		NextRaffle:      next,
	}
}
