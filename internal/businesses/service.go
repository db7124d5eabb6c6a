// Package businesses serves the business list with its rankings and the
// province heatmap.
package businesses

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/puntomas/panel/internal/aggregate"
	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/chart"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
)

// TopN is the length of the seller and growth rankings.
const TopN = 5

// ErrInvalidFilter rejects unknown plan, origin or order values.
var ErrInvalidFilter = fmt.Errorf("%w: filtro de negocios inválido", httpx.ErrValidation)

// Backend loads the business list.
type Backend interface {
	Businesses(ctx context.Context, token string, f backend.BusinessFilter) (backend.BusinessPage, error)
}

// Query is the business list filter. Empty fields match everything.
type Query struct {
	Text       string
	Province   string
	SellerID   int64
	PlanStatus commission.PlanStatus
	Origin     commission.Origin
	Order      string
}

// Validate checks the enumerated fields.
func (q Query) Validate() error {
	switch q.PlanStatus {
	case "", commission.PlanCurrent, commission.PlanExpiringSoon, commission.PlanExpired, commission.PlanNone:
	default:
		return fmt.Errorf("%w: estadoPlan %q", ErrInvalidFilter, q.PlanStatus)
	}
	switch q.Origin {
	case "", commission.OriginSeller, commission.OriginApp:
	default:
		return fmt.Errorf("%w: origen %q", ErrInvalidFilter, q.Origin)
	}
	switch q.Order {
	case "", "recientes", "crecimiento":
	default:
		return fmt.Errorf("%w: orden %q", ErrInvalidFilter, q.Order)
	}
	if q.SellerID < 0 {
		return fmt.Errorf("%w: vendedorId", ErrInvalidFilter)
	}
	return nil
}

func (q Query) backendFilter() backend.BusinessFilter {
	f := backend.BusinessFilter{
		Query:      q.Text,
		Province:   q.Province,
		PlanStatus: string(q.PlanStatus),
		Origin:     string(q.Origin),
		Order:      q.Order,
	}
	if q.SellerID > 0 {
		f.SellerID = strconv.FormatInt(q.SellerID, 10)
	}
	return f
}

// Match reports whether b passes the in-memory refinement. A business without
// a plan status is never excluded by the plan filter.
func (q Query) Match(b commission.Business) bool {
	if q.Province != "" && b.Province != q.Province {
		return false
	}
	if q.SellerID > 0 && (b.Seller == nil || b.Seller.ID != q.SellerID) {
		return false
	}
	if q.PlanStatus != "" && b.PlanStatus != "" && b.PlanStatus != q.PlanStatus {
		return false
	}
	if q.Origin != "" && b.Origin != q.Origin {
		return false
	}
	if text := strings.ToLower(strings.TrimSpace(q.Text)); text != "" && !strings.Contains(b.SearchText(), text) {
		return false
	}
	return true
}

// Overview is the business page. Rankings, heatmap and stats are computed over
// every business the backend returned; Businesses is the refined list.
type Overview struct {
	Businesses    []commission.Business        `json:"negocios"`
	Total         int                          `json:"total"`
	Provinces     []string                     `json:"provincias"`
	Sellers       []commission.PersonRef       `json:"vendedores"`
	Stats         aggregate.PlanStats          `json:"stats"`
	SellerRanking []aggregate.SellerBusinesses `json:"rankingVendedores"`
	TopGrowth     []commission.Business        `json:"topCrecimiento"`
	Heatmap       []commission.ProvinceCount   `json:"heatmap"`
}

// Service implements the business operations.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(b Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, logger: logger}
}

func (s *Service) load(ctx context.Context, token string, q Query) (backend.BusinessPage, error) {
	if err := q.Validate(); err != nil {
		return backend.BusinessPage{}, err
	}
	q.Text = strings.TrimSpace(q.Text)
	return s.backend.Businesses(ctx, token, q.backendFilter())
}

// Overview loads the businesses and derives the page.
func (s *Service) Overview(ctx context.Context, token string, q Query) (Overview, error) {
	page, err := s.load(ctx, token, q)
	if err != nil {
		return Overview{}, err
	}
	all := page.Businesses
	refined := make([]commission.Business, 0, len(all))
	for _, b := range all {
		if q.Match(b) {
			refined = append(refined, b)
		}
	}
	stats := aggregate.BusinessPlanStats(all)
	if page.Stats != nil {
		stats = aggregate.PlanStats(*page.Stats)
	}
	return Overview{
		Businesses:    refined,
		Total:         len(all),
		Provinces:     page.Provinces,
		Sellers:       page.Sellers,
		Stats:         stats,
		SellerRanking: aggregate.SellerBusinessRanking(all, TopN),
		TopGrowth:     aggregate.TopGrowth(all, TopN),
		Heatmap:       ProvinceHeatmap(all),
	}, nil
}

// Heatmap returns the province heatmap of the businesses matching q.
func (s *Service) Heatmap(ctx context.Context, token string, q Query) ([]commission.ProvinceCount, error) {
	page, err := s.load(ctx, token, q)
	if err != nil {
		return nil, err
	}
	return ProvinceHeatmap(page.Businesses), nil
}

// HeatmapSVG renders the province heatmap as horizontal bars.
func (s *Service) HeatmapSVG(ctx context.Context, token string, q Query) (string, error) {
	counts, err := s.Heatmap(ctx, token, q)
	if err != nil {
		return "", err
	}
	return chart.Heat(0, HeatRows(counts), chart.HeatOpts{
		Title:       "Negocios por provincia",
		Description: "Cantidad de negocios adheridos en cada provincia",
	})
}

// ProvinceHeatmap counts businesses per province, province-less ones dropped.
func ProvinceHeatmap(all []commission.Business) []commission.ProvinceCount {
	return aggregate.Heatmap(all, func(b commission.Business) string { return b.Province })
}

// HeatRows adapts heatmap counts to chart rows.
func HeatRows(counts []commission.ProvinceCount) []chart.HeatRow {
	rows := make([]chart.HeatRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, chart.HeatRow{Label: c.Province, Value: c.Count, Percent: c.PercentOfMax})
	}
	return rows
}
