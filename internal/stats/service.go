// Package stats serves the user statistics: users per province and the
// monthly ranking of a province.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/puntomas/panel/internal/aggregate"
	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/chart"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/platform/httpx"
	"github.com/puntomas/panel/internal/raffles"
)

// ErrProvinceRequired rejects a ranking request without province.
var ErrProvinceRequired = fmt.Errorf("%w: seleccioná una provincia para ver el ranking", httpx.ErrValidation)

// Backend is the part of the backend client the statistics need.
type Backend interface {
	UsersPerProvince(ctx context.Context, token string) ([]commission.ProvinceCount, error)
	ProvinceRanking(ctx context.Context, token string, period backend.RafflePeriod) (backend.ProvinceRanking, error)
}

// Provinces is the users-per-province heatmap with the overall total.
type Provinces struct {
	Provinces  []commission.ProvinceCount `json:"provincias"`
	TotalUsers int                        `json:"totalUsuarios"`
}

// Overview is the statistics page: the heatmap, plus the ranking when a
// province was selected.
type Overview struct {
	Provinces
	Ranking *backend.ProvinceRanking `json:"ranking,omitempty"`
}

// Service implements the statistics operations.
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

// UsersPerProvince returns the ranked heatmap. Users without province are
// counted under backend.NoProvince.
func (s *Service) UsersPerProvince(ctx context.Context, token string) (Provinces, error) {
	counts, err := s.backend.UsersPerProvince(ctx, token)
	if err != nil {
		return Provinces{}, err
	}
	out := Provinces{Provinces: aggregate.HeatmapFromCounts(counts)}
	for _, c := range counts {
		out.TotalUsers += c.Count
	}
	return out, nil
}

// Ranking returns the monthly ranking of a province.
func (s *Service) Ranking(ctx context.Context, token string, p backend.RafflePeriod) (backend.ProvinceRanking, error) {
	p.Province = strings.TrimSpace(p.Province)
	if p.Province == "" {
		return backend.ProvinceRanking{}, ErrProvinceRequired
	}
	if err := raffles.ValidatePeriod(p); err != nil {
		return backend.ProvinceRanking{}, err
	}
	return s.backend.ProvinceRanking(ctx, token, p)
}

// Overview loads the heatmap and, when p names a province, the ranking in
// parallel.
func (s *Service) Overview(ctx context.Context, token string, p backend.RafflePeriod) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		provinces, err := s.UsersPerProvince(gctx, token)
		if err != nil {
			return err
		}
		out.Provinces = provinces
		return nil
	})
	if strings.TrimSpace(p.Province) != "" {
		g.Go(func() error {
			ranking, err := s.Ranking(gctx, token, p)
			if err != nil {
				return err
			}
			out.Ranking = &ranking
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

// ProvincesSVG renders the users-per-province heatmap.
func (s *Service) ProvincesSVG(ctx context.Context, token string) (string, error) {
	provinces, err := s.UsersPerProvince(ctx, token)
	if err != nil {
		return "", err
	}
	rows := make([]chart.HeatRow, 0, len(provinces.Provinces))
	for _, c := range provinces.Provinces {
		label := c.Province
		if label == backend.NoProvince {
			label = "Sin provincia"
		}
		rows = append(rows, chart.HeatRow{Label: label, Value: c.Count, Percent: c.PercentOfMax})
	}
	return chart.Heat(0, rows, chart.HeatOpts{
		Title:       "Usuarios por provincia",
		Description: "Usuarios de la app registrados en cada provincia",
		Color:       "#00a8ff",
	})
}
