package stats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/shared"
)

type stubBackend struct {
	counts     []commission.ProvinceCount
	rankingErr error
	period     backend.RafflePeriod
}

func (s *stubBackend) UsersPerProvince(context.Context, string) ([]commission.ProvinceCount, error) {
	return s.counts, nil
}

func (s *stubBackend) ProvinceRanking(_ context.Context, _ string, p backend.RafflePeriod) (backend.ProvinceRanking, error) {
	s.period = p
	if s.rankingErr != nil {
		return backend.ProvinceRanking{}, s.rankingErr
	}
	return backend.ProvinceRanking{Province: p.Province, Month: p.Month, Year: p.Year, Ranking: []backend.RankingEntry{}}, nil
}

func sampleCounts() []commission.ProvinceCount {
	return []commission.ProvinceCount{
		{Province: "Salta", Count: 20},
		{Province: backend.NoProvince, Count: 5},
		{Province: "Córdoba", Count: 40},
	}
}

func TestUsersPerProvinceHeatmap(t *testing.T) {
	svc := NewService(&stubBackend{counts: sampleCounts()}, nil)
	out, err := svc.UsersPerProvince(context.Background(), "t")
	require.NoError(t, err)
	require.Equal(t, 65, out.TotalUsers)
	require.Equal(t, "Córdoba", out.Provinces[0].Province)
	require.InDelta(t, 100.0, out.Provinces[0].PercentOfMax, 0.001)
	require.InDelta(t, 50.0, out.Provinces[1].PercentOfMax, 0.001)
	require.Equal(t, backend.NoProvince, out.Provinces[2].Province)
	require.InDelta(t, 12.5, out.Provinces[2].PercentOfMax, 0.001)
}

func TestOverviewLoadsRankingOnlyWithProvince(t *testing.T) {
	b := &stubBackend{counts: sampleCounts()}
	svc := NewService(b, nil)

	ov, err := svc.Overview(context.Background(), "t", backend.RafflePeriod{})
	require.NoError(t, err)
	require.Nil(t, ov.Ranking)
	require.Len(t, ov.Provinces.Provinces, 3)

	ov, err = svc.Overview(context.Background(), "t", backend.RafflePeriod{Province: "Salta", Month: 2, Year: 2024})
	require.NoError(t, err)
	require.NotNil(t, ov.Ranking)
	require.Equal(t, "Salta", ov.Ranking.Province)
}

func TestOverviewFailsWhenRankingFails(t *testing.T) {
	boom := errors.New("boom")
	svc := NewService(&stubBackend{counts: sampleCounts(), rankingErr: boom}, nil)
	_, err := svc.Overview(context.Background(), "t", backend.RafflePeriod{Province: "Salta", Month: 2, Year: 2024})
	require.ErrorIs(t, err, boom)
}

func TestRankingRequiresProvince(t *testing.T) {
	_, err := NewService(&stubBackend{}, nil).Ranking(context.Background(), "t", backend.RafflePeriod{Month: 2, Year: 2024})
	require.ErrorIs(t, err, ErrProvinceRequired)
}

func TestStatsRoutes(t *testing.T) {
	b := &stubBackend{counts: sampleCounts()}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{ID: "s"}
			sess.SetPrincipal(shared.Principal{Token: "tok", Role: commission.RoleAdmin})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	h := NewHandler(nil, NewService(b, nil), time.UTC)
	h.now = func() time.Time { return time.Date(2024, time.May, 20, 0, 0, 0, 0, time.UTC) }
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats/ranking", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats/ranking?provincia=Salta", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 4, b.period.Month)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats/provinces.svg", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Sin provincia")
}
