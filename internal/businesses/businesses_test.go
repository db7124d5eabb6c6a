package businesses

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/shared"
)

type stubBackend struct {
	page   backend.BusinessPage
	filter backend.BusinessFilter
	calls  int
}

func (s *stubBackend) Businesses(_ context.Context, _ string, f backend.BusinessFilter) (backend.BusinessPage, error) {
	s.calls++
	s.filter = f
	return s.page, nil
}

func seller(id int64, name string) *commission.PersonRef {
	return &commission.PersonRef{ID: id, Name: name}
}

func sampleBusinesses() []commission.Business {
	return []commission.Business{
		{ID: 1, Name: "Kiosco Sol", Province: "Córdoba", Locality: "Río Cuarto", PlanStatus: commission.PlanCurrent, Origin: commission.OriginSeller, Seller: seller(10, "Ana"), MonthlyPoints: 40},
		{ID: 2, Name: "Almacén Luna", Province: "Córdoba", PlanStatus: commission.PlanExpired, Origin: commission.OriginSeller, Seller: seller(11, "Beto"), MonthlyPoints: 90},
		{ID: 3, Name: "Panadería Norte", Province: "Salta", PlanStatus: commission.PlanExpiringSoon, Origin: commission.OriginSeller, Seller: seller(10, "Ana"), MonthlyPoints: 10},
		{ID: 4, Name: "Ferretería", PlanStatus: commission.PlanNone, Origin: commission.OriginApp, MonthlyPoints: 90},
	}
}

func TestOverviewRefinesButRanksEverything(t *testing.T) {
	b := &stubBackend{page: backend.BusinessPage{Businesses: sampleBusinesses(), Provinces: []string{"Córdoba", "Salta"}}}
	svc := NewService(b, nil)

	ov, err := svc.Overview(context.Background(), "t", Query{Province: "Córdoba", Text: " LUNA "})
	require.NoError(t, err)
	require.Equal(t, "LUNA", b.filter.Query)
	require.Len(t, ov.Businesses, 1)
	require.Equal(t, int64(2), ov.Businesses[0].ID)
	require.Equal(t, 4, ov.Total)

	require.Equal(t, 4, ov.Stats.Total)
	require.Equal(t, 2, ov.Stats.WithPlan)
	require.Equal(t, 1, ov.Stats.Expired)

	require.Len(t, ov.SellerRanking, 2)
	require.Equal(t, int64(10), ov.SellerRanking[0].SellerID)
	require.Equal(t, 2, ov.SellerRanking[0].Businesses)
	require.Equal(t, 2, ov.SellerRanking[0].WithPlan)

	require.Equal(t, []int64{2, 4, 1, 3}, []int64{ov.TopGrowth[0].ID, ov.TopGrowth[1].ID, ov.TopGrowth[2].ID, ov.TopGrowth[3].ID})

	require.Len(t, ov.Heatmap, 2)
	require.Equal(t, "Córdoba", ov.Heatmap[0].Province)
	require.InDelta(t, 100.0, ov.Heatmap[0].PercentOfMax, 0.001)
	require.InDelta(t, 50.0, ov.Heatmap[1].PercentOfMax, 0.001)
}

func TestBackendStatsWin(t *testing.T) {
	b := &stubBackend{page: backend.BusinessPage{
		Businesses: sampleBusinesses(),
		Stats:      &backend.BusinessStats{Total: 400, WithPlan: 300},
	}}
	ov, err := NewService(b, nil).Overview(context.Background(), "t", Query{})
	require.NoError(t, err)
	require.Equal(t, 400, ov.Stats.Total)
	require.Equal(t, 300, ov.Stats.WithPlan)
}

func TestQueryMatch(t *testing.T) {
	all := sampleBusinesses()
	require.True(t, Query{SellerID: 10}.Match(all[0]))
	require.False(t, Query{SellerID: 10}.Match(all[3]))
	require.False(t, Query{Origin: commission.OriginApp}.Match(all[0]))
	require.True(t, Query{PlanStatus: commission.PlanCurrent}.Match(commission.Business{}))
	require.True(t, Query{Text: "ana"}.Match(all[2]))
	require.True(t, Query{Text: "río"}.Match(all[0]))
}

func TestInvalidFilterNeverReachesBackend(t *testing.T) {
	b := &stubBackend{}
	_, err := NewService(b, nil).Overview(context.Background(), "t", Query{PlanStatus: "gratis"})
	require.ErrorIs(t, err, ErrInvalidFilter)
	require.Zero(t, b.calls)
}

func TestHeatmapEndpoints(t *testing.T) {
	b := &stubBackend{page: backend.BusinessPage{Businesses: sampleBusinesses()}}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{ID: "s"}
			sess.SetPrincipal(shared.Principal{Token: "tok", Role: commission.RoleAdmin})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	NewHandler(nil, NewService(b, nil)).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/businesses/heatmap.svg?estadoPlan=todos", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Body.String(), "Salta")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/businesses?vendedorId=abc", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/businesses/heatmap", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), `"provincias"`))
}
