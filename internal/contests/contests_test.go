package contests

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
	province string
	created  []backend.NewContest
	active   map[int64]bool
	progress []backend.ContestProgress
	winners  []int64
}

func (s *stubBackend) Contests(_ context.Context, _ string, province string) ([]backend.Contest, error) {
	s.province = province
	return []backend.Contest{{ID: 1, Title: "Visitá 1 negocio"}}, nil
}

func (s *stubBackend) CreateContest(_ context.Context, _ string, c backend.NewContest) (backend.Contest, error) {
	s.created = append(s.created, c)
	return backend.Contest{ID: 99, Title: c.Title, Type: c.Type, Active: true}, nil
}

func (s *stubBackend) SetContestActive(_ context.Context, _ string, id int64, active bool) error {
	if s.active == nil {
		s.active = map[int64]bool{}
	}
	s.active[id] = active
	return nil
}

func (s *stubBackend) ContestProgress(_ context.Context, _ string, id int64) (backend.Contest, []backend.ContestProgress, error) {
	return backend.Contest{ID: id}, s.progress, nil
}

func (s *stubBackend) RunContestWinners(_ context.Context, _ string, id int64) error {
	s.winners = append(s.winners, id)
	return nil
}

func TestTemplateFillsForm(t *testing.T) {
	payload, err := Form{Template: "CAMINAR_3KM", Province: "Jujuy", Title: "ignored"}.Build()
	require.NoError(t, err)
	require.Equal(t, "Caminá 3 km", payload.Title)
	require.Equal(t, backend.ContestDistance, payload.Type)
	require.Equal(t, int64(3000), *payload.Goal)
	require.Equal(t, 5, *payload.RangeDays)
	require.Equal(t, int64(200), payload.Points)
	require.Equal(t, "Jujuy", *payload.Province)

	_, err = Form{Template: "NADAR_1KM", Province: "Jujuy"}.Build()
	require.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestFormValidation(t *testing.T) {
	_, err := Form{Title: "  ", Description: "x", Province: "Salta"}.Build()
	require.ErrorIs(t, err, ErrTitleRequired)

	_, err = Form{Title: "Reto", Description: "x"}.Build()
	require.ErrorIs(t, err, ErrProvinceRequired)

	_, err = Form{Title: "Reto", Description: "x", Province: "Salta", Type: "nadar"}.Build()
	require.ErrorIs(t, err, ErrInvalidContest)

	_, err = Form{Title: "Reto", Description: "x", Province: "Salta", Type: backend.ContestPoints}.Build()
	require.ErrorIs(t, err, ErrInvalidContest)

	_, err = Form{Title: "Reto", Description: "x", Province: "Salta", Type: backend.ContestDestination}.Build()
	require.ErrorIs(t, err, ErrInvalidContest)
}

func TestFormDefaults(t *testing.T) {
	payload, err := Form{Title: " Reto ", Description: " Visitá ", Province: AllProvinces, Locality: "  "}.Build()
	require.NoError(t, err)
	require.Equal(t, "Reto", payload.Title)
	require.Nil(t, payload.Province)
	require.Nil(t, payload.Locality)
	require.Equal(t, backend.ContestVisits, payload.Type)
	require.Equal(t, int64(1), *payload.Goal)

	lat, lng := -24.78, -65.41
	payload, err = Form{Title: "Reto", Description: "x", Province: "Salta", Type: backend.ContestDestination, DestLatitude: &lat, DestLongitude: &lng}.Build()
	require.NoError(t, err)
	require.Equal(t, DefaultRadiusMeters, *payload.DestRadiusMeters)
}

func TestProgressRankingIsStable(t *testing.T) {
	b := &stubBackend{progress: []backend.ContestProgress{
		{UserID: 1, PointsAwarded: 100},
		{UserID: 2, PointsAwarded: 300},
		{UserID: 3, PointsAwarded: 100},
		{UserID: 4, PointsAwarded: 50},
	}}
	view, err := NewService(b, nil).Progress(context.Background(), "t", 7, 3)
	require.NoError(t, err)
	require.Equal(t, 4, view.Participants)
	require.Len(t, view.Ranking, 3)
	require.Equal(t, []int64{2, 1, 3}, []int64{view.Ranking[0].UserID, view.Ranking[1].UserID, view.Ranking[2].UserID})
}

func TestListAllProvinces(t *testing.T) {
	b := &stubBackend{}
	_, err := NewService(b, nil).List(context.Background(), "t", AllProvinces)
	require.NoError(t, err)
	require.Empty(t, b.province)
}

func TestContestRoutes(t *testing.T) {
	b := &stubBackend{}
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
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contests", strings.NewReader(`{"plantilla":"VISITA_3","provincia":"Salta"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, int64(3), *b.created[0].Goal)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contests", strings.NewReader(`{"titulo":"x"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/contests/5/active", strings.NewReader(`{"activo":true}`)))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.True(t, b.active[5])

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/contests/5/winners", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Equal(t, []int64{5}, b.winners)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/contests/templates", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "CAMINAR_3KM")
}
