package raffles

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/shared"
)

type stubBackend struct {
	winners []backend.RaffleWinner
	period  backend.RafflePeriod
	prizes  map[int64]string
	calls   int
}

func (s *stubBackend) RaffleWinners(_ context.Context, _ string, p backend.RafflePeriod) ([]backend.RaffleWinner, error) {
	s.calls++
	s.period = p
	return s.winners, nil
}

func (s *stubBackend) DrawRaffle(_ context.Context, _ string, p backend.RafflePeriod) ([]backend.RaffleWinner, error) {
	s.calls++
	s.period = p
	return s.winners, nil
}

func (s *stubBackend) SetRafflePrize(_ context.Context, _ string, id int64, prize string) (*backend.RaffleWinner, error) {
	s.calls++
	if s.prizes == nil {
		s.prizes = map[int64]string{}
	}
	s.prizes[id] = prize
	return &backend.RaffleWinner{ID: id, Prize: &prize}, nil
}

func TestParsePeriodDefaultsToPreviousMonth(t *testing.T) {
	now := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	p, err := ParsePeriod(" Salta ", "", "", now)
	require.NoError(t, err)
	require.Equal(t, backend.RafflePeriod{Province: "Salta", Month: 12, Year: 2023}, p)

	p, err = ParsePeriod("Salta", "3", "2024", now)
	require.NoError(t, err)
	require.Equal(t, 3, p.Month)

	_, err = ParsePeriod("", "3", "2024", now)
	require.ErrorIs(t, err, ErrProvinceRequired)
	_, err = ParsePeriod("Salta", "13", "2024", now)
	require.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = ParsePeriod("Salta", "marzo", "", now)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestWinnersOrderedByPosition(t *testing.T) {
	b := &stubBackend{winners: []backend.RaffleWinner{
		{ID: 10, Position: 3}, {ID: 11, Position: 1}, {ID: 12, Position: 2},
	}}
	res, err := NewService(b, nil).Winners(context.Background(), "t", backend.RafflePeriod{Province: "Salta", Month: 2, Year: 2024})
	require.NoError(t, err)
	require.Equal(t, []int64{11, 12, 10}, []int64{res.Winners[0].ID, res.Winners[1].ID, res.Winners[2].ID})
	require.Equal(t, int64(10), b.winners[0].ID)
}

func TestEmptyWinnersEncodeAsList(t *testing.T) {
	res, err := NewService(&stubBackend{}, nil).Draw(context.Background(), "t", backend.RafflePeriod{Province: "Salta", Month: 2, Year: 2024})
	require.NoError(t, err)
	require.NotNil(t, res.Winners)
}

func TestSetPrizeRequiresText(t *testing.T) {
	b := &stubBackend{}
	svc := NewService(b, nil)
	_, err := svc.SetPrize(context.Background(), "t", 4, "   ")
	require.ErrorIs(t, err, ErrPrizeRequired)
	require.Zero(t, b.calls)

	w, err := svc.SetPrize(context.Background(), "t", 4, " Orden de compra $ 50.000 ")
	require.NoError(t, err)
	require.Equal(t, "Orden de compra $ 50.000", *w.Prize)
}

func TestRaffleRoutes(t *testing.T) {
	b := &stubBackend{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{ID: "s"}
			sess.SetPrincipal(shared.Principal{Token: "tok", Role: commission.RoleAdmin})
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	h := NewHandler(nil, NewService(b, nil), time.UTC)
	h.now = func() time.Time { return time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC) }
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/raffles?provincia=Jujuy", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, backend.RafflePeriod{Province: "Jujuy", Month: 2, Year: 2024}, b.period)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/raffles/draw", strings.NewReader(`{"provincia":"Jujuy","mes":0,"anio":2024}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/raffles/winners/8/prize", strings.NewReader(`{"premio":"Bicicleta"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Bicicleta", b.prizes[8])
}
