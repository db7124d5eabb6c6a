package alerts

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/backend"
	"github.com/puntomas/panel/internal/commission"
	"github.com/puntomas/panel/internal/shared"
)

type stubBackend struct {
	mu          sync.Mutex
	alerts      []commission.Alert
	adminCount  atomic.Int64
	adminCalls  atomic.Int64
	supCalls    atomic.Int64
	notes       []string
	raised      []backend.NewAlert
	supFilter   backend.SupervisorAlertFilter
	unreachable bool
	rejected    bool
}

func (s *stubBackend) AdminAlerts(context.Context, string) ([]commission.Alert, error) {
	return s.alerts, nil
}

func (s *stubBackend) ResolveAlert(_ context.Context, _ string, _ int64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, note)
	return nil
}

func (s *stubBackend) AdminPendingAlertCount(context.Context, string) (int, error) {
	s.adminCalls.Add(1)
	if s.unreachable {
		return 0, backend.ErrConnection
	}
	if s.rejected {
		return 0, &backend.APIError{Status: http.StatusUnauthorized, Message: "token expirado"}
	}
	return int(s.adminCount.Load()), nil
}

func (s *stubBackend) SupervisorUnreadAlertCount(context.Context, string) (int, error) {
	s.supCalls.Add(1)
	return 2, nil
}

func (s *stubBackend) SupervisorAlerts(_ context.Context, _ string, f backend.SupervisorAlertFilter) ([]commission.Alert, error) {
	s.supFilter = f
	return s.alerts, nil
}

func (s *stubBackend) MarkAlertRead(_ context.Context, _ string, _ int64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, note)
	return nil
}

func (s *stubBackend) UnblockSeller(_ context.Context, _ string, _ int64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, note)
	return nil
}

func (s *stubBackend) RaiseAlert(_ context.Context, _ string, a backend.NewAlert) error {
	s.raised = append(s.raised, a)
	return nil
}

func newTestService(t *testing.T, b *stubBackend) (*Service, *redis.Client) {
	t.Helper()
	return newTestServiceWith(t, b, Config{AdminInterval: time.Hour, SupervisorInterval: time.Hour})
}

func newTestServiceWith(t *testing.T, b *stubBackend, cfg Config) (*Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx, cancel := context.WithCancel(context.Background())
	svc := NewService(ctx, b, client, nil, nil, cfg)
	t.Cleanup(func() {
		cancel()
		svc.Shutdown()
		_ = client.Close()
	})
	return svc, client
}

func sampleAlerts() []commission.Alert {
	return []commission.Alert{
		{ID: 1, Status: commission.AlertPending},
		{ID: 2, Status: commission.AlertResolved},
		{ID: 3, Status: commission.AlertPending},
	}
}

func TestPollerStartsOnLoginAndStopsOnLogout(t *testing.T) {
	b := &stubBackend{}
	b.adminCount.Store(4)
	svc, client := newTestService(t, b)
	ctx := context.Background()
	admin := shared.Principal{Token: "t", Role: commission.RoleAdmin}

	svc.SessionStarted(ctx, "s1", admin)
	require.Equal(t, 1, svc.ActivePollers())
	require.Eventually(t, func() bool {
		c, err := svc.PendingCount(ctx, "s1", admin)
		return err == nil && c.Source == "poller" && c.Count == 4
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return client.Exists(ctx, snapshotKey("s1")).Val() == 1
	}, time.Second, 10*time.Millisecond)

	svc.SessionEnded(ctx, "s1")
	require.Zero(t, svc.ActivePollers())
	require.Zero(t, client.Exists(ctx, snapshotKey("s1")).Val())
}

func TestPollerStopsWhenBackendRejectsToken(t *testing.T) {
	b := &stubBackend{rejected: true}
	svc, _ := newTestServiceWith(t, b, Config{AdminInterval: 10 * time.Millisecond, SupervisorInterval: 10 * time.Millisecond})
	ctx := context.Background()

	for _, id := range []string{"s1", "s2", "s3"} {
		svc.SessionStarted(ctx, id, shared.Principal{Token: "t", Role: commission.RoleAdmin})
	}
	require.Eventually(t, func() bool { return svc.ActivePollers() == 0 }, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, b.adminCalls.Load(), int64(9))
}

func TestPollerStopsWhenSessionExpires(t *testing.T) {
	b := &stubBackend{}
	b.adminCount.Store(1)
	mr := miniredis.RunT(t)
	sessions := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = sessions.Close() })
	alive := func(ctx context.Context, id string) (bool, error) {
		n, err := sessions.Exists(ctx, "session:"+id).Result()
		return n > 0, err
	}
	svc, _ := newTestServiceWith(t, b, Config{
		AdminInterval:      10 * time.Millisecond,
		SupervisorInterval: 10 * time.Millisecond,
		SessionAlive:       alive,
	})
	ctx := context.Background()
	require.NoError(t, sessions.Set(ctx, "session:s1", "{}", time.Minute).Err())
	svc.SessionStarted(ctx, "s1", shared.Principal{Token: "t", Role: commission.RoleAdmin})
	require.Eventually(t, func() bool { return b.adminCalls.Load() >= 3 }, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, svc.ActivePollers())

	mr.FastForward(2 * time.Minute)
	require.Eventually(t, func() bool { return svc.ActivePollers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestSellerSessionsAreNotPolled(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{})
	svc.SessionStarted(context.Background(), "s1", shared.Principal{Token: "t", Role: commission.RoleSeller})
	require.Zero(t, svc.ActivePollers())

	c, err := svc.PendingCount(context.Background(), "s1", shared.Principal{Token: "t", Role: commission.RoleSeller})
	require.NoError(t, err)
	require.Equal(t, "none", c.Source)
}

func TestPendingCountFallsBackToSnapshotThenBackend(t *testing.T) {
	b := &stubBackend{}
	svc, client := newTestService(t, b)
	ctx := context.Background()
	sup := shared.Principal{Token: "t", Role: commission.RoleSupervisor}

	require.NoError(t, client.Set(ctx, snapshotKey("other-node"), `{"cantidad":9,"seq":3,"origen":"snapshot"}`, time.Minute).Err())
	c, err := svc.PendingCount(ctx, "other-node", sup)
	require.NoError(t, err)
	require.Equal(t, 9, c.Count)
	require.Equal(t, "snapshot", c.Source)
	require.Zero(t, b.supCalls.Load())

	c, err = svc.PendingCount(ctx, "fresh", sup)
	require.NoError(t, err)
	require.Equal(t, 2, c.Count)
	require.Equal(t, "backend", c.Source)
}

func TestPendingCountUnreachable(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{unreachable: true})
	_, err := svc.PendingCount(context.Background(), "s1", shared.Principal{Token: "t", Role: commission.RoleAdmin})
	require.True(t, errors.Is(err, backend.ErrConnection))
}

func TestInboxFilters(t *testing.T) {
	b := &stubBackend{alerts: sampleAlerts()}
	svc, _ := newTestService(t, b)
	ctx := context.Background()

	in, err := svc.AdminInbox(ctx, "t", FilterPending)
	require.NoError(t, err)
	require.Len(t, in.Alerts, 2)
	require.Equal(t, 3, in.Total)
	require.Equal(t, 2, in.Pending)
	require.Equal(t, 1, in.Resolved)

	in, err = svc.AdminInbox(ctx, "t", FilterResolved)
	require.NoError(t, err)
	require.Len(t, in.Alerts, 1)

	in, err = svc.SupervisorInbox(ctx, "t", FilterAll, " Córdoba ", "")
	require.NoError(t, err)
	require.Len(t, in.Alerts, 3)
	require.Equal(t, "Córdoba", b.supFilter.Province)

	f, err := ParseFilter("")
	require.NoError(t, err)
	require.Equal(t, FilterPending, f)
	_, err = ParseFilter("leidas")
	require.ErrorIs(t, err, ErrInvalidFilter)
}

func TestSupervisorNoteCheckedBeforeRequest(t *testing.T) {
	b := &stubBackend{}
	svc, _ := newTestService(t, b)
	ctx := context.Background()

	require.ErrorIs(t, svc.MarkRead(ctx, "s1", "t", 1, "  ok "), ErrNoteTooShort)
	require.ErrorIs(t, svc.Unblock(ctx, "s1", "t", 1, ""), ErrNoteTooShort)
	require.Empty(t, b.notes)

	require.NoError(t, svc.MarkRead(ctx, "s1", "t", 1, "  listo "))
	require.Equal(t, []string{"listo"}, b.notes)
}

func TestAdminResolveNeedsNote(t *testing.T) {
	b := &stubBackend{}
	svc, _ := newTestService(t, b)
	ctx := context.Background()

	require.ErrorIs(t, svc.Resolve(ctx, "s1", "t", 1, "   "), ErrNoteTooShort)
	require.ErrorIs(t, svc.Resolve(ctx, "s1", "t", 1, "ok"), ErrNoteTooShort)
	require.Empty(t, b.notes)

	require.NoError(t, svc.Resolve(ctx, "s1", "t", 1, " pago verificado "))
	require.Equal(t, []string{"pago verificado"}, b.notes)
}

func TestRaiseValidation(t *testing.T) {
	b := &stubBackend{}
	svc, _ := newTestService(t, b)
	ctx := context.Background()

	require.ErrorIs(t, svc.Raise(ctx, "t", backend.NewAlert{SellerID: 0, Type: commission.AlertOther, Message: "x"}), ErrInvalidSeller)
	require.ErrorIs(t, svc.Raise(ctx, "t", backend.NewAlert{SellerID: 5, Type: "rara", Message: "x"}), ErrInvalidType)
	require.ErrorIs(t, svc.Raise(ctx, "t", backend.NewAlert{SellerID: 5, Type: commission.AlertMissingPayments, Message: "  "}), ErrEmptyMessage)
	require.Empty(t, b.raised)

	require.NoError(t, svc.Raise(ctx, "t", backend.NewAlert{SellerID: 5, Type: commission.AlertMissingPayments, Message: " faltan 3 pagos "}))
	require.Equal(t, "faltan 3 pagos", b.raised[0].Message)
}
