package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/puntomas/panel/internal/commission"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "panel_session", "secret", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionPrincipalLifecycle(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.False(t, sess.Authenticated())

	sess.SetPrincipal(Principal{Token: "tok", Role: commission.RoleAdmin, Name: "Ana"})
	cookie := roundTrip(t, sm, sess)
	require.True(t, mr.Exists("session:"+cookie.Value))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.True(t, loaded.Authenticated())
	require.Equal(t, commission.RoleAdmin, loaded.Principal().Role)

	sm.Destroy(loaded)
	cleared := roundTrip(t, sm, loaded)
	require.Equal(t, -1, cleared.MaxAge)
	require.False(t, mr.Exists("session:"+cookie.Value))
}

func TestSessionRenewDropsPreviousKey(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	first := roundTrip(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(first)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)

	sm.Renew(loaded)
	second := roundTrip(t, sm, loaded)
	require.NotEqual(t, first.Value, second.Value)
	require.False(t, mr.Exists("session:"+first.Value))
	require.True(t, mr.Exists("session:"+second.Value))
}

func TestSessionExistsUntilExpiry(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	cookie := roundTrip(t, sm, sess)

	ok, err := sm.Exists(ctx, cookie.Value)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Hour)
	ok, err = sm.Exists(ctx, cookie.Value)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrincipalFromContext(t *testing.T) {
	require.Nil(t, PrincipalFromContext(context.Background()))

	sm, _ := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetPrincipal(Principal{Token: "tok", Role: commission.RoleSeller})
	ctx := ContextWithSession(context.Background(), sess)

	p := PrincipalFromContext(ctx)
	require.NotNil(t, p)
	p.Name = "mutated"
	require.Empty(t, sess.Principal().Name)
}

func TestCSRFVerifyAndRotate(t *testing.T) {
	sm, _ := newTestManager(t)
	csrf := NewCSRFManager("csrf-secret")
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NoError(t, csrf.VerifyToken(ctx, sess, token))
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)

	rotated, err := csrf.RotateToken(ctx, sess)
	require.NoError(t, err)
	require.NotEqual(t, token, rotated)
	require.ErrorIs(t, csrf.VerifyToken(ctx, sess, token), ErrCSRFTokenMismatch)
}
