package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value int `json:"value"`
}

func newVersioned(t *testing.T) (*Versioned, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewVersioned(client, "dashboard", time.Minute), mr
}

func TestFetchJSONCachesAndBumpInvalidates(t *testing.T) {
	c, _ := newVersioned(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Value: calls}, nil
	}

	key, err := c.BuildKey(ctx, "summary")
	require.NoError(t, err)
	require.Equal(t, "dashboard:summary:1", key)

	var got payload
	hit, err := c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 1, got.Value)

	hit, err = c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "summary")
	require.NoError(t, err)
	require.Equal(t, "dashboard:summary:2", key)
	_, err = c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	require.Equal(t, 2, got.Value)
}

func TestFetchJSONSharesConcurrentMisses(t *testing.T) {
	c, _ := newVersioned(t)
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return payload{Value: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]payload, 5)
	errs := make([]error, len(results))
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.FetchJSON(ctx, "dashboard:k:1", &results[i], loader)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for i, r := range results {
		require.NoError(t, errs[i])
		require.Equal(t, 7, r.Value)
	}
}

func TestFetchJSONDoesNotCacheErrors(t *testing.T) {
	c, mr := newVersioned(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var got payload
	_, err := c.FetchJSON(ctx, "dashboard:k:1", &got, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("dashboard:k:1"))
}

func TestNilCacheCallsLoader(t *testing.T) {
	var c *Versioned
	var got payload
	hit, err := c.FetchJSON(context.Background(), "k", &got, func(context.Context) (any, error) { return payload{Value: 3}, nil })
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 3, got.Value)
}
