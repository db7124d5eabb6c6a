// Package poll runs periodic background fetches whose results are applied in
// request order: every fetch carries a sequence number and a response older than
// the last applied one is discarded.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Fetcher loads one value. It must honour ctx cancellation.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Snapshot is the most recently applied value.
type Snapshot[T any] struct {
	Value     T
	Seq       uint64
	FetchedAt time.Time
}

// Option customises a Poller.
type Option[T any] func(*Poller[T])

// WithLogger sets the logger used for fetch failures.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Poller[T]) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithOnApply registers a callback run after a snapshot is applied.
func WithOnApply[T any](fn func(context.Context, Snapshot[T])) Option[T] {
	return func(p *Poller[T]) { p.onApply = fn }
}

// WithOnStale registers a callback run when a response is dropped as stale.
func WithOnStale[T any](fn func()) Option[T] {
	return func(p *Poller[T]) { p.onStale = fn }
}

// WithOnError registers a callback run when a fetch fails.
func WithOnError[T any](fn func(error)) Option[T] {
	return func(p *Poller[T]) { p.onError = fn }
}

// WithStopOn stops the poller after a fetch error for which fn reports true,
// such as a rejected credential that no retry can fix.
func WithStopOn[T any](fn func(error) bool) Option[T] {
	return func(p *Poller[T]) { p.stopOn = fn }
}

// WithAlive registers a check run before every scheduled fetch. The poller stops
// once it reports false. Check errors keep the poller running.
func WithAlive[T any](fn func(context.Context) (bool, error)) Option[T] {
	return func(p *Poller[T]) { p.alive = fn }
}

// Poller re-issues a fetch on a fixed interval until stopped.
type Poller[T any] struct {
	interval time.Duration
	fetch    Fetcher[T]
	logger   *slog.Logger
	onApply  func(context.Context, Snapshot[T])
	onStale  func()
	onError  func(error)
	stopOn   func(error) bool
	alive    func(context.Context) (bool, error)
	onExit   func()

	issued atomic.Uint64

	mu      sync.RWMutex
	latest  Snapshot[T]
	applied bool

	lifecycle sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	kick      chan struct{}
	wg        sync.WaitGroup
}

// DefaultInterval is used when New receives a non-positive interval.
const DefaultInterval = 15 * time.Second

// New constructs a stopped Poller.
func New[T any](interval time.Duration, fetch Fetcher[T], opts ...Option[T]) *Poller[T] {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller[T]{
		interval: interval,
		fetch:    fetch,
		logger:   slog.Default(),
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling with an immediate first fetch. Calling Start on a running
// poller is a no-op. The poller stops when ctx is cancelled or Stop is called.
func (p *Poller[T]) Start(ctx context.Context) {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	if p.cancel != nil {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go p.loop(p.ctx)
}

// Stop cancels in-flight fetches and waits for every goroutine to exit.
func (p *Poller[T]) Stop() {
	p.lifecycle.Lock()
	cancel := p.cancel
	p.lifecycle.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
}

// Refresh asks for an out-of-band fetch without waiting for the next tick.
func (p *Poller[T]) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Latest returns the last applied snapshot. ok is false until the first
// successful fetch.
func (p *Poller[T]) Latest() (Snapshot[T], bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.applied
}

// halt cancels the poller from one of its own goroutines, without waiting.
func (p *Poller[T]) halt() {
	p.lifecycle.Lock()
	cancel := p.cancel
	p.lifecycle.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (p *Poller[T]) loop(ctx context.Context) {
	defer p.wg.Done()
	if p.onExit != nil {
		defer p.onExit()
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.launch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.stillAlive(ctx) {
				p.logger.Info("poller owner gone, stopping")
				p.halt()
				return
			}
			p.launch(ctx)
		case <-p.kick:
			p.launch(ctx)
		}
	}
}

// launch issues one fetch in its own goroutine so a slow response never delays
// the next tick.
func (p *Poller[T]) launch(ctx context.Context) {
	seq := p.issued.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		value, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("poll fetch failed", slog.Uint64("seq", seq), slog.Any("error", err))
			if p.onError != nil {
				p.onError(err)
			}
			if p.stopOn != nil && p.stopOn(err) {
				p.logger.Info("poll fetch rejected, stopping", slog.Uint64("seq", seq))
				p.halt()
			}
			return
		}
		p.apply(ctx, seq, value)
	}()
}

func (p *Poller[T]) stillAlive(ctx context.Context) bool {
	if p.alive == nil {
		return true
	}
	ok, err := p.alive(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("poll liveness check failed", slog.Any("error", err))
		}
		return true
	}
	return ok
}

// apply stores value when seq is newer than the applied snapshot.
func (p *Poller[T]) apply(ctx context.Context, seq uint64, value T) bool {
	p.mu.Lock()
	if p.applied && seq <= p.latest.Seq {
		p.mu.Unlock()
		if p.onStale != nil {
			p.onStale()
		}
		return false
	}
	snap := Snapshot[T]{Value: value, Seq: seq, FetchedAt: time.Now()}
	p.latest = snap
	p.applied = true
	p.mu.Unlock()

	if p.onApply != nil && ctx.Err() == nil {
		p.onApply(ctx, snap)
	}
	return true
}
