package poll

import (
	"context"
	"sync"
)

// Registry owns one poller per key, typically a session id.
type Registry[T any] struct {
	parent  context.Context
	mu      sync.Mutex
	pollers map[string]*Poller[T]
}

// NewRegistry returns a Registry whose pollers are children of parent.
func NewRegistry[T any](parent context.Context) *Registry[T] {
	return &Registry[T]{parent: parent, pollers: make(map[string]*Poller[T])}
}

// Start registers and starts p under key, stopping any poller it replaces. A
// poller that stops on its own is forgotten as well.
func (r *Registry[T]) Start(key string, p *Poller[T]) {
	p.onExit = func() { r.forget(key, p) }

	r.mu.Lock()
	previous := r.pollers[key]
	r.pollers[key] = p
	r.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	p.Start(r.parent)
}

// Stop stops and forgets the poller under key.
func (r *Registry[T]) Stop(key string) {
	r.mu.Lock()
	p := r.pollers[key]
	delete(r.pollers, key)
	r.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

func (r *Registry[T]) forget(key string, p *Poller[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollers[key] == p {
		delete(r.pollers, key)
	}
}

// Get returns the poller registered under key.
func (r *Registry[T]) Get(key string) (*Poller[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pollers[key]
	return p, ok
}

// Latest returns the applied snapshot of the poller under key.
func (r *Registry[T]) Latest(key string) (Snapshot[T], bool) {
	p, ok := r.Get(key)
	if !ok {
		return Snapshot[T]{}, false
	}
	return p.Latest()
}

// Refresh triggers an immediate fetch on the poller under key.
func (r *Registry[T]) Refresh(key string) {
	if p, ok := r.Get(key); ok {
		p.Refresh()
	}
}

// Len reports how many pollers are registered.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pollers)
}

// StopAll stops every poller, used on shutdown.
func (r *Registry[T]) StopAll() {
	r.mu.Lock()
	pollers := r.pollers
	r.pollers = make(map[string]*Poller[T])
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range pollers {
		wg.Add(1)
		go func(p *Poller[T]) {
			defer wg.Done()
			p.Stop()
		}(p)
	}
	wg.Wait()
}
