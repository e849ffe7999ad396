package events

import (
	"context"
	"sync"
)

// Invalidation tells subscribers the bookmark list is stale.
type Invalidation struct {
	Generation uint64
}

// Bus fans invalidations out to subscribers. Every publish is delivered to
// every live subscriber exactly once, in generation order.
type Bus struct {
	pubMu sync.Mutex // serializes publishes so generations arrive in order

	mu         sync.Mutex
	generation uint64
	subs       map[*Subscription]struct{}
}

// Subscription receives invalidations on C until Close.
type Subscription struct {
	C <-chan Invalidation

	ch   chan Invalidation
	done chan struct{}
	bus  *Bus
	once sync.Once
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber. buffer lets a publisher run ahead of a
// slow reader; with 0 every Publish waits for the reader.
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Invalidation, buffer)
	s := &Subscription{
		C:    ch,
		ch:   ch,
		done: make(chan struct{}),
		bus:  b,
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Done is closed when the subscription is closed. C is never closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.done)
	})
}

// Publish bumps the generation and delivers it to every subscriber, blocking
// until each one accepted it or ctx is done.
func (b *Bus) Publish(ctx context.Context) (uint64, error) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	b.generation++
	ev := Invalidation{Generation: b.generation}
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		case <-ctx.Done():
			return ev.Generation, ctx.Err()
		}
	}
	return ev.Generation, nil
}

// Generation returns the number of publishes so far.
func (b *Bus) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
