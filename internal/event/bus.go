package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Bus delivers events synchronously: Publish returns only after every live
// subscriber has run. Handlers execute in subscription order; a panicking
// handler is logged and the remaining handlers still run.
//
// Publish takes a read lock over the subscription list and executes
// callbacks outside it; cancelled subscriptions are pruned lazily under
// a brief write lock on the next publish that observes them.
type Bus struct {
	mu   sync.RWMutex
	subs [numTypes][]*Subscription
}

// Subscription is the handle returned by Subscribe. Cancelling it removes
// the callback deterministically.
type Subscription struct {
	fn        func(Event)
	cancelled atomic.Bool
}

// Cancel marks the subscription expired. It is pruned on the next publish
// of its event type.
func (s *Subscription) Cancel() {
	s.cancelled.Store(true)
}

// NewBus creates an independent bus. Tests instantiate as many as needed.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for events of the given type.
func (b *Bus) Subscribe(t Type, fn func(Event)) *Subscription {
	sub := &Subscription{fn: fn}
	b.mu.Lock()
	b.subs[t] = append(b.subs[t], sub)
	b.mu.Unlock()
	return sub
}

// Publish delivers ev to all live subscribers of ev.Type.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	subs := b.subs[ev.Type]
	live := make([]*Subscription, 0, len(subs))
	prune := false
	for _, s := range subs {
		if s.cancelled.Load() {
			prune = true
			continue
		}
		live = append(live, s)
	}
	b.mu.RUnlock()

	for _, s := range live {
		deliver(s, ev)
	}

	if prune {
		b.mu.Lock()
		kept := b.subs[ev.Type][:0]
		for _, s := range b.subs[ev.Type] {
			if !s.cancelled.Load() {
				kept = append(kept, s)
			}
		}
		b.subs[ev.Type] = kept
		b.mu.Unlock()
	}
}

// deliver runs one handler, containing panics so a bad subscriber cannot
// deny service to the others.
func deliver(s *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "event", ev.Type.String(), "panic", r)
		}
	}()
	s.fn(ev)
}
