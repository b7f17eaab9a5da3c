package server

import (
	"context"
	"sync"
	"time"
)

// TimeWheel is a hashed wheel for deferred bookkeeping, principally
// session expiry checks. Tasks are single-shot and may fire up to one
// tick late; re-arming is explicit.
type TimeWheel struct {
	mu    sync.Mutex
	tick  time.Duration
	slots [][]*WheelTask
	pos   int
}

// WheelTask is a scheduled callback. Cancel is idempotent and safe from
// any goroutine, including the callback itself.
type WheelTask struct {
	mu        sync.Mutex
	rounds    int
	fn        func()
	cancelled bool
}

// Cancel marks the task so it is skipped when its slot comes up.
func (t *WheelTask) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

func (t *WheelTask) take() (func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return nil, false
	}
	if t.rounds > 0 {
		t.rounds--
		return nil, true
	}
	t.cancelled = true
	return t.fn, false
}

// NewTimeWheel creates a wheel with the given tick and slot count.
func NewTimeWheel(tick time.Duration, slots int) *TimeWheel {
	if tick <= 0 {
		tick = time.Second
	}
	if slots <= 0 {
		slots = 60
	}
	return &TimeWheel{
		tick:  tick,
		slots: make([][]*WheelTask, slots),
	}
}

// Schedule arms fn to run after roughly d. Delays shorter than one tick
// fire on the next tick.
func (w *TimeWheel) Schedule(d time.Duration, fn func()) *WheelTask {
	ticks := int(d / w.tick)
	if ticks < 1 {
		ticks = 1
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.slots)
	slot := (w.pos + ticks) % n
	rounds := ticks / n
	if ticks%n == 0 {
		// the slot is visited for the first time a full lap from now
		rounds--
	}
	t := &WheelTask{rounds: rounds, fn: fn}
	w.slots[slot] = append(w.slots[slot], t)
	return t
}

// Run drives the wheel until ctx is cancelled. Callbacks execute on the
// wheel goroutine and must not block.
func (w *TimeWheel) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.advance()
		}
	}
}

func (w *TimeWheel) advance() {
	w.mu.Lock()
	w.pos = (w.pos + 1) % len(w.slots)
	due := w.slots[w.pos]
	w.slots[w.pos] = nil
	w.mu.Unlock()

	var carry []*WheelTask
	for _, t := range due {
		fn, keep := t.take()
		if keep {
			carry = append(carry, t)
			continue
		}
		if fn != nil {
			fn()
		}
	}

	if len(carry) > 0 {
		w.mu.Lock()
		w.slots[w.pos] = append(w.slots[w.pos], carry...)
		w.mu.Unlock()
	}
}
