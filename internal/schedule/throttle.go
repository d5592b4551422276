package schedule

import (
	"sync"
	"time"
)

// Throttle wraps fn so it runs at most once per interval.
//
// The first call after a quiet period runs fn immediately on the caller's
// goroutine. Calls arriving inside the interval replace the pending trailing
// call, so only the most recent argument is delivered when the interval
// ends. The trailing call starts a new interval.
//
// Thread-safety: the returned function is safe for concurrent use. fn never
// runs while the throttle's internal lock is held.
func Throttle[T any](clock Clock, fn func(T), interval time.Duration) func(T) {
	t := &throttle[T]{clock: clock, fn: fn, interval: interval}
	return t.call
}

type throttle[T any] struct {
	clock    Clock
	fn       func(T)
	interval time.Duration

	mu       sync.Mutex
	nextCall time.Time // zero until the first call
	timer    Timer
	gen      uint64 // bumped on every reschedule; a fire with a stale gen is dropped
	latest   T
}

func (t *throttle[T]) call(arg T) {
	t.mu.Lock()
	now := t.clock.Now()
	left := t.nextCall.Sub(now)

	if t.timer == nil && (t.nextCall.IsZero() || left <= 0) {
		t.nextCall = now.Add(t.interval)
		t.mu.Unlock()
		t.fn(arg)
		return
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	left = max(left, 0)
	t.gen++
	gen := t.gen
	t.latest = arg
	t.timer = t.clock.AfterFunc(left, func() { t.fire(gen) })
	t.mu.Unlock()
}

func (t *throttle[T]) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.timer == nil {
		t.mu.Unlock()
		return
	}
	arg := t.latest
	var zero T
	t.latest = zero
	t.timer = nil
	t.nextCall = t.clock.Now().Add(t.interval)
	t.mu.Unlock()

	t.fn(arg)
}
