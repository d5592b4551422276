package schedule

import (
	"sync"
	"time"
)

// Debounce wraps fn so it runs only once calls stop arriving for interval.
//
// Every call cancels the pending run and schedules a new one carrying the
// latest argument. There is no leading call.
//
// Thread-safety: the returned function is safe for concurrent use. fn always
// runs on the clock's timer goroutine.
func Debounce[T any](clock Clock, fn func(T), interval time.Duration) func(T) {
	d := &debounce[T]{clock: clock, fn: fn, interval: interval}
	return d.call
}

type debounce[T any] struct {
	clock    Clock
	fn       func(T)
	interval time.Duration

	mu     sync.Mutex
	timer  Timer
	gen    uint64
	latest T
}

func (d *debounce[T]) call(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.latest = arg
	d.timer = d.clock.AfterFunc(d.interval, func() { d.fire(gen) })
}

func (d *debounce[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	arg := d.latest
	var zero T
	d.latest = zero
	d.timer = nil
	d.mu.Unlock()

	d.fn(arg)
}
