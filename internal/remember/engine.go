package remember

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/roach88/remember/internal/equal"
	"github.com/roach88/remember/internal/schedule"
	"github.com/roach88/remember/internal/store"
)

// Engine wires rehydration and persistence into one store.
//
// Thread-safety model:
//   - Enhancer(): the returned enhancer may create exactly one store
//   - Ready(), Stop(), Metrics(): safe from any goroutine
//   - persistence cycles: serialized by cycleMu, which also owns the snapshot
//
// INVARIANTS:
//   - keys never change after construction
//   - the snapshot advances exactly once per cycle, after the write attempt
//   - rehydration dispatches exactly one ActionRehydrated per engine
type Engine struct {
	driver Driver
	keys   []string
	cfg    config
	logger *slog.Logger
	stats  *stats

	attached atomic.Bool
	started  atomic.Bool
	store    store.Store
	storeSet chan struct{} // closed once store is assigned
	ready    chan struct{} // closed once rehydrated and subscribed

	mu          sync.Mutex
	unsubscribe func()
	stopped     bool

	cycleMu  sync.Mutex
	snapshot store.State
}

// New creates an engine persisting keys through driver.
//
// keys is copied; later changes to the caller's slice have no effect. In
// whole-store mode an empty keys list remembers every top-level slice.
func New(driver Driver, keys []string, opts ...Option) (*Engine, error) {
	if driver == nil || isNilInterface(driver) {
		return nil, ErrDriverRequired
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		driver:   driver,
		keys:     slices.Clone(keys),
		cfg:      cfg,
		logger:   cfg.logger.With("component", "remember", "prefix", cfg.prefix),
		stats:    newStats(cfg.metrics, cfg.prefix),
		storeSet: make(chan struct{}),
		ready:    make(chan struct{}),
		snapshot: store.State{},
	}
	return e, nil
}

// Enhancer returns a store enhancer that attaches e to the store it creates.
//
// Without an init action type, startup begins on a new goroutine as soon as
// the store exists. With one, the root reducer is wrapped so the first
// matching action schedules startup through the clock with zero delay;
// later matching actions do nothing.
//
// Panics if the enhancer is used to create a second store.
func (e *Engine) Enhancer() store.Enhancer {
	return func(next store.Creator) store.Creator {
		return func(reducer store.Reducer, preloaded store.State, enhancer store.Enhancer) store.Store {
			if !e.attached.CompareAndSwap(false, true) {
				panic("remember: engine is already attached to a store")
			}

			root := reducer
			if e.cfg.initActionType != "" {
				root = func(state store.State, action store.Action) store.State {
					if action.Type == e.cfg.initActionType && e.started.CompareAndSwap(false, true) {
						e.logger.Debug("init action seen, scheduling startup", "action", action.Type)
						e.cfg.clock.AfterFunc(0, e.initialize)
					}
					return reducer(state, action)
				}
			}

			s := next(root, preloaded, enhancer)
			e.store = s
			close(e.storeSet)

			if e.cfg.initActionType == "" {
				e.started.Store(true)
				go e.initialize()
			}
			return s
		}
	}
}

// Enhancer builds a fresh Engine for every store the returned enhancer
// creates.
//
// Panics if driver is nil or an option is invalid; these are programming
// errors detected at store construction.
func Enhancer(driver Driver, keys []string, opts ...Option) store.Enhancer {
	if driver == nil || isNilInterface(driver) {
		panic(ErrDriverRequired)
	}
	return func(next store.Creator) store.Creator {
		return func(reducer store.Reducer, preloaded store.State, enhancer store.Enhancer) store.Store {
			e, err := New(driver, keys, opts...)
			if err != nil {
				panic(err)
			}
			return e.Enhancer()(next)(reducer, preloaded, enhancer)
		}
	}
}

// Ready is closed after rehydration has been dispatched and the persistence
// cycle is subscribed.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Stop unsubscribes the persistence cycle. Cycles already scheduled by a
// timer become no-ops. Stop does not wait for a cycle in progress.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	e.stopped = true
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Metrics returns the set holding the engine counters.
func (e *Engine) Metrics() *metrics.Set {
	return e.stats.set
}

func (e *Engine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// initialize rehydrates, then subscribes the persistence cycle.
func (e *Engine) initialize() {
	<-e.storeSet
	e.logger.Debug("starting", "keys", e.keys, "whole_store", e.cfg.persistWholeStore)

	e.rehydrate(e.cfg.ctx)

	trigger := schedule.Throttle(e.cfg.clock, e.cycle, e.cfg.persistThrottle)
	if e.cfg.persistDebounce > 0 {
		trigger = schedule.Debounce(e.cfg.clock, e.cycle, e.cfg.persistDebounce)
	}
	unsubscribe := e.store.Subscribe(func() { trigger(struct{}{}) })

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		unsubscribe()
	} else {
		e.unsubscribe = unsubscribe
		e.mu.Unlock()
	}
	close(e.ready)
}

// cycle projects the remembered state, writes what changed, advances the
// snapshot, and dispatches ActionPersisted when the projection changed.
//
// The snapshot is advanced before dispatching so the cycle triggered by the
// persisted action diffs against fresh state.
func (e *Engine) cycle(struct{}) {
	if e.isStopped() {
		return
	}

	e.cycleMu.Lock()
	id := e.cfg.ids.Generate()
	next := e.project(e.store.GetState())
	prev := e.snapshot
	writes := e.persist(e.cfg.ctx, next, prev)
	changed := !equal.IsDeepEqual(next, prev)
	e.snapshot = next
	e.cycleMu.Unlock()

	e.stats.cycles.Inc()
	e.logger.Debug("persistence cycle", "cycle", id, "writes", writes, "changed", changed)

	if changed {
		e.store.Dispatch(store.Action{Type: ActionPersisted, Payload: next})
	}
}

// project selects the remembered keys out of source. In whole-store mode an
// empty key list selects everything.
func (e *Engine) project(source any) store.State {
	if e.cfg.persistWholeStore && len(e.keys) == 0 {
		return Pick(source, keysOf(source))
	}
	return Pick(source, e.keys)
}

func (e *Engine) report(err error) {
	if e.cfg.errorHandler != nil {
		e.cfg.errorHandler(err)
		return
	}
	e.logger.Warn("persistence failure", "error", err)
}

func isNilInterface(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
