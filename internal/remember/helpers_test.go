package remember

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/remember/internal/driver/memory"
	"github.com/roach88/remember/internal/store"
	"github.com/roach88/remember/internal/testutil"
)

// actionLog records every action reaching the root reducer.
type actionLog struct {
	mu      sync.Mutex
	actions []store.Action
}

func (l *actionLog) add(a store.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions = append(l.actions, a)
}

func (l *actionLog) ofType(actionType string) []store.Action {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []store.Action
	for _, a := range l.actions {
		if a.Type == actionType {
			out = append(out, a)
		}
	}
	return out
}

// errorSink collects errors passed to the error handler.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) handle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// counterReducer keeps a float64 (the type JSON decodes numbers to) and sets
// it from SET actions.
func counterReducer(state any, action store.Action) any {
	if action.Type == "SET" {
		return action.Payload
	}
	if state == nil {
		return 0.0
	}
	return state
}

func otherReducer(state any, action store.Action) any {
	if action.Type == "SET_OTHER" {
		return action.Payload
	}
	if state == nil {
		return "x"
	}
	return state
}

func testReducers() map[string]store.SliceReducer {
	return map[string]store.SliceReducer{
		"counter": counterReducer,
		"other":   otherReducer,
	}
}

type fixture struct {
	t      *testing.T
	clock  *testutil.FakeClock
	mem    *memory.Driver
	driver *testutil.Recording
	errs   *errorSink
	log    *actionLog
	engine *Engine
	store  store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := memory.New()
	return &fixture{
		t:      t,
		clock:  testutil.NewFakeClock(),
		mem:    mem,
		driver: testutil.NewRecording(mem),
		errs:   &errorSink{},
		log:    &actionLog{},
	}
}

// start builds the engine and store. It does not wait for startup.
func (f *fixture) start(keys []string, preloaded store.State, opts ...Option) *fixture {
	f.t.Helper()

	all := append([]Option{
		WithClock(f.clock),
		WithErrorHandler(f.errs.handle),
		WithCycleIDs(testutil.NewSequentialIDs("")),
	}, opts...)

	e, err := New(f.driver, keys, all...)
	require.NoError(f.t, err)
	f.engine = e

	root := ReducerMap(testReducers())
	logged := func(state store.State, action store.Action) store.State {
		f.log.add(action)
		return root(state, action)
	}
	f.store = store.Create(logged, preloaded, e.Enhancer())
	return f
}

func (f *fixture) waitReady() {
	f.t.Helper()
	select {
	case <-f.engine.Ready():
	case <-time.After(5 * time.Second):
		f.t.Fatal("engine did not become ready")
	}
}

func (f *fixture) isReady() bool {
	select {
	case <-f.engine.Ready():
		return true
	default:
		return false
	}
}

func (f *fixture) dispatch(actionType string, payload any) {
	f.store.Dispatch(store.Action{Type: actionType, Payload: payload})
}
