package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/remember/internal/driver/memory"
	"github.com/roach88/remember/internal/remember"
	"github.com/roach88/remember/internal/store"
	"github.com/roach88/remember/internal/testutil"
)

// DefaultReadyTimeout bounds how long Run waits for the engine to start.
const DefaultReadyTimeout = 5 * time.Second

// errInjected is returned by driver calls named in a scenario's fail list.
var errInjected = errors.New("injected failure")

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger       *slog.Logger
	readyTimeout time.Duration
}

// WithLogger routes engine logs to logger. Default: discarded.
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReadyTimeout overrides DefaultReadyTimeout. Non-positive values are
// ignored.
func WithReadyTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.readyTimeout = d
		}
	}
}

// Harness holds the per-run fixtures.
type Harness struct {
	scenario *Scenario
	clock    *testutil.FakeClock
	mem      *memory.Driver
	driver   *testutil.Recording
	engine   *remember.Engine
	store    store.Store
	trace    *recorder
	logger   *slog.Logger

	readyTimeout time.Duration
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh memory driver and fake clock. Execution flow:
//  1. Seed the driver and inject failures
//  2. Create the engine and the store it enhances
//  3. Wait for startup unless it is deferred to an init action
//  4. Execute flow steps
//  5. Stop the engine and evaluate assertions
//
// The returned error is for scenarios that cannot run at all; assertion
// failures are reported through Result.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	cfg := runConfig{
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		readyTimeout: DefaultReadyTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Harness{
		scenario: scenario,
		clock:    testutil.NewFakeClock(),
		mem:      memory.New(),
		trace:    &recorder{},
		logger:   cfg.logger,

		readyTimeout: cfg.readyTimeout,
	}
	h.mem.Seed(scenario.Driver)
	h.driver = testutil.NewRecording(h.mem)
	for _, f := range scenario.Fail {
		h.inject(f)
	}

	configOpts, err := scenario.Remember.Options()
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	engineOpts := append(configOpts,
		remember.WithClock(h.clock),
		remember.WithErrorHandler(h.onError),
		remember.WithLogger(h.logger),
		remember.WithCycleIDs(testutil.NewSequentialIDs("cycle")),
	)
	eng, err := remember.New(h.driver, scenario.Remember.Keys, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.engine = eng
	defer eng.Stop()

	var preloaded store.State
	if scenario.Preloaded != nil {
		preloaded = store.State(scenario.Preloaded).Clone()
	}
	h.store = store.Create(h.recordingReducer(remember.Reducer(MergeReducer)), preloaded, eng.Enhancer())

	if scenario.Remember.InitActionType == "" {
		if err := h.awaitReady(); err != nil {
			return nil, err
		}
	}

	if err := h.executeFlow(scenario.Flow); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}
	eng.Stop()

	result := h.collect()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) inject(f FailSpec) {
	switch {
	case f.Op == "get" && f.Panic:
		h.driver.PanicGet(f.Key, errInjected.Error())
	case f.Op == "get":
		h.driver.FailGet(f.Key, errInjected)
	case f.Panic:
		h.driver.PanicSet(f.Key, errInjected.Error())
	default:
		h.driver.FailSet(f.Key, errInjected)
	}
}

// executeFlow runs the flow steps in order.
func (h *Harness) executeFlow(flow []FlowStep) error {
	for i, step := range flow {
		switch {
		case step.Dispatch != "":
			h.store.Dispatch(store.Action{Type: step.Dispatch, Payload: step.Payload})
			h.logger.Debug("flow step dispatched", "step", i, "action", step.Dispatch)
		case step.Advance != nil:
			d := time.Duration(*step.Advance) * time.Millisecond
			h.clock.Advance(d)
			h.logger.Debug("flow step advanced clock", "step", i, "by", d)
		case step.Await == "ready":
			if err := h.awaitReady(); err != nil {
				return fmt.Errorf("flow step %d: %w", i, err)
			}
		case step.Heal:
			h.driver.Heal()
		default:
			return fmt.Errorf("flow step %d: empty step", i)
		}
	}
	return nil
}

func (h *Harness) awaitReady() error {
	select {
	case <-h.engine.Ready():
		return nil
	case <-time.After(h.readyTimeout):
		return fmt.Errorf("engine not ready after %s", h.readyTimeout)
	}
}

// recordingReducer traces every non-init action before reducing it.
func (h *Harness) recordingReducer(next store.Reducer) store.Reducer {
	return func(state store.State, action store.Action) store.State {
		if !store.IsInitAction(action.Type) {
			h.trace.add(TraceEvent{Type: EventAction, Action: action.Type, Payload: action.Payload})
		}
		return next(state, action)
	}
}

func (h *Harness) onError(err error) {
	ev := TraceEvent{Type: EventError, Kind: KindOther, Message: err.Error()}

	var pe *remember.PersistError
	var re *remember.RehydrateError
	switch {
	case errors.As(err, &pe):
		ev.Kind, ev.Key = KindPersist, pe.Key
	case errors.As(err, &re):
		ev.Kind, ev.Key = KindRehydrate, re.Key
	}
	h.trace.add(ev)
}

func (h *Harness) collect() *Result {
	result := NewResult()
	result.Trace = h.trace.snapshot()
	result.State = h.store.GetState().Clone()
	result.Driver = h.mem.Entries("")
	for _, call := range h.driver.Sets() {
		result.Writes[call.Key]++
	}
	return result
}

// MergeReducer merges object payloads into the root state.
//
// Actions whose type starts with "@@" (store and engine actions) and actions
// without an object payload leave state unchanged. A nil state becomes empty.
func MergeReducer(state store.State, action store.Action) store.State {
	if state == nil {
		state = store.State{}
	}
	if strings.HasPrefix(action.Type, "@@") {
		return state
	}
	switch p := action.Payload.(type) {
	case map[string]any:
		return state.Merge(p)
	case store.State:
		return state.Merge(p)
	default:
		return state
	}
}
