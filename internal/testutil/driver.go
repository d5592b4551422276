package testutil

import (
	"context"
	"sync"
)

// Driver mirrors remember.Driver so this package does not import the engine.
type Driver interface {
	GetItem(ctx context.Context, key string) ([]byte, bool, error)
	SetItem(ctx context.Context, key string, value []byte) error
}

// Op names a recorded driver call.
type Op string

const (
	OpGet Op = "get"
	OpSet Op = "set"
)

// Call is one recorded driver call.
type Call struct {
	Op    Op
	Key   string
	Value string // written value for OpSet
}

// failure is an injected outcome for (op, key).
type failure struct {
	err   error
	panic any
}

// Recording wraps a Driver, records every call in order, and can be told to
// fail or panic on specific keys.
//
// Thread-safety: safe for concurrent use; the engine issues keyed reads and
// writes from parallel goroutines.
type Recording struct {
	inner Driver

	mu       sync.Mutex
	calls    []Call
	failures map[Op]map[string]failure
}

// NewRecording wraps inner.
func NewRecording(inner Driver) *Recording {
	return &Recording{
		inner:    inner,
		failures: map[Op]map[string]failure{OpGet: {}, OpSet: {}},
	}
}

// FailGet makes every read of key return err.
func (r *Recording) FailGet(key string, err error) {
	r.setFailure(OpGet, key, failure{err: err})
}

// FailSet makes every write of key return err.
func (r *Recording) FailSet(key string, err error) {
	r.setFailure(OpSet, key, failure{err: err})
}

// PanicGet makes every read of key panic with value.
func (r *Recording) PanicGet(key string, value any) {
	r.setFailure(OpGet, key, failure{panic: value})
}

// PanicSet makes every write of key panic with value.
func (r *Recording) PanicSet(key string, value any) {
	r.setFailure(OpSet, key, failure{panic: value})
}

// Heal removes every injected failure.
func (r *Recording) Heal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = map[Op]map[string]failure{OpGet: {}, OpSet: {}}
}

func (r *Recording) setFailure(op Op, key string, f failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op][key] = f
}

func (r *Recording) record(c Call) (failure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	f, ok := r.failures[c.Op][c.Key]
	return f, ok
}

func (r *Recording) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	if f, ok := r.record(Call{Op: OpGet, Key: key}); ok {
		if f.panic != nil {
			panic(f.panic)
		}
		return nil, false, f.err
	}
	return r.inner.GetItem(ctx, key)
}

func (r *Recording) SetItem(ctx context.Context, key string, value []byte) error {
	if f, ok := r.record(Call{Op: OpSet, Key: key, Value: string(value)}); ok {
		if f.panic != nil {
			panic(f.panic)
		}
		return f.err
	}
	return r.inner.SetItem(ctx, key, value)
}

// Calls returns a copy of every recorded call.
func (r *Recording) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Sets returns recorded writes only.
func (r *Recording) Sets() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == OpSet {
			out = append(out, c)
		}
	}
	return out
}

// Gets returns recorded reads only.
func (r *Recording) Gets() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == OpGet {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears the recorded calls, keeping injected failures.
func (r *Recording) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
