package harness

import (
	"sync"

	"github.com/roach88/remember/internal/store"
)

// Trace event types.
const (
	EventAction = "action"
	EventError  = "error"
)

// TraceEvent is one dispatched action or one reported error.
type TraceEvent struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"` // EventAction or EventError

	Action  string `json:"action,omitempty"`
	Payload any    `json:"payload,omitempty"`

	Kind    string `json:"kind,omitempty"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace lists dispatched actions and reported errors in order.
	// Store init actions are not recorded.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// State is the final store state.
	State store.State `json:"state"`

	// Driver is the final storage contents.
	Driver map[string]string `json:"driver"`

	// Writes counts write attempts per storage key, failed ones included.
	Writes map[string]int `json:"writes"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  store.State{},
		Driver: map[string]string{},
		Writes: map[string]int{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// recorder collects trace events from the reducer and the error handler,
// which may run on different goroutines.
type recorder struct {
	mu     sync.Mutex
	seq    int64
	events []TraceEvent
}

func (r *recorder) add(ev TraceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ev.Seq = r.seq
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out
}
