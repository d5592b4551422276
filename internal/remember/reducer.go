package remember

import (
	"sync"

	"github.com/roach88/remember/internal/store"
)

// Reducer wraps a root reducer so ActionRehydrated is folded into state.
//
// The wrapper keeps a hidden copy of the last known full state:
//   - on a store init action it records the incoming state, then delegates
//   - on ActionRehydrated it merges the hidden state with the payload, runs
//     the wrapped reducer with {ActionRehydrated, merged}, records and
//     returns the result
//   - every other action is delegated unchanged
//
// A nil incoming state is replaced by the hidden state.
func Reducer(reducer store.Reducer) store.Reducer {
	w := &rememberReducer{reducer: reducer, last: store.State{}}
	return w.reduce
}

// ReducerMap combines slice reducers with store.CombineReducers and wraps the
// result with Reducer.
func ReducerMap(reducers map[string]store.SliceReducer) store.Reducer {
	return Reducer(store.CombineReducers(reducers))
}

type rememberReducer struct {
	reducer store.Reducer

	mu   sync.Mutex
	last store.State
}

func (r *rememberReducer) reduce(state store.State, action store.Action) store.State {
	if state == nil {
		state = r.lastState()
	}

	if store.IsInitAction(action.Type) {
		r.setLast(state.Clone())
	}

	if action.Type != ActionRehydrated {
		return r.reducer(state, action)
	}

	merged := r.lastState().Merge(toState(action.Payload))
	next := r.reducer(merged, store.Action{Type: ActionRehydrated, Payload: merged})
	r.setLast(next)
	return next
}

func (r *rememberReducer) lastState() store.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *rememberReducer) setLast(s store.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = s
}
