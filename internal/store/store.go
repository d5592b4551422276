package store

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// memStore is the default Store implementation.
//
// Thread-safety model:
//   - Dispatch(): reducer runs under mu; listeners run after mu is released
//   - GetState(): safe from any goroutine
//   - Subscribe(): safe from any goroutine, including from inside a listener
type memStore struct {
	mu        sync.Mutex
	reducer   Reducer
	state     State
	listeners []subscription
	nextID    uint64
}

type subscription struct {
	id       uint64
	listener Listener
}

// Create builds a store.
//
// When enhancer is non-nil, store creation is delegated to enhancer(Create) so
// the enhancer can wrap the reducer or the resulting store. Otherwise the store
// is built and an init action (ActionInitPrefix plus a random suffix) is
// dispatched so reducers can populate their defaults.
//
// Panics if reducer is nil.
func Create(reducer Reducer, preloaded State, enhancer Enhancer) Store {
	if enhancer != nil {
		return enhancer(Create)(reducer, preloaded, nil)
	}
	if reducer == nil {
		panic("store: reducer is required")
	}

	s := &memStore{
		reducer: reducer,
		state:   preloaded,
	}
	s.Dispatch(Action{Type: ActionInitPrefix + "." + uuid.NewString()})
	return s
}

func (s *memStore) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the reducer and notifies a snapshot of the listeners taken
// after the reducer ran. Listeners added during notification are not called
// for this dispatch.
//
// Panics if action.Type is empty.
func (s *memStore) Dispatch(action Action) Action {
	if action.Type == "" {
		panic("store: action type is required")
	}

	s.mu.Lock()
	s.state = s.reducer(s.state, action)
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, sub := range listeners {
		sub.listener()
	}
	return action
}

func (s *memStore) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, listener: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
				return sub.id == id
			})
		})
	}
}

// CombineReducers turns a map of slice reducers into a root reducer.
//
// Each slice reducer receives its own slice (nil when absent). Keys without a
// slice reducer are dropped from the resulting state. Slice reducers run in
// sorted key order so side effects inside them are deterministic.
func CombineReducers(reducers map[string]SliceReducer) Reducer {
	keys := make([]string, 0, len(reducers))
	for k, r := range reducers {
		if r == nil {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return func(state State, action Action) State {
		next := make(State, len(keys))
		for _, k := range keys {
			next[k] = reducers[k](state[k], action)
		}
		return next
	}
}
