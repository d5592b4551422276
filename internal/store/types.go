package store

import "strings"

// ActionInitPrefix prefixes the action dispatched when a store is created.
// The full type carries a random suffix so reducers cannot special-case it.
const ActionInitPrefix = "@@redux/INIT"

// actionLegacyInit is the init type used by older store implementations.
const actionLegacyInit = "@@INIT"

// State maps top-level slice names to slice values.
type State map[string]any

// Clone returns a shallow copy. Slice values are shared.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Merge returns a new State holding every key of s overlaid with every key of
// over. Keys in over win on conflict; keys only in s are kept.
func (s State) Merge(over State) State {
	out := make(State, len(s)+len(over))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// Action is a dispatched event. Type identifies it; Payload is optional.
type Action struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Reducer computes the next root state from the current state and an action.
type Reducer func(state State, action Action) State

// SliceReducer computes the next value of a single slice. It receives nil
// when the slice does not exist yet and should return its default.
type SliceReducer func(state any, action Action) any

// Listener is notified after every dispatch.
type Listener func()

// Store is the contract the persistence engine consumes.
type Store interface {
	// GetState returns the current state. Callers must not mutate it.
	GetState() State
	// Dispatch runs the reducer with action and notifies listeners.
	Dispatch(action Action) Action
	// Subscribe registers listener and returns a function that removes it.
	Subscribe(listener Listener) (unsubscribe func())
}

// Creator builds a store from a root reducer, optional preloaded state, and
// optional enhancer.
type Creator func(reducer Reducer, preloaded State, enhancer Enhancer) Store

// Enhancer wraps a Creator to add behaviour at store-creation time.
type Enhancer func(next Creator) Creator

// IsInitAction reports whether actionType is a store-initialization action.
func IsInitAction(actionType string) bool {
	return actionType == actionLegacyInit || strings.HasPrefix(actionType, ActionInitPrefix)
}
