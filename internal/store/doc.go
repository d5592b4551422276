// Package store is a minimal unidirectional-data-flow store.
//
// It exists to host the persistence engine in internal/remember and provides
// exactly the contract the engine consumes:
//
//   - GetState() returns the current top-level state
//   - Dispatch(action) runs the root reducer and notifies listeners
//   - Subscribe(listener) registers a change listener
//   - Create(reducer, preloaded, enhancer) builds a store, optionally through
//     an enhancer that wraps store creation
//
// # State Shape
//
// State is a map from slice name to slice value. Slice values are arbitrary Go
// values; reducers own them and must treat them as immutable (return a new
// value instead of mutating in place) so change detection stays correct.
//
// # Concurrency
//
// Timers and background initialization run on their own goroutines, so the
// store is safe for concurrent use. Reducers run under the store lock and
// MUST NOT dispatch. Listeners run outside the lock and may dispatch.
package store
