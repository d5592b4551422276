// Package remember persists a chosen subset of store state to a key-value
// driver and restores it when the store starts.
//
// # Lifecycle
//
// An Engine is installed as a store enhancer. Once its store exists the engine:
//
//  1. Rehydrates: reads the remembered keys from the driver, merges them over
//     the current state, and dispatches exactly one ActionRehydrated.
//  2. Subscribes a throttled (or debounced) persistence cycle to the store.
//
// Each persistence cycle projects the remembered keys out of the current
// state, writes only the keys whose value changed since the previous cycle,
// advances its snapshot, and dispatches ActionPersisted when anything changed.
//
// Startup is immediate (on its own goroutine, right after store creation) or
// deferred until the first action of a configured type is dispatched.
// Ready() is closed once rehydration has been dispatched and the persistence
// cycle is subscribed.
//
// # Storage layout
//
// Keyed mode writes one entry per remembered key under prefix+key. Whole-store
// mode writes a single entry under prefix+"rootState". Values are produced by
// the configured serializer, which receives the key being written.
//
// # Failure handling
//
// Driver, serializer and migration failures never propagate to the caller.
// They are wrapped in *RehydrateError or *PersistError and handed to the
// configured ErrorHandler; the store keeps running. A failed write is not
// retried: the snapshot still advances, and the key is written again on the
// next genuine change.
//
// # Concurrency
//
// Timers fire on their own goroutines, so persistence cycles are serialized
// by a mutex that also owns the snapshot. Keyed reads and writes within one
// cycle run in parallel. Reducer wrappers returned by Reducer guard their
// hidden state with their own mutex.
package remember
