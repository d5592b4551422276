package remember

import (
	"context"
	"time"

	"github.com/roach88/remember/internal/store"
)

// Action types dispatched by the engine. Other code may observe them.
const (
	ActionRehydrated = "@@REMEMBER_REHYDRATED"
	ActionPersisted  = "@@REMEMBER_PERSISTED"
)

const (
	// DefaultPrefix namespaces every storage key the engine writes.
	DefaultPrefix = "@@remember-"

	// RootStateKey names the single entry used in whole-store mode.
	RootStateKey = "rootState"

	// DefaultPersistThrottle bounds how often persistence cycles run.
	DefaultPersistThrottle = 100 * time.Millisecond
)

// Driver is the storage backend.
//
// GetItem reports ok=false for absent keys; that is not an error. Both methods
// may block and may be called concurrently for different keys.
type Driver interface {
	GetItem(ctx context.Context, key string) (value []byte, ok bool, err error)
	SetItem(ctx context.Context, key string, value []byte) error
}

// SerializeFunc encodes a value for storage. key is the remembered key, or
// RootStateKey in whole-store mode.
type SerializeFunc func(value any, key string) ([]byte, error)

// UnserializeFunc decodes a stored value. key is as for SerializeFunc.
type UnserializeFunc func(data []byte, key string) (any, error)

// MigrateFunc transforms rehydrated state before it is dispatched.
type MigrateFunc func(state store.State) (store.State, error)

// ErrorHandler receives every *PersistError and *RehydrateError.
type ErrorHandler func(err error)

// IDGenerator produces correlation IDs for persistence cycles.
// Implemented by UUIDv7Generator (production) and testutil.SequentialIDs (tests).
type IDGenerator interface {
	Generate() string
}
