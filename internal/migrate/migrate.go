// Package migrate upgrades rehydrated state through a chain of versioned
// migrators.
//
// State carries its schema version under VersionKey. A migrator registered
// for version X (named "from_X") transforms state at version X and must set
// VersionKey to the next version. The walk applies migrators until the
// latest version is reached and fails fast when the chain is broken:
//
//   - no migrator for the current version (MIGRATOR_NOT_FOUND)
//   - a migrator that leaves the version unchanged (VERSION_NOT_UPDATED)
//   - a migrator that returns to an already visited version (CIRCULAR_MIGRATION)
//
// Wire the result into the engine with remember.WithMigrate and remember
// VersionKey alongside the other keys so the version is persisted.
package migrate

import (
	"github.com/roach88/remember/internal/remember"
	"github.com/roach88/remember/internal/store"
)

// VersionKey is the state slice holding the schema version.
const VersionKey = "_remigrateVersion"

// Migrator upgrades state from one version to the next. It must return a new
// State with VersionKey advanced.
type Migrator func(state store.State) store.State

// Config describes a migration chain.
type Config struct {
	// FirstVersion is assumed when state carries no version.
	FirstVersion string

	// LatestVersion ends the walk.
	LatestVersion string

	// Migrators maps "from_<version>" names to migrators.
	Migrators map[string]Migrator
}

// MigratorName returns the registry name of the migrator for version.
func MigratorName(version string) string {
	return "from_" + version
}

// VersionReducer keeps the version slice. It never changes it; migrators do.
func VersionReducer(state any, _ store.Action) any {
	if v, ok := state.(string); ok {
		return v
	}
	return ""
}

// Version returns the version recorded in state, or "" when absent.
func Version(state store.State) string {
	v, _ := state[VersionKey].(string)
	return v
}

// New returns a MigrateFunc applying the chain described by cfg.
func New(cfg Config) remember.MigrateFunc {
	migrators := make(map[string]Migrator, len(cfg.Migrators))
	for name, m := range cfg.Migrators {
		migrators[name] = m
	}

	return func(state store.State) (store.State, error) {
		version := Version(state)
		if version == "" {
			version = cfg.FirstVersion
		}

		visited := newVersionSet()
		for version != cfg.LatestVersion {
			if visited.seen(version) {
				return nil, newCircularError(version)
			}
			visited.add(version)

			migrator, ok := migrators[MigratorName(version)]
			if !ok || migrator == nil {
				return nil, newNotFoundError(version)
			}

			state = migrator(state)

			next := Version(state)
			if next == version {
				return nil, newNotUpdatedError(version)
			}
			version = next
		}
		return state, nil
	}
}
