package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/remember/internal/driver/gormkv"
	"github.com/roach88/remember/internal/driver/sqlite"
	"github.com/roach88/remember/internal/remember"
)

// Storage drivers selectable with --driver.
const (
	DriverSQLite = "sqlite"
	DriverGorm   = "gorm"
)

// ValidDrivers lists the accepted --driver values.
var ValidDrivers = []string{DriverSQLite, DriverGorm}

// backend is a storage driver the CLI can also list and close.
type backend interface {
	remember.Driver
	list(ctx context.Context, prefix string) ([]InspectEntry, error)
	Close() error
}

// openBackend opens the database at path with the named driver. An empty
// name selects SQLite.
func openBackend(name, path string) (backend, error) {
	if name == "" {
		name = DriverSQLite
	}

	switch name {
	case DriverSQLite:
		d, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return sqliteBackend{d}, nil
	case DriverGorm:
		d, err := gormkv.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return gormBackend{d}, nil
	default:
		return nil, fmt.Errorf("unknown driver: %s (supported: sqlite, gorm)", name)
	}
}

func addBackendFlags(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "path to the database file (required)")
	cmd.Flags().String("driver", DriverSQLite, "storage driver (sqlite, gorm)")
}

type sqliteBackend struct {
	*sqlite.Driver
}

func (b sqliteBackend) list(ctx context.Context, prefix string) ([]InspectEntry, error) {
	entries, err := b.Entries(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]InspectEntry, len(entries))
	for i, e := range entries {
		out[i] = InspectEntry{Key: e.Key, Value: string(e.Value), Revision: e.Revision}
	}
	return out, nil
}

type gormBackend struct {
	*gormkv.Driver
}

func (b gormBackend) list(ctx context.Context, prefix string) ([]InspectEntry, error) {
	entries, err := b.Entries(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]InspectEntry, len(entries))
	for i, e := range entries {
		out[i] = InspectEntry{Key: e.Key, Value: string(e.Value), Revision: e.Revision}
	}
	return out, nil
}
