// Package memory is an in-process storage driver backed by a concurrent map.
//
// It is the default driver for tests and scenario runs. Values are copied on
// the way in and out so callers cannot alias stored bytes.
package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Driver stores entries in an xsync.MapOf.
//
// Thread-safety: safe for concurrent use without external locking.
type Driver struct {
	data *xsync.MapOf[string, []byte]
}

// New creates an empty driver.
func New() *Driver {
	return &Driver{data: xsync.NewMapOf[string, []byte]()}
}

// GetItem returns the stored value for key. ok is false when absent.
func (d *Driver) GetItem(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := d.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// SetItem stores value under key, replacing any previous value.
func (d *Driver) SetItem(_ context.Context, key string, value []byte) error {
	d.data.Store(key, slices.Clone(value))
	return nil
}

// Seed stores string values directly. Used to pre-populate scenarios.
func (d *Driver) Seed(entries map[string]string) {
	for k, v := range entries {
		d.data.Store(k, []byte(v))
	}
}

// Entries returns a copy of every entry whose key starts with prefix.
func (d *Driver) Entries(prefix string) map[string]string {
	out := make(map[string]string)
	d.data.Range(func(k string, v []byte) bool {
		if strings.HasPrefix(k, prefix) {
			out[k] = string(v)
		}
		return true
	})
	return out
}

// Len returns the number of stored entries.
func (d *Driver) Len() int {
	return d.data.Size()
}
