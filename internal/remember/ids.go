package remember

import "github.com/google/uuid"

// UUIDv7Generator generates time-sortable UUIDv7 cycle IDs, so log lines from
// consecutive cycles sort by start time.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
