package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remember/internal/remember"
	"github.com/roach88/remember/internal/store"
)

var _ remember.Driver = (*Driver)(nil)

func openTestDriver(t *testing.T) *Driver {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// =============================================================================
// Open
// =============================================================================

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	d1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d1.SetItem(ctx, "k", []byte("v")))
	require.NoError(t, d1.Close())

	for range 3 {
		d, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, d.Close())
	}

	d2, err := Open(path)
	require.NoError(t, err)
	defer d2.Close()

	got, ok, err := d2.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestOpen_Pragmas(t *testing.T) {
	d := openTestDriver(t)

	assert.NoError(t, d.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, d.verifyPragma("synchronous", "1"))
	assert.NoError(t, d.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, d.verifyPragma("user_version", "1"))
}

func TestOpen_MigratesV0Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE kv (key TEXT PRIMARY KEY NOT NULL, value BLOB NOT NULL)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO kv (key, value) VALUES ('old', 'x')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	d, err := Open(path)
	require.NoError(t, err)
	defer d.Close()

	entries, err := d.Entries(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].Revision)

	require.NoError(t, d.SetItem(context.Background(), "old", []byte("y")))
	entries, err = d.Entries(context.Background(), "old")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entries[0].Revision)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_ZeroValue(t *testing.T) {
	assert.NoError(t, (&Driver{}).Close())
}

// =============================================================================
// GetItem / SetItem
// =============================================================================

func TestGetItem_Absent(t *testing.T) {
	d := openTestDriver(t)

	got, ok, err := d.GetItem(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSetItem_Upserts(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.SetItem(ctx, "a", []byte(`1`)))
	require.NoError(t, d.SetItem(ctx, "a", []byte(`2`)))

	got, ok, err := d.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`2`), got)

	entries, err := d.Entries(ctx, "a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].Revision)
}

func TestSetItem_EmptyValue(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.SetItem(ctx, "empty", nil))

	got, ok, err := d.GetItem(ctx, "empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{}, got)
}

func TestSetItem_Concurrent(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.SetItem(ctx, "shared", []byte{byte(i)}))
		}()
	}
	wg.Wait()

	entries, err := d.Entries(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(20), entries[0].Revision)
}

func TestGetItem_CanceledContext(t *testing.T) {
	d := openTestDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := d.GetItem(ctx, "a")
	assert.Error(t, err)
}

// =============================================================================
// Entries
// =============================================================================

func TestEntries_FiltersByPrefixInKeyOrder(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	for _, k := range []string{"@@remember-b", "other", "@@remember-a", "@@remember_x"} {
		require.NoError(t, d.SetItem(ctx, k, []byte(k)))
	}

	entries, err := d.Entries(ctx, "@@remember-")
	require.NoError(t, err)

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"@@remember-a", "@@remember-b"}, keys)
}

func TestEntries_LiteralWildcards(t *testing.T) {
	d := openTestDriver(t)
	ctx := context.Background()

	require.NoError(t, d.SetItem(ctx, "a%b", []byte("1")))
	require.NoError(t, d.SetItem(ctx, "axb", []byte("2")))

	entries, err := d.Entries(ctx, "a%")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a%b", entries[0].Key)
}

func TestEntries_EmptyNotNil(t *testing.T) {
	d := openTestDriver(t)

	entries, err := d.Entries(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

// =============================================================================
// Engine integration
// =============================================================================

func TestDriver_PersistsAcrossEngines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	reducers := map[string]store.SliceReducer{
		"counter": func(state any, action store.Action) any {
			if action.Type == "SET" {
				return action.Payload
			}
			if state == nil {
				return 0.0
			}
			return state
		},
	}

	d1, err := Open(path)
	require.NoError(t, err)

	e1, err := remember.New(d1, []string{"counter"}, remember.WithPersistThrottle(0))
	require.NoError(t, err)
	s1 := store.Create(remember.ReducerMap(reducers), nil, e1.Enhancer())
	<-e1.Ready()

	s1.Dispatch(store.Action{Type: "SET", Payload: 7.0})
	require.Eventually(t, func() bool {
		raw, ok, err := d1.GetItem(context.Background(), remember.DefaultPrefix+"counter")
		return err == nil && ok && string(raw) == "7"
	}, 5*time.Second, 10*time.Millisecond)
	e1.Stop()
	require.NoError(t, d1.Close())

	d2, err := Open(path)
	require.NoError(t, err)
	defer d2.Close()

	raw, ok, err := d2.GetItem(context.Background(), remember.DefaultPrefix+"counter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "7", string(raw))

	e2, err := remember.New(d2, []string{"counter"})
	require.NoError(t, err)
	s2 := store.Create(remember.ReducerMap(reducers), nil, e2.Enhancer())
	<-e2.Ready()
	defer e2.Stop()

	assert.Equal(t, 7.0, s2.GetState()["counter"])
}
