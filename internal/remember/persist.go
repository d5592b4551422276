package remember

import (
	"context"
	"sync"

	"github.com/roach88/remember/internal/equal"
	"github.com/roach88/remember/internal/store"
)

// saveKey serializes and writes one entry. Failures come back as *PersistError.
func (e *Engine) saveKey(ctx context.Context, key string, value any) error {
	err := guard(func() error {
		data, err := e.cfg.serialize(value, key)
		if err != nil {
			return err
		}
		return e.driver.SetItem(ctx, e.cfg.prefix+key, data)
	})
	if err != nil {
		return &PersistError{Key: key, Err: err}
	}
	return nil
}

// saveAllKeyed writes, in parallel, every key of state whose value differs
// from old. Keys absent from old always count as changed. It returns the
// number of attempted writes and every failure in key order.
func (e *Engine) saveAllKeyed(ctx context.Context, state, old store.State) (int, []error) {
	var changed []string
	for _, key := range e.keys {
		v, ok := state[key]
		if !ok {
			continue
		}
		if prev, had := old[key]; had && equal.IsDeepEqual(v, prev) {
			continue
		}
		changed = append(changed, key)
	}

	errs := make([]error, len(changed))
	var wg sync.WaitGroup
	for i, key := range changed {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = e.saveKey(ctx, key, state[key])
		}()
	}
	wg.Wait()

	return len(changed), compact(errs)
}

// saveAll writes the whole projection as one entry when it differs from old.
func (e *Engine) saveAll(ctx context.Context, state, old store.State) (int, []error) {
	if equal.IsDeepEqual(state, old) {
		return 0, nil
	}
	if err := e.saveKey(ctx, RootStateKey, state); err != nil {
		return 1, []error{err}
	}
	return 1, nil
}

// persist writes the changed parts of state and reports every failure to the
// error handler. It returns the number of attempted writes.
func (e *Engine) persist(ctx context.Context, state, old store.State) int {
	save := e.saveAllKeyed
	if e.cfg.persistWholeStore {
		save = e.saveAll
	}

	writes, errs := save(ctx, state, old)
	e.stats.writes.Add(writes)
	for _, err := range errs {
		e.stats.persistErrors.Inc()
		e.report(err)
	}
	return writes
}

func compact(errs []error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
