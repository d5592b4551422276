package remember

import (
	"context"
	"sync"

	"github.com/roach88/remember/internal/store"
)

type loadResult struct {
	value any
	ok    bool
	err   error
}

// loadKey reads and decodes one entry. Failures come back as *RehydrateError.
func (e *Engine) loadKey(ctx context.Context, key, storageKey string) loadResult {
	var r loadResult
	err := guard(func() error {
		data, ok, err := e.driver.GetItem(ctx, storageKey)
		if err != nil || !ok {
			return err
		}
		v, err := e.cfg.unserialize(data, key)
		if err != nil {
			return err
		}
		r.value, r.ok = v, true
		return nil
	})
	if err != nil {
		return loadResult{err: &RehydrateError{Key: key, Err: err}}
	}
	return r
}

// loadAllKeyed reads every remembered key in parallel and assembles the
// result in key order. Absent keys are omitted. The first failure in key
// order is returned.
func (e *Engine) loadAllKeyed(ctx context.Context) (store.State, error) {
	results := make([]loadResult, len(e.keys))

	var wg sync.WaitGroup
	for i, key := range e.keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = e.loadKey(ctx, key, e.cfg.prefix+key)
		}()
	}
	wg.Wait()

	out := make(store.State, len(e.keys))
	for i, key := range e.keys {
		r := results[i]
		if r.err != nil {
			return nil, r.err
		}
		if r.ok {
			out[key] = r.value
		}
	}
	return out, nil
}

// loadAll reads the single whole-store entry and projects the remembered keys
// out of it.
func (e *Engine) loadAll(ctx context.Context) (store.State, error) {
	r := e.loadKey(ctx, RootStateKey, e.cfg.prefix+RootStateKey)
	if r.err != nil {
		return nil, r.err
	}
	if !r.ok {
		return store.State{}, nil
	}
	return e.project(r.value), nil
}

// rehydrate merges persisted data over the current state and dispatches
// exactly one ActionRehydrated. A load failure dispatches the state captured
// before loading. A migrate failure dispatches the unmigrated merge, so the
// loaded values stay in the snapshot and are not overwritten by defaults.
func (e *Engine) rehydrate(ctx context.Context) {
	payload := e.store.GetState()

	load := e.loadAllKeyed
	if e.cfg.persistWholeStore {
		load = e.loadAll
	}

	loaded, err := load(ctx)
	if err == nil {
		payload = payload.Merge(loaded)
		if e.cfg.migrate != nil {
			var migrated store.State
			if migrated, err = e.runMigrate(payload); err == nil {
				payload = migrated
			}
		}
		e.logger.Debug("rehydrated", "keys", len(loaded), "prefix", e.cfg.prefix)
	}
	if err != nil {
		e.stats.rehydrateErrors.Inc()
		e.report(err)
	}

	e.stats.rehydrations.Inc()
	e.store.Dispatch(store.Action{Type: ActionRehydrated, Payload: payload})
}

func (e *Engine) runMigrate(state store.State) (store.State, error) {
	var out store.State
	err := guard(func() error {
		var err error
		out, err = e.cfg.migrate(state)
		return err
	})
	if err != nil {
		return nil, &RehydrateError{Err: err}
	}
	return out, nil
}
