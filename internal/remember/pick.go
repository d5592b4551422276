package remember

import (
	"reflect"

	"github.com/roach88/remember/internal/store"
)

// Pick returns a new State holding only the listed keys that exist in source.
//
// source may be a store.State, a map[string]any, or any map with a string key
// type. Anything else (including nil) yields an empty State. Keys missing
// from source are skipped, never set to nil.
func Pick(source any, keys []string) store.State {
	out := make(store.State, len(keys))

	switch src := source.(type) {
	case nil:
		return out
	case store.State:
		return pickMap(src, keys, out)
	case map[string]any:
		return pickMap(src, keys, out)
	}

	v := reflect.ValueOf(source)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String || v.IsNil() {
		return out
	}
	keyType := v.Type().Key()
	for _, k := range keys {
		mv := v.MapIndex(reflect.ValueOf(k).Convert(keyType))
		if mv.IsValid() {
			out[k] = mv.Interface()
		}
	}
	return out
}

// toState converts a string-keyed map into a State holding all of its
// entries. Anything else yields an empty State.
func toState(source any) store.State {
	switch src := source.(type) {
	case store.State:
		return src
	case map[string]any:
		return store.State(src)
	}
	return Pick(source, keysOf(source))
}

func keysOf(source any) []string {
	v := reflect.ValueOf(source)
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil
	}
	keys := make([]string, 0, v.Len())
	for _, k := range v.MapKeys() {
		keys = append(keys, k.String())
	}
	return keys
}

func pickMap(src map[string]any, keys []string, out store.State) store.State {
	for _, k := range keys {
		if v, ok := src[k]; ok {
			out[k] = v
		}
	}
	return out
}
