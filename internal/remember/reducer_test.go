package remember

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remember/internal/store"
)

// recordingRoot records the state and action it receives and echoes the state.
type recordingRoot struct {
	states  []store.State
	actions []store.Action
}

func (r *recordingRoot) reduce(state store.State, action store.Action) store.State {
	r.states = append(r.states, state)
	r.actions = append(r.actions, action)
	if state == nil {
		return store.State{}
	}
	return state
}

func TestReducer_OtherActionsDelegate(t *testing.T) {
	root := &recordingRoot{}
	reducer := Reducer(root.reduce)

	in := store.State{"a": 1}
	out := reducer(in, store.Action{Type: "OTHER"})

	assert.Equal(t, in, out)
	require.Len(t, root.actions, 1)
	assert.Equal(t, "OTHER", root.actions[0].Type)
}

func TestReducer_RehydratedMergesIntoLastKnownState(t *testing.T) {
	root := &recordingRoot{}
	reducer := Reducer(root.reduce)

	reducer(store.State{"a": 1, "b": 2}, store.Action{Type: store.ActionInitPrefix + ".xyz"})
	out := reducer(store.State{"ignored": true}, store.Action{
		Type:    ActionRehydrated,
		Payload: store.State{"b": 20, "c": 30},
	})

	expected := store.State{"a": 1, "b": 20, "c": 30}
	assert.Equal(t, expected, out)

	last := root.actions[len(root.actions)-1]
	assert.Equal(t, ActionRehydrated, last.Type)
	assert.Equal(t, expected, last.Payload, "wrapped reducer sees the merged state as payload")
}

func TestReducer_LegacyInitAction(t *testing.T) {
	root := &recordingRoot{}
	reducer := Reducer(root.reduce)

	reducer(store.State{"a": 1}, store.Action{Type: "@@INIT"})
	out := reducer(nil, store.Action{Type: ActionRehydrated, Payload: map[string]any{"b": 2}})

	assert.Equal(t, store.State{"a": 1, "b": 2}, out)
}

func TestReducer_NilPayload(t *testing.T) {
	root := &recordingRoot{}
	reducer := Reducer(root.reduce)

	reducer(store.State{"a": 1}, store.Action{Type: store.ActionInitPrefix})
	out := reducer(nil, store.Action{Type: ActionRehydrated})

	assert.Equal(t, store.State{"a": 1}, out)
}

func TestReducer_NilStateUsesLastKnownState(t *testing.T) {
	root := &recordingRoot{}
	reducer := Reducer(root.reduce)

	reducer(nil, store.Action{Type: "FIRST"})
	assert.Equal(t, store.State{}, root.states[0], "hidden state starts empty")

	reducer(nil, store.Action{Type: ActionRehydrated, Payload: store.State{"a": 1}})
	reducer(nil, store.Action{Type: "NEXT"})
	assert.Equal(t, store.State{"a": 1}, root.states[len(root.states)-1])
}

func TestReducerMap_WithStore(t *testing.T) {
	s := store.Create(ReducerMap(testReducers()), store.State{"counter": 3.0}, nil)
	assert.Equal(t, store.State{"counter": 3.0, "other": "x"}, s.GetState())

	s.Dispatch(store.Action{Type: ActionRehydrated, Payload: store.State{"other": "restored", "extra": 1}})
	assert.Equal(t, store.State{"counter": 3.0, "other": "restored"}, s.GetState(),
		"slices without a reducer are dropped by the combined reducer")
}
