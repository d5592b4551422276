package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/remember/internal/codec"
	"github.com/roach88/remember/internal/store"
)

// Snapshot captures everything observable about a scenario run.
// It serializes to canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Trace        []TraceEvent      `json:"trace"`
	State        store.State       `json:"state"`
	Driver       map[string]string `json:"driver"`
	Writes       map[string]int    `json:"writes"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		State:        result.State,
		Driver:       result.Driver,
		Writes:       result.Writes,
	}
}

// toCanonicalMap converts the snapshot to generic values. Payloads and state
// are already generic; the typed maps are converted here.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Action != "" {
			eventMap["action"] = event.Action
		}
		if event.Payload != nil {
			eventMap["payload"] = generic(event.Payload)
		}
		if event.Kind != "" {
			eventMap["kind"] = event.Kind
		}
		if event.Key != "" {
			eventMap["key"] = event.Key
		}
		if event.Message != "" {
			eventMap["message"] = event.Message
		}
		traceList[i] = eventMap
	}

	driver := make(map[string]any, len(s.Driver))
	for k, v := range s.Driver {
		driver[k] = v
	}
	writes := make(map[string]any, len(s.Writes))
	for k, v := range s.Writes {
		writes[k] = v
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"state":         generic(s.State),
		"driver":        driver,
		"writes":        writes,
	}
}

func generic(v any) any {
	if st, ok := v.(store.State); ok {
		return map[string]any(st)
	}
	return v
}

// MarshalCanonical serializes the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return codec.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(name, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
