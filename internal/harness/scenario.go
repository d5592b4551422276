package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/remember/internal/config"
)

// Scenario defines one persistence scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Remember configures the engine. Omitted fields take config defaults.
	Remember config.Config `yaml:"remember"`

	// Preloaded is the store state before rehydration.
	Preloaded map[string]any `yaml:"preloaded,omitempty"`

	// Driver seeds storage entries, keyed by full storage key.
	Driver map[string]string `yaml:"driver,omitempty"`

	// Fail injects driver failures before the engine starts.
	Fail []FailSpec `yaml:"fail,omitempty"`

	// Flow is executed in order after startup.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the result.
	Assertions []Assertion `yaml:"assertions"`
}

// FailSpec makes every driver call of Op on Key fail.
type FailSpec struct {
	// Op is "get" or "set".
	Op string `yaml:"op"`

	// Key is the full storage key, prefix included.
	Key string `yaml:"key"`

	// Panic makes the call panic instead of returning an error.
	Panic bool `yaml:"panic,omitempty"`
}

// FlowStep is one step of the flow. Exactly one field must be set.
type FlowStep struct {
	// Dispatch is an action type to dispatch with Payload.
	Dispatch string `yaml:"dispatch,omitempty"`
	Payload  any    `yaml:"payload,omitempty"`

	// Advance moves the fake clock forward by this many milliseconds.
	// A pointer so that "advance: 0" is distinguishable from absent.
	Advance *int `yaml:"advance,omitempty"`

	// Await blocks until the named condition holds. Only "ready" exists.
	Await string `yaml:"await,omitempty"`

	// Heal removes every injected driver failure.
	Heal bool `yaml:"heal,omitempty"`
}

// Assertion validates the result of a run.
type Assertion struct {
	Type string `yaml:"type"`

	// Key is a full storage key (driver_contains, driver_absent, write_count).
	Key string `yaml:"key,omitempty"`

	// Value is the expected stored value (driver_contains). Compared as JSON
	// when both sides parse as JSON.
	Value *string `yaml:"value,omitempty"`

	// Action is an action type (action_dispatched, action_count).
	Action string `yaml:"action,omitempty"`

	// Actions is the expected dispatch order (action_order).
	Actions []string `yaml:"actions,omitempty"`

	// Payload is a subset match on the action payload (action_dispatched).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Expect is a subset match on the final state (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (action_count, error_count, write_count).
	Count int `yaml:"count"`

	// Kind restricts error_count to "persist" or "rehydrate" errors.
	Kind string `yaml:"kind,omitempty"`
}

// Assertion type constants.
const (
	AssertDriverContains   = "driver_contains"
	AssertDriverAbsent     = "driver_absent"
	AssertWriteCount       = "write_count"
	AssertActionDispatched = "action_dispatched"
	AssertActionOrder      = "action_order"
	AssertActionCount      = "action_count"
	AssertFinalState       = "final_state"
	AssertErrorCount       = "error_count"
)

// Error kinds recorded in the trace.
const (
	KindPersist   = "persist"
	KindRehydrate = "rehydrate"
	KindOther     = "other"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{Remember: config.Default()}

	// Strict decoding catches typos like "assertion:" vs "assertions:".
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Remember.Keys == nil {
		scenario.Remember.Keys = []string{}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if err := s.Remember.Validate(); err != nil {
		return fmt.Errorf("remember: %w", err)
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, f := range s.Fail {
		if f.Op != "get" && f.Op != "set" {
			return fmt.Errorf("fail[%d]: op must be \"get\" or \"set\", got %q", i, f.Op)
		}
		if f.Key == "" {
			return fmt.Errorf("fail[%d]: key is required", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step FlowStep) error {
	set := 0
	if step.Dispatch != "" {
		set++
	}
	if step.Advance != nil {
		set++
		if *step.Advance < 0 {
			return fmt.Errorf("flow[%d]: advance must be non-negative", index)
		}
	}
	if step.Await != "" {
		set++
		if step.Await != "ready" {
			return fmt.Errorf("flow[%d]: unknown await condition %q", index, step.Await)
		}
	}
	if step.Heal {
		set++
	}
	if step.Payload != nil && step.Dispatch == "" {
		return fmt.Errorf("flow[%d]: payload requires dispatch", index)
	}
	if set != 1 {
		return fmt.Errorf("flow[%d]: exactly one of dispatch, advance, await, heal is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDriverContains, AssertDriverAbsent:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for %s", index, a.Type)
		}
	case AssertWriteCount:
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for write_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for write_count", index)
		}
	case AssertActionDispatched:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for action_dispatched", index)
		}
	case AssertActionOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for action_order", index)
		}
	case AssertActionCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for action_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for action_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for error_count", index)
		}
		switch a.Kind {
		case "", KindPersist, KindRehydrate, KindOther:
		default:
			return fmt.Errorf("assertions[%d]: unknown error kind %q", index, a.Kind)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
