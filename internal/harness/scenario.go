package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/mockapi"
)

// DefaultNow is the wall clock of a scenario that does not set one.
var DefaultNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Scenario defines a behaviour test of the state container.
// Scenarios dispatch actions against the real engine and effects, talking to
// the mock backend, then assert on the resulting action log and final state.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// LoginAs is the identity fixture the mock provider signs in
	// ("admin-user" or "user"). Empty keeps the mock's default.
	LoginAs string `yaml:"login_as,omitempty"`

	// FlowPrefix names flows "<prefix>-1", "<prefix>-2", ... for
	// deterministic traces. Defaults to the scenario name.
	FlowPrefix string `yaml:"flow_prefix,omitempty"`

	// Now is the RFC 3339 wall clock the scenario starts at. Defaults to
	// DefaultNow. Flow steps move it with advance.
	Now string `yaml:"now,omitempty"`

	// Faults are queued on the mock backend before setup runs.
	Faults []mockapi.Fault `yaml:"faults,omitempty"`

	// Setup contains actions to dispatch before the main flow.
	// Setup actions are logged and appear in the trace.
	Setup []ActionStep `yaml:"setup,omitempty"`

	// Flow contains the main test flow.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count,
	// final_state, api_calls
	Assertions []Assertion `yaml:"assertions"`
}

// ActionStep dispatches one action.
type ActionStep struct {
	// Dispatch is the action type, e.g. "[Users] Load".
	Dispatch string `yaml:"dispatch"`

	// Payload holds the action fields by their JSON names.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// FlowStep is a step in the main test flow. Exactly one of Dispatch and
// Advance is set.
type FlowStep struct {
	Dispatch string         `yaml:"dispatch,omitempty"`
	Payload  map[string]any `yaml:"payload,omitempty"`

	// Advance moves the wall clock, e.g. "6m".
	Advance string `yaml:"advance,omitempty"`

	// Faults are queued on the mock backend just before this step.
	Faults []mockapi.Fault `yaml:"faults,omitempty"`

	// Expect checks the actions logged while this step ran.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies what a dispatch must cause.
type ExpectClause struct {
	// Emits is an action type that must be logged during the step.
	Emits string `yaml:"emits"`

	// Payload is a subset of the emitted action's payload.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": action appears in trace with payload
	// - "trace_order": actions appear in order
	// - "trace_count": action appears exactly N times
	// - "final_state": a named query matches expect
	// - "api_calls": the mock backend saw N requests on method and route
	Type string `yaml:"type"`

	// Action is the action type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Payload is the expected payload subset (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Count is the expected number of occurrences (trace_count, api_calls).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Query names the state view to read (final_state). See Queries.
	Query string `yaml:"query,omitempty"`

	// Expect is matched against the query result with subset semantics:
	// objects may have extra keys, lists must have the same length.
	Expect any `yaml:"expect,omitempty"`

	// Method and Route select mock backend requests (api_calls). Route is
	// canonical, e.g. /api/v1/users/:id.
	Method string `yaml:"method,omitempty"`
	Route  string `yaml:"route,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertAPICalls      = "api_calls"
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

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario, action.NewRegistry()); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// StartTime returns the parsed Now, or DefaultNow.
func (s *Scenario) StartTime() time.Time {
	if s.Now == "" {
		return DefaultNow
	}
	t, err := time.Parse(time.RFC3339, s.Now)
	if err != nil {
		return DefaultNow
	}
	return t.UTC()
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario, reg *action.Registry) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	if err := validateFaults("faults", s.Faults); err != nil {
		return err
	}

	for i, step := range s.Setup {
		if step.Dispatch == "" {
			return fmt.Errorf("setup[%d]: dispatch is required", i)
		}
		if _, err := decodeStep(reg, step.Dispatch, step.Payload); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range s.Flow {
		switch {
		case step.Dispatch == "" && step.Advance == "":
			return fmt.Errorf("flow[%d]: dispatch or advance is required", i)
		case step.Dispatch != "" && step.Advance != "":
			return fmt.Errorf("flow[%d]: dispatch and advance are exclusive", i)
		case step.Advance != "":
			d, err := time.ParseDuration(step.Advance)
			if err != nil {
				return fmt.Errorf("flow[%d].advance: %w", i, err)
			}
			if d <= 0 {
				return fmt.Errorf("flow[%d].advance: must be positive", i)
			}
			if step.Expect != nil {
				return fmt.Errorf("flow[%d]: expect needs a dispatch", i)
			}
		default:
			if _, err := decodeStep(reg, step.Dispatch, step.Payload); err != nil {
				return fmt.Errorf("flow[%d]: %w", i, err)
			}
		}
		if err := validateFaults(fmt.Sprintf("flow[%d].faults", i), step.Faults); err != nil {
			return err
		}
		if step.Expect != nil {
			if step.Expect.Emits == "" {
				return fmt.Errorf("flow[%d].expect: emits is required", i)
			}
			if !reg.Known(action.Type(step.Expect.Emits)) {
				return fmt.Errorf("flow[%d].expect: unknown action type %q", i, step.Expect.Emits)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, reg); err != nil {
			return err
		}
	}

	return nil
}

// decodeStep builds the action a step dispatches.
func decodeStep(reg *action.Registry, typ string, payload map[string]any) (action.Action, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return reg.DecodePayload(action.Type(typ), data)
}

func validateFaults(where string, faults []mockapi.Fault) error {
	for i, f := range faults {
		if f.Method == "" {
			return fmt.Errorf("%s[%d]: method is required", where, i)
		}
		if !strings.HasPrefix(f.Route, "/") {
			return fmt.Errorf("%s[%d]: route must be an absolute path", where, i)
		}
		if f.Status != 0 && (f.Status < 400 || f.Status > 599) {
			return fmt.Errorf("%s[%d]: status must be 0 or an HTTP error", where, i)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, reg *action.Registry) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	known := func(t string) error {
		if !reg.Known(action.Type(t)) {
			return fmt.Errorf("assertions[%d]: unknown action type %q", index, t)
		}
		return nil
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
		return known(a.Action)
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
		for _, t := range a.Actions {
			if err := known(t); err != nil {
				return err
			}
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
		return known(a.Action)
	case AssertFinalState:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for final_state", index)
		}
		if !isQuery(a.Query) {
			return fmt.Errorf("assertions[%d]: unknown query %q", index, a.Query)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertAPICalls:
		if a.Method == "" || a.Route == "" {
			return fmt.Errorf("assertions[%d]: method and route are required for api_calls", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for api_calls", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
