package harness

import "github.com/roach88/fmdesk/internal/action"

// TraceEvent is one logged action as seen by assertions and golden files.
// Envelope ids are left out: they are ULIDs and differ on every run.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Flow    string      `json:"flow"`
	Type    action.Type `json:"type"`
	Effect  string      `json:"effect,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every logged action in seq order, payloads redacted.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the query results read by final_state assertions, keyed by
	// query name.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends one event to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
