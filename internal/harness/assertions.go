package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", event.Seq, event.Flow, event.Type)
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains the action with a
// matching payload (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want, err := normalize(assertion.Payload)
	if err != nil {
		return fmt.Errorf("trace_contains payload: %w", err)
	}
	for _, event := range trace {
		if string(event.Type) != assertion.Action {
			continue
		}
		if want == nil {
			return nil
		}
		if _, ok := matchSubset(event.Payload, want, "payload"); ok {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with payload %v", assertion.Action, assertion.Payload),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the actions appear in the given order.
// Actions don't need to be consecutive (intervening actions are allowed), and
// each one is searched for after the previous match.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Actions {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if string(event.Type) == want {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("missing action: %s", want)
			if i > 0 {
				actual = fmt.Sprintf("%s not found after %s", want, assertion.Actions[i-1])
			}
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual:   actual,
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if string(event.Type) == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState reads the query and checks expect against it with
// subset semantics. The query result is recorded in result.State.
func assertFinalState(actx *AssertionContext, result *Result, assertion Assertion) error {
	actual, err := actx.Query(actx.Ctx, assertion.Query)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query %s", assertion.Query),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	result.State[assertion.Query] = actual

	want, err := normalize(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state expect: %w", err)
	}
	if path, ok := matchSubset(actual, want, assertion.Query); !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %s", path, describe(lookup(want, path, assertion.Query))),
			Actual:   fmt.Sprintf("%s = %s", path, describe(lookup(actual, path, assertion.Query))),
		}
	}
	return nil
}

// assertAPICalls checks how many requests the mock backend served on a route.
func assertAPICalls(actx *AssertionContext, assertion Assertion) error {
	got := actx.Hits(strings.ToUpper(assertion.Method), assertion.Route)
	if got != assertion.Count {
		return &AssertionError{
			Type:     AssertAPICalls,
			Expected: fmt.Sprintf("%d %s %s requests", assertion.Count, strings.ToUpper(assertion.Method), assertion.Route),
			Actual:   fmt.Sprintf("%d requests", got),
		}
	}
	return nil
}

// matchSubset reports whether actual contains expected. Objects match when
// every expected key matches; lists match element-wise and must have the same
// length; scalars must be equal. On mismatch it returns the path of the first
// difference, rooted at root.
func matchSubset(actual, expected any, root string) (string, bool) {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return root, false
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			av, present := act[k]
			if !present && exp[k] != nil {
				return root + "." + k, false
			}
			if path, ok := matchSubset(av, exp[k], root+"."+k); !ok {
				return path, false
			}
		}
		return "", true
	case []any:
		act, ok := actual.([]any)
		if actual != nil && !ok {
			return root, false
		}
		if len(act) != len(exp) {
			return root, false
		}
		for i := range exp {
			if path, ok := matchSubset(act[i], exp[i], fmt.Sprintf("%s[%d]", root, i)); !ok {
				return path, false
			}
		}
		return "", true
	default:
		if !reflect.DeepEqual(actual, expected) {
			return root, false
		}
		return "", true
	}
}

// lookup follows a path produced by matchSubset. Missing steps yield nil.
func lookup(v any, path, root string) any {
	rest := strings.TrimPrefix(path, root)
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			m, _ := v.(map[string]any)
			v = m[rest[:end]]
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil
			}
			var i int
			fmt.Sscanf(rest[1:end], "%d", &i)
			l, _ := v.([]any)
			if i < 0 || i >= len(l) {
				return nil
			}
			v = l[i]
			rest = rest[end+1:]
		default:
			return nil
		}
	}
	return v
}

func describe(v any) string {
	switch v := v.(type) {
	case nil:
		return "<missing>"
	case []any:
		return fmt.Sprintf("%v (len %d)", v, len(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// AssertionContext provides what assertions read besides the trace.
type AssertionContext struct {
	Ctx   context.Context
	Query func(ctx context.Context, name string) (any, error)
	Hits  func(method, route string) int
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the session for final_state and api_calls.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			if actx == nil || actx.Query == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a session", i)
			} else {
				err = assertFinalState(actx, result, assertion)
			}
		case AssertAPICalls:
			if actx == nil || actx.Hits == nil {
				err = fmt.Errorf("assertion[%d]: api_calls requires a mock backend", i)
			} else {
				err = assertAPICalls(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
