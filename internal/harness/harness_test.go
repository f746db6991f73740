package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/action"
)

const scenariosDir = "../../testdata/scenarios"

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	sc, err := LoadScenario(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	return sc
}

func TestRun_CheckedInScenarios(t *testing.T) {
	paths, err := FindScenarios(scenariosDir, "")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		t.Run(name, func(t *testing.T) {
			sc, err := LoadScenario(p)
			require.NoError(t, err)

			res, err := Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, res.Pass, strings.Join(res.Errors, "\n"))
		})
	}
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: wrong_counter
description: expects a value the flow never reaches
flow:
  - dispatch: "[Counter] Increment"
    payload: {by: 1}
    expect:
      emits: "[Counter] Reset"
assertions:
  - type: final_state
    query: counter
    expect:
      value: 5
  - type: trace_count
    action: "[Counter] Increment"
    count: 2
`))
	require.NoError(t, err)

	res, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, res.Pass)
	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], "expected [Counter] Reset")
	assert.Contains(t, res.Errors[1], "counter.value = 5")
	assert.Contains(t, res.Errors[1], "counter.value = 1")
	assert.Contains(t, res.Errors[2], "1 occurrences")
	assert.Equal(t, map[string]any{"value": float64(1)}, res.State["counter"])
}

func TestRun_TraceIsNumberedAndRedacted(t *testing.T) {
	res, err := Run(context.Background(), loadScenario(t, "admin_dashboard"))
	require.NoError(t, err)
	require.True(t, res.Pass, strings.Join(res.Errors, "\n"))

	var sawCallback, sawToken bool
	for i, ev := range res.Trace {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.True(t, strings.HasPrefix(ev.Flow, "admin-"), ev.Flow)

		switch ev.Type {
		case action.TypeAuthCallback:
			sawCallback = true
			p := ev.Payload.(map[string]any)
			assert.Equal(t, Redacted, p["code"])
			assert.Equal(t, Redacted, p["state"])
		case action.TypeAuthTokenSuccess:
			sawToken = true
			tok := ev.Payload.(map[string]any)["token"].(map[string]any)
			assert.NotContains(t, tok, "access_token")
			assert.NotEmpty(t, tok["expires_at"])
		}
	}
	assert.True(t, sawCallback)
	assert.True(t, sawToken)
	assert.Equal(t, "admin-1", res.Trace[0].Flow)
}

func TestRun_Deterministic(t *testing.T) {
	sc := loadScenario(t, "request_crud")

	first, err := Run(context.Background(), sc)
	require.NoError(t, err)
	second, err := Run(context.Background(), sc)
	require.NoError(t, err)

	a, err := Snapshot(sc.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(sc.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_AdvanceMovesClock(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: clock
description: theme set before and after an advance
now: "2026-05-01T08:00:00Z"
flow:
  - dispatch: "[Theme] Set"
    payload: {theme: dark}
  - advance: 2h
  - dispatch: "[Theme] Set"
    payload: {theme: light}
assertions:
  - type: final_state
    query: theme
    expect:
      theme: light
  - type: final_state
    query: stored_theme
    expect: light
`))
	require.NoError(t, err)

	res, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.True(t, res.Pass, strings.Join(res.Errors, "\n"))
}

func TestCheckExpect(t *testing.T) {
	logged := []action.Envelope{
		{Seq: 1, Type: action.TypeCounterIncrement, Payload: []byte(`{"by":2}`)},
		{Seq: 2, Type: action.TypeCounterIncrement, Payload: []byte(`{"by":3}`)},
	}

	assert.Empty(t, checkExpect(logged, &ExpectClause{Emits: "[Counter] Increment"}))
	assert.Empty(t, checkExpect(logged, &ExpectClause{
		Emits:   "[Counter] Increment",
		Payload: map[string]any{"by": 3},
	}))
	assert.Contains(t, checkExpect(logged, &ExpectClause{
		Emits:   "[Counter] Increment",
		Payload: map[string]any{"by": 4},
	}), "different payload")
	assert.Contains(t, checkExpect(logged, &ExpectClause{Emits: "[Counter] Reset"}),
		"step logged [[Counter] Increment [Counter] Increment]")
}

func TestTraceEvent_DropsEmptyPayload(t *testing.T) {
	ev := traceEvent(action.Envelope{Seq: 4, Flow: "f-1", Type: action.TypeAppInit, Payload: []byte(`{}`)})
	assert.Nil(t, ev.Payload)
	assert.Equal(t, int64(4), ev.Seq)

	ev = traceEvent(action.Envelope{Seq: 5, Flow: "f-1", Type: action.TypeAuthCallback, Payload: []byte(`{"code":"abc","state":""}`)})
	assert.Equal(t, map[string]any{"code": Redacted, "state": ""}, ev.Payload)
}
