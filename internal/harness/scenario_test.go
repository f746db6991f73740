package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: increments the counter
flow:
  - dispatch: "[Counter] Increment"
    payload:
      by: 2
assertions:
  - type: final_state
    query: counter
    expect:
      value: 2
`

func TestParseScenario_Minimal(t *testing.T) {
	sc, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", sc.Name)
	require.Len(t, sc.Flow, 1)
	assert.Equal(t, "[Counter] Increment", sc.Flow[0].Dispatch)
	assert.Equal(t, 2, sc.Flow[0].Payload["by"])
	require.Len(t, sc.Assertions, 1)
	assert.Equal(t, AssertFinalState, sc.Assertions[0].Type)
	assert.Equal(t, DefaultNow, sc.StartTime())
}

func TestParseScenario_FullFormat(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: full
description: every field
login_as: admin-user
flow_prefix: f
now: "2026-04-01T09:30:00+02:00"
faults:
  - method: get
    route: /api/v1/users
    status: 503
    times: 2
setup:
  - dispatch: "[App] Init"
flow:
  - dispatch: "[Users] Load"
    faults:
      - method: GET
        route: /api/v1/users
        status: 0
    expect:
      emits: "[Users] Load Failure"
      payload:
        failure:
          kind: network
  - advance: 90s
assertions:
  - type: trace_order
    actions: ["[Users] Load", "[Users] Load Failure"]
  - type: api_calls
    method: GET
    route: /api/v1/users
    count: 4
`))
	require.NoError(t, err)

	assert.Equal(t, "admin-user", sc.LoginAs)
	assert.Equal(t, "f", sc.FlowPrefix)
	assert.Equal(t, time.Date(2026, 4, 1, 7, 30, 0, 0, time.UTC), sc.StartTime())
	require.Len(t, sc.Faults, 1)
	assert.Equal(t, 503, sc.Faults[0].Status)
	assert.Equal(t, 2, sc.Faults[0].Times)
	require.Len(t, sc.Setup, 1)
	require.Len(t, sc.Flow, 2)
	assert.Equal(t, "90s", sc.Flow[1].Advance)
	require.NotNil(t, sc.Flow[0].Expect)
	assert.Equal(t, "[Users] Load Failure", sc.Flow[0].Expect.Emits)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: misspelled key
flow:
  - dispatch: "[App] Init"
assertion:
  - type: trace_count
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `
description: d
flow: [{dispatch: "[App] Init"}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: n
flow: [{dispatch: "[App] Init"}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "description is required",
		},
		{
			name: "empty flow",
			yaml: `
name: n
description: d
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "flow list is required",
		},
		{
			name: "no assertions",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init"}]`,
			want: "assertions list is required",
		},
		{
			name: "unknown action",
			yaml: `
name: n
description: d
flow: [{dispatch: "[Legacy] Gone"}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: `unknown action type "[Legacy] Gone"`,
		},
		{
			name: "payload of wrong type",
			yaml: `
name: n
description: d
flow: [{dispatch: "[Counter] Increment", payload: {by: "two"}}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "flow[0]",
		},
		{
			name: "dispatch and advance",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init", advance: 1m}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "exclusive",
		},
		{
			name: "empty step",
			yaml: `
name: n
description: d
flow: [{}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "dispatch or advance is required",
		},
		{
			name: "negative advance",
			yaml: `
name: n
description: d
flow: [{advance: -1m}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "must be positive",
		},
		{
			name: "expect without emits",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init", expect: {payload: {a: 1}}}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "emits is required",
		},
		{
			name: "bad now",
			yaml: `
name: n
description: d
now: yesterday
flow: [{dispatch: "[App] Init"}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "now:",
		},
		{
			name: "fault without method",
			yaml: `
name: n
description: d
faults: [{route: /api/v1/users, status: 500}]
flow: [{dispatch: "[App] Init"}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "method is required",
		},
		{
			name: "fault with success status",
			yaml: `
name: n
description: d
flow:
  - dispatch: "[App] Init"
    faults: [{method: GET, route: /api/v1/users, status: 200}]
assertions: [{type: trace_count, action: "[App] Init", count: 1}]`,
			want: "status must be 0 or an HTTP error",
		},
		{
			name: "unknown assertion type",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init"}]
assertions: [{type: eventually}]`,
			want: `unknown assertion type "eventually"`,
		},
		{
			name: "final_state without query",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init"}]
assertions: [{type: final_state, expect: {value: 1}}]`,
			want: "query is required",
		},
		{
			name: "final_state unknown query",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init"}]
assertions: [{type: final_state, query: sessions, expect: {}}]`,
			want: `unknown query "sessions"`,
		},
		{
			name: "final_state without expect",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init"}]
assertions: [{type: final_state, query: counter}]`,
			want: "expect is required",
		},
		{
			name: "api_calls without route",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init"}]
assertions: [{type: api_calls, method: GET, count: 1}]`,
			want: "method and route are required",
		},
		{
			name: "trace_order with unknown action",
			yaml: `
name: n
description: d
flow: [{dispatch: "[App] Init"}]
assertions: [{type: trace_order, actions: ["[App] Init", "[App] Exit"]}]`,
			want: `unknown action type "[App] Exit"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", sc.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestCheckedInScenariosParse(t *testing.T) {
	paths, err := FindScenarios(scenariosDir, "")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		_, err := LoadScenario(p)
		assert.NoError(t, err, p)
	}
}
