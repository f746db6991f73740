package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/mockapi"
)

// execute runs the root command with args and returns what it printed on
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return executeContext(t, ctx, args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	// Keep a developer's ~/.fmdesk.yaml out of the tests.
	t.Setenv("HOME", t.TempDir())

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// decodeData unmarshals the data of a JSON CLI response into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v), out)
}

// decodeError returns the error of a JSON CLI response.
func decodeError(t *testing.T, out string) CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "error", resp.Status, out)
	require.NotNil(t, resp.Error)
	return *resp.Error
}

// testEnv is a mock backend plus a database for one test.
type testEnv struct {
	t    *testing.T
	mock *mockapi.Server
	url  string
	db   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mock, err := mockapi.New()
	require.NoError(t, err)
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	return &testEnv{
		t:    t,
		mock: mock,
		url:  srv.URL,
		db:   filepath.Join(t.TempDir(), "fmdesk.db"),
	}
}

// run executes a command against the mock with the JSON formatter.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	base := []string{
		"--format", "json",
		"--db", e.db,
		"--api-url", e.url,
		"--auth-domain", e.url,
		"--client-id", "fmdesk-cli",
		"--follow-redirects",
	}
	return execute(e.t, append(base, args...)...)
}

// login signs in the mock's current identity.
func (e *testEnv) login() AuthView {
	e.t.Helper()
	out, err := e.run("login", "--timeout", "10s")
	require.NoError(e.t, err, out)
	var view AuthView
	decodeData(e.t, out, &view)
	return view
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "fmdesk", cmd.Use)
	assert.Contains(t, cmd.Long, "SQLite")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"login"}, {"logout"}, {"whoami"}, {"dashboard"},
		{"users", "list"}, {"users", "get"}, {"users", "create"}, {"users", "update"}, {"users", "delete"},
		{"requests", "list"}, {"requests", "get"}, {"requests", "create"}, {"requests", "update"}, {"requests", "delete"},
		{"theme", "get"}, {"theme", "set"},
		{"replay"}, {"trace"}, {"test"}, {"run"}, {"mock-api"}, {"reset"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestRequestsAlias(t *testing.T) {
	cmd := NewRootCommand()
	subCmd, _, err := cmd.Find([]string{"service-requests", "list"})
	require.NoError(t, err)
	assert.Equal(t, "list", subCmd.Name())
	assert.Equal(t, "requests", subCmd.Parent().Name())
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, defaultDB, dbFlag.DefValue)

	for _, name := range []string{"config", "api-url", "auth-domain", "client-id", "access-token", "follow-redirects"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		path     []string
		flag     string
		defValue string
	}{
		{[]string{"login"}, "return-to", ""},
		{[]string{"login"}, "timeout", "2m0s"},
		{[]string{"users", "list"}, "force", "false"},
		{[]string{"users", "list"}, "desc", "false"},
		{[]string{"users", "create"}, "data", ""},
		{[]string{"users", "update"}, "from-file", ""},
		{[]string{"requests", "list"}, "priority", ""},
		{[]string{"requests", "list"}, "asc", "false"},
		{[]string{"replay"}, "upto", "0"},
		{[]string{"trace"}, "flow", ""},
		{[]string{"trace"}, "action", ""},
		{[]string{"test"}, "update", "false"},
		{[]string{"test"}, "filter", ""},
		{[]string{"run"}, "refresh", "1m0s"},
		{[]string{"run"}, "metrics-addr", ""},
		{[]string{"mock-api"}, "addr", "127.0.0.1:8787"},
		{[]string{"mock-api"}, "login-as", mockapi.FixtureAdmin},
		{[]string{"reset"}, "all", "false"},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(filepath.Join(append(tt.path, tt.flag)...), func(t *testing.T) {
			cmd, _, err := root.Find(tt.path)
			require.NoError(t, err)
			flag := cmd.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "--format", "xml", "theme", "get", "--db", filepath.Join(t.TempDir(), "x.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
