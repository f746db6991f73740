package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

// copyScenario copies a checked-in scenario into a fresh directory.
func copyScenario(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0o644))
	return dir
}

func TestTestCommand_CheckedInScenarios(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", scenariosDir)
	require.NoError(t, err, out)

	var result TestResult
	decodeData(t, out, &result)
	assert.Positive(t, result.Total)
	assert.Equal(t, result.Total, result.Passed)
	assert.Zero(t, result.Failed)
}

func TestTestCommand_Filter(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", scenariosDir, "--filter", "*_dashboard")
	require.NoError(t, err, out)

	var result TestResult
	decodeData(t, out, &result)
	require.Equal(t, 2, result.Total)
	names := []string{result.Scenarios[0].Name, result.Scenarios[1].Name}
	assert.ElementsMatch(t, []string{"admin_dashboard", "staff_dashboard"}, names)
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "nothing_matches_*")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_Golden(t *testing.T) {
	dir := copyScenario(t, "theme_persist")
	golden := filepath.Join(dir, "golden", "theme_persist.golden")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err, out)
	assert.Contains(t, out, "(golden updated)")
	require.FileExists(t, golden)

	out, err = execute(t, "--format", "json", "test", dir)
	require.NoError(t, err, out)
	var result TestResult
	decodeData(t, out, &result)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "matched", result.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, err = execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	cliErr := decodeError(t, out)
	assert.Equal(t, CodeTestFailed, cliErr.Code)
	assert.Contains(t, cliErr.Message, "1 of 1")
}

func TestTestCommand_BrokenScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [nope"), 0o644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "Passed: 0, Failed: 1, Total: 1")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "a.golden"), goldenFilePath("s", filepath.Join("s", "a.yaml")))
	assert.Equal(t, filepath.Join("s", "golden", "auth", "b.golden"), goldenFilePath("s", filepath.Join("s", "auth", "b.yml")))
}
