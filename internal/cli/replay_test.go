package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/store"
)

func TestReplayEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "test.db")

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No actions found")
}

func TestReplayAfterSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fmdesk.db")
	for _, theme := range []string{"dark", "light", "dark"} {
		_, err := execute(t, "--db", db, "theme", "set", theme)
		require.NoError(t, err)
	}

	out, err := execute(t, "--format", "json", "--db", db, "replay")
	require.NoError(t, err, out)
	var result ReplayResult
	decodeData(t, out, &result)

	assert.True(t, result.Deterministic)
	assert.Equal(t, 3, result.Actions)
	assert.Equal(t, int64(3), result.LastSeq)
	assert.NotEmpty(t, result.Fingerprint)
	assert.Len(t, result.Flows, 3, "one flow per command")
	assert.Equal(t, action.TypeThemeSet, result.Flows[0].Root)
	assert.Equal(t, "dark", result.Summary.Theme)

	// Replaying again yields the same fingerprint.
	out, err = execute(t, "--format", "json", "--db", db, "replay")
	require.NoError(t, err, out)
	var again ReplayResult
	decodeData(t, out, &again)
	assert.Equal(t, result.Fingerprint, again.Fingerprint)
}

func TestReplayUpTo(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fmdesk.db")
	for _, theme := range []string{"dark", "light"} {
		_, err := execute(t, "--db", db, "theme", "set", theme)
		require.NoError(t, err)
	}

	out, err := execute(t, "--format", "json", "--db", db, "replay", "--upto", "1")
	require.NoError(t, err, out)
	var result ReplayResult
	decodeData(t, out, &result)
	assert.Equal(t, 1, result.Actions)
	assert.Equal(t, "dark", result.Summary.Theme)
	assert.Len(t, result.Flows, 1)
}

func TestReplayText(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fmdesk.db")
	_, err := execute(t, "--db", db, "theme", "set", "dark")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "replay")
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 action(s) in 1 flow(s)")
	assert.Contains(t, out, "[Theme] Set")
	assert.Contains(t, out, "Theme: dark")
	assert.Contains(t, out, "verified deterministic")
}

func TestReplayUnknownAction(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fmdesk.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	_, err = st.AppendAction(context.Background(), action.Envelope{
		ID:      "01J00000000000000000000000",
		Seq:     1,
		Flow:    "legacy",
		Type:    "[Legacy] Gone",
		Payload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "--format", "json", "--db", db, "replay")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, CodeDeterminism, decodeError(t, out).Code)
}
