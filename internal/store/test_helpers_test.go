package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/roach88/fmdesk/internal/action"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEnvelope creates an envelope with minimal required fields.
func createTestEnvelope(id, flow string, typ action.Type, seq int64) action.Envelope {
	return action.Envelope{
		ID:      id,
		Seq:     seq,
		Flow:    flow,
		Type:    typ,
		Payload: json.RawMessage(`{}`),
	}
}
