package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	in := map[string]any{
		"token": map[string]any{"access_token": "eyJ...", "expires_at": "2026-03-01T13:00:00Z"},
		"code":  "abc",
		"state": map[string]any{"nested": true},
		"list":  []any{map[string]any{"refresh_token": "r"}, "plain"},
		"empty": map[string]any{"id_token": ""},
	}
	out := Redact(in).(map[string]any)

	assert.Equal(t, Redacted, out["token"].(map[string]any)["access_token"])
	assert.Equal(t, "2026-03-01T13:00:00Z", out["token"].(map[string]any)["expires_at"])
	assert.Equal(t, Redacted, out["code"])
	assert.Equal(t, map[string]any{"nested": true}, out["state"], "only string values are replaced")
	assert.Equal(t, Redacted, out["list"].([]any)[0].(map[string]any)["refresh_token"])
	assert.Equal(t, "plain", out["list"].([]any)[1])
	assert.Equal(t, "", out["empty"].(map[string]any)["id_token"])
}
