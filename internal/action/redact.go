package action

// Redacted replaces secret values in traces and query results.
const Redacted = "<redacted>"

// Values under these keys are secret or differ on every run (signed tokens,
// one-time codes, random login state).
var secretKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"id_token":      true,
	"code":          true,
	"state":         true,
}

// Redact replaces non-empty string values under secret keys, at any depth,
// in a value decoded from JSON. Maps and slices are modified in place.
func Redact(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, val := range v {
			if s, ok := val.(string); ok && secretKeys[k] && s != "" {
				v[k] = Redacted
				continue
			}
			v[k] = Redact(val)
		}
		return v
	case []any:
		for i := range v {
			v[i] = Redact(v[i])
		}
		return v
	default:
		return v
	}
}
