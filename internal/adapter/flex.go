package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// flexString accepts a JSON string, number or bool and keeps its text form.
// IDs in particular arrive as either strings or integers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("expected scalar, got %s", data)
	}
	*f = flexString(data)
	return nil
}

// flexBool accepts true/false, "true"/"false", "yes"/"no" and 0/1.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.ToLower(string(bytes.TrimSpace(data))), `"`)
	switch s {
	case "true", "yes", "1":
		*f = true
	case "false", "no", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}

// flexTime accepts RFC 3339 strings, bare dates, and unix timestamps in
// seconds or milliseconds.
type flexTime struct {
	time.Time
	set bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] != '"' {
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid timestamp %s: %w", data, err)
		}
		// Anything past year 2286 in seconds is read as milliseconds.
		if n > 1e10 {
			f.Time = time.UnixMilli(n).UTC()
		} else {
			f.Time = time.Unix(n, 0).UTC()
		}
		f.set = true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.Time = t.UTC()
			f.set = true
			return nil
		}
	}
	return fmt.Errorf("invalid time %q", s)
}

// firstString returns the first non-empty candidate.
func firstString(candidates ...*flexString) string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return string(*c)
		}
	}
	return ""
}

func firstBool(candidates ...*flexBool) bool {
	for _, c := range candidates {
		if c != nil {
			return bool(*c)
		}
	}
	return false
}

func firstTime(candidates ...*flexTime) time.Time {
	for _, c := range candidates {
		if c != nil && c.set {
			return c.Time
		}
	}
	return time.Time{}
}
