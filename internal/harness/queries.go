package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/fmdesk/internal/action"
)

// Queries lists the state views a final_state assertion can read.
var Queries = []string{
	"app_loading",
	"auth",
	"counter",
	"dashboard",
	"filtered_requests",
	"filtered_users",
	"navigation",
	"request_stats",
	"requests",
	"route",
	"selected_request",
	"selected_user",
	"stored_theme",
	"theme",
	"toasts",
	"user_stats",
	"users",
}

func isQuery(name string) bool {
	return slices.Contains(Queries, name)
}

// query reads the named view of the session and returns it as redacted,
// JSON-shaped data.
func (h *Harness) query(ctx context.Context, name string) (any, error) {
	st := h.app.State()
	sel := h.app.Selectors

	var v any
	switch name {
	case "auth":
		v = st.Auth
	case "users":
		v = st.Users
	case "requests":
		v = st.Requests
	case "app_loading":
		v = st.AppLoading
	case "counter":
		v = st.Counter
	case "theme":
		v = st.Theme
	case "route":
		v = st.Route
	case "dashboard":
		v = sel.Dashboard(st)
	case "user_stats":
		v = sel.UserStats(st)
	case "request_stats":
		v = sel.RequestStats(st)
	case "filtered_users":
		v = sel.FilteredUsers(st)
	case "filtered_requests":
		v = sel.FilteredRequests(st)
	case "selected_user":
		v = sel.SelectedUser(st)
	case "selected_request":
		v = sel.SelectedRequest(st)
	case "navigation":
		v = h.nav.snapshot()
	case "toasts":
		v = h.toasts.Toasts()
	case "stored_theme":
		t, err := h.app.Theme.Load(ctx)
		if err != nil {
			return nil, err
		}
		v = t
	default:
		return nil, fmt.Errorf("unknown query %q", name)
	}

	out, err := normalize(v)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return action.Redact(out), nil
}

// normalize converts v to the generic shape encoding/json decodes into, so
// YAML expectations and Go values compare alike (numbers become float64).
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Redacted replaces secret values in traces and query results.
const Redacted = action.Redacted
