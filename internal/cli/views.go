package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/selector"
)

var registry = action.NewRegistry()

// find decodes the first logged action of type T.
func find[T action.Action](envs []action.Envelope) (T, bool) {
	var zero T
	for _, env := range envs {
		if env.Type != zero.Type() {
			continue
		}
		act, err := registry.Decode(env)
		if err != nil {
			continue
		}
		if v, ok := act.(T); ok {
			return v, true
		}
	}
	return zero, false
}

// readData decodes the --data JSON or the --from-file contents into v.
func readData(data, fromFile string, v any) error {
	switch {
	case data != "" && fromFile != "":
		return NewExitError(ExitCommandError, "--data and --from-file are exclusive")
	case fromFile != "":
		raw, err := os.ReadFile(fromFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read input file", err)
		}
		data = string(raw)
	case data == "":
		return NewExitError(ExitCommandError, "--data or --from-file is required")
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapExitError(ExitCommandError, "invalid JSON input", err)
	}
	return nil
}

// UserList is the users list output.
type UserList struct {
	Users  []model.User        `json:"users"`
	Stats  *selector.UserStats `json:"stats"`
	Cached bool                `json:"cached"`
}

func (l UserList) WriteText(w io.Writer, verbose bool) {
	if len(l.Users) == 0 {
		fmt.Fprintln(w, "No users.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
	for _, u := range l.Users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.FullName(), u.Email, u.Role, u.Status)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d users, %d active", len(l.Users), l.Stats.Total, l.Stats.Active)
	if l.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
}

// UserDetail is one user.
type UserDetail struct {
	User model.User `json:"user"`
}

func (d UserDetail) WriteText(w io.Writer, verbose bool) {
	u := d.User
	fmt.Fprintf(w, "%s <%s>\n", u.FullName(), u.Email)
	fmt.Fprintf(w, "  ID: %s\n", u.ID)
	fmt.Fprintf(w, "  Role: %s\n", u.Role)
	fmt.Fprintf(w, "  Status: %s\n", u.Status)
	for _, f := range [][2]string{
		{"Department", u.Department},
		{"Job title", u.JobTitle},
		{"Location", u.Location},
	} {
		if f[1] != "" {
			fmt.Fprintf(w, "  %s: %s\n", f[0], f[1])
		}
	}
	if u.IsSSO {
		fmt.Fprintln(w, "  Signs in with SSO")
	}
}

// RequestList is the service requests list output.
type RequestList struct {
	Requests []model.ServiceRequest `json:"requests"`
	Stats    *selector.RequestStats `json:"stats"`
}

func (l RequestList) WriteText(w io.Writer, verbose bool) {
	if len(l.Requests) == 0 {
		fmt.Fprintln(w, "No service requests.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tCREATED")
	for _, r := range l.Requests {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Title, r.Status, r.Priority, r.DateCreated.Format("2006-01-02"))
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d requests, %d open, %d urgent\n", len(l.Requests), l.Stats.Total, l.Stats.Open, l.Stats.Urgent)
	if verbose {
		writeCounts(w, "By status", l.Stats.ByStatus)
		writeCounts(w, "By priority", l.Stats.ByPriority)
	}
}

// RequestDetail is one service request.
type RequestDetail struct {
	Request model.ServiceRequest `json:"request"`
}

func (d RequestDetail) WriteText(w io.Writer, verbose bool) {
	r := d.Request
	fmt.Fprintf(w, "%s: %s\n", r.ID, r.Title)
	fmt.Fprintf(w, "  Status: %s\n", r.Status)
	fmt.Fprintf(w, "  Priority: %s\n", r.Priority)
	fmt.Fprintf(w, "  Created: %s by %s\n", r.DateCreated.Format("2006-01-02 15:04"), r.RequestedBy)
	if r.AssignedTo != "" {
		fmt.Fprintf(w, "  Assigned to: %s\n", r.AssignedTo)
	}
	if r.Description != "" {
		fmt.Fprintf(w, "\n  %s\n", r.Description)
	}
}

// Deleted confirms a delete.
type Deleted struct {
	ID string `json:"id"`
}

func (d Deleted) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Deleted %s\n", d.ID)
}

// DashboardView is the dashboard output.
type DashboardView struct {
	*selector.Dashboard
}

func (d DashboardView) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintln(w, d.Greeting)
	fmt.Fprintln(w)
	for _, s := range d.Sections {
		switch s.ID {
		case "service-requests":
			fmt.Fprintf(w, "%s: %d total, %d open, %d urgent (%d of yours open)\n",
				s.Title, d.Requests.Total, d.Requests.Open, d.Requests.Urgent, d.MyOpenRequests)
		case "recent-activity":
			fmt.Fprintf(w, "%s:\n", s.Title)
			if len(d.RecentRequests) == 0 {
				fmt.Fprintln(w, "  (nothing yet)")
			}
			for _, r := range d.RecentRequests {
				fmt.Fprintf(w, "  %s  %-12s %s\n", r.DateCreated.Format("2006-01-02"), r.Status, r.Title)
			}
		case "counter":
			fmt.Fprintf(w, "%s: %d\n", s.Title, d.Counter)
		case "user-management", "system-stats":
			if d.Users != nil && s.ID == "user-management" {
				fmt.Fprintf(w, "%s: %d users, %d active\n", s.Title, d.Users.Total, d.Users.Active)
				if verbose {
					writeCounts(w, "By role", d.Users.ByRole)
				}
			} else {
				fmt.Fprintf(w, "%s\n", s.Title)
			}
		default:
			if verbose {
				fmt.Fprintf(w, "%s\n", s.Title)
			}
		}
	}
}

// writeCounts prints a count map with keys sorted.
func writeCounts[K ~string](w io.Writer, title string, counts map[K]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[K(k)])
	}
	fmt.Fprintf(w, "  %s: %s\n", title, strings.Join(parts, ", "))
}
