package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/state"
	"github.com/roach88/fmdesk/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	UpTo int64 // optional - stop after this seq
}

// ReplayFlow summarizes one flow of the replayed log.
type ReplayFlow struct {
	Flow     string      `json:"flow"`
	Root     action.Type `json:"root"`
	FirstSeq int64       `json:"first_seq"`
	LastSeq  int64       `json:"last_seq"`
	Actions  int         `json:"actions"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Actions       int          `json:"actions"`
	LastSeq       int64        `json:"last_seq"`
	Fingerprint   string       `json:"fingerprint"`
	Deterministic bool         `json:"deterministic"`
	Flows         []ReplayFlow `json:"flows"`
	Summary       StateSummary `json:"summary"`
}

// StateSummary is the part of the replayed state worth printing.
type StateSummary struct {
	AuthPhase     state.AuthPhase `json:"auth_phase"`
	User          string          `json:"user,omitempty"`
	Users         int             `json:"users"`
	Requests      int             `json:"requests"`
	Counter       int             `json:"counter"`
	Theme         string          `json:"theme"`
	Route         string          `json:"route,omitempty"`
	UsersError    string          `json:"users_error,omitempty"`
	RequestsError string          `json:"requests_error,omitempty"`
}

func summarize(st state.State) StateSummary {
	s := StateSummary{
		AuthPhase:     st.Auth.Phase,
		Users:         st.Users.Entities.Len(),
		Requests:      st.Requests.Entities.Len(),
		Counter:       st.Counter.Value,
		Theme:         string(st.Theme.Theme),
		Route:         st.Route,
		UsersError:    st.Users.Error,
		RequestsError: st.Requests.Error,
	}
	if st.Auth.User != nil {
		s.User = st.Auth.User.ID
	}
	return s
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the action log and verify determinism",
		Long: `Replay the action log to rebuild the state and verify determinism.

The log is folded through the reducers twice and the state fingerprints are
compared. The per-flow breakdown and a summary of the rebuilt state are
reported.

Exit codes:
  0 - Replay is deterministic
  1 - Determinism verification failed, or the log holds unknown actions
  2 - Command error (database not found, etc.)

Examples:
  fmdesk replay --db ./fmdesk.db
  fmdesk replay --db ./fmdesk.db --upto 42
  fmdesk replay --db ./fmdesk.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(contextOrBackground(cmd.Context()), opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.UpTo, "upto", 0, "stop after this seq (0 replays everything)")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	cfg, err := opts.appConfig()
	if err != nil {
		return err
	}

	// Open database
	st, err := store.Open(cfg.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	reg := action.NewRegistry()
	first, err := engine.Replay(ctx, st, reg, opts.UpTo)
	if err != nil {
		return f.Fail(CodeDeterminism, "replay failed", err.Error())
	}
	second, err := engine.Replay(ctx, st, reg, opts.UpTo)
	if err != nil {
		return f.Fail(CodeDeterminism, "replay failed", err.Error())
	}

	fp1, err := state.Fingerprint(first.State)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fingerprint state", err)
	}
	fp2, err := state.Fingerprint(second.State)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to fingerprint state", err)
	}

	flows, err := st.ListFlows(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list flows", err)
	}

	result := ReplayResult{
		Actions:       first.Actions,
		LastSeq:       first.LastSeq,
		Fingerprint:   fp1,
		Deterministic: fp1 == fp2 && first.Actions == second.Actions,
		Flows:         make([]ReplayFlow, 0, len(flows)),
		Summary:       summarize(first.State),
	}
	for _, fl := range flows {
		if opts.UpTo > 0 && fl.FirstSeq > opts.UpTo {
			break
		}
		result.Flows = append(result.Flows, ReplayFlow{
			Flow:     fl.Flow,
			Root:     fl.Root,
			FirstSeq: fl.FirstSeq,
			LastSeq:  fl.LastSeq,
			Actions:  fl.Count,
		})
	}

	if !result.Deterministic {
		// Determinism failure = exit code 1
		return f.Fail(CodeDeterminism, "determinism verification failed", result)
	}
	return f.Success(result)
}

// WriteText outputs the replay result as text.
func (r ReplayResult) WriteText(w io.Writer, verbose bool) {
	if r.Actions == 0 {
		fmt.Fprintln(w, "No actions found in database.")
		return
	}

	fmt.Fprintf(w, "Replay Summary: %d action(s) in %d flow(s), last seq %d\n", r.Actions, len(r.Flows), r.LastSeq)
	fmt.Fprintln(w)

	for _, flow := range r.Flows {
		fmt.Fprintf(w, "  %s  %s (%d action(s), seq %d-%d)\n",
			truncateID(flow.Flow), flow.Root, flow.Actions, flow.FirstSeq, flow.LastSeq)
	}
	fmt.Fprintln(w)

	s := r.Summary
	fmt.Fprintln(w, "=== State ===")
	fmt.Fprintf(w, "  Auth: %s", s.AuthPhase)
	if s.User != "" {
		fmt.Fprintf(w, " as %s", s.User)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Users: %d\n", s.Users)
	fmt.Fprintf(w, "  Service requests: %d\n", s.Requests)
	fmt.Fprintf(w, "  Counter: %d\n", s.Counter)
	fmt.Fprintf(w, "  Theme: %s\n", s.Theme)
	if s.Route != "" {
		fmt.Fprintf(w, "  Route: %s\n", s.Route)
	}
	if s.UsersError != "" {
		fmt.Fprintf(w, "  Users error: %s\n", s.UsersError)
	}
	if s.RequestsError != "" {
		fmt.Fprintf(w, "  Requests error: %s\n", s.RequestsError)
	}
	if verbose {
		fmt.Fprintf(w, "  Fingerprint: %s\n", r.Fingerprint)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "✓ Replay verified deterministic")
}
