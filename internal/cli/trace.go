package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Flow   string
	Action string // optional - filter to specific action type
}

// TraceEvent represents a single action in the trace timeline.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	ID      string      `json:"id"`
	Type    action.Type `json:"type"`
	Effect  string      `json:"effect,omitempty"`
	Cause   string      `json:"cause,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// ProvenanceEdge represents a causal relationship: the effect that turned one
// action into another.
type ProvenanceEdge struct {
	From   string `json:"from"`
	Effect string `json:"effect"`
	To     string `json:"to"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Flow       string           `json:"flow"`
	Timeline   []TraceEvent     `json:"timeline"`
	Provenance []ProvenanceEdge `json:"provenance"`
	Stats      TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents   int `json:"total_events"`
	Dispatched    int `json:"dispatched"`
	EffectOutputs int `json:"effect_outputs"`
	Failures      int `json:"failures"`
}

// FlowList is the trace output when no flow is given.
type FlowList struct {
	Flows []store.FlowSummary `json:"flows"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the causal chain of a flow",
		Long: `Show the actions of one flow and how they caused each other.

Every command dispatches its actions in a fresh flow; effects keep the flow
of the action that triggered them. Without --flow the flows in the log are
listed.

The output includes:
- Timeline: the flow's actions in log order
- Provenance: which effect turned which action into which
- Stats: summary statistics for the flow

Examples:
  fmdesk trace --db ./fmdesk.db
  fmdesk trace --db ./fmdesk.db --flow 0190c1e2-...
  fmdesk trace --db ./fmdesk.db --flow 0190c1e2-... --action "[Users] Load"
  fmdesk trace --db ./fmdesk.db --flow 0190c1e2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(contextOrBackground(cmd.Context()), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Flow, "flow", "", "flow to trace (lists flows when empty)")
	cmd.Flags().StringVar(&opts.Action, "action", "", "filter to one action type and what it caused")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
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

	if opts.Flow == "" {
		flows, err := st.ListFlows(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list flows", err)
		}
		return f.Success(FlowList{Flows: flows})
	}

	envs, err := st.ReadFlow(ctx, opts.Flow)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read flow", err)
	}
	return f.Success(buildTrace(opts.Flow, envs, action.Type(opts.Action)))
}

// buildTrace converts a flow's envelopes into a trace. When filter is set,
// only actions of that type and the actions they caused, transitively, are
// kept.
func buildTrace(flow string, envs []action.Envelope, filter action.Type) TraceResult {
	keep := make(map[string]bool, len(envs))
	for _, env := range envs {
		keep[env.ID] = filter == "" || env.Type == filter || keep[env.Cause]
	}

	byID := make(map[string]action.Envelope, len(envs))
	for _, env := range envs {
		byID[env.ID] = env
	}

	result := TraceResult{
		Flow:       flow,
		Timeline:   []TraceEvent{},
		Provenance: []ProvenanceEdge{},
	}
	for _, env := range envs {
		if !keep[env.ID] {
			continue
		}
		ev := TraceEvent{
			Seq:    env.Seq,
			ID:     env.ID,
			Type:   env.Type,
			Effect: env.Effect,
			Cause:  env.Cause,
		}
		var payload any
		if err := json.Unmarshal(env.Payload, &payload); err == nil {
			if m, ok := payload.(map[string]any); !ok || len(m) > 0 {
				ev.Payload = action.Redact(payload)
			}
		}
		result.Timeline = append(result.Timeline, ev)

		if env.Cause == "" {
			result.Stats.Dispatched++
		} else {
			result.Stats.EffectOutputs++
			if cause, ok := byID[env.Cause]; ok && keep[cause.ID] {
				result.Provenance = append(result.Provenance, ProvenanceEdge{
					From:   describeEnvelope(cause),
					Effect: env.Effect,
					To:     describeEnvelope(env),
				})
			}
		}
		if strings.HasSuffix(string(env.Type), " Failure") {
			result.Stats.Failures++
		}
	}
	result.Stats.TotalEvents = len(result.Timeline)
	return result
}

func describeEnvelope(env action.Envelope) string {
	return fmt.Sprintf("%d %s", env.Seq, env.Type)
}

// WriteText outputs the flow list as text.
func (l FlowList) WriteText(w io.Writer, verbose bool) {
	if len(l.Flows) == 0 {
		fmt.Fprintln(w, "No flows found in database.")
		return
	}
	for _, fl := range l.Flows {
		flow := fl.Flow
		if !verbose {
			flow = truncateID(flow)
		}
		fmt.Fprintf(w, "%s  %-32s %3d action(s)  seq %d-%d\n", flow, fl.Root, fl.Count, fl.FirstSeq, fl.LastSeq)
	}
}

// WriteText outputs the trace result as text.
func (r TraceResult) WriteText(w io.Writer, verbose bool) {
	if len(r.Timeline) == 0 {
		fmt.Fprintf(w, "No actions found for flow: %s\n", r.Flow)
		return
	}

	fmt.Fprintf(w, "Trace for Flow: %s\n", r.Flow)
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	for _, event := range r.Timeline {
		formatTimelineEvent(w, event, verbose)
	}
	fmt.Fprintln(w)

	// Provenance section
	fmt.Fprintln(w, "=== Provenance ===")
	if len(r.Provenance) == 0 {
		fmt.Fprintln(w, "  (no causal relationships)")
	} else {
		for _, edge := range r.Provenance {
			fmt.Fprintf(w, "  %s -[%s]-> %s\n", edge.From, edge.Effect, edge.To)
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events:   %d\n", r.Stats.TotalEvents)
	fmt.Fprintf(w, "  Dispatched:     %d\n", r.Stats.Dispatched)
	fmt.Fprintf(w, "  Effect Outputs: %d\n", r.Stats.EffectOutputs)
	fmt.Fprintf(w, "  Failures:       %d\n", r.Stats.Failures)
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TraceEvent, verbose bool) {
	if event.Effect != "" {
		fmt.Fprintf(w, "  [%d] %s  <- %s\n", event.Seq, event.Type, event.Effect)
	} else {
		fmt.Fprintf(w, "  [%d] %s\n", event.Seq, event.Type)
	}
	if !verbose {
		return
	}
	if m, ok := event.Payload.(map[string]any); ok {
		fmt.Fprintf(w, "       Payload: %s\n", formatArgs(m))
	} else if event.Payload != nil {
		fmt.Fprintf(w, "       Payload: %s\n", formatValue(event.Payload))
	}
	fmt.Fprintf(w, "       ID: %s\n", truncateID(event.ID))
}

// formatArgs formats a map for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
