package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/app"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/obs"
	"github.com/roach88/fmdesk/internal/selector"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Refresh     time.Duration
	MetricsAddr string

	// FlowGenerator allows overriding the flow token generator (for testing).
	// If nil, the session default is used.
	FlowGenerator engine.FlowTokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Keep a signed-in session running and refresh it periodically",
		Long: `Keep a signed-in session running in the foreground.

The session reloads the dashboard collections every --refresh interval and
logs every action it reduces. With --metrics-addr the session's Prometheus
metrics are served on /metrics.

Example:
  fmdesk run --refresh 30s
  fmdesk run --metrics-addr 127.0.0.1:9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Refresh, "refresh", time.Minute, "interval between dashboard reloads")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	if opts.Refresh <= 0 {
		return NewExitError(ExitCommandError, "--refresh must be positive")
	}
	f := newFormatter(cmd, opts.RootOptions)

	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := obs.NewMetrics()
	extra := []app.Option{app.WithMetrics(metrics)}
	if opts.FlowGenerator != nil {
		extra = append(extra, app.WithFlowGenerator(opts.FlowGenerator))
	}
	s, err := signInAPI(ctx, cmd, opts.RootOptions, f, extra...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("error closing session", "error", closeErr)
		}
	}()

	unsubscribe := s.Engine.Subscribe(func(r engine.Record) {
		slog.Info("action", "seq", r.Envelope.Seq, "type", r.Envelope.Type, "effect", r.Envelope.Effect)
	})
	defer unsubscribe()

	serverDone := make(chan error, 1)
	if opts.MetricsAddr != "" {
		ln, err := net.Listen("tcp", opts.MetricsAddr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen for metrics", err)
		}
		slog.Info("serving metrics", "addr", "http://"+ln.Addr().String()+"/metrics")
		go func() { serverDone <- serve(ctx, ln, metrics.Handler()) }()
	} else {
		close(serverDone)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Session started. Refreshing every", opts.Refresh)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	ticker := time.NewTicker(opts.Refresh)
	defer ticker.Stop()
	for {
		if err := refresh(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("refresh failed", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("session stopped gracefully")
			return <-serverDone
		case <-ticker.C:
		}
	}
}

// refresh reloads what the dashboard shows for the signed-in user.
func refresh(ctx context.Context, s *session) error {
	if err := s.Do(ctx, action.RequestsLoad{}); err != nil {
		return err
	}
	if selector.IsAdmin(s.State()) {
		if err := s.Do(ctx, action.UsersLoad{Force: true}); err != nil {
			return err
		}
	}
	d := s.Dashboard()
	slog.Info("dashboard refreshed", "open", d.Requests.Open, "total", d.Requests.Total)
	return nil
}
