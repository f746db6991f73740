package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/mockapi"
	"github.com/roach88/fmdesk/internal/obs"
)

// MockAPIOptions holds flags for the mock-api command.
type MockAPIOptions struct {
	*RootOptions
	Addr     string
	LoginAs  string
	TokenTTL time.Duration
	Secret   string
}

// NewMockAPICommand creates the mock-api command.
func NewMockAPICommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MockAPIOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mock-api",
		Short: "Serve the mock facility API and identity provider",
		Long: `Serve an in-memory facility API together with a mock identity provider.

The provider signs in the selected fixture without user interaction, so
"fmdesk login --follow-redirects" works against it. Faults, the signed-in
fixture and the fixture data are controlled under /_mock; Prometheus metrics
are served on /metrics.

Fixtures: admin-user (Ada Lovelace, admin), user (Sam Carter, staff).

Examples:
  fmdesk mock-api
  fmdesk mock-api --addr 127.0.0.1:9000 --login-as user
  curl -X POST localhost:8787/_mock/faults -d '{"method":"GET","route":"/api/v1/users","status":503,"times":2}'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMockAPI(contextOrBackground(cmd.Context()), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8787", "listen address")
	cmd.Flags().StringVar(&opts.LoginAs, "login-as", mockapi.FixtureAdmin, "fixture the provider signs in")
	cmd.Flags().DurationVar(&opts.TokenTTL, "token-ttl", mockapi.DefaultTokenTTL, "lifetime of issued tokens")
	cmd.Flags().StringVar(&opts.Secret, "secret", "", "HMAC secret for issued tokens (random when empty)")

	return cmd
}

// newMockHandler builds the mock backend plus its metrics endpoint.
func newMockHandler(opts *MockAPIOptions) (http.Handler, error) {
	metrics := obs.NewMetrics()
	mockOpts := []mockapi.Option{
		mockapi.WithMetrics(metrics),
		mockapi.WithTokenTTL(opts.TokenTTL),
	}
	if opts.Secret != "" {
		mockOpts = append(mockOpts, mockapi.WithSecret([]byte(opts.Secret)))
	}
	mock, err := mockapi.New(mockOpts...)
	if err != nil {
		return nil, err
	}
	if opts.LoginAs != "" {
		if err := mock.LoginAs(opts.LoginAs); err != nil {
			return nil, err
		}
	}

	r := chi.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/", mock)
	return r, nil
}

func runMockAPI(ctx context.Context, opts *MockAPIOptions, cmd *cobra.Command) error {
	handler, err := newMockHandler(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start mock API", err)
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	base := "http://" + ln.Addr().String()
	fmt.Fprintf(cmd.OutOrStdout(), "Mock API listening on %s\n", base)
	fmt.Fprintf(cmd.OutOrStdout(), "  --api-url %s --auth-domain %s --client-id fmdesk-cli --follow-redirects\n", base, base)

	return serve(ctx, ln, handler)
}

// serve runs handler on ln until ctx ends, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "server stopped", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	return nil
}
