package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/app"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/state"
)

// AuthView is the signed-in identity as printed by login and whoami.
type AuthView struct {
	Authenticated  bool        `json:"authenticated"`
	User           *model.User `json:"user,omitempty"`
	OrganizationID string      `json:"organization_id,omitempty"`
	EnterpriseSSO  bool        `json:"enterprise_sso"`
	ExpiresAt      *time.Time  `json:"expires_at,omitempty"`
	Route          string      `json:"route,omitempty"`
}

func newAuthView(st state.State) AuthView {
	v := AuthView{
		Authenticated:  st.Auth.IsAuthenticated,
		User:           st.Auth.User,
		OrganizationID: st.Auth.OrganizationID,
		EnterpriseSSO:  st.Auth.EnterpriseSSO,
		Route:          st.Route,
	}
	if st.Auth.Token != nil && !st.Auth.Token.ExpiresAt.IsZero() {
		exp := st.Auth.Token.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}

func (v AuthView) WriteText(w io.Writer, verbose bool) {
	if !v.Authenticated || v.User == nil {
		fmt.Fprintln(w, "Not signed in.")
		return
	}
	u := v.User
	fmt.Fprintf(w, "Signed in as %s <%s>\n", u.FullName(), u.Email)
	fmt.Fprintf(w, "  Role: %s\n", u.Role)
	if v.OrganizationID != "" {
		fmt.Fprintf(w, "  Organization: %s\n", v.OrganizationID)
	}
	if verbose {
		fmt.Fprintf(w, "  User ID: %s\n", u.ID)
		fmt.Fprintf(w, "  Enterprise SSO: %v\n", v.EnterpriseSSO)
		if v.ExpiresAt != nil {
			fmt.Fprintf(w, "  Token expires: %s\n", v.ExpiresAt.Format(time.RFC3339))
		}
		if v.Route != "" {
			fmt.Fprintf(w, "  Landing page: %s\n", v.Route)
		}
	}
}

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	ReturnTo string
	Timeout  time.Duration
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through the identity provider",
		Long: `Sign in through the identity provider.

The provider's login page is printed and a listener on the configured
redirect URL waits for the callback. With --follow-redirects the CLI follows
the provider's redirects itself, which works against providers that sign in
without user interaction such as the mock API.

Examples:
  fmdesk login
  fmdesk login --return-to /service-requests
  fmdesk login --api-url http://localhost:8787 --auth-domain http://localhost:8787 \
    --client-id fmdesk-cli --follow-redirects`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ReturnTo, "return-to", "", "page to land on after signing in")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 2*time.Minute, "how long to wait for the provider callback")

	return cmd
}

func runLogin(ctx context.Context, opts *LoginOptions, cmd *cobra.Command) error {
	ctx = contextOrBackground(ctx)
	f := newFormatter(cmd, opts.RootOptions)

	s, err := openSession(ctx, cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.Close()
	if s.cfg.Auth.ClientID == "" {
		return NewExitError(ExitCommandError, "no identity provider configured (set --client-id and --auth-domain)")
	}

	if s.nav.client == nil {
		stop, err := listenCallback(s.cfg.Auth.RedirectURL, s.nav)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start callback listener", err)
		}
		defer stop()
	}

	envs, err := s.run(ctx, action.AuthLogin{ReturnTo: opts.ReturnTo})
	if err != nil {
		return err
	}
	if err := checkFailure(f, envs); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	cb, err := s.nav.waitCallback(waitCtx)
	if err != nil {
		return f.Fail(CodeAuth, "no callback from the identity provider", err.Error())
	}

	envs, err = s.run(ctx, cb)
	if err != nil {
		return err
	}
	if err := checkFailure(f, envs); err != nil {
		return err
	}
	return f.Success(newAuthView(s.State()))
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "logout",
		Short:         "Sign out and forget the stored session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			f := newFormatter(cmd, rootOpts)

			s, err := openSession(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			envs, err := s.run(ctx, action.AuthLogout{})
			if err != nil {
				return err
			}
			if !logged(envs, action.TypeAuthLogoutComplete) {
				return f.Fail(CodeAuth, "logout did not complete", nil)
			}
			return f.Success(newAuthView(s.State()))
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Restore the stored session and show who is signed in.

Exits with code 1 when nobody is signed in.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			f := newFormatter(cmd, rootOpts)

			s, err := signIn(ctx, cmd, rootOpts, f)
			if err != nil {
				return err
			}
			defer s.Close()
			return f.Success(newAuthView(s.State()))
		},
	}
}

// signIn opens a session and restores the stored sign-in. It fails when
// nobody is signed in.
func signIn(ctx context.Context, cmd *cobra.Command, opts *RootOptions, f *OutputFormatter, extra ...app.Option) (*session, error) {
	s, err := openSession(ctx, cmd, opts, extra...)
	if err != nil {
		return nil, err
	}
	envs, err := s.run(ctx, action.AppInit{})
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := checkFailure(f, envs); err != nil {
		s.Close()
		return nil, err
	}
	if !s.State().Auth.IsAuthenticated {
		s.Close()
		return nil, f.Fail(CodeAuth, "not signed in (run fmdesk login)", nil)
	}
	return s, nil
}

// signInAPI is signIn for commands that talk to the facility API.
func signInAPI(ctx context.Context, cmd *cobra.Command, opts *RootOptions, f *OutputFormatter, extra ...app.Option) (*session, error) {
	cfg, err := opts.appConfig()
	if err != nil {
		return nil, err
	}
	if err := requireAPI(cfg); err != nil {
		return nil, err
	}
	return signIn(ctx, cmd, opts, f, extra...)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
