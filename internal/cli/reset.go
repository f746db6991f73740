package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/store"
)

// ResetResult reports what reset removed.
type ResetResult struct {
	Actions     int64 `json:"actions"`
	SignedOut   bool  `json:"signed_out"`
	ThemeForgot bool  `json:"theme_forgotten"`
}

func (r ResetResult) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "Cleared %d logged action(s)\n", r.Actions)
	if r.SignedOut {
		fmt.Fprintln(w, "Removed the stored session")
	}
	if r.ThemeForgot {
		fmt.Fprintln(w, "Removed the theme preference")
	}
}

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	All bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the action log",
		Long: `Clear the action log so the next command starts from the initial state.

The stored session and theme preference are kept unless --all is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(contextOrBackground(cmd.Context()), opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "also remove the stored session and theme preference")

	return cmd
}

func runReset(ctx context.Context, opts *ResetOptions, cmd *cobra.Command) error {
	cfg, err := opts.appConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var res ResetResult
	if res.Actions, err = st.LastSeq(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to read action log", err)
	}
	if err := st.ClearLog(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to clear action log", err)
	}

	if opts.All {
		for _, key := range []string{store.KeySessionToken, store.KeyTheme} {
			_, ok, err := st.GetPreference(ctx, key)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read preferences", err)
			}
			if err := st.DeletePreference(ctx, key); err != nil {
				return WrapExitError(ExitCommandError, "failed to delete preference", err)
			}
			switch key {
			case store.KeySessionToken:
				res.SignedOut = ok
			case store.KeyTheme:
				res.ThemeForgot = ok
			}
		}
	}
	return newFormatter(cmd, opts.RootOptions).Success(res)
}
