package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
)

// ThemeView is the theme preference.
type ThemeView struct {
	Theme model.Theme `json:"theme"`
}

func (v ThemeView) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintln(w, v.Theme)
}

// NewThemeCommand creates the theme command group.
func NewThemeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the theme preference",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "get",
		Short:         "Show the stored theme",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			s, err := openSession(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := s.Theme.Load(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read theme", err)
			}
			return newFormatter(cmd, rootOpts).Success(ThemeView{Theme: t})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "set <light|dark|system>",
		Short:         "Store the theme preference",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.Theme(args[0])
			if !t.Valid() {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid theme %q: must be light, dark or system", args[0]))
			}
			ctx := contextOrBackground(cmd.Context())
			s, err := openSession(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.run(ctx, action.ThemeSet{Theme: t}); err != nil {
				return err
			}
			stored, err := s.Theme.Load(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read theme", err)
			}
			return newFormatter(cmd, rootOpts).Success(ThemeView{Theme: stored})
		},
	})

	return cmd
}
