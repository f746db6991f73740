package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/selector"
)

// NewDashboardCommand creates the dashboard command.
func NewDashboardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard of the signed-in user",
		Long: `Load service requests (and users, for administrators) and show the
dashboard. Administrators additionally see user management and system stats.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOrBackground(cmd.Context())
			f := newFormatter(cmd, rootOpts)
			s, err := signInAPI(ctx, cmd, rootOpts, f)
			if err != nil {
				return err
			}
			defer s.Close()

			loads := []action.Action{action.RequestsLoad{}}
			if selector.IsAdmin(s.State()) {
				loads = append(loads, action.UsersLoad{})
			}
			for _, act := range loads {
				envs, err := s.run(ctx, act)
				if err != nil {
					return err
				}
				if err := checkFailure(f, envs); err != nil {
					return err
				}
			}
			return f.Success(DashboardView{Dashboard: s.Dashboard()})
		},
	}
}
