package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
)

// UsersListOptions holds flags for users list.
type UsersListOptions struct {
	*RootOptions
	Search string
	Role   string
	Status string
	Sort   string
	Desc   bool
	Force  bool
}

// InputOptions holds the JSON input flags of create and update commands.
type InputOptions struct {
	*RootOptions
	Data     string
	FromFile string
}

func (o *InputOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Data, "data", "", "input as JSON")
	cmd.Flags().StringVar(&o.FromFile, "from-file", "", "read the JSON input from a file")
}

// NewUsersCommand creates the users command group.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
		Long: `List, inspect, create, update and delete users.

The user list is cached for five minutes; use --force to reload it.

Examples:
  fmdesk users list --role admin --sort email
  fmdesk users get u-100
  fmdesk users create --data '{"email":"kim@example.com","first_name":"Kim","role":"staff"}'
  fmdesk users update u-200 --data '{"status":"inactive"}'
  fmdesk users delete u-200`,
	}

	cmd.AddCommand(newUsersListCommand(rootOpts))
	cmd.AddCommand(newUsersGetCommand(rootOpts))
	cmd.AddCommand(newUsersCreateCommand(rootOpts))
	cmd.AddCommand(newUsersUpdateCommand(rootOpts))
	cmd.AddCommand(newUsersDeleteCommand(rootOpts))

	return cmd
}

func newUsersListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UsersListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List users",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsersList(contextOrBackground(cmd.Context()), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "match name or email")
	cmd.Flags().StringVar(&opts.Role, "role", "", "filter by role")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort by name|email|role|status")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "sort descending")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "bypass the five minute cache")

	return cmd
}

func runUsersList(ctx context.Context, opts *UsersListOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	s, err := signInAPI(ctx, cmd, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer s.Close()

	filters := model.UserFilters{
		Search:  opts.Search,
		Role:    model.Role(opts.Role),
		Status:  model.UserStatus(opts.Status),
		SortKey: model.UserSortKey(opts.Sort),
	}
	if opts.Desc {
		filters.Direction = model.SortDesc
	}
	if _, err := s.run(ctx, action.UsersSetFilters{Filters: filters}); err != nil {
		return err
	}

	envs, err := s.run(ctx, action.UsersLoad{Force: opts.Force})
	if err != nil {
		return err
	}
	if err := checkFailure(f, envs); err != nil {
		return err
	}

	st := s.State()
	return f.Success(UserList{
		Users:  s.Selectors.FilteredUsers(st),
		Stats:  s.Selectors.UserStats(st),
		Cached: logged(envs, action.TypeUsersLoadCached),
	})
}

func newUsersGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one user",
		Args:          cobra.ExactArgs(1),
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

			envs, err := s.run(ctx, action.UserLoad{ID: args[0]})
			if err != nil {
				return err
			}
			if err := checkFailure(f, envs); err != nil {
				return err
			}
			if _, err := s.run(ctx, action.UserSelect{ID: args[0]}); err != nil {
				return err
			}
			u := s.Selectors.SelectedUser(s.State())
			if u == nil {
				return f.Fail(CodeNotFound, "user "+args[0]+" not found", nil)
			}
			return f.Success(UserDetail{User: *u})
		},
	}
}

func newUsersCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InputOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "create",
		Short:         "Create a user",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var u model.User
			if err := readData(opts.Data, opts.FromFile, &u); err != nil {
				return err
			}
			return mutate(cmd, rootOpts, action.UserCreate{User: u}, func(envs []action.Envelope) any {
				created, _ := find[action.UserCreateSuccess](envs)
				return UserDetail{User: created.User}
			})
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func newUsersUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InputOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "update <id>",
		Short:         "Update fields of a user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var changes model.UserChanges
			if err := readData(opts.Data, opts.FromFile, &changes); err != nil {
				return err
			}
			return mutate(cmd, rootOpts, action.UserUpdate{ID: args[0], Changes: changes}, func(envs []action.Envelope) any {
				updated, _ := find[action.UserUpdateSuccess](envs)
				return UserDetail{User: updated.User}
			})
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func newUsersDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a user",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, rootOpts, action.UserDelete{ID: args[0]}, func([]action.Envelope) any {
				return Deleted{ID: args[0]}
			})
		},
	}
}

// mutate signs in, dispatches act and prints result(logged actions) unless
// one of them failed.
func mutate(cmd *cobra.Command, opts *RootOptions, act action.Action, result func([]action.Envelope) any) error {
	ctx := contextOrBackground(cmd.Context())
	f := newFormatter(cmd, opts)
	s, err := signInAPI(ctx, cmd, opts, f)
	if err != nil {
		return err
	}
	defer s.Close()

	envs, err := s.run(ctx, act)
	if err != nil {
		return err
	}
	if err := checkFailure(f, envs); err != nil {
		return err
	}
	return f.Success(result(envs))
}
