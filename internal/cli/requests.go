package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
)

// RequestsListOptions holds flags for requests list.
type RequestsListOptions struct {
	*RootOptions
	Search   string
	Status   string
	Priority string
	Sort     string
	Asc      bool
}

// NewRequestsCommand creates the requests command group.
func NewRequestsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"service-requests"},
		Short:   "Manage service requests",
		Long: `List, inspect, create, update and delete service requests.

New requests are filed by the signed-in user with status "new".

Examples:
  fmdesk requests list --status new --sort priority
  fmdesk requests create --data '{"title":"Broken window","priority":"urgent"}'
  fmdesk requests update r-1 --data '{"status":"completed"}'
  fmdesk requests delete r-4`,
	}

	cmd.AddCommand(newRequestsListCommand(rootOpts))
	cmd.AddCommand(newRequestsGetCommand(rootOpts))
	cmd.AddCommand(newRequestsCreateCommand(rootOpts))
	cmd.AddCommand(newRequestsUpdateCommand(rootOpts))
	cmd.AddCommand(newRequestsDeleteCommand(rootOpts))

	return cmd
}

func newRequestsListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RequestsListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List service requests, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequestsList(contextOrBackground(cmd.Context()), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "match title or description")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "sort by date|priority|status|title")
	cmd.Flags().BoolVar(&opts.Asc, "asc", false, "sort ascending")

	return cmd
}

func runRequestsList(ctx context.Context, opts *RequestsListOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)
	s, err := signInAPI(ctx, cmd, opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer s.Close()

	filters := model.RequestFilters{
		Search:   opts.Search,
		Status:   model.RequestStatus(opts.Status),
		Priority: model.Priority(opts.Priority),
		SortKey:  model.RequestSortKey(opts.Sort),
	}
	if opts.Asc {
		filters.Direction = model.SortAsc
	}
	if _, err := s.run(ctx, action.RequestsSetFilters{Filters: filters}); err != nil {
		return err
	}

	envs, err := s.run(ctx, action.RequestsLoad{})
	if err != nil {
		return err
	}
	if err := checkFailure(f, envs); err != nil {
		return err
	}

	st := s.State()
	return f.Success(RequestList{
		Requests: s.Selectors.FilteredRequests(st),
		Stats:    s.Selectors.RequestStats(st),
	})
}

func newRequestsGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one service request",
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

			envs, err := s.run(ctx, action.RequestLoad{ID: args[0]})
			if err != nil {
				return err
			}
			if err := checkFailure(f, envs); err != nil {
				return err
			}
			if _, err := s.run(ctx, action.RequestSelect{ID: args[0]}); err != nil {
				return err
			}
			r := s.Selectors.SelectedRequest(s.State())
			if r == nil {
				return f.Fail(CodeNotFound, "service request "+args[0]+" not found", nil)
			}
			return f.Success(RequestDetail{Request: *r})
		},
	}
}

func newRequestsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InputOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "create",
		Short:         "File a service request",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r model.ServiceRequest
			if err := readData(opts.Data, opts.FromFile, &r); err != nil {
				return err
			}
			return mutate(cmd, rootOpts, action.RequestCreate{Request: r}, func(envs []action.Envelope) any {
				created, _ := find[action.RequestCreateSuccess](envs)
				return RequestDetail{Request: created.Request}
			})
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func newRequestsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InputOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "update <id>",
		Short:         "Update fields of a service request",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var changes model.ServiceRequestChanges
			if err := readData(opts.Data, opts.FromFile, &changes); err != nil {
				return err
			}
			return mutate(cmd, rootOpts, action.RequestUpdate{ID: args[0], Changes: changes}, func(envs []action.Envelope) any {
				updated, _ := find[action.RequestUpdateSuccess](envs)
				return RequestDetail{Request: updated.Request}
			})
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func newRequestsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a service request",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, rootOpts, action.RequestDelete{ID: args[0]}, func([]action.Envelope) any {
				return Deleted{ID: args[0]}
			})
		},
	}
}
