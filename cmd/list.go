// File: cmd/list.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/observability"
	"github.com/xkilldash9x/nodelib/internal/orchestrator"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		format     string
		activeOnly bool
	)

	listCmd := &cobra.Command{
		Use:   "list [specifier...]",
		Short: "List library candidates without running their lifecycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()

			comps, err := initializeComponents(ctx, opts.cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer comps.Shutdown()

			orch := comps.Orchestrator
			if err := orch.Populate(ctx, args); err != nil {
				return err
			}
			return renderCandidates(cmd.OutOrStdout(), format, candidates(orch, activeOnly))
		},
	}

	listCmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	listCmd.Flags().BoolVar(&activeOnly, "active", false, "only show active candidates")
	return listCmd
}

func candidates(orch *orchestrator.Orchestrator, activeOnly bool) []lifecycle.Entry {
	if activeOnly {
		return orch.Directory().ActiveCandidates()
	}
	return orch.Directory().AllCandidates()
}
