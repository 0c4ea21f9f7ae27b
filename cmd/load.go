// File: cmd/load.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/observability"
)

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var (
		concurrency    int
		installWorkers int
		format         string
		strict         bool
	)

	loadCmd := &cobra.Command{
		Use:   "load [specifier...]",
		Short: "Discover, validate, install and register every active library",
		Long: `Runs the full lifecycle for every active candidate: configured search paths,
user specifiers, activated curated specifiers, the sandbox directory and any
specifiers given as arguments.

Specifiers:
  github:owner/repo[@ref][//manifest.json]
  pkg:requirement
  sandbox:/path/to/dir
  /path/to/nodes_library.json`,
		Example: `  nodelib load
  nodelib load github:acme/image-nodes@v1.2.0 ./my-lib/nodes_library.json
  nodelib load -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := opts.cfg

			if cmd.Flags().Changed("concurrency") {
				cfg.SetEngineConcurrency(concurrency)
			}
			if cmd.Flags().Changed("install-workers") {
				cfg.SetInstallWorkers(installWorkers)
			}

			comps, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Shutdown()

			orch := comps.Orchestrator
			if err := orch.Populate(ctx, args); err != nil {
				return err
			}

			summary, runErr := orch.Run(ctx)
			if summary != nil {
				if err := renderReports(cmd.OutOrStdout(), format, summary.Reports); err != nil {
					return err
				}
				logger.Info("Lifecycle run complete.",
					zap.String("run_id", summary.RunID),
					zap.Int("usable", summary.Count(schemas.StatusUsable)),
					zap.Int("flawed", summary.Count(schemas.StatusFlawed)),
					zap.Int("unusable", summary.Count(schemas.StatusUnusable)))
			}
			if runErr != nil {
				return runErr
			}
			if strict && summary.Count(schemas.StatusUnusable) > 0 {
				return fmt.Errorf("%d libraries could not be loaded", summary.Count(schemas.StatusUnusable))
			}
			return nil
		},
	}

	loadCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "number of libraries inspected and evaluated at once")
	loadCmd.Flags().IntVarP(&installWorkers, "install-workers", "w", 0, "number of dependency installs run at once")
	loadCmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	loadCmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when any library is unusable")
	return loadCmd
}
