// File: cmd/watch.go
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/nodelib/internal/observability"
	"github.com/xkilldash9x/nodelib/internal/orchestrator"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		sandboxDir string
		debounce   time.Duration
	)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the sandbox library whenever its node sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if sandboxDir != "" {
				cfg.SetSandboxDir(sandboxDir)
			}
			dir := cfg.Library().SandboxDir
			if dir == "" {
				return errors.New("no sandbox directory configured; set library.sandbox_dir or pass --sandbox")
			}

			ctx := cmd.Context()
			comps, err := initializeComponents(ctx, cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer comps.Shutdown()

			out := cmd.OutOrStdout()
			w, err := orchestrator.NewWatcher(comps.Orchestrator, dir, comps.Registry,
				orchestrator.WithDebounce(debounce),
				orchestrator.WithReloadHook(func(summary *orchestrator.RunSummary) {
					fmt.Fprintf(out, "Reloaded %s (run %s)\n", dir, summary.RunID)
					_ = renderReports(out, formatTable, summary.Reports)
				}))
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Watching %s. Press Ctrl+C to stop.\n", dir)
			return w.Run(ctx)
		},
	}

	watchCmd.Flags().StringVar(&sandboxDir, "sandbox", "", "sandbox directory to watch (overrides library.sandbox_dir)")
	watchCmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "how long to wait for changes to settle")
	return watchCmd
}
