// File: cmd/inspect.go
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/observability"
	"github.com/xkilldash9x/nodelib/internal/orchestrator"
)

// errUnusable is returned when an inspected library cannot be loaded.
var errUnusable = errors.New("library is unusable")

func newInspectCmd(opts *rootOptions) *cobra.Command {
	var format string

	inspectCmd := &cobra.Command{
		Use:   "inspect <specifier>",
		Short: "Inspect and evaluate a single library without installing it",
		Args:  cobra.ExactArgs(1),
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

			lc, err := comps.Orchestrator.Inspect(ctx, args[0])
			if err != nil {
				return err
			}

			report := orchestrator.BuildReport("", lc, time.Now().UTC())
			out := cmd.OutOrStdout()
			if format != formatTable {
				if err := writeStructured(out, format, report); err != nil {
					return err
				}
			} else {
				name := report.LibraryName
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(out, "Library: %s\n", name)
				fmt.Fprintf(out, "Source:  %s\n", report.ProvenanceKey)
				fmt.Fprintf(out, "State:   %s\n", report.FinalState)
				fmt.Fprintf(out, "Status:  %s\n", report.Status)
				for _, issue := range report.Issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			if report.Status == schemas.StatusUnusable {
				return fmt.Errorf("%w: %s", errUnusable, args[0])
			}
			return nil
		},
	}

	inspectCmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	return inspectCmd
}
