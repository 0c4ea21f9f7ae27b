// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/observability"
)

// reportReader loads the reports persisted for a run.
type reportReader interface {
	GetReportsByRunID(ctx context.Context, runID string) ([]schemas.LibraryReport, error)
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var format string

	reportCmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Show the persisted reports of a previous run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			ctx := cmd.Context()

			st, err := openStore(ctx, opts.cfg.Database().URL, observability.GetLogger())
			if err != nil {
				return err
			}
			defer st.Close()

			return showRunReports(ctx, cmd.OutOrStdout(), st, args[0], format)
		},
	}

	reportCmd.Flags().StringVarP(&format, "output", "o", formatTable, "output format: table, json or yaml")
	return reportCmd
}

func showRunReports(ctx context.Context, w io.Writer, reader reportReader, runID, format string) error {
	reports, err := reader.GetReportsByRunID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load reports for run %s: %w", runID, err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("no reports found for run %s", runID)
	}
	return renderReports(w, format, reports)
}
