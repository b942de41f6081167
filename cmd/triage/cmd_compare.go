package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/reporting"
)

func newCompareCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "compare <report1.json> <report2.json> [report3.json ...]",
		Short: "Compare saved evaluation reports",
		Long: `Compare reports from multiple evaluation runs side by side.

Loads two or more report JSON files written by "evaluate --output" and shows
each strategy's overall score per run with the change from first to last.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unsupported format %q: must be table or json", format)
			}

			reports := make([]*models.ComparisonReport, 0, len(args))
			for _, path := range args {
				r, err := reporting.LoadReport(path)
				if err != nil {
					return fmt.Errorf("failed to load %s: %w", path, err)
				}
				reports = append(reports, r)
			}

			c, err := reporting.Compare(args, reports)
			if err != nil {
				return err
			}
			if format == "json" {
				return reporting.WriteComparisonJSON(cmd.OutOrStdout(), c)
			}
			reporting.WriteComparisonTable(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or json")
	return cmd
}
