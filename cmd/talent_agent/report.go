package main

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/observability"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a career report for a user",
	Long: `Runs the draft, self-critique, refinement and validation pipeline over the user's profile and
evidence, stores the run and prints its trace.`,
	RunE: runReport,
}

var (
	reportUser   string
	reportPrompt string
)

func init() {
	reportCmd.Flags().StringVarP(&reportUser, "user", "u", "", "User ID (required)")
	reportCmd.Flags().StringVarP(&reportPrompt, "prompt", "p", "", "Extra instructions for the report")

	if err := reportCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, appOptions{inference: true})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.GenerateReport(ctx, reportUser, types.ReportRequest{ReportPrompt: reportPrompt})
	if err != nil {
		return fmt.Errorf("report generation failed: %w", err)
	}
	return render(cmd, result, func(p *observability.Printer) {
		p.PrintReportTrace(result)
	})
}
