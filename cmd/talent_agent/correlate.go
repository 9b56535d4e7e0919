package main

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/observability"
	"github.com/spf13/cobra"
)

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Correlate a user's stored evidence across sources",
	Long: `Sends the user's quiz scores, session insights and connected data sources to the inference
service and stores the cross-source insights it returns.`,
	RunE: runCorrelate,
}

var correlateUser string

func init() {
	correlateCmd.Flags().StringVarP(&correlateUser, "user", "u", "", "User ID (required)")

	if err := correlateCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}
	rootCmd.AddCommand(correlateCmd)
}

func runCorrelate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, appOptions{inference: true})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.Correlate(ctx, correlateUser, nil)
	if err != nil {
		return fmt.Errorf("correlation failed: %w", err)
	}
	return render(cmd, result, func(p *observability.Printer) {
		p.PrintCorrelation(result)
	})
}
