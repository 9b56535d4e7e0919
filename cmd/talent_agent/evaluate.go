package main

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/observability"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Rank the next assessment actions for a user",
	Long: `Builds the user's agent state from stored evidence and lists the recommended actions by priority.
With --decide the top action is recorded as a pending decision.`,
	RunE: runEvaluate,
}

var (
	evaluateUser   string
	evaluateDecide bool
)

func init() {
	evaluateCmd.Flags().StringVarP(&evaluateUser, "user", "u", "", "User ID (required)")
	evaluateCmd.Flags().BoolVar(&evaluateDecide, "decide", false, "Record the top action as a pending decision")

	if err := evaluateCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if !evaluateDecide {
		actions, err := a.svc.Evaluate(ctx, evaluateUser)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}
		return render(cmd, actions, func(p *observability.Printer) {
			p.PrintActions(actions)
		})
	}

	decision, err := a.svc.Decide(ctx, evaluateUser)
	if err != nil {
		return fmt.Errorf("decision failed: %w", err)
	}
	if decision == nil {
		return render(cmd, nil, func(p *observability.Printer) {
			p.PrintActions(nil)
		})
	}
	return render(cmd, decision, func(p *observability.Printer) {
		p.PrintActions([]types.AgentAction{decision.Action})
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Decision %s recorded (%s)\n", decision.ID, decision.Reason)
	})
}
