package main

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/observability"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/spf13/cobra"
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Apply dimension adjustments and signals to a user's profile",
	Long: `Evolves the stored profile of a user and records a new snapshot.

Adjustments are deltas per dimension (e.g. --adjust investigative=8). Signals are free-text
statements matched against dimension keywords.`,
	RunE: runEvolve,
}

var (
	evolveUser    string
	evolveAdjust  []string
	evolveSignals []string
	evolveTrigger string
)

func init() {
	evolveCmd.Flags().StringVarP(&evolveUser, "user", "u", "", "User ID (required)")
	evolveCmd.Flags().StringArrayVarP(&evolveAdjust, "adjust", "a", nil, "Dimension adjustment as dimension=delta (repeatable)")
	evolveCmd.Flags().StringArrayVarP(&evolveSignals, "signal", "s", nil, "Behavioral signal text (repeatable)")
	evolveCmd.Flags().StringVar(&evolveTrigger, "trigger", string(types.TriggerReflection), "What caused the change: initial, quiz_retake, challenge_complete, reflection or feedback")

	if err := evolveCmd.MarkFlagRequired("user"); err != nil {
		panic(fmt.Sprintf("failed to mark user flag as required: %v", err))
	}
	rootCmd.AddCommand(evolveCmd)
}

func runEvolve(cmd *cobra.Command, _ []string) error {
	adjustments, err := parseAdjustments(evolveAdjust)
	if err != nil {
		return err
	}
	if len(adjustments) == 0 && len(evolveSignals) == 0 {
		return fmt.Errorf("at least one --adjust or --signal is required")
	}

	ctx := context.Background()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.svc.Evolve(ctx, evolveUser, types.EvolveRequest{
		Adjustments: adjustments,
		Signals:     evolveSignals,
		Trigger:     types.Trigger(evolveTrigger),
	})
	if err != nil {
		return fmt.Errorf("evolution failed: %w", err)
	}

	return render(cmd, result.Snapshot, func(p *observability.Printer) {
		p.PrintSnapshot(&result.Snapshot)
	})
}
