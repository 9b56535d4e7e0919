package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/talent-compass/internal/assessment"
	"github.com/jonathan/talent-compass/internal/observability"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/spf13/cobra"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Analyze a recorded session transcript offline",
	Long: `Replays a JSON array of observations (as accepted by the observations endpoint) through a
session timeline and prints its trends, topic correlations and narrative. No database is needed.`,
	RunE: runTimeline,
}

var timelineInput string

func init() {
	timelineCmd.Flags().StringVarP(&timelineInput, "in", "i", "", "Path to observations JSON file (required)")

	if err := timelineCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(timelineCmd)
}

func runTimeline(cmd *cobra.Command, _ []string) error {
	content, err := os.ReadFile(timelineInput)
	if err != nil {
		return fmt.Errorf("failed to read observations file %s: %w", timelineInput, err)
	}
	var observations []types.ObservationRequest
	if err := json.Unmarshal(content, &observations); err != nil {
		return fmt.Errorf("failed to unmarshal observations JSON: %w", err)
	}

	view, err := replay(observations)
	if err != nil {
		return err
	}
	return render(cmd, view, func(p *observability.Printer) {
		p.PrintTimeline(view.Trends, view.Correlations, view.Narrative)
	})
}

// replay runs observations through an in-memory session. Live sessions never touch the store.
// The session clock follows the transcript timestamps, so snapshots land where they did live.
func replay(observations []types.ObservationRequest) (*assessment.TimelineView, error) {
	const user = "cli"
	clock := newTranscriptClock(observations)
	svc := assessment.New(nil, nil, nil, assessment.WithClock(clock.Now))

	sessionID, err := svc.StartSession(user)
	if err != nil {
		return nil, err
	}
	for i, obs := range observations {
		if obs.Timestamp != nil {
			clock.advance(*obs.Timestamp)
		}
		if _, err := svc.Observe(user, sessionID, obs); err != nil {
			return nil, fmt.Errorf("observation %d: %w", i+1, err)
		}
	}
	return svc.Timeline(user, sessionID)
}

// transcriptClock reports the latest timestamp seen in a transcript. It starts at the first
// timestamped observation, or the wall clock when there is none, and never moves backwards.
type transcriptClock struct {
	now time.Time
}

func newTranscriptClock(observations []types.ObservationRequest) *transcriptClock {
	for _, obs := range observations {
		if obs.Timestamp != nil {
			return &transcriptClock{now: obs.Timestamp.UTC()}
		}
	}
	return &transcriptClock{now: time.Now().UTC()}
}

func (c *transcriptClock) Now() time.Time { return c.now }

func (c *transcriptClock) advance(t time.Time) {
	if t.After(c.now) {
		c.now = t.UTC()
	}
}
