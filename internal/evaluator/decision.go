package evaluator

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/types"
)

// ErrOutcomeResolved is returned when a decision already has a final outcome
var ErrOutcomeResolved = errors.New("decision outcome already resolved")

// Decide wraps the top-ranked action into an audit record with a pending outcome.
// It returns false when there is nothing to recommend. newID may be nil.
func Decide(actions []types.AgentAction, state types.AgentState, now time.Time, newID func() uuid.UUID) (types.AgentDecision, bool) {
	if len(actions) == 0 {
		return types.AgentDecision{}, false
	}
	if newID == nil {
		newID = uuid.New
	}
	if now.IsZero() {
		now = time.Now()
	}

	top := actions[0]
	before := state.OverallConfidence
	return types.AgentDecision{
		ID:               newID(),
		UserID:           state.UserID,
		Timestamp:        now.UTC(),
		Action:           top,
		Reason:           top.Reason,
		ConfidenceBefore: before,
		ConfidenceAfter:  ProjectConfidence(top, state),
		Outcome:          types.OutcomePending,
		Metadata: map[string]any{
			"candidates":       len(actions),
			"significant_gaps": len(SignificantGaps(state.Gaps)),
			"priority":         top.Priority,
		},
	}, true
}

// ProjectConfidence estimates overall confidence if the action closes the gaps it targets.
// Report actions do not change confidence.
func ProjectConfidence(action types.AgentAction, state types.AgentState) float64 {
	before := state.OverallConfidence
	if len(action.Dimensions) == 0 {
		return before
	}

	tracked := len(state.Profile.Dimensions)
	if tracked == 0 {
		tracked = len(types.AllDimensions())
	}

	targeted := make(map[types.Dimension]bool, len(action.Dimensions))
	for _, d := range action.Dimensions {
		targeted[d] = true
	}
	var closed float64
	for _, g := range state.Gaps {
		if targeted[g.Dimension] {
			closed += g.Shortfall()
		}
	}

	after := before + closed/float64(tracked)
	if after > 100 {
		after = 100
	}
	return after
}

// ApplyOutcome records the user's response to a pending decision. Nothing else changes.
func ApplyOutcome(decision types.AgentDecision, outcome types.DecisionOutcome) (types.AgentDecision, error) {
	if outcome != types.OutcomeAccepted && outcome != types.OutcomeRejected {
		return decision, fmt.Errorf("invalid decision outcome %q", outcome)
	}
	if decision.Outcome != types.OutcomePending && decision.Outcome != "" {
		return decision, fmt.Errorf("decision %s: %w", decision.ID, ErrOutcomeResolved)
	}
	decision.Outcome = outcome
	return decision, nil
}
