package assessment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/confidence"
	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/evaluator"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State assembles the evaluator's view of the user from the store
func (s *Service) State(ctx context.Context, userID string) (types.AgentState, error) {
	var (
		profile   types.ConfidenceProfile
		completed []string
		progress  []string
		data      []types.DataInsight
		session   []types.SessionInsight
		latest    *db.ReportRun
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.ConfidenceProfile(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		completed, progress, err = s.store.ListModules(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		data, err = s.store.ListDataInsights(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		session, err = s.store.ListSessionInsights(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		latest, err = s.store.LatestReport(gCtx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.AgentState{}, fmt.Errorf("failed to load agent state: %w", err)
	}

	state := types.AgentState{
		UserID:              userID,
		ConnectedSources:    len(data),
		CompletedModules:    completed,
		InProgressModules:   progress,
		SessionCompleted:    len(session) > 0,
		SessionInsightCount: len(session),
		Profile:             profile,
		Gaps:                confidence.Gaps(profile, s.policy),
		OverallConfidence:   profile.OverallConfidence,
	}
	if latest != nil {
		state.HasReport = true
		state.ReportConfidence = latest.ProfileConfidence
	}
	return state, nil
}

// Evaluate returns the ranked next actions for the user
func (s *Service) Evaluate(ctx context.Context, userID string) ([]types.AgentAction, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return nil, err
	}
	return evaluator.Evaluate(state), nil
}

// Decide evaluates the user and records the top action as a pending decision.
// It returns nil when there is nothing to recommend.
func (s *Service) Decide(ctx context.Context, userID string) (*types.AgentDecision, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return nil, err
	}
	actions := evaluator.Evaluate(state)
	decision, ok := evaluator.Decide(actions, state, s.now(), s.newID)
	if !ok {
		s.logger.Debug("nothing to decide", zap.String("user_id", userID))
		return nil, nil
	}

	if err := s.store.InsertDecision(ctx, decision); err != nil {
		return nil, err
	}
	s.logger.Info("decision recorded",
		zap.String("user_id", userID),
		zap.String("decision_id", decision.ID.String()),
		zap.String("action", string(decision.Action.Type)),
		zap.Int("priority", decision.Action.Priority),
		zap.Float64("confidence_before", decision.ConfidenceBefore),
		zap.Float64("confidence_after", decision.ConfidenceAfter))
	return &decision, nil
}

// RecordOutcome resolves a pending decision as accepted or rejected. Only the outcome changes.
func (s *Service) RecordOutcome(ctx context.Context, userID string, id uuid.UUID, outcome types.DecisionOutcome) (*types.AgentDecision, error) {
	current, err := s.store.GetDecision(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil || (current.UserID != "" && current.UserID != userID) {
		return nil, fmt.Errorf("decision %s: %w", id, ErrDecisionNotFound)
	}
	if _, err := evaluator.ApplyOutcome(*current, outcome); err != nil {
		if errors.Is(err, evaluator.ErrOutcomeResolved) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	updated, err := s.store.UpdateDecisionOutcome(ctx, id, outcome)
	if err != nil {
		if errors.Is(err, db.ErrDecisionResolved) {
			// lost a race with another outcome
			return nil, fmt.Errorf("decision %s: %w", id, evaluator.ErrOutcomeResolved)
		}
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("decision %s: %w", id, ErrDecisionNotFound)
	}

	s.logger.Info("decision outcome recorded",
		zap.String("user_id", userID),
		zap.String("decision_id", id.String()),
		zap.String("outcome", string(outcome)))
	return updated, nil
}

// Decisions returns the user's most recent decisions, newest first
func (s *Service) Decisions(ctx context.Context, userID string, limit int) ([]types.AgentDecision, error) {
	out, err := s.store.ListDecisions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.AgentDecision{}
	}
	return out, nil
}
