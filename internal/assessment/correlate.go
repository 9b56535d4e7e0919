package assessment

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/correlation"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Correlate finds cross-source patterns. Evidence in req is used when present, otherwise
// the user's stored evidence is loaded. Results that came from inference are persisted.
func (s *Service) Correlate(ctx context.Context, userID string, req *types.CorrelateRequest) (*types.CorrelationResult, error) {
	if s.correlator == nil {
		return nil, fmt.Errorf("correlation is not configured")
	}

	var in correlation.Input
	if req != nil && hasEvidence(req) {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		in = correlation.Input{
			DataInsights:    req.DataInsights,
			QuizScores:      req.QuizScores,
			SessionInsights: req.SessionInsights,
			Signals:         req.Signals,
		}
	} else {
		loaded, err := s.loadEvidence(ctx, userID)
		if err != nil {
			return nil, err
		}
		in = loaded
	}
	in.UserID = userID

	result, err := s.correlator.Correlate(ctx, in)
	if err != nil {
		return nil, err
	}

	if len(in.SourceCategories()) >= correlation.MinSourceCategories {
		if err := s.store.SaveCorrelation(ctx, userID, *result); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("correlation stored",
		zap.String("user_id", userID),
		zap.Int("insights", len(result.Insights)))
	return result, nil
}

func hasEvidence(req *types.CorrelateRequest) bool {
	return len(req.DataInsights) > 0 || len(req.QuizScores) > 0 || len(req.SessionInsights) > 0 || len(req.Signals) > 0
}

// loadEvidence reads the three evidence kinds concurrently
func (s *Service) loadEvidence(ctx context.Context, userID string) (correlation.Input, error) {
	var in correlation.Input

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.DataInsights, err = s.store.ListDataInsights(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		in.QuizScores, err = s.store.ListQuizScores(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		in.SessionInsights, err = s.store.ListSessionInsights(gCtx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return correlation.Input{}, fmt.Errorf("failed to load evidence: %w", err)
	}
	return in, nil
}
