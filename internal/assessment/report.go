package assessment

import (
	"context"
	"fmt"

	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/report"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GenerateReport builds the assessment context, runs the report pipeline and records the run.
// A failed attempt is recorded as failed and its error returned; no partial report is stored.
func (s *Service) GenerateReport(ctx context.Context, userID string, req types.ReportRequest) (*types.ReportResult, error) {
	if s.reporter == nil {
		return nil, fmt.Errorf("report generation is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	in, err := s.loadReportContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Profile == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrProfileNotFound)
	}
	in.Narrative = s.sessionNarrative(userID)

	runID := s.newID()
	if err := s.store.CreateReportRun(ctx, runID, userID, in.Confidence.OverallConfidence); err != nil {
		return nil, err
	}
	logger := s.logger.With(zap.String("user_id", userID), zap.String("run_id", runID.String()))

	result, genErr := s.reporter.Generate(ctx, report.Request{
		UserID:       userID,
		Context:      report.BuildContext(in),
		ReportPrompt: req.ReportPrompt,
		ExpectedCode: in.Profile.RIASECCode,
	})
	if genErr != nil {
		// record the failure even when the request context is gone
		if err := s.store.FailReportRun(context.WithoutCancel(ctx), runID, genErr); err != nil {
			logger.Warn("failed to record report failure", zap.Error(err))
		}
		logger.Warn("report generation failed", zap.Error(genErr))
		return nil, genErr
	}

	result.RunID = runID.String()
	if err := s.store.CompleteReportRun(ctx, runID, result); err != nil {
		return nil, err
	}
	logger.Info("report stored",
		zap.Int("trace_steps", len(result.Trace)),
		zap.Float64("confidence", result.Report.Confidence))
	return result, nil
}

// LatestReport returns the user's most recent completed report run
func (s *Service) LatestReport(ctx context.Context, userID string) (*db.ReportRun, error) {
	run, err := s.store.LatestReport(ctx, userID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrReportNotFound)
	}
	return run, nil
}

// loadReportContext reads everything the report context needs concurrently
func (s *Service) loadReportContext(ctx context.Context, userID string) (report.ContextInput, error) {
	var (
		in          report.ContextInput
		conf        types.ConfidenceProfile
		correlation *types.CorrelationResult
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Profile, err = s.store.GetComputedProfile(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		conf, err = s.ConfidenceProfile(gCtx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		correlation, err = s.store.LatestCorrelation(gCtx, userID)
		return err
	})
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
		return report.ContextInput{}, fmt.Errorf("failed to load report context: %w", err)
	}

	in.Confidence = &conf
	if correlation != nil {
		in.Insights = correlation.Insights
	}
	return in, nil
}
