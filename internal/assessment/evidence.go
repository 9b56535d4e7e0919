package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/talent-compass/internal/db"
	"github.com/jonathan/talent-compass/internal/types"
	"go.uber.org/zap"
)

// Evidence strength credited to a dimension per source, in confidence points
const (
	// CompletedQuizScore is credited for each dimension a finished quiz module measured.
	CompletedQuizScore = 80.0
	// PartialQuizScore is credited for dimensions measured by an unfinished module.
	PartialQuizScore = 55.0
	// DataSourceMentionScore is credited when a connected source names a dimension.
	DataSourceMentionScore = 60.0
)

// RecordQuiz stores a quiz submission, updates the module status and credits quiz evidence
// to every dimension the answers measured.
func (s *Service) RecordQuiz(ctx context.Context, userID string, req types.QuizResultRequest) ([]types.QuizScore, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	now := s.now().UTC()
	scores := make([]types.QuizScore, 0, len(req.Answers))
	var measured []types.Dimension
	seen := make(map[types.Dimension]bool)
	for _, a := range req.Answers {
		dim, err := types.ParseDimensionStrict(a.Dimension)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		scores = append(scores, types.QuizScore{
			ModuleID:  req.ModuleID,
			Dimension: dim,
			Score:     a.Score,
			Rationale: a.Rationale,
			CreatedAt: now,
		})
		if !seen[dim] {
			seen[dim] = true
			measured = append(measured, dim)
		}
	}

	strength, status := PartialQuizScore, db.ModuleInProgress
	if req.Completed {
		strength, status = CompletedQuizScore, db.ModuleCompleted
	}
	sources := make([]types.ConfidenceSource, 0, len(measured))
	for _, dim := range measured {
		sources = append(sources, types.ConfidenceSource{
			Type:      types.SourceQuiz,
			Dimension: dim,
			Score:     strength,
			Evidence:  fmt.Sprintf("quiz module %s", req.ModuleID),
			Timestamp: now,
		})
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.store.InsertQuizScores(ctx, userID, scores); err != nil {
		return nil, err
	}
	if err := s.store.SetModuleStatus(ctx, userID, req.ModuleID, status); err != nil {
		return nil, err
	}
	if err := s.addSources(ctx, userID, sources); err != nil {
		return nil, err
	}

	s.logger.Info("quiz recorded",
		zap.String("user_id", userID),
		zap.String("module_id", req.ModuleID),
		zap.String("status", status),
		zap.Int("answers", len(scores)))
	return scores, nil
}

// ConnectSource stores the distilled insight of an external data source and credits
// data_source evidence to every dimension its themes, skills or interests name.
func (s *Service) ConnectSource(ctx context.Context, userID string, req types.DataSourceRequest) ([]types.Dimension, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	insight := req.Insight
	insight.Source = strings.ToLower(strings.TrimSpace(insight.Source))
	if insight.Source == "" {
		return nil, invalid("source name is blank")
	}
	now := s.now().UTC()
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = now
	}

	mentioned := MentionedDimensions(insight)
	sources := make([]types.ConfidenceSource, 0, len(mentioned))
	for _, dim := range mentioned {
		sources = append(sources, types.ConfidenceSource{
			Type:      types.SourceDataSource,
			Dimension: dim,
			Score:     DataSourceMentionScore,
			Evidence:  fmt.Sprintf("connected source %s", insight.Source),
			Timestamp: now,
		})
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	if err := s.store.SaveDataInsight(ctx, userID, insight); err != nil {
		return nil, err
	}
	if err := s.addSources(ctx, userID, sources); err != nil {
		return nil, err
	}

	s.logger.Info("data source connected",
		zap.String("user_id", userID),
		zap.String("source", insight.Source),
		zap.Int("dimensions", len(mentioned)))
	return mentioned, nil
}

// MentionedDimensions returns the dimensions named by an insight's themes, skills or
// interests, once each, in declaration order
func MentionedDimensions(insight types.DataInsight) []types.Dimension {
	found := make(map[types.Dimension]bool)
	for _, list := range [][]string{insight.Themes, insight.Skills, insight.Interests} {
		for _, label := range list {
			if dim, ok := types.ParseDimension(label); ok {
				found[dim] = true
			}
		}
	}

	out := make([]types.Dimension, 0, len(found))
	for _, dim := range types.AllDimensions() {
		if found[dim] {
			out = append(out, dim)
		}
	}
	return out
}
