// Package correlation finds patterns that only appear when data sources, quizzes and the live
// session are read together.
package correlation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/talent-compass/internal/llm"
	"github.com/jonathan/talent-compass/internal/prompts"
	"github.com/jonathan/talent-compass/internal/schemas"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/jonathan/talent-compass/internal/usage"
	"go.uber.org/zap"
)

// MinSourceCategories is the number of distinct evidence categories required before the
// inference service is consulted
const MinSourceCategories = 2

// DefaultTimeout bounds a single correlation request
const DefaultTimeout = 60 * time.Second

const promptFile = "correlation.json"

// Input is the evidence available for one user
type Input struct {
	UserID          string
	DataInsights    []types.DataInsight
	QuizScores      []types.QuizScore
	SessionInsights []types.SessionInsight
	Signals         []string
}

// SourceCategories returns the evidence categories present, in source type order
func (in Input) SourceCategories() []types.SourceType {
	var out []types.SourceType
	if len(in.QuizScores) > 0 {
		out = append(out, types.SourceQuiz)
	}
	if len(in.SessionInsights) > 0 || len(in.Signals) > 0 {
		out = append(out, types.SourceSession)
	}
	if len(in.DataInsights) > 0 {
		out = append(out, types.SourceDataSource)
	}
	return out
}

// Correlator issues correlation requests against the inference service
type Correlator struct {
	client  llm.Client
	meter   usage.Meter
	logger  *zap.Logger
	timeout time.Duration
	tier    llm.ModelTier
}

// Option configures a Correlator
type Option func(*Correlator)

// WithMeter sets the usage meter consulted before and after each call
func WithMeter(m usage.Meter) Option {
	return func(c *Correlator) {
		if m != nil {
			c.meter = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Correlator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTier selects the model tier used for correlation
func WithTier(t llm.ModelTier) Option {
	return func(c *Correlator) { c.tier = t }
}

// New creates a Correlator
func New(client llm.Client, opts ...Option) *Correlator {
	c := &Correlator{
		client:  client,
		meter:   usage.Nop{},
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
		tier:    llm.TierStandard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correlate returns the cross-source insights for in. With evidence from fewer than
// MinSourceCategories categories it returns an empty result without calling the service.
// A response that fails decoding or validation is returned as an error, never as a partial result.
func (c *Correlator) Correlate(ctx context.Context, in Input) (*types.CorrelationResult, error) {
	cats := in.SourceCategories()
	if len(cats) < MinSourceCategories {
		c.logger.Debug("skipping correlation, not enough source diversity",
			zap.String("user_id", in.UserID),
			zap.Int("source_categories", len(cats)))
		return &types.CorrelationResult{
			Insights: []types.CorrelatedInsight{},
			Summary:  insufficientSummary(cats),
		}, nil
	}

	if c.client == nil {
		return nil, fmt.Errorf("correlation requires an inference client")
	}
	if err := c.meter.Allow(ctx, in.UserID); err != nil {
		return nil, err
	}

	prompt, err := buildPrompt(in)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.client.GenerateJSON(callCtx, prompt, c.tier)
	if err != nil {
		return nil, fmt.Errorf("correlation request failed: %w", llm.WrapTimeout("correlation", err))
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("correlation request failed: %w", llm.ErrEmptyResponse)
	}

	var result types.CorrelationResult
	if err := schemas.Decode(schemas.Correlation, raw, &result); err != nil {
		return nil, err
	}
	if err := normalizeDimensions(result.Insights); err != nil {
		return nil, err
	}
	if result.Insights == nil {
		result.Insights = []types.CorrelatedInsight{}
	}

	c.meter.Record(ctx, types.UsageEvent{
		UserID:      in.UserID,
		Feature:     usage.FeatureCorrelation,
		Model:       c.client.GetModel(c.tier),
		InputChars:  prompt.Size(),
		OutputChars: len(raw),
	})
	c.logger.Info("correlation complete",
		zap.String("user_id", in.UserID),
		zap.Int("insights", len(result.Insights)),
		zap.Duration("elapsed", time.Since(start)))

	return &result, nil
}

func buildPrompt(in Input) (llm.Prompt, error) {
	system, err := prompts.Get(promptFile, "correlation-system")
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("failed to load correlation prompt: %w", err)
	}
	user, err := prompts.Render(promptFile, "correlation-user", map[string]string{
		"DataSummary":    SummarizeDataSources(in.DataInsights),
		"QuizSummary":    SummarizeQuizzes(in.QuizScores),
		"SessionSummary": SummarizeSession(in.SessionInsights, in.Signals),
	})
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("failed to render correlation prompt: %w", err)
	}
	return llm.Prompt{System: system, Parts: []string{user}}, nil
}

// normalizeDimensions rewrites free-form dimension labels to canonical keys and rejects the
// response when any label is unknown
func normalizeDimensions(insights []types.CorrelatedInsight) error {
	for i := range insights {
		seen := make(map[types.Dimension]bool, len(insights[i].Dimensions))
		dims := make([]types.Dimension, 0, len(insights[i].Dimensions))
		for j, label := range insights[i].Dimensions {
			dim, ok := types.ParseDimension(string(label))
			if !ok {
				return schemas.Fail(schemas.Correlation,
					fmt.Sprintf("insights[%d].dimensions[%d]", i, j), "unknown dimension %q", label)
			}
			if seen[dim] {
				continue
			}
			seen[dim] = true
			dims = append(dims, dim)
		}
		insights[i].Dimensions = dims
	}
	return nil
}

func insufficientSummary(cats []types.SourceType) string {
	if len(cats) == 0 {
		return "No evidence yet. Complete a quiz, connect a data source or run a live session to unlock cross-source insights."
	}
	return fmt.Sprintf("Only %s evidence is available. Cross-source insights need at least %d evidence types.",
		strings.ReplaceAll(string(cats[0]), "_", " "), MinSourceCategories)
}
