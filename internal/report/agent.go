// Package report generates talent reports with a draft, self-critique, targeted refinement and
// final validation pipeline. Every stage leaves a trace step behind.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/talent-compass/internal/llm"
	"github.com/jonathan/talent-compass/internal/prompts"
	"github.com/jonathan/talent-compass/internal/schemas"
	"github.com/jonathan/talent-compass/internal/types"
	"github.com/jonathan/talent-compass/internal/usage"
	"go.uber.org/zap"
)

// RefinementThreshold is the critique score below which flagged sections are rewritten
const RefinementThreshold = 60.0

// DefaultTimeout bounds each inference call of the pipeline
const DefaultTimeout = 120 * time.Second

// DefaultReportPrompt is used when the request carries no prompt of its own
const DefaultReportPrompt = "Write a personal talent report that explains this person's interest profile, strengths, working preferences and constraints, and suggests career paths that fit."

const promptFile = "report.json"

// Request is one report generation attempt
type Request struct {
	UserID       string
	Context      string
	ReportPrompt string
	// ExpectedCode, when set, must match the report's RIASEC code at final validation
	ExpectedCode string
}

// Agent runs the report pipeline
type Agent struct {
	client  llm.Client
	meter   usage.Meter
	logger  *zap.Logger
	timeout time.Duration
	tier    llm.ModelTier
	now     func() time.Time
	newID   func() uuid.UUID
}

// Option configures an Agent
type Option func(*Agent)

// WithMeter sets the usage meter consulted around every call
func WithMeter(m usage.Meter) Option {
	return func(a *Agent) {
		if m != nil {
			a.meter = m
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithTier selects the model tier used for every stage
func WithTier(t llm.ModelTier) Option {
	return func(a *Agent) { a.tier = t }
}

// WithClock replaces time.Now for step durations and timestamps
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		if now != nil {
			a.now = now
		}
	}
}

// WithIDGenerator replaces uuid.New for run ids
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(a *Agent) {
		if newID != nil {
			a.newID = newID
		}
	}
}

// NewAgent creates a report agent
func NewAgent(client llm.Client, opts ...Option) *Agent {
	a := &Agent{
		client:  client,
		meter:   usage.Nop{},
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
		tier:    llm.TierAdvanced,
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run carries the state of one generation attempt
type run struct {
	req        Request
	report     types.Report
	critique   types.Critique
	confidence float64
	trace      []types.ReportTraceStep
}

func (r *run) addStep(name, description, input, output string, change float64, started, ended time.Time, meta map[string]string) {
	r.trace = append(r.trace, types.ReportTraceStep{
		Step:             len(r.trace) + 1,
		Name:             name,
		Description:      description,
		InputSummary:     input,
		OutputSummary:    output,
		ConfidenceChange: change,
		DurationMs:       ended.Sub(started).Milliseconds(),
		Metadata:         meta,
	})
}

// Generate runs the pipeline. The trace has three steps when the critique clears
// RefinementThreshold and four when refinement ran. Any validation failure aborts the attempt.
func (a *Agent) Generate(ctx context.Context, req Request) (*types.ReportResult, error) {
	if a.client == nil {
		return nil, fmt.Errorf("report generation requires an inference client")
	}
	if strings.TrimSpace(req.Context) == "" {
		return nil, fmt.Errorf("report generation requires assessment context")
	}
	if strings.TrimSpace(req.ReportPrompt) == "" {
		req.ReportPrompt = DefaultReportPrompt
	}

	r := &run{req: req}
	runID := a.newID().String()
	logger := a.logger.With(zap.String("run_id", runID), zap.String("user_id", req.UserID))

	if err := a.draft(ctx, r); err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	logger.Debug("draft generated", zap.Int("sections", len(r.report.Sections)))

	flagged, err := a.critique(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("self-critique: %w", err)
	}
	logger.Debug("critique complete", zap.Float64("overall_score", r.critique.OverallScore), zap.Strings("flagged", flagged))

	if r.critique.OverallScore < RefinementThreshold {
		if err := a.refine(ctx, r, flagged); err != nil {
			return nil, fmt.Errorf("targeted refinement: %w", err)
		}
	}

	if err := a.finalize(r); err != nil {
		return nil, fmt.Errorf("final validation: %w", err)
	}

	logger.Info("report generated",
		zap.Int("trace_steps", len(r.trace)),
		zap.Float64("confidence", r.report.Confidence))

	return &types.ReportResult{
		RunID:       runID,
		Report:      r.report,
		Critique:    r.critique,
		Trace:       r.trace,
		GeneratedAt: a.now().UTC(),
	}, nil
}

func (a *Agent) draft(ctx context.Context, r *run) error {
	started := a.now()

	user, err := prompts.Render(promptFile, "report-draft-user", map[string]string{
		"ReportPrompt": r.req.ReportPrompt,
		"Context":      r.req.Context,
	})
	if err != nil {
		return fmt.Errorf("failed to render draft prompt: %w", err)
	}
	prompt, err := a.prompt("report-draft-system", user)
	if err != nil {
		return err
	}

	raw, err := a.call(ctx, r.req.UserID, usage.FeatureReportDraft, "report draft", prompt)
	if err != nil {
		return err
	}

	var draft types.Report
	if err := schemas.Decode(schemas.Report, raw, &draft); err != nil {
		return err
	}
	if err := normalizeReport(&draft); err != nil {
		return err
	}

	r.report = draft
	r.confidence = draft.Confidence
	r.addStep(types.StepDraft,
		"Generate a structured draft from all assessment context",
		fmt.Sprintf("%d characters of context, %d character prompt", len(r.req.Context), len(r.req.ReportPrompt)),
		fmt.Sprintf("%d sections, %d career paths, RIASEC code %s", len(draft.Sections), len(draft.CareerPaths), draft.RIASECCode),
		draft.Confidence, started, a.now(),
		map[string]string{"model": a.client.GetModel(a.tier)})
	return nil
}

// critique scores the draft and returns the ids of sections that need rewriting
func (a *Agent) critique(ctx context.Context, r *run) ([]string, error) {
	started := a.now()

	reportJSON, err := json.MarshalIndent(r.report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}
	user, err := prompts.Render(promptFile, "report-critique-user", map[string]string{
		"Context": r.req.Context,
		"Report":  string(reportJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render critique prompt: %w", err)
	}
	prompt, err := a.prompt("report-critique-system", user)
	if err != nil {
		return nil, err
	}

	raw, err := a.call(ctx, r.req.UserID, usage.FeatureReportCritique, "report critique", prompt)
	if err != nil {
		return nil, err
	}

	var critique types.Critique
	if err := schemas.Decode(schemas.Critique, raw, &critique); err != nil {
		return nil, err
	}
	for i, sc := range critique.Sections {
		if _, ok := r.report.Section(sc.SectionID); !ok {
			return nil, schemas.Fail(schemas.Critique, fmt.Sprintf("sections[%d].section_id", i),
				"critique refers to unknown section %q", sc.SectionID)
		}
	}

	flagged := flaggedSections(r.report, critique)
	calibrated := (r.confidence + critique.OverallScore) / 2
	change := calibrated - r.confidence
	r.critique = critique
	r.confidence = calibrated
	r.report.Confidence = calibrated

	meta := map[string]string{
		"overall_score":      formatScore(critique.OverallScore),
		"contradictions":     fmt.Sprint(len(critique.Contradictions)),
		"unsupported_claims": fmt.Sprint(len(critique.UnsupportedClaims)),
	}
	if len(flagged) > 0 {
		meta["flagged_sections"] = strings.Join(flagged, ",")
	}
	if critique.OverallScore >= RefinementThreshold {
		meta["refinement_skipped"] = "true"
		meta["reason"] = fmt.Sprintf("critique score %s meets the refinement threshold of %s",
			formatScore(critique.OverallScore), formatScore(RefinementThreshold))
	}

	r.addStep(types.StepCritique,
		"Score the evidence behind each section and look for contradictions",
		fmt.Sprintf("draft with %d sections", len(r.report.Sections)),
		fmt.Sprintf("overall score %s, %d of %d sections flagged", formatScore(critique.OverallScore), len(flagged), len(r.report.Sections)),
		change, started, a.now(), meta)
	return flagged, nil
}

type refinement struct {
	Sections   []types.ReportSection `json:"sections" validate:"min=1,dive"`
	Confidence float64               `json:"confidence" validate:"gte=0,lte=100"`
}

func (a *Agent) refine(ctx context.Context, r *run, flagged []string) error {
	started := a.now()

	wanted := make(map[string]bool, len(flagged))
	sections := make([]types.ReportSection, 0, len(flagged))
	for _, id := range flagged {
		if s, ok := r.report.Section(id); ok {
			wanted[id] = true
			sections = append(sections, s)
		}
	}
	sectionsJSON, err := json.MarshalIndent(sections, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sections: %w", err)
	}
	user, err := prompts.Render(promptFile, "report-refine-user", map[string]string{
		"Context":  r.req.Context,
		"Sections": string(sectionsJSON),
		"Findings": findings(r.critique, wanted),
	})
	if err != nil {
		return fmt.Errorf("failed to render refinement prompt: %w", err)
	}
	prompt, err := a.prompt("report-refine-system", user)
	if err != nil {
		return err
	}

	raw, err := a.call(ctx, r.req.UserID, usage.FeatureReportRefine, "report refinement", prompt)
	if err != nil {
		return err
	}

	var out refinement
	if err := schemas.Decode(schemas.Refinement, raw, &out); err != nil {
		return err
	}
	seen := make(map[string]bool, len(out.Sections))
	for i, s := range out.Sections {
		if !wanted[s.ID] {
			return schemas.Fail(schemas.Refinement, fmt.Sprintf("sections[%d].id", i), "section %q was not flagged for refinement", s.ID)
		}
		if seen[s.ID] {
			return schemas.Fail(schemas.Refinement, fmt.Sprintf("sections[%d].id", i), "section %q returned twice", s.ID)
		}
		seen[s.ID] = true
	}

	merged := r.report
	merged.Sections = make([]types.ReportSection, len(r.report.Sections))
	copy(merged.Sections, r.report.Sections)
	for _, s := range out.Sections {
		for i := range merged.Sections {
			if merged.Sections[i].ID == s.ID {
				merged.Sections[i] = s
			}
		}
	}
	merged.Confidence = out.Confidence

	// the merged report must still satisfy the report schema
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode refined report: %w", err)
	}
	var revalidated types.Report
	if err := schemas.Decode(schemas.Report, string(mergedJSON), &revalidated); err != nil {
		return err
	}
	if err := normalizeReport(&revalidated); err != nil {
		return err
	}

	change := out.Confidence - r.confidence
	r.report = revalidated
	r.confidence = out.Confidence

	rewritten := make([]string, 0, len(out.Sections))
	for _, s := range out.Sections {
		rewritten = append(rewritten, s.ID)
	}
	r.addStep(types.StepRefine,
		"Rewrite the sections the critique flagged and revalidate the report",
		fmt.Sprintf("%d flagged sections", len(sections)),
		fmt.Sprintf("%d sections rewritten", len(rewritten)),
		change, started, a.now(),
		map[string]string{
			"requested_sections": strings.Join(flagged, ","),
			"refined_sections":   strings.Join(rewritten, ","),
		})
	return nil
}

func (a *Agent) finalize(r *run) error {
	started := a.now()
	checks, err := Validate(r.report, r.req.ExpectedCode)
	if err != nil {
		return err
	}
	r.addStep(types.StepValidate,
		"Confirm the final report satisfies structural and evidentiary constraints",
		fmt.Sprintf("report with %d sections", len(r.report.Sections)),
		fmt.Sprintf("passed %d checks", checks),
		0, started, a.now(),
		map[string]string{"checks": fmt.Sprint(checks)})
	return nil
}

func (a *Agent) prompt(systemKey, user string) (llm.Prompt, error) {
	system, err := prompts.Get(promptFile, systemKey)
	if err != nil {
		return llm.Prompt{}, fmt.Errorf("failed to load %s prompt: %w", systemKey, err)
	}
	return llm.Prompt{System: system, Parts: []string{user}}, nil
}

// call checks the budget, runs one bounded JSON request and records its usage
func (a *Agent) call(ctx context.Context, userID, feature, op string, prompt llm.Prompt) (string, error) {
	if err := a.meter.Allow(ctx, userID); err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.client.GenerateJSON(callCtx, prompt, a.tier)
	if err != nil {
		return "", llm.WrapTimeout(op, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", llm.ErrEmptyResponse
	}

	a.meter.Record(ctx, types.UsageEvent{
		UserID:      userID,
		Feature:     feature,
		Model:       a.client.GetModel(a.tier),
		InputChars:  prompt.Size(),
		OutputChars: len(raw),
	})
	return raw, nil
}

// flaggedSections returns sections scored below the threshold or with listed issues, in report
// order. When the critique flags nothing specific every section is flagged.
func flaggedSections(report types.Report, critique types.Critique) []string {
	marked := make(map[string]bool)
	for _, sc := range critique.Sections {
		if sc.EvidenceQuality < RefinementThreshold || len(sc.Issues) > 0 {
			marked[sc.SectionID] = true
		}
	}

	var out []string
	for _, s := range report.Sections {
		if marked[s.ID] {
			out = append(out, s.ID)
		}
	}
	if len(out) == 0 && critique.OverallScore < RefinementThreshold {
		for _, s := range report.Sections {
			out = append(out, s.ID)
		}
	}
	return out
}

func findings(c types.Critique, wanted map[string]bool) string {
	var lines []string
	scored := append([]types.SectionCritique(nil), c.Sections...)
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].EvidenceQuality < scored[j].EvidenceQuality })
	for _, sc := range scored {
		if !wanted[sc.SectionID] {
			continue
		}
		line := fmt.Sprintf("- %s (evidence quality %s)", sc.SectionID, formatScore(sc.EvidenceQuality))
		if len(sc.Issues) > 0 {
			line += ": " + strings.Join(sc.Issues, "; ")
		}
		lines = append(lines, line)
	}
	for _, s := range c.Contradictions {
		lines = append(lines, "- contradiction: "+s)
	}
	for _, s := range c.UnsupportedClaims {
		lines = append(lines, "- unsupported: "+s)
	}
	if len(lines) == 0 {
		return "- overall evidence is weak; strengthen every claim with context references"
	}
	return strings.Join(lines, "\n")
}

// normalizeReport rewrites dimension labels to canonical keys and rejects unknown labels
func normalizeReport(r *types.Report) error {
	for i := range r.Sections {
		dims, err := normalizeDims(r.Sections[i].Dimensions, fmt.Sprintf("sections[%d].dimensions", i))
		if err != nil {
			return err
		}
		r.Sections[i].Dimensions = dims
	}
	for i := range r.CareerPaths {
		dims, err := normalizeDims(r.CareerPaths[i].Dimensions, fmt.Sprintf("career_paths[%d].dimensions", i))
		if err != nil {
			return err
		}
		r.CareerPaths[i].Dimensions = dims
	}
	return nil
}

func normalizeDims(labels []types.Dimension, field string) ([]types.Dimension, error) {
	if len(labels) == 0 {
		return labels, nil
	}
	out := make([]types.Dimension, 0, len(labels))
	seen := make(map[types.Dimension]bool, len(labels))
	for j, label := range labels {
		dim, ok := types.ParseDimension(string(label))
		if !ok {
			return nil, schemas.Fail(schemas.Report, fmt.Sprintf("%s[%d]", field, j), "unknown dimension %q", label)
		}
		if !seen[dim] {
			seen[dim] = true
			out = append(out, dim)
		}
	}
	return out, nil
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
