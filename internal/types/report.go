// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import "time"

// ReportSection is one titled part of a talent report
type ReportSection struct {
	ID         string      `json:"id" validate:"required"`
	Title      string      `json:"title" validate:"required"`
	Content    string      `json:"content" validate:"required"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
	Evidence   []string    `json:"evidence" validate:"min=1,dive,required"`
}

// CareerPath is a suggested direction with its fit to the profile
type CareerPath struct {
	Title      string      `json:"title" validate:"required"`
	FitScore   float64     `json:"fit_score" validate:"gte=0,lte=100"`
	Rationale  string      `json:"rationale" validate:"required"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
}

// Report is the structured talent report produced by the report agent
type Report struct {
	Title       string          `json:"title" validate:"required"`
	Summary     string          `json:"summary" validate:"required"`
	RIASECCode  string          `json:"riasec_code" validate:"required,len=3"`
	Sections    []ReportSection `json:"sections" validate:"min=1,dive"`
	CareerPaths []CareerPath    `json:"career_paths" validate:"dive"`
	Confidence  float64         `json:"confidence" validate:"gte=0,lte=100"`
}

// Section returns the section with the given id
func (r *Report) Section(id string) (ReportSection, bool) {
	for _, s := range r.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return ReportSection{}, false
}

// SectionCritique scores the evidence behind one section
type SectionCritique struct {
	SectionID       string   `json:"section_id" validate:"required"`
	EvidenceQuality float64  `json:"evidence_quality" validate:"gte=0,lte=100"`
	Issues          []string `json:"issues,omitempty"`
}

// Critique is the self-review of a draft report
type Critique struct {
	OverallScore      float64           `json:"overall_score" validate:"gte=0,lte=100"`
	Sections          []SectionCritique `json:"sections" validate:"dive"`
	Contradictions    []string          `json:"contradictions,omitempty"`
	UnsupportedClaims []string          `json:"unsupported_claims,omitempty"`
}

// Report pipeline step names
const (
	StepDraft    = "generate_draft"
	StepCritique = "self_critique"
	StepRefine   = "targeted_refinement"
	StepValidate = "final_validation"
)

// ReportTraceStep records one stage of report generation. Append-only, ordered by Step.
type ReportTraceStep struct {
	Step             int               `json:"step"`
	Name             string            `json:"name"`
	Description      string            `json:"description"`
	InputSummary     string            `json:"input_summary"`
	OutputSummary    string            `json:"output_summary"`
	ConfidenceChange float64           `json:"confidence_change"`
	DurationMs       int64             `json:"duration_ms"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// ReportResult is the final report plus the trace of how it was built
type ReportResult struct {
	RunID       string            `json:"run_id,omitempty"`
	Report      Report            `json:"report"`
	Critique    Critique          `json:"critique"`
	Trace       []ReportTraceStep `json:"trace"`
	GeneratedAt time.Time         `json:"generated_at"`
}
