// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import "time"

// DataInsight is the distilled output of one connected data source
type DataInsight struct {
	Source    string    `json:"source" validate:"required"`
	Themes    []string  `json:"themes,omitempty"`
	Skills    []string  `json:"skills,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// QuizScore is one scored answer set for a dimension from a quiz module
type QuizScore struct {
	ModuleID  string    `json:"module_id" validate:"required"`
	Dimension Dimension `json:"dimension" validate:"required"`
	Score     float64   `json:"score" validate:"gte=0,lte=100"`
	Rationale string    `json:"rationale,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// EvidenceRef cites one piece of evidence behind a correlated insight
type EvidenceRef struct {
	SourceType SourceType `json:"source_type" validate:"required,oneof=quiz session data_source"`
	SourceName string     `json:"source_name" validate:"required"`
	Excerpt    string     `json:"excerpt" validate:"required"`
}

// PatternType classifies a cross-source pattern
type PatternType string

// Pattern types
const (
	PatternConvergent   PatternType = "convergent"
	PatternDivergent    PatternType = "divergent"
	PatternHiddenTalent PatternType = "hidden_talent"
)

// CorrelatedInsight is a pattern found across two or more evidence sources
type CorrelatedInsight struct {
	Title               string        `json:"title" validate:"required"`
	Description         string        `json:"description" validate:"required"`
	Dimensions          []Dimension   `json:"dimensions" validate:"min=1"`
	EvidenceSources     []EvidenceRef `json:"evidence_sources" validate:"min=1,dive"`
	CorrelationStrength float64       `json:"correlation_strength" validate:"gte=0,lte=100"`
	SurpriseFactor      float64       `json:"surprise_factor" validate:"gte=0,lte=100"`
	PatternType         PatternType   `json:"pattern_type" validate:"required,oneof=convergent divergent hidden_talent"`
}

// CorrelationResult is the output of one correlation request
type CorrelationResult struct {
	Insights []CorrelatedInsight `json:"insights" validate:"dive"`
	Summary  string              `json:"summary"`
}
