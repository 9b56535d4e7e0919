// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import "time"

// SourceType identifies the kind of evidence a confidence source came from
type SourceType string

// Source types
const (
	SourceQuiz       SourceType = "quiz"
	SourceSession    SourceType = "session"
	SourceDataSource SourceType = "data_source"
)

// AllSourceTypes returns the source types in their fixed order
func AllSourceTypes() []SourceType {
	return []SourceType{SourceQuiz, SourceSession, SourceDataSource}
}

// Valid reports whether s is a known source type
func (s SourceType) Valid() bool {
	switch s {
	case SourceQuiz, SourceSession, SourceDataSource:
		return true
	}
	return false
}

// ConfidenceSource is one evidentiary contribution to a dimension. Immutable once recorded.
type ConfidenceSource struct {
	Type      SourceType `json:"type" validate:"required,oneof=quiz session data_source"`
	Dimension Dimension  `json:"dimension" validate:"required"`
	Score     float64    `json:"score" validate:"gte=0,lte=100"`
	Evidence  string     `json:"evidence"`
	Timestamp time.Time  `json:"timestamp"`
}

// DimensionConfidence aggregates every source recorded for one dimension.
// Confidence is always derived from Sources; SourceTypes is their set projection.
type DimensionConfidence struct {
	Dimension   Dimension          `json:"dimension"`
	Confidence  float64            `json:"confidence"`
	SourceCount int                `json:"source_count"`
	SourceTypes []SourceType       `json:"source_types"`
	Sources     []ConfidenceSource `json:"sources"`
}

// HasSourceType reports whether any source of the given type contributed
func (d DimensionConfidence) HasSourceType(t SourceType) bool {
	for _, st := range d.SourceTypes {
		if st == t {
			return true
		}
	}
	return false
}

// ConfidenceProfile is the per-user confidence model across all dimensions
type ConfidenceProfile struct {
	Dimensions        map[Dimension]DimensionConfidence `json:"dimensions"`
	OverallConfidence float64                           `json:"overall_confidence"`
	LastUpdated       time.Time                         `json:"last_updated"`
}

// DimensionGap is derived evaluator input: how far a dimension is from its target confidence
type DimensionGap struct {
	Dimension          Dimension    `json:"dimension"`
	CurrentConfidence  float64      `json:"current_confidence"`
	TargetConfidence   float64      `json:"target_confidence"`
	MissingSourceTypes []SourceType `json:"missing_source_types"`
	Importance         float64      `json:"importance"`
}

// Shortfall returns how many points the dimension is below target (never negative)
func (g DimensionGap) Shortfall() float64 {
	if g.CurrentConfidence >= g.TargetConfidence {
		return 0
	}
	return g.TargetConfidence - g.CurrentConfidence
}

// WeightedShortfall scales the shortfall by the gap's importance
func (g DimensionGap) WeightedShortfall() float64 {
	return g.Shortfall() * g.Importance
}
