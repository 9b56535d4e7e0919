// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var requestValidator = validator.New()

// EvolveRequest asks for one bounded profile update
type EvolveRequest struct {
	Signals     []string           `json:"signals,omitempty"`
	Adjustments map[string]float64 `json:"adjustments" validate:"required_without=Signals"`
	Trigger     Trigger            `json:"trigger" validate:"required,oneof=initial quiz_retake challenge_complete reflection feedback"`
}

// OutcomeRequest records what the user did with a recommended action
type OutcomeRequest struct {
	Outcome DecisionOutcome `json:"outcome" validate:"required,oneof=accepted rejected"`
}

// ObservationRequest appends one behavioral observation to a live session
type ObservationRequest struct {
	Observation string     `json:"observation" validate:"required"`
	Category    string     `json:"category" validate:"required"`
	Confidence  float64    `json:"confidence" validate:"gte=0,lte=1"`
	Evidence    string     `json:"evidence,omitempty"`
	Dimension   string     `json:"dimension,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// CorrelateRequest carries the evidence to correlate
type CorrelateRequest struct {
	DataInsights    []DataInsight    `json:"data_insights,omitempty" validate:"dive"`
	QuizScores      []QuizScore      `json:"quiz_scores,omitempty" validate:"dive"`
	SessionInsights []SessionInsight `json:"session_insights,omitempty"`
	Signals         []string         `json:"signals,omitempty"`
}

// ReportRequest starts a report generation
type ReportRequest struct {
	ReportPrompt string `json:"report_prompt,omitempty" validate:"max=4000"`
}

// ProfileRequest seeds a user's computed profile from an initial assessment
type ProfileRequest struct {
	DimensionScores map[string]float64 `json:"dimension_scores" validate:"required,min=1,dive,gte=0,lte=100"`
	Constraints     map[string]string  `json:"constraints,omitempty"`
}

// QuizAnswer is one scored dimension within a quiz submission
type QuizAnswer struct {
	Dimension string  `json:"dimension" validate:"required"`
	Score     float64 `json:"score" validate:"gte=0,lte=100"`
	Rationale string  `json:"rationale,omitempty"`
}

// QuizResultRequest records scored answers for one quiz module
type QuizResultRequest struct {
	ModuleID  string       `json:"module_id" validate:"required"`
	Answers   []QuizAnswer `json:"answers" validate:"required,min=1,dive"`
	Completed bool         `json:"completed"`
}

// DataSourceRequest connects an external data source by its distilled insight
type DataSourceRequest struct {
	Insight DataInsight `json:"insight"`
}

// Validate validates the EvolveRequest using the validator.
func (r *EvolveRequest) Validate() error {
	return requestValidator.Struct(r)
}

// Validate validates the OutcomeRequest using the validator.
func (r *OutcomeRequest) Validate() error {
	return requestValidator.Struct(r)
}

// Validate validates the ObservationRequest using the validator.
func (r *ObservationRequest) Validate() error {
	return requestValidator.Struct(r)
}

// Validate validates the CorrelateRequest using the validator.
func (r *CorrelateRequest) Validate() error {
	return requestValidator.Struct(r)
}

// Validate validates the ReportRequest using the validator.
func (r *ReportRequest) Validate() error {
	return requestValidator.Struct(r)
}

// Validate validates the ProfileRequest using the validator.
func (r *ProfileRequest) Validate() error {
	return requestValidator.Struct(r)
}

// Validate validates the QuizResultRequest using the validator.
func (r *QuizResultRequest) Validate() error {
	return requestValidator.Struct(r)
}

// Validate validates the DataSourceRequest using the validator.
func (r *DataSourceRequest) Validate() error {
	return requestValidator.Struct(r)
}
