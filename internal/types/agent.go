// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import (
	"time"

	"github.com/google/uuid"
)

// ActionType is one entry of the fixed next-action catalogue
type ActionType string

// Action catalogue, in tie-break order
const (
	ActionResumeQuiz       ActionType = "resume_quiz"
	ActionStartQuiz        ActionType = "start_quiz"
	ActionConnectSource    ActionType = "connect_source"
	ActionStartSession     ActionType = "start_session"
	ActionGenerateReport   ActionType = "generate_report"
	ActionRegenerateReport ActionType = "regenerate_report"
)

// ActionCatalogue returns the catalogue in its fixed tie-break order
func ActionCatalogue() []ActionType {
	return []ActionType{
		ActionResumeQuiz,
		ActionStartQuiz,
		ActionConnectSource,
		ActionStartSession,
		ActionGenerateReport,
		ActionRegenerateReport,
	}
}

// CatalogueIndex returns the tie-break position of the action, or -1
func (a ActionType) CatalogueIndex() int {
	for i, t := range ActionCatalogue() {
		if t == a {
			return i
		}
	}
	return -1
}

// AgentAction is a stateless recommendation regenerated on every evaluation
type AgentAction struct {
	Type       ActionType  `json:"type"`
	Priority   int         `json:"priority"` // 0-100, higher first
	Reason     string      `json:"reason"`
	Dimensions []Dimension `json:"dimensions,omitempty"`
	ModuleID   string      `json:"module_id,omitempty"`
}

// DecisionOutcome records what the user did with a recommendation
type DecisionOutcome string

// Decision outcomes
const (
	OutcomePending  DecisionOutcome = "pending"
	OutcomeAccepted DecisionOutcome = "accepted"
	OutcomeRejected DecisionOutcome = "rejected"
)

// Valid reports whether o is a known outcome
func (o DecisionOutcome) Valid() bool {
	switch o {
	case OutcomePending, OutcomeAccepted, OutcomeRejected:
		return true
	}
	return false
}

// AgentDecision is the audit record of one evaluation. Outcome is the only mutable field.
type AgentDecision struct {
	ID               uuid.UUID       `json:"id"`
	UserID           string          `json:"user_id,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
	Action           AgentAction     `json:"action"`
	Reason           string          `json:"reason"`
	ConfidenceBefore float64         `json:"confidence_before"`
	ConfidenceAfter  float64         `json:"confidence_after"` // projected, if the action is taken
	Outcome          DecisionOutcome `json:"outcome"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
}

// AgentState summarizes everything the evaluator looks at. Built fresh per evaluation.
type AgentState struct {
	UserID              string            `json:"user_id,omitempty"`
	ConnectedSources    int               `json:"connected_sources"`
	CompletedModules    []string          `json:"completed_modules,omitempty"`
	InProgressModules   []string          `json:"in_progress_modules,omitempty"`
	SessionCompleted    bool              `json:"session_completed"`
	SessionInsightCount int               `json:"session_insight_count"`
	Profile             ConfidenceProfile `json:"profile"`
	Gaps                []DimensionGap    `json:"gaps"`
	HasReport           bool              `json:"has_report"`
	// ReportConfidence is the overall confidence at the time the existing report was generated.
	ReportConfidence  float64 `json:"report_confidence,omitempty"`
	OverallConfidence float64 `json:"overall_confidence"`
}
