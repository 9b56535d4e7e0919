package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip[T any](t *testing.T, in T) T {
	t.Helper()
	data, err := json.Marshal(in)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestProfileSnapshot_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	scores := map[Dimension]float64{
		Realistic: 10, Investigative: 90, Artistic: 70,
		Social: 20, Enterprising: 5, Conventional: 40,
	}
	snap := ProfileSnapshot{
		Version:   3,
		Timestamp: ts,
		ComputedProfile: ComputedProfile{
			RIASECCode:       DeriveRIASECCode(scores),
			DimensionScores:  scores,
			ConfidenceScores: map[Dimension]float64{Investigative: 64},
			BaselineScores:   map[Dimension]float64{Investigative: 85},
			Constraints:      map[string]string{"location": "remote"},
		},
		DimensionScores: scores,
		RIASECCode:      "IAC",
		Trigger:         TriggerReflection,
		Deltas:          map[Dimension]float64{Investigative: 5},
	}

	assert.Equal(t, snap, roundTrip(t, snap))
}

func TestConfidenceProfile_RoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC)
	profile := ConfidenceProfile{
		Dimensions: map[Dimension]DimensionConfidence{
			Social: {
				Dimension:   Social,
				Confidence:  72.25,
				SourceCount: 2,
				SourceTypes: []SourceType{SourceQuiz, SourceSession},
				Sources: []ConfidenceSource{
					{Type: SourceQuiz, Dimension: Social, Score: 80, Evidence: "module 2", Timestamp: ts},
					{Type: SourceSession, Dimension: Social, Score: 90, Evidence: "empathy", Timestamp: ts.Add(time.Minute)},
				},
			},
		},
		OverallConfidence: 72.25,
		LastUpdated:       ts,
	}

	assert.Equal(t, profile, roundTrip(t, profile))
}

func TestReportTraceStep_RoundTrip(t *testing.T) {
	step := ReportTraceStep{
		Step:             2,
		Name:             StepCritique,
		Description:      "Scored evidence quality per section",
		InputSummary:     "5 sections",
		OutputSummary:    "overall 72",
		ConfidenceChange: -4.5,
		DurationMs:       1834,
		Metadata:         map[string]string{"refinement_skipped": "true", "reason": "overall score 72 >= 60"},
	}

	assert.Equal(t, step, roundTrip(t, step))
}

func TestAgentDecision_RoundTrip(t *testing.T) {
	d := AgentDecision{
		ID:        uuid.MustParse("0b8f9a5e-5a8b-4d3c-9f51-6f2b0a0e7c11"),
		UserID:    "user-1",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Action: AgentAction{
			Type:       ActionStartSession,
			Priority:   80,
			Reason:     "no session evidence",
			Dimensions: []Dimension{Social, Enterprising},
		},
		Reason:           "no session evidence",
		ConfidenceBefore: 41,
		ConfidenceAfter:  52,
		Outcome:          OutcomePending,
		Metadata:         map[string]any{"gap_count": float64(3)},
	}

	assert.Equal(t, d, roundTrip(t, d))
}

func TestConfidenceSource_JSONFieldNames(t *testing.T) {
	src := ConfidenceSource{Type: SourceDataSource, Dimension: TechnicalSkill, Score: 70, Evidence: "repos"}
	data, err := json.Marshal(src)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"data_source"`)
	assert.Contains(t, string(data), `"dimension":"technical_skill"`)
}

func TestDimensionGap_Shortfall(t *testing.T) {
	g := DimensionGap{CurrentConfidence: 40, TargetConfidence: 75, Importance: 0.5}
	assert.Equal(t, 35.0, g.Shortfall())
	assert.Equal(t, 17.5, g.WeightedShortfall())

	met := DimensionGap{CurrentConfidence: 80, TargetConfidence: 75, Importance: 1}
	assert.Zero(t, met.Shortfall())
	assert.Zero(t, met.WeightedShortfall())
}

func TestActionCatalogue_Order(t *testing.T) {
	cat := ActionCatalogue()
	require.Len(t, cat, 6)
	for i, a := range cat {
		assert.Equal(t, i, a.CatalogueIndex())
	}
	assert.Equal(t, -1, ActionType("dance").CatalogueIndex())
}
