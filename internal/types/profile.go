// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Trigger names the event that caused a profile snapshot
type Trigger string

// Snapshot triggers
const (
	TriggerInitial           Trigger = "initial"
	TriggerQuizRetake        Trigger = "quiz_retake"
	TriggerChallengeComplete Trigger = "challenge_complete"
	TriggerReflection        Trigger = "reflection"
	TriggerFeedback          Trigger = "feedback"
)

// Valid reports whether t is a known trigger
func (t Trigger) Valid() bool {
	switch t {
	case TriggerInitial, TriggerQuizRetake, TriggerChallengeComplete, TriggerReflection, TriggerFeedback:
		return true
	}
	return false
}

// ComputedProfile is the working psychometric state of a user.
// RIASECCode is always derived from DimensionScores, never set independently.
type ComputedProfile struct {
	RIASECCode       string                `json:"riasec_code"`
	DimensionScores  map[Dimension]float64 `json:"dimension_scores"`
	ConfidenceScores map[Dimension]float64 `json:"confidence_scores"`
	// BaselineScores holds each dimension's score at the time evolution first touched it.
	BaselineScores map[Dimension]float64 `json:"baseline_scores,omitempty"`
	Constraints    map[string]string     `json:"constraints,omitempty"`
}

// Clone returns a deep copy of the profile
func (p ComputedProfile) Clone() ComputedProfile {
	out := ComputedProfile{
		RIASECCode:       p.RIASECCode,
		DimensionScores:  cloneScores(p.DimensionScores),
		ConfidenceScores: cloneScores(p.ConfidenceScores),
		BaselineScores:   cloneScores(p.BaselineScores),
	}
	if p.Constraints != nil {
		out.Constraints = make(map[string]string, len(p.Constraints))
		for k, v := range p.Constraints {
			out.Constraints[k] = v
		}
	}
	return out
}

// Validate checks score ranges and that the RIASEC code is derivable from the scores
func (p ComputedProfile) Validate() error {
	for dim, score := range p.DimensionScores {
		if !dim.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
		}
		if math.IsNaN(score) || score < 0 || score > 100 {
			return fmt.Errorf("dimension score for %s out of range: %v", dim, score)
		}
	}
	for dim, conf := range p.ConfidenceScores {
		if math.IsNaN(conf) || conf < 0 || conf > 100 {
			return fmt.Errorf("confidence score for %s out of range: %v", dim, conf)
		}
	}
	if want := DeriveRIASECCode(p.DimensionScores); p.RIASECCode != want {
		return fmt.Errorf("riasec code %q does not match scores (expected %q)", p.RIASECCode, want)
	}
	return nil
}

// DeriveRIASECCode sorts the six RIASEC dimensions by score descending and concatenates
// the first letters of the top three. Ties keep declaration order; missing scores count as 0.
func DeriveRIASECCode(scores map[Dimension]float64) string {
	dims := RIASECDimensions()
	sort.SliceStable(dims, func(i, j int) bool {
		return scores[dims[i]] > scores[dims[j]]
	})

	code := make([]byte, 0, 3)
	for _, dim := range dims[:3] {
		letter, _ := dim.RIASECLetter()
		code = append(code, letter)
	}
	return string(code)
}

// ProfileSnapshot is an immutable, versioned copy of a computed profile
type ProfileSnapshot struct {
	Version         int                   `json:"version"`
	Timestamp       time.Time             `json:"timestamp"`
	ComputedProfile ComputedProfile       `json:"computed_profile"`
	DimensionScores map[Dimension]float64 `json:"dimension_scores"`
	RIASECCode      string                `json:"riasec_code"`
	Trigger         Trigger               `json:"trigger"`
	Deltas          map[Dimension]float64 `json:"deltas,omitempty"`
}

func cloneScores(in map[Dimension]float64) map[Dimension]float64 {
	if in == nil {
		return nil
	}
	out := make(map[Dimension]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
