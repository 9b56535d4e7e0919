// Package types provides type definitions for structured data used throughout the talent-compass system.
package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownCategory is returned when a label does not resolve to a behavioral category
var ErrUnknownCategory = errors.New("unknown behavioral category")

// BehaviorCategory classifies an observation made during a live session
type BehaviorCategory string

// Behavioral categories, in declaration order
const (
	CategoryEnthusiasm    BehaviorCategory = "enthusiasm"
	CategoryCuriosity     BehaviorCategory = "curiosity"
	CategoryConfidence    BehaviorCategory = "confidence"
	CategoryHesitation    BehaviorCategory = "hesitation"
	CategoryFrustration   BehaviorCategory = "frustration"
	CategoryFocus         BehaviorCategory = "focus"
	CategoryCreativity    BehaviorCategory = "creativity"
	CategoryAnalytical    BehaviorCategory = "analytical_thinking"
	CategoryEmpathy       BehaviorCategory = "empathy"
	CategoryLeadership    BehaviorCategory = "leadership"
	CategoryCollaboration BehaviorCategory = "collaboration"
)

var allCategories = []BehaviorCategory{
	CategoryEnthusiasm, CategoryCuriosity, CategoryConfidence, CategoryHesitation,
	CategoryFrustration, CategoryFocus, CategoryCreativity, CategoryAnalytical,
	CategoryEmpathy, CategoryLeadership, CategoryCollaboration,
}

var categoryAliases = map[string]BehaviorCategory{
	"excitement":      CategoryEnthusiasm,
	"energy":          CategoryEnthusiasm,
	"interest":        CategoryCuriosity,
	"inquisitiveness": CategoryCuriosity,
	"selfassurance":   CategoryConfidence,
	"uncertainty":     CategoryHesitation,
	"doubt":           CategoryHesitation,
	"annoyance":       CategoryFrustration,
	"concentration":   CategoryFocus,
	"engagement":      CategoryFocus,
	"imagination":     CategoryCreativity,
	"analytical":      CategoryAnalytical,
	"analysis":        CategoryAnalytical,
	"problemsolving":  CategoryAnalytical,
	"compassion":      CategoryEmpathy,
	"initiative":      CategoryLeadership,
	"teamwork":        CategoryCollaboration,
	"cooperation":     CategoryCollaboration,
}

// AllCategories returns every behavioral category in declaration order
func AllCategories() []BehaviorCategory {
	out := make([]BehaviorCategory, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory resolves a raw label to a behavioral category; unknown labels return false
func ParseCategory(label string) (BehaviorCategory, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return "", false
	}
	for _, c := range allCategories {
		if normalizeLabel(string(c)) == key {
			return c, true
		}
	}
	c, ok := categoryAliases[key]
	return c, ok
}

// ParseCategoryStrict is ParseCategory returning ErrUnknownCategory for unknown labels
func ParseCategoryStrict(label string) (BehaviorCategory, error) {
	c, ok := ParseCategory(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, label)
	}
	return c, nil
}

// Valid reports whether c is a known category
func (c BehaviorCategory) Valid() bool {
	return c.Index() >= 0
}

// Index returns the declaration position of the category, or -1
func (c BehaviorCategory) Index() int {
	for i, cat := range allCategories {
		if cat == c {
			return i
		}
	}
	return -1
}

// SessionInsight is one behavioral observation from a live session. Append-only.
type SessionInsight struct {
	Timestamp   time.Time        `json:"timestamp"`
	Observation string           `json:"observation"`
	Category    BehaviorCategory `json:"category"`
	Confidence  float64          `json:"confidence"` // 0-1
	Evidence    string           `json:"evidence,omitempty"`
	Dimension   Dimension        `json:"dimension,omitempty"`
}

// TimelineSnapshot is the running per-category average confidence at a point in time
type TimelineSnapshot struct {
	Timestamp  time.Time                    `json:"timestamp"`
	Categories map[BehaviorCategory]float64 `json:"categories"`
}

// TrendDirection describes how a category moved over a session
type TrendDirection string

// Trend directions
const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendStable  TrendDirection = "stable"
)

// BehavioralTrend compares the first and second half of a category's observations
type BehavioralTrend struct {
	Category    BehaviorCategory `json:"category"`
	Direction   TrendDirection   `json:"direction"`
	StartAvg    float64          `json:"start_avg"`
	EndAvg      float64          `json:"end_avg"`
	Delta       float64          `json:"delta"`
	SampleCount int              `json:"sample_count"`
}

// CorrelationEffect says whether a topic raised or lowered a category
type CorrelationEffect string

// Correlation effects
const (
	EffectIncrease CorrelationEffect = "increase"
	EffectDecrease CorrelationEffect = "decrease"
)

// BehavioralCorrelation links a topic (dimension) to a shift in a behavioral category
type BehavioralCorrelation struct {
	Category    BehaviorCategory  `json:"category"`
	Topic       Dimension         `json:"topic"`
	Effect      CorrelationEffect `json:"effect"`
	Strength    float64           `json:"strength"`
	Description string            `json:"description"`
}
