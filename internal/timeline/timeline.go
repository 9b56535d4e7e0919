// Package timeline accumulates behavioral observations from one live session and derives
// trends, topic correlations and a narrative from them.
//
// A Timeline is not safe for concurrent use. Use one per session, or go through a Registry.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jonathan/talent-compass/internal/types"
)

const (
	// SnapshotInterval is the minimum time between two timeline snapshots.
	SnapshotInterval = 30 * time.Second
	// MinTrendSamples is the fewest observations a category needs before it can trend.
	MinTrendSamples = 3
	// TrendThreshold is the half-over-half change needed to call a trend rising or falling.
	TrendThreshold = 0.10
	// CorrelationFloor is the smallest topic-vs-global difference reported as a correlation.
	CorrelationFloor = 0.15
	// MinTaggedPerDimension is the fewest tagged observations a topic needs to be correlated.
	MinTaggedPerDimension = 2

	// floatTolerance absorbs representation error when comparing against the floors above.
	floatTolerance = 1e-9
)

// ErrInvalidObservation is returned for observations that cannot be recorded
var ErrInvalidObservation = errors.New("invalid observation")

// Timeline is a single-session accumulator of behavioral observations
type Timeline struct {
	now          func() time.Time
	observations []types.SessionInsight
	snapshots    []types.TimelineSnapshot
	lastSnapshot time.Time
}

// Option configures a Timeline
type Option func(*Timeline)

// WithClock replaces the wall clock used for snapshot timing and missing timestamps
func WithClock(now func() time.Time) Option {
	return func(t *Timeline) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty timeline. The first snapshot interval starts now.
func New(opts ...Option) *Timeline {
	t := &Timeline{now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.lastSnapshot = t.now()
	return t
}

// AddObservation appends an observation and emits a snapshot when more than SnapshotInterval
// has passed since the previous one. A zero timestamp is stamped with the clock.
func (t *Timeline) AddObservation(insight types.SessionInsight) error {
	if !insight.Category.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidObservation, types.ErrUnknownCategory, insight.Category)
	}
	if math.IsNaN(insight.Confidence) || insight.Confidence < 0 || insight.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidObservation, insight.Confidence)
	}
	if insight.Dimension != "" && !insight.Dimension.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidObservation, types.ErrUnknownDimension, insight.Dimension)
	}

	now := t.now()
	if insight.Timestamp.IsZero() {
		insight.Timestamp = now
	}
	t.observations = append(t.observations, insight)

	if now.Sub(t.lastSnapshot) > SnapshotInterval {
		t.snapshots = append(t.snapshots, types.TimelineSnapshot{
			Timestamp:  now,
			Categories: categoryAverages(t.observations),
		})
		t.lastSnapshot = now
	}
	return nil
}

// Len returns the number of recorded observations
func (t *Timeline) Len() int {
	return len(t.observations)
}

// Observations returns a copy of the observation log in arrival order
func (t *Timeline) Observations() []types.SessionInsight {
	out := make([]types.SessionInsight, len(t.observations))
	copy(out, t.observations)
	return out
}

// Snapshots returns a copy of the emitted snapshots in order
func (t *Timeline) Snapshots() []types.TimelineSnapshot {
	out := make([]types.TimelineSnapshot, len(t.snapshots))
	copy(out, t.snapshots)
	return out
}

// Clear resets the timeline for reuse. The next snapshot interval starts now.
func (t *Timeline) Clear() {
	t.observations = nil
	t.snapshots = nil
	t.lastSnapshot = t.now()
}

// ComputeTrends compares the first and second half of each category's observations.
// Categories with fewer than MinTrendSamples observations are omitted. Stable trends are
// included; results are ordered by |delta| descending.
func (t *Timeline) ComputeTrends() []types.BehavioralTrend {
	byCategory := make(map[types.BehaviorCategory][]float64)
	for _, obs := range t.observations {
		byCategory[obs.Category] = append(byCategory[obs.Category], obs.Confidence)
	}

	trends := make([]types.BehavioralTrend, 0, len(byCategory))
	for _, cat := range types.AllCategories() {
		values := byCategory[cat]
		if len(values) < MinTrendSamples {
			continue
		}
		mid := len(values) / 2
		start := mean(values[:mid])
		end := mean(values[mid:])
		delta := end - start

		direction := types.TrendStable
		switch {
		case delta > TrendThreshold:
			direction = types.TrendRising
		case delta < -TrendThreshold:
			direction = types.TrendFalling
		}

		trends = append(trends, types.BehavioralTrend{
			Category:    cat,
			Direction:   direction,
			StartAvg:    start,
			EndAvg:      end,
			Delta:       delta,
			SampleCount: len(values),
		})
	}

	sort.SliceStable(trends, func(i, j int) bool {
		return math.Abs(trends[i].Delta) > math.Abs(trends[j].Delta)
	})
	return trends
}

// FindCorrelations compares per-category averages among observations tagged with a dimension
// against the global per-category averages. Differences at or above CorrelationFloor are
// reported, strongest first.
func (t *Timeline) FindCorrelations() []types.BehavioralCorrelation {
	global := categoryAverages(t.observations)

	byDimension := make(map[types.Dimension][]types.SessionInsight)
	for _, obs := range t.observations {
		if obs.Dimension != "" {
			byDimension[obs.Dimension] = append(byDimension[obs.Dimension], obs)
		}
	}

	var out []types.BehavioralCorrelation
	for _, dim := range types.AllDimensions() {
		tagged := byDimension[dim]
		if len(tagged) < MinTaggedPerDimension {
			continue
		}
		scoped := categoryAverages(tagged)
		for _, cat := range types.AllCategories() {
			local, ok := scoped[cat]
			if !ok {
				continue
			}
			diff := local - global[cat]
			if math.Abs(diff) < CorrelationFloor-floatTolerance {
				continue
			}
			effect := types.EffectDecrease
			verb := "drops"
			if diff > 0 {
				effect = types.EffectIncrease
				verb = "rises"
			}
			out = append(out, types.BehavioralCorrelation{
				Category: cat,
				Topic:    dim,
				Effect:   effect,
				Strength: math.Min(1, math.Abs(diff)),
				Description: fmt.Sprintf("%s %s when discussing %s (%.0f%% vs %.0f%% overall)",
					categoryLabel(cat), verb, dim.DisplayName(), local*100, global[cat]*100),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Strength > out[j].Strength
	})
	return out
}

func categoryAverages(observations []types.SessionInsight) map[types.BehaviorCategory]float64 {
	sums := make(map[types.BehaviorCategory]float64)
	counts := make(map[types.BehaviorCategory]int)
	for _, obs := range observations {
		sums[obs.Category] += obs.Confidence
		counts[obs.Category]++
	}
	out := make(map[types.BehaviorCategory]float64, len(sums))
	for cat, sum := range sums {
		out[cat] = sum / float64(counts[cat])
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
