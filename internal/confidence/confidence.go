// Package confidence builds per-dimension confidence from evidentiary sources and derives
// the gaps the evaluator ranks. Every function is pure: inputs are never mutated.
package confidence

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jonathan/talent-compass/internal/types"
)

// Diversity factors by number of distinct source types behind a dimension
const (
	SingleSourceFactor = 0.70
	DualSourceFactor   = 0.85
	FullSourceFactor   = 1.00
)

// InvalidSourceError is returned for a source that can never contribute to a profile
type InvalidSourceError struct {
	Source types.ConfidenceSource
	Reason string
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid confidence source for %q: %s", e.Source.Dimension, e.Reason)
}

// ValidateSource checks type, dimension and score range
func ValidateSource(s types.ConfidenceSource) error {
	switch {
	case !s.Type.Valid():
		return &InvalidSourceError{Source: s, Reason: fmt.Sprintf("unknown source type %q", s.Type)}
	case !s.Dimension.Valid():
		return &InvalidSourceError{Source: s, Reason: "unknown dimension"}
	case math.IsNaN(s.Score) || s.Score < 0 || s.Score > 100:
		return &InvalidSourceError{Source: s, Reason: fmt.Sprintf("score %v outside [0,100]", s.Score)}
	}
	return nil
}

// DiversityFactor returns the multiplier applied for n distinct source types
func DiversityFactor(n int) float64 {
	switch {
	case n <= 0:
		return 0
	case n == 1:
		return SingleSourceFactor
	case n == 2:
		return DualSourceFactor
	default:
		return FullSourceFactor
	}
}

// Aggregate derives a DimensionConfidence from its sources. Confidence is the mean source
// score scaled by the diversity factor; sources are ordered by timestamp, stable on ties.
func Aggregate(dim types.Dimension, sources []types.ConfidenceSource) (types.DimensionConfidence, error) {
	if !dim.Valid() {
		return types.DimensionConfidence{}, fmt.Errorf("%w: %q", types.ErrUnknownDimension, dim)
	}

	ordered := make([]types.ConfidenceSource, 0, len(sources))
	seen := make(map[types.SourceType]bool)
	var sum float64
	for _, s := range sources {
		if err := ValidateSource(s); err != nil {
			return types.DimensionConfidence{}, err
		}
		if s.Dimension != dim {
			return types.DimensionConfidence{}, &InvalidSourceError{Source: s, Reason: fmt.Sprintf("belongs to %q, not %q", s.Dimension, dim)}
		}
		ordered = append(ordered, s)
		seen[s.Type] = true
		sum += s.Score
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	sourceTypes := make([]types.SourceType, 0, len(seen))
	for _, st := range types.AllSourceTypes() {
		if seen[st] {
			sourceTypes = append(sourceTypes, st)
		}
	}

	var conf float64
	if len(ordered) > 0 {
		conf = clamp(sum / float64(len(ordered)) * DiversityFactor(len(sourceTypes)))
	}

	return types.DimensionConfidence{
		Dimension:   dim,
		Confidence:  conf,
		SourceCount: len(ordered),
		SourceTypes: sourceTypes,
		Sources:     ordered,
	}, nil
}

// Build groups sources by dimension and aggregates each group
func Build(sources []types.ConfidenceSource, now time.Time) (types.ConfidenceProfile, error) {
	grouped := make(map[types.Dimension][]types.ConfidenceSource)
	for _, s := range sources {
		if err := ValidateSource(s); err != nil {
			return types.ConfidenceProfile{}, err
		}
		grouped[s.Dimension] = append(grouped[s.Dimension], s)
	}

	dims := make(map[types.Dimension]types.DimensionConfidence, len(grouped))
	for dim, group := range grouped {
		dc, err := Aggregate(dim, group)
		if err != nil {
			return types.ConfidenceProfile{}, err
		}
		dims[dim] = dc
	}

	return types.ConfidenceProfile{
		Dimensions:        dims,
		OverallConfidence: Overall(dims),
		LastUpdated:       now,
	}, nil
}

// AddSource returns a new profile with one more source recorded
func AddSource(profile types.ConfidenceProfile, source types.ConfidenceSource, now time.Time) (types.ConfidenceProfile, error) {
	if err := ValidateSource(source); err != nil {
		return types.ConfidenceProfile{}, err
	}

	existing := profile.Dimensions[source.Dimension].Sources
	sources := make([]types.ConfidenceSource, 0, len(existing)+1)
	sources = append(sources, existing...)
	sources = append(sources, source)

	dc, err := Aggregate(source.Dimension, sources)
	if err != nil {
		return types.ConfidenceProfile{}, err
	}

	dims := make(map[types.Dimension]types.DimensionConfidence, len(profile.Dimensions)+1)
	for k, v := range profile.Dimensions {
		dims[k] = v
	}
	dims[source.Dimension] = dc

	return types.ConfidenceProfile{
		Dimensions:        dims,
		OverallConfidence: Overall(dims),
		LastUpdated:       now,
	}, nil
}

// Overall is the arithmetic mean of every dimension's confidence, 0 when empty
func Overall(dims map[types.Dimension]types.DimensionConfidence) float64 {
	if len(dims) == 0 {
		return 0
	}
	// summed in declaration order so the result does not depend on map iteration
	var sum float64
	var n int
	for _, dim := range types.AllDimensions() {
		if dc, ok := dims[dim]; ok {
			sum += dc.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp(sum / float64(n))
}

// Verify recomputes every dimension from its sources and reports the first mismatch
func Verify(profile types.ConfidenceProfile) error {
	for dim, dc := range profile.Dimensions {
		want, err := Aggregate(dim, dc.Sources)
		if err != nil {
			return err
		}
		if math.Abs(want.Confidence-dc.Confidence) > 1e-9 || want.SourceCount != dc.SourceCount {
			return fmt.Errorf("dimension %s: stored confidence %v is not derivable from its sources (want %v)", dim, dc.Confidence, want.Confidence)
		}
		if len(want.SourceTypes) != len(dc.SourceTypes) {
			return fmt.Errorf("dimension %s: source types %v do not match sources", dim, dc.SourceTypes)
		}
		for i := range want.SourceTypes {
			if want.SourceTypes[i] != dc.SourceTypes[i] {
				return fmt.Errorf("dimension %s: source types %v do not match sources", dim, dc.SourceTypes)
			}
		}
	}
	if want := Overall(profile.Dimensions); math.Abs(want-profile.OverallConfidence) > 1e-9 {
		return fmt.Errorf("overall confidence %v is not the mean of its dimensions (want %v)", profile.OverallConfidence, want)
	}
	return nil
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
