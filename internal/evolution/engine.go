// Package evolution applies bounded updates to a computed profile and emits a versioned snapshot.
//
// Evolve is a pure function: it never mutates its input and keeps no state between calls.
// Callers own version numbering and must serialize evolutions for the same user.
package evolution

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jonathan/talent-compass/internal/types"
)

const (
	// MaxAdjustmentPerCall caps how far one call may move a dimension, in score points.
	MaxAdjustmentPerCall = 5.0
	// MaxDriftFromBaseline caps how far a dimension may ever move from its baseline score.
	MaxDriftFromBaseline = 30.0
	// ConfidenceGainPerPoint is the confidence added per point of clamped adjustment.
	ConfidenceGainPerPoint = 2.0
	// SignalConfidenceBump is the confidence added when a signal mentions a dimension by name.
	SignalConfidenceBump = 3.0
)

// InputError is a caller contract violation. Nothing is clamped or defaulted when it is returned.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid evolution input: %s: %s", e.Field, e.Reason)
}

// Input is everything one evolution step needs
type Input struct {
	Profile types.ComputedProfile
	Signals []string
	// Adjustments are keyed by raw dimension labels and resolved with types.ParseDimension.
	Adjustments map[string]float64
	Trigger     types.Trigger
	// Version must be the count of prior snapshots plus one, see NextVersion.
	Version int
	// Now stamps the snapshot; zero means time.Now().
	Now time.Time
}

// Result is the evolved profile, its snapshot and the realized per-dimension deltas
type Result struct {
	Profile  types.ComputedProfile
	Snapshot types.ProfileSnapshot
	Deltas   map[types.Dimension]float64
}

// NextVersion returns the version the next snapshot must carry given the number of prior snapshots
func NextVersion(priorSnapshots int) int {
	return priorSnapshots + 1
}

// Evolve applies clamped adjustments and signal bumps to the profile
func Evolve(in Input) (Result, error) {
	adjustments, err := validate(in)
	if err != nil {
		return Result{}, err
	}

	out := in.Profile.Clone()
	if out.ConfidenceScores == nil {
		out.ConfidenceScores = make(map[types.Dimension]float64)
	}
	if out.BaselineScores == nil {
		out.BaselineScores = make(map[types.Dimension]float64)
	}

	deltas := make(map[types.Dimension]float64)
	for _, dim := range types.AllDimensions() {
		raw, ok := adjustments[dim]
		if !ok {
			continue
		}
		current := out.DimensionScores[dim]
		baseline, seen := out.BaselineScores[dim]
		if !seen {
			baseline = current
			out.BaselineScores[dim] = baseline
		}

		adj := clamp(raw, -MaxAdjustmentPerCall, MaxAdjustmentPerCall)
		next := applyBounded(current, adj, baseline)
		out.DimensionScores[dim] = next

		if d := next - current; d != 0 {
			deltas[dim] = d
		}
		out.ConfidenceScores[dim] = math.Min(100, out.ConfidenceScores[dim]+ConfidenceGainPerPoint*math.Abs(adj))
	}

	for _, signal := range in.Signals {
		for _, dim := range MentionedDimensions(signal, out.DimensionScores) {
			out.ConfidenceScores[dim] = math.Min(100, out.ConfidenceScores[dim]+SignalConfidenceBump)
		}
	}

	out.RIASECCode = types.DeriveRIASECCode(out.DimensionScores)

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var snapDeltas, resultDeltas map[types.Dimension]float64
	if len(deltas) > 0 {
		snapDeltas = copyScores(deltas)
		resultDeltas = deltas
	} else {
		resultDeltas = map[types.Dimension]float64{}
	}

	snapshot := types.ProfileSnapshot{
		Version:         in.Version,
		Timestamp:       now,
		ComputedProfile: out.Clone(),
		DimensionScores: copyScores(out.DimensionScores),
		RIASECCode:      out.RIASECCode,
		Trigger:         in.Trigger,
		Deltas:          snapDeltas,
	}

	return Result{Profile: out, Snapshot: snapshot, Deltas: resultDeltas}, nil
}

// MentionedDimensions returns the profile dimensions whose key or display name appears in the
// signal, case-insensitively, in declaration order.
func MentionedDimensions(signal string, scores map[types.Dimension]float64) []types.Dimension {
	lower := strings.ToLower(signal)
	if strings.TrimSpace(lower) == "" {
		return nil
	}
	var out []types.Dimension
	for _, dim := range types.AllDimensions() {
		if _, ok := scores[dim]; !ok {
			continue
		}
		name := strings.ToLower(dim.DisplayName())
		key := strings.ReplaceAll(string(dim), "_", " ")
		if strings.Contains(lower, name) || strings.Contains(lower, key) || strings.Contains(lower, string(dim)) {
			out = append(out, dim)
		}
	}
	return out
}

// applyBounded moves current by adj without leaving [baseline-30, baseline+30] or [0,100].
// A score already outside the drift band is never pushed further out, and never moved
// against the direction of adj.
func applyBounded(current, adj, baseline float64) float64 {
	lo := math.Max(0, baseline-MaxDriftFromBaseline)
	hi := math.Min(100, baseline+MaxDriftFromBaseline)

	next := current + adj
	switch {
	case adj > 0:
		next = math.Min(next, math.Max(hi, current))
	case adj < 0:
		next = math.Max(next, math.Min(lo, current))
	}
	return clamp(next, 0, 100)
}

func validate(in Input) (map[types.Dimension]float64, error) {
	if !in.Trigger.Valid() {
		return nil, &InputError{Field: "trigger", Reason: fmt.Sprintf("unknown trigger %q", in.Trigger)}
	}
	if in.Version < 1 {
		return nil, &InputError{Field: "version", Reason: fmt.Sprintf("must be >= 1, got %d", in.Version)}
	}
	if len(in.Profile.DimensionScores) == 0 {
		return nil, &InputError{Field: "profile", Reason: "profile has no dimension scores"}
	}
	for dim, score := range in.Profile.DimensionScores {
		if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 100 {
			return nil, &InputError{Field: "profile." + string(dim), Reason: fmt.Sprintf("score %v outside [0,100]", score)}
		}
	}

	out := make(map[types.Dimension]float64, len(in.Adjustments))
	for label, value := range in.Adjustments {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, &InputError{Field: "adjustments." + label, Reason: "value is not a finite number"}
		}
		dim, ok := types.ParseDimension(label)
		if !ok {
			return nil, &InputError{Field: "adjustments." + label, Reason: "unknown dimension"}
		}
		if _, dup := out[dim]; dup {
			return nil, &InputError{Field: "adjustments." + label, Reason: fmt.Sprintf("%s adjusted more than once", dim)}
		}
		if _, present := in.Profile.DimensionScores[dim]; !present {
			return nil, &InputError{Field: "adjustments." + label, Reason: fmt.Sprintf("%s has no score in the profile", dim)}
		}
		out[dim] = value
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func copyScores(in map[types.Dimension]float64) map[types.Dimension]float64 {
	out := make(map[types.Dimension]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
