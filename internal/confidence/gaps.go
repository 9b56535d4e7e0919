package confidence

import (
	"sort"

	"github.com/jonathan/talent-compass/internal/types"
)

// Target is the confidence a dimension group should reach and how much its gaps matter
type Target struct {
	Confidence float64
	Importance float64
}

// Policy decides which dimensions are tracked and the target for each group
type Policy struct {
	Targets    map[types.DimensionGroup]Target
	Dimensions []types.Dimension
}

// DefaultPolicy tracks every dimension with group targets weighted towards RIASEC
func DefaultPolicy() Policy {
	return Policy{
		Targets: map[types.DimensionGroup]Target{
			types.GroupRIASEC:          {Confidence: 75, Importance: 1.0},
			types.GroupWorkValue:       {Confidence: 70, Importance: 0.8},
			types.GroupSkillConfidence: {Confidence: 65, Importance: 0.7},
			types.GroupLearningStyle:   {Confidence: 60, Importance: 0.5},
			types.GroupConstraint:      {Confidence: 50, Importance: 0.4},
		},
		Dimensions: types.AllDimensions(),
	}
}

// Gaps returns one gap per tracked dimension below its target, largest weighted shortfall
// first. Ties keep dimension declaration order.
func Gaps(profile types.ConfidenceProfile, policy Policy) []types.DimensionGap {
	dims := policy.Dimensions
	if len(dims) == 0 {
		dims = types.AllDimensions()
	}

	gaps := make([]types.DimensionGap, 0, len(dims))
	for _, dim := range dims {
		target, ok := policy.Targets[dim.Group()]
		if !ok {
			continue
		}
		dc := profile.Dimensions[dim]
		gap := types.DimensionGap{
			Dimension:          dim,
			CurrentConfidence:  dc.Confidence,
			TargetConfidence:   target.Confidence,
			MissingSourceTypes: missingSourceTypes(dc),
			Importance:         target.Importance,
		}
		if gap.Shortfall() <= 0 {
			continue
		}
		gaps = append(gaps, gap)
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].WeightedShortfall() > gaps[j].WeightedShortfall()
	})
	return gaps
}

func missingSourceTypes(dc types.DimensionConfidence) []types.SourceType {
	missing := make([]types.SourceType, 0, 3)
	for _, st := range types.AllSourceTypes() {
		if !dc.HasSourceType(st) {
			missing = append(missing, st)
		}
	}
	return missing
}
