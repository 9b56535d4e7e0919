// Package types provides type definitions for structured data used throughout the talent-compass system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDimension is returned when a label does not resolve to a known dimension
var ErrUnknownDimension = errors.New("unknown dimension")

// Dimension is the canonical key of a psychometric axis
type Dimension string

// DimensionGroup classifies dimensions by the instrument that measures them
type DimensionGroup string

// Dimension groups
const (
	GroupRIASEC          DimensionGroup = "riasec"
	GroupWorkValue       DimensionGroup = "work_value"
	GroupSkillConfidence DimensionGroup = "skill_confidence"
	GroupLearningStyle   DimensionGroup = "learning_style"
	GroupConstraint      DimensionGroup = "constraint"
)

// RIASEC interest dimensions
const (
	Realistic     Dimension = "realistic"
	Investigative Dimension = "investigative"
	Artistic      Dimension = "artistic"
	Social        Dimension = "social"
	Enterprising  Dimension = "enterprising"
	Conventional  Dimension = "conventional"
)

// Work value dimensions
const (
	Achievement       Dimension = "achievement"
	Independence      Dimension = "independence"
	Recognition       Dimension = "recognition"
	Relationships     Dimension = "relationships"
	Support           Dimension = "support"
	WorkingConditions Dimension = "working_conditions"
)

// Skill confidence dimensions
const (
	AnalyticalSkill     Dimension = "analytical_skill"
	CreativeSkill       Dimension = "creative_skill"
	InterpersonalSkill  Dimension = "interpersonal_skill"
	TechnicalSkill      Dimension = "technical_skill"
	LeadershipSkill     Dimension = "leadership_skill"
	OrganizationalSkill Dimension = "organizational_skill"
)

// Learning style dimensions
const (
	HandsOnLearning       Dimension = "hands_on_learning"
	VisualLearning        Dimension = "visual_learning"
	ReflectiveLearning    Dimension = "reflective_learning"
	CollaborativeLearning Dimension = "collaborative_learning"
)

// Constraint signal dimensions
const (
	FinancialPressure   Dimension = "financial_pressure"
	LocationFlexibility Dimension = "location_flexibility"
	TimeAvailability    Dimension = "time_availability"
)

type dimensionInfo struct {
	display string
	group   DimensionGroup
	aliases []string
}

// allDimensions is the declaration order used for every deterministic iteration.
var allDimensions = []Dimension{
	Realistic, Investigative, Artistic, Social, Enterprising, Conventional,
	Achievement, Independence, Recognition, Relationships, Support, WorkingConditions,
	AnalyticalSkill, CreativeSkill, InterpersonalSkill, TechnicalSkill, LeadershipSkill, OrganizationalSkill,
	HandsOnLearning, VisualLearning, ReflectiveLearning, CollaborativeLearning,
	FinancialPressure, LocationFlexibility, TimeAvailability,
}

var dimensionTable = map[Dimension]dimensionInfo{
	Realistic:     {"Realistic", GroupRIASEC, []string{"doer", "doers", "r"}},
	Investigative: {"Investigative", GroupRIASEC, []string{"thinker", "thinkers", "i"}},
	Artistic:      {"Artistic", GroupRIASEC, []string{"creator", "creators", "a"}},
	Social:        {"Social", GroupRIASEC, []string{"helper", "helpers", "s"}},
	Enterprising:  {"Enterprising", GroupRIASEC, []string{"persuader", "persuaders", "e"}},
	Conventional:  {"Conventional", GroupRIASEC, []string{"organizer", "organizers", "c"}},

	Achievement:       {"Achievement", GroupWorkValue, []string{"accomplishment"}},
	Independence:      {"Independence", GroupWorkValue, []string{"autonomy"}},
	Recognition:       {"Recognition", GroupWorkValue, []string{"status", "prestige"}},
	Relationships:     {"Relationships", GroupWorkValue, []string{"coworkers", "belonging"}},
	Support:           {"Support", GroupWorkValue, []string{"supportive management"}},
	WorkingConditions: {"Working Conditions", GroupWorkValue, []string{"conditions", "work life balance", "work-life balance"}},

	AnalyticalSkill:     {"Analytical Skill", GroupSkillConfidence, []string{"analytical", "analysis", "problem solving"}},
	CreativeSkill:       {"Creative Skill", GroupSkillConfidence, []string{"creative", "creativity"}},
	InterpersonalSkill:  {"Interpersonal Skill", GroupSkillConfidence, []string{"interpersonal", "communication"}},
	TechnicalSkill:      {"Technical Skill", GroupSkillConfidence, []string{"technical", "tech"}},
	LeadershipSkill:     {"Leadership Skill", GroupSkillConfidence, []string{"leadership"}},
	OrganizationalSkill: {"Organizational Skill", GroupSkillConfidence, []string{"organizational", "organisation", "organization"}},

	HandsOnLearning:       {"Hands-On Learning", GroupLearningStyle, []string{"hands on", "kinesthetic", "experiential"}},
	VisualLearning:        {"Visual Learning", GroupLearningStyle, []string{"visual"}},
	ReflectiveLearning:    {"Reflective Learning", GroupLearningStyle, []string{"reflective", "reading"}},
	CollaborativeLearning: {"Collaborative Learning", GroupLearningStyle, []string{"collaborative", "group learning"}},

	FinancialPressure:   {"Financial Pressure", GroupConstraint, []string{"financial", "budget", "finances"}},
	LocationFlexibility: {"Location Flexibility", GroupConstraint, []string{"location", "relocation", "mobility"}},
	TimeAvailability:    {"Time Availability", GroupConstraint, []string{"time", "schedule", "availability"}},
}

// riasecLetters maps each RIASEC dimension to its code letter
var riasecLetters = map[Dimension]byte{
	Realistic:     'R',
	Investigative: 'I',
	Artistic:      'A',
	Social:        'S',
	Enterprising:  'E',
	Conventional:  'C',
}

var dimensionAliases = buildAliasIndex()

func buildAliasIndex() map[string]Dimension {
	index := make(map[string]Dimension)
	for _, dim := range allDimensions {
		info := dimensionTable[dim]
		index[normalizeLabel(string(dim))] = dim
		index[normalizeLabel(info.display)] = dim
		for _, alias := range info.aliases {
			index[normalizeLabel(alias)] = dim
		}
	}
	return index
}

// normalizeLabel lowercases and strips spaces, hyphens and underscores
func normalizeLabel(label string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch r {
		case ' ', '-', '_', '\t':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// ParseDimension resolves a raw label (any case, spacing or hyphenation, or a known alias)
// to its canonical dimension. Unknown labels return false.
func ParseDimension(label string) (Dimension, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return "", false
	}
	dim, ok := dimensionAliases[key]
	return dim, ok
}

// ParseDimensionStrict is ParseDimension returning ErrUnknownDimension for unknown labels
func ParseDimensionStrict(label string) (Dimension, error) {
	dim, ok := ParseDimension(label)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, label)
	}
	return dim, nil
}

// AllDimensions returns every dimension in declaration order
func AllDimensions() []Dimension {
	out := make([]Dimension, len(allDimensions))
	copy(out, allDimensions)
	return out
}

// RIASECDimensions returns the six RIASEC dimensions in their fixed declaration order
func RIASECDimensions() []Dimension {
	return []Dimension{Realistic, Investigative, Artistic, Social, Enterprising, Conventional}
}

// DimensionsInGroup returns the dimensions of a group in declaration order
func DimensionsInGroup(group DimensionGroup) []Dimension {
	var out []Dimension
	for _, dim := range allDimensions {
		if dimensionTable[dim].group == group {
			out = append(out, dim)
		}
	}
	return out
}

// Valid reports whether d is a canonical dimension key
func (d Dimension) Valid() bool {
	_, ok := dimensionTable[d]
	return ok
}

// DisplayName returns the human-readable name of the dimension
func (d Dimension) DisplayName() string {
	if info, ok := dimensionTable[d]; ok {
		return info.display
	}
	return string(d)
}

// Group returns the dimension's group, or "" for unknown dimensions
func (d Dimension) Group() DimensionGroup {
	return dimensionTable[d].group
}

// RIASECLetter returns the code letter for RIASEC dimensions
func (d Dimension) RIASECLetter() (byte, bool) {
	letter, ok := riasecLetters[d]
	return letter, ok
}

// Index returns the declaration position of the dimension, or -1 if unknown
func (d Dimension) Index() int {
	for i, dim := range allDimensions {
		if dim == d {
			return i
		}
	}
	return -1
}
