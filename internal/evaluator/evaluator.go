// Package evaluator ranks the next actions a user can take to strengthen their profile.
// Evaluation is pure: it reads an AgentState and never persists anything.
package evaluator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jonathan/talent-compass/internal/types"
)

const (
	// GapThreshold is the weighted shortfall (points below target x importance) at which a
	// gap starts to drive recommendations
	GapThreshold = 5.0

	// MaxConnectedSources stops connect_source recommendations once this many sources are linked
	MaxConnectedSources = 4

	// ReportReadyConfidence is the overall confidence at which a first report is offered while
	// gaps remain
	ReportReadyConfidence = 50.0

	// RegenerateDelta is how far overall confidence must rise past the existing report's
	// confidence before regeneration is recommended
	RegenerateDelta = 10.0

	// maxCoverageBonus caps the priority earned from the gaps an action addresses
	maxCoverageBonus = 45
	// coverageScale converts summed weighted shortfall into priority points
	coverageScale = 4.0
	// maxListedDimensions bounds the dimensions attached to one action
	maxListedDimensions = 3
)

// Base priorities before gap coverage is added
const (
	baseResumeQuiz           = 50
	baseStartQuiz            = 40
	baseConnectSource        = 40
	baseStartSession         = 45
	baseReportComplete       = 80
	baseReportWithGaps       = 30
	baseRegenerateComplete   = 70
	baseRegenerateWithGaps   = 25
	baseSessionFallbackFloor = 20
)

// QuizModule maps a quiz module to the dimension group it measures
type QuizModule struct {
	ID    string
	Title string
	Group types.DimensionGroup
}

// QuizModules is the fixed module catalogue in presentation order
var QuizModules = []QuizModule{
	{ID: "riasec-interests", Title: "Interests", Group: types.GroupRIASEC},
	{ID: "work-values", Title: "Work Values", Group: types.GroupWorkValue},
	{ID: "skill-confidence", Title: "Skills", Group: types.GroupSkillConfidence},
	{ID: "learning-style", Title: "Learning Style", Group: types.GroupLearningStyle},
	{ID: "life-constraints", Title: "Life Constraints", Group: types.GroupConstraint},
}

func moduleByID(id string) (QuizModule, bool) {
	for _, m := range QuizModules {
		if m.ID == id {
			return m, true
		}
	}
	return QuizModule{}, false
}

// SignificantGaps returns the gaps at or above GapThreshold, largest weighted shortfall first
func SignificantGaps(gaps []types.DimensionGap) []types.DimensionGap {
	out := make([]types.DimensionGap, 0, len(gaps))
	for _, g := range gaps {
		if g.WeightedShortfall() >= GapThreshold {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WeightedShortfall() > out[j].WeightedShortfall()
	})
	return out
}

// Evaluate ranks the action catalogue for state, highest priority first with ties broken by
// catalogue order. The list is empty only when no gap is significant and a report exists that
// does not need regenerating.
func Evaluate(state types.AgentState) []types.AgentAction {
	gaps := SignificantGaps(state.Gaps)
	var actions []types.AgentAction

	if len(gaps) > 0 {
		gapActions := gapActions(state, gaps)
		if len(gapActions) == 0 {
			gapActions = append(gapActions, sessionFallback(gaps))
		}
		actions = append(actions, gapActions...)
	}

	if a, ok := reportAction(state, len(gaps) > 0); ok {
		actions = append(actions, a)
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Priority != actions[j].Priority {
			return actions[i].Priority > actions[j].Priority
		}
		return actions[i].Type.CatalogueIndex() < actions[j].Type.CatalogueIndex()
	})
	return actions
}

func gapActions(state types.AgentState, gaps []types.DimensionGap) []types.AgentAction {
	var actions []types.AgentAction

	quizGaps := gapsMissing(gaps, types.SourceQuiz)

	if id, addressed, ok := pickResumeModule(state.InProgressModules, quizGaps); ok {
		title := id
		if m, found := moduleByID(id); found {
			title = m.Title
		}
		reason := fmt.Sprintf("Finish the %s quiz you already started.", title)
		if len(addressed) > 0 {
			reason = fmt.Sprintf("Finish the %s quiz to firm up %s.", title, dimensionList(addressed))
		}
		actions = append(actions, types.AgentAction{
			Type:       types.ActionResumeQuiz,
			Priority:   priority(baseResumeQuiz, addressed),
			Reason:     reason,
			Dimensions: dimensionsOf(addressed),
			ModuleID:   id,
		})
	}

	if m, addressed, ok := pickNewModule(state, quizGaps); ok {
		actions = append(actions, types.AgentAction{
			Type:       types.ActionStartQuiz,
			Priority:   priority(baseStartQuiz, addressed),
			Reason:     fmt.Sprintf("Take the %s quiz to measure %s.", m.Title, dimensionList(addressed)),
			Dimensions: dimensionsOf(addressed),
			ModuleID:   m.ID,
		})
	}

	if dataGaps := gapsMissing(gaps, types.SourceDataSource); len(dataGaps) > 0 && state.ConnectedSources < MaxConnectedSources {
		reason := fmt.Sprintf("Connect a data source to add real-world evidence for %s.", dimensionList(dataGaps))
		if state.ConnectedSources > 0 {
			reason = fmt.Sprintf("Connect another data source to corroborate %s.", dimensionList(dataGaps))
		}
		actions = append(actions, types.AgentAction{
			Type:       types.ActionConnectSource,
			Priority:   priority(baseConnectSource, dataGaps),
			Reason:     reason,
			Dimensions: dimensionsOf(dataGaps),
		})
	}

	sessionGaps := gapsMissing(gaps, types.SourceSession)
	if !state.SessionCompleted || len(sessionGaps) > 0 {
		addressed := sessionGaps
		if len(addressed) == 0 {
			addressed = gaps
		}
		reason := fmt.Sprintf("Start a live session to explore %s in conversation.", dimensionList(addressed))
		if state.SessionCompleted {
			reason = fmt.Sprintf("Run another live session focused on %s.", dimensionList(addressed))
		}
		actions = append(actions, types.AgentAction{
			Type:       types.ActionStartSession,
			Priority:   priority(baseStartSession, addressed),
			Reason:     reason,
			Dimensions: dimensionsOf(addressed),
		})
	}

	return actions
}

// sessionFallback keeps the list non-empty when every other evidence channel is exhausted
func sessionFallback(gaps []types.DimensionGap) types.AgentAction {
	p := priority(baseSessionFallbackFloor, gaps)
	return types.AgentAction{
		Type:       types.ActionStartSession,
		Priority:   p,
		Reason:     fmt.Sprintf("Every evidence channel is in use; another live session is the best way to sharpen %s.", dimensionList(gaps)),
		Dimensions: dimensionsOf(gaps),
	}
}

func reportAction(state types.AgentState, hasGaps bool) (types.AgentAction, bool) {
	if !state.HasReport {
		if hasGaps && state.OverallConfidence < ReportReadyConfidence {
			return types.AgentAction{}, false
		}
		a := types.AgentAction{
			Type:     types.ActionGenerateReport,
			Priority: baseReportComplete,
			Reason:   "Your profile has enough evidence for a full report.",
		}
		if hasGaps {
			a.Priority = baseReportWithGaps
			a.Reason = fmt.Sprintf("A first report is available now at %.0f%% overall confidence; it will sharpen as gaps close.", state.OverallConfidence)
		}
		return a, true
	}

	gain := state.OverallConfidence - state.ReportConfidence
	if gain < RegenerateDelta {
		return types.AgentAction{}, false
	}
	a := types.AgentAction{
		Type:     types.ActionRegenerateReport,
		Priority: baseRegenerateComplete,
		Reason:   fmt.Sprintf("Confidence rose %.0f points since your last report.", gain),
	}
	if hasGaps {
		a.Priority = baseRegenerateWithGaps
	}
	return a, true
}

// pickResumeModule chooses the in-progress module covering the most quiz-less gap weight.
// Unknown module ids are still resumable; they address no tracked gap.
func pickResumeModule(inProgress []string, quizGaps []types.DimensionGap) (string, []types.DimensionGap, bool) {
	if len(inProgress) == 0 {
		return "", nil, false
	}
	ids := append([]string(nil), inProgress...)
	sort.Strings(ids)

	bestID := ""
	var best []types.DimensionGap
	bestWeight := -1.0
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		var addressed []types.DimensionGap
		if m, ok := moduleByID(id); ok {
			addressed = gapsInGroup(quizGaps, m.Group)
		}
		if w := totalWeight(addressed); w > bestWeight {
			bestID, best, bestWeight = id, addressed, w
		}
	}
	return bestID, best, bestID != ""
}

// pickNewModule chooses the untouched module covering the most quiz-less gap weight
func pickNewModule(state types.AgentState, quizGaps []types.DimensionGap) (QuizModule, []types.DimensionGap, bool) {
	touched := make(map[string]bool, len(state.CompletedModules)+len(state.InProgressModules))
	for _, id := range state.CompletedModules {
		touched[id] = true
	}
	for _, id := range state.InProgressModules {
		touched[id] = true
	}

	var best QuizModule
	var bestGaps []types.DimensionGap
	bestWeight := 0.0
	for _, m := range QuizModules {
		if touched[m.ID] {
			continue
		}
		addressed := gapsInGroup(quizGaps, m.Group)
		if w := totalWeight(addressed); w > bestWeight {
			best, bestGaps, bestWeight = m, addressed, w
		}
	}
	return best, bestGaps, bestWeight > 0
}

func gapsMissing(gaps []types.DimensionGap, st types.SourceType) []types.DimensionGap {
	var out []types.DimensionGap
	for _, g := range gaps {
		for _, missing := range g.MissingSourceTypes {
			if missing == st {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

func gapsInGroup(gaps []types.DimensionGap, group types.DimensionGroup) []types.DimensionGap {
	var out []types.DimensionGap
	for _, g := range gaps {
		if g.Dimension.Group() == group {
			out = append(out, g)
		}
	}
	return out
}

func totalWeight(gaps []types.DimensionGap) float64 {
	var sum float64
	for _, g := range gaps {
		sum += g.WeightedShortfall()
	}
	return sum
}

// priority adds a bounded bonus for the gap weight an action addresses to its base
func priority(base int, addressed []types.DimensionGap) int {
	bonus := int(math.Round(totalWeight(addressed) / coverageScale))
	if bonus > maxCoverageBonus {
		bonus = maxCoverageBonus
	}
	p := base + bonus
	if p > 100 {
		p = 100
	}
	return p
}

func dimensionsOf(gaps []types.DimensionGap) []types.Dimension {
	n := len(gaps)
	if n > maxListedDimensions {
		n = maxListedDimensions
	}
	if n == 0 {
		return nil
	}
	dims := make([]types.Dimension, n)
	for i := 0; i < n; i++ {
		dims[i] = gaps[i].Dimension
	}
	return dims
}

func dimensionList(gaps []types.DimensionGap) string {
	dims := dimensionsOf(gaps)
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.DisplayName()
	}
	switch len(names) {
	case 0:
		return "your profile"
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	list := strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	if len(gaps) > len(dims) {
		list += fmt.Sprintf(" (+%d more)", len(gaps)-len(dims))
	}
	return list
}
