package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/talent-compass/internal/correlation"
	"github.com/jonathan/talent-compass/internal/types"
)

// ContextInput is everything known about a user when a report is requested
type ContextInput struct {
	Profile         *types.ComputedProfile
	Confidence      *types.ConfidenceProfile
	Insights        []types.CorrelatedInsight
	DataInsights    []types.DataInsight
	QuizScores      []types.QuizScore
	SessionInsights []types.SessionInsight
	Narrative       string
}

// BuildContext renders the assessment context block sent to every pipeline stage.
// Output is deterministic for a given input.
func BuildContext(in ContextInput) string {
	var blocks []string

	if p := in.Profile; p != nil {
		var sb strings.Builder
		fmt.Fprintf(&sb, "PROFILE\nRIASEC code: %s", p.RIASECCode)
		for _, dim := range types.AllDimensions() {
			score, ok := p.DimensionScores[dim]
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "\n- %s: %.0f", dim.DisplayName(), score)
			if c, ok := p.ConfidenceScores[dim]; ok {
				fmt.Fprintf(&sb, " (confidence %.0f)", c)
			}
		}
		if len(p.Constraints) > 0 {
			keys := make([]string, 0, len(p.Constraints))
			for k := range p.Constraints {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			sb.WriteString("\nConstraints:")
			for _, k := range keys {
				fmt.Fprintf(&sb, "\n- %s: %s", k, p.Constraints[k])
			}
		}
		blocks = append(blocks, sb.String())
	}

	if c := in.Confidence; c != nil && len(c.Dimensions) > 0 {
		var sb strings.Builder
		fmt.Fprintf(&sb, "EVIDENCE CONFIDENCE\nOverall: %.0f", c.OverallConfidence)
		for _, dim := range types.AllDimensions() {
			dc, ok := c.Dimensions[dim]
			if !ok {
				continue
			}
			sources := make([]string, len(dc.SourceTypes))
			for i, st := range dc.SourceTypes {
				sources[i] = string(st)
			}
			fmt.Fprintf(&sb, "\n- %s: %.0f from %d sources (%s)", dim.DisplayName(), dc.Confidence, dc.SourceCount, strings.Join(sources, ", "))
		}
		blocks = append(blocks, sb.String())
	}

	if len(in.Insights) > 0 {
		var sb strings.Builder
		sb.WriteString("CROSS-SOURCE INSIGHTS")
		for _, ins := range in.Insights {
			fmt.Fprintf(&sb, "\n- %s [%s, strength %.0f]: %s", ins.Title, ins.PatternType, ins.CorrelationStrength, ins.Description)
		}
		blocks = append(blocks, sb.String())
	}

	if len(in.DataInsights) > 0 {
		blocks = append(blocks, "DATA SOURCES\n"+correlation.SummarizeDataSources(in.DataInsights))
	}
	if len(in.QuizScores) > 0 {
		blocks = append(blocks, "QUIZZES\n"+correlation.SummarizeQuizzes(in.QuizScores))
	}
	if len(in.SessionInsights) > 0 || strings.TrimSpace(in.Narrative) != "" {
		session := "LIVE SESSION"
		if n := strings.TrimSpace(in.Narrative); n != "" {
			session += "\n" + n
		}
		if len(in.SessionInsights) > 0 {
			session += "\n" + correlation.SummarizeSession(in.SessionInsights, nil)
		}
		blocks = append(blocks, session)
	}

	return strings.Join(blocks, "\n\n")
}
