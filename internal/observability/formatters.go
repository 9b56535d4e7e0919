// Package observability provides the process logger and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/talent-compass/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to at most n runes, marking the cut with "..."
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintActions outputs the ranked recommendations from one evaluation.
func (p *Printer) PrintActions(actions []types.AgentAction) {
	if len(actions) == 0 {
		p.printBox("RECOMMENDED ACTIONS", "Nothing to do: the profile is complete and the report is current.")
		return
	}

	var sb strings.Builder
	for i, a := range actions {
		sb.WriteString(fmt.Sprintf("#%d  %s  (priority %d)\n", i+1, a.Type, a.Priority))
		if a.ModuleID != "" {
			sb.WriteString(fmt.Sprintf("    Module: %s\n", a.ModuleID))
		}
		if len(a.Dimensions) > 0 {
			sb.WriteString(fmt.Sprintf("    Dimensions: %s\n", dimensionNames(a.Dimensions)))
		}
		sb.WriteString(fmt.Sprintf("    %s\n", a.Reason))
		if i < len(actions)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("RECOMMENDED ACTIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSnapshot outputs a profile snapshot with its realized deltas.
func (p *Printer) PrintSnapshot(snap *types.ProfileSnapshot) {
	if snap == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Version:  %d\n", snap.Version))
	sb.WriteString(fmt.Sprintf("Trigger:  %s\n", snap.Trigger))
	sb.WriteString(fmt.Sprintf("Code:     %s\n", snap.RIASECCode))

	if len(snap.Deltas) > 0 {
		sb.WriteString("\nChanges:\n")
		for _, dim := range types.AllDimensions() {
			d, ok := snap.Deltas[dim]
			if !ok {
				continue
			}
			sb.WriteString(fmt.Sprintf("  • %-24s %+6.1f → %.1f\n", dim.DisplayName(), d, snap.DimensionScores[dim]))
		}
	} else {
		sb.WriteString("\nNo score changes.\n")
	}

	p.printBox("PROFILE SNAPSHOT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTimeline outputs trends, topic correlations and the narrative of a live session.
func (p *Printer) PrintTimeline(trends []types.BehavioralTrend, correlations []types.BehavioralCorrelation, narrative string) {
	var sb strings.Builder

	if len(trends) > 0 {
		sb.WriteString("Trends:\n")
		for _, tr := range trends {
			sb.WriteString(fmt.Sprintf("  • %-20s %-7s %.2f → %.2f (n=%d)\n",
				tr.Category, tr.Direction, tr.StartAvg, tr.EndAvg, tr.SampleCount))
		}
		sb.WriteString("\n")
	}

	if len(correlations) > 0 {
		sb.WriteString("Topic effects:\n")
		count := min(len(correlations), maxItemsToShow)
		for i := 0; i < count; i++ {
			c := correlations[i]
			sb.WriteString(fmt.Sprintf("  • %s %s %s (%.2f)\n", c.Topic.DisplayName(), c.Effect, c.Category, c.Strength))
		}
		if len(correlations) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(correlations)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if narrative != "" {
		sb.WriteString(narrative)
	}

	p.printBox("SESSION TIMELINE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCorrelation outputs the cross-source insights.
func (p *Printer) PrintCorrelation(result *types.CorrelationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(result.Summary)
	sb.WriteString("\n")

	if len(result.Insights) > 0 {
		sb.WriteString("\n")
		insights := append([]types.CorrelatedInsight(nil), result.Insights...)
		sort.SliceStable(insights, func(i, j int) bool {
			return insights[i].CorrelationStrength > insights[j].CorrelationStrength
		})
		count := min(len(insights), maxItemsToShow)
		for i := 0; i < count; i++ {
			in := insights[i]
			sb.WriteString(fmt.Sprintf("• %s [%s]\n", in.Title, in.PatternType))
			sb.WriteString(fmt.Sprintf("  strength %.0f, surprise %.0f, %d sources\n",
				in.CorrelationStrength, in.SurpriseFactor, len(in.EvidenceSources)))
		}
		if len(insights) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more insights\n", len(insights)-maxItemsToShow))
		}
	}

	p.printBox("CROSS-SOURCE INSIGHTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintReportTrace outputs the stages a report went through.
func (p *Printer) PrintReportTrace(result *types.ReportResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:       %s\n", result.Report.Title))
	sb.WriteString(fmt.Sprintf("Code:        %s\n", result.Report.RIASECCode))
	sb.WriteString(fmt.Sprintf("Confidence:  %.0f\n", result.Report.Confidence))
	sb.WriteString(fmt.Sprintf("Critique:    %.0f\n\n", result.Critique.OverallScore))

	for _, step := range result.Trace {
		sb.WriteString(fmt.Sprintf("%d. %-20s %5dms  %+.1f\n", step.Step, step.Name, step.DurationMs, step.ConfidenceChange))
		if step.Metadata["refinement_skipped"] == "true" {
			sb.WriteString(fmt.Sprintf("   refinement skipped: %s\n", step.Metadata["reason"]))
		}
	}

	p.printBox("REPORT TRACE", strings.TrimSuffix(sb.String(), "\n"))
}

func dimensionNames(dims []types.Dimension) string {
	names := make([]string, len(dims))
	for i, d := range dims {
		names[i] = d.DisplayName()
	}
	return strings.Join(names, ", ")
}
