package correlation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/talent-compass/internal/types"
)

const (
	maxRationales       = 2
	maxRationaleChars   = 160
	maxObservationsShow = 3
)

// SummarizeDataSources renders the themes, skills and interests of each connected source
func SummarizeDataSources(insights []types.DataInsight) string {
	if len(insights) == 0 {
		return "No connected data sources."
	}

	var sb strings.Builder
	for i, in := range insights {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- %s", in.Source)
		var parts []string
		if len(in.Themes) > 0 {
			parts = append(parts, "themes: "+strings.Join(in.Themes, ", "))
		}
		if len(in.Skills) > 0 {
			parts = append(parts, "skills: "+strings.Join(in.Skills, ", "))
		}
		if len(in.Interests) > 0 {
			parts = append(parts, "interests: "+strings.Join(in.Interests, ", "))
		}
		if len(parts) > 0 {
			sb.WriteString(": " + strings.Join(parts, "; "))
		}
		if s := strings.TrimSpace(in.Summary); s != "" {
			sb.WriteString("\n  " + s)
		}
	}
	return sb.String()
}

// SummarizeQuizzes renders the average score per dimension with the rationales of the
// highest-scoring answers
func SummarizeQuizzes(scores []types.QuizScore) string {
	if len(scores) == 0 {
		return "No quiz results."
	}

	byDim := make(map[types.Dimension][]types.QuizScore)
	for _, s := range scores {
		byDim[s.Dimension] = append(byDim[s.Dimension], s)
	}

	dims := make([]types.Dimension, 0, len(byDim))
	for dim := range byDim {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool {
		ii, jj := dims[i].Index(), dims[j].Index()
		switch {
		case ii >= 0 && jj >= 0:
			return ii < jj
		case ii >= 0 || jj >= 0:
			return ii >= 0
		default:
			return dims[i] < dims[j]
		}
	})

	var sb strings.Builder
	for i, dim := range dims {
		group := byDim[dim]
		var sum float64
		for _, s := range group {
			sum += s.Score
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		answers := "answers"
		if len(group) == 1 {
			answers = "answer"
		}
		fmt.Fprintf(&sb, "- %s: average %.0f over %d %s", dim.DisplayName(), sum/float64(len(group)), len(group), answers)

		ranked := make([]types.QuizScore, len(group))
		copy(ranked, group)
		sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Score > ranked[b].Score })
		var excerpts []string
		for _, s := range ranked {
			r := strings.TrimSpace(s.Rationale)
			if r == "" {
				continue
			}
			excerpts = append(excerpts, fmt.Sprintf("%q", truncate(r, maxRationaleChars)))
			if len(excerpts) == maxRationales {
				break
			}
		}
		if len(excerpts) > 0 {
			sb.WriteString(". Rationale: " + strings.Join(excerpts, " | "))
		}
	}
	return sb.String()
}

// SummarizeSession renders session observations grouped by category, followed by the raw signals
func SummarizeSession(insights []types.SessionInsight, signals []string) string {
	if len(insights) == 0 && len(signals) == 0 {
		return "No live session evidence."
	}

	var lines []string
	byCat := make(map[types.BehaviorCategory][]types.SessionInsight)
	for _, in := range insights {
		byCat[in.Category] = append(byCat[in.Category], in)
	}
	for _, cat := range types.AllCategories() {
		group := byCat[cat]
		if len(group) == 0 {
			continue
		}
		var sum float64
		notes := make([]string, 0, maxObservationsShow)
		for _, in := range group {
			sum += in.Confidence
			if len(notes) < maxObservationsShow && strings.TrimSpace(in.Observation) != "" {
				notes = append(notes, truncate(strings.TrimSpace(in.Observation), maxRationaleChars))
			}
		}
		line := fmt.Sprintf("- %s (%d observations, average confidence %.0f%%)", cat, len(group), sum/float64(len(group))*100)
		if len(notes) > 0 {
			line += ": " + strings.Join(notes, "; ")
		}
		lines = append(lines, line)
	}

	if len(signals) > 0 {
		lines = append(lines, "Signals:")
		for _, s := range signals {
			if s = strings.TrimSpace(s); s != "" {
				lines = append(lines, "- "+s)
			}
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
