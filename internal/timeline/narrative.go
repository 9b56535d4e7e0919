package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/talent-compass/internal/types"
)

// NoObservationsNarrative is returned by GenerateNarrative for an empty timeline
const NoObservationsNarrative = "No behavioral observations have been recorded in this session yet."

const (
	narrativeTrends       = 3
	narrativeCorrelations = 2
)

// GenerateNarrative summarizes the session: size and duration, up to three non-stable
// trends and up to two correlations. Output is deterministic for a given log.
func (t *Timeline) GenerateNarrative() string {
	if len(t.observations) == 0 {
		return NoObservationsNarrative
	}

	var sb strings.Builder
	first, last := t.observations[0].Timestamp, t.observations[0].Timestamp
	for _, obs := range t.observations[1:] {
		if obs.Timestamp.Before(first) {
			first = obs.Timestamp
		}
		if obs.Timestamp.After(last) {
			last = obs.Timestamp
		}
	}
	noun := "observations"
	if len(t.observations) == 1 {
		noun = "observation"
	}
	fmt.Fprintf(&sb, "Recorded %d behavioral %s over %s.", len(t.observations), noun, formatDuration(last.Sub(first)))

	shown := 0
	for _, trend := range t.ComputeTrends() {
		if trend.Direction == types.TrendStable {
			continue
		}
		if shown == 0 {
			sb.WriteString(" Trends:")
		}
		verb := "rose"
		if trend.Direction == types.TrendFalling {
			verb = "fell"
		}
		fmt.Fprintf(&sb, " %s %s from %.0f%% to %.0f%%.", categoryLabel(trend.Category), verb, trend.StartAvg*100, trend.EndAvg*100)
		shown++
		if shown == narrativeTrends {
			break
		}
	}
	if shown == 0 {
		sb.WriteString(" No clear trends yet.")
	}

	correlations := t.FindCorrelations()
	if len(correlations) > narrativeCorrelations {
		correlations = correlations[:narrativeCorrelations]
	}
	if len(correlations) > 0 {
		sb.WriteString(" Topic effects:")
		for _, c := range correlations {
			fmt.Fprintf(&sb, " %s.", c.Description)
		}
	}

	return sb.String()
}

func categoryLabel(c types.BehaviorCategory) string {
	s := strings.ReplaceAll(string(c), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		secs := int(d.Round(time.Second) / time.Second)
		if secs == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", secs)
	case d < time.Hour:
		mins := int(d.Round(time.Minute) / time.Minute)
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
