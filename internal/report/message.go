package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/storetally/internal/models"
)

// Message renders the report for the notifiers.
func (d DailyReport) Message(now time.Time) models.Message {
	title := fmt.Sprintf("%s sales %s", titleCase(string(d.Type)), d.Date)

	lines := make([]string, 0, len(d.Ranking.Entries))
	for _, e := range d.Ranking.Entries {
		line := fmt.Sprintf("%d. %s %s", e.Rank, e.Store, e.Formatted)
		switch e.Outcome {
		case models.OutcomeFailed:
			line += " (failed)"
		case models.OutcomeZero:
			line += " (no sales)"
		}
		lines = append(lines, line)
	}

	sections := []models.MessageSection{{Title: "Ranking", Lines: lines}}

	if len(d.Ranking.Failed) > 0 {
		failed := make([]string, 0, len(d.Ranking.Failed))
		for _, e := range d.Ranking.Failed {
			reason := e.Reason
			if reason == "" {
				reason = "unknown"
			}
			failed = append(failed, fmt.Sprintf("%s: %s", e.Store, reason))
		}
		sections = append(sections, models.MessageSection{Title: "Collection failures", Lines: failed})
	}

	if d.Streak.CurrentTopStore != "" {
		sections = append(sections, models.MessageSection{
			Title: "Streak",
			Lines: []string{fmt.Sprintf("%s: %d %s at #1", d.Streak.CurrentTopStore, d.Streak.StreakDays, plural(d.Streak.StreakDays, "day"))},
		})
	}

	return models.Message{
		Title:     title,
		Sections:  sections,
		Footer:    "Total " + d.Ranking.Formatted,
		Timestamp: now,
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
