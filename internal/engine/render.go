package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/habit-bot/internal/clock"
	"github.com/xaenox/habit-bot/internal/models"
)

const entryTimeLayout = "02 Jan 15:04"

// renderReport lists one category's entries since the given instant, in
// chronological order. Fitness reports show a per-entry duration and a total
// in the header when any entry carries one.
func (e *Engine) renderReport(userID int64, category models.Category, since time.Time) string {
	if category == models.CategoryMindfulness {
		entries := e.store.MindfulnessSince(userID, since)
		if len(entries) == 0 {
			return msgNoData
		}

		var b strings.Builder
		fmt.Fprintf(&b, "✨ Mindfulness: %d\n", len(entries))
		for _, entry := range entries {
			fmt.Fprintf(&b, "\n%s", entry.Time.Format(entryTimeLayout))
			if entry.Note != "" && entry.Note != models.NoNote {
				fmt.Fprintf(&b, " — %s", entry.Note)
			}
		}
		return b.String()
	}

	entries := e.store.FitnessSince(userID, since)
	if len(entries) == 0 {
		return msgNoData
	}

	var total time.Duration
	for _, entry := range entries {
		if entry.Duration != nil {
			total += *entry.Duration
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏋️ Workouts: %d\n", len(entries))
	if total > 0 {
		fmt.Fprintf(&b, "⏱ Total time: %s\n", clock.FormatDuration(total))
	}
	for _, entry := range entries {
		fmt.Fprintf(&b, "\n%s", entry.StartTime.Format(entryTimeLayout))
		if entry.Duration != nil {
			fmt.Fprintf(&b, " (%s)", clock.FormatDuration(*entry.Duration))
		}
		if entry.AutoFinished {
			b.WriteString(" ⚠️ auto-finished")
		}
		if entry.Note != "" && entry.Note != models.NoNote {
			fmt.Fprintf(&b, " — %s", entry.Note)
		}
	}
	return b.String()
}
