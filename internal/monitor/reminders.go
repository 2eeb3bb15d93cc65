package monitor

import (
	"time"

	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
)

// Deadline returns the absolute auto-complete deadline for a record: the
// stored auto_complete_at when present, otherwise the scheduled end plus
// the configured grace period. Records created before the deadline column
// was backfilled still get a correct deadline this way.
func Deadline(state domain.CompletionState, settings Settings) time.Time {
	if state.AutoCompleteAt != nil {
		return *state.AutoCompleteAt
	}
	return state.ScheduledEndTime.Add(settings.GracePeriod())
}

// DueReminderOrdinal decides which reminder, if any, is newly due for a
// record at the given instant. It returns 0 when nothing is due.
//
// The most advanced threshold at or below the elapsed time determines the
// expected ordinal; a reminder fires only when that ordinal is ahead of the
// count already sent. Re-evaluating the same record before the next
// threshold is therefore a no-op, and a monitor that was down across
// several thresholds sends exactly one catch-up reminder, not one per
// missed threshold.
func DueReminderOrdinal(state domain.CompletionState, settings Settings, now time.Time) int {
	if state.CompletionStatus != domain.CompletionInProgress {
		return 0
	}
	if now.Before(state.ScheduledEndTime) {
		return 0
	}
	// Once the deadline itself has been reached the completion transition
	// owns the record; reminders stop.
	if !now.Before(Deadline(state, settings)) {
		return 0
	}

	minutesPassed := int(now.Sub(state.ScheduledEndTime).Minutes())

	expected := 0
	offsets := settings.ReminderOffsetsMinutes
	for i := len(offsets) - 1; i >= 0; i-- {
		if minutesPassed >= offsets[i] {
			expected = i + 1
			break
		}
	}

	if expected <= state.RemindersSent {
		return 0
	}
	return expected
}
