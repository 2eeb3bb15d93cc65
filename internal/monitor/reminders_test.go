package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
)

func inProgressState(end time.Time, deadline time.Time, remindersSent int) domain.CompletionState {
	return domain.CompletionState{
		CompletionStatus: domain.CompletionInProgress,
		ScheduledEndTime: end,
		AutoCompleteAt:   &deadline,
		RemindersSent:    remindersSent,
	}
}

func TestDueReminderOrdinal(t *testing.T) {
	end := time.Date(2024, time.August, 15, 18, 0, 0, 0, time.Local)
	deadline := end.Add(4 * time.Hour)

	tests := []struct {
		name          string
		minutesPassed int
		remindersSent int
		want          int
	}{
		{name: "before first threshold", minutesPassed: 25, want: 0},
		{name: "exactly at first threshold", minutesPassed: 30, want: 1},
		{name: "past first threshold", minutesPassed: 35, want: 1},
		{name: "past second threshold", minutesPassed: 65, want: 2},
		{name: "past third threshold", minutesPassed: 125, want: 3},
		{name: "past fourth threshold", minutesPassed: 185, want: 4},
		{name: "past final threshold", minutesPassed: 215, want: 5},
		{name: "already sent suppresses same ordinal", minutesPassed: 65, remindersSent: 2, want: 0},
		{name: "already ahead suppresses lower ordinal", minutesPassed: 65, remindersSent: 3, want: 0},
		{name: "catch-up skips straight to most advanced", minutesPassed: 125, remindersSent: 1, want: 3},
	}

	settings := DefaultSettings()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := inProgressState(end, deadline, tt.remindersSent)
			now := end.Add(time.Duration(tt.minutesPassed) * time.Minute)
			assert.Equal(t, tt.want, DueReminderOrdinal(state, settings, now))
		})
	}
}

func TestDueReminderOrdinalIneligible(t *testing.T) {
	end := time.Date(2024, time.August, 15, 18, 0, 0, 0, time.Local)
	deadline := end.Add(4 * time.Hour)
	settings := DefaultSettings()

	t.Run("work window not over yet", func(t *testing.T) {
		state := inProgressState(end, deadline, 0)
		assert.Equal(t, 0, DueReminderOrdinal(state, settings, end.Add(-10*time.Minute)))
	})

	t.Run("deadline reached means completion owns the record", func(t *testing.T) {
		state := inProgressState(end, deadline, 4)
		assert.Equal(t, 0, DueReminderOrdinal(state, settings, deadline))
		assert.Equal(t, 0, DueReminderOrdinal(state, settings, deadline.Add(time.Minute)))
	})

	t.Run("submitted record is out of scope", func(t *testing.T) {
		state := inProgressState(end, deadline, 2)
		state.CompletionStatus = domain.CompletionSubmitted
		assert.Equal(t, 0, DueReminderOrdinal(state, settings, end.Add(65*time.Minute)))
	})

	t.Run("idempotent within a threshold window", func(t *testing.T) {
		state := inProgressState(end, deadline, 0)
		now := end.Add(65 * time.Minute)

		first := DueReminderOrdinal(state, settings, now)
		assert.Equal(t, 2, first)

		// Persisting the ordinal makes an immediate re-evaluation a no-op.
		state.RemindersSent = first
		assert.Equal(t, 0, DueReminderOrdinal(state, settings, now))
	})
}

func TestDeadline(t *testing.T) {
	end := time.Date(2024, time.August, 15, 18, 0, 0, 0, time.Local)
	settings := DefaultSettings()

	t.Run("stored deadline wins", func(t *testing.T) {
		stored := end.Add(90 * time.Minute)
		state := inProgressState(end, stored, 0)
		assert.Equal(t, stored, Deadline(state, settings))
	})

	t.Run("derived from grace period when unset", func(t *testing.T) {
		state := domain.CompletionState{
			CompletionStatus: domain.CompletionInProgress,
			ScheduledEndTime: end,
		}
		assert.Equal(t, end.Add(4*time.Hour), Deadline(state, settings))
	})
}
