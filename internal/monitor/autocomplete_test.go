package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
)

func TestShouldAutoComplete(t *testing.T) {
	end := time.Date(2024, time.August, 15, 18, 0, 0, 0, time.Local)
	deadline := end.Add(4 * time.Hour) // 22:00
	settings := DefaultSettings()

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "one minute before deadline", now: deadline.Add(-time.Minute), want: false},
		{name: "exactly at deadline", now: deadline, want: true},
		{name: "after deadline", now: deadline.Add(time.Minute), want: true},
		{name: "long after deadline", now: deadline.Add(12 * time.Hour), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := inProgressState(end, deadline, 5)
			assert.Equal(t, tt.want, ShouldAutoComplete(state, settings, tt.now))
		})
	}

	t.Run("submitted record never completes again", func(t *testing.T) {
		state := inProgressState(end, deadline, 5)
		state.CompletionStatus = domain.CompletionSubmitted
		assert.False(t, ShouldAutoComplete(state, settings, deadline.Add(time.Hour)))
	})

	t.Run("deadline derived from grace period when unset", func(t *testing.T) {
		state := domain.CompletionState{
			CompletionStatus: domain.CompletionInProgress,
			ScheduledEndTime: end,
		}
		assert.False(t, ShouldAutoComplete(state, settings, end.Add(4*time.Hour-time.Minute)))
		assert.True(t, ShouldAutoComplete(state, settings, end.Add(4*time.Hour)))
	})
}

func TestBuildCompletion(t *testing.T) {
	now := time.Date(2024, time.August, 15, 22, 0, 0, 0, time.Local)

	t.Run("default approval window", func(t *testing.T) {
		c := BuildCompletion(DefaultSettings(), now)
		assert.Equal(t, now, c.SubmittedAt)
		assert.Equal(t, now.Add(24*time.Hour), c.AutoApprovalExpiresAt)
	})

	t.Run("configured approval window", func(t *testing.T) {
		settings := DefaultSettings()
		settings.AutoApprovalHours = 48
		c := BuildCompletion(settings, now)
		assert.Equal(t, now.Add(48*time.Hour), c.AutoApprovalExpiresAt)
	})
}
