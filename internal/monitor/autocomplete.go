package monitor

import (
	"time"

	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
)

// ShouldAutoComplete reports whether a record's deadline has been reached
// and it is still waiting on its cleaner. Boundary is inclusive: a record
// exactly at its deadline completes now.
func ShouldAutoComplete(state domain.CompletionState, settings Settings, now time.Time) bool {
	if state.CompletionStatus != domain.CompletionInProgress {
		return false
	}
	return !now.Before(Deadline(state, settings))
}

// Completion describes the field changes of a forced completion. The store
// applies them as a single guarded update; auto_complete_at is cleared in
// the same statement, which removes the record from every future sweep.
type Completion struct {
	SubmittedAt           time.Time
	AutoApprovalExpiresAt time.Time
}

// BuildCompletion computes the submission timestamps for a record that
// auto-completes at the given instant.
func BuildCompletion(settings Settings, now time.Time) Completion {
	return Completion{
		SubmittedAt:           now,
		AutoApprovalExpiresAt: now.Add(settings.ApprovalWindow()),
	}
}
