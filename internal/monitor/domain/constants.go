package domain

// Completion status lifecycle for a booking or a per-cleaner assignment.
// The monitor only ever drives the in_progress -> submitted transition;
// everything after submitted belongs to the review flow.
const (
	CompletionNotStarted = "not_started"
	CompletionInProgress = "in_progress"
	CompletionSubmitted  = "submitted"
	CompletionApproved   = "approved"
	CompletionDisputed   = "disputed"
)

// Coarse assignment lifecycle for multi-cleaner bookings.
const (
	AssignmentAssigned  = "assigned"
	AssignmentStarted   = "started"
	AssignmentCompleted = "completed"
)
