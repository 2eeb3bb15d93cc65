package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sparklecrew/sparkle-be/internal/monitor"
	"github.com/sparklecrew/sparkle-be/internal/monitor/domain"
	"github.com/sparklecrew/sparkle-be/shared/postgresql"
)

// Storage handles all database operations for the monitor service
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

const bookingColumns = `
	b.id, b.date, b.time_window, b.cancelled,
	b.completion_status, b.scheduled_end_time, b.auto_complete_at,
	b.auto_complete_reminders_sent, b.last_reminder_sent_at,
	b.auto_completed_by_system, b.completion_submitted_at, b.auto_approval_expires_at,
	cl.id AS cleaner_id, cl.full_name AS cleaner_name,
	COALESCE(cl.email, '') AS cleaner_email,
	COALESCE(cl.device_token, '') AS cleaner_device_token,
	cu.id AS customer_id, cu.full_name AS customer_name,
	COALESCE(cu.email, '') AS customer_email,
	b.address_label`

const bookingJoins = `
	FROM bookings b
	JOIN booking_cleaners bc ON bc.booking_id = b.id AND bc.position = 0
	JOIN cleaners cl ON cl.id = bc.cleaner_id
	JOIN customers cu ON cu.id = b.customer_id`

// ReminderCandidateBookings returns single-cleaner bookings still inside
// their grace period: work window over, deadline not yet reached. Rows
// whose deadline was never stored are included so the sweep can backfill
// them.
func (s *Storage) ReminderCandidateBookings(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	query := `SELECT` + bookingColumns + bookingJoins + `
	WHERE b.completion_status = $1
	  AND b.cancelled = FALSE
	  AND b.multi_cleaner = FALSE
	  AND b.scheduled_end_time < $2
	  AND (b.auto_complete_at IS NULL OR b.auto_complete_at > $2)`

	var bookings []domain.Booking
	if err := s.db.SelectContext(ctx, &bookings, query, domain.CompletionInProgress, now); err != nil {
		return nil, fmt.Errorf("failed to query reminder candidate bookings: %w", err)
	}
	return bookings, nil
}

// CompletionCandidateBookings returns single-cleaner bookings whose
// auto-complete deadline has been reached.
func (s *Storage) CompletionCandidateBookings(ctx context.Context, now time.Time) ([]domain.Booking, error) {
	query := `SELECT` + bookingColumns + bookingJoins + `
	WHERE b.completion_status = $1
	  AND b.cancelled = FALSE
	  AND b.multi_cleaner = FALSE
	  AND b.auto_complete_at IS NOT NULL
	  AND b.auto_complete_at <= $2`

	var bookings []domain.Booking
	if err := s.db.SelectContext(ctx, &bookings, query, domain.CompletionInProgress, now); err != nil {
		return nil, fmt.Errorf("failed to query completion candidate bookings: %w", err)
	}
	return bookings, nil
}

const assignmentColumns = `
	a.id, a.booking_id, a.status, a.completed_at,
	b.date, b.time_window,
	a.completion_status, a.scheduled_end_time, a.auto_complete_at,
	a.auto_complete_reminders_sent, a.last_reminder_sent_at,
	a.auto_completed_by_system, a.completion_submitted_at, a.auto_approval_expires_at,
	cl.id AS cleaner_id, cl.full_name AS cleaner_name,
	COALESCE(cl.email, '') AS cleaner_email,
	COALESCE(cl.device_token, '') AS cleaner_device_token,
	cu.id AS customer_id, cu.full_name AS customer_name,
	COALESCE(cu.email, '') AS customer_email,
	b.address_label`

const assignmentJoins = `
	FROM cleaner_assignments a
	JOIN bookings b ON b.id = a.booking_id
	JOIN cleaners cl ON cl.id = a.cleaner_id
	JOIN customers cu ON cu.id = b.customer_id`

// ReminderCandidateAssignments returns per-cleaner records of multi-cleaner
// bookings inside their grace period.
func (s *Storage) ReminderCandidateAssignments(ctx context.Context, now time.Time) ([]domain.CleanerAssignment, error) {
	query := `SELECT` + assignmentColumns + assignmentJoins + `
	WHERE a.completion_status = $1
	  AND b.cancelled = FALSE
	  AND a.scheduled_end_time < $2
	  AND (a.auto_complete_at IS NULL OR a.auto_complete_at > $2)`

	var assignments []domain.CleanerAssignment
	if err := s.db.SelectContext(ctx, &assignments, query, domain.CompletionInProgress, now); err != nil {
		return nil, fmt.Errorf("failed to query reminder candidate assignments: %w", err)
	}
	return assignments, nil
}

// CompletionCandidateAssignments returns per-cleaner records whose
// auto-complete deadline has been reached.
func (s *Storage) CompletionCandidateAssignments(ctx context.Context, now time.Time) ([]domain.CleanerAssignment, error) {
	query := `SELECT` + assignmentColumns + assignmentJoins + `
	WHERE a.completion_status = $1
	  AND b.cancelled = FALSE
	  AND a.auto_complete_at IS NOT NULL
	  AND a.auto_complete_at <= $2`

	var assignments []domain.CleanerAssignment
	if err := s.db.SelectContext(ctx, &assignments, query, domain.CompletionInProgress, now); err != nil {
		return nil, fmt.Errorf("failed to query completion candidate assignments: %w", err)
	}
	return assignments, nil
}

// SetBookingDeadline stores a derived deadline on a booking that never got
// one. The IS NULL guard keeps a concurrent run from moving an existing
// deadline.
func (s *Storage) SetBookingDeadline(ctx context.Context, id string, deadline time.Time) error {
	query := `
		UPDATE bookings
		SET auto_complete_at = $2, updated_at = NOW()
		WHERE id = $1
		  AND completion_status = $3
		  AND auto_complete_at IS NULL`

	if _, err := s.db.ExecContext(ctx, query, id, deadline, domain.CompletionInProgress); err != nil {
		return fmt.Errorf("failed to set booking deadline: %w", err)
	}
	return nil
}

// SetAssignmentDeadline is SetBookingDeadline for per-cleaner records.
func (s *Storage) SetAssignmentDeadline(ctx context.Context, id string, deadline time.Time) error {
	query := `
		UPDATE cleaner_assignments
		SET auto_complete_at = $2, updated_at = NOW()
		WHERE id = $1
		  AND completion_status = $3
		  AND auto_complete_at IS NULL`

	if _, err := s.db.ExecContext(ctx, query, id, deadline, domain.CompletionInProgress); err != nil {
		return fmt.Errorf("failed to set assignment deadline: %w", err)
	}
	return nil
}

// MarkBookingReminderSent advances the reminder counter using an
// optimistic guard: the update only matches while the stored counter is
// behind the new ordinal, so the counter never moves backwards and two
// overlapping runs cannot both claim the same ordinal.
func (s *Storage) MarkBookingReminderSent(ctx context.Context, id string, ordinal int, sentAt time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET auto_complete_reminders_sent = $2,
		    last_reminder_sent_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND completion_status = $4
		  AND auto_complete_reminders_sent < $2`

	result, err := s.db.ExecContext(ctx, query, id, ordinal, sentAt, domain.CompletionInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to mark booking reminder sent: %w", err)
	}
	return rowsAffected(result)
}

// MarkAssignmentReminderSent is MarkBookingReminderSent for per-cleaner
// records.
func (s *Storage) MarkAssignmentReminderSent(ctx context.Context, id string, ordinal int, sentAt time.Time) (bool, error) {
	query := `
		UPDATE cleaner_assignments
		SET auto_complete_reminders_sent = $2,
		    last_reminder_sent_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND completion_status = $4
		  AND auto_complete_reminders_sent < $2`

	result, err := s.db.ExecContext(ctx, query, id, ordinal, sentAt, domain.CompletionInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to mark assignment reminder sent: %w", err)
	}
	return rowsAffected(result)
}

// SubmitBookingForReview performs the forced completion as one atomic,
// guarded update: status to submitted, approval countdown started, the
// deadline cleared so the booking leaves every future sweep.
func (s *Storage) SubmitBookingForReview(ctx context.Context, id string, c monitor.Completion) (bool, error) {
	query := `
		UPDATE bookings
		SET completion_status = $2,
		    completion_submitted_at = $3,
		    auto_completed_by_system = TRUE,
		    auto_approval_expires_at = $4,
		    auto_complete_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND completion_status = $5`

	result, err := s.db.ExecContext(ctx, query, id,
		domain.CompletionSubmitted, c.SubmittedAt, c.AutoApprovalExpiresAt, domain.CompletionInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to submit booking for review: %w", err)
	}
	return rowsAffected(result)
}

// SubmitAssignmentForReview additionally advances the coarse assignment
// lifecycle to completed.
func (s *Storage) SubmitAssignmentForReview(ctx context.Context, id string, c monitor.Completion) (bool, error) {
	query := `
		UPDATE cleaner_assignments
		SET completion_status = $2,
		    completion_submitted_at = $3,
		    auto_completed_by_system = TRUE,
		    auto_approval_expires_at = $4,
		    auto_complete_at = NULL,
		    status = $5,
		    completed_at = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND completion_status = $6`

	result, err := s.db.ExecContext(ctx, query, id,
		domain.CompletionSubmitted, c.SubmittedAt, c.AutoApprovalExpiresAt,
		domain.AssignmentCompleted, domain.CompletionInProgress)
	if err != nil {
		return false, fmt.Errorf("failed to submit assignment for review: %w", err)
	}
	return rowsAffected(result)
}

type settingsRow struct {
	HoursAfterEnd   sql.NullInt64 `db:"auto_complete_hours_after_end"`
	ReminderOffsets pq.Int64Array `db:"reminder_offsets_minutes"`
	ApprovalHours   sql.NullInt64 `db:"auto_approval_hours"`
}

// MonitorSettings reads the active configuration row. A missing row yields
// the defaults; a present row falls back field by field for null columns.
func (s *Storage) MonitorSettings(ctx context.Context) (monitor.Settings, error) {
	query := `
		SELECT auto_complete_hours_after_end, reminder_offsets_minutes, auto_approval_hours
		FROM monitor_settings
		ORDER BY updated_at DESC
		LIMIT 1`

	var row settingsRow
	err := s.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return monitor.DefaultSettings(), nil
	}
	if err != nil {
		return monitor.Settings{}, fmt.Errorf("failed to query monitor settings: %w", err)
	}

	return monitor.SettingsFromRow(
		nullableInt64(row.HoursAfterEnd),
		[]int64(row.ReminderOffsets),
		nullableInt64(row.ApprovalHours),
	), nil
}

// CreateInAppNotification inserts an in-app notification row.
func (s *Storage) CreateInAppNotification(ctx context.Context, n domain.InAppNotification) error {
	query := `
		INSERT INTO notifications (id, user_id, kind, title, body, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := s.db.ExecContext(ctx, query, n.ID, n.UserID, n.Kind, n.Title, n.Body, n.Context, n.CreatedAt); err != nil {
		return fmt.Errorf("failed to create in-app notification: %w", err)
	}
	return nil
}

func rowsAffected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func nullableInt64(v sql.NullInt64) *int64 {
	if v.Valid {
		return &v.Int64
	}
	return nil
}
