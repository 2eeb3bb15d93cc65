package domain

import "time"

// Party identifies a person a notification can be addressed to. Names and
// addresses arrive pre-decrypted from the store layer and are treated as
// opaque display strings.
type Party struct {
	ID          string `db:"id"`
	FullName    string `db:"full_name"`
	Email       string `db:"email"`
	DeviceToken string `db:"device_token"`
}

// CompletionState holds the auto-complete bookkeeping columns shared by
// single-cleaner bookings and per-cleaner assignment records. Both record
// shapes embed it so the reminder and completion evaluators run against one
// set of fields.
type CompletionState struct {
	CompletionStatus      string     `db:"completion_status"`
	ScheduledEndTime      time.Time  `db:"scheduled_end_time"`
	AutoCompleteAt        *time.Time `db:"auto_complete_at"`
	RemindersSent         int        `db:"auto_complete_reminders_sent"`
	LastReminderSentAt    *time.Time `db:"last_reminder_sent_at"`
	AutoCompletedBySystem bool       `db:"auto_completed_by_system"`
	CompletionSubmittedAt *time.Time `db:"completion_submitted_at"`
	AutoApprovalExpiresAt *time.Time `db:"auto_approval_expires_at"`
}

// CompletionRecord is the common view the monitor evaluators operate on.
// Booking and CleanerAssignment both satisfy it.
type CompletionRecord interface {
	RecordID() string
	State() CompletionState
	// ScheduledDate and WindowLabel feed the scheduled-end derivation for
	// rows whose cached end time was never written.
	ScheduledDate() string
	WindowLabel() string
	// Assignee is the cleaner reminders are addressed to.
	Assignee() Party
	// Requester is the customer who reviews the forced completion.
	Requester() Party
	Location() string
}

// Booking is a single-cleaner appointment. The first assigned cleaner is
// authoritative for notification purposes.
type Booking struct {
	ID         string `db:"id"`
	Date       string `db:"date"`
	TimeWindow string `db:"time_window"`
	Cancelled  bool   `db:"cancelled"`
	CompletionState

	CleanerID          string `db:"cleaner_id"`
	CleanerName        string `db:"cleaner_name"`
	CleanerEmail       string `db:"cleaner_email"`
	CleanerDeviceToken string `db:"cleaner_device_token"`

	CustomerID    string `db:"customer_id"`
	CustomerName  string `db:"customer_name"`
	CustomerEmail string `db:"customer_email"`

	AddressLabel string `db:"address_label"`
}

func (b Booking) RecordID() string       { return b.ID }
func (b Booking) State() CompletionState { return b.CompletionState }
func (b Booking) ScheduledDate() string  { return b.Date }
func (b Booking) WindowLabel() string    { return b.TimeWindow }
func (b Booking) Location() string       { return b.AddressLabel }

func (b Booking) Assignee() Party {
	return Party{ID: b.CleanerID, FullName: b.CleanerName, Email: b.CleanerEmail, DeviceToken: b.CleanerDeviceToken}
}

func (b Booking) Requester() Party {
	return Party{ID: b.CustomerID, FullName: b.CustomerName, Email: b.CustomerEmail}
}

// CleanerAssignment is one cleaner's slice of a multi-cleaner booking. Each
// assignment tracks its own completion state so one forgetful cleaner does
// not hold up the others.
type CleanerAssignment struct {
	ID          string     `db:"id"`
	BookingID   string     `db:"booking_id"`
	Status      string     `db:"status"`
	CompletedAt *time.Time `db:"completed_at"`
	Date        string     `db:"date"`
	TimeWindow  string     `db:"time_window"`
	CompletionState

	CleanerID          string `db:"cleaner_id"`
	CleanerName        string `db:"cleaner_name"`
	CleanerEmail       string `db:"cleaner_email"`
	CleanerDeviceToken string `db:"cleaner_device_token"`

	CustomerID    string `db:"customer_id"`
	CustomerName  string `db:"customer_name"`
	CustomerEmail string `db:"customer_email"`

	AddressLabel string `db:"address_label"`
}

func (a CleanerAssignment) RecordID() string       { return a.ID }
func (a CleanerAssignment) State() CompletionState { return a.CompletionState }
func (a CleanerAssignment) ScheduledDate() string  { return a.Date }
func (a CleanerAssignment) WindowLabel() string    { return a.TimeWindow }
func (a CleanerAssignment) Location() string       { return a.AddressLabel }

func (a CleanerAssignment) Assignee() Party {
	return Party{ID: a.CleanerID, FullName: a.CleanerName, Email: a.CleanerEmail, DeviceToken: a.CleanerDeviceToken}
}

func (a CleanerAssignment) Requester() Party {
	return Party{ID: a.CustomerID, FullName: a.CustomerName, Email: a.CustomerEmail}
}

// InAppNotification is a row in the notifications table.
type InAppNotification struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Kind      string    `db:"kind"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	Context   string    `db:"context"` // JSON document
	CreatedAt time.Time `db:"created_at"`
}
