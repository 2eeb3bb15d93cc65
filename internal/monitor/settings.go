package monitor

import "time"

// Hard-coded fallbacks used whenever the settings row is absent or a
// specific column is null. Fallback is per field, never wholesale, so a
// partially configured row keeps its configured values.
const (
	DefaultHoursAfterEnd     = 4
	DefaultAutoApprovalHours = 24
)

// DefaultReminderOffsets returns the reminder thresholds, in minutes past
// the scheduled end, used when none are configured.
func DefaultReminderOffsets() []int {
	return []int{30, 60, 120, 180, 210}
}

// Settings are the tunable parameters of one monitor pass. They are
// resolved once per run and passed into every evaluation, never read from
// shared state per record.
type Settings struct {
	// HoursAfterEnd is the grace period between a booking's scheduled end
	// and its forced completion.
	HoursAfterEnd int
	// ReminderOffsetsMinutes are ascending thresholds past the scheduled
	// end at which successive reminders become due.
	ReminderOffsetsMinutes []int
	// AutoApprovalHours is how long the customer has to review a forced
	// completion before it is treated as accepted.
	AutoApprovalHours int
}

// DefaultSettings returns the fallback configuration.
func DefaultSettings() Settings {
	return Settings{
		HoursAfterEnd:          DefaultHoursAfterEnd,
		ReminderOffsetsMinutes: DefaultReminderOffsets(),
		AutoApprovalHours:      DefaultAutoApprovalHours,
	}
}

// GracePeriod returns HoursAfterEnd as a duration.
func (s Settings) GracePeriod() time.Duration {
	return time.Duration(s.HoursAfterEnd) * time.Hour
}

// ApprovalWindow returns AutoApprovalHours as a duration.
func (s Settings) ApprovalWindow() time.Duration {
	return time.Duration(s.AutoApprovalHours) * time.Hour
}

// SettingsFromRow builds Settings from the nullable columns of the
// monitor_settings row. Each nil or empty input independently falls back to
// its default; passing all nils (no row at all) yields DefaultSettings.
func SettingsFromRow(hoursAfterEnd *int64, reminderOffsets []int64, approvalHours *int64) Settings {
	s := DefaultSettings()
	if hoursAfterEnd != nil && *hoursAfterEnd > 0 {
		s.HoursAfterEnd = int(*hoursAfterEnd)
	}
	if len(reminderOffsets) > 0 {
		offsets := make([]int, len(reminderOffsets))
		for i, v := range reminderOffsets {
			offsets[i] = int(v)
		}
		s.ReminderOffsetsMinutes = offsets
	}
	if approvalHours != nil && *approvalHours > 0 {
		s.AutoApprovalHours = int(*approvalHours)
	}
	return s
}
