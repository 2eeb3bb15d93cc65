package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func int64Ptr(v int64) *int64 { return &v }

func TestSettingsFromRow(t *testing.T) {
	tests := []struct {
		name          string
		hoursAfterEnd *int64
		offsets       []int64
		approvalHours *int64
		want          Settings
	}{
		{
			name: "no row at all falls back to every default",
			want: Settings{
				HoursAfterEnd:          4,
				ReminderOffsetsMinutes: []int{30, 60, 120, 180, 210},
				AutoApprovalHours:      24,
			},
		},
		{
			name:          "only grace period configured keeps default offsets and approval",
			hoursAfterEnd: int64Ptr(5),
			want: Settings{
				HoursAfterEnd:          5,
				ReminderOffsetsMinutes: []int{30, 60, 120, 180, 210},
				AutoApprovalHours:      24,
			},
		},
		{
			name:          "fully configured row",
			hoursAfterEnd: int64Ptr(6),
			offsets:       []int64{15, 45, 90},
			approvalHours: int64Ptr(48),
			want: Settings{
				HoursAfterEnd:          6,
				ReminderOffsetsMinutes: []int{15, 45, 90},
				AutoApprovalHours:      48,
			},
		},
		{
			name:          "only approval window configured",
			approvalHours: int64Ptr(12),
			want: Settings{
				HoursAfterEnd:          4,
				ReminderOffsetsMinutes: []int{30, 60, 120, 180, 210},
				AutoApprovalHours:      12,
			},
		},
		{
			name:          "zero values are treated as unset",
			hoursAfterEnd: int64Ptr(0),
			approvalHours: int64Ptr(0),
			want: Settings{
				HoursAfterEnd:          4,
				ReminderOffsetsMinutes: []int{30, 60, 120, 180, 210},
				AutoApprovalHours:      24,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SettingsFromRow(tt.hoursAfterEnd, tt.offsets, tt.approvalHours)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsDurations(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, "4h0m0s", s.GracePeriod().String())
	assert.Equal(t, "24h0m0s", s.ApprovalWindow().String())
}
