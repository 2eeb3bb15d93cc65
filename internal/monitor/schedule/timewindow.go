// Package schedule maps booking time windows to wall-clock times.
package schedule

import (
	"strconv"
	"strings"
	"time"
)

// TimeWindow holds the start and end clock hours of a work window.
type TimeWindow struct {
	Start int
	End   int
}

// DefaultWindowLabel is assumed whenever a booking carries no recognizable
// window label.
const DefaultWindowLabel = "anytime"

var windows = map[string]TimeWindow{
	"anytime": {Start: 8, End: 18},
	"10-3":    {Start: 10, End: 15},
	"11-4":    {Start: 11, End: 16},
	"12-2":    {Start: 12, End: 14},
}

// ResolveWindow maps a window label to its clock hours. Resolution is total:
// unknown or empty labels fall back to the anytime window rather than error.
func ResolveWindow(label string) TimeWindow {
	if w, ok := windows[label]; ok {
		return w
	}
	return windows[DefaultWindowLabel]
}

// ScheduledEnd returns the absolute timestamp at which a booking's work
// window ends: the end hour of the resolved window on the booking date,
// minute zero, in service-local time.
//
// The date is split into components and assembled with time.Date so the
// hour is never shifted by UTC parsing of the date string.
func ScheduledEnd(date string, windowLabel string) (time.Time, error) {
	year, month, day, err := splitDate(date)
	if err != nil {
		return time.Time{}, err
	}
	w := ResolveWindow(windowLabel)
	return time.Date(year, time.Month(month), day, w.End, 0, 0, 0, time.Local), nil
}

func splitDate(date string) (year, month, day int, err error) {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, &InvalidDateError{Date: date}
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, &InvalidDateError{Date: date}
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, &InvalidDateError{Date: date}
	}
	day, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, &InvalidDateError{Date: date}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, &InvalidDateError{Date: date}
	}
	return year, month, day, nil
}

// InvalidDateError reports a booking date that is not YYYY-MM-DD.
type InvalidDateError struct {
	Date string
}

func (e *InvalidDateError) Error() string {
	return "invalid booking date: " + strconv.Quote(e.Date)
}
