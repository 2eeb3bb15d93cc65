package domain

import "errors"

var (
	// ErrRecordNotFound is returned when a booking or assignment cannot be found
	ErrRecordNotFound = errors.New("record not found")

	// ErrStaleRecord is returned when a guarded update matched no rows,
	// meaning another run already advanced the record
	ErrStaleRecord = errors.New("record already advanced by another run")

	// ErrRunInProgress is returned when a sweep is requested while the
	// previous one has not finished
	ErrRunInProgress = errors.New("monitor run already in progress")
)
