package database

import "errors"

var (
	// ErrBookingConflict is returned when a booking overlaps an existing
	// active booking for the same room and date.
	ErrBookingConflict = errors.New("booking conflicts with an existing booking")

	// ErrInvalidTimeRange is returned when start_time >= end_time.
	ErrInvalidTimeRange = errors.New("start time must be before end time")

	// ErrPastDate is returned for bookings on past dates.
	ErrPastDate = errors.New("booking date is in the past")

	// ErrDateTooFar is returned for bookings beyond the allowed horizon.
	ErrDateTooFar = errors.New("booking date is too far in the future")

	// ErrConcurrentModification is returned when a versioned update finds a
	// newer version of the row.
	ErrConcurrentModification = errors.New("booking was modified concurrently")

	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
)
