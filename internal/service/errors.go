package service

import (
	"errors"
	"fmt"
	"strings"

	"roombook/internal/models"
)

var (
	// ErrStaleWindow is returned when a schedule window load finished after a
	// newer load for the same user had already started. The stale result must
	// be discarded, never rendered.
	ErrStaleWindow = errors.New("schedule window is stale")

	// ErrRateLimited is returned when a user navigates the schedule faster
	// than the per-user window allows.
	ErrRateLimited = errors.New("too many navigation requests")

	ErrRoomInactive = errors.New("room is not active")
	ErrEmptyTitle   = errors.New("booking title is required")
	ErrEmptyName    = errors.New("room name is required")
)

// ConflictError lists the bookings that overlap a requested time range.
type ConflictError struct {
	Conflicts []models.Booking
}

func (e *ConflictError) Error() string {
	var sb strings.Builder
	sb.WriteString("time slot is already taken by: ")
	for i, b := range e.Conflicts {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q (%s-%s)", b.Title, b.StartTime, b.EndTime)
	}
	return sb.String()
}
