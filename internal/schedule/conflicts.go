package schedule

import (
	"roombook/internal/models"
)

// Candidate is a reservation request being checked for double-booking.
// Start and End are "HH:MM" values, Start < End validated by the caller.
type Candidate struct {
	RoomID int64
	Date   string // "2006-01-02"
	Start  string
	End    string
}

// Overlaps applies the half-open interval test: [s1,e1) and [s2,e2) conflict
// iff s1 < e2 && e1 > s2. Touching endpoints do not conflict.
func Overlaps(s1, e1, s2, e2 string) bool {
	return s1 < e2 && e1 > s2
}

// FindConflicts returns the bookings that would be double-booked by the
// candidate, in the order they appear in existing. Cancelled and rejected
// bookings never conflict, nor does the booking with id == excludeID (the
// record being edited). Pure function; the caller is responsible for passing
// freshly fetched bookings. The result is advisory only, the authoritative
// check runs inside the storage transaction.
func FindConflicts(c Candidate, existing []models.Booking, excludeID int64) []models.Booking {
	start := NormalizeTime(c.Start)
	end := NormalizeTime(c.End)

	var conflicts []models.Booking
	for _, b := range existing {
		if b.RoomID != c.RoomID {
			continue
		}
		if b.Date.Format("2006-01-02") != c.Date {
			continue
		}
		if !b.IsActive() {
			continue
		}
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if Overlaps(start, end, NormalizeTime(b.StartTime), NormalizeTime(b.EndTime)) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}
