package schedule

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// DayStartHour is the first bookable hour of the grid.
	DayStartHour = 8
	// DayEndHour is the last slot mark on the grid axis.
	DayEndHour = 21
	// SlotMinutes is the grid resolution.
	SlotMinutes = 30
)

// timeSlots is the fixed axis "08:00".."21:00", 27 half-hour marks.
// It is a rendering/comparison axis only and is never stored.
var timeSlots = buildSlots()

func buildSlots() []string {
	var slots []string
	for h := DayStartHour; h <= DayEndHour; h++ {
		slots = append(slots, fmt.Sprintf("%02d:00", h))
		if h < DayEndHour {
			slots = append(slots, fmt.Sprintf("%02d:30", h))
		}
	}
	return slots
}

// TimeSlots returns a copy of the fixed slot axis.
func TimeSlots() []string {
	out := make([]string, len(timeSlots))
	copy(out, timeSlots)
	return out
}

// SlotCount is the number of marks on the axis.
func SlotCount() int {
	return len(timeSlots)
}

// SlotIndex returns the axis index of a "HH:MM" mark, or -1 when the value
// is off-grid. "HH:MM" strings compare correctly as plain strings, so the
// lookup also positions values between marks: the index of the last mark
// that is <= t.
func SlotIndex(t string) int {
	t = NormalizeTime(t)
	for i := len(timeSlots) - 1; i >= 0; i-- {
		if timeSlots[i] <= t {
			return i
		}
	}
	return -1
}

// NormalizeTime truncates a time representation to the "HH:MM" prefix.
// Inputs may arrive as "09:00:00" from forms or storage.
func NormalizeTime(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}

// ValidTimeRange reports whether start < end after normalization.
func ValidTimeRange(start, end string) bool {
	return NormalizeTime(start) < NormalizeTime(end)
}

// QuickCreateURL builds the navigation target for creating a booking from an
// empty grid cell, carrying room, date and time as query parameters.
func QuickCreateURL(base string, roomID int64, date time.Time, slot string) string {
	q := url.Values{}
	q.Set("room", fmt.Sprintf("%d", roomID))
	q.Set("date", date.Format("2006-01-02"))
	q.Set("time", slot)
	return base + "?" + q.Encode()
}
