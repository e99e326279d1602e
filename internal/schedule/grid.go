package schedule

import (
	"roombook/internal/models"
)

// Cell is one (room, slot) position of the day grid. Exactly one cell per
// booking carries the Booking pointer and its span; the slots a booking
// merely covers are marked Covered so renderers skip them.
type Cell struct {
	Booking *models.Booking `json:"booking,omitempty"`
	Span    int             `json:"span,omitempty"`
	Covered bool            `json:"covered,omitempty"`
}

// Row is the slot-aligned cell sequence for one room.
type Row struct {
	Room  models.Room `json:"room"`
	Cells []Cell      `json:"cells"`
}

// Grid is the room × time-slot matrix for a single day.
type Grid struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
	Rows  []Row    `json:"rows"`
}

// BuildGrid computes the occupancy matrix for one day. For each room and
// each slot in order, a booking occupies the slot iff
// slot >= booking.start && slot < booking.end (string comparison over the
// fixed "HH:MM" format). The booking is attributed to the cell at its own
// start slot with span = index(end) - index(start) in slot units; a booking
// ending past 21:00 is clipped by the axis. Pure function of its inputs.
func BuildGrid(date string, rooms []models.Room, bookings []models.Booking) Grid {
	grid := Grid{
		Date:  date,
		Slots: TimeSlots(),
		Rows:  make([]Row, 0, len(rooms)),
	}

	for _, room := range rooms {
		row := Row{Room: room, Cells: make([]Cell, len(grid.Slots))}
		rendered := make(map[int64]bool)

		for i, slot := range grid.Slots {
			b := bookingAt(room.ID, date, slot, bookings)
			if b == nil {
				continue
			}
			if rendered[b.ID] {
				row.Cells[i] = Cell{Covered: true}
				continue
			}
			rendered[b.ID] = true
			row.Cells[i] = Cell{Booking: b, Span: spanOf(b, i)}
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// bookingAt returns the active booking covering a slot, or nil.
func bookingAt(roomID int64, date, slot string, bookings []models.Booking) *models.Booking {
	for i := range bookings {
		b := &bookings[i]
		if b.RoomID != roomID || !b.IsActive() {
			continue
		}
		if b.Date.Format("2006-01-02") != date {
			continue
		}
		if slot >= NormalizeTime(b.StartTime) && slot < NormalizeTime(b.EndTime) {
			return b
		}
	}
	return nil
}

// spanOf counts the consecutive slots a booking occupies from its first
// rendered cell. The axis end clips bookings running past the last mark.
func spanOf(b *models.Booking, startIdx int) int {
	end := NormalizeTime(b.EndTime)
	endIdx := len(timeSlots)
	for i := startIdx; i < len(timeSlots); i++ {
		if timeSlots[i] >= end {
			endIdx = i
			break
		}
	}
	span := endIdx - startIdx
	if span < 1 {
		span = 1
	}
	return span
}
