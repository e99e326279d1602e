package models

import "time"

type Booking struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"room_id"`
	RoomName    string    `json:"room_name"`
	Date        time.Time `json:"date"`
	StartTime   string    `json:"start_time"` // "HH:MM"
	EndTime     string    `json:"end_time"`   // "HH:MM"
	Status      string    `json:"status"`     // pending, approved, rejected, cancelled, completed
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Attendees   int64     `json:"attendees"`
	BookerName  string    `json:"booker_name"`
	BookerEmail string    `json:"booker_email"`
	BookerPhone string    `json:"booker_phone"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Version     int64     `json:"version"`
}

// IsActive reports whether the booking still occupies its room time.
// Rejected and cancelled bookings release the slot.
func (b *Booking) IsActive() bool {
	return b.Status != StatusCancelled && b.Status != StatusRejected
}
