package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"roombook/internal/models"
	"roombook/internal/schedule"
)

const bookingColumns = `id, room_id, room_name, date, start_time, end_time, status, title,
                 description, attendees, booker_name, booker_email, booker_phone,
                 user_id, created_at, updated_at, version`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				room_id, room_name, date, start_time, end_time, status, title,
				description, attendees, booker_name, booker_email, booker_phone,
				user_id, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.RoomID,
		booking.RoomName,
		booking.Date.Format("2006-01-02"),
		schedule.NormalizeTime(booking.StartTime),
		schedule.NormalizeTime(booking.EndTime),
		booking.Status,
		booking.Title,
		booking.Description,
		booking.Attendees,
		booking.BookerName,
		booking.BookerEmail,
		booking.BookerPhone,
		booking.UserID,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.StartTime = schedule.NormalizeTime(booking.StartTime)
	booking.EndTime = schedule.NormalizeTime(booking.EndTime)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// CreateBookingWithConflictCheck re-runs the overlap check inside a
// transaction before inserting, so concurrent writers cannot double-book a
// room even when both passed the advisory client-side check.
func (db *DB) CreateBookingWithConflictCheck(ctx context.Context, booking *models.Booking) error {
	start := schedule.NormalizeTime(booking.StartTime)
	end := schedule.NormalizeTime(booking.EndTime)
	if start >= end {
		return ErrInvalidTimeRange
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 1. Count overlapping active bookings inside the transaction
	var overlapping int
	queryCount := `SELECT COUNT(*) FROM bookings
              WHERE room_id = ? AND date = ? AND start_time < ? AND end_time > ?
                AND status NOT IN (?, ?)`
	err = tx.QueryRowContext(ctx, queryCount,
		booking.RoomID, booking.Date.Format("2006-01-02"), end, start,
		models.StatusCancelled, models.StatusRejected).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("failed to check conflicts in tx: %w", err)
	}
	if overlapping > 0 {
		return ErrBookingConflict
	}

	// 2. Insert the booking
	queryInsert := `INSERT INTO bookings (
				room_id, room_name, date, start_time, end_time, status, title,
				description, attendees, booker_name, booker_email, booker_phone,
				user_id, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, queryInsert,
		booking.RoomID,
		booking.RoomName,
		booking.Date.Format("2006-01-02"),
		start,
		end,
		booking.Status,
		booking.Title,
		booking.Description,
		booking.Attendees,
		booking.BookerName,
		booking.BookerEmail,
		booking.BookerPhone,
		booking.UserID,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.StartTime = start
	booking.EndTime = end
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetBookingsByDateRange returns bookings with date in [start, end]
// inclusive, ordered by date then start time.
func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings WHERE date >= ? AND date <= ?
              ORDER BY date ASC, start_time ASC`
	return db.queryBookings(ctx, query,
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
}

// GetRoomBookingsForDate returns the active bookings for one room and day,
// the input set for the advisory conflict check.
func (db *DB) GetRoomBookingsForDate(ctx context.Context, roomID int64, date time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings
              WHERE room_id = ? AND date = ? AND status NOT IN (?, ?)
              ORDER BY start_time ASC`
	return db.queryBookings(ctx, query,
		roomID, date.Format("2006-01-02"), models.StatusCancelled, models.StatusRejected)
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// UpdateBookingTimesWithVersion moves a booking to a new time range. The
// caller must have run the conflict check with the booking's own id excluded.
func (db *DB) UpdateBookingTimesWithVersion(ctx context.Context, id, fromVersion int64, date time.Time, start, end string) error {
	start = schedule.NormalizeTime(start)
	end = schedule.NormalizeTime(end)
	if start >= end {
		return ErrInvalidTimeRange
	}

	query := `UPDATE bookings SET date = ?, start_time = ?, end_time = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		date.Format("2006-01-02"), start, end, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking times: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// UpdateBookingDetails changes the descriptive fields without touching the
// time range or status.
func (db *DB) UpdateBookingDetails(ctx context.Context, booking *models.Booking) error {
	query := `UPDATE bookings SET title = ?, description = ?, attendees = ?,
                 booker_name = ?, booker_email = ?, booker_phone = ?, updated_at = ?
              WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		booking.Title, booking.Description, booking.Attendees,
		booking.BookerName, booking.BookerEmail, booking.BookerPhone,
		time.Now(), booking.ID)
	if err != nil {
		return fmt.Errorf("failed to update booking details: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) GetUserBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	// Последние 2 недели и будущие заявки
	twoWeeksAgo := time.Now().AddDate(0, 0, -14).Format("2006-01-02")
	query := `SELECT ` + bookingColumns + `
              FROM bookings WHERE user_id = ? AND date >= ?
              ORDER BY date DESC, start_time DESC`
	return db.queryBookings(ctx, query, userID, twoWeeksAgo)
}

// CompletePastBookings marks approved bookings on dates before the cutoff as
// completed. Used by the scheduled maintenance job.
func (db *DB) CompletePastBookings(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE status = ? AND date < ?`
	result, err := db.ExecContext(ctx, query,
		models.StatusCompleted, time.Now(), models.StatusApproved, before.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to complete past bookings: %w", err)
	}
	return result.RowsAffected()
}

// CancelStalePending cancels pending bookings that were never reviewed and
// whose date has already passed.
func (db *DB) CancelStalePending(ctx context.Context, before time.Time) (int64, error) {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ?
              WHERE status = ? AND date < ?`
	result, err := db.ExecContext(ctx, query,
		models.StatusCancelled, time.Now(), models.StatusPending, before.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to cancel stale pending bookings: %w", err)
	}
	return result.RowsAffected()
}

func scanBooking(r rowScanner) (*models.Booking, error) {
	var b models.Booking
	var dateStr string
	err := r.Scan(
		&b.ID, &b.RoomID, &b.RoomName, &dateStr, &b.StartTime, &b.EndTime,
		&b.Status, &b.Title, &b.Description, &b.Attendees,
		&b.BookerName, &b.BookerEmail, &b.BookerPhone,
		&b.UserID, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}

	b.Date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse booking date %s: %w", dateStr, err)
	}
	return &b, nil
}
