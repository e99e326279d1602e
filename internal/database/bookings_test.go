package database

import (
	"context"
	"testing"
	"time"

	"roombook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestBooking(room *models.Room, date, start, end, status string) *models.Booking {
	return &models.Booking{
		RoomID:     room.ID,
		RoomName:   room.Name,
		Date:       testDate(date),
		StartTime:  start,
		EndTime:    end,
		Status:     status,
		Title:      "Weekly sync",
		Attendees:  4,
		BookerName: "Dana",
		UserID:     1,
	}
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	booking := newTestBooking(room, "2024-06-10", "09:00", "10:00", models.StatusPending)
	require.NoError(t, db.CreateBooking(ctx, booking))
	require.NotZero(t, booking.ID)
	assert.Equal(t, int64(1), booking.Version)

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.RoomID)
	assert.Equal(t, "2024-06-10", got.Date.Format("2006-01-02"))
	assert.Equal(t, "09:00", got.StartTime)
	assert.Equal(t, "10:00", got.EndTime)
	assert.Equal(t, "Weekly sync", got.Title)
}

func TestCreateBookingTruncatesTimes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	booking := newTestBooking(room, "2024-06-10", "09:00:00", "10:30:00", models.StatusPending)
	require.NoError(t, db.CreateBooking(ctx, booking))

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00", got.StartTime)
	assert.Equal(t, "10:30", got.EndTime)
}

func TestCreateBookingWithConflictCheck(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	first := newTestBooking(room, "2024-06-10", "09:00", "10:00", models.StatusApproved)
	require.NoError(t, db.CreateBookingWithConflictCheck(ctx, first))

	// Overlapping request fails inside the transaction.
	overlap := newTestBooking(room, "2024-06-10", "09:30", "10:30", models.StatusPending)
	err := db.CreateBookingWithConflictCheck(ctx, overlap)
	assert.ErrorIs(t, err, ErrBookingConflict)

	// Touching endpoints do not conflict.
	adjacent := newTestBooking(room, "2024-06-10", "10:00", "11:00", models.StatusPending)
	require.NoError(t, db.CreateBookingWithConflictCheck(ctx, adjacent))

	// Cancelling the first booking frees its slot.
	require.NoError(t, db.UpdateBookingStatus(ctx, first.ID, models.StatusCancelled))
	retry := newTestBooking(room, "2024-06-10", "09:30", "10:00", models.StatusPending)
	require.NoError(t, db.CreateBookingWithConflictCheck(ctx, retry))
}

func TestCreateBookingWithConflictCheckOtherRoom(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	roomA := createTestRoom(t, db, "Aurora")
	roomB := createTestRoom(t, db, "Zenith")

	require.NoError(t, db.CreateBookingWithConflictCheck(ctx,
		newTestBooking(roomA, "2024-06-10", "09:00", "10:00", models.StatusApproved)))
	require.NoError(t, db.CreateBookingWithConflictCheck(ctx,
		newTestBooking(roomB, "2024-06-10", "09:00", "10:00", models.StatusApproved)))
}

func TestCreateBookingInvalidRange(t *testing.T) {
	db := setupTestDB(t)
	room := createTestRoom(t, db, "Aurora")

	bad := newTestBooking(room, "2024-06-10", "10:00", "09:00", models.StatusPending)
	err := db.CreateBookingWithConflictCheck(context.Background(), bad)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-12", "09:00", "10:00", models.StatusPending)))
	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-10", "14:00", "15:00", models.StatusPending)))
	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-10", "09:00", "10:00", models.StatusPending)))
	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-20", "09:00", "10:00", models.StatusPending))) // out of range

	bookings, err := db.GetBookingsByDateRange(ctx, testDate("2024-06-09"), testDate("2024-06-15"))
	require.NoError(t, err)
	require.Len(t, bookings, 3)

	// Ordered by date then start time.
	assert.Equal(t, "2024-06-10", bookings[0].Date.Format("2006-01-02"))
	assert.Equal(t, "09:00", bookings[0].StartTime)
	assert.Equal(t, "14:00", bookings[1].StartTime)
	assert.Equal(t, "2024-06-12", bookings[2].Date.Format("2006-01-02"))
}

func TestGetRoomBookingsForDateSkipsInactive(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-10", "09:00", "10:00", models.StatusApproved)))
	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-10", "10:00", "11:00", models.StatusCancelled)))
	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-10", "11:00", "12:00", models.StatusRejected)))

	bookings, err := db.GetRoomBookingsForDate(ctx, room.ID, testDate("2024-06-10"))
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.StatusApproved, bookings[0].Status)
}

func TestOptimisticLocking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	booking := newTestBooking(room, "2024-06-10", "09:00", "10:00", models.StatusPending)
	require.NoError(t, db.CreateBooking(ctx, booking))
	assert.Equal(t, int64(1), booking.Version)

	// Successful update
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusApproved))

	// Failed update with old version
	err := db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	// Successful update with new version
	updated, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, updated.ID, updated.Version, models.StatusCancelled))
}

func TestUpdateBookingTimesWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	booking := newTestBooking(room, "2024-06-10", "09:00", "10:00", models.StatusApproved)
	require.NoError(t, db.CreateBooking(ctx, booking))

	err := db.UpdateBookingTimesWithVersion(ctx, booking.ID, booking.Version, testDate("2024-06-11"), "13:00:00", "14:30:00")
	require.NoError(t, err)

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-11", got.Date.Format("2006-01-02"))
	assert.Equal(t, "13:00", got.StartTime)
	assert.Equal(t, "14:30", got.EndTime)
	assert.Equal(t, int64(2), got.Version)
}

func TestCompletePastBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-01", "09:00", "10:00", models.StatusApproved)))
	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-01", "11:00", "12:00", models.StatusPending)))
	require.NoError(t, db.CreateBooking(ctx, newTestBooking(room, "2024-06-20", "09:00", "10:00", models.StatusApproved)))

	n, err := db.CompletePastBookings(ctx, testDate("2024-06-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	m, err := db.CancelStalePending(ctx, testDate("2024-06-10"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), m)
}

func TestGetUserBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	room := createTestRoom(t, db, "Aurora")

	future := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	mine := newTestBooking(room, future, "09:00", "10:00", models.StatusPending)
	mine.UserID = 7
	require.NoError(t, db.CreateBooking(ctx, mine))

	other := newTestBooking(room, future, "11:00", "12:00", models.StatusPending)
	other.UserID = 8
	require.NoError(t, db.CreateBooking(ctx, other))

	bookings, err := db.GetUserBookings(ctx, 7)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, int64(7), bookings[0].UserID)
}
