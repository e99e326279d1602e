package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_NextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
	// Задержка упирается в максимум
	assert.Equal(t, 10*time.Second, p.NextDelay(10))
	// Некорректный номер попытки не ломает расчет
	assert.Equal(t, time.Second, p.NextDelay(0))
}

func TestRetryPolicy_Defaults(t *testing.T) {
	var p RetryPolicy
	assert.Equal(t, time.Second, p.NextDelay(1))
	assert.Equal(t, 2*time.Second, p.NextDelay(2))
}

func setupJobDB(t *testing.T) (*database.DB, *models.Room) {
	t.Helper()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	room := &models.Room{Name: "Blue Room", Capacity: 8, IsActive: true}
	require.NoError(t, db.CreateRoom(context.Background(), room))
	return db, room
}

func seedBooking(t *testing.T, db *database.DB, roomID int64, daysAgo int, status string) *models.Booking {
	t.Helper()
	d := time.Now().AddDate(0, 0, -daysAgo)
	b := &models.Booking{
		RoomID:    roomID,
		RoomName:  "Blue Room",
		Date:      time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "10:00",
		Status:    status,
		Title:     "Old meeting",
	}
	require.NoError(t, db.CreateBooking(context.Background(), b))
	return b
}

func TestJobRunner_CompletePast(t *testing.T) {
	db, room := setupJobDB(t)
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	runner := NewJobRunner(db, &logger, config.JobsConfig{})
	ctx := context.Background()

	past := seedBooking(t, db, room.ID, 3, models.StatusApproved)
	pending := seedBooking(t, db, room.ID, 3, models.StatusPending)

	runner.CompletePast(ctx)

	got, err := db.GetBooking(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	// Неподтвержденные заявки эта задача не трогает
	got, err = db.GetBooking(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestJobRunner_CancelStale(t *testing.T) {
	db, room := setupJobDB(t)
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	runner := NewJobRunner(db, &logger, config.JobsConfig{})
	ctx := context.Background()

	stale := seedBooking(t, db, room.ID, models.StalePendingDays+5, models.StatusPending)
	fresh := seedBooking(t, db, room.ID, 1, models.StatusPending)

	runner.CancelStale(ctx)

	got, err := db.GetBooking(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	got, err = db.GetBooking(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestJobRunner_StartStop(t *testing.T) {
	db, _ := setupJobDB(t)
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	runner := NewJobRunner(db, &logger, config.JobsConfig{
		CompleteSchedule: "0 2 * * *",
		PurgeSchedule:    "30 2 * * *",
	})

	require.NoError(t, runner.Start())
	runner.Stop()
}

func TestJobRunner_BadSchedule(t *testing.T) {
	db, _ := setupJobDB(t)
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	runner := NewJobRunner(db, &logger, config.JobsConfig{
		CompleteSchedule: "not a cron spec",
		PurgeSchedule:    "30 2 * * *",
	})

	assert.Error(t, runner.Start())
}
