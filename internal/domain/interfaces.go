package domain

import (
	"context"
	"time"

	"roombook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Repository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetActiveRooms(ctx context.Context) ([]models.Room, error)
	GetAllRooms(ctx context.Context) ([]models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	DeactivateRoom(ctx context.Context, id int64) error

	CreateBooking(ctx context.Context, booking *models.Booking) error
	CreateBookingWithConflictCheck(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)
	GetRoomBookingsForDate(ctx context.Context, roomID int64, date time.Time) ([]models.Booking, error)
	GetUserBookings(ctx context.Context, userID int64) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) error
	UpdateBookingStatusWithVersion(ctx context.Context, id, version int64, status string) error
	UpdateBookingTimesWithVersion(ctx context.Context, id, version int64, date time.Time, start, end string) error
	UpdateBookingDetails(ctx context.Context, booking *models.Booking) error
	CompletePastBookings(ctx context.Context, before time.Time) (int64, error)
	CancelStalePending(ctx context.Context, before time.Time) (int64, error)
}

type StateRepository interface {
	GetState(ctx context.Context, userID int64) (*models.ViewState, error)
	SetState(ctx context.Context, state *models.ViewState) error
	ClearState(ctx context.Context, userID int64) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
