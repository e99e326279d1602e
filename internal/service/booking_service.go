package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombook/internal/database"
	"roombook/internal/domain"
	"roombook/internal/events"
	"roombook/internal/metrics"
	"roombook/internal/models"
	"roombook/internal/schedule"

	"github.com/rs/zerolog"
)

// BookingService владеет жизненным циклом бронирований: создание с проверкой
// пересечений, смена статусов, перенос по времени.
type BookingService struct {
	repo         domain.Repository
	bus          domain.EventPublisher
	logger       *zerolog.Logger
	maxDaysAhead int
}

func NewBookingService(repo domain.Repository, bus domain.EventPublisher, logger *zerolog.Logger, maxDaysAhead int) *BookingService {
	if maxDaysAhead <= 0 {
		maxDaysAhead = models.MaxBookingDaysAhead
	}
	return &BookingService{
		repo:         repo,
		bus:          bus,
		logger:       logger,
		maxDaysAhead: maxDaysAhead,
	}
}

// CreateBooking validates the request, reports overlapping bookings as a
// ConflictError and otherwise persists the booking atomically. The insert
// re-checks conflicts inside a transaction, so two concurrent requests for
// the same slot cannot both succeed.
func (s *BookingService) CreateBooking(ctx context.Context, booking *models.Booking) error {
	booking.StartTime = schedule.NormalizeTime(booking.StartTime)
	booking.EndTime = schedule.NormalizeTime(booking.EndTime)

	if err := s.validateTimes(booking.Date, booking.StartTime, booking.EndTime); err != nil {
		return err
	}
	if booking.Title == "" {
		return ErrEmptyTitle
	}

	room, err := s.repo.GetRoom(ctx, booking.RoomID)
	if err != nil {
		return fmt.Errorf("failed to load room %d: %w", booking.RoomID, err)
	}
	if !room.IsActive {
		return ErrRoomInactive
	}
	booking.RoomName = room.Name

	if err := s.checkConflicts(ctx, booking, 0); err != nil {
		return err
	}

	if booking.Status == "" {
		booking.Status = models.StatusPending
	}

	if err := s.repo.CreateBookingWithConflictCheck(ctx, booking); err != nil {
		if errors.Is(err, database.ErrBookingConflict) {
			// Кто-то успел занять слот между проверкой и вставкой
			metrics.IncConflict()
			if conflictErr := s.checkConflicts(ctx, booking, 0); conflictErr != nil {
				return conflictErr
			}
		}
		return err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("room_id", booking.RoomID).
		Str("date", booking.Date.Format("2006-01-02")).
		Str("start", booking.StartTime).
		Str("end", booking.EndTime).
		Msg("Booking created")

	s.publish(events.EventBookingCreated, booking, "", 0)
	return nil
}

// CheckSlot reports the active bookings that overlap the candidate range.
// excludeID skips one booking, so moving a booking does not conflict with
// itself.
func (s *BookingService) CheckSlot(ctx context.Context, roomID int64, date time.Time, start, end string, excludeID int64) ([]models.Booking, error) {
	start = schedule.NormalizeTime(start)
	end = schedule.NormalizeTime(end)
	if !schedule.ValidTimeRange(start, end) {
		return nil, database.ErrInvalidTimeRange
	}

	existing, err := s.repo.GetRoomBookingsForDate(ctx, roomID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings for conflict check: %w", err)
	}

	candidate := schedule.Candidate{
		RoomID: roomID,
		Date:   date.Format("2006-01-02"),
		Start:  start,
		End:    end,
	}
	return schedule.FindConflicts(candidate, existing, excludeID), nil
}

func (s *BookingService) checkConflicts(ctx context.Context, booking *models.Booking, excludeID int64) error {
	conflicts, err := s.CheckSlot(ctx, booking.RoomID, booking.Date, booking.StartTime, booking.EndTime, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		metrics.IncConflict()
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

func (s *BookingService) validateTimes(date time.Time, start, end string) error {
	if !schedule.ValidTimeRange(start, end) {
		return database.ErrInvalidTimeRange
	}

	// Сравниваем календарные дни, а не моменты времени: усечение по UTC
	// ошибочно считало бы сегодняшние брони прошедшими в части часовых поясов
	today := calendarDay(time.Now())
	day := calendarDay(date)
	if day.Before(today) {
		return database.ErrPastDate
	}
	if day.After(today.AddDate(0, 0, s.maxDaysAhead)) {
		return database.ErrDateTooFar
	}
	return nil
}

// calendarDay maps a moment to its local calendar date, pinned to UTC so
// dates compare by components only.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	return s.repo.GetUserBookings(ctx, userID)
}

// Approve confirms a pending booking. The version guards against concurrent
// status changes on the same booking.
func (s *BookingService) Approve(ctx context.Context, id, version int64, actor string, actorID int64) error {
	return s.transition(ctx, id, version, models.StatusApproved, events.EventBookingApproved, actor, actorID)
}

func (s *BookingService) Reject(ctx context.Context, id, version int64, actor string, actorID int64) error {
	return s.transition(ctx, id, version, models.StatusRejected, events.EventBookingRejected, actor, actorID)
}

// Cancel releases the slot. Бронь остается в истории со статусом cancelled,
// запись не удаляется.
func (s *BookingService) Cancel(ctx context.Context, id, version int64, actor string, actorID int64) error {
	return s.transition(ctx, id, version, models.StatusCancelled, events.EventBookingCancelled, actor, actorID)
}

func (s *BookingService) transition(ctx context.Context, id, version int64, status, eventType, actor string, actorID int64) error {
	if err := s.repo.UpdateBookingStatusWithVersion(ctx, id, version, status); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", id).Msg("Failed to reload booking after status change")
		return nil
	}

	s.logger.Info().
		Int64("booking_id", id).
		Str("status", status).
		Str("actor", actor).
		Msg("Booking status changed")

	s.publish(eventType, booking, actor, actorID)
	return nil
}

// Move reschedules a booking to a new date and time range, keeping its status.
func (s *BookingService) Move(ctx context.Context, id, version int64, date time.Time, start, end string) error {
	start = schedule.NormalizeTime(start)
	end = schedule.NormalizeTime(end)
	if err := s.validateTimes(date, start, end); err != nil {
		return err
	}

	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	probe := *booking
	probe.Date = date
	probe.StartTime = start
	probe.EndTime = end
	if err := s.checkConflicts(ctx, &probe, id); err != nil {
		return err
	}

	if err := s.repo.UpdateBookingTimesWithVersion(ctx, id, version, date, start, end); err != nil {
		return err
	}

	moved, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil
	}

	s.logger.Info().
		Int64("booking_id", id).
		Str("date", date.Format("2006-01-02")).
		Str("start", start).
		Str("end", end).
		Msg("Booking moved")

	s.publish(events.EventBookingMoved, moved, "", 0)
	return nil
}

func (s *BookingService) publish(eventType string, booking *models.Booking, actor string, actorID int64) {
	if s.bus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		RoomID:      booking.RoomID,
		RoomName:    booking.RoomName,
		Date:        booking.Date,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		Status:      booking.Status,
		Title:       booking.Title,
		BookerName:  booking.BookerName,
		UserID:      booking.UserID,
		ChangedBy:   actor,
		ChangedByID: actorID,
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish booking event")
	}
}
