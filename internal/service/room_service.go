package service

import (
	"context"

	"roombook/internal/domain"
	"roombook/internal/models"

	"github.com/rs/zerolog"
)

type RoomService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewRoomService(repo domain.Repository, logger *zerolog.Logger) *RoomService {
	return &RoomService{repo: repo, logger: logger}
}

func (s *RoomService) CreateRoom(ctx context.Context, room *models.Room) error {
	if room.Name == "" {
		return ErrEmptyName
	}
	room.IsActive = true

	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return err
	}

	s.logger.Info().Int64("room_id", room.ID).Str("name", room.Name).Msg("Room created")
	return nil
}

func (s *RoomService) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	return s.repo.GetRoom(ctx, id)
}

// GetRooms returns active rooms only; they form the rows of the schedule grid.
func (s *RoomService) GetRooms(ctx context.Context) ([]models.Room, error) {
	return s.repo.GetActiveRooms(ctx)
}

func (s *RoomService) GetAllRooms(ctx context.Context) ([]models.Room, error) {
	return s.repo.GetAllRooms(ctx)
}

func (s *RoomService) UpdateRoom(ctx context.Context, room *models.Room) error {
	if room.Name == "" {
		return ErrEmptyName
	}
	return s.repo.UpdateRoom(ctx, room)
}

// DeactivateRoom hides the room from new bookings without deleting history.
func (s *RoomService) DeactivateRoom(ctx context.Context, id int64) error {
	if err := s.repo.DeactivateRoom(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("room_id", id).Msg("Room deactivated")
	return nil
}
