package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"roombook/internal/domain"
	"roombook/internal/metrics"
	"roombook/internal/models"
	"roombook/internal/schedule"

	"github.com/rs/zerolog"
)

// Window is one loaded schedule view: the selected date, its Sunday-based
// week, and the data for the active view mode. Grid is set in schedule mode,
// Bookings in list mode.
type Window struct {
	Date       time.Time        `json:"date"`
	Week       [7]time.Time     `json:"week"`
	ViewMode   string           `json:"view_mode"`
	Grid       *schedule.Grid   `json:"grid,omitempty"`
	Bookings   []models.Booking `json:"bookings,omitempty"`
	Generation int64            `json:"-"`
}

// ScheduleService управляет состоянием просмотра расписания для каждого
// пользователя: выбранная дата, режим отображения, навигация по неделям.
type ScheduleService struct {
	repo   domain.Repository
	states domain.StateRepository
	logger *zerolog.Logger

	// Счетчик поколений на пользователя. Каждая навигация начинает новую
	// загрузку окна; результат устаревшей загрузки отбрасывается.
	generations sync.Map // userID -> *atomic.Int64
}

func NewScheduleService(repo domain.Repository, states domain.StateRepository, logger *zerolog.Logger) *ScheduleService {
	return &ScheduleService{
		repo:   repo,
		states: states,
		logger: logger,
	}
}

func (s *ScheduleService) generation(userID int64) *atomic.Int64 {
	val, _ := s.generations.LoadOrStore(userID, &atomic.Int64{})
	return val.(*atomic.Int64)
}

// GetViewState loads the user's view state, falling back to today in
// schedule mode when nothing is stored yet.
func (s *ScheduleService) GetViewState(ctx context.Context, userID int64) (*models.ViewState, error) {
	state, err := s.states.GetState(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load view state: %w", err)
	}
	if state == nil {
		state = &models.ViewState{UserID: userID}
	}
	state.Normalize(time.Now())
	return state, nil
}

// SelectDate jumps the view to an arbitrary date.
func (s *ScheduleService) SelectDate(ctx context.Context, userID int64, date time.Time) (*models.ViewState, error) {
	return s.updateState(ctx, userID, func(state *models.ViewState) {
		state.SelectedDate = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	})
}

// NavigateWeek moves the selected date by whole weeks; delta may be negative.
func (s *ScheduleService) NavigateWeek(ctx context.Context, userID int64, delta int) (*models.ViewState, error) {
	return s.updateState(ctx, userID, func(state *models.ViewState) {
		state.SelectedDate = schedule.ShiftWeek(state.SelectedDate, delta)
	})
}

// NavigateDay moves the selected date by single days.
func (s *ScheduleService) NavigateDay(ctx context.Context, userID int64, delta int) (*models.ViewState, error) {
	return s.updateState(ctx, userID, func(state *models.ViewState) {
		state.SelectedDate = schedule.ShiftDay(state.SelectedDate, delta)
	})
}

// SetViewMode switches between schedule and list rendering. The selected
// date is left untouched.
func (s *ScheduleService) SetViewMode(ctx context.Context, userID int64, mode string) (*models.ViewState, error) {
	if mode != models.ViewModeSchedule && mode != models.ViewModeList {
		return nil, fmt.Errorf("unknown view mode %q", mode)
	}
	return s.updateState(ctx, userID, func(state *models.ViewState) {
		state.ViewMode = mode
	})
}

func (s *ScheduleService) updateState(ctx context.Context, userID int64, mutate func(*models.ViewState)) (*models.ViewState, error) {
	allowed, err := s.states.CheckRateLimit(ctx,
		fmt.Sprintf("user:%d", userID),
		models.RateLimitRequests,
		models.RateLimitWindow*time.Second)
	if err != nil {
		// Счетчик недоступен, навигацию не блокируем
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Rate limit check failed")
	} else if !allowed {
		return nil, ErrRateLimited
	}

	state, err := s.GetViewState(ctx, userID)
	if err != nil {
		return nil, err
	}

	mutate(state)

	if err := s.states.SetState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save view state: %w", err)
	}
	return state, nil
}

// LoadWindow fetches a full schedule window for the user's current view
// state. Every call starts a new generation; if another load for the same
// user begins before this one finishes, the older result is discarded with
// ErrStaleWindow. Newest navigation always wins.
func (s *ScheduleService) LoadWindow(ctx context.Context, userID int64) (*Window, error) {
	gen := s.generation(userID)
	myGen := gen.Add(1)

	state, err := s.GetViewState(ctx, userID)
	if err != nil {
		return nil, err
	}

	window, err := s.buildWindow(ctx, state)
	if err != nil {
		return nil, err
	}

	if gen.Load() != myGen {
		metrics.IncStaleWindow()
		s.logger.Debug().
			Int64("user_id", userID).
			Int64("generation", myGen).
			Msg("Discarding stale schedule window")
		return nil, ErrStaleWindow
	}

	window.Generation = myGen
	return window, nil
}

func (s *ScheduleService) buildWindow(ctx context.Context, state *models.ViewState) (*Window, error) {
	week := schedule.WeekRange(state.SelectedDate)

	window := &Window{
		Date:     state.SelectedDate,
		Week:     week,
		ViewMode: state.ViewMode,
	}

	switch state.ViewMode {
	case models.ViewModeList:
		// Список показывает всю неделю целиком
		bookings, err := s.repo.GetBookingsByDateRange(ctx, week[0], week[6])
		if err != nil {
			return nil, fmt.Errorf("failed to load week bookings: %w", err)
		}
		active := make([]models.Booking, 0, len(bookings))
		for _, b := range bookings {
			if b.IsActive() {
				active = append(active, b)
			}
		}
		window.Bookings = active
	default:
		grid, err := s.DayGrid(ctx, state.SelectedDate)
		if err != nil {
			return nil, err
		}
		window.Grid = grid
	}

	return window, nil
}

// DayGrid builds the rooms-by-slots grid for one date.
func (s *ScheduleService) DayGrid(ctx context.Context, date time.Time) (*schedule.Grid, error) {
	rooms, err := s.repo.GetActiveRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}

	bookings, err := s.repo.GetBookingsByDateRange(ctx, date, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	grid := schedule.BuildGrid(date.Format("2006-01-02"), rooms, bookings)
	return &grid, nil
}
