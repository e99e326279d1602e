package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"roombook/internal/config"
	"roombook/internal/database"
	"roombook/internal/export"
	"roombook/internal/metrics"
	"roombook/internal/models"
	"roombook/internal/schedule"
	"roombook/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking API.
type HTTPServer struct {
	cfg      config.Config
	rooms    *service.RoomService
	bookings *service.BookingService
	views    *service.ScheduleService
	exporter *export.Exporter
	logger   *zerolog.Logger
	server   *http.Server
	auth     *HTTPAuth
}

func NewHTTPServer(
	cfg config.Config,
	rooms *service.RoomService,
	bookings *service.BookingService,
	views *service.ScheduleService,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		rooms:    rooms,
		bookings: bookings,
		views:    views,
		exporter: exporter,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg.API)

	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/rooms/", srv.handleRoomByID)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/schedule", srv.handleSchedule)
	mux.HandleFunc("/api/v1/schedule/export", srv.handleScheduleExport)
	mux.HandleFunc("/api/v1/conflicts", srv.handleConflicts)
	mux.HandleFunc("/api/v1/view", srv.handleView)
	mux.HandleFunc("/healthz", srv.handleHealth)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the full middleware chain, used directly in tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var (
			rooms []models.Room
			err   error
		)
		if r.URL.Query().Get("all") == "true" {
			rooms, err = s.rooms.GetAllRooms(r.Context())
		} else {
			rooms, err = s.rooms.GetRooms(r.Context())
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list rooms")
			writeJSON(w, http.StatusOK, map[string]any{"rooms": []models.Room{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})

	case http.MethodPost:
		var room models.Room
		if err := decodeJSON(r, &room); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.rooms.CreateRoom(r.Context(), &room); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, room)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleRoomByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/api/v1/rooms/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		room, err := s.rooms.GetRoom(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)

	case http.MethodPatch:
		var body struct {
			Name     *string `json:"name"`
			Location *string `json:"location"`
			Capacity *int64  `json:"capacity"`
			IsActive *bool   `json:"is_active"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		if body.IsActive != nil && !*body.IsActive {
			if err := s.rooms.DeactivateRoom(r.Context(), id); err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
			return
		}

		room, err := s.rooms.GetRoom(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if body.Name != nil {
			room.Name = *body.Name
		}
		if body.Location != nil {
			room.Location = *body.Location
		}
		if body.Capacity != nil {
			room.Capacity = *body.Capacity
		}
		if body.IsActive != nil {
			room.IsActive = *body.IsActive
		}
		if err := s.rooms.UpdateRoom(r.Context(), room); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, room)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()

		if rawUser := q.Get("user_id"); rawUser != "" {
			userID, err := strconv.ParseInt(rawUser, 10, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid user_id")
				return
			}
			bookings, err := s.bookings.GetUserBookings(r.Context(), userID)
			if err != nil {
				s.logger.Error().Err(err).Msg("Failed to list user bookings")
				writeJSON(w, http.StatusOK, map[string]any{"bookings": []models.Booking{}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
			return
		}

		start, err := parseDateParam(q.Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date; expected YYYY-MM-DD")
			return
		}
		end, err := parseDateParam(q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date; expected YYYY-MM-DD")
			return
		}

		bookings, err := s.bookings.GetBookingsByDateRange(r.Context(), start, end)
		if err != nil {
			// Чтение не роняет клиента: логируем и отдаем пустой результат
			s.logger.Error().Err(err).Msg("Failed to list bookings")
			writeJSON(w, http.StatusOK, map[string]any{"bookings": []models.Booking{}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})

	case http.MethodPost:
		var body struct {
			models.Booking
			Date string `json:"date"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		date, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}

		booking := body.Booking
		booking.Date = date
		if err := s.bookings.CreateBooking(r.Context(), &booking); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "/api/v1/bookings/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case http.MethodPatch:
		var body struct {
			Action    string `json:"action"` // approve, reject, cancel, move
			Version   int64  `json:"version"`
			Date      string `json:"date"`
			StartTime string `json:"start_time"`
			EndTime   string `json:"end_time"`
			Actor     string `json:"actor"`
			ActorID   int64  `json:"actor_id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var err error
		switch body.Action {
		case "approve":
			err = s.bookings.Approve(r.Context(), id, body.Version, body.Actor, body.ActorID)
		case "reject":
			err = s.bookings.Reject(r.Context(), id, body.Version, body.Actor, body.ActorID)
		case "cancel":
			err = s.bookings.Cancel(r.Context(), id, body.Version, body.Actor, body.ActorID)
		case "move":
			var date time.Time
			date, err = time.Parse("2006-01-02", body.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
				return
			}
			err = s.bookings.Move(r.Context(), id, body.Version, date, body.StartTime, body.EndTime)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", body.Action))
			return
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}

		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	grid, err := s.views.DayGrid(r.Context(), date)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to build schedule grid")
		writeError(w, http.StatusInternalServerError, "failed to build schedule")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"grid":         grid,
		"quick_create": s.quickCreateLinks(grid, date),
	})
}

// quickCreateLinks collects, per room, a link for every free slot so a client
// can render one-tap booking buttons.
func (s *HTTPServer) quickCreateLinks(grid *schedule.Grid, date time.Time) map[int64][]string {
	base := s.cfg.Schedule.QuickCreateURL
	links := make(map[int64][]string, len(grid.Rows))
	for _, row := range grid.Rows {
		for i, cell := range row.Cells {
			if cell.Booking == nil && !cell.Covered {
				links[row.Room.ID] = append(links[row.Room.ID],
					schedule.QuickCreateURL(base, row.Room.ID, date, grid.Slots[i]))
			}
		}
	}
	return links
}

func (s *HTTPServer) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	week := schedule.WeekRange(date)
	grids := make([]*schedule.Grid, 0, len(week))
	for _, day := range week {
		grid, err := s.views.DayGrid(r.Context(), day)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to build grid for export")
			writeError(w, http.StatusInternalServerError, "failed to build schedule")
			return
		}
		grids = append(grids, grid)
	}

	path, err := s.exporter.ExportWeek(grids)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to export schedule")
		writeError(w, http.StatusInternalServerError, "failed to export schedule")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", strings.TrimPrefix(path, s.cfg.Exports.Path+"/")))
	http.ServeFile(w, r, path)
}

func (s *HTTPServer) handleConflicts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	roomID, err := strconv.ParseInt(q.Get("room"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	start := q.Get("start")
	end := q.Get("end")
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	var excludeID int64
	if raw := q.Get("exclude"); raw != "" {
		excludeID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid exclude id")
			return
		}
	}

	conflicts, err := s.bookings.CheckSlot(r.Context(), roomID, date, start, end, excludeID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conflict":  len(conflicts) > 0,
		"conflicts": conflicts,
	})
}

func (s *HTTPServer) handleView(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid user_id")
			return
		}

		window, err := s.views.LoadWindow(r.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrStaleWindow) {
				// Пришла более свежая навигация; этот ответ не актуален
				writeError(w, http.StatusConflict, "window superseded by a newer navigation")
				return
			}
			s.logger.Error().Err(err).Msg("Failed to load schedule window")
			writeError(w, http.StatusInternalServerError, "failed to load window")
			return
		}
		writeJSON(w, http.StatusOK, window)

	case http.MethodPost:
		var body struct {
			UserID int64  `json:"user_id"`
			Action string `json:"action"` // select_date, week, day, mode
			Date   string `json:"date"`
			Delta  int    `json:"delta"`
			Mode   string `json:"mode"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		var (
			state *models.ViewState
			err   error
		)
		switch body.Action {
		case "select_date":
			var date time.Time
			date, err = time.Parse("2006-01-02", body.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
				return
			}
			state, err = s.views.SelectDate(r.Context(), body.UserID, date)
		case "week":
			state, err = s.views.NavigateWeek(r.Context(), body.UserID, body.Delta)
		case "day":
			state, err = s.views.NavigateDay(r.Context(), body.UserID, body.Delta)
		case "mode":
			state, err = s.views.SetViewMode(r.Context(), body.UserID, body.Mode)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", body.Action))
			return
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.App.Version,
	})
}

// writeServiceError translates domain errors into HTTP responses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var conflictErr *service.ConflictError
	if errors.As(err, &conflictErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     conflictErr.Error(),
			"conflicts": conflictErr.Conflicts,
		})
		return
	}

	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrBookingConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "booking was modified concurrently; reload and retry")
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, database.ErrInvalidTimeRange),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, service.ErrEmptyTitle),
		errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrRoomInactive):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Unhandled service error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parseDateParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	return time.Parse("2006-01-02", raw)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
