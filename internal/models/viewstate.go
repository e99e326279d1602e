package models

import "time"

// ViewState holds the per-user schedule window: which date is selected and
// how it is displayed. It survives across requests in the state repository.
type ViewState struct {
	UserID       int64     `json:"user_id"`
	SelectedDate time.Time `json:"selected_date"`
	ViewMode     string    `json:"view_mode"`
}

// Normalize fills defaults for a zero-valued state.
func (s *ViewState) Normalize(now time.Time) {
	if s.SelectedDate.IsZero() {
		s.SelectedDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
	if s.ViewMode != ViewModeSchedule && s.ViewMode != ViewModeList {
		s.ViewMode = ViewModeSchedule
	}
}
