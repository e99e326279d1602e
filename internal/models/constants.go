package models

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	ViewModeSchedule = "schedule"
	ViewModeList     = "list"
)

const (
	// DefaultStateTTL время жизни состояния пользователя в Redis
	DefaultStateTTL = 24 * 60 * 60 // 24 часа в секундах

	// RateLimitRequests количество запросов в окне
	RateLimitRequests = 20

	// RateLimitWindow окно ограничения частоты запросов
	RateLimitWindow = 60 // 1 минута в секундах

	// MaxBookingDaysAhead насколько далеко вперед разрешено бронировать
	MaxBookingDaysAhead = 365

	// StalePendingDays через сколько дней неподтвержденная заявка отменяется
	StalePendingDays = 14
)
