package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected because of a time conflict.",
		},
	)

	staleWindows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "stale_windows_total",
			Help:      "Schedule window loads discarded as stale.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingConflicts, staleWindows)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncConflict counts a rejected double-booking attempt.
func IncConflict() {
	bookingConflicts.Inc()
}

// IncStaleWindow counts a discarded out-of-date window load.
func IncStaleWindow() {
	staleWindows.Inc()
}
