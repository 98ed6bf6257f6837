package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deptrooms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deptrooms_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deptrooms_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deptrooms_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deptrooms_booking_transitions_total",
			Help: "Automatic booking status transitions",
		},
		[]string{"to"},
	)

	AvailabilitySearchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deptrooms_availability_searches_total",
			Help: "Total number of availability searches",
		},
	)

	WindowRollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deptrooms_window_rolls_total",
			Help: "Room slot windows shifted by one day",
		},
	)

	MaintenanceRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deptrooms_maintenance_runs_total",
			Help: "Maintenance jobs by name and result",
		},
		[]string{"job", "result"},
	)

	OrphanedSlots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deptrooms_orphaned_slots",
			Help: "Claimed slots whose booking is missing or no longer active, as of the last check",
		},
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deptrooms_live_subscribers",
			Help: "Open schedule websocket connections",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordBooking counts a create attempt; outcome is "created", "conflict",
// "unavailable" or "rejected".
func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

func RecordBookingCancellation() {
	BookingCancellationsTotal.Inc()
}

func RecordTransitions(to string, n int64) {
	if n > 0 {
		BookingTransitionsTotal.WithLabelValues(to).Add(float64(n))
	}
}

func RecordSearch() {
	AvailabilitySearchesTotal.Inc()
}

func RecordWindowRoll() {
	WindowRollsTotal.Inc()
}

func RecordMaintenance(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	MaintenanceRunsTotal.WithLabelValues(job, result).Inc()
}
