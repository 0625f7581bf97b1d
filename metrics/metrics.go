package metrics

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailhead_bookings_created_total",
		Help: "The total number of bookings created",
	})
	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trailhead_booking_transitions_total",
		Help: "Booking status transitions by target status",
	}, []string{"status"})
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailhead_booking_conflicts_total",
		Help: "Rejected or lost status transitions",
	})
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trailhead_response_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})
	EventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailhead_events_published_total",
		Help: "The total number of booking events published",
	})
	PublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailhead_event_publish_errors_total",
		Help: "The total number of failed publish attempts",
	})
	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailhead_chat_messages_total",
		Help: "Chat messages relayed to a room",
	})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trailhead_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status code",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "code"})
)

// Handler exposes the default registry.
func Handler() httprouter.Handle {
	h := promhttp.Handler()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}
