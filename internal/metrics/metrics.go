package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the booking service.
type Metrics struct {
	BookingsCreated  prometheus.Counter
	BookingDecisions *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers and returns the service metrics.
func New() *Metrics {
	return &Metrics{
		BookingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "itemshare_bookings_created_total",
			Help: "Total number of booking requests created",
		}),

		BookingDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "itemshare_booking_decisions_total",
			Help: "Total number of booking decisions by outcome",
		}, []string{"outcome"}),

		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "itemshare_booking_list_cache_total",
			Help: "Booking list cache lookups by result",
		}, []string{"result"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "itemshare_http_request_duration_seconds",
			Help:    "Time spent handling HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// Handler returns a Gin middleware that records request durations.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
