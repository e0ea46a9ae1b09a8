package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsync_http_requests_total",
			Help: "Total number of HTTP requests processed by the service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skillsync_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsync_auth_attempts_total",
			Help: "Login and signup attempts by outcome.",
		},
		[]string{"kind", "result"},
	)
	connectionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skillsync_connection_transitions_total",
			Help: "Connection lifecycle transitions.",
		},
		[]string{"action"},
	)
	messagesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skillsync_messages_sent_total",
			Help: "Total number of direct messages stored.",
		},
	)
	messagesMarkedReadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skillsync_messages_marked_read_total",
			Help: "Total number of messages flipped to read.",
		},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skillsync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		authAttemptsTotal,
		connectionTransitionsTotal,
		messagesSentTotal,
		messagesMarkedReadTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler serves the default registry.
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func IncAuthAttempt(kind, result string) {
	authAttemptsTotal.WithLabelValues(kind, result).Inc()
}

func IncConnectionTransition(action string) {
	connectionTransitionsTotal.WithLabelValues(action).Inc()
}

func IncMessageSent() {
	messagesSentTotal.Inc()
}

func AddMessagesMarkedRead(n int64) {
	if n > 0 {
		messagesMarkedReadTotal.Add(float64(n))
	}
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
