package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments for the approval pipeline.
type Metrics struct {
	moderationActions *prometheus.CounterVec
	elementClaims     *prometheus.CounterVec
	writeoffs         *prometheus.CounterVec
	notifications     prometheus.Counter
}

// New registers the pipeline instruments on the default registry.
func New() (*Metrics, error) {
	m := &Metrics{
		moderationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fablehold_moderation_actions_total",
			Help: "Moderation actions processed, by action and result.",
		}, []string{"action", "result"}),
		elementClaims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fablehold_element_claims_total",
			Help: "Story element claim attempts, by result.",
		}, []string{"result"}),
		writeoffs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fablehold_battlepass_writeoffs_total",
			Help: "Battlepass consumption outcomes, by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fablehold_notifications_total",
			Help: "Notifications written by the fanout step.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.moderationActions, m.elementClaims, m.writeoffs, m.notifications,
	} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordModeration(action, result string) {
	if m == nil {
		return
	}
	m.moderationActions.WithLabelValues(strings.TrimSpace(action), strings.TrimSpace(result)).Inc()
}

func (m *Metrics) RecordElementClaim(result string) {
	if m == nil {
		return
	}
	m.elementClaims.WithLabelValues(strings.TrimSpace(result)).Inc()
}

func (m *Metrics) RecordWriteoff(result string) {
	if m == nil {
		return
	}
	m.writeoffs.WithLabelValues(strings.TrimSpace(result)).Inc()
}

func (m *Metrics) RecordNotifications(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.notifications.Add(float64(count))
}

// HTTPMetrics instruments the gin request path.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics() (*HTTPMetrics, error) {
	h := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fablehold_http_requests_total",
			Help: "HTTP requests served, by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fablehold_http_request_duration_seconds",
			Help:    "HTTP request latency, by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	for _, c := range []prometheus.Collector{h.requests, h.duration} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}
	return h, nil
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(h *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		h.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		h.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
