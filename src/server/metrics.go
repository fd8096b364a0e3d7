package server

import (
	"net/http"
	"strconv"
	"time"

	"request-monitor/src/helpers"
	"request-monitor/src/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// Metrics holds the Prometheus collectors exposed on /metrics.
// Each server owns its registry so tests can build several side by side.
// -----------------------------------------------------------------------------

type Metrics struct {
	registry       *prometheus.Registry
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	wsClients      prometheus.Gauge
	pushes         prometheus.Counter
}

// -----------------------------------------------------------------------------

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "request_monitor",
			Name:      "page_renders_total",
			Help:      "Page renders by page and outcome (ok, no_data, error).",
		}, []string{"page", "outcome"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "request_monitor",
			Name:      "page_render_seconds",
			Help:      "Time spent querying and aggregating a page.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"page"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "request_monitor",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "request_monitor",
			Name:      "websocket_clients",
			Help:      "Connected live-refresh clients.",
		}),
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "request_monitor",
			Name:      "websocket_pushes_total",
			Help:      "Payloads pushed to live-refresh clients.",
		}),
	}

	m.registry.MustRegister(
		m.renders, m.renderDuration, m.httpRequests, m.wsClients, m.pushes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// -----------------------------------------------------------------------------

// ObserveRender records the outcome of one page render.
func (m *Metrics) ObserveRender(page string, elapsed time.Duration, payload *models.MChartPayload, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
		// Unknown page names must not grow label cardinality
		if helpers.IsNotFoundError(err) {
			page = "unknown"
		}
	case payload != nil && payload.NoData:
		outcome = "no_data"
	}
	m.renders.WithLabelValues(page, outcome).Inc()
	if err == nil {
		m.renderDuration.WithLabelValues(page).Observe(elapsed.Seconds())
	}
}

// -----------------------------------------------------------------------------

// Middleware counts requests by matched route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// -----------------------------------------------------------------------------

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// -----------------------------------------------------------------------------

// statusFor maps the error family to an HTTP status.
func statusFor(err error) int {
	switch {
	case helpers.IsValidationError(err):
		return http.StatusBadRequest
	case helpers.IsNotFoundError(err):
		return http.StatusNotFound
	case helpers.IsDatabaseError(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
