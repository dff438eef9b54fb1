package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal  *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
	metricsOnce    = make(chan struct{}, 1)
)

func initMetricsOnce() {
	select {
	case metricsOnce <- struct{}{}:
		requestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alphascout_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		)
		requestSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alphascout_http_request_seconds",
				Help:    "HTTP request duration by route and method",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		)
	default:
		// already initialized
	}
}

// Metrics records per-route request counters and latency, labeled by the
// route template.
func Metrics() echo.MiddlewareFunc {
	initMetricsOnce()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := routeLabel(c)
			method := c.Request().Method
			requestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Response().Status)).Inc()
			requestSeconds.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
