package server

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "composer_requests_total",
		Help: "HTTP requests by method, path and status.",
	}, []string{"method", "path", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "composer_request_duration_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	scrapeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "composer_scrape_failures_total",
		Help: "Page scrapes that produced an error placeholder.",
	})

	memorySyncedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "composer_memory_synced_messages_total",
		Help: "Messages pushed to the memory API by the sync job.",
	})

	memorySyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "composer_memory_sync_failures_total",
		Help: "Memory sync runs that ended with an error.",
	})
)

// metricsMiddleware records request counts and latency per route.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		t0 := time.Now()
		err := next(c)
		path := c.Path()
		if path == "" {
			path = c.Request().URL.Path
		}
		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}
		requestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
		requestDuration.WithLabelValues(path).Observe(time.Since(t0).Seconds())
		return err
	}
}
