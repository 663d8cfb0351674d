package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce            sync.Once
	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"})

		requestDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "payflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"})
	})
}

// MetricsMiddleware records request counts and latencies per route template.
func MetricsMiddleware() gin.HandlerFunc {
	initMetrics()

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		requestsTotal.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		requestDurationSeconds.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
