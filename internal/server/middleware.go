package server

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsBuilder holds the per-request HTTP metrics.
type MetricsBuilder struct {
	summaryVec *prometheus.SummaryVec
	counterVec *prometheus.CounterVec
}

// NewMetricsBuilder creates the request summary and counter and registers
// them with reg. It panics if they are already registered.
func NewMetricsBuilder(reg prometheus.Registerer) *MetricsBuilder {
	summaryVec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: "hireflow",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Objectives: map[float64]float64{
				0.5:  0.05,
				0.9:  0.01,
				0.99: 0.001,
			},
		},
		[]string{"method", "path", "status_code"},
	)

	counterVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hireflow",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)
	reg.MustRegister(summaryVec, counterVec)

	return &MetricsBuilder{
		summaryVec: summaryVec,
		counterVec: counterVec,
	}
}

// Build returns middleware recording duration and count per method, route
// and status code. Unrouted requests are labelled "unmatched".
func (b *MetricsBuilder) Build() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		method := ctx.Request.Method
		path := ctx.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(ctx.Writer.Status())

		b.summaryVec.WithLabelValues(method, path, statusCode).Observe(time.Since(start).Seconds())
		b.counterVec.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RequestLogger logs one line per request at debug level.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Debug("http request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
