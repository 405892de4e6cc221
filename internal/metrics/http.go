package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsMiddleware returns a Gin middleware that counts requests and records their duration
// labelled by method, route pattern and status code. Route patterns (/v1/admin/newsletters/:id)
// keep label cardinality bounded.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	meter := meterProvider.Meter(namespace)

	requestCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_http_requests_total", namespace),
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passthrough
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_http_request_duration_seconds", namespace),
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return passthrough
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", sanitizePath(c.FullPath())),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		requestCounter.Add(c.Request.Context(), 1, attrs)
		durationHisto.Record(c.Request.Context(), time.Since(start).Seconds(), attrs)
	}
}

func passthrough(c *gin.Context) {
	c.Next()
}

// sanitizePath returns the matched route pattern, or "unknown" when no route matched.
func sanitizePath(fullPath string) string {
	if fullPath == "" {
		return "unknown"
	}
	return fullPath
}
