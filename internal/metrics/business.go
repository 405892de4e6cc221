package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BusinessMetrics records business operation counts and durations.
// Domains are "newsletter", "idempotency" and "delivery"; operations are verbs
// such as "publish", "claim", "purge" or "execute_task".
type BusinessMetrics interface {
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
}

// NewBusinessMetrics creates BusinessMetrics using the provided meter provider.
// Instruments are named <namespace>_operations_total and <namespace>_operation_duration_seconds.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
	}, nil
}

func operationAttributes(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1, operationAttributes(domain, operation, status))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(), operationAttributes(domain, operation, status))
}

// NoOpBusinessMetrics is used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

// StatusOf maps an error to the status label value.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
