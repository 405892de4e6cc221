package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DeliveryMetrics records per-task delivery outcomes and email transport latency.
type DeliveryMetrics interface {
	// RecordOutcome counts a worker iteration by outcome: "sent", "failed", "dropped", "retried", "empty" or "error".
	RecordOutcome(ctx context.Context, outcome string)
	// RecordSend records one transport call.
	RecordSend(ctx context.Context, duration time.Duration, status string)
}

type deliveryMetrics struct {
	outcomes metric.Int64Counter
	sends    metric.Float64Histogram
}

// NewDeliveryMetrics creates DeliveryMetrics with instruments
// <namespace>_delivery_outcomes_total and <namespace>_email_send_duration_seconds.
func NewDeliveryMetrics(meterProvider metric.MeterProvider, namespace string) (DeliveryMetrics, error) {
	meter := meterProvider.Meter(namespace)

	outcomes, err := meter.Int64Counter(
		fmt.Sprintf("%s_delivery_outcomes_total", namespace),
		metric.WithDescription("Delivery worker iterations by outcome"),
		metric.WithUnit("{iteration}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create delivery outcome counter: %w", err)
	}

	sends, err := meter.Float64Histogram(
		fmt.Sprintf("%s_email_send_duration_seconds", namespace),
		metric.WithDescription("Email transport call duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create email send histogram: %w", err)
	}

	return &deliveryMetrics{outcomes: outcomes, sends: sends}, nil
}

func (d *deliveryMetrics) RecordOutcome(ctx context.Context, outcome string) {
	d.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (d *deliveryMetrics) RecordSend(ctx context.Context, duration time.Duration, status string) {
	d.sends.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// NoOpDeliveryMetrics is used when metrics are disabled.
type NoOpDeliveryMetrics struct{}

// NewNoOpDeliveryMetrics creates a no-op DeliveryMetrics implementation.
func NewNoOpDeliveryMetrics() DeliveryMetrics {
	return &NoOpDeliveryMetrics{}
}

// RecordOutcome does nothing.
func (n *NoOpDeliveryMetrics) RecordOutcome(ctx context.Context, outcome string) {}

// RecordSend does nothing.
func (n *NoOpDeliveryMetrics) RecordSend(ctx context.Context, duration time.Duration, status string) {}
