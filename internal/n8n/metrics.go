package n8n

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "n8n-workflows/internal/n8n"

type clientMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newClientMetrics(meter metric.Meter) *clientMetrics {
	m := &clientMetrics{}

	var err error
	m.requests, err = meter.Int64Counter("n8n.client.requests",
		metric.WithDescription("Requests sent to the n8n server"))
	if err != nil {
		m.requests = noop.Int64Counter{}
	}
	m.duration, err = meter.Float64Histogram("n8n.client.request.duration",
		metric.WithDescription("Time until the n8n server responded"),
		metric.WithUnit("s"))
	if err != nil {
		m.duration = noop.Float64Histogram{}
	}
	return m
}

// record counts one request. statusCode is 0 when no response arrived.
func (m *clientMetrics) record(ctx context.Context, operation, method string, statusCode int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("method", method),
		attribute.String("status_code", strconv.Itoa(statusCode)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
