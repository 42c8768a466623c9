package record

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// storeMetrics holds the OpenTelemetry instruments shared by all stores.
// The global meter provider defaults to a no-op, so applications that don't
// configure OTel pay nothing.
type storeMetrics struct {
	ops      metric.Int64Counter
	duration metric.Float64Histogram
}

func newStoreMetrics() *storeMetrics {
	meter := otel.Meter("github.com/thebtf/recordkit/pkg/record")

	ops, err := meter.Int64Counter("record.store.operations",
		metric.WithDescription("Store operations by name, model and status"))
	if err != nil {
		log.Warn().Err(err).Msg("Store operations counter unavailable")
	}
	duration, err := meter.Float64Histogram("record.store.duration",
		metric.WithDescription("Store operation duration"),
		metric.WithUnit("ms"))
	if err != nil {
		log.Warn().Err(err).Msg("Store duration histogram unavailable")
	}

	return &storeMetrics{ops: ops, duration: duration}
}

// observe records one finished operation.
func (m *storeMetrics) observe(ctx context.Context, op, model string, start time.Time, err error) {
	status := "ok"
	switch {
	case IsNotFound(err):
		status = "not_found"
	case err != nil:
		status = "error"
	}

	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("model", model),
		attribute.String("status", status),
	)
	if m.ops != nil {
		m.ops.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0, attrs)
	}
}
