package http

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/reel/http"

type serverMetrics struct {
	accepted metric.Int64Counter
	rejected metric.Int64Counter
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// newServerMetrics binds the instruments to the global meter provider. An
// instrument that cannot be created is replaced by a no-op one.
func newServerMetrics() serverMetrics {
	meter := otel.Meter(instrumentationName)
	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	var m serverMetrics
	var err error

	if m.accepted, err = meter.Int64Counter("reel.http.connections.accepted",
		metric.WithDescription("Connections accepted by the event loop"),
		metric.WithUnit("{connection}")); err != nil {
		m.accepted, _ = fallback.Int64Counter("reel.http.connections.accepted")
	}
	if m.rejected, err = meter.Int64Counter("reel.http.jobs.rejected",
		metric.WithDescription("Connections refused because the worker queue was full"),
		metric.WithUnit("{connection}")); err != nil {
		m.rejected, _ = fallback.Int64Counter("reel.http.jobs.rejected")
	}
	if m.requests, err = meter.Int64Counter("reel.http.requests",
		metric.WithDescription("Requests served by status code"),
		metric.WithUnit("{request}")); err != nil {
		m.requests, _ = fallback.Int64Counter("reel.http.requests")
	}
	if m.duration, err = meter.Float64Histogram("reel.http.request.duration",
		metric.WithDescription("Time from parsed request to written response"),
		metric.WithUnit("s")); err != nil {
		m.duration, _ = fallback.Float64Histogram("reel.http.request.duration")
	}

	return m
}

func newTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
