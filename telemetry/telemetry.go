// Package telemetry builds the process logger and, when an OTLP endpoint is
// configured, the global trace, metric and log providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Options struct {
	ServiceName string
	// Endpoint enables OTLP export over gRPC, e.g. "http://127.0.0.1:4317".
	Endpoint string
	Level    slog.Level
	JSON     bool
	// Output receives local logs. Defaults to stderr.
	Output io.Writer
}

type ShutdownFunc func(ctx context.Context) error

// Setup returns the logger to hand to every component and a function that
// flushes and stops whatever was started.
func Setup(ctx context.Context, opts Options) (*slog.Logger, ShutdownFunc, error) {
	if opts.Endpoint == "" {
		return localLogger(opts), func(context.Context) error { return nil }, nil
	}

	var shutdownFuncs []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}
	fail := func(err error) (*slog.Logger, ShutdownFunc, error) {
		return nil, nil, errors.Join(err, shutdown(ctx))
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attribute.String("service.name", opts.ServiceName)),
	)
	if err != nil {
		return fail(fmt.Errorf("telemetry: resource: %w", err))
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(opts.Endpoint))
	if err != nil {
		return fail(fmt.Errorf("telemetry: trace exporter: %w", err))
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpointURL(opts.Endpoint))
	if err != nil {
		return fail(fmt.Errorf("telemetry: metric exporter: %w", err))
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	logExporter, err := otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(opts.Endpoint))
	if err != nil {
		return fail(fmt.Errorf("telemetry: log exporter: %w", err))
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	logger := otelslog.NewLogger(opts.ServiceName, otelslog.WithLoggerProvider(loggerProvider))
	return logger, shutdown, nil
}

func localLogger(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}
