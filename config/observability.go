package config

import (
	"context"
	"errors"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const envOTLPEndpoint = "NOTES_OTLP_ENDPOINT"

// ObservabilityProviders holds the OpenTelemetry providers for the service.
type ObservabilityProviders struct {
	TracerProvider *trace.TracerProvider
	LoggerProvider *sdklog.LoggerProvider
	Resource       *resource.Resource
}

// NewObservabilityProviders creates the OpenTelemetry tracer and logger
// providers and registers them globally, so the otelslog bridge picks up the
// logger provider for trace-correlated logs. Spans and log records export via
// OTLP gRPC when NOTES_OTLP_ENDPOINT is set, otherwise to the console, so the
// default configuration needs no telemetry backend.
func NewObservabilityProviders(ctx context.Context, serviceName, serviceVersion string) (*ObservabilityProviders, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	endpoint := os.Getenv(envOTLPEndpoint)

	spanExporter, err := newSpanExporter(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	logExporter, err := newLogExporter(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(spanExporter),
		trace.WithResource(res),
	)

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	global.SetLoggerProvider(loggerProvider)

	return &ObservabilityProviders{
		TracerProvider: tracerProvider,
		LoggerProvider: loggerProvider,
		Resource:       res,
	}, nil
}

func newSpanExporter(ctx context.Context, endpoint string) (trace.SpanExporter, error) {
	if endpoint != "" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
	}

	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

func newLogExporter(ctx context.Context, endpoint string) (sdklog.Exporter, error) {
	if endpoint != "" {
		return otlploggrpc.New(
			ctx,
			otlploggrpc.WithEndpoint(endpoint),
			otlploggrpc.WithInsecure(),
		)
	}

	return stdoutlog.New(stdoutlog.WithPrettyPrint())
}

// Shutdown flushes and shuts down the OpenTelemetry providers.
func (p *ObservabilityProviders) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.LoggerProvider.Shutdown(ctx),
	)
}
