package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/notelab/noteservice/oteladapters"
)

// Test_SlogBridgeLogger_TraceCorrelation verifies that the bridge logger
// accepts a context carrying an active span, which is how log records get
// trace and span ids attached when a real logger provider is registered.
func Test_SlogBridgeLogger_TraceCorrelation(t *testing.T) {
	tracerProvider := trace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	defer func() { _ = tracerProvider.Shutdown(context.Background()) }()

	tracer := otel.Tracer("test")
	logger := oteladapters.NewSlogBridgeLogger("test")

	t.Run("without_trace_context", func(t *testing.T) {
		assert.NotPanics(t, func() {
			logger.InfoContext(context.Background(), "message without trace")
		}, "Logging without an active span should work")
	})

	t.Run("with_trace_context", func(t *testing.T) {
		ctx, span := tracer.Start(context.Background(), "operation.createNote")
		defer span.End()

		assert.NotPanics(t, func() {
			logger.InfoContext(ctx, "message with trace")
		}, "Logging inside an active span should work")
	})
}

// Test_SlogBridgeLogger_Interface exercises every level through the bridge
// constructor backed by the global logger provider.
func Test_SlogBridgeLogger_Interface(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("test")
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "debug message", "key", "value")
		logger.InfoContext(ctx, "info message", "key", "value")
		logger.WarnContext(ctx, "warn message", "key", "value")
		logger.ErrorContext(ctx, "error message", "key", "value")
	}, "All levels should be usable through the bridge")
}
