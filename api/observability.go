package api

import (
	"context"
	"strconv"
	"time"

	"github.com/notelab/noteservice/observability"
)

const (
	// StatusSuccess indicates successful operation completion.
	StatusSuccess = "success"
	// StatusError indicates operation failure.
	StatusError = "error"

	// LogMsgOperationStarted is logged when an operation begins.
	LogMsgOperationStarted = "operation started"
	// LogMsgOperationCompleted is logged when an operation succeeds.
	LogMsgOperationCompleted = "operation completed"
	// LogMsgOperationFailed is logged when an operation fails.
	LogMsgOperationFailed = "operation failed"
	// LogMsgRequestRejected is logged when validation rejects a request before any handler runs.
	LogMsgRequestRejected = "request rejected by validation"

	// LogAttrOperation identifies the operation (contract name) in logs and spans.
	LogAttrOperation = "operation"
	// LogAttrRequestID carries the per-request id.
	LogAttrRequestID = "request_id"
	// LogAttrNoteID carries the note identifier for single-note operations.
	LogAttrNoteID = "note_id"
	// LogAttrStatus indicates the operation outcome.
	LogAttrStatus = "status"
	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"
	// LogAttrError contains error details.
	LogAttrError = "error"

	// operationSpanPrefix prefixes the contract name to form the span name.
	operationSpanPrefix = "operation."
)

// startOperationSpan opens the per-operation tracing span, named after the
// operation and carrying the request id plus the note id when present.
// Returns the original context and nil span when tracing is disabled.
func startOperationSpan(
	ctx context.Context,
	tracing observability.TracingCollector,
	operation string,
	requestID string,
	noteID *int64,
) (context.Context, observability.SpanContext) {

	if tracing == nil {
		return ctx, nil
	}

	attrs := map[string]string{
		LogAttrOperation: operation,
		LogAttrRequestID: requestID,
	}

	if noteID != nil {
		attrs[LogAttrNoteID] = strconv.FormatInt(*noteID, 10)
	}

	return tracing.StartSpan(ctx, operationSpanPrefix+operation, attrs)
}

// finishOperationSpan closes the per-operation span with the outcome.
// The span is closed on both success and failure.
func finishOperationSpan(
	tracing observability.TracingCollector,
	span observability.SpanContext,
	status string,
	duration time.Duration,
	err error,
) {

	if tracing == nil || span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: strconv.FormatFloat(toMilliseconds(duration), 'f', 3, 64),
	}

	if err != nil {
		attrs[LogAttrError] = err.Error()
	}

	tracing.FinishSpan(span, status, attrs)
}

// toMilliseconds converts a time.Duration to float64 milliseconds.
func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// logWith logs through the contextual logger when available, falling back to
// the basic logger; either may be nil.
func logWith(
	ctx context.Context,
	logger observability.Logger,
	contextualLogger observability.ContextualLogger,
	level string,
	msg string,
	args ...any,
) {

	switch {
	case contextualLogger != nil:
		switch level {
		case "debug":
			contextualLogger.DebugContext(ctx, msg, args...)
		case "warn":
			contextualLogger.WarnContext(ctx, msg, args...)
		case "error":
			contextualLogger.ErrorContext(ctx, msg, args...)
		default:
			contextualLogger.InfoContext(ctx, msg, args...)
		}
	case logger != nil:
		switch level {
		case "debug":
			logger.Debug(msg, args...)
		case "warn":
			logger.Warn(msg, args...)
		case "error":
			logger.Error(msg, args...)
		default:
			logger.Info(msg, args...)
		}
	}
}
