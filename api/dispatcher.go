// Package api contains the endpoint dispatch pipeline: a generic interpreter
// over the contract table that matches requests, validates input against the
// contract's schemas, invokes the bound handler inside a tracing span,
// validates and serializes the output, and maps failures to the uniform
// error body.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/notelab/noteservice/contract"
	"github.com/notelab/noteservice/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	msgInvalidRequestBody      = "Invalid request body"
	msgInvalidPathParameter    = "Invalid path parameter"
	msgResponseSerialization   = "Response serialization failed"
	pathParamNoteID            = "id"
	headerContentType          = "Content-Type"
	contentTypeJSON            = "application/json; charset=utf-8"
	logMsgWriteResponseFailed  = "failed to write response body"
	logMsgErrorBodyMalformed   = "error body does not match its declared schema"
	logMsgRouterBuildCompleted = "dispatcher routes registered"
)

// Request carries the validated, typed input for one handler invocation.
type Request struct {
	// Body is the typed request body, nil when the contract declares none.
	Body any

	// Path holds the typed path parameters declared by the contract.
	Path map[string]any
}

// PathInt returns a path parameter as int64.
// Parameters validated through schema.IntFromString always satisfy this.
func (r Request) PathInt(name string) (int64, bool) {
	value, found := r.Path[name]
	if !found {
		return 0, false
	}

	typed, ok := value.(int64)

	return typed, ok
}

// HandlerFunc is the business logic bound to one contract. It returns the
// typed success value (validated against the contract's response schema
// before emission) or an error for the error mapper.
type HandlerFunc func(ctx context.Context, req Request) (any, error)

// Dispatcher routes requests to contract handlers. It only reads the
// contract table; the table is built once at process start.
type Dispatcher struct {
	table            *contract.Table
	handlers         map[string]HandlerFunc
	tracing          observability.TracingCollector
	logger           observability.Logger
	contextualLogger observability.ContextualLogger
}

// Option defines a functional option for configuring a Dispatcher.
type Option func(*Dispatcher) error

// WithTracing sets the tracing collector for the Dispatcher.
func WithTracing(collector observability.TracingCollector) Option {
	return func(d *Dispatcher) error {
		d.tracing = collector
		return nil
	}
}

// WithLogger sets the basic logger for the Dispatcher.
func WithLogger(logger observability.Logger) Option {
	return func(d *Dispatcher) error {
		d.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger for the Dispatcher.
// When set, it takes precedence over the basic logger.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(d *Dispatcher) error {
		d.contextualLogger = logger
		return nil
	}
}

// NewDispatcher creates a Dispatcher over the given contract table.
func NewDispatcher(table *contract.Table, options ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		table:    table,
		handlers: make(map[string]HandlerFunc, table.Len()),
	}

	for _, option := range options {
		if err := option(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// Register binds a handler to the named contract.
func (d *Dispatcher) Register(name string, handler HandlerFunc) error {
	if _, found := d.table.ByName(name); !found {
		return ErrUnknownContract
	}

	d.handlers[name] = handler

	return nil
}

// Router builds the HTTP router from the contract table. Every contract must
// have a handler registered; requests matching no contract get a plain 404.
func (d *Dispatcher) Router() (chi.Router, error) {
	router := chi.NewRouter()

	for _, c := range d.table.All() {
		handler, registered := d.handlers[c.Name]
		if !registered {
			return nil, ErrHandlerNotRegistered
		}

		router.Method(c.Method, chiPath(c.Path), d.serve(c, handler))
	}

	if d.logger != nil {
		d.logger.Debug(logMsgRouterBuildCompleted, "contracts", d.table.Len())
	}

	return router, nil
}

// newRequestID generates a time-ordered id for one request, falling back to
// a random id if the v7 source fails.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// chiPath converts a ":name" path template into chi's "{name}" form.
func chiPath(template string) string {
	segments := strings.Split(template, "/")

	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			segments[i] = "{" + segment[1:] + "}"
		}
	}

	return strings.Join(segments, "/")
}

// serve builds the http.Handler for one contract. Per request it walks the
// state machine: match (done by the router), validate, execute inside the
// tracing span, then respond or fail.
func (d *Dispatcher) serve(c contract.Contract, handler HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := newRequestID()

		req, validationErr := d.validateRequest(c, r)
		if validationErr != nil {
			d.reject(ctx, w, c, requestID, validationErr)
			return
		}

		var noteID *int64
		if id, found := req.PathInt(pathParamNoteID); found {
			noteID = &id
		}

		started := time.Now()
		ctx, span := startOperationSpan(ctx, d.tracing, c.Name, requestID, noteID)
		logWith(ctx, d.logger, d.contextualLogger, "info", LogMsgOperationStarted,
			LogAttrOperation, c.Name, LogAttrRequestID, requestID)

		result, handlerErr := handler(ctx, req)
		duration := time.Since(started)

		if handlerErr != nil {
			d.respondFailure(ctx, w, c, requestID, span, duration, handlerErr)
			return
		}

		d.respondSuccess(ctx, w, c, requestID, span, duration, result)
	})
}

// rejection is a validation failure detected before the handler is invoked.
type rejection struct {
	message string
	cause   error
}

func (e *rejection) Error() string {
	return e.message + ": " + e.cause.Error()
}

// validateRequest validates the request body and path parameters against the
// contract's schemas. A failure here is terminal: the handler never runs.
func (d *Dispatcher) validateRequest(c contract.Contract, r *http.Request) (Request, error) {
	req := Request{}

	if c.RequestBody != nil {
		var raw any
		if decodeErr := json.NewDecoder(r.Body).Decode(&raw); decodeErr != nil {
			return Request{}, &rejection{message: msgInvalidRequestBody, cause: decodeErr}
		}

		typed, bodyErr := c.RequestBody.Validate(raw)
		if bodyErr != nil {
			return Request{}, &rejection{message: msgInvalidRequestBody, cause: bodyErr}
		}

		req.Body = typed
	}

	if len(c.PathParams) > 0 {
		req.Path = make(map[string]any, len(c.PathParams))

		for name, descriptor := range c.PathParams {
			typed, paramErr := descriptor.Validate(chi.URLParam(r, name))
			if paramErr != nil {
				return Request{}, &rejection{message: msgInvalidPathParameter, cause: paramErr}
			}

			req.Path[name] = typed
		}
	}

	return req, nil
}

// reject writes the 400 response for a validation failure. The error body
// shape is reused for consistency even though contracts only declare it
// for 500 responses.
func (d *Dispatcher) reject(ctx context.Context, w http.ResponseWriter, c contract.Contract, requestID string, err error) {
	logWith(ctx, d.logger, d.contextualLogger, "warn", LogMsgRequestRejected,
		LogAttrOperation, c.Name, LogAttrRequestID, requestID, LogAttrError, err.Error())

	body := ErrorBody{Message: msgInvalidRequestBody, Details: err.Error()}

	var rej *rejection
	if errors.As(err, &rej) {
		body = ErrorBody{Message: rej.message, Details: rej.cause.Error()}
	}

	d.writeJSON(ctx, w, http.StatusBadRequest, body.Wire())
}

// respondSuccess validates and serializes the handler result against the
// contract's success schema and emits it with the contract's status code.
// A result that does not match its declared schema is a defect and surfaces
// as a serialization failure response.
func (d *Dispatcher) respondSuccess(
	ctx context.Context,
	w http.ResponseWriter,
	c contract.Contract,
	requestID string,
	span observability.SpanContext,
	duration time.Duration,
	result any,
) {

	wire, serializeErr := c.ResponseBody.Serialize(result)
	if serializeErr != nil {
		finishOperationSpan(d.tracing, span, StatusError, duration, serializeErr)
		logWith(ctx, d.logger, d.contextualLogger, "error", LogMsgOperationFailed,
			LogAttrOperation, c.Name, LogAttrRequestID, requestID, LogAttrError, serializeErr.Error())

		body := ErrorBody{Message: msgResponseSerialization, Details: serializeErr.Error()}
		d.writeJSON(ctx, w, http.StatusInternalServerError, body.Wire())

		return
	}

	finishOperationSpan(d.tracing, span, StatusSuccess, duration, nil)
	logWith(ctx, d.logger, d.contextualLogger, "info", LogMsgOperationCompleted,
		LogAttrOperation, c.Name, LogAttrRequestID, requestID,
		LogAttrStatus, StatusSuccess, LogAttrDurationMS, toMilliseconds(duration))

	d.writeJSON(ctx, w, c.ResponseStatus, wire)
}

// respondFailure maps a handler failure to the contract's declared error
// body and emits it with status 500.
func (d *Dispatcher) respondFailure(
	ctx context.Context,
	w http.ResponseWriter,
	c contract.Contract,
	requestID string,
	span observability.SpanContext,
	duration time.Duration,
	handlerErr error,
) {

	finishOperationSpan(d.tracing, span, StatusError, duration, handlerErr)
	logWith(ctx, d.logger, d.contextualLogger, "error", LogMsgOperationFailed,
		LogAttrOperation, c.Name, LogAttrRequestID, requestID,
		LogAttrStatus, StatusError, LogAttrDurationMS, toMilliseconds(duration),
		LogAttrError, handlerErr.Error())

	body := MapError(handlerErr).Wire()

	// The declared error schema is authoritative; a mismatch here is a
	// defect in the mapper, logged but still answered with the body as-is.
	if declared, found := c.ErrorResponses[http.StatusInternalServerError]; found {
		if validated, schemaErr := declared.Serialize(body); schemaErr == nil {
			body = validated.(map[string]any)
		} else {
			logWith(ctx, d.logger, d.contextualLogger, "error", logMsgErrorBodyMalformed,
				LogAttrOperation, c.Name, LogAttrError, schemaErr.Error())
		}
	}

	d.writeJSON(ctx, w, http.StatusInternalServerError, body)
}

// writeJSON emits a JSON response with the given status code.
func (d *Dispatcher) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	if encodeErr := json.NewEncoder(w).Encode(payload); encodeErr != nil {
		logWith(ctx, d.logger, d.contextualLogger, "warn", logMsgWriteResponseFailed,
			LogAttrError, encodeErr.Error())
	}
}
