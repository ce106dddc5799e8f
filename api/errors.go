package api

import (
	"errors"
	"fmt"

	"github.com/notelab/noteservice/schema"
)

// ErrHandlerNotRegistered is returned when the dispatcher is asked to serve a
// contract that no handler was bound to.
var ErrHandlerNotRegistered = errors.New("no handler registered for contract")

// ErrUnknownContract is returned when a handler is bound to a name that is
// not in the contract table.
var ErrUnknownContract = errors.New("contract is not in the table")

// ErrorBody is the uniform error response shape declared by every contract.
type ErrorBody struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

// ErrorBodySchema returns the descriptor for ErrorBody, used in contract
// declarations and to validate error responses before they are written.
func ErrorBodySchema() schema.Descriptor {
	return schema.Object(
		schema.F("message", schema.String()),
		schema.F("details", schema.String()),
	)
}

// Wire returns the canonical map form of the error body for serialization.
func (b ErrorBody) Wire() map[string]any {
	return map[string]any{
		"message": b.Message,
		"details": b.Details,
	}
}

// Failure is a handler-level failure: an operation-specific human message
// wrapping the underlying error. Handlers re-label every underlying failure
// with one of these before it reaches the error mapper.
type Failure struct {
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Message, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Fail wraps an underlying error with an operation-specific message.
func Fail(message string, cause error) error {
	return &Failure{Message: message, Cause: cause}
}

// MapError converts a handler failure into the contract's typed error body.
// Every failure maps to the same shape; finer-grained taxonomy is not
// surfaced to the client.
func MapError(err error) ErrorBody {
	var failure *Failure
	if errors.As(err, &failure) {
		return ErrorBody{Message: failure.Message, Details: failure.Cause.Error()}
	}

	return ErrorBody{Message: "Internal server error", Details: err.Error()}
}
