package dispatch

import (
	"errors"
	"fmt"

	"github.com/roach88/shipbot/internal/transport"
)

// SetupError is returned when the dispatcher cannot start. It is the only
// fatal error class: once the loop runs, failures are logged and dropped.
type SetupError struct {
	// Code identifies the error category.
	Code SetupErrorCode

	// Stream is the stream being opened, if any.
	Stream transport.Stream

	// Err is the underlying cause.
	Err error
}

// SetupErrorCode categorizes setup errors.
type SetupErrorCode string

const (
	// ErrCodeDuplicateStream indicates a stream was configured twice.
	ErrCodeDuplicateStream SetupErrorCode = "DUPLICATE_STREAM"

	// ErrCodeSubscribeFailed indicates the transport refused a subscription.
	ErrCodeSubscribeFailed SetupErrorCode = "SUBSCRIBE_FAILED"

	// ErrCodeAlreadyOpen indicates Open was called twice.
	ErrCodeAlreadyOpen SetupErrorCode = "ALREADY_OPEN"

	// ErrCodeNoStreams indicates the dispatcher has nothing to subscribe to.
	ErrCodeNoStreams SetupErrorCode = "NO_STREAMS"
)

// Error implements the error interface.
func (e *SetupError) Error() string {
	msg := string(e.Code)
	if e.Stream != (transport.Stream{}) {
		msg += fmt.Sprintf(" (stream=%s)", e.Stream)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// IsSetupError returns true if err is (or wraps) a SetupError.
func IsSetupError(err error) bool {
	var se *SetupError
	return errors.As(err, &se)
}
