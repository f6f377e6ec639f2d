package decode

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes decode failures.
type ErrorCode string

const (
	// ErrCodeMalformedJSON indicates the frame is not valid JSON.
	ErrCodeMalformedJSON ErrorCode = "MALFORMED_JSON"

	// ErrCodeUnknownShape indicates no known top-level key was found.
	ErrCodeUnknownShape ErrorCode = "UNKNOWN_SHAPE"

	// ErrCodeMissingField indicates a required field is absent or mistyped.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// ErrCodeUnsupportedVariant indicates a known stream emitted a variant
	// the bridge does not act on (e.g. graph-update add-graph).
	ErrCodeUnsupportedVariant ErrorCode = "UNSUPPORTED_VARIANT"
)

// Error describes why a frame could not be decoded.
type Error struct {
	Code    ErrorCode
	FrameID uint64
	// Field is the JSON path of the offending field, if any.
	Field string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s (frame=%d)", e.Code, e.FrameID)
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a decode error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

func missing(frameID uint64, field string) *Error {
	return &Error{Code: ErrCodeMissingField, FrameID: frameID, Field: field}
}
