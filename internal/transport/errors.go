package transport

import (
	"errors"
	"fmt"
)

// Op identifies the transport call that failed.
type Op string

const (
	OpLogin     Op = "login"
	OpSubscribe Op = "subscribe"
	OpPoll      Op = "poll"
	OpPoke      Op = "poke"
	OpJoin      Op = "join"
	OpAck       Op = "ack"
	OpPost      Op = "post"
	OpClose     Op = "close"
)

// Error is the error type returned by every Transport method.
type Error struct {
	// Op is the failed call.
	Op Op

	// Target names what the call addressed (stream, app, or resource).
	Target string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("transport %s %s: %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a transport error. Returns nil if err is nil.
func NewError(op Op, target string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) && te.Op == op {
		return err
	}
	return &Error{Op: op, Target: target, Err: err}
}

// IsOp reports whether err is a transport error for the given call.
func IsOp(err error, op Op) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Op == op
	}
	return false
}

// ErrClosed is returned by calls on a closed transport or subscription.
var ErrClosed = errors.New("closed")
