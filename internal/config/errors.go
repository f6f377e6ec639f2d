package config

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes for configuration failures.
const (
	ErrCodeNotFound = "CONFIG_NOT_FOUND"
	ErrCodeParse    = "CONFIG_PARSE"
	ErrCodeEnv      = "CONFIG_ENV"
	ErrCodeInvalid  = "CONFIG_INVALID"
	ErrCodeExists   = "CONFIG_EXISTS"
)

// Error is a configuration failure. All of them are fatal at startup.
type Error struct {
	Code    string
	Path    string
	Message string
	// Pos is the schema position of a validation failure, if known.
	Pos token.Pos
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a config Error with the given code.
func IsCode(err error, code string) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsNotFound reports whether the config file does not exist.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}
