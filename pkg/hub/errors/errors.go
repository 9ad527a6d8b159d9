package errors

import (
	"errors"
	"fmt"
)

// AppError represents an application-level error with a code and optional cause
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether err, or any error it wraps, is an AppError
// carrying the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Error codes
const (
	ErrCodeConnectFailed   = "CONNECT_FAILED"
	ErrCodeStartupTimeout  = "STARTUP_TIMEOUT"
	ErrCodePortProbe       = "PORT_PROBE_FAILED"
	ErrCodeLaunchFailed    = "LAUNCH_FAILED"
	ErrCodeDiscoveryFailed = "DISCOVERY_FAILED"
	ErrCodeStreamFailed    = "STREAM_FAILED"
	ErrCodeStreamClosed    = "STREAM_CLOSED"
	ErrCodeCancelFailed    = "CANCEL_FAILED"
	ErrCodeNotConnected    = "NOT_CONNECTED"
	ErrCodeUnknownBackend  = "UNKNOWN_BACKEND"
	ErrCodeConfigInvalid   = "CONFIG_INVALID"
)
