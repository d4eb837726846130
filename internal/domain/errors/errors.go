// Package errors provides domain-specific errors for the wikisync application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrSourceNotFound     = errors.New("source directory does not exist")
	ErrDestinationEmpty   = errors.New("destination is empty")
	ErrTeamEmpty          = errors.New("team name is empty")
	ErrCredentialMissing  = errors.New("access token is not set")
	ErrRemoteRejected     = errors.New("remote rejected request")
	ErrMissingIdentity    = errors.New("matched document has no number")
	ErrSyncAlreadyRunning = errors.New("another sync is already running")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeValidation      ErrorCode = "VALIDATION"
	CodeConfiguration   ErrorCode = "CONFIG"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeRemoteRejected  ErrorCode = "REMOTE_REJECTED"
	CodeMissingIdentity ErrorCode = "MISSING_IDENTITY"
	CodeFilesystem      ErrorCode = "FILESYSTEM"
	CodeNetwork         ErrorCode = "NETWORK"
)

// WikisyncError wraps errors with additional context for debugging and handling.
type WikisyncError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *WikisyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *WikisyncError) Unwrap() error {
	return e.Cause
}

// NewError creates a new WikisyncError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *WikisyncError {
	return &WikisyncError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error's context and returns the error.
func WithContext(err *WikisyncError, key string, value interface{}) *WikisyncError {
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context[key] = value
	return err
}

// NewRemoteRejected builds the fatal error for a non-2xx, non-429 response.
// The status code and the remote message are kept verbatim.
func NewRemoteRejected(op string, status int, remoteMessage string) *WikisyncError {
	err := NewError(CodeRemoteRejected,
		fmt.Sprintf("failed to %s with status code %d / %s", op, status, remoteMessage),
		ErrRemoteRejected)
	WithContext(err, "status", status)
	WithContext(err, "remote_message", remoteMessage)
	return err
}

// CodeOf returns the code of the first WikisyncError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var we *WikisyncError
	if errors.As(err, &we) {
		return we.Code
	}
	return ""
}

// Is reports whether err matches target using errors.Is semantics.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
