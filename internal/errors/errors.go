// Package errors provides error code definitions for the offline subsystem.
package errors

import "fmt"

// ErrorCode represents a unique error code surfaced over the control channel.
type ErrorCode string

const (
	// General errors
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	ErrInvalid  ErrorCode = "INVALID_INPUT"
	ErrNotFound ErrorCode = "NOT_FOUND"

	// Storage errors
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrStorageWrite       ErrorCode = "STORAGE_WRITE_FAILED"
	ErrStorageRead        ErrorCode = "STORAGE_READ_FAILED"
	ErrMigration          ErrorCode = "MIGRATION_FAILED"
	ErrUnknownCollection  ErrorCode = "UNKNOWN_COLLECTION"
	ErrUnknownIndex       ErrorCode = "UNKNOWN_INDEX"

	// Sync errors
	ErrSyncFailed      ErrorCode = "SYNC_FAILED"
	ErrSyncConflict    ErrorCode = "SYNC_CONFLICT"
	ErrSyncOffline     ErrorCode = "SYNC_OFFLINE"
	ErrUploadFailed    ErrorCode = "UPLOAD_FAILED"
	ErrRetryExhausted  ErrorCode = "RETRY_EXHAUSTED"
	ErrNoUploadHandler ErrorCode = "NO_UPLOAD_HANDLER"

	// Cache errors
	ErrCacheMiss    ErrorCode = "CACHE_MISS"
	ErrFetchTimeout ErrorCode = "FETCH_TIMEOUT"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}
