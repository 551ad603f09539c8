package shared

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmer misuse.
var (
	// ErrMemoryNotBound is returned when a signature memory is used before
	// a state source has been bound to it.
	ErrMemoryNotBound = errors.New("MEMORY_ERROR: signature memory used before Bind")
)

// CoreError is the base error type for all engine errors.
type CoreError struct {
	Message string
	Code    string
	Details map[string]interface{}
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCoreError creates a new CoreError.
func NewCoreError(message, code string, details map[string]interface{}) *CoreError {
	return &CoreError{
		Message: message,
		Code:    code,
		Details: details,
	}
}

// ValidationError represents a construction-time validation failure.
type ValidationError struct {
	CoreError
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, details map[string]interface{}) *ValidationError {
	return &ValidationError{
		CoreError: CoreError{
			Message: message,
			Code:    "VALIDATION_ERROR",
			Details: details,
		},
	}
}

// MemoryError represents a signature memory failure.
type MemoryError struct {
	CoreError
}

// NewMemoryError creates a new MemoryError.
func NewMemoryError(message string, details map[string]interface{}) *MemoryError {
	return &MemoryError{
		CoreError: CoreError{
			Message: message,
			Code:    "MEMORY_ERROR",
			Details: details,
		},
	}
}

// SyncError represents a synchronization failure.
type SyncError struct {
	CoreError
}

// NewSyncError creates a new SyncError.
func NewSyncError(message string, details map[string]interface{}) *SyncError {
	return &SyncError{
		CoreError: CoreError{
			Message: message,
			Code:    "SYNC_ERROR",
			Details: details,
		},
	}
}

// EncodingError represents an input adapter failure. These are caught at
// the adapter boundary and skipped, never propagated into a tick.
type EncodingError struct {
	CoreError
}

// NewEncodingError creates a new EncodingError.
func NewEncodingError(message string, details map[string]interface{}) *EncodingError {
	return &EncodingError{
		CoreError: CoreError{
			Message: message,
			Code:    "ENCODING_ERROR",
			Details: details,
		},
	}
}
