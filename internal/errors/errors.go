package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

/**
 * Error types for the region annotator
 *
 * Every failure in the sync core degrades to "state unchanged, error logged".
 * The codes let call sites decide how loudly to report without string matching.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Session document errors
	ErrorParseFailed     ErrorCode = "PARSE_FAILED"
	ErrorCoercionFailed  ErrorCode = "COERCION_FAILED"
	ErrorInvalidRegion   ErrorCode = "INVALID_REGION"
	ErrorPageNotFound    ErrorCode = "PAGE_NOT_FOUND"
	ErrorMergeKeyMissing ErrorCode = "MERGE_KEY_MISSING"

	// Store errors
	ErrorStoreFailed ErrorCode = "STORE_FAILED"
	ErrorNoData      ErrorCode = "NO_DATA"

	// Script dispatch errors
	ErrorDispatchFailed ErrorCode = "DISPATCH_FAILED"
)

// SyncError represents a structured error raised by the sync core
type SyncError struct {
	Code      ErrorCode
	Message   string
	Key       string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewParseError(what string, cause error) *SyncError {
	return &SyncError{
		Code:      ErrorParseFailed,
		Message:   fmt.Sprintf("Failed to parse %s", what),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"element": what,
		},
		Cause: cause,
	}
}

func NewCoercionError(attribute string, value string) *SyncError {
	return &SyncError{
		Code:      ErrorCoercionFailed,
		Message:   fmt.Sprintf("Attribute %s is not numeric: %q", attribute, value),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"attribute": attribute,
			"value":     value,
		},
	}
}

func NewInvalidRegionError(name string, reason string) *SyncError {
	return &SyncError{
		Code:      ErrorInvalidRegion,
		Message:   fmt.Sprintf("Invalid region %q: %s", name, reason),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"region": name,
		},
	}
}

func NewPageNotFoundError(name string) *SyncError {
	return &SyncError{
		Code:      ErrorPageNotFound,
		Message:   fmt.Sprintf("Region page %q not found", name),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"page": name,
		},
	}
}

func NewMergeKeyMissingError(field string) *SyncError {
	return &SyncError{
		Code:      ErrorMergeKeyMissing,
		Message:   fmt.Sprintf("Expected field %s is absent", field),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"field": field,
		},
	}
}

func NewStoreFailedError(key string, op string, cause error) *SyncError {
	return &SyncError{
		Code:      ErrorStoreFailed,
		Message:   fmt.Sprintf("Store operation %s failed", op),
		Key:       key,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"operation": op,
		},
		Cause: cause,
	}
}

func NewNoDataError(key string) *SyncError {
	return &SyncError{
		Code:      ErrorNoData,
		Message:   "No data available",
		Key:       key,
		Timestamp: time.Now(),
	}
}

func NewDispatchFailedError(queue string, cause error) *SyncError {
	return &SyncError{
		Code:      ErrorDispatchFailed,
		Message:   fmt.Sprintf("Failed to enqueue script on %s", queue),
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"queue": queue,
		},
		Cause: cause,
	}
}

// IsCode reports whether any error in err's chain is a SyncError with the given code
func IsCode(err error, code ErrorCode) bool {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// ToMap converts error to map for log fields
func (e *SyncError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	if e.Key != "" {
		result["key"] = e.Key
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
