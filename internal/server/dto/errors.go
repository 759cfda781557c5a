// Package dto defines API request/response types and error handling.
//
// Request types carry path/query/json struct tags for parameter binding.
// Response types are what the HTTP API serializes. Errors follow a structured
// pattern:
//   - ErrorCode provides machine-readable error classification
//   - APIError wraps errors with HTTP status codes and details
//   - Constructor functions (NotFound, BadRequest, etc.) create common errors
package dto

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
)

// ErrorCode defines specific error types for the API.
type ErrorCode string

const (
	// ErrorCodeValidationFailed is returned when input data fails validation.
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrorCodeMissingField is returned when a required field is missing.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrorCodeInvalidFormat is returned when a field has an invalid format.
	ErrorCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// ErrorCodeInvalidFilter is returned when a filter expression does not
	// compile.
	ErrorCodeInvalidFilter ErrorCode = "INVALID_FILTER"

	// ErrorCodeNotFound is returned when a document is not found.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeAlreadyExists is returned when adding a document whose id is
	// taken.
	ErrorCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrorCodePatchFailed is returned when a patch cannot be applied. The
	// details carry the failure kind.
	ErrorCodePatchFailed ErrorCode = "PATCH_FAILED"

	// ErrorCodeStorageError is returned when a storage operation fails.
	ErrorCodeStorageError ErrorCode = "STORAGE_ERROR"
	// ErrorCodeInternal is returned when an unexpected server error occurs.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"

	// ErrorCodeRateLimitExceeded is returned when a client is throttled.
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrorCodePayloadTooLarge is returned when the request body is too big.
	ErrorCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
)

// ErrorDetails defines the structured error information in a response.
type ErrorDetails struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error   ErrorDetails   `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{
		statusCode: statusCode,
		code:       code,
		message:    message,
		details:    make(map[string]any),
	}
}

// WithDetails adds details to the error.
func (e *APIError) WithDetails(details map[string]any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	maps.Copy(e.details, details)
	return e
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap records the underlying error. It is reachable with errors.Is/As but
// not part of the message sent to clients.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

func (e *APIError) Error() string {
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrorCodeNotFound, resource+" not found")
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeValidationFailed, message)
}

// MissingField creates a 400 error for a missing required field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeMissingField, "missing required field: "+fieldName).
		WithDetail("field", fieldName)
}

// InvalidFormat creates a 400 error for a malformed field.
func InvalidFormat(fieldName, value string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeInvalidFormat, fmt.Sprintf("invalid %s: %q", fieldName, value)).
		WithDetail("field", fieldName)
}

// AlreadyExists creates a 400 error for a resource whose id is taken.
func AlreadyExists(resource string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrorCodeAlreadyExists, resource+" already exists")
}

// Internal creates a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeInternal, message).Wrap(err)
}

// Storage creates a 500 error for a failed storage operation.
func Storage(message string, err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrorCodeStorageError, message).Wrap(err)
}

// RateLimitExceeded creates a 429 error. retryAfter is in seconds.
func RateLimitExceeded(retryAfter int) *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrorCodeRateLimitExceeded,
		"rate limit exceeded, retry in "+strconv.Itoa(retryAfter)+"s").
		WithDetail("retry_after", retryAfter)
}

// PayloadTooLarge creates a 413 error for request bodies over limit bytes.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrorCodePayloadTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit)).
		WithDetail("limit", limit)
}
