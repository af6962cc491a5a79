package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation    ErrorCategory = "validation"     // Invalid input
	ErrCatNotFound      ErrorCategory = "not_found"      // Resource not found
	ErrCatAlreadyExists ErrorCategory = "already_exists" // Output present, no force
	ErrCatGateway       ErrorCategory = "gateway"        // Reasoning engine failure
	ErrCatRateLimit     ErrorCategory = "rate_limit"     // Engine rate limited
	ErrCatPrompt        ErrorCategory = "prompt_missing" // Instruction text absent
	ErrCatInternal      ErrorCategory = "internal"       // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrAlreadyExists creates an error for an output that is already present.
// Callers must pass force to overwrite.
func ErrAlreadyExists(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatAlreadyExists,
		Code:      "ALREADY_EXISTS",
		Message:   fmt.Sprintf("%s already exists for %s (use force to overwrite)", resource, id),
		Retryable: false,
	}
}

// ErrGateway creates an external reasoning engine error. Gateway errors
// abort the current stage invocation rather than failing a single module.
func ErrGateway(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatGateway,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrPromptMissing creates an error for absent instruction text. This is a
// deployment problem, never transient.
func ErrPromptMissing(specialistID, promptID string) *DomainError {
	return &DomainError{
		Category:  ErrCatPrompt,
		Code:      "PROMPT_MISSING",
		Message:   fmt.Sprintf("prompt not found: %s/%s", specialistID, promptID),
		Retryable: false,
	}
}

// ErrInternal creates an unexpected-internal-error.
func ErrInternal(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      "INTERNAL",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsGatewayError reports whether an error came from the external reasoning
// channel. Rate-limit errors count: they are the retryable subset.
func IsGatewayError(err error) bool {
	cat := GetCategory(err)
	return cat == ErrCatGateway || cat == ErrCatRateLimit
}

// Predefined error codes
const (
	CodeInvalidPdf = "INVALID_PDF"

	// Validation error codes
	CodeEmptyID            = "EMPTY_ID"
	CodeInvalidModule      = "INVALID_MODULE"
	CodeInvalidCardType    = "INVALID_CARD_TYPE"
	CodeInvalidContentType = "INVALID_CONTENT_TYPE"
	CodeFutureTimestamp    = "FUTURE_TIMESTAMP"
	CodeNoModulesDetected  = "NO_MODULES_DETECTED"

	// Gateway error codes
	CodeEngineNotFound = "ENGINE_NOT_FOUND"
	CodeEngineFailed   = "ENGINE_FAILED"
	CodeEngineTimeout  = "ENGINE_TIMEOUT"
	CodeEmptyResponse  = "EMPTY_RESPONSE"
	CodeParseFailed    = "PARSE_FAILED"
)
