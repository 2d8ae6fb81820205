package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents malformed input errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeAuth represents authentication errors
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeRateLimit represents admission-control rejections
	ErrTypeRateLimit ErrorType = "rate_limit"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
)

// Machine-readable rejection codes returned in the error envelope.
const (
	CodeIPBlocked           = "IP_BLOCKED"
	CodeBurstDetected       = "BURST_DETECTED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeAuthRateLimit       = "AUTH_RATE_LIMIT"
	CodePaymentRateLimit    = "PAYMENT_RATE_LIMIT"
	CodeWebhookRateLimit    = "WEBHOOK_RATE_LIMIT"
	CodeCostLimitExceeded   = "COST_LIMIT_EXCEEDED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidAPIKey       = "INVALID_API_KEY"
	CodeSignatureMissing    = "SIGNATURE_MISSING"
	CodeTimestampMissing    = "TIMESTAMP_MISSING"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
	CodeTimestampOutOfRange = "TIMESTAMP_OUT_OF_RANGE"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// AuthError creates a new authentication error
func AuthError(code, msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
		Code:    code,
	}
}

// RateLimitError creates a new admission-control rejection
func RateLimitError(code, msg string) *AppError {
	return &AppError{
		Type:    ErrTypeRateLimit,
		Message: msg,
		Code:    code,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Code:    CodeInternal,
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetCode returns the machine code of an AppError, or CodeInternal for
// any other error.
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok && appErr.Code != "" {
		return appErr.Code
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code of the uniform envelope:
// 400 for malformed input, 401 for authentication failures, 429 for any
// admission rejection, 500 otherwise.
func HTTPStatus(err error) int {
	appErr, ok := err.(*AppError)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Type {
	case ErrTypeValidation:
		return http.StatusBadRequest
	case ErrTypeAuth:
		return http.StatusUnauthorized
	case ErrTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
