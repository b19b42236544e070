// Package errors provides standardized error handling for prediction requests and BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Prediction errors
const (
	ErrCodeMissingArtifact ErrorCode = "MISSING_ARTIFACT"
	ErrCodeInvalidArtifact ErrorCode = "INVALID_ARTIFACT"
	ErrCodeFeatureMismatch ErrorCode = "FEATURE_MISMATCH"

	ErrCodeOutOfDomainInput ErrorCode = "OUT_OF_DOMAIN_INPUT"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeParseError       ErrorCode = "PARSE_ERROR"

	ErrCodeInferenceFailed ErrorCode = "INFERENCE_FAILED"

	ErrCodePredictionPersistFailed ErrorCode = "PREDICTION_PERSIST_FAILED"
	ErrCodeNotificationSendFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// Generic errors
const (
	ErrCodeBusinessRule    ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches any StandardError carrying the same code, so the exported
// sentinels below work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns the error with an extra metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is. Never returned directly.
var (
	ErrMissingArtifact         = &StandardError{Code: ErrCodeMissingArtifact}
	ErrInvalidArtifact         = &StandardError{Code: ErrCodeInvalidArtifact}
	ErrFeatureMismatch         = &StandardError{Code: ErrCodeFeatureMismatch}
	ErrOutOfDomainInput        = &StandardError{Code: ErrCodeOutOfDomainInput}
	ErrInvalidInput            = &StandardError{Code: ErrCodeInvalidInput}
	ErrInferenceFailed         = &StandardError{Code: ErrCodeInferenceFailed}
	ErrPredictionPersistFailed = &StandardError{Code: ErrCodePredictionPersistFailed}
	ErrNotificationSendFailed  = &StandardError{Code: ErrCodeNotificationSendFailed}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewMissingArtifactError reports an absent or unreadable artifact file. Fatal at startup.
func NewMissingArtifactError(artifact, path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingArtifact,
		Message:   fmt.Sprintf("%s artifact not available", artifact),
		Details:   fmt.Sprintf("%s: %v", path, err),
		Retryable: false,
		Metadata:  map[string]interface{}{"artifact": artifact, "path": path},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidArtifactError reports an artifact that loaded but cannot serve the configured variant.
func NewInvalidArtifactError(artifact, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidArtifact,
		Message:   fmt.Sprintf("%s artifact is invalid", artifact),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"artifact": artifact},
		Timestamp: time.Now().UTC(),
	}
}

// NewFeatureMismatchError reports a feature vector whose length the model does not accept.
func NewFeatureMismatchError(expected, got int) *StandardError {
	return &StandardError{
		Code:      ErrCodeFeatureMismatch,
		Message:   "feature vector length mismatch",
		Details:   fmt.Sprintf("expected %d features, got %d", expected, got),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOutOfDomainError lists every survey field outside its declared domain.
func NewOutOfDomainError(violations []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOutOfDomainInput,
		Message:   "survey answers outside their allowed domain",
		Details:   strings.Join(violations, "; "),
		Retryable: false,
		Metadata:  map[string]interface{}{"violations": violations},
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "invalid request input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewParseError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseError,
		Message:   "failed to parse input",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInferenceFailedError wraps a classifier failure. Never retried.
func NewInferenceFailedError(model string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInferenceFailed,
		Message:   fmt.Sprintf("classifier %q inference failed", model),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewPredictionPersistFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionPersistFailed,
		Message:   "failed to persist prediction",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   fmt.Sprintf("failed to send %s notification", channel),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBusinessRule,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePredictionPersistFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout:
		return 2

	default:
		// inference failures, bad input and artifact problems are terminal
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError extracts a StandardError from an error chain, wrapping
// anything else as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ARTIFACT") || strings.Contains(codeStr, "FEATURE"):
		return "ARTIFACT"
	case strings.Contains(codeStr, "INFERENCE"):
		return "INFERENCE"
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "PARSE"):
		return "VALIDATION"
	case strings.Contains(codeStr, "PERSIST"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TIMEOUT") || strings.Contains(codeStr, "EXTERNAL"):
		return "EXTERNAL"
	default:
		return "GENERAL"
	}
}
