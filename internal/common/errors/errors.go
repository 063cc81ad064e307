// Package errors provides the standardized error taxonomy shared by the web
// surface and the workflow worker.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePredictionFailed     ErrorCode = "PREDICTION_FAILED"
	ErrCodePredictionTimeout    ErrorCode = "PREDICTION_TIMEOUT"
	ErrCodeInvalidPrediction    ErrorCode = "INVALID_PREDICTION"
	ErrCodePredictorUnavailable ErrorCode = "PREDICTOR_UNAVAILABLE"

	ErrCodeInvalidRecord ErrorCode = "INVALID_RECORD"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// IsPredictionFailure reports whether the code belongs to the PredictionFailure class.
func (e *StandardError) IsPredictionFailure() bool {
	switch e.Code {
	case ErrCodePredictionFailed, ErrCodePredictionTimeout, ErrCodeInvalidPrediction, ErrCodePredictorUnavailable:
		return true
	}
	return false
}

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

// NewPredictionFailedError wraps a collaborator error. Retryable: the
// collaborator may be transiently broken.
func NewPredictionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionFailed,
		Message:   "Prediction service returned an error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewPredictionTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionTimeout,
		Message:   "Prediction timed out",
		Details:   fmt.Sprintf("no answer within %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPredictionError reports a value the collaborator returned that is
// not a usable premium (NaN, infinite, negative, non-numeric).
func NewInvalidPredictionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPrediction,
		Message:   "Prediction service returned an invalid premium",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPredictorUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictorUnavailable,
		Message:   "Prediction service is not configured",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInvalidRecordError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecord,
		Message:   "Prediction request has invalid fields",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Prediction cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Generic constructors

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

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the codes modelled as boundary
// events on the premium process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodePredictionFailed:     "PREDICTION_FAILED",
	ErrCodePredictionTimeout:    "PREDICTION_TIMEOUT",
	ErrCodeInvalidPrediction:    "PREDICTION_FAILED",
	ErrCodePredictorUnavailable: "PREDICTION_FAILED",
	ErrCodeInvalidRecord:        "INVALID_RECORD",
}

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePredictionFailed, ErrCodeExternalService:
		return 3
	case ErrCodePredictionTimeout, ErrCodeTimeout:
		return 2
	case ErrCodeCacheUnavailable:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to its workflow representation.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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
// 5. Helpers
// ==========================

// AsStandardError extracts a StandardError from an error chain, or wraps the
// error as INTERNAL_ERROR.
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

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodePredictionFailed, ErrCodePredictionTimeout, ErrCodeInvalidPrediction, ErrCodePredictorUnavailable:
		return "prediction"
	case ErrCodeInvalidRecord:
		return "validation"
	case ErrCodeCacheUnavailable:
		return "cache"
	case ErrCodeExternalService, ErrCodeTimeout:
		return "integration"
	default:
		return "internal"
	}
}
