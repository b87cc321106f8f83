package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for the distinct failure scenarios of the assessment workflow.
const (
	ErrCodeFieldValidation     = "FIELD_VALIDATION_ERROR"
	ErrCodePredictionFailed    = "PREDICTION_FAILED"
	ErrCodeMalformedPrediction = "MALFORMED_PREDICTION"
	ErrCodePersistenceFailed   = "PERSISTENCE_FAILED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeStateConflict       = "STATE_CONFLICT"
	ErrCodeValidation          = "VALIDATION_ERROR"
)

// AssessmentError is the standardized error shape surfaced to callers of the
// workflow. The view layer reads Code to decide between a retryable banner
// (PREDICTION_FAILED, PERSISTENCE_FAILED) and a terminal failure notice
// (MALFORMED_PREDICTION).
type AssessmentError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`
}

// Error implements the error interface.
func (e *AssessmentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether the failure is recoverable by retrying the same
// step without re-entering data. Malformed payloads are not retryable at the
// transport level; the user must re-run the submission.
func (e *AssessmentError) Retryable() bool {
	switch e.Code {
	case ErrCodePredictionFailed, ErrCodePersistenceFailed:
		return true
	default:
		return false
	}
}

// NewAssessmentError creates a new AssessmentError with timestamp.
func NewAssessmentError(code, message, details, sessionID string) *AssessmentError {
	return &AssessmentError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
	}
}

// FieldError represents a single field-scoped validation failure. Field
// errors are recovered locally by the user editing the field and never reach
// the network.
type FieldError struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Value   any    `json:"value"`
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Reason)
}

// NewFieldError creates a new FieldError.
func NewFieldError(field, reason string, value any) *FieldError {
	return &FieldError{Field: field, Reason: reason, Value: value}
}

// PredictionFailedError wraps a transport or server failure from the
// prediction service. The session maps it to the Failed status; Retry
// re-submits the captured input without data loss.
func PredictionFailedError(sessionID string, cause error) *AssessmentError {
	return NewAssessmentError(ErrCodePredictionFailed,
		"prediction service request failed", cause.Error(), sessionID)
}

// MalformedPredictionError signals that the returned payload violates the
// model's classification scheme. The session refuses to render a
// classification it cannot validate; an incorrect clinical display is worse
// than a visible failure.
func MalformedPredictionError(sessionID, detail string) *AssessmentError {
	return NewAssessmentError(ErrCodeMalformedPrediction,
		"unable to interpret prediction result", detail, sessionID)
}

// PersistenceFailedError wraps a failure saving an assessment outcome. The
// interpreted result is retained so persistence can be retried without
// re-running inference.
func PersistenceFailedError(sessionID string, cause error) *AssessmentError {
	return NewAssessmentError(ErrCodePersistenceFailed,
		"failed to save assessment to patient history", cause.Error(), sessionID)
}

// NewValidationError signals a caller-level contract violation, e.g. a
// missing required argument, outside the field-validation path.
func NewValidationError(message string) *AssessmentError {
	return NewAssessmentError(ErrCodeValidation, message, "", "")
}

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var ae *AssessmentError
	return errors.As(err, &ae) && ae.Code == ErrCodeNotFound
}

// StateConflictError signals an operation invoked in a session status that
// does not permit it, e.g. submit while a prediction is already in flight.
func StateConflictError(sessionID string, op string, status SessionStatus) *AssessmentError {
	return NewAssessmentError(ErrCodeStateConflict,
		fmt.Sprintf("operation %s not permitted in status %s", op, status), "", sessionID)
}
