package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentError_Error(t *testing.T) {
	err := NewAssessmentError(ErrCodePredictionFailed, "prediction service request failed", "dial tcp: refused", "sess-1")
	assert.Equal(t, "PREDICTION_FAILED: prediction service request failed", err.Error())
	assert.Equal(t, "sess-1", err.SessionID)
	assert.False(t, err.Timestamp.IsZero())
}

func TestAssessmentError_Retryable(t *testing.T) {
	assert.True(t, PredictionFailedError("s", errors.New("timeout")).Retryable())
	assert.True(t, PersistenceFailedError("s", errors.New("reset")).Retryable())
	assert.False(t, MalformedPredictionError("s", "bad payload").Retryable())
	assert.False(t, StateConflictError("s", "submit", StatusSubmitting).Retryable())
}

func TestFieldError_Error(t *testing.T) {
	ferr := NewFieldError("age", "out of range: must be between 0 and 120", 150)
	assert.Equal(t, "validation error for field 'age': out of range: must be between 0 and 120", ferr.Error())
	assert.Equal(t, 150, ferr.Value)
}

func TestStateConflictError(t *testing.T) {
	err := StateConflictError("sess-1", "persist", StatusEditing)
	require.Equal(t, ErrCodeStateConflict, err.Code)
	assert.Contains(t, err.Message, "persist")
	assert.Contains(t, err.Message, "EDITING")
}

func TestMalformedPredictionError_UserFacingMessage(t *testing.T) {
	err := MalformedPredictionError("sess-1", "confidence 1.7 outside [0,1]")
	// generic message to the user, raw detail retained for logs
	assert.Equal(t, "unable to interpret prediction result", err.Message)
	assert.Equal(t, "confidence 1.7 outside [0,1]", err.Details)
}
