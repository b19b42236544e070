package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_IsMatchesByCode(t *testing.T) {
	err := NewOutOfDomainError([]string{"BMI=99 outside [12,98]"})
	wrapped := fmt.Errorf("predict: %w", err)

	assert.True(t, stderrors.Is(wrapped, ErrOutOfDomainInput))
	assert.False(t, stderrors.Is(wrapped, ErrInferenceFailed))
	assert.Contains(t, err.Error(), "BMI=99")
}

func TestStandardError_UnwrapExposesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewInferenceFailedError("remote", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrInferenceFailed))
}

func TestAsStandardError(t *testing.T) {
	t.Run("finds wrapped standard error", func(t *testing.T) {
		inner := NewMissingArtifactError("classifier", "/tmp/model.json", stderrors.New("no such file"))
		got := AsStandardError(fmt.Errorf("init: %w", inner))
		require.NotNil(t, got)
		assert.Equal(t, ErrCodeMissingArtifact, got.Code)
		assert.Equal(t, "/tmp/model.json", got.Metadata["path"])
	})

	t.Run("wraps plain error as internal", func(t *testing.T) {
		got := AsStandardError(stderrors.New("boom"))
		assert.Equal(t, ErrCodeInternal, got.Code)
		assert.Equal(t, "boom", got.Details)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, AsStandardError(nil))
	})
}

func TestConvertToBPMNError_Retries(t *testing.T) {
	tests := []struct {
		name            string
		err             *StandardError
		expectedRetries int
	}{
		{"inference failure never retried", NewInferenceFailedError("m", stderrors.New("x")), 0},
		{"out of domain never retried", NewOutOfDomainError([]string{"Age"}), 0},
		{"persist failure retried", NewPredictionPersistFailedError(stderrors.New("x")), 3},
		{"notification failure retried", NewNotificationSendFailedError("sms", stderrors.New("x")), 3},
		{"timeout retried twice", NewTimeoutError("remote", stderrors.New("x")), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, string(tt.err.Code), bpmn.Code)
			assert.Equal(t, tt.expectedRetries, bpmn.Retries)
			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Equal(t, tt.err.Retryable, vars["retryable"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "ARTIFACT", GetErrorCategory(ErrCodeMissingArtifact))
	assert.Equal(t, "ARTIFACT", GetErrorCategory(ErrCodeFeatureMismatch))
	assert.Equal(t, "INFERENCE", GetErrorCategory(ErrCodeInferenceFailed))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeOutOfDomainInput))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodePredictionPersistFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeNotificationSendFailed))
	assert.Equal(t, "GENERAL", GetErrorCategory(ErrCodeInternal))
}
