package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		category Category
		severity Severity
		retry    bool
	}{
		{"config error", ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{"io error", ErrCodeFileNotFound, CategoryIO, SeverityError, false},
		{"corrupt index is fatal", ErrCodeCorruptIndex, CategoryIO, SeverityFatal, false},
		{"network error is retryable", ErrCodeEmbedderUnavailable, CategoryNetwork, SeverityWarning, true},
		{"validation error", ErrCodeInvalidInput, CategoryValidation, SeverityError, false},
		{"internal error", ErrCodeInternal, CategoryInternal, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retry, err.Retryable)
		})
	}
}

func TestError_FormatsCodeAndMessage(t *testing.T) {
	err := New(ErrCodeInvalidInput, "root does not exist", nil)
	assert.Equal(t, "[ERR_401_INVALID_INPUT] root does not exist", err.Error())
}

func TestWrap_PreservesChain(t *testing.T) {
	cause := fmt.Errorf("open /nope: no such file or directory")
	err := Wrap(ErrCodeFileNotFound, cause)
	require.NotNil(t, err)

	// errors.Is matches by code.
	assert.True(t, stderrors.Is(err, New(ErrCodeFileNotFound, "", nil)))
	// Unwrap reaches the original cause.
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWrap_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIsRetryable_WalksChain(t *testing.T) {
	inner := New(ErrCodeNetworkTimeout, "timeout", nil)
	wrapped := fmt.Errorf("search failed: %w", inner)

	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("outer: %w", InvalidInput("bad mode", nil))
	assert.Equal(t, ErrCodeInvalidInput, CodeOf(err))
	assert.Equal(t, "", CodeOf(fmt.Errorf("plain")))
}

func TestWithDetail(t *testing.T) {
	err := Internal("store failed", nil).
		WithDetail("user_id", "u1").
		WithDetail("repo_id", "r1")

	assert.Equal(t, "u1", err.Details["user_id"])
	assert.Equal(t, "r1", err.Details["repo_id"])
}
