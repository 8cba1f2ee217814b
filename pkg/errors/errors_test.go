package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKnownCode(t *testing.T) {
	def := Get("SENIOR_NOT_FOUND")
	assert.Equal(t, SeniorNotFound, def)
}

func TestGetUnknownCodeFallsBack(t *testing.T) {
	def := Get("NO_SUCH_CODE")
	assert.Equal(t, "NO_SUCH_CODE", def.Code)
	assert.Equal(t, "Unexpected error", def.Message)
}

func TestDefinitionIsError(t *testing.T) {
	var err error = PremiumRequired
	assert.Equal(t, "Premium subscription required", err.Error())
}

func TestSkipMessageErrorDetection(t *testing.T) {
	err := NewSkipMessageError("event already taken")
	assert.True(t, IsSkipMessageError(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, IsSkipMessageError(wrapped))

	assert.False(t, IsSkipMessageError(fmt.Errorf("plain failure")))
	assert.False(t, IsSkipMessageError(nil))
}

func TestNonRetryableDetection(t *testing.T) {
	err := NewNonRetryableError("PUSH_NO_TOKEN", "no device token", "caregiver never registered a device")
	require.True(t, IsNonRetryable(err))

	wrapped := fmt.Errorf("deliver alert: %w", err)
	assert.True(t, IsNonRetryable(wrapped))

	// 跳过类错误可重入但不可当作配置错误处理
	assert.False(t, IsNonRetryable(NewSkipMessageError("duplicate message")))
}
