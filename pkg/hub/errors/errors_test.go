package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeConnectFailed, "connect failed", nil)

	assert.NotNil(t, err)
	assert.Equal(t, ErrCodeConnectFailed, err.Code)
	assert.Equal(t, "connect failed", err.Message)
	assert.Nil(t, err.Cause)
}

func TestNew_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrCodeStreamFailed, "stream broke", cause)

	assert.Equal(t, ErrCodeStreamFailed, err.Code)
	assert.Equal(t, "stream broke", err.Message)
	assert.Equal(t, cause, err.Cause)
}

func TestAppError_Error_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrCodeStartupTimeout, "server never came up", cause)
	errorString := err.Error()

	assert.Contains(t, errorString, ErrCodeStartupTimeout)
	assert.Contains(t, errorString, "server never came up")
	assert.Contains(t, errorString, "underlying error")
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := New(ErrCodeLaunchFailed, "launch failed", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestHasCode(t *testing.T) {
	err := New(ErrCodeStartupTimeout, "server never came up", nil)

	assert.True(t, HasCode(err, ErrCodeStartupTimeout))
	assert.False(t, HasCode(err, ErrCodeConnectFailed))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeStartupTimeout))
}

func TestErrorCodes_Unique(t *testing.T) {
	codes := []string{
		ErrCodeConnectFailed,
		ErrCodeStartupTimeout,
		ErrCodePortProbe,
		ErrCodeLaunchFailed,
		ErrCodeDiscoveryFailed,
		ErrCodeStreamFailed,
		ErrCodeStreamClosed,
		ErrCodeCancelFailed,
		ErrCodeNotConnected,
		ErrCodeUnknownBackend,
		ErrCodeConfigInvalid,
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "duplicate error code: %s", code)
		seen[code] = true
	}
}
