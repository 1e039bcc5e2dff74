package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("New creates error correctly", func(t *testing.T) {
		err := New(ErrorTypeValidation, "Invalid input", http.StatusBadRequest)

		assert.Equal(t, ErrorTypeValidation, err.Type)
		assert.Equal(t, "Invalid input", err.Message)
		assert.Equal(t, http.StatusBadRequest, err.HTTPStatus)
		assert.Equal(t, "VALIDATION_ERROR: Invalid input", err.Error())
	})

	t.Run("Wrap wraps error correctly", func(t *testing.T) {
		originalErr := errors.New("v4l2: device busy")
		err := WrapDeviceError(originalErr, "camera unavailable")

		assert.Equal(t, ErrorTypeDevice, err.Type)
		assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
		assert.Equal(t, originalErr, err.Unwrap())
		assert.Contains(t, err.Error(), "device busy")
	})

	t.Run("WithDetails and WithCode", func(t *testing.T) {
		err := NewPermissionError("denied").
			WithCode("NotAllowedError").
			WithDetails(map[string]interface{}{"device": "/dev/video0"})

		assert.Equal(t, "NotAllowedError", err.Code)
		assert.Equal(t, "/dev/video0", err.Details["device"])
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"unsupported", NewUnsupportedError("no capture backend"), ErrorTypeUnsupported, http.StatusNotImplemented},
		{"permission", NewPermissionError("denied"), ErrorTypePermission, http.StatusForbidden},
		{"device", WrapDeviceError(errors.New("gone"), "missing"), ErrorTypeDevice, http.StatusServiceUnavailable},
		{"decode", WrapDecodeError(errors.New("checksum"), "qrcode"), ErrorTypeDecode, http.StatusInternalServerError},
		{"validation", NewValidationError("bad"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("frame"), ErrorTypeNotFound, http.StatusNotFound},
		{"internal", NewInternalError("boom"), ErrorTypeInternal, http.StatusInternalServerError},
		{"rate limit", NewRateLimitError("slow down"), ErrorTypeRateLimit, http.StatusTooManyRequests},
		{"service down", NewServiceDownError("camera"), ErrorTypeServiceDown, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestIs(t *testing.T) {
	sentinel := NewPermissionError("camera permission denied")
	coded := NewPermissionError("denied").WithCode("NotAllowedError")

	wrapped := fmt.Errorf("start camera: %w", NewPermissionError("user said no").WithCode("NotAllowedError"))

	assert.True(t, errors.Is(wrapped, sentinel), "type-only sentinel matches any permission error")
	assert.True(t, errors.Is(wrapped, coded))
	assert.False(t, errors.Is(wrapped, NewPermissionError("x").WithCode("SecurityError")))
	assert.False(t, errors.Is(wrapped, NewUnsupportedError("x")))
}

func TestGetAppError(t *testing.T) {
	t.Run("extracts wrapped AppError", func(t *testing.T) {
		inner := NewValidationError("test")
		appErr, ok := GetAppError(fmt.Errorf("outer: %w", inner))

		assert.True(t, ok)
		assert.Same(t, inner, appErr)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		appErr, ok := GetAppError(errors.New("standard error"))

		assert.False(t, ok)
		assert.Nil(t, appErr)
		assert.False(t, IsAppError(errors.New("standard error")))
	})
}

func TestIsCameraFailure(t *testing.T) {
	assert.True(t, IsCameraFailure(NewUnsupportedError("x")))
	assert.True(t, IsCameraFailure(NewPermissionError("x")))
	assert.True(t, IsCameraFailure(fmt.Errorf("wrap: %w", WrapDeviceError(errors.New("busy"), "x"))))
	assert.False(t, IsCameraFailure(WrapDecodeError(errors.New("x"), "qrcode")))
	assert.False(t, IsCameraFailure(errors.New("plain")))
}
