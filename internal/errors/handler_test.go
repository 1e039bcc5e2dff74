package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*ErrorHandler, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return NewErrorHandler(log), hook
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   ErrorType
		wantCode   string
		wantLevel  logrus.Level
	}{
		{
			name:       "permission denied",
			err:        NewPermissionError("camera permission denied").WithCode("NotAllowedError"),
			wantStatus: http.StatusForbidden,
			wantType:   ErrorTypePermission,
			wantCode:   "NotAllowedError",
			wantLevel:  logrus.DebugLevel,
		},
		{
			name:       "device busy wrapped by the scheduler",
			err:        fmt.Errorf("camera acquisition: %w", WrapDeviceError(fmt.Errorf("v4l2: EBUSY"), "camera busy").WithCode("NotReadableError")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   ErrorTypeDevice,
			wantCode:   "NotReadableError",
			wantLevel:  logrus.DebugLevel,
		},
		{
			name:       "no capture support",
			err:        NewUnsupportedError("built without gocv"),
			wantStatus: http.StatusNotImplemented,
			wantType:   ErrorTypeUnsupported,
			wantLevel:  logrus.DebugLevel,
		},
		{
			name:       "preview rate limited",
			err:        NewRateLimitError("preview rate exceeded"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   ErrorTypeRateLimit,
			wantLevel:  logrus.DebugLevel,
		},
		{
			name:       "bad freeze request",
			err:        NewValidationError("unknown orientation"),
			wantStatus: http.StatusBadRequest,
			wantType:   ErrorTypeValidation,
			wantLevel:  logrus.WarnLevel,
		},
		{
			name:       "redis sink down",
			err:        NewServiceDownError("redis"),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   ErrorTypeServiceDown,
			wantLevel:  logrus.ErrorLevel,
		},
		{
			name:       "plain error becomes internal",
			err:        fmt.Errorf("jpeg: encode failed"),
			wantStatus: http.StatusInternalServerError,
			wantType:   ErrorTypeInternal,
			wantLevel:  logrus.ErrorLevel,
		},
		{
			name:       "missing status falls back to 500",
			err:        &AppError{Type: ErrorTypeDecode, Message: "decoder zxing-qr failed"},
			wantStatus: http.StatusInternalServerError,
			wantType:   ErrorTypeDecode,
			wantLevel:  logrus.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, hook := newTestHandler()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/preview.jpg", nil)
			req.Header.Set("X-Request-ID", "req-7")
			rr := httptest.NewRecorder()

			handler.HandleError(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Equal(t, tt.wantType, response.Error.Type)
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.Equal(t, "req-7", response.TraceID)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "/api/v1/preview.jpg", entry.Data["path"])
		})
	}
}

func TestHandleNotFoundAndMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler()

	rr := httptest.NewRecorder()
	handler.HandleNotFound(rr, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	handler.HandleMethodNotAllowed(rr, httptest.NewRequest(http.MethodGet, "/api/v1/reset", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, ErrorTypeValidation, response.Error.Type)
}

func TestErrorMiddlewareRecoversPanic(t *testing.T) {
	handler, hook := newTestHandler()

	panicky := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("compositor: nil frame")
	}))

	rr := httptest.NewRecorder()
	panicky.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/freeze", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var sawPanic bool
	for _, e := range hook.AllEntries() {
		if e.Message == "Panic recovered in HTTP handler" {
			sawPanic = true
			assert.Equal(t, "compositor: nil frame", e.Data["panic"])
		}
	}
	assert.True(t, sawPanic)
}

func TestHandleErrorWithMetadata(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/preview.jpg", nil)
	rr := httptest.NewRecorder()

	handler.HandleErrorWithMetadata(rr, req, NewPermissionError("camera permission denied"),
		map[string]string{"error_text": "Failed to access to camera"})

	assert.Equal(t, http.StatusForbidden, rr.Code)

	var response struct {
		Error    ErrorDetails      `json:"error"`
		Metadata map[string]string `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, ErrorTypePermission, response.Error.Type)
	assert.Equal(t, "Failed to access to camera", response.Metadata["error_text"])
}
