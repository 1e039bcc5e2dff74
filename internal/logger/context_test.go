package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	l := NewLogrusAdapter(logrus.NewEntry(base)).WithField("k", "v")

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("hello")

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "v", hook.LastEntry().Data["k"])

	assert.IsType(t, NullLogger{}, FromContext(context.Background()))
}

func TestContextRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestRequestLoggerMiddleware(t *testing.T) {
	base, hook := test.NewNullLogger()
	l := NewLogrusAdapter(logrus.NewEntry(base))

	var gotID string
	h := RequestLoggerMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		FromContext(r.Context()).Info("inside")
	}))

	t.Run("generates request id", func(t *testing.T) {
		hook.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, rec.Header().Get("X-Request-ID"))
		require.Len(t, hook.Entries, 1)
		assert.Equal(t, "/api/v1/status", hook.LastEntry().Data["path"])
		assert.Equal(t, gotID, hook.LastEntry().Data["request_id"])
	})

	t.Run("keeps client request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "client-id")
		req.Header.Set("X-Forwarded-For", "10.0.0.9")
		hook.Reset()

		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "client-id", gotID)
		assert.Equal(t, "10.0.0.9", hook.LastEntry().Data["remote_ip"])
	})
}

func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	assert.Equal(t, http.StatusOK, rw.StatusCode())

	rw.WriteHeader(http.StatusServiceUnavailable)
	rw.WriteHeader(http.StatusOK)
	_, err := rw.Write([]byte("x"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, rw.StatusCode())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
