package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestLogging(t *testing.T) {
	// Capture logs in a buffer using a custom zap logger
	var logBuf bytes.Buffer
	encoderCfg := zap.NewProductionEncoderConfig()
	encoder := zapcore.NewJSONEncoder(encoderCfg)
	writer := zapcore.AddSync(&logBuf)
	core := zapcore.NewCore(encoder, writer, zapcore.InfoLevel)
	logger := zap.New(core)

	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusTeapot) // 418
		_, _ = w.Write([]byte("I'm a teapot"))
	})

	loggedHandler := WithRequestLogging(logger)(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	loggedHandler.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Fatal("handler was not called")
	}

	resp := rec.Result()
	body, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", resp.StatusCode)
	}
	if string(body) != "I'm a teapot" {
		t.Errorf("unexpected response body: %s", body)
	}

	logOutput := logBuf.String()
	if logOutput == "" {
		t.Fatal("no logs written")
	}
	if !bytes.Contains(logBuf.Bytes(), []byte(`"method":"GET"`)) {
		t.Error("log does not contain method field")
	}
	if !bytes.Contains(logBuf.Bytes(), []byte(`"url":"/test"`)) {
		t.Error("log does not contain url field")
	}
	if !bytes.Contains(logBuf.Bytes(), []byte(`"status":418`)) {
		t.Error("log does not contain status field")
	}
	if !bytes.Contains(logBuf.Bytes(), []byte(`"size":12`)) {
		t.Error("log does not contain correct size field")
	}
	if !bytes.Contains(logBuf.Bytes(), []byte(`"duration"`)) {
		t.Error("log does not contain duration field")
	}
}

func TestWithRequestLogging_ImplicitStatusAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	handler := WithRequestID(WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, "abc-123", fields["request_id"])
}

func TestWithRequestLogging_FlushReachesWriter(t *testing.T) {
	handler := WithRequestLogging(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("chunk"))
		require.NoError(t, http.NewResponseController(w).Flush())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, rec.Flushed)
	assert.Equal(t, "chunk", rec.Body.String())
}
