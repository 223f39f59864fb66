// internal/log/logger_test.go
package log

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestConsoleHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()

	h := NewConsoleHandler(&buf, cfg, slog.LevelInfo)
	slog.New(h).Info("hello", "key", "value")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "key=value")

	buf.Reset()
	cfg.Format = "json"
	h = NewConsoleHandler(&buf, cfg, slog.LevelInfo)
	slog.New(h).Info("hello", "key", "value")
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestFileHandlerRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.FilePath = filepath.Join(dir, "chatter.log")
	cfg.MaxSizeMB = 0 // clamps to the 1KB floor
	cfg.MaxBackups = 1

	h, err := NewFileHandler(cfg, slog.LevelInfo)
	require.NoError(t, err)
	defer h.Close()

	logger := slog.New(h)
	for i := 0; i < 100; i++ {
		logger.Info("fill the file", "line", i, "padding", strings.Repeat("x", 64))
	}

	matches, err := filepath.Glob(cfg.FilePath + ".*")
	require.NoError(t, err)
	assert.NotEmpty(t, matches)
	assert.LessOrEqual(t, len(matches), cfg.MaxBackups+1)

	// The live file is still being written.
	info, err := os.Stat(cfg.FilePath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	conn net.Conn
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return h.conn, bufio.NewReadWriter(bufio.NewReader(h.conn), bufio.NewWriter(h.conn)), nil
}

func TestRequestLoggerPassesThroughHijack(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	var hijacked bool
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		require.True(t, ok, "wrapped writer must support hijacking")
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		assert.Equal(t, server, conn)
		hijacked = true
	}))

	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder(), conn: server}
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/realtime/v1/websocket", nil))
	assert.True(t, hijacked)
}

func TestRequestLoggerHijackUnsupported(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _, err := w.(http.Hijacker).Hijack()
		assert.Error(t, err)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequestLoggerAddsRequestID(t *testing.T) {
	var seen string
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, seen, 8)
	assert.Empty(t, GetRequestID(context.Background()))
}
