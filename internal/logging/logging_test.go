package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewHandlerDevMode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, true))

	logger.Debug("test debug")
	logger.Info("test info")

	output := buf.String()
	if !strings.Contains(output, "test debug") {
		t.Error("expected debug message visible in dev mode")
	}
	if !strings.Contains(output, "test info") {
		t.Error("expected info message visible in dev mode")
	}
}

func TestNewHandlerProdMode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, false))

	logger.Debug("hidden")
	logger.Info("prod test")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("expected debug message suppressed in prod mode")
	}
	if !strings.Contains(output, `"msg":"prod test"`) {
		t.Errorf("expected JSON output, got %q", output)
	}
}

func TestSetupLogFile(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	path := filepath.Join(t.TempDir(), "sn.log")
	Setup(false, path)
	slog.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file = %q", data)
	}
}

func TestWriterDefaultsToStderr(t *testing.T) {
	if Writer("") != os.Stderr {
		t.Error("expected stderr without a log file")
	}
}

func TestRequestLogger(t *testing.T) {
	buf := captureDefault(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := RequestLogger(inner)

	req := httptest.NewRequest("POST", "/api/decks/q3/comments/read", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	output := buf.String()
	if output == "" {
		t.Fatal("expected log output")
	}
	if !strings.Contains(output, "POST") {
		t.Error("expected method in log")
	}
	if !strings.Contains(output, "/api/decks/q3/comments/read") {
		t.Error("expected path in log")
	}
}

func TestRequestLoggerSkipsHealth(t *testing.T) {
	buf := captureDefault(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := RequestLogger(inner)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if buf.Len() > 0 {
		t.Error("expected no log for /health path")
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	buf := captureDefault(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	handler := RequestLogger(inner)

	req := httptest.NewRequest("POST", "/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !strings.Contains(buf.String(), "404") {
		t.Error("expected 404 status in log")
	}
}

// captureDefault points the default logger at a buffer for the test.
func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return &buf
}
