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
	"time"
)

func TestWeekKey(t *testing.T) {
	got := weekKey(time.Date(2025, 10, 7, 12, 0, 0, 0, time.UTC))
	if got != "2025-W41" {
		t.Errorf("Expected week key 2025-W41, got %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRotatingLoggerWritesWeeklyFile(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 1, 0)
	defer rl.Close()

	if _, err := rl.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	path := filepath.Join(dir, logFilePrefix+weekKey(time.Now())+".log")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file %s: %v", path, err)
	}
	if string(content) != "hello\n" {
		t.Errorf("Unexpected content %q", content)
	}
}

func TestRotatingLoggerSplitsBySize(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 1, 10)
	defer rl.Close()

	for range 3 {
		if _, err := rl.Write([]byte("12345678\n")); err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
	}

	week := weekKey(time.Now())
	for _, name := range []string{
		logFilePrefix + week + ".log",
		logFilePrefix + week + "_01.log",
		logFilePrefix + week + "_02.log",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 1, 0)
	defer rl.Close()

	old := filepath.Join(dir, logFilePrefix+"2020-W01.log")
	if err := os.WriteFile(old, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(dir, "other.log")
	if err := os.WriteFile(unrelated, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = os.Chtimes(unrelated, past, past)

	deleted, err := rl.cleanupOldLogs()
	if err != nil {
		t.Fatalf("cleanupOldLogs failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted file, got %d", deleted)
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Errorf("Unrelated file should be kept: %v", err)
	}
}

func TestNewLoggerWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, closer := NewLogger(Options{Dir: dir, Level: "debug", RetentionWeeks: 1, Console: &console})
	logger.Debug("scan processed", "title", "Ibuprofen 200mg")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(console.String(), "scan processed") {
		t.Errorf("Console output missing message: %s", console.String())
	}

	content, err := os.ReadFile(filepath.Join(dir, logFilePrefix+weekKey(time.Now())+".log"))
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	if !strings.Contains(string(content), `"title":"Ibuprofen 200mg"`) {
		t.Errorf("File output is not JSON with attrs: %s", content)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/medications/upload?x=1", nil)
	req.Header.Set("X-Profile-ID", "5b7c0f44-0d3e-4b47-a1a6-5d1f0b7d9e21")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{`"status_code":201`, `"bytes_written":2`, `"query":"x=1"`, `"profile_id"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in log line: %s", want, out)
		}
	}
}

func TestLoggingMiddlewareSkipsHealth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if buf.Len() != 0 {
		t.Errorf("Expected no log output for /health, got %s", buf.String())
	}
}
