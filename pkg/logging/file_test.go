package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestFileLogger(t *testing.T, format Format, level Level) (*FileLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "nested", "metadiff.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:   logPath,
		Format: format,
		Level:  level,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	logger, logPath := newTestFileLogger(t, FormatText, InfoLevel)
	defer logger.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestFileLogger_LevelFiltering(t *testing.T) {
	logger, logPath := newTestFileLogger(t, FormatText, WarnLevel)
	ctx := context.Background()

	logger.Debug(ctx, "cache miss", nil)
	logger.Info(ctx, "listing entries", nil)
	logger.Warn(ctx, "category list divergence", nil)
	logger.Error(ctx, "gateway failure", errors.New("boom"), nil)
	logger.Close()

	content := readLog(t, logPath)
	for _, filtered := range []string{"cache miss", "listing entries"} {
		if strings.Contains(content, filtered) {
			t.Errorf("%q should be filtered at WARN level", filtered)
		}
	}
	for _, kept := range []string{"category list divergence", "gateway failure", `error="boom"`} {
		if !strings.Contains(content, kept) {
			t.Errorf("%q should be present", kept)
		}
	}
}

func TestFileLogger_TextFormatSortsFields(t *testing.T) {
	logger, logPath := newTestFileLogger(t, FormatText, InfoLevel)
	logger.Info(context.Background(), "compared", Fields{"verdict": "EQUAL", "category": "ApexClass"})
	logger.Close()

	content := readLog(t, logPath)
	if !strings.Contains(content, "[INFO] compared category=ApexClass verdict=EQUAL") {
		t.Errorf("unexpected text line: %q", content)
	}
}

func TestFileLogger_JSONFormat(t *testing.T) {
	logger, logPath := newTestFileLogger(t, FormatJSON, InfoLevel)
	base := logger.WithFields(Fields{"component": "session"})
	base.Info(context.Background(), "cache hit", Fields{"category": "ApexClass"})
	logger.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logPath)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	checks := map[string]interface{}{
		"level":     "INFO",
		"message":   "cache hit",
		"component": "session",
		"category":  "ApexClass",
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s = %v, want %v", k, entry[k], want)
		}
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp should be present")
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "metadiff.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:       logPath,
		Format:     FormatText,
		Level:      InfoLevel,
		MaxSize:    100,
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	for i := 0; i < 20; i++ {
		logger.Info(context.Background(), "a message long enough to push the log file over its size limit", nil)
	}
	logger.Close()

	if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
		t.Error("Backup file .1 should exist after rotation")
	}
	if _, err := os.Stat(logPath + ".3"); err == nil {
		t.Error("Backups beyond MaxBackups should be removed")
	}
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	logger, logPath := newTestFileLogger(t, FormatText, InfoLevel)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			child := logger.WithFields(Fields{"worker": id})
			for j := 0; j < 100; j++ {
				child.Info(ctx, "prefetch", Fields{"iteration": j})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	lines := strings.Split(strings.TrimSpace(readLog(t, logPath)), "\n")
	if len(lines) != 1000 {
		t.Errorf("Expected 1000 log lines, got %d", len(lines))
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, FormatText, DebugLevel)
	logger.Debug(context.Background(), "sf org list", Fields{"duration_ms": 12})

	if !strings.Contains(buf.String(), "[DEBUG] sf org list duration_ms=12") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNullLogger(t *testing.T) {
	var logger Logger = NewNullLogger()
	ctx := context.Background()

	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, nil)

	if logger.WithFields(Fields{"key": "value"}) == nil {
		t.Error("WithFields should return a logger")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if OrNull(nil) == nil {
		t.Error("OrNull(nil) should return a NullLogger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}

	if LevelString(Level(99)) != "UNKNOWN" {
		t.Error("unknown level should render as UNKNOWN")
	}
	if ParseFormat("json") != FormatJSON || ParseFormat("xml") != FormatText {
		t.Error("ParseFormat mapping is wrong")
	}
}
