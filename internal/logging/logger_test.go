package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cddb/internal/config"
	"cddb/internal/logging"
)

func tempLogPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "out.log")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Dir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("debug message", logging.String(logging.FieldDiscID, "fe116410"))

	content := readLog(t, filepath.Join(cfg.Logging.Dir, logging.LogFileName))
	line := strings.TrimSpace(content)
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", line, err)
	}
	if record["msg"] != "debug message" || record[logging.FieldDiscID] != "fe116410" {
		t.Fatalf("unexpected record %v", record)
	}
	if record["level"] != "debug" {
		t.Fatalf("expected lower-case level, got %v", record["level"])
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerOrdersFields(t *testing.T) {
	logPath := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "cddb")
	logger.Info("query matched",
		logging.Int("matches", 2),
		logging.String(logging.FieldDiscID, "fe116410"),
		logging.String(logging.FieldSessionID, "abc"),
	)

	content := readLog(t, logPath)
	if !strings.Contains(content, "INFO cddb: query matched") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	session := strings.Index(content, "session_id=abc")
	disc := strings.Index(content, "disc_id=fe116410")
	matches := strings.Index(content, "matches=2")
	if session < 0 || disc < 0 || matches < 0 || !(session < disc && disc < matches) {
		t.Fatalf("unexpected field order in %q", content)
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should not repeat as a field: %q", content)
	}
}

func TestConsoleLoggerOrdersInheritedLeadingFields(t *testing.T) {
	logPath := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger = logger.With(logging.String(logging.FieldCategory, "rock"))
	logger = logger.With(logging.String(logging.FieldDiscID, "fe116410"))
	logger.Info("record read", logging.String(logging.FieldSessionID, "abc"))

	content := readLog(t, logPath)
	session := strings.Index(content, "session_id=abc")
	disc := strings.Index(content, "disc_id=fe116410")
	category := strings.Index(content, "category=rock")
	if session < 0 || disc < 0 || category < 0 || !(session < disc && disc < category) {
		t.Fatalf("unexpected field order in %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "cache write failed", "cache_write_failed",
		logging.String(logging.FieldImpact, "record fetched but not cached"),
		logging.Error(errors.New("disk full")),
	)

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "cache_write_failed" {
		t.Fatalf("event_type missing: %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatalf("error_hint default missing: %v", record)
	}
	if record[logging.FieldImpact] != "record fetched but not cached" {
		t.Fatalf("explicit impact overwritten: %v", record)
	}
}

func TestWithContextAddsSessionID(t *testing.T) {
	logPath := tempLogPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithSessionID(context.Background(), "session-1")
	logging.WithContext(ctx, logger).Info("connected")

	if content := readLog(t, logPath); !strings.Contains(content, "session_id=session-1") {
		t.Fatalf("expected session id in %q", content)
	}
	if _, ok := logging.SessionIDFromContext(context.Background()); ok {
		t.Fatal("empty context should not carry a session id")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.NewComponentLogger(nil, "x").Info("ignored")
}
