package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kdimtricp/signlang/internal/logging"
)

func TestNewJSONLoggerWritesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "signlang.log")
	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("json message", zap.String("k", "v"))
	logger.Sync() //nolint:errcheck

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", content, err)
	}
	if entry["msg"] != "json message" || entry["k"] != "v" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "signlang.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	logger.Sync() //nolint:errcheck

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "hidden") || !strings.Contains(string(content), "shown") {
		t.Fatalf("expected info level filtering, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := logging.WithRequestID(context.Background(), "req-xyz")
	ctx = logging.WithSessionID(ctx, "session-1")

	core, observed := observer.New(zap.InfoLevel)
	logging.WithContext(ctx, zap.New(core)).Info("contextual log")

	records := observed.All()
	if len(records) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(records))
	}
	fields := records[0].ContextMap()
	if fields[logging.FieldRequestID] != "req-xyz" {
		t.Fatalf("request id = %v", fields[logging.FieldRequestID])
	}
	if fields[logging.FieldSessionID] != "session-1" {
		t.Fatalf("session = %v", fields[logging.FieldSessionID])
	}
}

func TestWithContextWithoutFields(t *testing.T) {
	core, observed := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	logging.WithContext(context.Background(), logger).Info("plain")

	if got := observed.All()[0].Context; len(got) != 0 {
		t.Fatalf("expected no fields, got %v", got)
	}
}
