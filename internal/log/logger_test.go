package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentApp, Output: &buf})

	logger.WithComponent(ComponentStorage).Info("opened", "path", "/tmp/x.db")
	logger.Debug("debug line")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentStorage || lines[0]["path"] != "/tmp/x.db" {
		t.Errorf("unexpected first line: %v", lines[0])
	}
	if lines[1][FieldComponent] != ComponentApp {
		t.Errorf("unexpected second line: %v", lines[1])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentApp, Output: &buf}))
	ctx := context.Background()

	sl.LogTransactionRecorded(ctx, "alice", "t1", "expense", "sms", "Food", 4550)
	sl.LogReconciled(ctx, "t1", "b1", 20000, 25000)
	sl.LogError(ctx, "publish failed", errors.New("boom"), ComponentAMQP, OpPublish, nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0][FieldComponent] != ComponentTransaction || lines[0][FieldAmountCents] != float64(4550) {
		t.Errorf("unexpected transaction line: %v", lines[0])
	}
	if lines[1]["level"] != "WARN" || lines[1][FieldBudgetID] != "b1" {
		t.Errorf("overspent budget should log at warn: %v", lines[1])
	}
	if lines[2][FieldError] != "boom" || lines[2][FieldComponent] != ComponentAMQP {
		t.Errorf("unexpected error line: %v", lines[2])
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext should never return nil")
	}
	logger := New(DefaultConfig())
	if FromContext(NewContext(context.Background(), logger)) != logger {
		t.Fatal("FromContext should return the stored logger")
	}
}
