package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with default output", func(t *testing.T) {
		logger := New(Config{Level: InfoLevel})
		if logger == nil {
			t.Fatal("New returned nil")
		}
	})

	t.Run("with custom output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := New(Config{Level: InfoLevel, Output: buf})
		if logger.writer != buf {
			t.Error("Logger should use provided output writer")
		}
	})
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		configLvl Level
		logLvl    Level
		shouldLog bool
	}{
		{"debug logs debug", DebugLevel, DebugLevel, true},
		{"debug logs info", DebugLevel, InfoLevel, true},
		{"info skips debug", InfoLevel, DebugLevel, false},
		{"warn skips info", WarnLevel, InfoLevel, false},
		{"warn logs error", WarnLevel, ErrorLevel, true},
		{"error skips warn", ErrorLevel, WarnLevel, false},
		{"error logs error", ErrorLevel, ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(Config{Level: tt.configLvl, Output: buf})

			logger.log(tt.logLvl, "test message", nil)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.shouldLog {
				t.Errorf("shouldLog = %v, but hasOutput = %v", tt.shouldLog, hasOutput)
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: InfoLevel, Format: JSONFormat, Output: buf})

	logger.Info("test message", map[string]interface{}{
		"count": 42,
		"name":  "test",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	if entry["level"] != "info" {
		t.Errorf("level = %v, want 'info'", entry["level"])
	}
	if entry["message"] != "test message" {
		t.Errorf("message = %v, want 'test message'", entry["message"])
	}

	fields, ok := entry["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("fields should be a map")
	}
	if fields["count"] != float64(42) {
		t.Errorf("fields.count = %v, want 42", fields["count"])
	}
}

func TestHumanFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: InfoLevel, Format: HumanFormat, Output: buf})

	logger.Info("human readable", map[string]interface{}{"key": "value"})

	output := buf.String()
	if !strings.Contains(output, "[info]") {
		t.Errorf("output should contain '[info]', got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("output should contain field, got: %s", output)
	}
}

func TestHumanFormatNoFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: InfoLevel, Format: HumanFormat, Output: buf})

	logger.Info("no fields", nil)

	if strings.Contains(buf.String(), "|") {
		t.Errorf("output without fields should not contain '|', got: %s", buf.String())
	}
}

func TestWithMergesFields(t *testing.T) {
	buf := &bytes.Buffer{}
	base := New(Config{Level: InfoLevel, Format: JSONFormat, Output: buf})
	scoped := base.With(map[string]interface{}{"component": "breaker"})

	scoped.Info("transitioned", map[string]interface{}{"backend": "cache"})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	fields := entry["fields"].(map[string]interface{})
	if fields["component"] != "breaker" {
		t.Errorf("component field not carried by With, got %v", fields["component"])
	}
	if fields["backend"] != "cache" {
		t.Errorf("backend field missing, got %v", fields["backend"])
	}
}

func TestShouldLog(t *testing.T) {
	logger := New(Config{Level: WarnLevel})

	if logger.shouldLog(InfoLevel) {
		t.Error("WarnLevel logger should not log InfoLevel")
	}
	if !logger.shouldLog(ErrorLevel) {
		t.Error("WarnLevel logger should log ErrorLevel")
	}
}
