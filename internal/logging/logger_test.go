package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level LogLevel) *Logger {
	return NewLogger(&Config{
		Level:   level,
		Format:  "text",
		Output:  buf,
		Sync:    true,
		NoColor: true,
	})
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{
			name:   "default config",
			config: nil,
		},
		{
			name: "json format",
			config: &Config{
				Level:  LevelInfo,
				Format: "json",
				Output: &bytes.Buffer{},
				Sync:   true,
			},
		},
		{
			name: "async text format",
			config: &Config{
				Level:  LevelDebug,
				Format: "text",
				Output: &bytes.Buffer{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Fatal("NewLogger() returned nil")
			}
			if err := logger.Close(); err != nil {
				t.Errorf("Close() = %v", err)
			}
		})
	}
}

func TestAsyncLoggerFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelInfo, Format: "json", Output: &buf})
	logger.Info("queued message", "tag", 3)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !strings.Contains(buf.String(), "queued message") {
		t.Errorf("expected message after Close, got: %s", buf.String())
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelDebug)

	hostLogger := logger.WithHost(42)
	hostLogger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "host=42") {
		t.Errorf("Expected host=42 in output, got: %s", output)
	}

	buf.Reset()
	tagLogger := hostLogger.WithTag(7, "READ(10)")
	tagLogger.Info("tag message")

	output = buf.String()
	if !strings.Contains(output, "host=42") {
		t.Errorf("Expected host=42 in tag logger output, got: %s", output)
	}
	if !strings.Contains(output, "tag=7") {
		t.Errorf("Expected tag=7 in output, got: %s", output)
	}
	if !strings.Contains(output, "op=READ(10)") {
		t.Errorf("Expected op=READ(10) in output, got: %s", output)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelDebug)

	logger.WithError(errors.New("test error")).Error("operation failed")

	if !strings.Contains(buf.String(), "test error") {
		t.Errorf("Expected 'test error' in output, got: %s", buf.String())
	}
}

func TestCommandLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelDebug)

	logger.CommandTimeout(5, 31000, 30000)
	output := buf.String()
	if !strings.Contains(output, "command timed out") {
		t.Errorf("Expected timeout message, got: %s", output)
	}
	if !strings.Contains(output, "elapsed_ms=31000") {
		t.Errorf("Expected elapsed_ms=31000, got: %s", output)
	}

	buf.Reset()
	logger.CommandRetry(5, 1, 5)
	output = buf.String()
	if !strings.Contains(output, "retrying command") || !strings.Contains(output, "retries=1") {
		t.Errorf("Expected retry message, got: %s", output)
	}

	buf.Reset()
	logger.CommandFailed(5, 0x30000, errors.New("timed out"))
	output = buf.String()
	if !strings.Contains(output, "command failed") {
		t.Errorf("Expected failure message, got: %s", output)
	}
	if !strings.Contains(output, "result=0x30000") {
		t.Errorf("Expected result=0x30000, got: %s", output)
	}
	if !strings.Contains(output, "timed out") {
		t.Errorf("Expected error text, got: %s", output)
	}

	buf.Reset()
	logger.EHStart(2, 1)
	logger.EHDone(1, 1)
	output = buf.String()
	if !strings.Contains(output, "error handler starting") || !strings.Contains(output, "error handler finished") {
		t.Errorf("Expected error handler messages, got: %s", output)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, LevelWarn)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warning")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("Expected debug/info to be filtered, got: %s", output)
	}
	if !strings.Contains(output, "visible warning") {
		t.Errorf("Expected warning in output, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		err  bool
	}{
		{"", LevelInfo, false},
		{"debug", LevelDebug, false},
		{"trace", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"fatal", LevelError, false},
		{"loud", LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(newTestLogger(&buf, LevelDebug))
	defer SetDefault(prev)

	Debug("debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("Expected debug message, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Expected key=value, got: %s", output)
	}

	buf.Reset()
	Info("info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Errorf("Expected info message, got: %s", buf.String())
	}

	buf.Reset()
	Warn("warning message")
	if !strings.Contains(buf.String(), "warning message") {
		t.Errorf("Expected warning message, got: %s", buf.String())
	}

	buf.Reset()
	Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("Expected error message, got: %s", buf.String())
	}
}
