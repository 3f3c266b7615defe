package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	log := New(WithoutConsole(), WithRotatingFile(path), WithLevel("debug"))

	log.Debug("substep budget")
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `"msg":"substep budget"`) {
		t.Fatalf("file sink should carry the message as JSON, got %q", line)
	}
	if !strings.Contains(line, `"level":"debug"`) {
		t.Fatalf("file sink should carry the level, got %q", line)
	}
}

func TestNewDropsRecordsBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	log := New(WithoutConsole(), WithRotatingFile(path), WithLevel("error"))

	log.Info("filtered")
	log.Error("kept")
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "filtered") {
		t.Fatal("info record should not pass an error-level sink")
	}
	if !strings.Contains(string(data), "kept") {
		t.Fatal("error record missing from the sink")
	}
}

func TestNewWithoutSinksIsNop(t *testing.T) {
	log := New(WithoutConsole())
	// Must be safe to use even with nothing to write to.
	log.Info("dropped")
	if log.Core().Enabled(zapcore.FatalLevel) {
		t.Fatal("sinkless logger should be a nop core")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
