package logger

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/wasm-loader/errors"
)

func TestConfig_New(t *testing.T) {
	var buf bytes.Buffer
	log, err := Config{Format: "json", Level: zapcore.WarnLevel}.New(&buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	log.Info("dropped")
	log.Warn("kept", zap.String("path", "/bin/sample.wasm"), zap.Duration("took", 1500*time.Millisecond))
	log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1:\n%s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "kept" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["path"] != "/bin/sample.wasm" {
		t.Errorf("path = %v", entry["path"])
	}
	if entry["took"] != "1.5s" {
		t.Errorf("took = %v, want 1.5s", entry["took"])
	}
	ts, _ := entry["ts"].(string)
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("ts %q is not RFC3339: %v", ts, err)
	}
}

func TestConfig_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewConfig().New(&buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	log.Debug("hidden")
	log.Info("compiled module", zap.Int("bytes", 42))
	log.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug entry written at info level:\n%s", out)
	}
	if !strings.Contains(out, "compiled module") || !strings.Contains(out, "42") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := NewConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	_, err := (Config{Format: "xml"}).New(&bytes.Buffer{})
	if !stderrors.Is(err, errors.InvalidInput(errors.PhaseConfig, "")) {
		t.Fatalf("err = %v, want invalid config input", err)
	}
}
