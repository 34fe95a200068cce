package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := DefaultConfig()
	cfg.Console = false
	cfg.File = true
	cfg.FilePath = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("artifacts loaded")
	logger.Debug("filtered out")
	_ = logger.Sync()

	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(payload), `"msg":"artifacts loaded"`) {
		t.Fatalf("expected JSON record, got %s", payload)
	}
	if strings.Contains(string(payload), "filtered out") {
		t.Fatal("expected debug record to be filtered at info level")
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "loud"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWithoutOutputs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Console = false
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("nowhere")
}
