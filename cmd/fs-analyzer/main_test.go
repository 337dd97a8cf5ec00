package main

import (
	"FlowSpectra/internal/logger"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestCloseManager_LogsError(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.NewLogrusLogger(&buf, "info", "json")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	closeManager(closerFunc(func() error { return errors.New("failed to close writer redis") }), log)
	if !strings.Contains(buf.String(), "failed to close writer redis") {
		t.Errorf("Expected the close error to be logged, got %q", buf.String())
	}

	buf.Reset()
	closeManager(closerFunc(func() error { return nil }), log)
	if buf.Len() != 0 {
		t.Errorf("Expected nothing logged on a clean close, got %q", buf.String())
	}
}

func TestLoadConfig_MissingFileFallsBack(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for a missing file, got %v", err)
	}
	if cfg.Analysis.LowerBound != 200 {
		t.Errorf("Expected the default lower bound, got %d", cfg.Analysis.LowerBound)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("input: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := loadConfig(bad); err == nil {
		t.Error("Expected an error for an invalid file")
	}
}
