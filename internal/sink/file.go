package sink

import (
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

func init() {
	factory.RegisterWriter("file", func(def config.WriterDef, log logger.Logger) (model.Writer, error) {
		return NewFileWriter(def.File.RootPath, log), nil
	})
}

// FileWriter writes the payloads of a run as indented JSON files under a
// timestamped directory:
//
//	<root>/<timestamp>/summary.json
//	<root>/<timestamp>/features.json
//	<root>/<timestamp>/bundles/<address>.json
type FileWriter struct {
	rootPath string
	log      logger.Logger
	now      func() time.Time

	// Only the directory of the most recent run is remembered.
	mu     sync.Mutex
	runID  string
	runDir string
	seen   bool
}

// NewFileWriter creates a new writer rooted at rootPath.
func NewFileWriter(rootPath string, log logger.Logger) *FileWriter {
	return &FileWriter{
		rootPath: rootPath,
		log:      log,
		now:      time.Now,
	}
}

func (w *FileWriter) Name() string {
	return "file"
}

// dirFor returns the directory of a run, fixing its timestamp the first
// time the run is seen. A new run ID replaces the previous one.
func (w *FileWriter) dirFor(runID string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.seen || w.runID != runID {
		name := w.now().Format("2006-01-02_15-04-05")
		if runID != "" {
			name += "_" + runID
		}
		w.runID = runID
		w.runDir = filepath.Join(w.rootPath, name)
		w.seen = true
	}
	return w.runDir
}

// Write stores a single payload.
func (w *FileWriter) Write(ctx context.Context, payload interface{}) error {
	kind, err := kindOf("FileWriter", payload)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := w.dirFor(runIDOf(payload))
	var path string
	switch kind {
	case KindBundle:
		path = filepath.Join(dir, "bundles", payload.(*model.Bundle).Display+".json")
	default:
		path = filepath.Join(dir, kind+".json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write '%s': %w", path, err)
	}

	w.log.Debug(fmt.Sprintf("wrote %s to %s", kind, path))
	return nil
}

// Dir returns the directory runID was written to, if it is the most
// recent run.
func (w *FileWriter) Dir(runID string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.seen || w.runID != runID {
		return "", false
	}
	return w.runDir, true
}

func (w *FileWriter) Close() error {
	return nil
}
