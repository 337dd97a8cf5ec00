package factory

import (
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/model"
	"fmt"
	"sort"
)

// WriterFactory creates a writer from its configuration block.
type WriterFactory func(def config.WriterDef, log logger.Logger) (model.Writer, error)

// registry holds the mapping of writer types to their factory functions.
var registry = make(map[string]WriterFactory)

// RegisterWriter registers a new writer type with its factory function.
func RegisterWriter(name string, factory WriterFactory) {
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("writer type '%s' already registered", name))
	}
	registry[name] = factory
}

// Registered returns the registered writer types in name order.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateWriters creates every enabled writer of defs. A writer of an unknown
// type, or one that fails to connect, is skipped with a warning so that the
// remaining writers still receive the results.
func CreateWriters(defs []config.WriterDef, log logger.Logger) []model.Writer {
	writers := make([]model.Writer, 0, len(defs))
	for _, def := range defs {
		if !def.Enabled {
			continue
		}
		wlog := log.WithFields(map[string]any{"writer": def.Type})

		factory, ok := registry[def.Type]
		if !ok {
			wlog.Warn("unknown writer type in config, skipping")
			continue
		}
		writer, err := factory(def, wlog)
		if err != nil {
			wlog.Warn(fmt.Sprintf("failed to create writer, skipping: %v", err))
			continue
		}
		wlog.Info("writer created")
		writers = append(writers, writer)
	}
	return writers
}
