package model

import "context"

// Writer defines a generic interface for handing finished results to an
// external collaborator (renderer, message bus, reporting store).
type Writer interface {
	// Write takes a payload and delivers it. The payload is one of *Bundle,
	// *Summary or *FeatureOverview; anything else is an error.
	Write(ctx context.Context, payload interface{}) error

	// Name identifies the writer in logs and metrics.
	Name() string

	// Close releases the writer's connections.
	Close() error
}
