package sink

import (
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func init() {
	factory.RegisterWriter("nats", func(def config.WriterDef, log logger.Logger) (model.Writer, error) {
		return NewNATSWriter(def.NATS, log)
	})
}

// publisher is the part of *nats.Conn the writer uses.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSWriter publishes payloads as protobuf Structs on
// <subject>.summary, <subject>.bundle and <subject>.features.
type NATSWriter struct {
	nc      *nats.Conn
	pub     publisher
	subject string
	log     logger.Logger
}

// NewNATSWriter connects to the NATS server of cfg.
func NewNATSWriter(cfg config.NATSConfig, log logger.Logger) (*NATSWriter, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	log.Info(fmt.Sprintf("connected to NATS server at %s", cfg.URL))
	return &NATSWriter{nc: nc, pub: nc, subject: cfg.Subject, log: log}, nil
}

func (w *NATSWriter) Name() string {
	return "nats"
}

// Write serializes a payload to protobuf and publishes it.
func (w *NATSWriter) Write(ctx context.Context, payload interface{}) error {
	kind, err := kindOf("NATSWriter", payload)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := toStruct(payload)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal protobuf: %w", err)
	}

	subject := w.subject + "." + kind
	if err := w.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to '%s': %w", subject, err)
	}
	return nil
}

// toStruct converts a payload to a structpb.Struct through its JSON form so
// that field names match the JSON encoding used by the other writers.
func toStruct(payload interface{}) (*structpb.Struct, error) {
	data, err := encodeJSON(payload)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build protobuf struct: %w", err)
	}
	return msg, nil
}

// Close drains and closes the NATS connection.
func (w *NATSWriter) Close() error {
	if w.nc == nil {
		return nil
	}
	if err := w.nc.Drain(); err != nil {
		return fmt.Errorf("failed to drain nats connection: %w", err)
	}
	w.log.Info("NATS connection drained and closed.")
	return nil
}
