package sink

import (
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS %s (
    RunTime             DateTime,
    RunID               String,
    Address             UInt32,
    Display             String,
    BytesReceived       UInt64,
    ReceivedConnections UInt64,
    FirstReceived       Float64,
    LastReceived        Float64,
    BytesSent           UInt64,
    SentConnections     UInt64,
    FirstSent           Float64,
    LastSent            Float64,
    Qualified           Bool,
    SynOnly             Nullable(UInt64),
    AckOnly             Nullable(UInt64),
    SynAck              Nullable(UInt64),
    RstOnly             Nullable(UInt64),
    RstAck              Nullable(UInt64),
    TCP                 Nullable(UInt64),
    ICMP                Nullable(UInt64),
    UDP                 Nullable(UInt64),
    ReceivedSources     Nullable(UInt64)
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(RunTime)
ORDER BY (RunID, Address);
`

func init() {
	factory.RegisterWriter("clickhouse", func(def config.WriterDef, log logger.Logger) (model.Writer, error) {
		return NewClickHouseWriter(def.ClickHouse, log)
	})
}

// ClickHouseWriter stores summary rows in ClickHouse. Bundles and feature
// overviews are not tabular and are ignored.
type ClickHouseWriter struct {
	conn  driver.Conn
	table string
	log   logger.Logger
	now   func() time.Time
}

// NewClickHouseWriter connects to ClickHouse and ensures the table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig, log logger.Logger) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), fmt.Sprintf(createTableStatement, cfg.Table)); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Info("connected to ClickHouse and ensured table exists")

	return &ClickHouseWriter{conn: conn, table: cfg.Table, log: log, now: time.Now}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func (w *ClickHouseWriter) Name() string {
	return "clickhouse"
}

// Write inserts the rows of a summary.
func (w *ClickHouseWriter) Write(ctx context.Context, payload interface{}) error {
	kind, err := kindOf("ClickHouseWriter", payload)
	if err != nil {
		return err
	}
	if kind != KindSummary {
		return nil
	}
	summary := payload.(*model.Summary)
	if len(summary.Rows) == 0 {
		return nil // Nothing to write
	}

	batch, err := w.conn.PrepareBatch(ctx, "INSERT INTO "+w.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	runTime := w.now()
	for _, row := range summary.Rows {
		if err := batch.Append(rowValues(runTime, summary.RunID, row)...); err != nil {
			return fmt.Errorf("failed to append row to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	w.log.Info(fmt.Sprintf("wrote %d summary rows to ClickHouse", len(summary.Rows)))
	return nil
}

// rowValues lays a summary row out in table column order. Category columns
// are NULL for addresses that were not analysed in detail.
func rowValues(runTime time.Time, runID string, row model.SummaryRow) []interface{} {
	values := []interface{}{
		runTime,
		runID,
		uint32(row.Address),
		row.Display,
		row.BytesReceived,
		row.ReceivedConnections,
		row.FirstReceived,
		row.LastReceived,
		row.BytesSent,
		row.SentConnections,
		row.FirstSent,
		row.LastSent,
		row.Qualified,
	}
	c := row.Categories
	if c == nil {
		for i := 0; i < 9; i++ {
			values = append(values, nil)
		}
		return values
	}
	return append(values,
		&c.SynOnly, &c.AckOnly, &c.SynAck, &c.RstOnly, &c.RstAck,
		&c.TCP, &c.ICMP, &c.UDP, &c.ReceivedSources,
	)
}

func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}
