package report

import (
	"FlowSpectra/internal/engine/protocol"
	"FlowSpectra/internal/engine/timeseries"
	"FlowSpectra/internal/model"
	"maps"
	"slices"
)

// DefaultLowerBound is the received-connection count an address must exceed
// to be analysed in detail.
const DefaultLowerBound = 200

// Gate decides which destinations get a detailed analysis.
type Gate struct {
	LowerBound uint64
}

// Qualifies reports whether s received strictly more connections than the
// lower bound.
func (g Gate) Qualifies(s *model.AddressStats) bool {
	return s.ReceivedConnections > g.LowerBound
}

// Reporter turns aggregated statistics into report payloads.
type Reporter struct {
	gate  Gate
	runID string
}

// NewReporter creates a reporter stamping its payloads with runID.
func NewReporter(gate Gate, runID string) *Reporter {
	return &Reporter{gate: gate, runID: runID}
}

// Gate returns the reporter's gate.
func (r *Reporter) Gate() Gate {
	return r.gate
}

// Analyze builds the detailed bundle of a destination and records its
// category counts on s. It returns nil, leaving s untouched, when s does not
// pass the gate.
func (r *Reporter) Analyze(s *model.AddressStats) *model.Bundle {
	if !r.gate.Qualifies(s) {
		return nil
	}

	counts := protocol.Count(s.Received)
	s.Categories = &counts

	bundle := &model.Bundle{
		RunID:       r.runID,
		Address:     s.Address,
		Display:     s.Address.String(),
		Scatter:     make([]model.ScatterPoint, 0, len(s.Received)),
		Connections: model.Split{Received: s.ReceivedConnections, Sent: s.SentConnections},
		Bytes:       model.Split{Received: s.BytesReceived, Sent: s.BytesSent},
		Sources:     sourceBreakdown(s.Received),
		Categories:  counts,
	}
	for _, rec := range s.Received {
		bundle.Scatter = append(bundle.Scatter, model.ScatterPoint{
			DstPort:   rec.DstPort,
			Src:       rec.Src,
			Timestamp: rec.Timestamp,
			Protocol:  rec.Protocol,
		})
	}
	for _, series := range timeseries.Breakdown(s.Received) {
		bundle.TimeSeries = append(bundle.TimeSeries, series.Data())
	}
	return bundle
}

// sourceBreakdown returns the connections and bytes of every distinct
// source, ordered by source address.
func sourceBreakdown(records []model.FlowRecord) []model.SourceSummary {
	bySrc := make(map[model.Address]*model.SourceSummary)
	for _, rec := range records {
		sum, ok := bySrc[rec.Src]
		if !ok {
			sum = &model.SourceSummary{Src: rec.Src, Label: rec.Src.String()}
			bySrc[rec.Src] = sum
		}
		sum.Connections++
		sum.Bytes += uint64(rec.Length)
	}

	out := make([]model.SourceSummary, 0, len(bySrc))
	for _, src := range slices.Sorted(maps.Keys(bySrc)) {
		out = append(out, *bySrc[src])
	}
	return out
}

// Summarize builds the flat statistics table: one row per address that
// received at least one connection, in address order. It must run after
// Analyze so that category counts are included.
func (r *Reporter) Summarize(stats map[model.Address]*model.AddressStats, records int) *model.Summary {
	summary := &model.Summary{
		RunID:      r.runID,
		Records:    records,
		LowerBound: r.gate.LowerBound,
		Rows:       []model.SummaryRow{},
	}
	for _, addr := range slices.Sorted(maps.Keys(stats)) {
		s := stats[addr]
		if s.ReceivedConnections == 0 {
			continue
		}
		summary.Rows = append(summary.Rows, model.SummaryRow{
			Address:             s.Address,
			Display:             s.Address.String(),
			BytesReceived:       s.BytesReceived,
			ReceivedConnections: s.ReceivedConnections,
			FirstReceived:       s.FirstReceived,
			LastReceived:        s.LastReceived,
			BytesSent:           s.BytesSent,
			SentConnections:     s.SentConnections,
			FirstSent:           s.FirstSent,
			LastSent:            s.LastSent,
			Qualified:           r.gate.Qualifies(s),
			Categories:          s.Categories,
		})
	}
	return summary
}
