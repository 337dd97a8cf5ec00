package report

import (
	"FlowSpectra/internal/engine/addressaggregator"
	"FlowSpectra/internal/engine/timeseries"
	"FlowSpectra/internal/model"
	"testing"
)

const (
	d1 model.Address = 0x0A000001 // 10.0.0.1
	d2 model.Address = 0x0A000002 // 10.0.0.2
)

func record(ts float64, src, dst model.Address, proto uint8, flags uint16, length uint32) model.FlowRecord {
	return model.FlowRecord{Protocol: proto, Timestamp: ts, Src: src, Dst: dst, SrcPort: 40000, DstPort: 80, TTL: 64, Length: length, Flags: flags}
}

// scenario builds 300 records: D1 receives 100 SYN-only, 50 SYN-ACK and 100
// UDP records from two sources, D2 receives 50 ACK-only records.
func scenario() []model.FlowRecord {
	var records []model.FlowRecord
	ts := 0.0
	next := func() float64 { ts++; return ts }
	srcA, srcB := model.Address(0xC0A80001), model.Address(0xC0A80002)
	for i := 0; i < 100; i++ {
		records = append(records, record(next(), srcA, d1, 6, 0x02, 60))
	}
	for i := 0; i < 50; i++ {
		records = append(records, record(next(), srcB, d1, 6, 0x12, 60))
	}
	for i := 0; i < 100; i++ {
		records = append(records, record(next(), srcB, d1, 17, 0, 100))
	}
	for i := 0; i < 50; i++ {
		records = append(records, record(next(), srcA, d2, 6, 0x10, 40))
	}
	return records
}

func TestGate_Boundary(t *testing.T) {
	gate := Gate{LowerBound: DefaultLowerBound}
	if gate.Qualifies(&model.AddressStats{ReceivedConnections: 200}) {
		t.Errorf("200 received connections should not qualify")
	}
	if !gate.Qualifies(&model.AddressStats{ReceivedConnections: 201}) {
		t.Errorf("201 received connections should qualify")
	}
}

func TestReporter_Scenario(t *testing.T) {
	records := scenario()
	res := addressaggregator.Aggregate(records, addressaggregator.Options{})
	reporter := NewReporter(Gate{LowerBound: DefaultLowerBound}, "run-1")

	var bundles []*model.Bundle
	for _, addr := range res.Addresses() {
		if b := reporter.Analyze(res.Stats[addr]); b != nil {
			bundles = append(bundles, b)
		}
	}
	if len(bundles) != 1 {
		t.Fatalf("Expected exactly one bundle, got %d", len(bundles))
	}

	b := bundles[0]
	if b.Address != d1 || b.Display != "10.0.0.1" || b.RunID != "run-1" {
		t.Errorf("Unexpected bundle identity: %v %s %s", b.Address, b.Display, b.RunID)
	}
	if b.Connections.Received != 250 || b.Connections.Sent != 0 {
		t.Errorf("Unexpected connection split: %+v", b.Connections)
	}
	if b.Bytes.Received != 100*60+50*60+100*100 {
		t.Errorf("Unexpected received bytes: %d", b.Bytes.Received)
	}
	if len(b.Scatter) != 250 {
		t.Errorf("Expected 250 scatter points, got %d", len(b.Scatter))
	}

	finals := make(map[string]uint64)
	for _, s := range b.TimeSeries {
		finals[s.Label] = s.Counts[len(s.Counts)-1]
	}
	if finals[timeseries.AllLabel] != 250 {
		t.Errorf("All series should end at 250, got %d", finals[timeseries.AllLabel])
	}
	if finals["SYN"] != 100 {
		t.Errorf("SYN series should end at 100, got %d", finals["SYN"])
	}
	if finals["SYN-ACK"] != 50 || finals["UDP"] != 100 || finals["TCP"] != 150 {
		t.Errorf("Unexpected series totals: %v", finals)
	}
	if _, ok := finals["ICMP"]; ok {
		t.Errorf("Empty ICMP series should be omitted")
	}

	if b.Categories.SynOnly != 100 || b.Categories.SynAck != 50 || b.Categories.UDP != 100 || b.Categories.ReceivedSources != 2 {
		t.Errorf("Unexpected category counts: %+v", b.Categories)
	}
	if res.Stats[d1].Categories == nil {
		t.Errorf("Analyze should record categories on the stats")
	}
	if res.Stats[d2].Categories != nil {
		t.Errorf("Non-qualifying address should have no categories")
	}

	if len(b.Sources) != 2 || b.Sources[0].Label != "192.168.0.1" || b.Sources[0].Connections != 100 ||
		b.Sources[1].Connections != 150 {
		t.Errorf("Unexpected sources: %+v", b.Sources)
	}
}

func TestReporter_Summarize(t *testing.T) {
	records := scenario()
	res := addressaggregator.Aggregate(records, addressaggregator.Options{})
	reporter := NewReporter(Gate{LowerBound: DefaultLowerBound}, "run-1")
	for _, addr := range res.Addresses() {
		reporter.Analyze(res.Stats[addr])
	}

	summary := reporter.Summarize(res.Stats, len(records))
	if summary.Records != 300 || summary.LowerBound != DefaultLowerBound {
		t.Errorf("Unexpected summary header: %+v", summary)
	}
	// Sources only send, so only the two destinations get a row.
	if len(summary.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(summary.Rows))
	}
	if summary.Rows[0].Address != d1 || !summary.Rows[0].Qualified || summary.Rows[0].Categories == nil {
		t.Errorf("Unexpected first row: %+v", summary.Rows[0])
	}
	if summary.Rows[1].Address != d2 || summary.Rows[1].Qualified || summary.Rows[1].ReceivedConnections != 50 {
		t.Errorf("Unexpected second row: %+v", summary.Rows[1])
	}
}

func TestReporter_NothingQualifies(t *testing.T) {
	records := scenario()[:200]
	res := addressaggregator.Aggregate(records, addressaggregator.Options{})
	reporter := NewReporter(Gate{LowerBound: DefaultLowerBound}, "")
	for _, addr := range res.Addresses() {
		if b := reporter.Analyze(res.Stats[addr]); b != nil {
			t.Errorf("Unexpected bundle for %s", addr)
		}
	}
	if rows := reporter.Summarize(res.Stats, len(records)).Rows; len(rows) != 1 || rows[0].Qualified {
		t.Errorf("Expected a single unqualified row, got %+v", rows)
	}
}

func TestReporter_Features(t *testing.T) {
	records := []model.FlowRecord{
		{Protocol: 6, Src: 1, Dst: 2, SrcPort: 10, DstPort: 20, TTL: 64, Length: 60, Fragment: 0, Flags: 0x02},
		{Protocol: 17, Src: 3, Dst: 4, SrcPort: 30, DstPort: 40, TTL: 128, Length: 90, Fragment: 8, Flags: 0},
	}
	overview := NewReporter(Gate{}, "run").Features(records)
	if len(overview.Pairs) != 5 {
		t.Fatalf("Expected 5 feature pairs, got %d", len(overview.Pairs))
	}
	for _, p := range overview.Pairs {
		if len(p.X) != 2 || len(p.Y) != 2 || len(p.Labels) != 2 {
			t.Errorf("%s: expected one point per record", p.Name)
		}
		if p.Labels[0] != 6 || p.Labels[1] != 17 {
			t.Errorf("%s: points should be labelled by protocol, got %v", p.Name, p.Labels)
		}
	}
	ttl := overview.Pairs[2]
	if ttl.X[1] != 128 || ttl.Y[1] != 90 {
		t.Errorf("Unexpected TTL/length pair: %+v", ttl)
	}
}
