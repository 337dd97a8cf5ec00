package timeseries

import (
	"FlowSpectra/internal/engine/protocol"
	"FlowSpectra/internal/model"
	"testing"
)

func received() []model.FlowRecord {
	return []model.FlowRecord{
		{Timestamp: 1, Protocol: 6, Flags: protocol.FlagSYN, Length: 60},
		{Timestamp: 2, Protocol: 6, Flags: protocol.FlagSYN | protocol.FlagACK, Length: 60},
		{Timestamp: 2, Protocol: 17, Length: 200},
		{Timestamp: 3, Protocol: 6, Flags: protocol.FlagSYN, Length: 40},
		{Timestamp: 5, Protocol: 6, Flags: protocol.FlagACK, Length: 1500},
	}
}

func checkMonotonic(t *testing.T, s Series) {
	t.Helper()
	if len(s.Counts) != len(s.Timestamps) || len(s.Bytes) != len(s.Timestamps) {
		t.Fatalf("%s: misaligned series lengths", s.Label)
	}
	for i := 1; i < s.Len(); i++ {
		if s.Counts[i] < s.Counts[i-1] || s.Bytes[i] < s.Bytes[i-1] || s.Timestamps[i] < s.Timestamps[i-1] {
			t.Fatalf("%s: series decreases at %d", s.Label, i)
		}
	}
}

func TestAccumulate_All(t *testing.T) {
	s := Accumulate(AllLabel, received(), nil)
	checkMonotonic(t, s)

	count, bytes := s.Total()
	if count != 5 || bytes != 1860 {
		t.Errorf("expected totals 5/1860, got %d/%d", count, bytes)
	}
	// Sum of per-step deltas equals the total.
	var deltas uint64
	prev := uint64(0)
	for _, b := range s.Bytes {
		deltas += b - prev
		prev = b
	}
	if deltas != bytes {
		t.Errorf("byte deltas sum to %d, want %d", deltas, bytes)
	}
}

func TestAccumulate_Predicate(t *testing.T) {
	synOnly := func(r *model.FlowRecord) bool { return protocol.SynOnly(r.Flags) }
	s := Accumulate("SYN", received(), synOnly)
	checkMonotonic(t, s)

	if s.Len() != 2 {
		t.Fatalf("expected 2 SYN-only points, got %d", s.Len())
	}
	if s.Timestamps[0] != 1 || s.Timestamps[1] != 3 {
		t.Errorf("points not aligned to record timestamps: %v", s.Timestamps)
	}
	if count, bytes := s.Total(); count != 2 || bytes != 100 {
		t.Errorf("expected totals 2/100, got %d/%d", count, bytes)
	}
}

func TestAccumulate_NoMatch(t *testing.T) {
	none := func(*model.FlowRecord) bool { return false }
	s := Accumulate("none", received(), none)
	if !s.Empty() {
		t.Fatalf("expected an empty series")
	}
	if s.Timestamps == nil || s.Counts == nil || s.Bytes == nil {
		t.Errorf("empty series should carry empty, non-nil slices")
	}
	if count, bytes := s.Total(); count != 0 || bytes != 0 {
		t.Errorf("empty series totals should be 0, got %d/%d", count, bytes)
	}
}

func TestBreakdown(t *testing.T) {
	series := Breakdown(received())

	// RST, RST-ACK and ICMP have no matching records.
	want := []struct {
		label string
		count uint64
	}{
		{"All", 5}, {"SYN", 2}, {"ACK", 1}, {"SYN-ACK", 1}, {"TCP", 4}, {"UDP", 1},
	}
	if len(series) != len(want) {
		t.Fatalf("expected %d series, got %d", len(want), len(series))
	}
	for i, w := range want {
		checkMonotonic(t, series[i])
		if series[i].Label != w.label {
			t.Errorf("series %d: label %s, want %s", i, series[i].Label, w.label)
		}
		if count, _ := series[i].Total(); count != w.count {
			t.Errorf("series %s: total %d, want %d", w.label, count, w.count)
		}
	}

	if Breakdown(nil) != nil {
		t.Errorf("expected no series for no records")
	}
}
