package timeseries

import (
	"FlowSpectra/internal/engine/protocol"
	"FlowSpectra/internal/model"
)

// AllLabel names the series over every record.
const AllLabel = "All"

// Series is the running total of the records matching a predicate, aligned
// to each matching record's timestamp.
type Series struct {
	Label      string
	Timestamps []float64
	Counts     []uint64
	Bytes      []uint64
}

// Empty reports whether no record matched.
func (s Series) Empty() bool {
	return len(s.Timestamps) == 0
}

// Len returns the number of points.
func (s Series) Len() int {
	return len(s.Timestamps)
}

// Total returns the final count and byte sum, both 0 for an empty series.
func (s Series) Total() (count, bytes uint64) {
	if s.Empty() {
		return 0, 0
	}
	return s.Counts[len(s.Counts)-1], s.Bytes[len(s.Bytes)-1]
}

// Data converts the series into its report form.
func (s Series) Data() model.SeriesData {
	return model.SeriesData{Label: s.Label, Timestamps: s.Timestamps, Counts: s.Counts, Bytes: s.Bytes}
}

// Accumulate builds the cumulative series of the records matched by pred.
// A nil pred matches every record. records must already be time ordered.
func Accumulate(label string, records []model.FlowRecord, pred protocol.Predicate) Series {
	s := Series{
		Label:      label,
		Timestamps: []float64{},
		Counts:     []uint64{},
		Bytes:      []uint64{},
	}
	var count, bytes uint64
	for i := range records {
		r := &records[i]
		if pred != nil && !pred(r) {
			continue
		}
		count++
		bytes += uint64(r.Length)
		s.Timestamps = append(s.Timestamps, r.Timestamp)
		s.Counts = append(s.Counts, count)
		s.Bytes = append(s.Bytes, bytes)
	}
	return s
}

// Breakdown returns the "All" series followed by one series per category of
// protocol.Categories. Categories without a matching record are omitted.
func Breakdown(records []model.FlowRecord) []Series {
	all := Accumulate(AllLabel, records, nil)
	if all.Empty() {
		return nil
	}
	out := []Series{all}
	for _, c := range protocol.Categories() {
		if s := Accumulate(c.Label, records, c.Match); !s.Empty() {
			out = append(out, s)
		}
	}
	return out
}
