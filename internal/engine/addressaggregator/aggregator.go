package addressaggregator

import (
	"FlowSpectra/internal/model"
	"cmp"
	"maps"
	"slices"
)

// Options controls a single aggregation.
type Options struct {
	// Filter restricts the result to one address when set.
	Filter *model.Address
	// CollectDiagnostics enables the per-destination record counts.
	CollectDiagnostics bool
}

func (o Options) matches(addr model.Address) bool {
	return o.Filter == nil || *o.Filter == addr
}

// Diagnostics describes how received records spread over destinations.
type Diagnostics struct {
	PerDestination map[model.Address]int
	Destinations   int
	MinRecords     int
	MaxRecords     int
	MeanRecords    float64
}

func (d *Diagnostics) observe(addr model.Address, n int) {
	if d.Destinations == 0 || n < d.MinRecords {
		d.MinRecords = n
	}
	if n > d.MaxRecords {
		d.MaxRecords = n
	}
	d.PerDestination[addr] = n
	d.Destinations++
}

func (d *Diagnostics) finish() {
	if d.Destinations == 0 {
		return
	}
	total := 0
	for _, n := range d.PerDestination {
		total += n
	}
	d.MeanRecords = float64(total) / float64(d.Destinations)
}

// Result is the outcome of an aggregation. Diagnostics is nil unless it was
// requested.
type Result struct {
	Stats       map[model.Address]*model.AddressStats
	Diagnostics *Diagnostics
}

// Addresses returns the aggregated addresses in ascending order.
func (r *Result) Addresses() []model.Address {
	return slices.Sorted(maps.Keys(r.Stats))
}

// entry returns the stats of addr, creating them on first sight.
func (r *Result) entry(addr model.Address) *model.AddressStats {
	s, ok := r.Stats[addr]
	if !ok {
		s = &model.AddressStats{Address: addr}
		r.Stats[addr] = s
	}
	return s
}

// Aggregate builds the per-address statistics of records. The source pass
// runs first and fills the sent side; the destination pass then fills the
// received side, merging into entries the source pass created without
// touching their sent fields. records itself is left in its original order.
func Aggregate(records []model.FlowRecord, opts Options) *Result {
	res := &Result{Stats: make(map[model.Address]*model.AddressStats)}

	for _, g := range groupBy(records, bySrc) {
		if !opts.matches(g.key) {
			continue
		}
		s := res.entry(g.key)
		s.Sent = g.records
		s.SentConnections = uint64(len(g.records))
		s.BytesSent = sumBytes(g.records)
		s.FirstSent, s.LastSent = span(g.records)
	}

	var diag *Diagnostics
	if opts.CollectDiagnostics {
		diag = &Diagnostics{PerDestination: make(map[model.Address]int)}
	}
	for _, g := range groupBy(records, byDst) {
		if !opts.matches(g.key) {
			continue
		}
		s := res.entry(g.key)
		s.Received = g.records
		s.ReceivedConnections = uint64(len(g.records))
		s.BytesReceived = sumBytes(g.records)
		s.FirstReceived, s.LastReceived = span(g.records)
		if diag != nil {
			diag.observe(g.key, len(g.records))
		}
	}
	if diag != nil {
		diag.finish()
		res.Diagnostics = diag
	}

	return res
}

func bySrc(r *model.FlowRecord) model.Address { return r.Src }
func byDst(r *model.FlowRecord) model.Address { return r.Dst }

// group is a contiguous run of records sharing the same key.
type group struct {
	key     model.Address
	records []model.FlowRecord
}

// groupBy stable-sorts a copy of records by (key, timestamp) and splits it
// into runs of equal key, in ascending key order.
func groupBy(records []model.FlowRecord, key func(*model.FlowRecord) model.Address) []group {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.FlowRecord) int {
		if c := cmp.Compare(key(&a), key(&b)); c != 0 {
			return c
		}
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})

	var groups []group
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && key(&sorted[i]) == key(&sorted[start]) {
			continue
		}
		groups = append(groups, group{key: key(&sorted[start]), records: sorted[start:i:i]})
		start = i
	}
	return groups
}

func sumBytes(records []model.FlowRecord) uint64 {
	var total uint64
	for i := range records {
		total += uint64(records[i].Length)
	}
	return total
}

// span returns the earliest and latest timestamp of time-ordered records.
func span(records []model.FlowRecord) (first, last float64) {
	if len(records) == 0 {
		return 0, 0
	}
	return records[0].Timestamp, records[len(records)-1].Timestamp
}
