package report

import "FlowSpectra/internal/model"

type feature struct {
	name, xLabel, yLabel string
	x, y                 func(r *model.FlowRecord) float64
}

var features = []feature{
	{"dest_source_ip", "Source IP", "Destination IP",
		func(r *model.FlowRecord) float64 { return float64(r.Src) },
		func(r *model.FlowRecord) float64 { return float64(r.Dst) }},
	{"dest_source_port", "Source Port", "Destination Port",
		func(r *model.FlowRecord) float64 { return float64(r.SrcPort) },
		func(r *model.FlowRecord) float64 { return float64(r.DstPort) }},
	{"length_ttl", "Time to Live", "Packet Length",
		func(r *model.FlowRecord) float64 { return float64(r.TTL) },
		func(r *model.FlowRecord) float64 { return float64(r.Length) }},
	{"fragment_length", "Packet Length", "Fragment",
		func(r *model.FlowRecord) float64 { return float64(r.Length) },
		func(r *model.FlowRecord) float64 { return float64(r.Fragment) }},
	{"tcpflags_source_port", "Source Port", "Flags",
		func(r *model.FlowRecord) float64 { return float64(r.SrcPort) },
		func(r *model.FlowRecord) float64 { return float64(r.Flags) }},
}

// Features compares raw fields across the whole dataset. Every point is
// labelled with its record's protocol.
func (r *Reporter) Features(records []model.FlowRecord) *model.FeatureOverview {
	overview := &model.FeatureOverview{RunID: r.runID}
	labels := make([]uint8, len(records))
	for i := range records {
		labels[i] = records[i].Protocol
	}
	for _, f := range features {
		pair := model.FeaturePair{
			Name:   f.name,
			XLabel: f.xLabel,
			YLabel: f.yLabel,
			X:      make([]float64, len(records)),
			Y:      make([]float64, len(records)),
			Labels: labels,
		}
		for i := range records {
			pair.X[i] = f.x(&records[i])
			pair.Y[i] = f.y(&records[i])
		}
		overview.Pairs = append(overview.Pairs, pair)
	}
	return overview
}
