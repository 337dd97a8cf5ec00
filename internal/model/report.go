package model

// Split is a received-versus-sent pair, ready to be drawn as a pie.
type Split struct {
	Received uint64 `json:"received"`
	Sent     uint64 `json:"sent"`
}

// ScatterPoint is one received record of a destination, placed by
// destination port against source address.
type ScatterPoint struct {
	DstPort   uint16  `json:"dst_port"`
	Src       Address `json:"src"`
	Timestamp float64 `json:"timestamp"`
	Protocol  uint8   `json:"protocol"`
}

// SeriesData is a labelled cumulative series as handed to the renderer.
type SeriesData struct {
	Label      string    `json:"label"`
	Timestamps []float64 `json:"timestamps"`
	Counts     []uint64  `json:"counts"`
	Bytes      []uint64  `json:"bytes"`
}

// SourceSummary is the traffic a single source sent to a destination.
type SourceSummary struct {
	Src         Address `json:"src"`
	Label       string  `json:"label"`
	Connections uint64  `json:"connections"`
	Bytes       uint64  `json:"bytes"`
}

// Bundle is the detailed analysis of one destination that passed the gate.
type Bundle struct {
	RunID       string          `json:"run_id"`
	Address     Address         `json:"address"`
	Display     string          `json:"display"`
	Scatter     []ScatterPoint  `json:"scatter"`
	Connections Split           `json:"connections"`
	Bytes       Split           `json:"bytes"`
	TimeSeries  []SeriesData    `json:"time_series"`
	Sources     []SourceSummary `json:"sources"`
	Categories  CategoryCounts  `json:"categories"`
}

// SummaryRow is the flat statistics line of one address.
type SummaryRow struct {
	Address             Address         `json:"address"`
	Display             string          `json:"display"`
	BytesReceived       uint64          `json:"bytes_received"`
	ReceivedConnections uint64          `json:"received_connections"`
	FirstReceived       float64         `json:"first_received"`
	LastReceived        float64         `json:"last_received"`
	BytesSent           uint64          `json:"bytes_sent"`
	SentConnections     uint64          `json:"sent_connections"`
	FirstSent           float64         `json:"first_sent"`
	LastSent            float64         `json:"last_sent"`
	Qualified           bool            `json:"qualified"`
	Categories          *CategoryCounts `json:"categories,omitempty"`
}

// Summary is the per-address table of a whole run.
type Summary struct {
	RunID      string       `json:"run_id"`
	Records    int          `json:"records"`
	LowerBound uint64       `json:"lower_bound"`
	Rows       []SummaryRow `json:"rows"`
}

// FeaturePair is one raw-field comparison across the whole dataset.
// Labels carries the protocol of each point.
type FeaturePair struct {
	Name   string    `json:"name"`
	XLabel string    `json:"x_label"`
	YLabel string    `json:"y_label"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	Labels []uint8   `json:"labels"`
}

// FeatureOverview groups the whole-dataset feature comparisons of a run.
type FeatureOverview struct {
	RunID string        `json:"run_id"`
	Pairs []FeaturePair `json:"pairs"`
}
