package sink

import (
	"FlowSpectra/internal/model"
	"encoding/json"
	"fmt"
)

// Payload kinds, used as topic suffixes and file names.
const (
	KindSummary  = "summary"
	KindBundle   = "bundle"
	KindFeatures = "features"
)

// kindOf returns the kind of a payload, or an error naming the writer when
// the payload is not one the writers understand.
func kindOf(writer string, payload interface{}) (string, error) {
	switch p := payload.(type) {
	case *model.Summary:
		if p != nil {
			return KindSummary, nil
		}
	case *model.Bundle:
		if p != nil {
			return KindBundle, nil
		}
	case *model.FeatureOverview:
		if p != nil {
			return KindFeatures, nil
		}
	}
	return "", fmt.Errorf("invalid payload type for %s: expected *model.Summary, *model.Bundle or *model.FeatureOverview, got %T", writer, payload)
}

// runIDOf returns the run a payload belongs to.
func runIDOf(payload interface{}) string {
	switch p := payload.(type) {
	case *model.Summary:
		return p.RunID
	case *model.Bundle:
		return p.RunID
	case *model.FeatureOverview:
		return p.RunID
	}
	return ""
}

func encodeJSON(payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}
