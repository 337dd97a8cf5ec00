package api

import (
	"FlowSpectra/internal/engine/manager"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/model"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

type fakeRunner struct {
	res   *manager.Result
	err   error
	calls int
}

func (f *fakeRunner) Run(ctx context.Context, path string) (*manager.Result, error) {
	f.calls++
	return f.res, f.err
}

func testResult() *manager.Result {
	return &manager.Result{
		RunID: "run-1",
		State: manager.StateDone,
		Summary: &model.Summary{
			RunID:      "run-1",
			LowerBound: 200,
			Rows:       []model.SummaryRow{{Address: 167772161, Display: "10.0.0.1", ReceivedConnections: 250, Qualified: true}},
		},
		Bundles: []*model.Bundle{{RunID: "run-1", Address: 167772161, Display: "10.0.0.1"}},
	}
}

func serve(t *testing.T, h *Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Router(prometheus.NewRegistry()).ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandler_BeforeFirstRun(t *testing.T) {
	h := NewHandler(&fakeRunner{}, "flows.csv", logger.Discard())
	if rec := serve(t, h, "GET", "/api/v1/summary"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestHandler_Routes(t *testing.T) {
	runner := &fakeRunner{res: testResult()}
	h := NewHandler(runner, "flows.csv", logger.Discard())
	if _, err := h.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	rec := serve(t, h, "GET", "/api/v1/summary")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("Unexpected summary response: %d", rec.Code)
	}
	var summary model.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil || len(summary.Rows) != 1 {
		t.Errorf("Unexpected summary body %q: %v", rec.Body.String(), err)
	}

	for _, target := range []string{"/api/v1/addresses/10.0.0.1", "/api/v1/addresses/167772161"} {
		rec := serve(t, h, "GET", target)
		var bundle model.Bundle
		if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &bundle) != nil || bundle.Display != "10.0.0.1" {
			t.Errorf("%s: unexpected response %d %q", target, rec.Code, rec.Body.String())
		}
	}

	tests := []struct {
		method, target string
		want           int
	}{
		{"GET", "/api/v1/addresses/10.0.0.2", http.StatusNotFound},
		{"GET", "/api/v1/addresses/not-an-ip", http.StatusBadRequest},
		{"GET", "/api/v1/features", http.StatusNotFound},
		{"POST", "/api/v1/summary", http.StatusMethodNotAllowed},
		{"GET", "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := serve(t, h, tt.method, tt.target); rec.Code != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.target, tt.want, rec.Code)
		}
	}
}

func TestHandler_Insufficient(t *testing.T) {
	res := &manager.Result{RunID: "run-2", State: manager.StateDone, Insufficient: &manager.InsufficientDataError{Path: "flows.csv", Required: 1}}
	h := NewHandler(&fakeRunner{res: res}, "flows.csv", logger.Discard())

	rec := serve(t, h, "POST", "/api/v1/runs")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "insufficient data") {
		t.Fatalf("Unexpected run response: %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(t, h, "GET", "/api/v1/summary"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an insufficient run, got %d", rec.Code)
	}
}

func TestHandler_RunFailureKeepsPreviousResult(t *testing.T) {
	runner := &fakeRunner{res: testResult()}
	h := NewHandler(runner, "flows.csv", logger.Discard())
	if _, err := h.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	runner.res, runner.err = nil, errors.New("ingest flows.csv: permission denied")
	if rec := serve(t, h, "POST", "/api/v1/runs"); rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	if rec := serve(t, h, "GET", "/api/v1/summary"); rec.Code != http.StatusOK {
		t.Errorf("Previous result should still be served, got %d", rec.Code)
	}
	if runner.calls != 2 {
		t.Errorf("Expected 2 runs, got %d", runner.calls)
	}
}
