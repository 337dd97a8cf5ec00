package api

import (
	"FlowSpectra/internal/engine/manager"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/model"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runner runs an analysis over a flow file.
type Runner interface {
	Run(ctx context.Context, path string) (*manager.Result, error)
}

// Handler serves the results of the latest analysis run.
type Handler struct {
	runner Runner
	input  string
	log    logger.Logger

	mu     sync.RWMutex
	result *manager.Result
}

// NewHandler creates a handler analysing the flow file at input.
func NewHandler(runner Runner, input string, log logger.Logger) *Handler {
	return &Handler{runner: runner, input: input, log: log}
}

// Refresh runs a new analysis and, when it succeeds, replaces the served
// result with it.
func (h *Handler) Refresh(ctx context.Context) (*manager.Result, error) {
	res, err := h.runner.Run(ctx, h.input)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	h.result = res
	h.mu.Unlock()
	return res, nil
}

func (h *Handler) current() *manager.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.result
}

// Router returns the API routes. Metrics are served from gatherer.
func (h *Handler) Router(gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/summary", h.summaryHandler).Methods("GET")
	r.HandleFunc("/api/v1/addresses/{addr}", h.addressHandler).Methods("GET")
	r.HandleFunc("/api/v1/features", h.featuresHandler).Methods("GET")
	r.HandleFunc("/api/v1/runs", h.runHandler).Methods("POST")
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// available returns the current result, or writes an error and returns nil
// when there is nothing to serve yet.
func (h *Handler) available(w http.ResponseWriter) *manager.Result {
	res := h.current()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis has completed yet")
		return nil
	}
	if res.Insufficient != nil {
		writeError(w, http.StatusNotFound, res.Insufficient.Error())
		return nil
	}
	return res
}

// summaryHandler returns the per-address table of the latest run.
func (h *Handler) summaryHandler(w http.ResponseWriter, r *http.Request) {
	if res := h.available(w); res != nil {
		writeJSON(w, http.StatusOK, res.Summary)
	}
}

// addressHandler returns the bundle of one qualifying destination.
func (h *Handler) addressHandler(w http.ResponseWriter, r *http.Request) {
	addr, err := model.ParseAddress(mux.Vars(r)["addr"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := h.available(w)
	if res == nil {
		return
	}
	bundle, ok := res.Bundle(addr)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%s did not exceed %d received connections", addr, res.Summary.LowerBound))
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// featuresHandler returns the feature overview, when it was computed.
func (h *Handler) featuresHandler(w http.ResponseWriter, r *http.Request) {
	res := h.available(w)
	if res == nil {
		return
	}
	if res.Features == nil {
		writeError(w, http.StatusNotFound, "feature overview is disabled")
		return
	}
	writeJSON(w, http.StatusOK, res.Features)
}

type runResponse struct {
	RunID        string `json:"run_id"`
	State        string `json:"state"`
	Records      int    `json:"records"`
	Malformed    int    `json:"malformed"`
	Qualified    int    `json:"qualified"`
	Insufficient string `json:"insufficient,omitempty"`
}

// runHandler reruns the analysis over the configured input.
func (h *Handler) runHandler(w http.ResponseWriter, r *http.Request) {
	res, err := h.Refresh(r.Context())
	if err != nil {
		h.log.Error(fmt.Errorf("analysis run failed: %w", err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}
	resp := runResponse{
		RunID:     res.RunID,
		State:     res.State,
		Records:   res.Read.Records,
		Malformed: res.Read.Malformed,
		Qualified: len(res.Bundles),
	}
	if res.Insufficient != nil {
		resp.Insufficient = res.Insufficient.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBytes)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
