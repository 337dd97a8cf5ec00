package manager

import (
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/engine/addressaggregator"
	"FlowSpectra/internal/engine/report"
	"FlowSpectra/internal/logger"
	"FlowSpectra/internal/metrics"
	"FlowSpectra/internal/model"
	"FlowSpectra/pkg/flowcsv"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// InsufficientDataError reports a run whose input held too few records to
// analyse. It is not fatal: the run completes without per-address output.
type InsufficientDataError struct {
	Path     string
	Records  int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data in %s: %d records, at least %d required", e.Path, e.Records, e.Required)
}

// Result is everything a completed run produced.
type Result struct {
	RunID    string
	Path     string
	State    string
	Started  time.Time
	Finished time.Time

	Read         flowcsv.ReadStats
	Aggregation  *addressaggregator.Result
	Summary      *model.Summary
	Bundles      []*model.Bundle // Ordered by address.
	Features     *model.FeatureOverview
	Insufficient *InsufficientDataError
}

// Bundle returns the bundle of addr, if it qualified.
func (r *Result) Bundle(addr model.Address) (*model.Bundle, bool) {
	i := sort.Search(len(r.Bundles), func(i int) bool { return r.Bundles[i].Address >= addr })
	if i < len(r.Bundles) && r.Bundles[i].Address == addr {
		return r.Bundles[i], true
	}
	return nil, false
}

// Manager runs analyses over flow files and hands the results to writers.
type Manager struct {
	cfg     *config.Config
	writers []model.Writer
	metrics *metrics.Metrics
	log     logger.Logger
	filter  *model.Address
}

// New creates a new Manager. A nil m registers fresh metrics on a private
// registry; a nil log discards log output.
func New(cfg *config.Config, writers []model.Writer, m *metrics.Metrics, log logger.Logger) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("manager requires a configuration")
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	if log == nil {
		log = logger.Discard()
	}

	mgr := &Manager{cfg: cfg, writers: writers, metrics: m, log: log}
	if cfg.Analysis.Address != "" {
		addr, err := model.ParseAddress(cfg.Analysis.Address)
		if err != nil {
			return nil, fmt.Errorf("invalid analysis address: %w", err)
		}
		mgr.filter = &addr
	}
	return mgr, nil
}

// Run analyses the flow file at path.
func (m *Manager) Run(ctx context.Context, path string) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), Path: path, Started: time.Now()}
	log := m.log.WithFields(map[string]any{"run_id": res.RunID, "input": path})
	r := newRun(ctx, log)

	fail := func(err error) (*Result, error) {
		if ferr := r.advance(eventFail); ferr != nil {
			log.Error(ferr)
		}
		m.metrics.ObserveRun(metrics.ResultFailed, res.Started)
		log.Error(err)
		return nil, err
	}

	// Ingest.
	records, stats, err := m.ingest(path)
	res.Read = stats
	m.metrics.RecordsIngested.Add(float64(stats.Records))
	m.metrics.MalformedRows.Add(float64(stats.Malformed))
	m.metrics.DefaultedFields.Add(float64(stats.DefaultedFields))
	if err != nil {
		return fail(err)
	}
	if err := r.advance(eventIngest); err != nil {
		return fail(err)
	}
	log.WithFields(map[string]any{
		"records":   stats.Records,
		"malformed": stats.Malformed,
		"defaulted": stats.DefaultedFields,
	}).Info("input ingested")
	for _, w := range stats.Warnings {
		log.Warn(w.Error())
	}

	if len(records) < m.cfg.Analysis.MinRecords {
		res.Insufficient = &InsufficientDataError{Path: path, Records: len(records), Required: m.cfg.Analysis.MinRecords}
		log.Warn(res.Insufficient.Error())
		if err := r.advance(eventFinish); err != nil {
			return fail(err)
		}
		return m.finish(res, r, metrics.ResultInsufficient), nil
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// Aggregate.
	agg := addressaggregator.Aggregate(records, addressaggregator.Options{
		Filter:             m.filter,
		CollectDiagnostics: m.cfg.Analysis.Diagnostics,
	})
	res.Aggregation = agg
	m.metrics.Addresses.Set(float64(len(agg.Stats)))
	if err := r.advance(eventAggregate); err != nil {
		return fail(err)
	}
	if d := agg.Diagnostics; d != nil {
		log.WithFields(map[string]any{
			"destinations": d.Destinations,
			"min":          d.MinRecords,
			"max":          d.MaxRecords,
			"mean":         d.MeanRecords,
		}).Info("per-destination record counts")
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	// Gate.
	reporter := report.NewReporter(report.Gate{LowerBound: m.cfg.Analysis.LowerBound}, res.RunID)
	var qualifying []*model.AddressStats
	for _, addr := range agg.Addresses() {
		if s := agg.Stats[addr]; reporter.Gate().Qualifies(s) {
			qualifying = append(qualifying, s)
		}
	}
	m.metrics.Qualified.Set(float64(len(qualifying)))
	if err := r.advance(eventGate); err != nil {
		return fail(err)
	}
	log.Info(fmt.Sprintf("%d of %d addresses exceed %d received connections", len(qualifying), len(agg.Stats), m.cfg.Analysis.LowerBound))

	// Report.
	bundles, err := m.analyze(ctx, reporter, qualifying)
	if err != nil {
		return fail(err)
	}
	res.Bundles = bundles
	res.Summary = reporter.Summarize(agg.Stats, len(records))
	if m.cfg.Analysis.FeatureOverview {
		res.Features = reporter.Features(records)
	}
	if err := r.advance(eventReport); err != nil {
		return fail(err)
	}

	m.deliver(ctx, log, res)
	if err := r.advance(eventFinish); err != nil {
		return fail(err)
	}
	return m.finish(res, r, metrics.ResultDone), nil
}

func (m *Manager) finish(res *Result, r *run, result string) *Result {
	res.State = r.state()
	res.Finished = time.Now()
	m.metrics.ObserveRun(result, res.Started)
	return res
}

func (m *Manager) ingest(path string) ([]model.FlowRecord, flowcsv.ReadStats, error) {
	reader, err := flowcsv.Open(path, flowcsv.Options{
		MaxRecords:       m.cfg.Input.MaxRecords,
		MaxMalformedRows: m.cfg.Input.MaxMalformedRows,
		MissingToken:     m.cfg.Input.MissingToken,
		Delimiter:        m.cfg.DelimiterRune(),
	})
	if err != nil {
		return nil, flowcsv.ReadStats{}, err
	}
	defer reader.Close()
	return reader.ReadAll()
}

// analyze builds the bundles of the qualifying destinations on a pool of
// workers. Each worker owns one destination at a time, and every result
// lands in the slot of its input so the output keeps address order.
func (m *Manager) analyze(ctx context.Context, reporter *report.Reporter, qualifying []*model.AddressStats) ([]*model.Bundle, error) {
	bundles := make([]*model.Bundle, len(qualifying))
	jobs := make(chan int)

	numWorkers := max(1, min(m.cfg.Analysis.NumWorkers, len(qualifying)))
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				bundles[idx] = reporter.Analyze(qualifying[idx])
			}
		}()
	}

	var err error
	for idx := range qualifying {
		if err = ctx.Err(); err != nil {
			break
		}
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return bundles, nil
}

// deliver hands the results to every writer concurrently. A failing writer
// is logged and counted; it affects neither the run nor the other writers.
func (m *Manager) deliver(ctx context.Context, log logger.Logger, res *Result) {
	payloads := make([]interface{}, 0, len(res.Bundles)+2)
	payloads = append(payloads, res.Summary)
	for _, b := range res.Bundles {
		payloads = append(payloads, b)
	}
	if res.Features != nil {
		payloads = append(payloads, res.Features)
	}

	var wg sync.WaitGroup
	wg.Add(len(m.writers))
	for _, writer := range m.writers {
		go func(w model.Writer) {
			defer wg.Done()
			wlog := log.WithFields(map[string]any{"writer": w.Name()})
			failed := 0
			for _, p := range payloads {
				if err := w.Write(ctx, p); err != nil {
					failed++
					m.metrics.WriterErrors.WithLabelValues(w.Name()).Inc()
					wlog.Error(fmt.Errorf("failed to write %T: %w", p, err))
				}
			}
			wlog.Info(fmt.Sprintf("delivered %d of %d payloads", len(payloads)-failed, len(payloads)))
		}(writer)
	}
	wg.Wait()
}

// Close closes every writer.
func (m *Manager) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close writer %s: %w", w.Name(), err))
		}
	}
	return errors.Join(errs...)
}
