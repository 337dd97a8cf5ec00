package manager

import (
	"FlowSpectra/internal/logger"
	"context"
	"fmt"

	"github.com/looplab/fsm"
)

// Run states.
const (
	StateIdle       = "idle"
	StateIngested   = "ingested"
	StateAggregated = "aggregated"
	StateGated      = "gated"
	StateReported   = "reported"
	StateDone       = "done"
	StateFailed     = "failed"
)

// Run events.
const (
	eventIngest    = "ingest"
	eventAggregate = "aggregate"
	eventGate      = "gate"
	eventReport    = "report"
	eventFinish    = "finish"
	eventFail      = "fail"
)

var runEvents = fsm.Events{
	{Name: eventIngest, Src: []string{StateIdle}, Dst: StateIngested},
	{Name: eventAggregate, Src: []string{StateIngested}, Dst: StateAggregated},
	{Name: eventGate, Src: []string{StateAggregated}, Dst: StateGated},
	{Name: eventReport, Src: []string{StateGated}, Dst: StateReported},
	// A run with too few records finishes straight after ingestion.
	{Name: eventFinish, Src: []string{StateIngested, StateReported}, Dst: StateDone},
	{Name: eventFail, Src: []string{StateIdle, StateIngested, StateAggregated, StateGated, StateReported}, Dst: StateFailed},
}

// run tracks the stage of a single analysis.
type run struct {
	fsm *fsm.FSM
	ctx context.Context
}

func newRun(ctx context.Context, log logger.Logger) *run {
	f := fsm.NewFSM(
		StateIdle,
		runEvents,
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Debug(fmt.Sprintf("run %s -> %s", e.Src, e.Dst))
			},
		},
	)
	return &run{fsm: f, ctx: ctx}
}

// advance fires event. The context given to the FSM is detached from
// cancellation so that a cancelled run can still move to failed.
func (r *run) advance(event string) error {
	if err := r.fsm.Event(context.WithoutCancel(r.ctx), event); err != nil {
		return fmt.Errorf("run transition '%s' from '%s': %w", event, r.fsm.Current(), err)
	}
	return nil
}

func (r *run) state() string {
	return r.fsm.Current()
}
