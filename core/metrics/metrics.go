package metrics

import (
	"time"

	"github.com/kilianp07/busdepot/core/model"
)

// EvaluationEvent is the fleet-level outcome of one evaluation cycle.
type EvaluationEvent struct {
	EvaluationID string
	Config       model.DepotConfig
	Metrics      model.Metrics
	Duration     time.Duration
	Time         time.Time
}

// MetricsSink records evaluation results for observability purposes.
type MetricsSink interface {
	RecordEvaluation(ev EvaluationEvent) error
}

// BusStateEvent is the per-bus outcome of one evaluation cycle.
type BusStateEvent struct {
	EvaluationID string
	Record       model.BusRecord
	Rank         int
	Time         time.Time
}

// BusStateRecorder is implemented by sinks able to record per-bus state.
type BusStateRecorder interface {
	RecordBusStates(states []BusStateEvent) error
}

// FailureEvent describes an evaluation cycle that produced no result.
type FailureEvent struct {
	Stage string
	Error string
	Time  time.Time
}

// FailureRecorder is implemented by sinks counting failed cycles.
type FailureRecorder interface {
	RecordFailure(ev FailureEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordEvaluation(EvaluationEvent) error { return nil }
func (NopSink) RecordBusStates([]BusStateEvent) error  { return nil }
func (NopSink) RecordFailure(FailureEvent) error       { return nil }

// BusStates converts prioritized records into per-bus events. Rank is the
// 1-based charging priority.
func BusStates(evaluationID string, records []model.BusRecord, at time.Time) []BusStateEvent {
	out := make([]BusStateEvent, len(records))
	for i, r := range records {
		out[i] = BusStateEvent{EvaluationID: evaluationID, Record: r, Rank: i + 1, Time: at}
	}
	return out
}
