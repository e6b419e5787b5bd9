package metrics

import (
	"errors"
	"io"
)

// MultiSink fans out evaluation results to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordEvaluation forwards the event to all sinks. Every sink is attempted
// and the errors are joined.
func (m *MultiSink) RecordEvaluation(ev EvaluationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordEvaluation(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordBusStates forwards per-bus state when supported by the sink.
func (m *MultiSink) RecordBusStates(states []BusStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(BusStateRecorder); ok {
			if err := rec.RecordBusStates(states); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordFailure forwards failed cycles when supported by the sink.
func (m *MultiSink) RecordFailure(ev FailureEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FailureRecorder); ok {
			if err := rec.RecordFailure(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
