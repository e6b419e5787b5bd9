package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/busdepot/core/metrics"
	"github.com/kilianp07/busdepot/core/model"
	"github.com/kilianp07/busdepot/infra/logger"
	"github.com/kilianp07/busdepot/internal/eventbus"
)

// StartEvaluationCollector subscribes to the evaluation bus and records each
// evaluation in sink. It stops when the context is canceled or the bus is
// closed. The returned channel is closed once the collector has stopped.
func StartEvaluationCollector(ctx context.Context, bus *eventbus.TypedBus[model.Evaluation], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				Record(sink, ev, log)
			}
		}
	}()
	return done
}

// Record writes one evaluation to sink, including per-bus state when the
// sink supports it. Errors are logged.
func Record(sink coremetrics.MetricsSink, ev model.Evaluation, log logger.Logger) {
	if err := sink.RecordEvaluation(coremetrics.EvaluationEvent{
		EvaluationID: ev.ID,
		Config:       ev.Config,
		Metrics:      ev.Metrics,
		Duration:     ev.Duration,
		Time:         ev.Time,
	}); err != nil {
		log.Errorf("record evaluation %s: %v", ev.ID, err)
	}
	if rec, ok := sink.(coremetrics.BusStateRecorder); ok {
		if err := rec.RecordBusStates(coremetrics.BusStates(ev.ID, ev.Records, ev.Time)); err != nil {
			log.Errorf("record bus states %s: %v", ev.ID, err)
		}
	}
}
