package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/busdepot/core/metrics"
)

// PromSink exposes the latest evaluation as Prometheus gauges.
type PromSink struct {
	averageSoC  prometheus.Gauge
	risk        prometheus.Gauge
	utilization prometheus.Gauge
	assigned    prometheus.Gauge
	fleet       prometheus.Gauge
	evaluations prometheus.Counter
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
	busSoC      *prometheus.GaugeVec
	busAssigned *prometheus.GaugeVec
}

// NewPromSink registers depot metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered under the same name are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		averageSoC: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depot_average_soc_percent",
			Help: "Average state of charge of the fleet in the last evaluation",
		}),
		risk: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depot_dispatch_risk_buses",
			Help: "Number of buses below the minimum dispatch state of charge",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depot_charger_utilization_percent",
			Help: "Share of chargers assigned to a bus",
		}),
		assigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depot_assigned_buses",
			Help: "Number of buses assigned to a charger",
		}),
		fleet: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "depot_fleet_size",
			Help: "Number of buses reported by telemetry",
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "depot_evaluations_total",
			Help: "Number of completed evaluation cycles",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "depot_evaluation_failures_total",
			Help: "Number of evaluation cycles that failed",
		}, []string{"stage"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "depot_evaluation_duration_seconds",
			Help:    "Time spent in one evaluation cycle",
			Buckets: prometheus.DefBuckets,
		}),
		busSoC: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "depot_bus_soc_percent",
			Help: "State of charge per bus",
		}, []string{"bus_id"}),
		busAssigned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "depot_bus_assigned",
			Help: "1 when the bus is assigned to a charger",
		}, []string{"bus_id"}),
	}
	var err error
	if s.averageSoC, err = register(reg, s.averageSoC); err != nil {
		return nil, err
	}
	if s.risk, err = register(reg, s.risk); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	if s.assigned, err = register(reg, s.assigned); err != nil {
		return nil, err
	}
	if s.fleet, err = register(reg, s.fleet); err != nil {
		return nil, err
	}
	if s.evaluations, err = register(reg, s.evaluations); err != nil {
		return nil, err
	}
	if s.failures, err = register(reg, s.failures); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.busSoC, err = register(reg, s.busSoC); err != nil {
		return nil, err
	}
	if s.busAssigned, err = register(reg, s.busAssigned); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordEvaluation sets the fleet gauges to the evaluation result.
func (s *PromSink) RecordEvaluation(ev coremetrics.EvaluationEvent) error {
	s.averageSoC.Set(ev.Metrics.AverageSoC)
	s.risk.Set(float64(ev.Metrics.RiskCount))
	s.utilization.Set(ev.Metrics.ChargerUtilization)
	s.assigned.Set(float64(ev.Metrics.AssignedCount))
	s.fleet.Set(float64(ev.Metrics.FleetSize))
	s.evaluations.Inc()
	if ev.Duration > 0 {
		s.duration.Observe(ev.Duration.Seconds())
	}
	return nil
}

// RecordBusStates replaces the per-bus gauges so buses that left the depot
// disappear from the output.
func (s *PromSink) RecordBusStates(states []coremetrics.BusStateEvent) error {
	s.busSoC.Reset()
	s.busAssigned.Reset()
	for _, st := range states {
		s.busSoC.WithLabelValues(st.Record.BusID).Set(st.Record.SoC)
		assigned := 0.0
		if st.Record.AssignedToCharge {
			assigned = 1
		}
		s.busAssigned.WithLabelValues(st.Record.BusID).Set(assigned)
	}
	return nil
}

// RecordFailure counts a failed cycle by stage.
func (s *PromSink) RecordFailure(ev coremetrics.FailureEvent) error {
	s.failures.WithLabelValues(ev.Stage).Inc()
	return nil
}

// RegisterCollectors registers additional collectors, such as adapter
// counters, reusing those already registered.
func RegisterCollectors(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var errs []error
	for _, c := range cs {
		if _, err := register(reg, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
