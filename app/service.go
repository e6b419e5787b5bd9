package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	apidepot "github.com/kilianp07/busdepot/api/depot"
	"github.com/kilianp07/busdepot/config"
	"github.com/kilianp07/busdepot/core/depot"
	"github.com/kilianp07/busdepot/core/history"
	coremetrics "github.com/kilianp07/busdepot/core/metrics"
	"github.com/kilianp07/busdepot/core/model"
	"github.com/kilianp07/busdepot/core/telemetry"
	"github.com/kilianp07/busdepot/infra/logger"
	"github.com/kilianp07/busdepot/infra/metrics"
	"github.com/kilianp07/busdepot/internal/eventbus"

	// built-in providers and stores register themselves
	_ "github.com/kilianp07/busdepot/infra/history"
	_ "github.com/kilianp07/busdepot/infra/telemetry"
)

// Failure stages reported to metrics sinks.
const (
	StageTelemetry  = "telemetry"
	StagePrioritize = "prioritize"
	StageSummarize  = "summarize"
	StageHistory    = "history"
)

type collectorProvider interface {
	Collectors() []prometheus.Collector
}

// Options carries the collaborators of a Service. Nil fields get defaults.
type Options struct {
	Provider    telemetry.Provider
	Prioritizer depot.Prioritizer
	Sink        coremetrics.MetricsSink
	History     history.Store
	Logger      logger.Logger
	Now         func() time.Time
}

// Service runs evaluation cycles against the depot telemetry and publishes
// the results.
type Service struct {
	depotCfg    model.DepotConfig
	interval    time.Duration
	provider    telemetry.Provider
	prioritizer depot.Prioritizer
	sink        coremetrics.MetricsSink
	store       history.Store
	bus         *eventbus.TypedBus[model.Evaluation]
	log         logger.Logger
	now         func() time.Time
	latest      atomic.Pointer[model.Evaluation]

	promPort string
	api      config.APIConfig
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	tcfg := cfg.Telemetry
	if tcfg.Type == "mqtt" {
		conf := make(map[string]any, len(tcfg.Conf)+1)
		for k, v := range tcfg.Conf {
			conf[k] = v
		}
		if _, ok := conf["mqtt"]; !ok {
			conf["mqtt"] = cfg.MQTT
		}
		tcfg.Conf = conf
	}
	provider, err := telemetry.NewProvider(tcfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry provider: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		closeProvider(provider)
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := history.NewStore(cfg.History.Module())
	if err != nil {
		closeProvider(provider)
		if c, ok := sink.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("history store: %w", err)
	}
	svc := NewWithOptions(cfg.Depot.Model(), cfg.Depot.Interval(), Options{
		Provider: provider,
		Sink:     sink,
		History:  store,
	})
	svc.promPort = cfg.Metrics.PrometheusPort
	if cp, ok := provider.(collectorProvider); ok && svc.promPort != "" {
		if err := metrics.RegisterCollectors(prometheus.DefaultRegisterer, cp.Collectors()...); err != nil {
			svc.log.Warnf("register telemetry collectors: %v", err)
		}
	}
	svc.api = cfg.API
	return svc, nil
}

// NewWithOptions creates a Service from explicit collaborators.
func NewWithOptions(depotCfg model.DepotConfig, interval time.Duration, opts Options) *Service {
	if opts.Prioritizer == nil {
		opts.Prioritizer = depot.Greedy{}
	}
	if opts.Sink == nil {
		opts.Sink = coremetrics.NopSink{}
	}
	if opts.History == nil {
		opts.History = history.NopStore{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("service")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if interval <= 0 {
		interval = config.DefaultIntervalSeconds * time.Second
	}
	return &Service{
		depotCfg:    depotCfg,
		interval:    interval,
		provider:    opts.Provider,
		prioritizer: opts.Prioritizer,
		sink:        opts.Sink,
		store:       opts.History,
		bus:         eventbus.NewTyped[model.Evaluation](),
		log:         opts.Logger,
		now:         opts.Now,
	}
}

// Evaluate runs one cycle: snapshot, prioritize, summarize. On success the
// evaluation replaces the latest one, is published on the bus and appended
// to history. Nothing is published when any stage fails.
func (s *Service) Evaluate(ctx context.Context) (model.Evaluation, error) {
	if s.provider == nil {
		return model.Evaluation{}, errors.New("no telemetry provider")
	}
	start := s.now()
	readings, err := s.provider.Snapshot(ctx)
	if err != nil {
		return model.Evaluation{}, s.fail(StageTelemetry, fmt.Errorf("snapshot: %w", err))
	}
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			return model.Evaluation{}, s.fail(StageTelemetry, fmt.Errorf("snapshot: %w", err))
		}
	}
	records, err := s.prioritizer.Prioritize(depot.FromReadings(readings), s.depotCfg)
	if err != nil {
		return model.Evaluation{}, s.fail(StagePrioritize, fmt.Errorf("prioritize: %w", err))
	}
	m, err := depot.Summarize(records, s.depotCfg.NumChargers)
	if err != nil {
		return model.Evaluation{}, s.fail(StageSummarize, fmt.Errorf("summarize: %w", err))
	}
	ev := model.Evaluation{
		ID:       uuid.NewString(),
		Time:     start,
		Duration: s.now().Sub(start),
		Config:   s.depotCfg,
		Records:  records,
		Metrics:  m,
		Insights: depot.Insights(m),
	}
	s.latest.Store(&ev)
	s.bus.Publish(ev)
	if err := s.store.Append(ctx, ev); err != nil {
		_ = s.fail(StageHistory, fmt.Errorf("history append: %w", err))
	}
	s.log.Infow("evaluation completed", map[string]any{
		"evaluation_id":       ev.ID,
		"fleet_size":          m.FleetSize,
		"assigned":            m.AssignedCount,
		"dispatch_risk":       m.RiskCount,
		"average_soc":         m.AverageSoC,
		"charger_utilization": m.ChargerUtilization,
	})
	for _, in := range ev.Insights {
		if in.Level == model.InsightWarning {
			s.log.Warnf("%s: %d buses below %.1f%%", in.Message, m.RiskCount, s.depotCfg.MinDispatchSoC)
		}
	}
	return ev, nil
}

func (s *Service) fail(stage string, err error) error {
	s.log.Errorf("%s stage failed: %v", stage, err)
	if rec, ok := s.sink.(coremetrics.FailureRecorder); ok {
		if rerr := rec.RecordFailure(coremetrics.FailureEvent{Stage: stage, Error: err.Error(), Time: s.now()}); rerr != nil {
			s.log.Errorf("record failure: %v", rerr)
		}
	}
	return err
}

// Latest returns the most recent successful evaluation.
func (s *Service) Latest() (model.Evaluation, bool) {
	ev := s.latest.Load()
	if ev == nil {
		return model.Evaluation{}, false
	}
	return *ev, true
}

// Subscribe returns a channel receiving every successful evaluation.
func (s *Service) Subscribe() <-chan model.Evaluation { return s.bus.Subscribe() }

// Unsubscribe releases a channel returned by Subscribe.
func (s *Service) Unsubscribe(ch <-chan model.Evaluation) { s.bus.Unsubscribe(ch) }

// History returns the evaluation store.
func (s *Service) History() history.Store { return s.store }

// Run evaluates immediately and then at every interval until the context is
// cancelled. Failed cycles are logged and retried at the next tick.
func (s *Service) Run(ctx context.Context) error {
	collected := metrics.StartEvaluationCollector(ctx, s.bus, s.sink)
	if s.promPort != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.api.Enabled {
		go func() {
			if err := s.serveAPI(ctx); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	s.log.Infof("evaluating every %s with %d chargers", s.interval, s.depotCfg.NumChargers)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		_, _ = s.Evaluate(ctx)
		select {
		case <-ctx.Done():
			<-collected
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Service) serveAPI(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.api.Address,
		Handler:           apidepot.NewMux(s, s.store, s.api.Token),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
	}()
	s.log.Infof("api listening on %s", s.api.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if d := s.bus.Dropped(); d > 0 {
		s.log.Warnf("%d evaluation deliveries dropped by slow subscribers", d)
	}
	s.bus.Close()
	var errs []error
	if c, ok := s.provider.(telemetry.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func closeProvider(p telemetry.Provider) {
	if c, ok := p.(telemetry.Closer); ok {
		_ = c.Close()
	}
}
