package app

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/busdepot/config"
	"github.com/kilianp07/busdepot/core/factory"
	"github.com/kilianp07/busdepot/core/history"
	coremetrics "github.com/kilianp07/busdepot/core/metrics"
	"github.com/kilianp07/busdepot/core/model"
	"github.com/kilianp07/busdepot/core/telemetry"
	"github.com/kilianp07/busdepot/infra/logger"
)

func exampleReadings() []model.Reading {
	return []model.Reading{
		{BusID: "A", SoC: 50},
		{BusID: "B", SoC: 20},
		{BusID: "C", SoC: 90},
		{BusID: "D", SoC: 20},
	}
}

func staticProvider(r []model.Reading) telemetry.Provider {
	return telemetry.ProviderFunc(func(context.Context) ([]model.Reading, error) {
		out := make([]model.Reading, len(r))
		copy(out, r)
		return out, nil
	})
}

type recordingSink struct {
	mu       sync.Mutex
	evals    []coremetrics.EvaluationEvent
	failures []coremetrics.FailureEvent
}

func (s *recordingSink) RecordEvaluation(ev coremetrics.EvaluationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evals = append(s.evals, ev)
	return nil
}

func (s *recordingSink) RecordFailure(ev coremetrics.FailureEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, ev)
	return nil
}

func (s *recordingSink) evalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.evals)
}

type memHistory struct {
	mu  sync.Mutex
	evs []model.Evaluation
	err error
}

func (m *memHistory) Append(_ context.Context, ev model.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.evs = append(m.evs, ev)
	return nil
}

func (m *memHistory) Query(_ context.Context, q history.Query) ([]model.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return q.Apply(m.evs), nil
}

func (m *memHistory) Close() error { return nil }

func newTestService(p telemetry.Provider, cfg model.DepotConfig, sink coremetrics.MetricsSink, store history.Store) *Service {
	return NewWithOptions(cfg, 10*time.Millisecond, Options{
		Provider: p,
		Sink:     sink,
		History:  store,
		Logger:   logger.NopLogger{},
	})
}

func TestEvaluate_Example(t *testing.T) {
	store := &memHistory{}
	svc := newTestService(staticProvider(exampleReadings()), model.DepotConfig{NumChargers: 2, MinDispatchSoC: 60}, nil, store)

	_, ok := svc.Latest()
	require.False(t, ok)

	ev, err := svc.Evaluate(context.Background())
	require.NoError(t, err)
	var order []string
	for _, r := range ev.Records {
		order = append(order, r.BusID)
	}
	assert.Equal(t, []string{"B", "D", "A", "C"}, order)
	assert.Equal(t, 45.0, ev.Metrics.AverageSoC)
	assert.Equal(t, 3, ev.Metrics.RiskCount)
	assert.Equal(t, 100.0, ev.Metrics.ChargerUtilization)
	assert.NotEmpty(t, ev.ID)
	require.NotEmpty(t, ev.Insights)
	assert.Equal(t, model.InsightWarning, ev.Insights[0].Level)

	latest, ok := svc.Latest()
	require.True(t, ok)
	assert.Equal(t, ev.ID, latest.ID)
	require.Len(t, store.evs, 1)
	assert.Equal(t, ev.ID, store.evs[0].ID)
}

func TestEvaluate_Publishes(t *testing.T) {
	svc := newTestService(staticProvider(exampleReadings()), model.DepotConfig{NumChargers: 1}, nil, nil)
	ch := svc.Subscribe()
	defer svc.Unsubscribe(ch)
	ev, err := svc.Evaluate(context.Background())
	require.NoError(t, err)
	select {
	case got := <-ch:
		assert.Equal(t, ev.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("evaluation not published")
	}
}

func TestEvaluate_Failures(t *testing.T) {
	boom := errors.New("broker down")
	tests := []struct {
		name     string
		provider telemetry.Provider
		cfg      model.DepotConfig
		stage    string
		is       error
	}{
		{
			name:     "telemetry",
			provider: telemetry.ProviderFunc(func(context.Context) ([]model.Reading, error) { return nil, boom }),
			cfg:      model.DepotConfig{NumChargers: 1},
			stage:    StageTelemetry,
			is:       boom,
		},
		{
			name: "non-finite reading",
			provider: staticProvider([]model.Reading{
				{BusID: "A", SoC: 50},
				{BusID: "B", SoC: math.NaN()},
			}),
			cfg:   model.DepotConfig{NumChargers: 1},
			stage: StageTelemetry,
			is:    model.ErrInvalidReading,
		},
		{
			name:     "invalid config",
			provider: staticProvider(exampleReadings()),
			cfg:      model.DepotConfig{NumChargers: -1},
			stage:    StagePrioritize,
			is:       model.ErrInvalidConfiguration,
		},
		{
			name:     "empty fleet",
			provider: staticProvider(nil),
			cfg:      model.DepotConfig{NumChargers: 1},
			stage:    StageSummarize,
			is:       model.ErrEmptyFleet,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			store := &memHistory{}
			svc := newTestService(tt.provider, tt.cfg, sink, store)
			_, err := svc.Evaluate(context.Background())
			require.ErrorIs(t, err, tt.is)
			require.Len(t, sink.failures, 1)
			assert.Equal(t, tt.stage, sink.failures[0].Stage)
			_, ok := svc.Latest()
			assert.False(t, ok, "no partial result expected")
			assert.Empty(t, store.evs)
		})
	}
}

func TestEvaluate_HistoryFailureKeepsResult(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(staticProvider(exampleReadings()), model.DepotConfig{NumChargers: 2, MinDispatchSoC: 60}, sink, &memHistory{err: errors.New("disk full")})
	_, err := svc.Evaluate(context.Background())
	require.NoError(t, err)
	_, ok := svc.Latest()
	assert.True(t, ok)
	require.Len(t, sink.failures, 1)
	assert.Equal(t, StageHistory, sink.failures[0].Stage)
}

func TestEvaluate_LatestReplacedEachCycle(t *testing.T) {
	readings := exampleReadings()
	var mu sync.Mutex
	p := telemetry.ProviderFunc(func(context.Context) ([]model.Reading, error) {
		mu.Lock()
		defer mu.Unlock()
		out := make([]model.Reading, len(readings))
		copy(out, readings)
		return out, nil
	})
	svc := newTestService(p, model.DepotConfig{NumChargers: 2, MinDispatchSoC: 60}, nil, nil)
	first, err := svc.Evaluate(context.Background())
	require.NoError(t, err)

	mu.Lock()
	readings = []model.Reading{{BusID: "Z", SoC: 99}}
	mu.Unlock()
	second, err := svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	latest, _ := svc.Latest()
	require.Len(t, latest.Records, 1)
	assert.Equal(t, "Z", latest.Records[0].BusID)
	assert.False(t, latest.Records[0].DispatchRisk)
	assert.Len(t, first.Records, 4)
}

func TestRun_RecordsMetricsAndStops(t *testing.T) {
	sink := &recordingSink{}
	svc := newTestService(staticProvider(exampleReadings()), model.DepotConfig{NumChargers: 2, MinDispatchSoC: 60}, sink, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for sink.evalCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.GreaterOrEqual(t, sink.evalCount(), 2)
	require.NoError(t, svc.Close())
}

func TestNew_FromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Telemetry: factory.ModuleConfig{Type: "static", Conf: map[string]any{
			"buses": []map[string]any{
				{"bus_id": "A", "state_of_charge": 50},
				{"bus_id": "B", "state_of_charge": 20, "requires_maintenance": true},
			},
		}},
		History: config.HistoryConfig{Backend: "jsonl", Path: filepath.Join(dir, "history.jsonl")},
	}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ev, err := svc.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ev.Metrics.AssignedCount)
	assert.Equal(t, 1, ev.Metrics.MaintenanceCount)

	evs, err := svc.History().Query(context.Background(), history.Query{BusID: "B"})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, ev.ID, evs[0].ID)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := &config.Config{Telemetry: factory.ModuleConfig{Type: "carrier-pigeon"}}
	cfg.SetDefaults()
	_, err := New(cfg)
	assert.Error(t, err)
}
