package metrics_test

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/busdepot/core/factory"
	metrics "github.com/kilianp07/busdepot/core/metrics"
	_ "github.com/kilianp07/busdepot/infra/metrics"
)

// TestMetricsFactory_Builtins verifies the sinks registered by infra/metrics.
func TestMetricsFactory_Builtins(t *testing.T) {
	types := strings.Join(metrics.SinkTypes(), ",")
	if types != "influx,nop,prometheus" {
		t.Fatalf("unexpected sink types %q", types)
	}
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}

func TestNewMetricsSink_Count(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "prometheus"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
	if _, ok := s.(metrics.BusStateRecorder); !ok {
		t.Fatal("MultiSink should forward bus states")
	}
}

// The sink list is usually decoded from the YAML configuration file.
func TestNewMetricsSink_FromYAML(t *testing.T) {
	data := `sinks:
  - type: nop
  - type: nop
prometheus_port: ":2112"
`
	var cfg struct {
		Sinks []factory.ModuleConfig `yaml:"sinks"`
		Port  string                 `yaml:"prometheus_port"`
	}
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if cfg.Port != ":2112" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if _, err := metrics.NewMetricsSink(cfg.Sinks); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func TestNewMetricsSink_UnknownType(t *testing.T) {
	data := `{"sinks":[{"type":"nop"},{"type":"statsd"}]}`
	var cfg metrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	_, err := metrics.NewMetricsSink(cfg.Sinks)
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), "metrics sink 1 (statsd)") {
		t.Fatalf("error should name the failing entry: %v", err)
	}
}
