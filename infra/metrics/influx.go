package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/busdepot/core/metrics"
	"github.com/kilianp07/busdepot/infra/logger"
)

// InfluxConfig holds the connection settings of the InfluxDB sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	Depot  string `json:"depot"`
}

// InfluxSink writes evaluation results to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	depot    string
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	depot := cfg.Depot
	if depot == "" {
		depot = "default"
	}
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		depot:    depot,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordEvaluation writes the fleet aggregates of one cycle.
func (s *InfluxSink) RecordEvaluation(ev coremetrics.EvaluationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("depot_evaluation").
		AddTag("depot", s.depot).
		AddTag("evaluation_id", ev.EvaluationID).
		AddField("average_soc", round3(ev.Metrics.AverageSoC)).
		AddField("risk_count", ev.Metrics.RiskCount).
		AddField("charger_utilization", round3(ev.Metrics.ChargerUtilization)).
		AddField("assigned_count", ev.Metrics.AssignedCount).
		AddField("maintenance_count", ev.Metrics.MaintenanceCount).
		AddField("fleet_size", ev.Metrics.FleetSize).
		AddField("num_chargers", ev.Config.NumChargers).
		AddField("min_dispatch_soc", round3(ev.Config.MinDispatchSoC)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordBusStates writes one bus_state point per bus.
func (s *InfluxSink) RecordBusStates(states []coremetrics.BusStateEvent) error {
	if len(states) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(states))
	for _, st := range states {
		r := st.Record
		points = append(points, write.NewPointWithMeasurement("bus_state").
			AddTag("depot", s.depot).
			AddTag("bus_id", r.BusID).
			AddTag("evaluation_id", st.EvaluationID).
			AddTag("assigned_to_charge", strconv.FormatBool(r.AssignedToCharge)).
			AddTag("dispatch_risk", strconv.FormatBool(r.DispatchRisk)).
			AddField("soc", round3(r.SoC)).
			AddField("rank", st.Rank).
			AddField("requires_maintenance", r.RequiresMaintenance).
			SetTime(st.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordFailure records a failed evaluation cycle.
func (s *InfluxSink) RecordFailure(ev coremetrics.FailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("depot_evaluation_failure").
		AddTag("depot", s.depot).
		AddTag("stage", ev.Stage).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
