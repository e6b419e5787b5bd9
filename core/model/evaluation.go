package model

import "time"

// Metrics summarises one evaluation cycle at fleet level.
type Metrics struct {
	AverageSoC         float64 `json:"average_soc"`
	RiskCount          int     `json:"risk_count"`
	ChargerUtilization float64 `json:"charger_utilization"`
	AssignedCount      int     `json:"assigned_count"`
	MaintenanceCount   int     `json:"maintenance_count"`
	FleetSize          int     `json:"fleet_size"`
}

// InsightLevel classifies an operator insight.
type InsightLevel string

const (
	InsightSuccess InsightLevel = "success"
	InsightInfo    InsightLevel = "info"
	InsightWarning InsightLevel = "warning"
)

// Insight is a short operator-facing message derived from Metrics.
type Insight struct {
	Level   InsightLevel `json:"level"`
	Message string       `json:"message"`
}

// Evaluation is the complete output of one prioritization cycle.
type Evaluation struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	Duration time.Duration `json:"duration_ns"`
	Config   DepotConfig   `json:"config"`
	Records  []BusRecord   `json:"records"`
	Metrics  Metrics       `json:"metrics"`
	Insights []Insight     `json:"insights"`
}

// HasBus reports whether the evaluation contains the given bus.
func (e Evaluation) HasBus(id string) bool {
	for _, r := range e.Records {
		if r.BusID == id {
			return true
		}
	}
	return false
}
