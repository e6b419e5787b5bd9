package depot

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/busdepot/core/model"
)

// utilizationNotice is the utilization percentage above which operators are
// told the chargers are near full capacity.
const utilizationNotice = 95.0

// Summarize computes fleet metrics over prioritized records.
//
// With zero chargers the utilization is reported as 0 rather than an error;
// use UtilizationStrict when a zero-capacity depot must be rejected.
func Summarize(records []model.BusRecord, numChargers int) (model.Metrics, error) {
	if numChargers < 0 {
		return model.Metrics{}, fmt.Errorf("%w: num_chargers must not be negative, got %d", model.ErrInvalidConfiguration, numChargers)
	}
	if len(records) == 0 {
		return model.Metrics{}, fmt.Errorf("summarize: %w", model.ErrEmptyFleet)
	}

	socs := make([]float64, len(records))
	m := model.Metrics{FleetSize: len(records)}
	for i, r := range records {
		socs[i] = r.SoC
		if r.DispatchRisk {
			m.RiskCount++
		}
		if r.AssignedToCharge {
			m.AssignedCount++
		}
		if r.RequiresMaintenance {
			m.MaintenanceCount++
		}
	}
	m.AverageSoC = stat.Mean(socs, nil)
	if numChargers > 0 {
		m.ChargerUtilization = utilization(numChargers, len(records))
	}
	return m, nil
}

// UtilizationStrict returns the charger utilization percentage and fails with
// ErrNoChargers when the depot has no charger.
func UtilizationStrict(numChargers, fleetSize int) (float64, error) {
	switch {
	case numChargers < 0:
		return 0, fmt.Errorf("%w: num_chargers must not be negative, got %d", model.ErrInvalidConfiguration, numChargers)
	case numChargers == 0:
		return 0, model.ErrNoChargers
	}
	return utilization(numChargers, fleetSize), nil
}

func utilization(numChargers, fleetSize int) float64 {
	return float64(min(numChargers, fleetSize)) / float64(numChargers) * 100
}

// Insights turns metrics into operator messages.
func Insights(m model.Metrics) []model.Insight {
	var out []model.Insight
	if m.RiskCount > 0 {
		out = append(out, model.Insight{
			Level:   model.InsightWarning,
			Message: "Charging capacity may be insufficient. Some buses risk missing pull-out.",
		})
	} else {
		out = append(out, model.Insight{
			Level:   model.InsightSuccess,
			Message: "All buses meet dispatch energy threshold.",
		})
	}
	if m.ChargerUtilization > utilizationNotice {
		out = append(out, model.Insight{
			Level:   model.InsightInfo,
			Message: "Chargers operating near full capacity. Consider load balancing.",
		})
	}
	return out
}
