package depot

import (
	"sort"

	"github.com/kilianp07/busdepot/core/model"
)

// Prioritizer decides charger assignment and dispatch risk for a snapshot.
type Prioritizer interface {
	Prioritize(records []model.BusRecord, cfg model.DepotConfig) ([]model.BusRecord, error)
}

// Greedy charges the most depleted buses first, limited by charger count.
type Greedy struct{}

// Prioritize implements Prioritizer.
func (Greedy) Prioritize(records []model.BusRecord, cfg model.DepotConfig) ([]model.BusRecord, error) {
	return Prioritize(records, cfg)
}

// FromReadings converts telemetry readings into fresh records.
func FromReadings(readings []model.Reading) []model.BusRecord {
	out := make([]model.BusRecord, len(readings))
	for i, r := range readings {
		out[i] = model.NewBusRecord(r)
	}
	return out
}

// Prioritize returns a copy of records sorted by ascending SoC with
// AssignedToCharge and DispatchRisk populated. The input slice is left
// untouched.
func Prioritize(records []model.BusRecord, cfg model.DepotConfig) ([]model.BusRecord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sorted := make([]model.BusRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SoC < sorted[j].SoC
	})

	assign := min(cfg.NumChargers, len(sorted))
	for i := range sorted {
		sorted[i].AssignedToCharge = i < assign
		sorted[i].DispatchRisk = sorted[i].SoC < cfg.MinDispatchSoC
	}
	return sorted, nil
}

// AssignedIDs lists the buses assigned to a charger in priority order.
func AssignedIDs(records []model.BusRecord) []string {
	var ids []string
	for _, r := range records {
		if r.AssignedToCharge {
			ids = append(ids, r.BusID)
		}
	}
	return ids
}
