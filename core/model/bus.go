package model

import (
	"fmt"
	"math"
)

// Reading is a single telemetry sample for a bus parked at the depot.
type Reading struct {
	BusID               string  `json:"bus_id"`
	SoC                 float64 `json:"state_of_charge"` // percentage between 0 and 100
	RequiresMaintenance bool    `json:"requires_maintenance"`
}

// Validate rejects readings the prioritizer cannot order: an empty bus id or
// a state of charge that is NaN, infinite or outside [0,100].
func (r Reading) Validate() error {
	if r.BusID == "" {
		return fmt.Errorf("%w: empty bus_id", ErrInvalidReading)
	}
	if math.IsNaN(r.SoC) || math.IsInf(r.SoC, 0) {
		return fmt.Errorf("%w: %s: state_of_charge must be a finite number", ErrInvalidReading, r.BusID)
	}
	if r.SoC < 0 || r.SoC > 100 {
		return fmt.Errorf("%w: %s: state_of_charge %g outside [0,100]", ErrInvalidReading, r.BusID, r.SoC)
	}
	return nil
}

// BusRecord is the per-cycle view of a bus. AssignedToCharge and DispatchRisk
// are computed by the prioritizer and never carried over between cycles.
type BusRecord struct {
	BusID               string  `json:"bus_id"`
	SoC                 float64 `json:"state_of_charge"`
	RequiresMaintenance bool    `json:"requires_maintenance"`
	AssignedToCharge    bool    `json:"assigned_to_charge"`
	DispatchRisk        bool    `json:"dispatch_risk"`
}

// NewBusRecord builds a record with no computed fields from a reading.
func NewBusRecord(r Reading) BusRecord {
	return BusRecord{BusID: r.BusID, SoC: r.SoC, RequiresMaintenance: r.RequiresMaintenance}
}

// DepotConfig holds the capacity constraint and dispatch threshold for one
// evaluation run.
type DepotConfig struct {
	NumChargers    int     `json:"num_chargers"`
	MinDispatchSoC float64 `json:"min_dispatch_soc"`
}

// Validate reports configurations the prioritizer cannot work with. A
// threshold outside [0,100] is accepted as-is.
func (c DepotConfig) Validate() error {
	if c.NumChargers < 0 {
		return fmt.Errorf("%w: num_chargers must not be negative, got %d", ErrInvalidConfiguration, c.NumChargers)
	}
	if math.IsNaN(c.MinDispatchSoC) || math.IsInf(c.MinDispatchSoC, 0) {
		return fmt.Errorf("%w: min_dispatch_soc must be a finite number", ErrInvalidConfiguration)
	}
	return nil
}
