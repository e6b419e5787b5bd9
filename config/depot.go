package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/busdepot/core/model"
)

// DepotConfig holds the prioritization parameters and the evaluation
// cadence.
type DepotConfig struct {
	// Pointers keep an explicit 0 through SetDefaults.
	NumChargers     *int     `json:"num_chargers"`
	MinDispatchSoC  *float64 `json:"min_dispatch_soc"`
	IntervalSeconds int      `json:"interval_seconds"`
}

const (
	DefaultNumChargers     = 15
	DefaultMinDispatchSoC  = 60.0
	DefaultIntervalSeconds = 10
)

// SetDefaults applies the values used by depot operators out of the box.
func (c *DepotConfig) SetDefaults() {
	if c.NumChargers == nil {
		n := DefaultNumChargers
		c.NumChargers = &n
	}
	if c.MinDispatchSoC == nil {
		soc := DefaultMinDispatchSoC
		c.MinDispatchSoC = &soc
	}
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = DefaultIntervalSeconds
	}
}

// Validate checks the prioritization parameters.
func (c DepotConfig) Validate() error {
	if c.IntervalSeconds < 0 {
		return fmt.Errorf("interval_seconds must be positive, got %d", c.IntervalSeconds)
	}
	return c.Model().Validate()
}

// Model converts the section to the prioritizer configuration.
func (c DepotConfig) Model() model.DepotConfig {
	var out model.DepotConfig
	if c.NumChargers != nil {
		out.NumChargers = *c.NumChargers
	}
	if c.MinDispatchSoC != nil {
		out.MinDispatchSoC = *c.MinDispatchSoC
	}
	return out
}

// Interval returns the evaluation period.
func (c DepotConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return DefaultIntervalSeconds * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}
