package telemetry

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/kilianp07/busdepot/core/model"
)

const (
	defaultBuses          = 30
	defaultSeed           = 42
	minSyntheticSoC       = 20
	maxSyntheticSoC       = 100
	maintenanceRate       = 0.2
	syntheticBusIDPattern = "Bus_%d"
)

// RandomConfig configures the synthetic telemetry feed.
type RandomConfig struct {
	Buses int   `json:"buses"`
	Seed  int64 `json:"seed"`
	// Reseed restarts the generator from Seed on every snapshot so each
	// cycle observes the same fleet.
	Reseed bool `json:"reseed"`
}

// RandomProvider generates synthetic readings: SoC is a uniform integer in
// [20,100) and one bus in five requires maintenance.
type RandomProvider struct {
	mu     sync.Mutex
	rng    *rand.Rand
	buses  int
	seed   int64
	reseed bool
}

// NewRandomProvider creates a provider from cfg, applying defaults for zero
// values.
func NewRandomProvider(cfg RandomConfig) (*RandomProvider, error) {
	if cfg.Buses < 0 {
		return nil, fmt.Errorf("random telemetry: buses must not be negative, got %d", cfg.Buses)
	}
	if cfg.Buses == 0 {
		cfg.Buses = defaultBuses
	}
	if cfg.Seed == 0 {
		cfg.Seed = defaultSeed
	}
	return &RandomProvider{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		buses:  cfg.Buses,
		seed:   cfg.Seed,
		reseed: cfg.Reseed,
	}, nil
}

// Snapshot implements telemetry.Provider.
func (p *RandomProvider) Snapshot(ctx context.Context) ([]model.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reseed {
		p.rng.Seed(p.seed)
	}
	out := make([]model.Reading, p.buses)
	for i := range out {
		out[i] = model.Reading{
			BusID: fmt.Sprintf(syntheticBusIDPattern, i+1),
			SoC:   float64(minSyntheticSoC + p.rng.Intn(maxSyntheticSoC-minSyntheticSoC)),
		}
	}
	for i := range out {
		out[i].RequiresMaintenance = p.rng.Float64() < maintenanceRate
	}
	return out, nil
}
