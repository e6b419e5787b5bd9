package telemetry

import (
	"context"

	"github.com/kilianp07/busdepot/core/model"
)

// StaticProvider always returns the same readings.
type StaticProvider struct {
	readings []model.Reading
}

// NewStaticProvider copies readings into a new provider.
func NewStaticProvider(readings []model.Reading) *StaticProvider {
	cp := make([]model.Reading, len(readings))
	copy(cp, readings)
	return &StaticProvider{readings: cp}
}

// Snapshot implements telemetry.Provider.
func (p *StaticProvider) Snapshot(context.Context) ([]model.Reading, error) {
	cp := make([]model.Reading, len(p.readings))
	copy(cp, p.readings)
	return cp, nil
}
