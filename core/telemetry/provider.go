// Package telemetry defines the source of per-bus readings consumed by each
// evaluation cycle.
package telemetry

import (
	"context"

	"github.com/kilianp07/busdepot/core/factory"
	"github.com/kilianp07/busdepot/core/model"
)

// Provider returns the current readings of every bus at the depot. Each call
// returns a freshly allocated slice that the caller owns.
type Provider interface {
	Snapshot(ctx context.Context) ([]model.Reading, error)
}

// Closer is implemented by providers holding connections.
type Closer interface {
	Close() error
}

var providerRegistry = factory.NewRegistry[Provider]()

// RegisterProvider adds a provider factory identified by name.
func RegisterProvider(name string, f factory.Factory[Provider]) error {
	return providerRegistry.Register(name, f)
}

// NewProvider creates a Provider from the provided configuration.
func NewProvider(cfg factory.ModuleConfig) (Provider, error) {
	return providerRegistry.Create(cfg)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) ([]model.Reading, error)

// Snapshot implements Provider.
func (f ProviderFunc) Snapshot(ctx context.Context) ([]model.Reading, error) { return f(ctx) }
