package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomProvider_Defaults(t *testing.T) {
	p, err := NewRandomProvider(RandomConfig{})
	require.NoError(t, err)
	got, err := p.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, got, defaultBuses)
	assert.Equal(t, "Bus_1", got[0].BusID)
	assert.Equal(t, "Bus_30", got[29].BusID)
	for _, r := range got {
		assert.GreaterOrEqual(t, r.SoC, 20.0)
		assert.Less(t, r.SoC, 100.0)
		assert.Equal(t, r.SoC, float64(int(r.SoC)), "soc is an integer percentage")
	}
}

func TestRandomProvider_SameSeedSameFleet(t *testing.T) {
	a, err := NewRandomProvider(RandomConfig{Buses: 50, Seed: 7})
	require.NoError(t, err)
	b, err := NewRandomProvider(RandomConfig{Buses: 50, Seed: 7})
	require.NoError(t, err)
	ra, _ := a.Snapshot(context.Background())
	rb, _ := b.Snapshot(context.Background())
	assert.Equal(t, ra, rb)
}

func TestRandomProvider_Reseed(t *testing.T) {
	p, err := NewRandomProvider(RandomConfig{Buses: 20, Seed: 3, Reseed: true})
	require.NoError(t, err)
	first, _ := p.Snapshot(context.Background())
	second, _ := p.Snapshot(context.Background())
	assert.Equal(t, first, second)

	first[0].SoC = -1
	third, _ := p.Snapshot(context.Background())
	assert.NotEqual(t, -1.0, third[0].SoC, "snapshots must not share backing arrays")
}

func TestRandomProvider_MaintenanceShare(t *testing.T) {
	p, err := NewRandomProvider(RandomConfig{Buses: 2000, Seed: 1})
	require.NoError(t, err)
	got, _ := p.Snapshot(context.Background())
	n := 0
	for _, r := range got {
		if r.RequiresMaintenance {
			n++
		}
	}
	share := float64(n) / float64(len(got))
	assert.InDelta(t, 0.2, share, 0.05)
}

func TestRandomProvider_Errors(t *testing.T) {
	_, err := NewRandomProvider(RandomConfig{Buses: -1})
	assert.Error(t, err)

	p, err := NewRandomProvider(RandomConfig{Buses: 3})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
