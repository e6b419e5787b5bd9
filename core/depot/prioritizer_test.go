package depot

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/busdepot/core/model"
)

func exampleFleet() []model.BusRecord {
	return []model.BusRecord{
		{BusID: "A", SoC: 50},
		{BusID: "B", SoC: 20},
		{BusID: "C", SoC: 90},
		{BusID: "D", SoC: 20},
	}
}

func ids(records []model.BusRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.BusID
	}
	return out
}

func randomFleet(rng *rand.Rand, n int) []model.BusRecord {
	out := make([]model.BusRecord, n)
	for i := range out {
		out[i] = model.BusRecord{
			BusID:               string(rune('a'+i%26)) + string(rune('0'+i/26)),
			SoC:                 float64(20 + rng.Intn(10)*8),
			RequiresMaintenance: rng.Float64() < 0.2,
		}
	}
	return out
}

func TestPrioritize_Example(t *testing.T) {
	out, err := Prioritize(exampleFleet(), model.DepotConfig{NumChargers: 2, MinDispatchSoC: 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D", "A", "C"}, ids(out))
	assert.Equal(t, []string{"B", "D"}, AssignedIDs(out))

	risk := map[string]bool{}
	for _, r := range out {
		risk[r.BusID] = r.DispatchRisk
	}
	assert.Equal(t, map[string]bool{"A": true, "B": true, "C": false, "D": true}, risk)
}

func TestPrioritize_DoesNotMutateInput(t *testing.T) {
	in := exampleFleet()
	_, err := Prioritize(in, model.DepotConfig{NumChargers: 2, MinDispatchSoC: 60})
	require.NoError(t, err)
	assert.Equal(t, exampleFleet(), in)
}

func TestPrioritize_ZeroChargers(t *testing.T) {
	out, err := Prioritize(exampleFleet(), model.DepotConfig{NumChargers: 0, MinDispatchSoC: 60})
	require.NoError(t, err)
	assert.Empty(t, AssignedIDs(out))
	for _, r := range out {
		assert.Equal(t, r.SoC < 60, r.DispatchRisk, r.BusID)
	}
}

func TestPrioritize_MoreChargersThanBuses(t *testing.T) {
	out, err := Prioritize(exampleFleet(), model.DepotConfig{NumChargers: 10, MinDispatchSoC: 60})
	require.NoError(t, err)
	for _, r := range out {
		assert.True(t, r.AssignedToCharge, r.BusID)
	}
}

func TestPrioritize_TieAtBoundaryFirstSeenWins(t *testing.T) {
	in := []model.BusRecord{
		{BusID: "x", SoC: 30},
		{BusID: "y", SoC: 10},
		{BusID: "z", SoC: 30},
		{BusID: "w", SoC: 30},
	}
	out, err := Prioritize(in, model.DepotConfig{NumChargers: 2, MinDispatchSoC: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x", "z", "w"}, ids(out))
	assert.Equal(t, []string{"y", "x"}, AssignedIDs(out))
}

func TestPrioritize_MaintenanceIsInformational(t *testing.T) {
	in := []model.BusRecord{
		{BusID: "m", SoC: 10, RequiresMaintenance: true},
		{BusID: "n", SoC: 80, RequiresMaintenance: true},
		{BusID: "o", SoC: 50},
	}
	out, err := Prioritize(in, model.DepotConfig{NumChargers: 1, MinDispatchSoC: 60})
	require.NoError(t, err)
	assert.Equal(t, "m", out[0].BusID)
	assert.True(t, out[0].AssignedToCharge, "maintenance bus must stay eligible for charging")
	assert.True(t, out[0].RequiresMaintenance)
	assert.False(t, out[2].DispatchRisk, "maintenance bus above threshold is not forced to risk")
	assert.True(t, out[2].RequiresMaintenance)
}

func TestPrioritize_NegativeChargers(t *testing.T) {
	out, err := Prioritize(exampleFleet(), model.DepotConfig{NumChargers: -1, MinDispatchSoC: 60})
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
}

func TestPrioritize_ThresholdOutsideRange(t *testing.T) {
	out, err := Prioritize(exampleFleet(), model.DepotConfig{NumChargers: 1, MinDispatchSoC: 150})
	require.NoError(t, err)
	for _, r := range out {
		assert.True(t, r.DispatchRisk)
	}
	out, err = Prioritize(exampleFleet(), model.DepotConfig{NumChargers: 1, MinDispatchSoC: -5})
	require.NoError(t, err)
	for _, r := range out {
		assert.False(t, r.DispatchRisk)
	}
}

func TestPrioritize_Empty(t *testing.T) {
	out, err := Prioritize(nil, model.DepotConfig{NumChargers: 3, MinDispatchSoC: 60})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPrioritize_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := 1 + rng.Intn(60)
		in := randomFleet(rng, n)
		cfg := model.DepotConfig{NumChargers: rng.Intn(70), MinDispatchSoC: float64(rng.Intn(100))}

		out, err := Prioritize(in, cfg)
		require.NoError(t, err)
		require.Len(t, out, n)

		assert.Len(t, AssignedIDs(out), min(cfg.NumChargers, n))
		for _, r := range out {
			assert.Equal(t, r.SoC < cfg.MinDispatchSoC, r.DispatchRisk)
		}

		// stable: equal SoC keeps input order
		pos := make(map[string]int, n)
		for i, r := range in {
			pos[r.BusID] = i
		}
		for i := 1; i < n; i++ {
			require.LessOrEqual(t, out[i-1].SoC, out[i].SoC)
			if out[i-1].SoC == out[i].SoC {
				require.Less(t, pos[out[i-1].BusID], pos[out[i].BusID])
			}
		}

		again, err := Prioritize(in, cfg)
		require.NoError(t, err)
		assert.Equal(t, out, again)
	}
}

func TestPrioritize_MonotonicInChargers(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	in := randomFleet(rng, 40)
	var prev []string
	for k := 0; k <= 45; k++ {
		out, err := Prioritize(in, model.DepotConfig{NumChargers: k, MinDispatchSoC: 60})
		require.NoError(t, err)
		cur := AssignedIDs(out)
		require.GreaterOrEqual(t, len(cur), len(prev))
		for i, id := range prev {
			assert.Equal(t, id, cur[i], "assigned set must only grow in priority order")
		}
		prev = cur
	}
}

func TestGreedyImplementsPrioritizer(t *testing.T) {
	var p Prioritizer = Greedy{}
	out, err := p.Prioritize(exampleFleet(), model.DepotConfig{NumChargers: 2, MinDispatchSoC: 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D"}, AssignedIDs(out))
}

func TestFromReadings(t *testing.T) {
	recs := FromReadings([]model.Reading{{BusID: "a", SoC: 10, RequiresMaintenance: true}, {BusID: "b", SoC: 20}})
	require.Len(t, recs, 2)
	assert.Equal(t, model.BusRecord{BusID: "a", SoC: 10, RequiresMaintenance: true}, recs[0])
	assert.Equal(t, "b", recs[1].BusID)
}
