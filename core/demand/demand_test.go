package demand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

func grid(t *testing.T) *roadgraph.Graph {
	t.Helper()
	g, err := roadgraph.Grid(3, 3, 10)
	require.NoError(t, err)
	return g
}

func TestGenerator_Deterministic(t *testing.T) {
	cfg := Config{Seed: 42, Taxis: 5, InitialCustomers: 3, GasStations: 1, TaxiBases: 2}
	a, err := New(cfg, grid(t))
	require.NoError(t, err)
	b, err := New(cfg, grid(t))
	require.NoError(t, err)
	assert.Equal(t, a.Taxis(), b.Taxis())
	assert.Equal(t, a.Facilities(), b.Facilities())
	assert.Equal(t, a.InitialCustomers(), b.InitialCustomers())
}

func TestGenerator_TankBounds(t *testing.T) {
	g, err := New(Config{Seed: 1, Taxis: 200, MaxTank: 100}, grid(t))
	require.NoError(t, err)
	for _, tx := range g.Taxis() {
		require.NoError(t, tx.Validate())
		assert.GreaterOrEqual(t, tx.Capacity, 50)
		assert.Less(t, tx.Capacity, 100)
		assert.GreaterOrEqual(t, tx.Fuel, tx.Capacity/3)
	}
}

func TestGenerator_Maybe(t *testing.T) {
	g, err := New(Config{Seed: 3, NewCustomerProb: 1}, grid(t))
	require.NoError(t, err)
	c, ok := g.Maybe(0)
	require.True(t, ok)
	assert.Equal(t, "c0001", c.ID)

	g, err = New(Config{Seed: 3, NewCustomerProb: 1e-12}, grid(t))
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		_, ok := g.Maybe(0)
		assert.False(t, ok)
	}
}

func TestConfig_Validate(t *testing.T) {
	c := Config{NewCustomerProb: 2}
	c.SetDefaults()
	require.Error(t, c.Validate())
	c = Config{MaxTank: 1}
	require.Error(t, c.Validate())
}
