package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxigrad/config"
	coremqtt "github.com/kilianp07/taxigrad/core/mqtt"
	"github.com/kilianp07/taxigrad/core/roadgraph"
	"github.com/kilianp07/taxigrad/core/taxistatus"
	"github.com/kilianp07/taxigrad/infra/mqtt"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.TripLog = config.TripLogConfig{Backend: "none"}
	cfg.Simulation.RandomMap = roadgraph.RandomConfig{Nodes: 12, Density: 0.5, MapSize: 1000}
	cfg.Simulation.EndSeconds = 5
	cfg.Simulation.Demand.Seed = 3
	cfg.Simulation.Demand.Taxis = 2
	cfg.Simulation.Demand.InitialCustomers = 2
	cfg.Simulation.Demand.TaxiBases = 1
	cfg.Simulation.Demand.GasStations = 1
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestService_RunsToEnd(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	require.NoError(t, svc.Run(context.Background()))
	assert.Equal(t, 5*time.Second, svc.Now())
	assert.Len(t, svc.Status().List(taxistatus.Filter{}), 2)
	assert.Len(t, svc.World.Facilities(), 2)
	assert.GreaterOrEqual(t, svc.Engine.Statistics().Summary().Customers, 2)
}

func TestService_CanceledContextStopsCleanly(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.Run(ctx))
	assert.Zero(t, svc.Now())
}

func TestService_BrokerRequestsAreRegistered(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	svc, err := New(testConfig(t), WithBroker(pub))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	require.NoError(t, svc.Step())
	pub.Receive(coremqtt.CustomerRequest{ID: "r1", Pickup: 0, Dropoff: 5})
	pub.Receive(coremqtt.CustomerRequest{ID: "r2", Pickup: 0, Dropoff: 99})
	_ = svc.Step()

	c, ok := svc.Engine.Customer("r1")
	require.True(t, ok)
	assert.Equal(t, time.Second, c.RegisteredAt)
	_, ok = svc.Engine.Customer("r2")
	assert.False(t, ok, "requests for unknown nodes are rejected")
}

func TestService_MapFileFacilitiesAndExport(t *testing.T) {
	dir := t.TempDir()
	g, err := roadgraph.Grid(3, 3, 100)
	require.NoError(t, err)
	mapPath := filepath.Join(dir, "grid.dotapos")
	require.NoError(t, roadgraph.WriteFile(mapPath, g))

	cfg := testConfig(t)
	cfg.Simulation.MapFile = mapPath
	cfg.Simulation.NodeCount = 9
	cfg.Simulation.Facilities = []config.FacilityConfig{
		{ID: "gas", Kind: "gas_station", Node: 4},
		{ID: "base", Kind: "taxi_base", Node: 0},
	}
	cfg.Simulation.ExportPath = filepath.Join(dir, "customers.csv")
	require.NoError(t, cfg.Validate())

	svc, err := New(cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	assert.Equal(t, 9, svc.Engine.Graph().Len())
	assert.Len(t, svc.World.Facilities(), 2)

	require.NoError(t, svc.Run(context.Background()))
	data, err := os.ReadFile(cfg.Simulation.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "customer_id,registered_s")
}

func TestNew_BadMap(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.MapFile = filepath.Join(t.TempDir(), "missing.dotapos")
	cfg.Simulation.NodeCount = 3
	_, err := New(cfg)
	assert.Error(t, err)
}
