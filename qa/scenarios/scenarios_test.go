package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no scenario files")
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			res, err := Run(context.Background(), sc)
			require.NoError(t, err)
			check(t, sc, res)
		})
	}
}

func check(t *testing.T, sc *Scenario, res *Result) {
	t.Helper()
	sum := res.Engine.Statistics().Summary()
	assert.Equal(t, sc.Expected.PickedUp, sum.PickedUp, "picked up")
	assert.Equal(t, sc.Expected.Delivered, sum.Delivered, "delivered")
	assert.Equal(t, sc.Expected.Refuels, sum.Refuels, "refuels")
	waiting, _, _ := res.Engine.Ledger().Counts()
	assert.Equal(t, sc.Expected.Waiting, waiting, "waiting")
	require.NoError(t, res.Engine.Ledger().Check())

	for _, want := range sc.Expected.Taxis {
		got, err := res.Engine.Taxi(want.ID)
		require.NoError(t, err)
		if want.State != nil {
			assert.Equal(t, *want.State, got.State.String(), "%s state", want.ID)
		}
		if want.Node != nil {
			n, ok := res.World.NodeAt(want.ID)
			assert.True(t, ok, "%s on a node", want.ID)
			assert.Equal(t, roadgraph.NodeID(*want.Node), n, "%s node", want.ID)
		}
		if want.Fuel != nil {
			assert.Equal(t, *want.Fuel, got.Fuel, "%s fuel", want.ID)
		}
		if want.Distance != nil {
			assert.Equal(t, *want.Distance, got.Distance, "%s distance", want.ID)
		}
		if want.Odometer != nil {
			assert.InDelta(t, *want.Odometer, got.Odometer, 1e-6, "%s odometer", want.ID)
		}
		if want.Served != nil {
			assert.Equal(t, *want.Served, got.Served, "%s served", want.ID)
		}
	}

	if sc.Expected.Messages != nil {
		counts := map[string]int{}
		for _, p := range res.Published.Snapshot() {
			counts[p.Message.Type]++
		}
		for typ, n := range sc.Expected.Messages {
			assert.Equal(t, n, counts[typ], "%s messages", typ)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString("ticks: [1"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestGraphDef_ExplicitEdges(t *testing.T) {
	d := GraphDef{
		Nodes: []NodeDef{{ID: 0}, {ID: 1, X: 30, Y: 40}},
		Edges: []EdgeDef{{From: 0, To: 1, Both: true}},
	}
	g, err := d.Build()
	require.NoError(t, err)
	assert.True(t, g.HasEdge(1, 0))
	assert.InDelta(t, 50, g.Distance(0, 1), 1e-9)
}
