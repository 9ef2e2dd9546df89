package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/taxigrad/core/dispatch"
	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

type GridDef struct {
	Cols    int     `yaml:"cols"`
	Rows    int     `yaml:"rows"`
	Spacing float64 `yaml:"spacing"`
}

type NodeDef struct {
	ID int64   `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

type EdgeDef struct {
	From   int64   `yaml:"from"`
	To     int64   `yaml:"to"`
	Length float64 `yaml:"length"`
	// Both adds the reverse edge as well.
	Both bool `yaml:"both"`
}

// GraphDef is either a grid or an explicit node and edge list.
type GraphDef struct {
	Grid  *GridDef  `yaml:"grid,omitempty"`
	Nodes []NodeDef `yaml:"nodes,omitempty"`
	Edges []EdgeDef `yaml:"edges,omitempty"`
}

func (d GraphDef) Build() (*roadgraph.Graph, error) {
	if d.Grid != nil {
		return roadgraph.Grid(d.Grid.Cols, d.Grid.Rows, d.Grid.Spacing)
	}
	g := roadgraph.New()
	for _, n := range d.Nodes {
		if err := g.AddNode(roadgraph.NodeID(n.ID), r2.Vec{X: n.X, Y: n.Y}); err != nil {
			return nil, err
		}
	}
	for _, e := range d.Edges {
		a, b := roadgraph.NodeID(e.From), roadgraph.NodeID(e.To)
		l := e.Length
		if l == 0 {
			l = g.Distance(a, b)
		}
		if err := g.AddEdge(a, b, l); err != nil {
			return nil, err
		}
		if e.Both {
			if err := g.AddEdge(b, a, l); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

type FacilityDef struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Node int64  `yaml:"node"`
}

func (f FacilityDef) ToModel() (model.Facility, error) {
	kind, ok := model.ParseFacilityKind(f.Kind)
	if !ok {
		return model.Facility{}, fmt.Errorf("facility %s: unknown kind %q", f.ID, f.Kind)
	}
	return model.Facility{ID: f.ID, Kind: kind, Node: roadgraph.NodeID(f.Node)}, nil
}

type TaxiDef struct {
	ID       string `yaml:"id"`
	Node     int64  `yaml:"node"`
	Fuel     int    `yaml:"fuel"`
	Capacity int    `yaml:"capacity"`
}

func (t TaxiDef) ToModel() model.Taxi {
	return model.Taxi{ID: t.ID, Node: roadgraph.NodeID(t.Node), Fuel: t.Fuel, Capacity: t.Capacity}
}

type CustomerDef struct {
	ID      string `yaml:"id"`
	Pickup  int64  `yaml:"pickup"`
	Dropoff int64  `yaml:"dropoff"`
	// Tick is the tick at the start of which the customer appears.
	Tick int `yaml:"tick"`
}

// TaxiExpect lists the final values checked for one taxi. Nil fields are
// not checked.
type TaxiExpect struct {
	ID       string   `yaml:"id"`
	State    *string  `yaml:"state,omitempty"`
	Node     *int64   `yaml:"node,omitempty"`
	Fuel     *int     `yaml:"fuel,omitempty"`
	Distance *int     `yaml:"distance,omitempty"`
	Odometer *float64 `yaml:"odometer,omitempty"`
	Served   *int     `yaml:"served,omitempty"`
}

type Expected struct {
	PickedUp  int          `yaml:"picked_up"`
	Delivered int          `yaml:"delivered"`
	Refuels   int          `yaml:"refuels"`
	Waiting   int          `yaml:"waiting"`
	Taxis     []TaxiExpect `yaml:"taxis"`
	// Messages counts the broker messages per type.
	Messages map[string]int `yaml:"messages,omitempty"`
}

type Scenario struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Graph       GraphDef        `yaml:"graph"`
	Engine      dispatch.Config `yaml:"engine"`
	Speed       float64         `yaml:"speed"`
	TickMS      int             `yaml:"tick_ms"`
	Ticks       int             `yaml:"ticks"`
	Facilities  []FacilityDef   `yaml:"facilities,omitempty"`
	Taxis       []TaxiDef       `yaml:"taxis"`
	Customers   []CustomerDef   `yaml:"customers,omitempty"`
	Expected    Expected        `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.TickMS == 0 {
		sc.TickMS = 1000
	}
	if sc.Ticks <= 0 {
		return nil, fmt.Errorf("%s: ticks must be positive", path)
	}
	return &sc, nil
}
