// Package demand generates the initial fleet, the facilities and the
// customers that appear while a simulation runs. All draws come from one
// seeded source so that a run can be replayed.
package demand

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

const (
	DefaultNewCustomerProb = 0.001
	DefaultMaxTank         = 5000
)

// Config holds the demand and fleet generation parameters.
type Config struct {
	Seed int64 `json:"seed" yaml:"seed"`
	// NewCustomerProb is the chance that one customer appears on a tick.
	NewCustomerProb  float64 `json:"new_customer_prob" yaml:"new_customer_prob"`
	InitialCustomers int     `json:"initial_customers" yaml:"initial_customers"`
	Taxis            int     `json:"taxis" yaml:"taxis"`
	MaxTank          int     `json:"max_tank" yaml:"max_tank"`
	GasStations      int     `json:"gas_stations" yaml:"gas_stations"`
	TaxiBases        int     `json:"taxi_bases" yaml:"taxi_bases"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.NewCustomerProb == 0 {
		c.NewCustomerProb = DefaultNewCustomerProb
	}
	if c.MaxTank == 0 {
		c.MaxTank = DefaultMaxTank
	}
	if c.Taxis == 0 {
		c.Taxis = 1
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.NewCustomerProb < 0 || c.NewCustomerProb > 1 {
		return fmt.Errorf("new_customer_prob must be within [0,1], got %g", c.NewCustomerProb)
	}
	if c.MaxTank < 2 {
		return fmt.Errorf("max_tank must be at least 2, got %d", c.MaxTank)
	}
	if c.Taxis < 0 || c.InitialCustomers < 0 || c.GasStations < 0 || c.TaxiBases < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	return nil
}

// Generator draws fleet and customers over the nodes of a graph.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	nodes []roadgraph.NodeID
	seq   int
}

// New returns a generator seeded with cfg.Seed.
func New(cfg Config, g *roadgraph.Graph) (*Generator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return nil, fmt.Errorf("demand: graph has no nodes")
	}
	ids := make([]roadgraph.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed)), nodes: ids}, nil
}

func (g *Generator) node() roadgraph.NodeID { return g.nodes[g.rng.Intn(len(g.nodes))] }

// Customer draws a customer registered at at with random pickup and dropoff
// nodes.
func (g *Generator) Customer(at time.Duration) model.Customer {
	g.seq++
	return model.Customer{
		ID:           fmt.Sprintf("c%04d", g.seq),
		Pickup:       g.node(),
		Dropoff:      g.node(),
		RegisteredAt: at,
	}
}

// Maybe draws a customer with probability NewCustomerProb.
func (g *Generator) Maybe(at time.Duration) (model.Customer, bool) {
	if g.rng.Float64() >= g.cfg.NewCustomerProb {
		return model.Customer{}, false
	}
	return g.Customer(at), true
}

// InitialCustomers draws the customers present at the start of the run.
func (g *Generator) InitialCustomers() []model.Customer {
	out := make([]model.Customer, g.cfg.InitialCustomers)
	for i := range out {
		out[i] = g.Customer(0)
	}
	return out
}

// Taxis draws the fleet. Tank sizes lie in [max/2, max) and the initial fuel
// is a third of the tank plus up to half of it, never above the tank size.
func (g *Generator) Taxis() []model.Taxi {
	out := make([]model.Taxi, g.cfg.Taxis)
	half := g.cfg.MaxTank / 2
	for i := range out {
		tank := half + g.rng.Intn(half)
		fuel := tank / 3
		if tank/2 > 0 {
			fuel += g.rng.Intn(tank / 2)
		}
		if fuel > tank {
			fuel = tank
		}
		out[i] = model.Taxi{
			ID:       fmt.Sprintf("taxi%03d", i+1),
			Node:     g.node(),
			Fuel:     fuel,
			Capacity: tank,
		}
	}
	return out
}

// Facilities places the configured number of gas stations and taxi bases on
// random nodes.
func (g *Generator) Facilities() []model.Facility {
	var out []model.Facility
	for i := 0; i < g.cfg.GasStations; i++ {
		out = append(out, model.Facility{ID: fmt.Sprintf("gas%02d", i+1), Kind: model.GasStation, Node: g.node()})
	}
	for i := 0; i < g.cfg.TaxiBases; i++ {
		out = append(out, model.Facility{ID: fmt.Sprintf("base%02d", i+1), Kind: model.TaxiBase, Node: g.node()})
	}
	return out
}
