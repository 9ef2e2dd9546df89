package roadgraph

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// RandomConfig describes a random map.
type RandomConfig struct {
	Nodes   int     `json:"nodes"`
	Density float64 `json:"density"`
	MapSize float64 `json:"map_size"`
}

// SetDefaults applies the historical generator settings.
func (c *RandomConfig) SetDefaults() {
	if c.Nodes == 0 {
		c.Nodes = 10
	}
	if c.Density == 0 {
		c.Density = 0.3
	}
	if c.MapSize == 0 {
		c.MapSize = 3000
	}
}

// Validate checks the generator parameters.
func (c RandomConfig) Validate() error {
	if c.Nodes <= 0 {
		return fmt.Errorf("nodes must be positive")
	}
	if c.Density < 0 || c.Density > 1 {
		return fmt.Errorf("density must be within [0,1]")
	}
	if c.MapSize <= 0 {
		return fmt.Errorf("map_size must be positive")
	}
	return nil
}

// Random places nodes uniformly in a square map and links every pair in both
// directions with probability Density. Coordinates are rounded to one decimal
// so that a written map loads back to the same positions.
func Random(cfg RandomConfig, rng *rand.Rand) (*Graph, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := New()
	for i := 0; i < cfg.Nodes; i++ {
		pos := r2.Vec{X: round1(rng.Float64() * cfg.MapSize), Y: round1(rng.Float64() * cfg.MapSize)}
		if err := g.AddNode(NodeID(i), pos); err != nil {
			return nil, err
		}
	}
	for i := 0; i < cfg.Nodes; i++ {
		for j := i + 1; j < cfg.Nodes; j++ {
			if rng.Float64() >= cfg.Density {
				continue
			}
			a, b := NodeID(i), NodeID(j)
			d := g.Distance(a, b)
			if err := g.AddEdge(a, b, d); err != nil {
				return nil, err
			}
			if err := g.AddEdge(b, a, d); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// Grid builds a cols x rows lattice with bidirectional edges between
// horizontally and vertically adjacent nodes. Node ids grow row by row.
func Grid(cols, rows int, spacing float64) (*Graph, error) {
	if cols <= 0 || rows <= 0 || spacing <= 0 {
		return nil, fmt.Errorf("grid dimensions and spacing must be positive")
	}
	g := New()
	id := func(c, r int) NodeID { return NodeID(r*cols + c) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if err := g.AddNode(id(c, r), r2.Vec{X: float64(c) * spacing, Y: float64(r) * spacing}); err != nil {
				return nil, err
			}
		}
	}
	link := func(a, b NodeID) error {
		if err := g.AddEdge(a, b, spacing); err != nil {
			return err
		}
		return g.AddEdge(b, a, spacing)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				if err := link(id(c, r), id(c+1, r)); err != nil {
					return nil, err
				}
			}
			if r+1 < rows {
				if err := link(id(c, r), id(c, r+1)); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
