// Package field scores road graph nodes with a potential field: waiting
// customers attract, free competing taxis repel.
package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// Config holds the field parameters.
type Config struct {
	// SignalDrop is the exponent of the distance decay.
	SignalDrop float64 `json:"signal_drop" yaml:"signal_drop"`
	// TaxiVsCustomer weights competitor repulsion against demand attraction.
	TaxiVsCustomer float64 `json:"taxi_vs_customer" yaml:"taxi_vs_customer"`
	// Epsilon is the strength at or below which a direction counts as void.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
}

// DefaultEpsilon is used when no epsilon is configured.
const DefaultEpsilon = 1e-9

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.SignalDrop == 0 {
		c.SignalDrop = 2
	}
	if c.Epsilon == 0 {
		c.Epsilon = DefaultEpsilon
	}
}

// Validate checks the parameter ranges.
func (c Config) Validate() error {
	if c.SignalDrop <= 0 || math.IsNaN(c.SignalDrop) {
		return fmt.Errorf("signal_drop must be positive")
	}
	if c.TaxiVsCustomer < 0 || math.IsNaN(c.TaxiVsCustomer) {
		return fmt.Errorf("taxi_vs_customer must not be negative")
	}
	if c.Epsilon < 0 {
		return fmt.Errorf("epsilon must not be negative")
	}
	return nil
}

// Candidate is a node the agent may move to next.
type Candidate struct {
	Node roadgraph.NodeID
	Pos  r2.Vec
}

// Direction is the selected neighbor and the field strength there.
type Direction struct {
	Node     roadgraph.NodeID
	Strength float64
}

// Evaluator computes field scores. It holds no state besides its config.
type Evaluator struct {
	cfg Config
}

// New returns an Evaluator after validating cfg.
func New(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{cfg: cfg}, nil
}

// Config returns the evaluator configuration.
func (e *Evaluator) Config() Config { return e.cfg }

// Score returns the field value at p. A customer or competitor located
// exactly at p is an infinite attractor or repeller; when both kinds are
// present the larger count wins and equal counts fall back to the finite
// terms.
func (e *Evaluator) Score(p r2.Vec, customers, competitors []r2.Vec) float64 {
	var attract float64
	hits := 0
	for _, c := range customers {
		d := r2.Norm(r2.Sub(c, p))
		if d == 0 {
			hits++
			continue
		}
		attract += 1 / math.Pow(d, e.cfg.SignalDrop)
	}
	var repel float64
	if e.cfg.TaxiVsCustomer > 0 {
		for _, a := range competitors {
			d := r2.Norm(r2.Sub(a, p))
			if d == 0 {
				hits--
				continue
			}
			repel += 1 / math.Pow(d, e.cfg.SignalDrop)
		}
	}
	switch {
	case hits > 0:
		return math.Inf(1)
	case hits < 0:
		return math.Inf(-1)
	}
	return attract - e.cfg.TaxiVsCustomer*repel
}

// ChooseDirection returns the candidate with the highest score. Ties keep
// the earliest candidate. ok is false when there are no candidates.
func (e *Evaluator) ChooseDirection(cands []Candidate, customers, competitors []r2.Vec) (Direction, bool) {
	if len(cands) == 0 {
		return Direction{}, false
	}
	best := Direction{Node: cands[0].Node, Strength: e.Score(cands[0].Pos, customers, competitors)}
	for _, c := range cands[1:] {
		s := e.Score(c.Pos, customers, competitors)
		if s > best.Strength {
			best = Direction{Node: c.Node, Strength: s}
		}
	}
	return best, true
}

// Void reports whether d carries no usable attraction.
func (e *Evaluator) Void(d Direction) bool {
	return d.Strength <= e.cfg.Epsilon
}
