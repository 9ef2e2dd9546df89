package dispatch

import (
	"fmt"

	"github.com/kilianp07/taxigrad/core/field"
	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// Config defines engine settings.
type Config struct {
	Field         field.Config       `json:"field" yaml:"field"`
	LowFuelRatio  float64            `json:"low_fuel_ratio" yaml:"low_fuel_ratio"`
	NeighborOrder roadgraph.Ordering `json:"neighbor_order" yaml:"neighbor_order"`
	// CheckLedger runs the ledger consistency check after every tick.
	CheckLedger bool `json:"check_ledger" yaml:"check_ledger"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	c.Field.SetDefaults()
	if c.LowFuelRatio == 0 {
		c.LowFuelRatio = model.DefaultLowFuelRatio
	}
	if c.NeighborOrder == "" {
		c.NeighborOrder = roadgraph.OrderFile
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if err := c.Field.Validate(); err != nil {
		return err
	}
	if c.LowFuelRatio < 0 || c.LowFuelRatio > 1 {
		return fmt.Errorf("low_fuel_ratio must be within [0,1], got %g", c.LowFuelRatio)
	}
	if !c.NeighborOrder.Valid() {
		return fmt.Errorf("unknown neighbor_order %q", c.NeighborOrder)
	}
	return nil
}
