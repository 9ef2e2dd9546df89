package model

import (
	"fmt"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// DefaultLowFuelRatio is the fraction of the tank below which a taxi heads for
// the nearest gas station.
const DefaultLowFuelRatio = 0.2

// Taxi is the mutable state of one active agent.
type Taxi struct {
	ID string `json:"id"`
	// Node is the last road graph node the taxi was confirmed to stand on.
	Node     roadgraph.NodeID `json:"node"`
	Fuel     int              `json:"fuel"`
	Capacity int              `json:"capacity"`
	// Assigned holds the id of the customer being carried, empty when free.
	Assigned string `json:"assigned,omitempty"`
	// Distance counts ticks spent driving. Idling at a base does not count.
	Distance int `json:"distance"`
	// Odometer is the road length actually covered, in metres.
	Odometer float64 `json:"odometer"`
	Served   int     `json:"served"`
	State    State   `json:"state"`
}

// Validate checks the fuel settings of the taxi.
func (t Taxi) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("taxi id is required")
	}
	if t.Capacity <= 0 {
		return fmt.Errorf("taxi %s: fuel capacity must be positive", t.ID)
	}
	if t.Fuel < 0 || t.Fuel > t.Capacity {
		return fmt.Errorf("taxi %s: fuel %d outside [0,%d]", t.ID, t.Fuel, t.Capacity)
	}
	return nil
}

// Carrying reports whether a customer is assigned to the taxi.
func (t Taxi) Carrying() bool { return t.Assigned != "" }

// LowFuel reports whether the fuel level is below ratio of the capacity.
func (t Taxi) LowFuel(ratio float64) bool {
	return float64(t.Fuel) < float64(t.Capacity)*ratio
}
