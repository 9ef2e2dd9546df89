package model

import (
	"fmt"
	"time"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// Customer is a transport request waiting at a pickup node.
type Customer struct {
	ID           string           `json:"id"`
	Pickup       roadgraph.NodeID `json:"pickup"`
	Dropoff      roadgraph.NodeID `json:"dropoff"`
	RegisteredAt time.Duration    `json:"registered_at"`
}

// Validate checks that the customer can be placed on a road graph.
func (c Customer) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("customer id is required")
	}
	if c.RegisteredAt < 0 {
		return fmt.Errorf("customer %s: negative registration time", c.ID)
	}
	return nil
}
