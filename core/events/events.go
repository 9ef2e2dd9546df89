package events

import (
	"time"

	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// PickupEvent is published when a taxi picks up a customer.
type PickupEvent struct {
	TaxiID     string
	CustomerID string
	Node       roadgraph.NodeID
	Wait       time.Duration
	At         time.Duration
}

// DeliveryEvent is published when a customer reaches its dropoff node.
type DeliveryEvent struct {
	TaxiID     string
	CustomerID string
	Node       roadgraph.NodeID
	Trip       time.Duration
	At         time.Duration
}

// RefuelEvent is published when a taxi refuels.
type RefuelEvent struct {
	TaxiID    string
	StationID string
	Node      roadgraph.NodeID
	FuelLevel int
	At        time.Duration
}

// StateEvent is published when the dispatch state of a taxi changes.
type StateEvent struct {
	TaxiID string
	From   model.State
	To     model.State
	At     time.Duration
}

// StepFailedEvent reports an isolated failure of one agent step.
type StepFailedEvent struct {
	TaxiID string
	Err    error
	At     time.Duration
}
