package dispatch

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// Host is the world the engine drives: road movement, facility lookup and
// the customer container of each taxi.
type Host interface {
	// Position returns the current position of a taxi, possibly mid-edge.
	Position(taxiID string) (r2.Vec, error)
	// NodeAt returns the node a taxi stands on exactly.
	NodeAt(taxiID string) (roadgraph.NodeID, bool)
	// MoveToward advances a taxi toward target within the lapse and returns
	// the distance covered.
	MoveToward(taxiID string, target roadgraph.NodeID, lapse model.TimeLapse) (float64, error)
	// MoveShortestPath advances a taxi along the shortest path to target.
	MoveShortestPath(taxiID string, target roadgraph.NodeID, lapse model.TimeLapse) (float64, error)
	NearestFacility(pos r2.Vec, kind model.FacilityKind) (model.Facility, bool)
	// WaitingAt lists the customers standing on node, in placement order.
	WaitingAt(node roadgraph.NodeID) []string
	Pickup(taxiID, customerID string, at time.Duration) error
	Deliver(taxiID, customerID string, at time.Duration) error
	// Contains reports whether the customer is still part of the world.
	Contains(customerID string) bool
	InCargo(taxiID, customerID string) bool
	PlaceCustomer(c model.Customer) error
	PlaceTaxi(taxiID string, node roadgraph.NodeID) error
}
