// Package roadsim is the in-process world the dispatch engine drives: taxis
// moving along graph edges at constant speed, customers standing on nodes
// and a one-seat cargo per taxi.
package roadsim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// DefaultSpeed is the taxi speed in map units per second.
const DefaultSpeed = 50.0

var (
	ErrUnknownTaxi     = errors.New("roadsim: unknown taxi")
	ErrUnknownCustomer = errors.New("roadsim: unknown customer")
	ErrDuplicate       = errors.New("roadsim: object already placed")
	ErrNotThere        = errors.New("roadsim: taxi is not at the customer position")
	ErrCargoFull       = errors.New("roadsim: cargo is full")
	ErrNotInCargo      = errors.New("roadsim: customer is not in cargo")
)

type vehicle struct {
	node   roadgraph.NodeID
	onNode bool
	from   roadgraph.NodeID
	to     roadgraph.NodeID
	// progress is the distance already covered on from->to.
	progress float64
	cargo    string
}

type parcel struct {
	customer model.Customer
	onRoad   bool
	carrier  string
}

// World implements the host side of the dispatch engine on a road graph.
type World struct {
	mu    sync.RWMutex
	g     *roadgraph.Graph
	speed float64

	taxis      map[string]*vehicle
	parcels    map[string]*parcel
	waiting    map[roadgraph.NodeID][]string
	facilities []model.Facility
}

// New returns an empty world on g. A non-positive speed selects DefaultSpeed.
func New(g *roadgraph.Graph, speed float64) *World {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	return &World{
		g:       g,
		speed:   speed,
		taxis:   make(map[string]*vehicle),
		parcels: make(map[string]*parcel),
		waiting: make(map[roadgraph.NodeID][]string),
	}
}

// AddFacility registers a gas station or taxi base.
func (w *World) AddFacility(f model.Facility) error {
	if _, ok := w.g.Node(f.Node); !ok {
		return fmt.Errorf("facility %s: %w: %d", f.ID, roadgraph.ErrUnknownNode, f.Node)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range w.facilities {
		if o.ID == f.ID {
			return fmt.Errorf("%w: facility %s", ErrDuplicate, f.ID)
		}
	}
	w.facilities = append(w.facilities, f)
	return nil
}

// Facilities returns the registered facilities in registration order.
func (w *World) Facilities() []model.Facility {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]model.Facility, len(w.facilities))
	copy(out, w.facilities)
	return out
}

// NearestFacility returns the facility of kind closest to pos by straight
// line distance. Ties keep the earliest registered facility.
func (w *World) NearestFacility(pos r2.Vec, kind model.FacilityKind) (model.Facility, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var (
		best  model.Facility
		bestD float64
		found bool
	)
	for _, f := range w.facilities {
		if f.Kind != kind {
			continue
		}
		p, _ := w.g.Position(f.Node)
		d := r2.Norm(r2.Sub(p, pos))
		if !found || d < bestD {
			best, bestD, found = f, d, true
		}
	}
	return best, found
}

// PlaceTaxi puts a taxi on node.
func (w *World) PlaceTaxi(id string, node roadgraph.NodeID) error {
	if _, ok := w.g.Node(node); !ok {
		return fmt.Errorf("taxi %s: %w: %d", id, roadgraph.ErrUnknownNode, node)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.taxis[id]; ok {
		return fmt.Errorf("%w: taxi %s", ErrDuplicate, id)
	}
	w.taxis[id] = &vehicle{node: node, onNode: true}
	return nil
}

// PlaceCustomer puts a customer on its pickup node.
func (w *World) PlaceCustomer(c model.Customer) error {
	if _, ok := w.g.Node(c.Pickup); !ok {
		return fmt.Errorf("customer %s: %w: %d", c.ID, roadgraph.ErrUnknownNode, c.Pickup)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.parcels[c.ID]; ok {
		return fmt.Errorf("%w: customer %s", ErrDuplicate, c.ID)
	}
	w.parcels[c.ID] = &parcel{customer: c, onRoad: true}
	w.waiting[c.Pickup] = append(w.waiting[c.Pickup], c.ID)
	return nil
}

// RemoveCustomer takes a customer out of the world, from the road or from a
// cargo.
func (w *World) RemoveCustomer(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.parcels[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, id)
	}
	if p.onRoad {
		w.unwait(p.customer.Pickup, id)
	} else if v, ok := w.taxis[p.carrier]; ok {
		v.cargo = ""
	}
	delete(w.parcels, id)
	return nil
}

// Unload puts a carried customer back on the road at its pickup node.
func (w *World) Unload(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.parcels[id]
	if !ok || p.onRoad {
		return fmt.Errorf("%w: %s", ErrNotInCargo, id)
	}
	if v, ok := w.taxis[p.carrier]; ok {
		v.cargo = ""
	}
	p.onRoad = true
	p.carrier = ""
	w.waiting[p.customer.Pickup] = append(w.waiting[p.customer.Pickup], id)
	return nil
}

func (w *World) unwait(node roadgraph.NodeID, id string) {
	ids := w.waiting[node]
	for i, o := range ids {
		if o == id {
			w.waiting[node] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(w.waiting[node]) == 0 {
		delete(w.waiting, node)
	}
}

// WaitingAt lists customers on the road at node in placement order.
func (w *World) WaitingAt(node roadgraph.NodeID) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := w.waiting[node]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Contains reports whether the customer is on the road or in a cargo.
func (w *World) Contains(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.parcels[id]
	return ok
}

// InCargo reports whether taxi carries the customer.
func (w *World) InCargo(taxiID, customerID string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.taxis[taxiID]
	return ok && customerID != "" && v.cargo == customerID
}

// Pickup loads a customer standing on the taxi's node.
func (w *World) Pickup(taxiID, customerID string, _ time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.taxis[taxiID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaxi, taxiID)
	}
	p, ok := w.parcels[customerID]
	if !ok || !p.onRoad {
		return fmt.Errorf("%w: %s", ErrUnknownCustomer, customerID)
	}
	if v.cargo != "" {
		return fmt.Errorf("%w: taxi %s carries %s", ErrCargoFull, taxiID, v.cargo)
	}
	if !v.onNode || v.node != p.customer.Pickup {
		return fmt.Errorf("%w: taxi %s, customer %s", ErrNotThere, taxiID, customerID)
	}
	w.unwait(p.customer.Pickup, customerID)
	p.onRoad = false
	p.carrier = taxiID
	v.cargo = customerID
	return nil
}

// Deliver unloads a customer at its dropoff node. Delivered customers leave
// the world.
func (w *World) Deliver(taxiID, customerID string, _ time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.taxis[taxiID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaxi, taxiID)
	}
	if v.cargo != customerID || customerID == "" {
		return fmt.Errorf("%w: %s", ErrNotInCargo, customerID)
	}
	p := w.parcels[customerID]
	if !v.onNode || v.node != p.customer.Dropoff {
		return fmt.Errorf("%w: taxi %s, dropoff of %s", ErrNotThere, taxiID, customerID)
	}
	v.cargo = ""
	delete(w.parcels, customerID)
	return nil
}

// Position returns the position of a taxi, interpolated along the current
// edge when it is between nodes.
func (w *World) Position(taxiID string) (r2.Vec, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.taxis[taxiID]
	if !ok {
		return r2.Vec{}, fmt.Errorf("%w: %s", ErrUnknownTaxi, taxiID)
	}
	return w.position(v), nil
}

func (w *World) position(v *vehicle) r2.Vec {
	if v.onNode {
		p, _ := w.g.Position(v.node)
		return p
	}
	a, _ := w.g.Position(v.from)
	b, _ := w.g.Position(v.to)
	l := w.g.Distance(v.from, v.to)
	if l == 0 {
		return b
	}
	return r2.Add(a, r2.Scale(v.progress/l, r2.Sub(b, a)))
}

// NodeAt returns the node the taxi stands on.
func (w *World) NodeAt(taxiID string) (roadgraph.NodeID, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.taxis[taxiID]
	if !ok || !v.onNode {
		return 0, false
	}
	return v.node, true
}
