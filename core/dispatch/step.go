package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/taxigrad/core/events"
	"github.com/kilianp07/taxigrad/core/field"
	"github.com/kilianp07/taxigrad/core/metrics"
	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
	"github.com/kilianp07/taxigrad/core/stats"
	"github.com/kilianp07/taxigrad/core/taxistatus"
	"github.com/kilianp07/taxigrad/core/triplog"
)

type stepResult struct {
	moved  float64
	idle   bool
	refuel *model.Facility
}

// step runs one decision of the taxi state machine. Every branch ends with
// the unconditional fuel and distance accounting; idling at a base cancels
// it and a refuel overrides the fuel level afterwards.
func (e *Engine) step(a *agent, lapse model.TimeLapse) error {
	t := &a.taxi
	at := lapse.Start
	prev := t.State

	node, onNode := e.host.NodeAt(t.ID)
	if onNode {
		t.Node = node
		e.refreshDirection(a)
	}
	if t.Assigned != "" && !e.host.InCargo(t.ID, t.Assigned) {
		e.abandon(a)
	}

	res, err := e.decide(a, lapse, node, onNode)
	if err != nil {
		return err
	}

	t.Fuel--
	t.Distance++
	if res.idle {
		t.Fuel++
		t.Distance--
	}
	t.Odometer += res.moved
	if res.refuel != nil {
		e.refuel(a, *res.refuel, at)
	}
	e.finish(a, prev, at)
	return nil
}

func (e *Engine) decide(a *agent, lapse model.TimeLapse, node roadgraph.NodeID, onNode bool) (stepResult, error) {
	var res stepResult
	t := &a.taxi
	at := lapse.Start

	if t.Assigned != "" {
		c := e.customers[t.Assigned]
		t.State = model.StateCarrying
		d, err := e.move(t.ID, c.Dropoff, lapse, true)
		if err != nil {
			return res, err
		}
		res.moved = d
		if e.arrived(t.ID, c.Dropoff) {
			if err := e.deliver(a, c, at); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	if t.LowFuel(e.cfg.LowFuelRatio) {
		pos, err := e.host.Position(t.ID)
		if err != nil {
			return res, err
		}
		if gas, ok := e.host.NearestFacility(pos, model.GasStation); ok {
			t.State = model.StateToGas
			d, err := e.move(t.ID, gas.Node, lapse, true)
			if err != nil {
				return res, err
			}
			res.moved = d
			if e.arrived(t.ID, gas.Node) {
				t.State = model.StateAtGas
				res.refuel = &gas
			}
			return res, nil
		}
	}

	if !a.hasDir {
		t.State = model.StateStalled
		return res, nil
	}

	if e.field.Void(a.dir) {
		pos, err := e.host.Position(t.ID)
		if err != nil {
			return res, err
		}
		if base, ok := e.host.NearestFacility(pos, model.TaxiBase); ok {
			a.baseless = false
			if onNode && node == base.Node {
				t.State = model.StateAtBase
				res.idle = true
				return res, nil
			}
			t.State = model.StateToBase
			d, err := e.move(t.ID, base.Node, lapse, true)
			if err != nil {
				return res, err
			}
			res.moved = d
			if e.arrived(t.ID, base.Node) {
				t.State = model.StateAtBase
			}
			return res, nil
		}
		// without a base the taxi keeps cruising along the cached direction
		if !a.baseless {
			a.baseless = true
			e.logger.Warnf("taxi %s: field is void and no taxi base exists, cruising on", t.ID)
		}
	}

	t.State = model.StateSeeking
	d, err := e.move(t.ID, a.dir.Node, lapse, false)
	if err != nil {
		return res, err
	}
	res.moved = d
	if n, ok := e.host.NodeAt(t.ID); ok {
		for _, id := range e.host.WaitingAt(n) {
			if !e.ledger.IsWaiting(id) {
				continue
			}
			if err := e.pickup(a, id, at); err != nil {
				return res, err
			}
			break
		}
	}
	return res, nil
}

func (e *Engine) move(id string, target roadgraph.NodeID, lapse model.TimeLapse, shortest bool) (float64, error) {
	var (
		d   float64
		err error
	)
	if shortest {
		d, err = e.host.MoveShortestPath(id, target, lapse)
	} else {
		d, err = e.host.MoveToward(id, target, lapse)
	}
	if errors.Is(err, roadgraph.ErrNoRoute) {
		e.logger.Warnf("taxi %s: no route to node %d", id, target)
		return 0, nil
	}
	return d, err
}

func (e *Engine) arrived(id string, target roadgraph.NodeID) bool {
	n, ok := e.host.NodeAt(id)
	return ok && n == target
}

// refreshDirection evaluates the field on every neighbor of the taxi's node
// and caches the strongest one.
func (e *Engine) refreshDirection(a *agent) {
	nbrs := e.graph.Neighbors(a.taxi.Node, e.cfg.NeighborOrder)
	cands := make([]field.Candidate, 0, len(nbrs))
	for _, n := range nbrs {
		p, _ := e.graph.Position(n)
		cands = append(cands, field.Candidate{Node: n, Pos: p})
	}
	a.dir, a.hasDir = e.field.ChooseDirection(cands, e.ledger.Unassigned(), e.competitors(a))
	if a.hasDir {
		e.logger.Debugw("direction chosen", map[string]any{
			"taxi_id":  a.taxi.ID,
			"from":     a.taxi.Node,
			"to":       a.dir.Node,
			"strength": a.dir.Strength,
		})
	}
}

// competitors returns the positions of the other free taxis that are not
// parked on their nearest base.
func (e *Engine) competitors(self *agent) []r2.Vec {
	if e.cfg.Field.TaxiVsCustomer == 0 {
		return nil
	}
	var out []r2.Vec
	for _, o := range e.agents {
		if o == self || o.taxi.Carrying() {
			continue
		}
		pos, err := e.host.Position(o.taxi.ID)
		if err != nil {
			continue
		}
		if e.idleAtBase(o.taxi.ID, pos) {
			continue
		}
		out = append(out, pos)
	}
	return out
}

func (e *Engine) idleAtBase(id string, pos r2.Vec) bool {
	n, ok := e.host.NodeAt(id)
	if !ok {
		return false
	}
	base, ok := e.host.NearestFacility(pos, model.TaxiBase)
	return ok && base.Node == n
}

func (e *Engine) pickup(a *agent, customerID string, at time.Duration) error {
	t := &a.taxi
	if err := e.host.Pickup(t.ID, customerID, at); err != nil {
		return fmt.Errorf("pickup %s: %w", customerID, err)
	}
	if err := e.ledger.PickUp(customerID); err != nil {
		return err
	}
	c := e.customers[customerID]
	t.Assigned = customerID
	t.State = model.StateCarrying
	a.pickedAt = at
	e.stats.PickedUp(customerID, t.ID, at)
	pickupsTotal.Inc()
	wait := at - c.RegisteredAt
	e.logger.Infof("taxi %s picked up %s at node %d", t.ID, customerID, c.Pickup)
	taxiID := t.ID
	e.later(func() {
		if e.bus != nil {
			e.bus.Publish(events.PickupEvent{TaxiID: taxiID, CustomerID: customerID, Node: c.Pickup, Wait: wait, At: at})
		}
		if r, ok := e.sink.(metrics.PickupRecorder); ok {
			ev := metrics.PickupEvent{RunID: e.runID, TaxiID: taxiID, CustomerID: customerID, Wait: wait, Time: e.clock()}
			if err := r.RecordPickup(ev); err != nil {
				e.logger.Warnf("record pickup: %v", err)
			}
		}
	})
	return nil
}

func (e *Engine) deliver(a *agent, c model.Customer, at time.Duration) error {
	t := &a.taxi
	if err := e.host.Deliver(t.ID, c.ID, at); err != nil {
		return fmt.Errorf("deliver %s: %w", c.ID, err)
	}
	if err := e.ledger.Deliver(c.ID); err != nil {
		return err
	}
	e.stats.Delivered(c.ID, at)
	t.Served++
	t.Assigned = ""
	t.State = model.StateSeeking
	deliveriesTotal.Inc()
	e.logger.Infof("taxi %s delivered %s at node %d", t.ID, c.ID, c.Dropoff)

	pickedUp := a.pickedAt
	now := e.clock()
	res := metrics.TripResult{
		RunID:      e.runID,
		TaxiID:     t.ID,
		CustomerID: c.ID,
		Pickup:     int64(c.Pickup),
		Dropoff:    int64(c.Dropoff),
		Wait:       pickedUp - c.RegisteredAt,
		Trip:       at - c.RegisteredAt,
		At:         at,
		Time:       now,
	}
	rec := triplog.Record{
		Timestamp:    now,
		RunID:        e.runID,
		TaxiID:       t.ID,
		CustomerID:   c.ID,
		Pickup:       c.Pickup,
		Dropoff:      c.Dropoff,
		RegisteredAt: c.RegisteredAt,
		PickedUpAt:   pickedUp,
		DeliveredAt:  at,
		Odometer:     t.Odometer,
	}
	taxiID := t.ID
	e.later(func() {
		if e.bus != nil {
			e.bus.Publish(events.DeliveryEvent{TaxiID: taxiID, CustomerID: c.ID, Node: c.Dropoff, Trip: at - c.RegisteredAt, At: at})
		}
		if err := e.sink.RecordTrips([]metrics.TripResult{res}); err != nil {
			e.logger.Warnf("record trip: %v", err)
		}
	})
	e.later(func() {
		if err := e.trips.Append(context.Background(), rec); err != nil {
			e.logger.Warnf("append trip log: %v", err)
		}
	})
	if e.status != nil {
		e.later(func() {
			e.status.RecordTrip(taxiID, taxistatus.LastTrip{CustomerID: c.ID, Dropoff: c.Dropoff, DeliveredAt: at})
		})
	}
	return nil
}

// abandon drops an assignment whose customer is no longer in the cargo. The
// customer waits again when still present in the world.
func (e *Engine) abandon(a *agent) {
	t := &a.taxi
	id := t.Assigned
	waiting := false
	if e.host.Contains(id) {
		if err := e.ledger.Release(id); err != nil {
			e.ledger.Forget(id)
		} else {
			waiting = true
		}
	} else {
		e.ledger.Forget(id)
	}
	e.stats.Abandoned(id, waiting)
	e.logger.Warnf("taxi %s lost customer %s, back to seeking", t.ID, id)
	t.Assigned = ""
	t.State = model.StateSeeking
}

func (e *Engine) refuel(a *agent, station model.Facility, at time.Duration) {
	t := &a.taxi
	t.Fuel = t.Capacity
	a.refuels++
	refuelsTotal.Inc()
	e.logger.Infof("taxi %s refuelled at %s", t.ID, station.ID)
	taxiID, fuel := t.ID, t.Fuel
	e.later(func() {
		if e.bus != nil {
			e.bus.Publish(events.RefuelEvent{TaxiID: taxiID, StationID: station.ID, Node: station.Node, FuelLevel: fuel, At: at})
		}
		if r, ok := e.sink.(metrics.RefuelRecorder); ok {
			ev := metrics.RefuelEvent{RunID: e.runID, TaxiID: taxiID, StationID: station.ID, Time: e.clock()}
			if err := r.RecordRefuel(ev); err != nil {
				e.logger.Warnf("record refuel: %v", err)
			}
		}
	})
}

func (e *Engine) finish(a *agent, prev model.State, at time.Duration) {
	t := a.taxi
	e.stats.UpdateTaxi(stats.TaxiRecord{
		ID:       t.ID,
		Distance: t.Distance,
		Odometer: t.Odometer,
		Served:   t.Served,
		Refuels:  a.refuels,
	})
	if prev != t.State && e.bus != nil {
		e.later(func() { e.bus.Publish(events.StateEvent{TaxiID: t.ID, From: prev, To: t.State, At: at}) })
	}
	e.later(func() { e.publishTaxi(a, at) })
}

// later queues an outward notification. Notifications run once the step has
// committed and are dropped when it fails.
func (e *Engine) later(fn func()) { e.effects = append(e.effects, fn) }

// flush runs the queued notifications of a committed step. A panicking
// notification is logged and does not affect the others.
func (e *Engine) flush(taxiID string) {
	effects := e.effects
	e.effects = nil
	for _, fn := range effects {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Errorf("taxi %s: notification panicked: %v", taxiID, r)
				}
			}()
			fn()
		}()
	}
}

func (e *Engine) publishTaxi(a *agent, at time.Duration) {
	if e.status == nil {
		return
	}
	t := a.taxi
	st := taxistatus.Status{
		TaxiID:   t.ID,
		State:    t.State,
		Node:     t.Node,
		Fuel:     t.Fuel,
		Capacity: t.Capacity,
		Assigned: t.Assigned,
		Served:   t.Served,
		Updated:  at,
	}
	if pos, err := e.host.Position(t.ID); err == nil {
		st.X, st.Y = pos.X, pos.Y
	}
	_, st.OnNode = e.host.NodeAt(t.ID)
	e.status.Set(st)
}
