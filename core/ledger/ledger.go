// Package ledger tracks which customers are waiting, carried or delivered and
// derives the positions the field evaluator attracts taxis to.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/taxigrad/core/roadgraph"
)

var (
	ErrUnknownCustomer   = errors.New("ledger: unknown customer")
	ErrDuplicateCustomer = errors.New("ledger: customer already registered")
	ErrNotWaiting        = errors.New("ledger: customer is not waiting")
	ErrNotInTransit      = errors.New("ledger: customer is not in transit")
)

type entry struct {
	id   string
	node roadgraph.NodeID
	pos  r2.Vec
}

// Ledger is not safe for concurrent use; the engine drives it from a single
// goroutine.
type Ledger struct {
	order     []string
	entries   map[string]entry
	inTransit map[string]struct{}
	delivered map[string]struct{}

	unassigned    []r2.Vec
	unassignedIDs []string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries:   make(map[string]entry),
		inTransit: make(map[string]struct{}),
		delivered: make(map[string]struct{}),
	}
}

// Register adds a waiting customer at the given pickup node and refreshes
// the derived positions.
func (l *Ledger) Register(id string, node roadgraph.NodeID, pos r2.Vec) error {
	if _, ok := l.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCustomer, id)
	}
	l.entries[id] = entry{id: id, node: node, pos: pos}
	l.order = append(l.order, id)
	l.Refresh()
	return nil
}

// PickUp moves a waiting customer into transit.
func (l *Ledger) PickUp(id string) error {
	if !l.IsWaiting(id) {
		if _, ok := l.entries[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCustomer, id)
		}
		return fmt.Errorf("%w: %s", ErrNotWaiting, id)
	}
	l.inTransit[id] = struct{}{}
	l.Refresh()
	return nil
}

// Deliver marks an in-transit customer as delivered.
func (l *Ledger) Deliver(id string) error {
	if _, ok := l.inTransit[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotInTransit, id)
	}
	delete(l.inTransit, id)
	l.delivered[id] = struct{}{}
	l.Refresh()
	return nil
}

// Release returns an in-transit customer to the waiting set.
func (l *Ledger) Release(id string) error {
	if _, ok := l.inTransit[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotInTransit, id)
	}
	delete(l.inTransit, id)
	l.Refresh()
	return nil
}

// Forget drops every trace of a customer that left the world undelivered.
func (l *Ledger) Forget(id string) {
	if _, ok := l.entries[id]; !ok {
		return
	}
	delete(l.entries, id)
	delete(l.inTransit, id)
	delete(l.delivered, id)
	for i, o := range l.order {
		if o == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.Refresh()
}

// Refresh rebuilds the unassigned positions from scratch by scanning all
// registered customers in registration order.
func (l *Ledger) Refresh() {
	pos := make([]r2.Vec, 0, len(l.order))
	ids := make([]string, 0, len(l.order))
	for _, id := range l.order {
		if _, ok := l.inTransit[id]; ok {
			continue
		}
		if _, ok := l.delivered[id]; ok {
			continue
		}
		pos = append(pos, l.entries[id].pos)
		ids = append(ids, id)
	}
	l.unassigned = pos
	l.unassignedIDs = ids
}

// Unassigned returns the positions of all waiting customers. The slice is
// shared and must not be modified.
func (l *Ledger) Unassigned() []r2.Vec { return l.unassigned }

// UnassignedIDs returns the ids of waiting customers in registration order.
func (l *Ledger) UnassignedIDs() []string {
	out := make([]string, len(l.unassignedIDs))
	copy(out, l.unassignedIDs)
	return out
}

// IsWaiting reports whether id is registered, not carried and not delivered.
func (l *Ledger) IsWaiting(id string) bool {
	if _, ok := l.entries[id]; !ok {
		return false
	}
	if _, ok := l.inTransit[id]; ok {
		return false
	}
	_, done := l.delivered[id]
	return !done
}

// InTransit reports whether id is being carried.
func (l *Ledger) InTransit(id string) bool {
	_, ok := l.inTransit[id]
	return ok
}

// Delivered reports whether id has been delivered.
func (l *Ledger) Delivered(id string) bool {
	_, ok := l.delivered[id]
	return ok
}

// InTransitIDs returns the carried customer ids sorted.
func (l *Ledger) InTransitIDs() []string {
	out := make([]string, 0, len(l.inTransit))
	for id := range l.inTransit {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Counts returns the number of waiting, in-transit and delivered customers.
func (l *Ledger) Counts() (waiting, inTransit, delivered int) {
	return len(l.unassignedIDs), len(l.inTransit), len(l.delivered)
}

// Check verifies that every registered customer is in exactly one of the
// waiting, in-transit and delivered sets and that the derived positions
// match a fresh scan.
func (l *Ledger) Check() error {
	waiting := make(map[string]struct{}, len(l.unassignedIDs))
	for _, id := range l.unassignedIDs {
		waiting[id] = struct{}{}
	}
	for _, id := range l.order {
		n := 0
		if _, ok := waiting[id]; ok {
			n++
		}
		if _, ok := l.inTransit[id]; ok {
			n++
		}
		if _, ok := l.delivered[id]; ok {
			n++
		}
		if n != 1 {
			return fmt.Errorf("ledger: customer %s present in %d sets", id, n)
		}
	}
	if len(waiting)+len(l.inTransit)+len(l.delivered) != len(l.order) {
		return fmt.Errorf("ledger: set sizes do not add up to %d customers", len(l.order))
	}
	if len(l.unassigned) != len(l.unassignedIDs) {
		return fmt.Errorf("ledger: %d positions for %d waiting customers", len(l.unassigned), len(l.unassignedIDs))
	}
	for i, id := range l.unassignedIDs {
		if l.unassigned[i] != l.entries[id].pos {
			return fmt.Errorf("ledger: stale position for %s", id)
		}
	}
	return nil
}
