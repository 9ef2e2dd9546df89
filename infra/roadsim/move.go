package roadsim

import (
	"fmt"

	"github.com/kilianp07/taxigrad/core/model"
	"github.com/kilianp07/taxigrad/core/roadgraph"
)

// MoveToward drives a taxi toward target for one lapse. An adjacent target is
// reached over the direct edge, any other over the shortest path. It returns
// the distance covered.
func (w *World) MoveToward(taxiID string, target roadgraph.NodeID, lapse model.TimeLapse) (float64, error) {
	return w.drive(taxiID, target, lapse, true)
}

// MoveShortestPath drives a taxi along the shortest path to target.
func (w *World) MoveShortestPath(taxiID string, target roadgraph.NodeID, lapse model.TimeLapse) (float64, error) {
	return w.drive(taxiID, target, lapse, false)
}

func (w *World) drive(taxiID string, target roadgraph.NodeID, lapse model.TimeLapse, direct bool) (float64, error) {
	if _, ok := w.g.Node(target); !ok {
		return 0, fmt.Errorf("%w: %d", roadgraph.ErrUnknownNode, target)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.taxis[taxiID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTaxi, taxiID)
	}
	// A taxi between nodes always finishes its current edge first.
	origin := v.node
	if !v.onNode {
		origin = v.to
	}
	route, err := w.route(origin, target, direct)
	if err != nil {
		return 0, err
	}
	budget := w.speed * lapse.Duration().Seconds()
	return w.follow(v, route, budget), nil
}

// route returns the nodes to visit after origin to reach target.
func (w *World) route(origin, target roadgraph.NodeID, direct bool) ([]roadgraph.NodeID, error) {
	if origin == target {
		return nil, nil
	}
	if direct && w.g.HasEdge(origin, target) {
		return []roadgraph.NodeID{target}, nil
	}
	nodes, _, ok := w.g.ShortestPath(origin, target)
	if !ok {
		return nil, fmt.Errorf("%w: %d -> %d", roadgraph.ErrNoRoute, origin, target)
	}
	return nodes[1:], nil
}

// follow advances v by at most budget along its current edge and then along
// route, stopping on the last node of route.
func (w *World) follow(v *vehicle, route []roadgraph.NodeID, budget float64) float64 {
	var moved float64
	for moved < budget {
		if v.onNode {
			if len(route) == 0 {
				break
			}
			v.from, v.to, v.progress = v.node, route[0], 0
			v.onNode = false
			route = route[1:]
		}
		remain := w.g.Distance(v.from, v.to) - v.progress
		if left := budget - moved; remain > left {
			v.progress += left
			moved = budget
			break
		}
		moved += remain
		v.node = v.to
		v.onNode = true
		v.progress = 0
	}
	return moved
}
