package roadgraph

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// routing exposes a Graph to gonum's traversal and shortest path algorithms.
// Adjacency is iterated in declaration order so results are reproducible.
type routing struct{ g *Graph }

func (r routing) From(id int64) graph.Nodes {
	tos := r.g.adj[NodeID(id)]
	if len(tos) == 0 {
		return graph.Empty
	}
	nodes := make([]graph.Node, len(tos))
	for i, to := range tos {
		nodes[i] = simple.Node(to)
	}
	return iterator.NewOrderedNodes(nodes)
}

func (r routing) Edge(uid, vid int64) graph.Edge {
	if !r.g.HasEdge(NodeID(uid), NodeID(vid)) {
		return nil
	}
	return simple.WeightedEdge{
		F: simple.Node(uid),
		T: simple.Node(vid),
		W: r.g.Distance(NodeID(uid), NodeID(vid)),
	}
}

func (r routing) Weight(xid, yid int64) (float64, bool) {
	if xid == yid {
		return 0, true
	}
	if !r.g.HasEdge(NodeID(xid), NodeID(yid)) {
		return math.Inf(1), false
	}
	return r.g.Distance(NodeID(xid), NodeID(yid)), true
}

var _ path.Weighted = routing{}

// ShortestPath returns the node sequence from -> to, both included, and its
// euclidean length. ok is false when to is unreachable.
func (g *Graph) ShortestPath(from, to NodeID) (nodes []NodeID, length float64, ok bool) {
	if _, exists := g.pos[from]; !exists {
		return nil, math.Inf(1), false
	}
	if from == to {
		return []NodeID{from}, 0, true
	}
	p, w := path.DijkstraFromTo(simple.Node(from), simple.Node(to), routing{g: g})
	if len(p) == 0 {
		return nil, math.Inf(1), false
	}
	nodes = make([]NodeID, len(p))
	for i, n := range p {
		nodes[i] = NodeID(n.ID())
	}
	return nodes, w, true
}
