package roadgraph

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// NodeID identifies a node of the road graph. Positions are never used as keys.
type NodeID int64

// Node is an immutable graph vertex.
type Node struct {
	ID  NodeID
	Pos r2.Vec
}

// Edge is a directed road segment. Length is the value declared in the map
// file; movement uses the distance between the endpoint positions.
type Edge struct {
	From   NodeID
	To     NodeID
	Length float64
}

var (
	// ErrUnknownNode is returned when an edge references a missing node.
	ErrUnknownNode = errors.New("roadgraph: unknown node")
	// ErrDuplicateNode is returned when a node id is declared twice.
	ErrDuplicateNode = errors.New("roadgraph: duplicate node")
	// ErrNoRoute is returned when no path joins two nodes.
	ErrNoRoute = errors.New("roadgraph: no route")
)

// Ordering selects how neighbors are enumerated.
type Ordering string

const (
	// OrderFile keeps the order in which edges were declared.
	OrderFile Ordering = "file"
	// OrderID sorts neighbors by ascending node id.
	OrderID Ordering = "id"
)

// Valid reports whether o is a known ordering.
func (o Ordering) Valid() bool { return o == OrderFile || o == OrderID }

// Graph holds node positions and ordered adjacency lists. It is built once
// and must not be mutated while a simulation is running.
type Graph struct {
	pos     map[NodeID]r2.Vec
	order   []NodeID
	adj     map[NodeID][]NodeID
	lengths map[[2]NodeID]float64
	edges   []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		pos:     make(map[NodeID]r2.Vec),
		adj:     make(map[NodeID][]NodeID),
		lengths: make(map[[2]NodeID]float64),
	}
}

// AddNode registers a node position.
func (g *Graph) AddNode(id NodeID, pos r2.Vec) error {
	if _, ok := g.pos[id]; ok {
		return fmt.Errorf("%w: n%d", ErrDuplicateNode, id)
	}
	g.pos[id] = pos
	g.order = append(g.order, id)
	return nil
}

// AddEdge adds a directed edge. Both endpoints must already exist. Adding an
// edge twice keeps the first declaration.
func (g *Graph) AddEdge(from, to NodeID, length float64) error {
	if _, ok := g.pos[from]; !ok {
		return fmt.Errorf("%w: n%d", ErrUnknownNode, from)
	}
	if _, ok := g.pos[to]; !ok {
		return fmt.Errorf("%w: n%d", ErrUnknownNode, to)
	}
	key := [2]NodeID{from, to}
	if _, ok := g.lengths[key]; ok {
		return nil
	}
	g.lengths[key] = length
	g.adj[from] = append(g.adj[from], to)
	g.edges = append(g.edges, Edge{From: from, To: to, Length: length})
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	p, ok := g.pos[id]
	return Node{ID: id, Pos: p}, ok
}

// Position returns the position of id.
func (g *Graph) Position(id NodeID) (r2.Vec, bool) {
	p, ok := g.pos[id]
	return p, ok
}

// Nodes returns all nodes in declaration order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.order))
	for i, id := range g.order {
		out[i] = Node{ID: id, Pos: g.pos[id]}
	}
	return out
}

// Edges returns all edges in declaration order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Neighbors returns the nodes reachable from id in one hop.
func (g *Graph) Neighbors(id NodeID, o Ordering) []NodeID {
	src := g.adj[id]
	out := make([]NodeID, len(src))
	copy(out, src)
	if o == OrderID {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	}
	return out
}

// HasEdge reports whether a directed edge from -> to exists.
func (g *Graph) HasEdge(from, to NodeID) bool {
	_, ok := g.lengths[[2]NodeID{from, to}]
	return ok
}

// Distance returns the euclidean distance between two nodes.
func (g *Graph) Distance(a, b NodeID) float64 {
	return r2.Norm(r2.Sub(g.pos[a], g.pos[b]))
}

// NodeAt returns the node located exactly at p.
func (g *Graph) NodeAt(p r2.Vec) (NodeID, bool) {
	for _, id := range g.order {
		if g.pos[id] == p {
			return id, true
		}
	}
	return 0, false
}

// Validate checks that every adjacency entry references an existing node.
func (g *Graph) Validate() error {
	for from, tos := range g.adj {
		if _, ok := g.pos[from]; !ok {
			return fmt.Errorf("%w: n%d", ErrUnknownNode, from)
		}
		for _, to := range tos {
			if _, ok := g.pos[to]; !ok {
				return fmt.Errorf("%w: n%d -> n%d", ErrUnknownNode, from, to)
			}
		}
	}
	return nil
}
