package roadgraph

import (
	"bytes"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

const lineMap = `digraph mapgraph {
n0[p='0.0,0.0']
n1[p='100.0,0.0']
n2[p='200.0,0.0']
n0 -> n1[d='100.0']
n1 -> n0[d='100.0']
n1 -> n2[d='100.0']
n2 -> n1[d='100.0']
}
`

func TestLoad_LineMap(t *testing.T) {
	g, err := Load(strings.NewReader(lineMap), DefaultLoadOptions(3))
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
	p, ok := g.Position(2)
	require.True(t, ok)
	assert.Equal(t, r2.Vec{X: 200, Y: 0}, p)
	assert.Equal(t, []NodeID{0, 2}, g.Neighbors(1, OrderFile))
	assert.True(t, g.HasEdge(2, 1))
	assert.False(t, g.HasEdge(0, 2))
}

func TestLoad_DoubleQuotes(t *testing.T) {
	data := strings.ReplaceAll(lineMap, "'", `"`)
	g, err := Load(strings.NewReader(data), DefaultLoadOptions(3))
	require.NoError(t, err)
	assert.Equal(t, 4, len(g.Edges()))
}

func TestLoad_Malformed(t *testing.T) {
	cases := map[string]struct {
		data  string
		count int
	}{
		"unknown edge target": {data: "h\nn0[p='0,0']\nn0 -> n7[d='1.0']\n}\n", count: 1},
		"bad coordinate":      {data: "h\nn0[p='zero,0']\n}\n", count: 1},
		"short file":          {data: "h\nn0[p='0,0']\n}\n", count: 2},
		"garbage edge":        {data: "h\nn0[p='0,0']\nedge\n}\n", count: 1},
		"missing footer":      {data: "h\nn0[p='0,0']\n", count: 1},
		"duplicate node":      {data: "h\nn0[p='0,0']\nn0[p='1,1']\n}\n", count: 2},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(c.data), DefaultLoadOptions(c.count))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestLoad_HeaderOffset(t *testing.T) {
	data := "# generated\n" + lineMap
	g, err := Load(strings.NewReader(data), LoadOptions{NodeCount: 3, HeaderLines: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
}

func TestNeighbors_IDOrder(t *testing.T) {
	g := New()
	for i := 0; i < 4; i++ {
		require.NoError(t, g.AddNode(NodeID(i), r2.Vec{X: float64(i)}))
	}
	require.NoError(t, g.AddEdge(0, 3, 1))
	require.NoError(t, g.AddEdge(0, 1, 1))
	require.NoError(t, g.AddEdge(0, 2, 1))
	assert.Equal(t, []NodeID{3, 1, 2}, g.Neighbors(0, OrderFile))
	assert.Equal(t, []NodeID{1, 2, 3}, g.Neighbors(0, OrderID))
	if err := g.AddEdge(0, 9, 1); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected unknown node error, got %v", err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	g, err := Random(RandomConfig{Nodes: 12, Density: 0.4, MapSize: 3000}, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "random.dotapos")
	require.NoError(t, WriteFile(path, g))
	back, err := LoadFile(path, DefaultLoadOptions(g.Len()))
	require.NoError(t, err)
	assert.Equal(t, g.Nodes(), back.Nodes())
	assert.Equal(t, len(g.Edges()), len(back.Edges()))
	for _, e := range g.Edges() {
		assert.True(t, back.HasEdge(e.From, e.To), "edge n%d -> n%d lost", e.From, e.To)
	}
}

func TestWrite_DotQuotes(t *testing.T) {
	g, err := Grid(2, 1, 50)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, FormatDot))
	assert.Contains(t, buf.String(), `n1[p="50,0"]`)
	assert.Contains(t, buf.String(), `n0 -> n1[d="50.0"]`)
}

func TestRandom_Symmetric(t *testing.T) {
	g, err := Random(RandomConfig{Nodes: 10, Density: 0.3, MapSize: 3000}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	for _, e := range g.Edges() {
		assert.True(t, g.HasEdge(e.To, e.From))
	}
	if _, err := Random(RandomConfig{Nodes: 0}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestShortestPath(t *testing.T) {
	g, err := Grid(3, 3, 10)
	require.NoError(t, err)
	nodes, length, ok := g.ShortestPath(0, 8)
	require.True(t, ok)
	assert.InDelta(t, 40, length, 1e-9)
	assert.Equal(t, NodeID(0), nodes[0])
	assert.Equal(t, NodeID(8), nodes[len(nodes)-1])
	assert.Len(t, nodes, 5)

	same, l, ok := g.ShortestPath(4, 4)
	require.True(t, ok)
	assert.Equal(t, []NodeID{4}, same)
	assert.Zero(t, l)
}

func TestShortestPath_Unreachable(t *testing.T) {
	g := New()
	require.NoError(t, g.AddNode(0, r2.Vec{}))
	require.NoError(t, g.AddNode(1, r2.Vec{X: 1}))
	require.NoError(t, g.AddEdge(1, 0, 1))
	if _, _, ok := g.ShortestPath(0, 1); ok {
		t.Fatal("expected no path from a dead end")
	}
}

func TestNodeAt(t *testing.T) {
	g, err := Grid(2, 2, 5)
	require.NoError(t, err)
	id, ok := g.NodeAt(r2.Vec{X: 5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, NodeID(3), id)
	_, ok = g.NodeAt(r2.Vec{X: 2.5})
	assert.False(t, ok)
}
