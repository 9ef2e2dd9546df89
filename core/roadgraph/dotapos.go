package roadgraph

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrMalformed is returned for map files that cannot be loaded.
var ErrMalformed = errors.New("roadgraph: malformed map")

const (
	graphHeader = "digraph mapgraph {"
	graphFooter = "}"
)

var (
	nodeLine = regexp.MustCompile(`^n(\d+)\s*\[p=['"]([^,'"]+),([^'"]+)['"]\]\s*;?$`)
	edgeLine = regexp.MustCompile(`^n(\d+)\s*->\s*n(\d+)\s*(?:\[d=['"]([^'"]*)['"]\])?\s*;?$`)
)

// LoadOptions controls how a map description is read.
type LoadOptions struct {
	// NodeCount is the number of node lines following the header. It is
	// not auto-detected.
	NodeCount int
	// HeaderLines is the number of lines preceding the first node line.
	HeaderLines int
}

// DefaultLoadOptions returns the options matching files produced by Write.
func DefaultLoadOptions(nodeCount int) LoadOptions {
	return LoadOptions{NodeCount: nodeCount, HeaderLines: 1}
}

// LoadFile reads a map description from path.
func LoadFile(path string, opts LoadOptions) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	g, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load parses a map description: a header, NodeCount node lines of the form
// n<id>[p='<x>,<y>'], edge lines n<a> -> n<b>[d='<len>'] and a closing
// brace. Any unparseable line or dangling reference fails the whole load.
//
//gocyclo:ignore
func Load(r io.Reader, opts LoadOptions) (*Graph, error) {
	if opts.NodeCount <= 0 {
		return nil, fmt.Errorf("%w: node count must be positive", ErrMalformed)
	}
	if opts.HeaderLines < 0 {
		return nil, fmt.Errorf("%w: negative header offset", ErrMalformed)
	}
	g := New()
	sc := bufio.NewScanner(r)
	lineNo := 0
	nodes := 0
	closed := false
	for sc.Scan() {
		lineNo++
		if lineNo <= opts.HeaderLines {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if nodes < opts.NodeCount {
			id, pos, err := parseNode(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if err := g.AddNode(id, pos); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			nodes++
			continue
		}
		if line == "" {
			continue
		}
		if line == graphFooter {
			closed = true
			break
		}
		from, to, length, err := parseEdge(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if err := g.AddEdge(from, to, length); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if nodes < opts.NodeCount {
		return nil, fmt.Errorf("%w: expected %d nodes, found %d", ErrMalformed, opts.NodeCount, nodes)
	}
	if !closed {
		return nil, fmt.Errorf("%w: missing closing brace", ErrMalformed)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return g, nil
}

func parseNode(line string) (NodeID, r2.Vec, error) {
	m := nodeLine.FindStringSubmatch(line)
	if m == nil {
		return 0, r2.Vec{}, fmt.Errorf("%w: bad node %q", ErrMalformed, line)
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, r2.Vec{}, fmt.Errorf("%w: bad node id %q", ErrMalformed, m[1])
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(m[2]), 64)
	if err != nil {
		return 0, r2.Vec{}, fmt.Errorf("%w: bad coordinate %q", ErrMalformed, m[2])
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(m[3]), 64)
	if err != nil {
		return 0, r2.Vec{}, fmt.Errorf("%w: bad coordinate %q", ErrMalformed, m[3])
	}
	return NodeID(id), r2.Vec{X: x, Y: y}, nil
}

func parseEdge(line string) (NodeID, NodeID, float64, error) {
	m := edgeLine.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("%w: bad edge %q", ErrMalformed, line)
	}
	from, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: bad edge source %q", ErrMalformed, m[1])
	}
	to, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: bad edge target %q", ErrMalformed, m[2])
	}
	var length float64
	if m[3] != "" {
		length, err = strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: bad edge length %q", ErrMalformed, m[3])
		}
	}
	return NodeID(from), NodeID(to), length, nil
}

// Format selects the quoting style of written map files.
type Format int

const (
	// FormatDotPos quotes attributes with apostrophes (.dotapos files).
	FormatDotPos Format = iota
	// FormatDot quotes attributes with double quotes (.dot files).
	FormatDot
)

// Write serializes g in declaration order.
func Write(w io.Writer, g *Graph, f Format) error {
	q := "'"
	if f == FormatDot {
		q = `"`
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, graphHeader); err != nil {
		return err
	}
	for _, n := range g.Nodes() {
		if _, err := fmt.Fprintf(bw, "n%d[p=%s%s,%s%s]\n", n.ID, q,
			strconv.FormatFloat(n.Pos.X, 'f', -1, 64),
			strconv.FormatFloat(n.Pos.Y, 'f', -1, 64), q); err != nil {
			return err
		}
	}
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(bw, "n%d -> n%d[d=%s%.1f%s]\n", e.From, e.To, q, e.Length, q); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(bw, graphFooter); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFile writes g to path, choosing the quoting style from the extension.
func WriteFile(path string, g *Graph) error {
	f := FormatDotPos
	if strings.HasSuffix(path, ".dot") {
		f = FormatDot
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(file, g, f); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
