// Copyright © 2024 The Mago authors

// Package dataflow records how values move through a program.  Nodes are
// sites that produce or consume a value; an edge from a to b means the value
// produced at a flows into b.  The analyzer uses one graph per function body
// to find assignments whose value is never read, and one graph per file to
// follow untrusted input into dangerous sinks.
package dataflow

import (
	"fmt"
	"sort"

	"github.com/magophp/mago/source"
)

// Kind classifies a node.
type Kind uint8

const (
	// Vertex is an intermediate node such as a call return or a property.
	Vertex Kind = iota
	// UseSource is an assignment site.
	UseSource
	// UseSink is a read of a variable.
	UseSink
	// TaintSource produces untrusted data.
	TaintSource
	// TaintSink must not receive untrusted data.
	TaintSink
)

func (k Kind) String() string {
	switch k {
	case UseSource:
		return "use-source"
	case UseSink:
		return "use-sink"
	case TaintSource:
		return "taint-source"
	case TaintSink:
		return "taint-sink"
	default:
		return "vertex"
	}
}

// Path labels an edge.
type Path uint8

const (
	Flow Path = iota
	Assignment
	Argument
	Return
	Field
)

func (p Path) String() string {
	switch p {
	case Assignment:
		return "assignment"
	case Argument:
		return "argument"
	case Return:
		return "return"
	case Field:
		return "field"
	default:
		return "flow"
	}
}

// Node is a site in the graph.  Pure is meaningful for use sources: an
// impure source has side effects even when its value is unused.
type Node struct {
	ID   string
	Kind Kind
	Name string
	Span source.Span
	Pure bool
}

// NodeID builds the identifier of the node for name at span.
func NodeID(name string, span source.Span) string {
	return fmt.Sprintf("%s@%d:%d-%d", name, span.File, span.Start, span.End)
}

// NewNode returns a node identified by name and span.
func NewNode(kind Kind, name string, span source.Span) *Node {
	return &Node{ID: NodeID(name, span), Kind: kind, Name: name, Span: span}
}

type edge struct {
	to   string
	path Path
}

// Graph is a directed data-flow graph.  The zero value is not usable; call
// New.
type Graph struct {
	nodes    map[string]*Node
	forward  map[string][]edge
	backward map[string][]edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		forward:  make(map[string][]edge),
		backward: make(map[string][]edge),
	}
}

// Add inserts n and returns the node stored under its ID, which is n
// unless a node with the same ID was added before.
func (g *Graph) Add(n *Node) *Node {
	if prev, ok := g.nodes[n.ID]; ok {
		return prev
	}
	g.nodes[n.ID] = n
	return n
}

// Node returns the node with id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Connect adds an edge from one node to another, adding either node if it
// is new.  Duplicate edges are ignored.
func (g *Graph) Connect(from, to *Node, path Path) {
	from, to = g.Add(from), g.Add(to)
	for _, e := range g.forward[from.ID] {
		if e.to == to.ID {
			return
		}
	}
	g.forward[from.ID] = append(g.forward[from.ID], edge{to: to.ID, path: path})
	g.backward[to.ID] = append(g.backward[to.ID], edge{to: from.ID, path: path})
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the nodes of kind, ordered by position.
func (g *Graph) Nodes(kind Kind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sortNodes(out)
	return out
}

func sortNodes(ns []*Node) {
	sort.Slice(ns, func(i, j int) bool {
		a, b := ns[i].Span, ns[j].Span
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return ns[i].ID < ns[j].ID
	})
}

// BackwardReachable returns the IDs of every node from which one of from
// can be reached, including from themselves.
func (g *Graph) BackwardReachable(from []*Node) map[string]bool {
	return g.reach(from, g.backward, nil)
}

// ForwardReachable returns the IDs of every node reachable from one of
// from, including from themselves.
func (g *Graph) ForwardReachable(from []*Node) map[string]bool {
	return g.reach(from, g.forward, nil)
}

func (g *Graph) reach(from []*Node, adj map[string][]edge, parent map[string]string) map[string]bool {
	seen := make(map[string]bool, len(from))
	queue := make([]string, 0, len(from))
	for _, n := range from {
		if !seen[n.ID] {
			seen[n.ID] = true
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range adj[id] {
			if seen[e.to] {
				continue
			}
			seen[e.to] = true
			if parent != nil {
				parent[e.to] = id
			}
			queue = append(queue, e.to)
		}
	}
	return seen
}

// Unused returns the use sources whose value never reaches a use sink.
func (g *Graph) Unused() []*Node {
	live := g.BackwardReachable(g.Nodes(UseSink))
	var out []*Node
	for _, n := range g.Nodes(UseSource) {
		if !live[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// Taint is a path from a taint source to a taint sink.  Path lists the
// nodes in between, in flow order.
type Taint struct {
	Source *Node
	Sink   *Node
	Path   []*Node
}

// Taints returns one path for every taint sink reachable from a taint
// source.
func (g *Graph) Taints() []Taint {
	var out []Taint
	for _, src := range g.Nodes(TaintSource) {
		parent := make(map[string]string)
		seen := g.reach([]*Node{src}, g.forward, parent)
		for _, sink := range g.Nodes(TaintSink) {
			if !seen[sink.ID] {
				continue
			}
			var path []*Node
			for id := parent[sink.ID]; id != "" && id != src.ID; id = parent[id] {
				path = append([]*Node{g.nodes[id]}, path...)
			}
			out = append(out, Taint{Source: src, Sink: sink, Path: path})
		}
	}
	return out
}

// Extend adds the nodes and edges of other to g.
func (g *Graph) Extend(other *Graph) {
	if other == nil {
		return
	}
	for _, n := range other.nodes {
		g.Add(n)
	}
	for from, edges := range other.forward {
		for _, e := range edges {
			g.Connect(other.nodes[from], other.nodes[e.to], e.path)
		}
	}
}
