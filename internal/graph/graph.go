// Package graph is a minimal state-graph execution engine: named
// nodes transform a state value and fixed edges decide the next node.
// The router wraps its single-shot decision in a graph so future
// multi-step pipelines compose onto the same machinery; wrapped
// pipelines must behave identically to their functional equivalents.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel node names for the graph's entry and exit.
const (
	Start = "__start__"
	End   = "__end__"
)

// maxSteps bounds a single invocation so a miswired cycle cannot run
// forever.
const maxSteps = 64

// Node transforms the state. Returning an error aborts the run.
type Node[S any] func(S) (S, error)

// Graph is a buildable set of nodes and edges. Build it with AddNode
// and AddEdge, then Compile it into an immutable Runner.
type Graph[S any] struct {
	nodes map[string]Node[S]
	edges map[string]string
}

// New creates an empty graph.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes: make(map[string]Node[S]),
		edges: make(map[string]string),
	}
}

// AddNode registers a named node. Re-registering a name replaces it.
func (g *Graph[S]) AddNode(name string, fn Node[S]) *Graph[S] {
	g.nodes[name] = fn
	return g
}

// AddEdge wires from → to. Use Start as from for the entry edge and
// End as to for a terminal edge.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.edges[from] = to
	return g
}

// Compile validates the graph and returns a Runner. Every edge must
// reference a registered node (or a sentinel) and an entry edge from
// Start is required.
func (g *Graph[S]) Compile() (*Runner[S], error) {
	entry, ok := g.edges[Start]
	if !ok {
		return nil, errors.New("graph has no entry edge")
	}
	for from, to := range g.edges {
		if from != Start {
			if _, ok := g.nodes[from]; !ok {
				return nil, fmt.Errorf("edge from unknown node %q", from)
			}
		}
		if to != End {
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("edge to unknown node %q", to)
			}
		}
	}
	if entry == End {
		return nil, errors.New("entry edge may not point at the end sentinel")
	}
	return &Runner[S]{nodes: g.nodes, edges: g.edges, entry: entry}, nil
}

// Runner is a compiled, immutable graph.
type Runner[S any] struct {
	nodes map[string]Node[S]
	edges map[string]string
	entry string
}

// Invoke walks the graph from the entry node until an End edge is
// reached, threading the state through each node.
func (r *Runner[S]) Invoke(initial S) (S, error) {
	state := initial
	current := r.entry
	for steps := 0; steps < maxSteps; steps++ {
		node, ok := r.nodes[current]
		if !ok {
			return state, fmt.Errorf("unknown node %q", current)
		}
		next, err := node(state)
		if err != nil {
			return state, fmt.Errorf("node %q failed: %w", current, err)
		}
		state = next

		to, ok := r.edges[current]
		if !ok {
			return state, fmt.Errorf("node %q has no outgoing edge", current)
		}
		if to == End {
			return state, nil
		}
		current = to
	}
	return state, errors.New("graph exceeded step limit")
}
