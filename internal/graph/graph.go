// Copyright 2026 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package graph provides a small directed-graph toolkit used by the
// blueprint compiler: deterministic topological ordering and cycle
// detection over string-keyed nodes.
//
// Node and edge iteration follows insertion order, so every analysis
// built on top of this package is deterministic for a given input.
package graph

// Graph is a directed graph keyed by string identifiers.
// An edge from A to B means "A depends on B".
//
// Graph is not safe for concurrent use. The compiler builds and consumes
// graphs in a single pass, so no locking is required.
type Graph struct {
	order []string            // insertion order of nodes
	nodes map[string]struct{} // node set
	edges map[string][]string // adjacency: node -> dependencies, in insertion order
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]struct{}),
		edges: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing node is a no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
	g.order = append(g.order, id)
}

// AddEdge records that from depends on to. Both endpoints are added to the
// node set if missing. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, dep := range g.edges[from] {
		if dep == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Dependencies returns the direct dependencies of id in insertion order.
func (g *Graph) Dependencies(id string) []string {
	deps := g.edges[id]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// Nodes returns all node identifiers in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.order)
}
