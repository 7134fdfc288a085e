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

package graph

// cycleDetector runs Tarjan's strongly-connected-components algorithm.
// Nodes are visited in insertion order so the reported cycles are stable
// across runs for the same graph.
type cycleDetector struct {
	graph   *Graph
	index   int
	stack   []string
	onStack map[string]bool
	indices map[string]int
	lowlink map[string]int
	sccs    [][]string
}

// Cycles returns every dependency cycle in the graph. A cycle is reported
// as the list of node identifiers participating in it, in traversal order.
// Self-loops are reported as single-element cycles.
func (g *Graph) Cycles() [][]string {
	d := &cycleDetector{
		graph:   g,
		onStack: make(map[string]bool),
		indices: make(map[string]int),
		lowlink: make(map[string]int),
	}

	for _, id := range g.order {
		if _, visited := d.indices[id]; !visited {
			d.strongConnect(id)
		}
	}

	var cycles [][]string
	for _, scc := range d.sccs {
		if len(scc) > 1 {
			cycles = append(cycles, orient(scc, g))
			continue
		}
		id := scc[0]
		for _, dep := range g.edges[id] {
			if dep == id {
				cycles = append(cycles, scc)
				break
			}
		}
	}
	return cycles
}

func (d *cycleDetector) strongConnect(id string) {
	d.indices[id] = d.index
	d.lowlink[id] = d.index
	d.index++
	d.stack = append(d.stack, id)
	d.onStack[id] = true

	for _, dep := range d.graph.edges[id] {
		if _, visited := d.indices[dep]; !visited {
			d.strongConnect(dep)
			d.lowlink[id] = min(d.lowlink[id], d.lowlink[dep])
		} else if d.onStack[dep] {
			d.lowlink[id] = min(d.lowlink[id], d.indices[dep])
		}
	}

	if d.lowlink[id] == d.indices[id] {
		var scc []string
		for {
			n := len(d.stack) - 1
			w := d.stack[n]
			d.stack = d.stack[:n]
			d.onStack[w] = false
			scc = append(scc, w)
			if w == id {
				break
			}
		}
		d.sccs = append(d.sccs, scc)
	}
}

// orient rewrites an SCC into a walkable cycle path starting from the
// member that was inserted first, following edges inside the component.
// Tarjan pops components in reverse discovery order; following the edges
// yields a path a caller can print as "A -> B -> ... -> A".
func orient(scc []string, g *Graph) []string {
	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}

	// Pick the earliest-inserted member as the entry point.
	var start string
	for _, id := range g.order {
		if members[id] {
			start = id
			break
		}
	}

	path := []string{start}
	seen := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, dep := range g.edges[current] {
			if members[dep] && !seen[dep] {
				next = dep
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		seen[next] = true
		current = next
	}
	return path
}
