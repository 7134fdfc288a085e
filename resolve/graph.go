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

package resolve

import (
	"fmt"
	"strconv"

	"rivaas.dev/blueprint/internal/graph"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/schema"
)

// NodeID indexes a node within one route's call graph.
type NodeID int

// NodeKind distinguishes how a node's value comes into existence.
type NodeKind int

const (
	// NodeComponent is a value produced by a user-registered component.
	NodeComponent NodeKind = iota
	// NodeFrameworkItem is a value supplied by the runtime directly, such
	// as the request head or the in-flight response.
	NodeFrameworkItem
	// NodeFrameworkConstructor is a value produced by a built-in generic
	// constructor, with its generic argument bound at the call site.
	NodeFrameworkConstructor
	// NodeErrorValue is the error produced by a fallible node, existing
	// only on the failure path feeding its handler and the observers.
	NodeErrorValue
)

// Stage is the processing stage a value is produced in or consumed at.
// Stages run in declaration order below; application state exists before
// any request arrives.
type Stage int

const (
	StageApplication Stage = iota
	StageWrap
	StagePreProcess
	StageHandler
	StagePostProcess
)

// String returns the stage name used in diagnostics.
func (s Stage) String() string {
	switch s {
	case StageApplication:
		return "application startup"
	case StageWrap:
		return "wrapping middleware"
	case StagePreProcess:
		return "pre-processing"
	case StageHandler:
		return "request handler"
	case StagePostProcess:
		return "post-processing"
	}
	return "unknown"
}

// Node is one value in a route's call graph.
type Node struct {
	ID   NodeID
	Kind NodeKind

	// Component identifies the producing component when Kind is
	// NodeComponent, or the fallible origin when Kind is NodeErrorValue.
	Component registry.ComponentID

	// Type is the produced type, with every generic argument bound.
	Type schema.TypeRef

	Lifecycle schema.Lifecycle
	Cloning   schema.CloningPolicy

	// Stage is the earliest stage at which the value is needed.
	Stage Stage

	// Fallible marks producers that can fail; ErrorNode then points at
	// the NodeErrorValue carrying the failure.
	Fallible  bool
	ErrorNode NodeID

	// Handler is the error handler node invoked when this error value
	// materializes. Only set on NodeErrorValue nodes; HasHandler is false
	// when the generic response conversion applies instead.
	Handler    NodeID
	HasHandler bool

	// InFlight marks the mutable response threaded between stages.
	InFlight bool

	// Inputs are the nodes bound to the producer's inputs, positionally,
	// with InputRefs recording how each one is consumed.
	Inputs    []NodeID
	InputRefs []schema.RefKind
}

// Edge records that From's producer consumes To's value, and how.
type Edge struct {
	From NodeID
	To   NodeID
	Ref  schema.RefKind
	// Stage is the stage the consumption happens in. It can be later than
	// the producing node's stage when a request-scoped value is shared.
	Stage Stage
}

// Call is one invocation the generated code performs for the route: a
// middleware, the handler, an error handler or an observer.
type Call struct {
	Component registry.ComponentID
	Stage     Stage
	// Node is the call graph node holding the invocation's output.
	// Observers produce nothing; their Node is the invocation itself.
	Node NodeID
	// Inputs are the call graph nodes bound to the callable's inputs,
	// positionally.
	Inputs []NodeID
	// Origin is the error value the call consumes. Only meaningful for
	// error handlers and observers, where OnError is true.
	Origin  NodeID
	OnError bool
}

// RouteGraph is the resolved dependency graph of a single route: every
// value the route's pipeline needs, how it is produced, and in which
// order.
type RouteGraph struct {
	Route registry.ComponentID

	nodes      []Node
	edges      []Edge
	calls      []Call
	errorCalls []Call

	// memo caches non-transient nodes by type key so a request-scoped
	// value resolves to a single node however many consumers it has.
	memo map[string]NodeID
}

// Nodes returns every node, in creation order.
func (g *RouteGraph) Nodes() []Node {
	return g.nodes
}

// Node returns the node with the given id.
func (g *RouteGraph) Node(id NodeID) Node {
	return g.nodes[id]
}

// Edges returns every consumption edge.
func (g *RouteGraph) Edges() []Edge {
	return g.edges
}

// Calls returns the pipeline invocations in execution order: wrapping
// middlewares outermost first, pre-processing, the handler, then
// post-processing.
func (g *RouteGraph) Calls() []Call {
	return g.calls
}

// ErrorCalls returns the invocations that only run on a failure path:
// error handlers and error observers.
func (g *RouteGraph) ErrorCalls() []Call {
	return g.errorCalls
}

// Consumers returns the edges pointing at the given node.
func (g *RouteGraph) Consumers(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *RouteGraph) addNode(n Node) NodeID {
	n.ID = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return n.ID
}

func (g *RouteGraph) addEdge(from, to NodeID, ref schema.RefKind, stage Stage) {
	if ref == "" {
		ref = schema.ByValue
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Ref: ref, Stage: stage})
	g.nodes[from].Inputs = append(g.nodes[from].Inputs, to)
	g.nodes[from].InputRefs = append(g.nodes[from].InputRefs, ref)
}

// dependencyGraph lowers the call graph into the generic graph used for
// cycle detection and ordering. Node labels are the numeric ids, so the
// ordering is stable whatever the type names are.
func (g *RouteGraph) dependencyGraph() *graph.Graph {
	dg := graph.New()
	for _, n := range g.nodes {
		dg.AddNode(nodeLabel(n.ID))
	}
	for _, e := range g.edges {
		dg.AddEdge(nodeLabel(e.From), nodeLabel(e.To))
	}
	return dg
}

// ConstructionOrder returns node ids ordered so every dependency precedes
// its consumers. It must only be called on a graph that passed cycle
// detection.
func (g *RouteGraph) ConstructionOrder() ([]NodeID, error) {
	order, err := g.dependencyGraph().TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("route graph: %w", err)
	}
	out := make([]NodeID, len(order))
	for i, label := range order {
		id, err := strconv.Atoi(label)
		if err != nil {
			return nil, fmt.Errorf("route graph: malformed node label %q", label)
		}
		out[i] = NodeID(id)
	}
	return out, nil
}

func nodeLabel(id NodeID) string {
	return strconv.Itoa(int(id))
}
