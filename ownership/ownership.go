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

// Package ownership decides, for every value in a resolved call graph,
// who gets the original and who gets a copy. A value passed by value is
// consumed; two consumers of the same original are a conflict, resolved
// either by inserting a clone (when the producer allows it) or by
// rejecting the blueprint.
//
// The analysis is purely structural. It never inspects runtime behavior,
// only the consumption modes recorded on the graph's edges.
package ownership

import (
	"fmt"

	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/resolve"
	"rivaas.dev/blueprint/schema"
)

// Diagnostic codes emitted by the ownership phase.
const (
	CodeValueConflict         = "BP0401"
	CodeSingletonMoved        = "BP0402"
	CodeSingletonMutBorrow    = "BP0403"
	CodeTransientMutBorrow    = "BP0404"
	CodeCrossStageConsumption = "BP0405"
)

// Clone records that the generated code must duplicate a value before
// handing it to a consumer: Consumer receives a copy of Node's value
// instead of the original.
type Clone struct {
	Node     resolve.NodeID
	Consumer resolve.NodeID
}

// RoutePlan is one route's graph plus the clones its codegen must insert.
type RoutePlan struct {
	Graph  *resolve.RouteGraph
	Clones []Clone
}

// NeedsClone reports whether the consumer must receive a copy of the
// node's value.
func (p *RoutePlan) NeedsClone(node, consumer resolve.NodeID) bool {
	for _, c := range p.Clones {
		if c.Node == node && c.Consumer == consumer {
			return true
		}
	}
	return false
}

// Plan is the ownership outcome for the whole application.
type Plan struct {
	Routes []*RoutePlan
}

// Analyze checks every route graph for ownership conflicts and decides
// where clones are inserted, or reports the complete batch of errors.
func Analyze(reg *registry.Registry, res *resolve.Result) (*Plan, *diagnostics.Set) {
	set := diagnostics.NewSet(diagnostics.PhaseOwnership)
	plan := &Plan{}
	for _, g := range res.Routes {
		rp := &RoutePlan{Graph: g}
		a := &analyzer{reg: reg, set: set, g: g, plan: rp}
		a.run()
		plan.Routes = append(plan.Routes, rp)
	}
	if set.HasErrors() {
		return nil, set
	}
	return plan, set
}

type analyzer struct {
	reg  *registry.Registry
	set  *diagnostics.Set
	g    *resolve.RouteGraph
	plan *RoutePlan
}

func (a *analyzer) run() {
	for _, n := range a.g.Nodes() {
		consumers := a.g.Consumers(n.ID)
		if len(consumers) == 0 {
			continue
		}
		a.checkMutBorrows(n, consumers)
		if n.Lifecycle == schema.Singleton {
			a.checkSingletonMoves(n, consumers)
		} else {
			a.checkValueConflicts(n, consumers)
			a.checkCrossStage(n, consumers)
		}
	}
}

// checkMutBorrows rejects exclusive borrows of values that cannot be
// exclusively held: singletons are shared across requests, transients
// hand every consumer a fresh instance whose mutation nobody else sees.
// The in-flight response is exempt; the runtime threads it between
// stages precisely so middlewares can mutate it.
func (a *analyzer) checkMutBorrows(n resolve.Node, consumers []resolve.Edge) {
	if n.InFlight {
		return
	}
	for _, e := range consumers {
		if e.Ref != schema.ByMutRef {
			continue
		}
		switch n.Lifecycle {
		case schema.Singleton:
			a.set.Error(CodeSingletonMutBorrow,
				fmt.Sprintf("%s is shared application state; %q cannot take it by exclusive reference", n.Type.Key(), a.consumerName(e.From)),
				a.conflictSnippets(n, e.From),
				"Take it by shared reference, or make it request-scoped.")
		case schema.Transient:
			a.set.Error(CodeTransientMutBorrow,
				fmt.Sprintf("%s is transient; %q would mutate a fresh instance nobody else observes", n.Type.Key(), a.consumerName(e.From)),
				a.conflictSnippets(n, e.From),
				"Make it request-scoped so consumers share one instance.")
		}
	}
}

// checkSingletonMoves handles by-value consumption of application state.
// The original must survive for later requests, so every by-value
// consumer needs its own copy.
func (a *analyzer) checkSingletonMoves(n resolve.Node, consumers []resolve.Edge) {
	for _, e := range consumers {
		if e.Ref != schema.ByValue {
			continue
		}
		if a.cloneable(n) {
			a.plan.Clones = append(a.plan.Clones, Clone{Node: n.ID, Consumer: e.From})
			continue
		}
		a.set.Error(CodeSingletonMoved,
			fmt.Sprintf("%q consumes the singleton %s by value, but the application state must keep it for later requests", a.consumerName(e.From), n.Type.Key()),
			a.conflictSnippets(n, e.From),
			"Take it by reference, or mark the singleton as cloneable.")
	}
}

// checkValueConflicts handles multiple by-value consumers of one
// per-request value: all but the last receive a clone, or the blueprint
// is rejected when cloning is not allowed.
func (a *analyzer) checkValueConflicts(n resolve.Node, consumers []resolve.Edge) {
	var byValue []resolve.Edge
	for _, e := range consumers {
		if e.Ref == schema.ByValue {
			byValue = append(byValue, e)
		}
	}
	if len(byValue) <= 1 {
		return
	}
	if a.cloneable(n) {
		// The last consumer in pipeline order gets the original.
		for _, e := range byValue[:len(byValue)-1] {
			a.plan.Clones = append(a.plan.Clones, Clone{Node: n.ID, Consumer: e.From})
		}
		return
	}
	snippets := a.snippetFor(n)
	for _, e := range byValue {
		snippets = append(snippets, a.snippetFor(a.g.Node(e.From))...)
	}
	a.set.Error(CodeValueConflict,
		fmt.Sprintf("%d components consume %s by value, but only one can take the original", len(byValue), n.Type.Key()),
		snippets,
		"Mark the type as cloneable and relax its cloning policy, or take it by reference where ownership is not needed.")
}

// checkCrossStage handles a value moved in one stage while a later stage
// still needs it. The later stage cannot see a value that was consumed
// before it ran.
func (a *analyzer) checkCrossStage(n resolve.Node, consumers []resolve.Edge) {
	if n.InFlight {
		return
	}
	for _, moved := range consumers {
		if moved.Ref != schema.ByValue {
			continue
		}
		for _, later := range consumers {
			if later.Stage <= moved.Stage {
				continue
			}
			if a.cloneable(n) {
				if !a.plan.NeedsClone(n.ID, moved.From) {
					a.plan.Clones = append(a.plan.Clones, Clone{Node: n.ID, Consumer: moved.From})
				}
				continue
			}
			a.set.Error(CodeCrossStageConsumption,
				fmt.Sprintf("%s is consumed by value during %s, but %q still needs it during %s", n.Type.Key(), moved.Stage, a.consumerName(later.From), later.Stage),
				a.conflictSnippets(n, moved.From),
				"Take it by reference in the earlier stage, or mark the type as cloneable.")
		}
	}
}

func (a *analyzer) cloneable(n resolve.Node) bool {
	return n.Cloning == schema.CloneIfNecessary && n.Type.SupportsClone
}

// consumerName renders the consuming component for diagnostics, falling
// back to the type name for framework-produced nodes.
func (a *analyzer) consumerName(id resolve.NodeID) string {
	n := a.g.Node(id)
	if n.Kind == resolve.NodeComponent {
		return a.reg.Component(n.Component).FQID()
	}
	return n.Type.Key()
}

func (a *analyzer) snippetFor(n resolve.Node) []diagnostics.Snippet {
	if n.Kind != resolve.NodeComponent {
		return nil
	}
	c := a.reg.Component(n.Component)
	return []diagnostics.Snippet{{Site: c.Site, Label: fmt.Sprintf("%q registered here", c.FQID())}}
}

func (a *analyzer) conflictSnippets(n resolve.Node, consumer resolve.NodeID) []diagnostics.Snippet {
	snippets := a.snippetFor(n)
	snippets = append(snippets, a.snippetFor(a.g.Node(consumer))...)
	return snippets
}
