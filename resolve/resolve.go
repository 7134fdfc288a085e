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

// Package resolve builds the per-route call graphs: for every route it
// works out which producer satisfies each input, walking the scope chain
// innermost-outward, unifying generics, and wiring error handlers and
// observers onto every fallible producer.
//
// Resolution is deterministic. Producers are matched in scope order,
// nodes are created in demand order, and the same blueprint always
// yields the same graphs.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/internal/graph"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/schema"
)

// Diagnostic codes emitted by the resolution phase.
const (
	CodeUnresolvableType    = "BP0301"
	CodeDependencyCycle     = "BP0302"
	CodeUnderDetermined     = "BP0303"
	CodeLifecycleViolation  = "BP0304"
	CodeCompetingProducers  = "BP0305"
	CodeFallibleObserverDep = "BP0306"
	CodeMissingErrorHandler = "BP0307"
	CodeGenericErrorHandler = "BP0390"
)

// SingletonBinding is one value held in shared application state: a
// singleton constructor's output, a config entry, or a prebuilt type.
// Bindings are listed in construction order.
type SingletonBinding struct {
	Component registry.ComponentID
	Type      schema.TypeRef
}

// Result is the outcome of resolution across the whole application.
type Result struct {
	// Routes holds one resolved call graph per route and per fallback, in
	// declaration order.
	Routes []*RouteGraph

	// Singletons lists the application-state values in an order where
	// every dependency precedes its consumers.
	Singletons []SingletonBinding

	// Used marks every component reachable from some route. The pipeline
	// warns about the rest.
	Used map[registry.ComponentID]bool
}

// Resolve builds the call graph of every route and fallback, or reports
// the complete batch of resolution errors.
func Resolve(reg *registry.Registry) (*Result, *diagnostics.Set) {
	set := diagnostics.NewSet(diagnostics.PhaseResolution)
	res := &Result{Used: make(map[registry.ComponentID]bool)}

	checkSingletonUniqueness(reg, set)

	roots := reg.ByKind(schema.KindRoute)
	roots = append(roots, reg.ByKind(schema.KindFallback)...)
	for _, root := range roots {
		rr := &routeResolver{
			reg:       reg,
			set:       set,
			scope:     root.Scope,
			g:         &RouteGraph{Route: root.ID, memo: make(map[string]NodeID)},
			resolving: make(map[string]NodeID),
			warned:    make(map[string]bool),
		}
		rr.run(root)
		rr.reportCycles()
		res.Routes = append(res.Routes, rr.g)
	}

	if set.HasErrors() {
		return nil, set
	}

	res.markUsage(reg)
	if err := res.orderSingletons(reg); err != nil {
		// A singleton cycle is always also a per-route cycle, reported
		// above; reaching this means the graphs disagree.
		set.Error(CodeDependencyCycle, err.Error(), nil)
		return nil, set
	}
	return res, set
}

func (res *Result) markUsage(reg *registry.Registry) {
	for _, g := range res.Routes {
		for _, n := range g.nodes {
			if n.Kind == NodeComponent {
				res.Used[n.Component] = true
			}
		}
		for _, c := range g.calls {
			res.Used[c.Component] = true
		}
		for _, c := range g.errorCalls {
			res.Used[c.Component] = true
		}
	}
}

// orderSingletons collects every application-state value across all
// routes and sorts it so dependencies are constructed first.
func (res *Result) orderSingletons(reg *registry.Registry) error {
	dg := graph.New()
	byKey := make(map[string]SingletonBinding)
	for _, g := range res.Routes {
		for _, n := range g.nodes {
			if n.Kind != NodeComponent || n.Lifecycle != schema.Singleton {
				continue
			}
			key := n.Type.Key()
			if !dg.HasNode(key) {
				dg.AddNode(key)
				byKey[key] = SingletonBinding{Component: n.Component, Type: n.Type}
			}
		}
		for _, e := range g.edges {
			from, to := g.nodes[e.From], g.nodes[e.To]
			if from.Kind != NodeComponent || from.Lifecycle != schema.Singleton {
				continue
			}
			if to.Kind != NodeComponent || to.Lifecycle != schema.Singleton {
				continue
			}
			dg.AddEdge(from.Type.Key(), to.Type.Key())
		}
	}
	order, err := dg.TopologicalSort()
	if err != nil {
		return fmt.Errorf("application state: %w", err)
	}
	for _, key := range order {
		res.Singletons = append(res.Singletons, byKey[key])
	}
	return nil
}

// routeResolver resolves one route's pipeline into a RouteGraph.
type routeResolver struct {
	reg   *registry.Registry
	set   *diagnostics.Set
	scope registry.ScopeID
	g     *RouteGraph

	// resolving maps type keys currently on the recursion stack to their
	// placeholder node. A revisit becomes a back edge instead of infinite
	// recursion; Tarjan reports the cycle afterwards.
	resolving map[string]NodeID

	// warned deduplicates per-route warnings by type key.
	warned map[string]bool
}

// run resolves the route's full pipeline: wrapping middlewares outermost
// first, pre-processing, the handler, then post-processing.
func (r *routeResolver) run(root registry.Component) {
	for _, mw := range r.reg.MiddlewaresFor(r.scope, schema.KindWrap) {
		r.resolveCall(mw, StageWrap)
	}
	for _, mw := range r.reg.MiddlewaresFor(r.scope, schema.KindPreProcess) {
		r.resolveCall(mw, StagePreProcess)
	}
	r.resolveCall(root, StageHandler)
	for _, mw := range r.reg.MiddlewaresFor(r.scope, schema.KindPostProcess) {
		r.resolveCall(mw, StagePostProcess)
	}
}

// resolveCall resolves one pipeline invocation: a node for its output,
// one resolved node per input, and, when fallible, its error chain.
func (r *routeResolver) resolveCall(c registry.Component, stage Stage) {
	node := r.g.addNode(Node{
		Kind:      NodeComponent,
		Component: c.ID,
		Type:      outputOf(c),
		Lifecycle: schema.RequestScoped,
		Stage:     stage,
	})
	call := Call{Component: c.ID, Stage: stage, Node: node}
	for _, in := range callableInputs(c) {
		dep, ok := r.resolveType(in, stage, c, schema.RequestScoped)
		if !ok {
			continue
		}
		r.g.addEdge(node, dep, in.Ref, stage)
		call.Inputs = append(call.Inputs, dep)
	}
	r.g.calls = append(r.g.calls, call)
	if c.Callable != nil && c.Callable.Fallible && c.Callable.ErrorType != nil {
		r.attachErrorChain(node, *c.Callable.ErrorType, stage, c)
	}
}

// resolveType returns the node producing the requested type at the given
// stage, creating it (and its dependency closure) on first demand.
func (r *routeResolver) resolveType(req schema.TypeRef, stage Stage, consumer registry.Component, consumerLC schema.Lifecycle) (NodeID, bool) {
	req.Ref = ""
	if req.IsUnit() {
		r.set.Error(CodeUnresolvableType,
			fmt.Sprintf("%q takes the unit type as an input", consumer.FQID()),
			[]diagnostics.Snippet{{Site: consumer.Site, Label: "registered here"}})
		return 0, false
	}
	if req.HasUnboundGenerics() {
		r.set.Error(CodeUnresolvableType,
			fmt.Sprintf("input %s of %q has unassigned generic parameters", req.Key(), consumer.FQID()),
			[]diagnostics.Snippet{{Site: consumer.Site, Label: "registered here"}})
		return 0, false
	}
	key := req.Key()

	if id, ok := r.resolving[key]; ok {
		return id, true
	}
	if id, ok := r.g.memo[key]; ok {
		r.checkLifecycle(r.g.nodes[id].Lifecycle, consumerLC, req, consumer)
		return id, true
	}

	if item, ok := r.reg.Framework().Item(req.Name); ok && len(req.Generics) == 0 {
		r.checkLifecycle(item.Lifecycle, consumerLC, req, consumer)
		id := r.g.addNode(Node{
			Kind:      NodeFrameworkItem,
			Type:      item.Type,
			Lifecycle: item.Lifecycle,
			Cloning:   item.Cloning,
			Stage:     stage,
			InFlight:  item.InFlight,
		})
		r.g.memo[key] = id
		return id, true
	}

	if fc, ok := r.reg.Framework().Constructor(req.Name); ok {
		if _, ok := unify(fc.Output, req); !ok {
			r.set.Error(CodeUnresolvableType,
				fmt.Sprintf("%s does not match the built-in constructor for %s", req.Key(), fc.Output.Key()),
				[]diagnostics.Snippet{{Site: consumer.Site, Label: "requested here"}})
			return 0, false
		}
		r.checkLifecycle(fc.Lifecycle, consumerLC, req, consumer)
		id := r.g.addNode(Node{
			Kind:      NodeFrameworkConstructor,
			Type:      req,
			Lifecycle: fc.Lifecycle,
			Stage:     stage,
			Fallible:  fc.Fallible,
		})
		r.g.memo[key] = id
		if fc.Fallible {
			r.attachErrorChain(id, fc.ErrorType, stage, consumer)
		}
		return id, true
	}

	matches := r.findProducers(req)
	if len(matches) == 0 {
		r.set.Error(CodeUnresolvableType,
			fmt.Sprintf("no constructor, config entry or prebuilt type produces %s, needed by %q", req.Key(), consumer.FQID()),
			[]diagnostics.Snippet{{Site: consumer.Site, Label: "needed here"}},
			"Register a constructor for it, or mark it as prebuilt.")
		return 0, false
	}
	if len(matches) > 1 {
		snippets := make([]diagnostics.Snippet, 0, len(matches))
		for _, m := range matches {
			snippets = append(snippets, diagnostics.Snippet{Site: m.component.Site, Label: "one of the producers"})
		}
		r.set.Error(CodeCompetingProducers,
			fmt.Sprintf("%s has %d producers visible from the same scope, with no priority between them", req.Key(), len(matches)),
			snippets,
			"Keep a single producer per type and scope; move the others to sibling scopes.")
		return 0, false
	}

	m := matches[0]
	return r.resolveProducer(m.component, m.bindings, req, stage, consumer, consumerLC)
}

type producerMatch struct {
	component registry.Component
	bindings  map[string]schema.TypeRef
}

// checkSingletonUniqueness rejects types with more than one singleton
// producer anywhere in the scope tree. Application state holds a single
// value per type, so scope shadowing cannot disambiguate singletons the
// way it does request-scoped values.
func checkSingletonUniqueness(reg *registry.Registry, set *diagnostics.Set) {
	byType := make(map[string][]registry.Component)
	var keys []string
	for _, c := range reg.Components() {
		switch c.Kind {
		case schema.KindConstructor, schema.KindConfig, schema.KindPrebuilt:
		default:
			continue
		}
		if componentLifecycle(c) != schema.Singleton {
			continue
		}
		out := outputOf(c)
		if out.Name == "" || out.HasUnboundGenerics() {
			continue
		}
		key := out.Key()
		if len(byType[key]) == 0 {
			keys = append(keys, key)
		}
		byType[key] = append(byType[key], c)
	}

	for _, key := range keys {
		group := byType[key]
		best := producerPriority(group[0].Kind)
		for _, c := range group[1:] {
			if p := producerPriority(c.Kind); p < best {
				best = p
			}
		}
		winners := group[:0]
		for _, c := range group {
			if producerPriority(c.Kind) == best {
				winners = append(winners, c)
			}
		}
		if len(winners) < 2 {
			continue
		}
		snippets := make([]diagnostics.Snippet, 0, len(winners))
		for _, c := range winners {
			snippets = append(snippets, diagnostics.Snippet{Site: c.Site, Label: "one of the producers"})
		}
		set.Error(CodeCompetingProducers,
			fmt.Sprintf("%s has %d singleton producers; application state holds a single value per type", key, len(winners)),
			snippets,
			"Keep one singleton producer per type; scope nesting does not partition application state.")
	}
}

// producerPriority ranks producer kinds within a single scope: a prebuilt
// type beats a config entry, which beats a constructor. Only producers of
// the winning kind compete with each other.
func producerPriority(k schema.Kind) int {
	switch k {
	case schema.KindPrebuilt:
		return 0
	case schema.KindConfig:
		return 1
	default:
		return 2
	}
}

// findProducers walks the scope chain innermost-outward and returns the
// producers of the requested type registered in the first scope that has
// any. Inner registrations shadow outer ones; two matches of the same
// kind in the same scope compete.
func (r *routeResolver) findProducers(req schema.TypeRef) []producerMatch {
	key := req.Key()
	for _, s := range r.reg.Scopes().Chain(r.scope) {
		var matches []producerMatch
		for _, id := range r.reg.ProducersIn(s, key) {
			matches = append(matches, producerMatch{component: r.reg.Component(id)})
		}
		for _, c := range r.reg.Components() {
			if c.Kind != schema.KindConstructor || c.Scope != s || c.Callable == nil || c.Callable.Output == nil {
				continue
			}
			out := *c.Callable.Output
			if !out.HasUnboundGenerics() {
				continue
			}
			if bindings, ok := unify(out, req); ok {
				matches = append(matches, producerMatch{component: c, bindings: bindings})
			}
		}
		if len(matches) > 0 {
			best := producerPriority(matches[0].component.Kind)
			for _, m := range matches[1:] {
				if p := producerPriority(m.component.Kind); p < best {
					best = p
				}
			}
			winners := matches[:0]
			for _, m := range matches {
				if producerPriority(m.component.Kind) == best {
					winners = append(winners, m)
				}
			}
			return winners
		}
	}
	return nil
}

// resolveProducer creates the node for a user-registered producer and
// recursively resolves its inputs.
func (r *routeResolver) resolveProducer(c registry.Component, bindings map[string]schema.TypeRef, req schema.TypeRef, stage Stage, consumer registry.Component, consumerLC schema.Lifecycle) (NodeID, bool) {
	lifecycle := componentLifecycle(c)
	r.checkLifecycle(lifecycle, consumerLC, req, consumer)

	depStage := stage
	if lifecycle == schema.Singleton {
		depStage = StageApplication
	}

	node := r.g.addNode(Node{
		Kind:      NodeComponent,
		Component: c.ID,
		Type:      req,
		Lifecycle: lifecycle,
		Cloning:   c.CloningOrDefault(),
		Stage:     depStage,
	})
	key := req.Key()
	if lifecycle != schema.Transient {
		r.g.memo[key] = node
	}
	r.resolving[key] = node
	defer delete(r.resolving, key)

	if c.Callable != nil {
		if unresolved := unboundInputParams(c, bindings); len(unresolved) > 0 {
			r.set.Error(CodeUnderDetermined,
				fmt.Sprintf("constructing %s via %q leaves generic parameter %s undetermined", req.Key(), c.FQID(), strings.Join(unresolved, ", ")),
				[]diagnostics.Snippet{{Site: c.Site, Label: "registered here"}},
				"Every generic parameter of the inputs must appear in the output type.")
			return node, false
		}
		for _, in := range c.Callable.Inputs {
			bound := in.Bind(bindings)
			dep, ok := r.resolveType(bound, depStage, c, lifecycle)
			if !ok {
				continue
			}
			r.g.addEdge(node, dep, in.Ref, depStage)
		}
		if c.Callable.Fallible && c.Callable.ErrorType != nil {
			errType := c.Callable.ErrorType.Bind(bindings)
			r.attachErrorChain(node, errType, depStage, c)
		}
	}
	return node, true
}

// attachErrorChain wires the failure path of a fallible producer: the
// error value node, its handler (or the generic response conversion),
// and one observer invocation per registered observer. The owner is the
// declaration the failure is attributed to; for framework primitives it
// is the consumer that demanded the value.
func (r *routeResolver) attachErrorChain(producer NodeID, errType schema.TypeRef, stage Stage, owner registry.Component) {
	site := owner.Site
	errType.Ref = ""
	errNode := r.g.addNode(Node{
		Kind:      NodeErrorValue,
		Component: r.g.nodes[producer].Component,
		Type:      errType,
		Lifecycle: schema.RequestScoped,
		Stage:     stage,
	})
	r.g.nodes[producer].Fallible = true
	r.g.nodes[producer].ErrorNode = errNode

	if handlerID, ok := r.reg.ErrorHandlerFor(r.scope, errType.Key()); ok {
		handler := r.reg.Component(handlerID)
		hNode := r.g.addNode(Node{
			Kind:      NodeComponent,
			Component: handler.ID,
			Type:      outputOf(handler),
			Lifecycle: schema.RequestScoped,
			Stage:     stage,
		})
		call := Call{Component: handler.ID, Stage: stage, Node: hNode, Origin: errNode, OnError: true}
		for _, in := range callableInputs(handler) {
			if in.Key() == errType.Key() || in.Name == registry.TypeError {
				r.g.addEdge(hNode, errNode, in.Ref, stage)
				call.Inputs = append(call.Inputs, errNode)
				continue
			}
			dep, ok := r.resolveType(in, stage, handler, schema.RequestScoped)
			if !ok {
				continue
			}
			r.g.addEdge(hNode, dep, in.Ref, stage)
			call.Inputs = append(call.Inputs, dep)
		}
		r.g.errorCalls = append(r.g.errorCalls, call)
		r.g.nodes[errNode].Handler = hNode
		r.g.nodes[errNode].HasHandler = true
	} else if errType.IntoResponse {
		if !r.warned[errType.Key()] && !owner.Suppresses(CodeGenericErrorHandler) {
			r.warned[errType.Key()] = true
			r.set.Warning(CodeGenericErrorHandler,
				fmt.Sprintf("no error handler is registered for %s; its own response conversion will be used", errType.Key()),
				[]diagnostics.Snippet{{Site: site, Label: "the fallible component"}},
				"Register an error handler to control the response shape.")
		}
	} else {
		r.set.Error(CodeMissingErrorHandler,
			fmt.Sprintf("no error handler is registered for %s and it cannot be converted into a response", errType.Key()),
			[]diagnostics.Snippet{{Site: site, Label: "the fallible component"}},
			"Register an error handler for it.")
	}

	for _, obs := range r.reg.Observers() {
		r.resolveObserver(obs, errNode, stage)
	}
}

// resolveObserver wires one observer invocation onto an error value and
// verifies its dependency closure is infallible.
func (r *routeResolver) resolveObserver(obs registry.Component, errNode NodeID, stage Stage) {
	oNode := r.g.addNode(Node{
		Kind:      NodeComponent,
		Component: obs.ID,
		Lifecycle: schema.RequestScoped,
		Stage:     stage,
	})
	call := Call{Component: obs.ID, Stage: stage, Node: oNode, Origin: errNode, OnError: true}
	for _, in := range callableInputs(obs) {
		if in.Name == registry.TypeError {
			r.g.addEdge(oNode, errNode, in.Ref, stage)
			call.Inputs = append(call.Inputs, errNode)
			continue
		}
		dep, ok := r.resolveType(in, stage, obs, schema.RequestScoped)
		if !ok {
			continue
		}
		r.g.addEdge(oNode, dep, in.Ref, stage)
		call.Inputs = append(call.Inputs, dep)
		if path := r.falliblePath(dep, nil); path != nil {
			names := make([]string, len(path))
			for i, id := range path {
				names[i] = r.g.nodes[id].Type.Key()
			}
			warnKey := "observer:" + obs.FQID() + ":" + names[len(names)-1]
			if !r.warned[warnKey] {
				r.warned[warnKey] = true
				r.set.Error(CodeFallibleObserverDep,
					fmt.Sprintf("error observer %q transitively depends on the fallible constructor of %s (via %s)", obs.FQID(), names[len(names)-1], strings.Join(names, " -> ")),
					[]diagnostics.Snippet{{Site: obs.Site, Label: "the observer"}},
					"Observers run on every failure; their inputs must be constructible without failing.")
			}
		}
	}
	r.g.errorCalls = append(r.g.errorCalls, call)
}

// falliblePath walks the dependency closure of a node and returns the
// path to the first fallible producer, or nil.
func (r *routeResolver) falliblePath(id NodeID, path []NodeID) []NodeID {
	for _, p := range path {
		if p == id {
			return nil
		}
	}
	path = append(path, id)
	if r.g.nodes[id].Fallible {
		out := make([]NodeID, len(path))
		copy(out, path)
		return out
	}
	for _, e := range r.g.edges {
		if e.From != id {
			continue
		}
		if found := r.falliblePath(e.To, path); found != nil {
			return found
		}
	}
	return nil
}

// checkLifecycle rejects a longer-lived consumer depending on a
// shorter-lived producer.
func (r *routeResolver) checkLifecycle(producer, consumer schema.Lifecycle, req schema.TypeRef, at registry.Component) {
	if consumer != schema.Singleton {
		return
	}
	if producer == schema.Singleton {
		return
	}
	r.set.Error(CodeLifecycleViolation,
		fmt.Sprintf("singleton %q depends on %s, which is %s; application state cannot hold per-request values", at.FQID(), req.Key(), producer),
		[]diagnostics.Snippet{{Site: at.Site, Label: "the singleton"}},
		"Make the dependency a singleton, or shorten the consumer's lifecycle.")
}

// reportCycles runs strongly-connected-component detection over the
// finished graph and names every cycle in full.
func (r *routeResolver) reportCycles() {
	for _, cycle := range r.g.dependencyGraph().Cycles() {
		names := make([]string, 0, len(cycle)+1)
		var snippets []diagnostics.Snippet
		for _, label := range cycle {
			id := mustNodeID(label)
			n := r.g.nodes[id]
			names = append(names, n.Type.Key())
			if n.Kind == NodeComponent {
				snippets = append(snippets, diagnostics.Snippet{
					Site:  r.reg.Component(n.Component).Site,
					Label: fmt.Sprintf("%s is constructed here", n.Type.Key()),
				})
			}
		}
		names = append(names, names[0])
		r.set.Error(CodeDependencyCycle,
			fmt.Sprintf("the dependency graph is cyclic: %s", strings.Join(names, " -> ")),
			snippets,
			"Break the cycle by taking one of the dependencies by reference to a shared, earlier-built value.")
	}
}

func mustNodeID(label string) NodeID {
	id, err := strconv.Atoi(label)
	if err != nil {
		panic(fmt.Sprintf("resolve: malformed node label %q", label))
	}
	return NodeID(id)
}

// componentLifecycle normalizes the lifecycle of state-like components:
// config entries and prebuilt types always live in application state.
func componentLifecycle(c registry.Component) schema.Lifecycle {
	switch c.Kind {
	case schema.KindConfig, schema.KindPrebuilt:
		return schema.Singleton
	default:
		return c.LifecycleOrDefault()
	}
}

// unboundInputParams returns the generic parameters of a callable's
// inputs that the output bindings do not determine.
func unboundInputParams(c registry.Component, bindings map[string]schema.TypeRef) []string {
	var out []string
	for _, in := range c.Callable.Inputs {
		for _, p := range in.Params() {
			if _, ok := bindings[p]; !ok {
				out = append(out, p)
			}
		}
	}
	return out
}

func outputOf(c registry.Component) schema.TypeRef {
	if c.Callable != nil && c.Callable.Output != nil {
		return *c.Callable.Output
	}
	if c.Type != nil {
		return *c.Type
	}
	return schema.TypeRef{}
}

func callableInputs(c registry.Component) []schema.TypeRef {
	if c.Callable == nil {
		return nil
	}
	return c.Callable.Inputs
}
