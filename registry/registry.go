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

// Package registry turns raw blueprint declarations into a validated,
// deduplicated component registry: the input of every later compiler
// phase.
//
// Validation here is deliberately front-loaded. Everything that can be
// judged by looking at one declaration (or at declaration pairs, such as
// duplicate ids) is rejected in this phase, so the graph analyses can
// assume well-formed components.
package registry

import "rivaas.dev/blueprint/schema"

// ComponentID indexes a validated component. IDs are assigned in
// declaration order and stable across runs.
type ComponentID int

// Component is a validated declaration bound to its scope.
type Component struct {
	schema.Declaration
	ID    ComponentID
	Scope ScopeID
}

// Registry is the validated component set plus the lookup structures
// later phases need: the scope tree, a per-scope producer index, the
// config key/type bijection, and the framework primitive table.
//
// A Registry is immutable once built.
type Registry struct {
	components []Component
	scopes     *ScopeTree
	framework  *FrameworkDB

	// producers maps scope -> output type key -> producing components
	// (constructors, prebuilt types, config entries) registered directly
	// in that scope.
	producers map[ScopeID]map[string][]ComponentID

	// errorHandlers maps scope -> error type key -> handler.
	errorHandlers map[ScopeID]map[string]ComponentID

	configByKey map[string]ComponentID
}

// Components returns every component in declaration order.
func (r *Registry) Components() []Component {
	return r.components
}

// Component returns the component with the given id.
func (r *Registry) Component(id ComponentID) Component {
	return r.components[id]
}

// Scopes returns the scope tree.
func (r *Registry) Scopes() *ScopeTree {
	return r.scopes
}

// Framework returns the built-in primitive table.
func (r *Registry) Framework() *FrameworkDB {
	return r.framework
}

// ByKind returns the components of the given kind, in declaration order.
func (r *Registry) ByKind(kind schema.Kind) []Component {
	var out []Component
	for _, c := range r.components {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// ProducersIn returns the producers for a type key registered directly in
// the given scope, without walking parents. Resolution walks the chain
// itself so it can distinguish "shadowed" from "competing" producers.
func (r *Registry) ProducersIn(scope ScopeID, typeKey string) []ComponentID {
	byType, ok := r.producers[scope]
	if !ok {
		return nil
	}
	return byType[typeKey]
}

// ErrorHandlerFor walks the scope chain from innermost outward and
// returns the first error handler registered for the type key.
func (r *Registry) ErrorHandlerFor(scope ScopeID, typeKey string) (ComponentID, bool) {
	for _, s := range r.scopes.Chain(scope) {
		if byType, ok := r.errorHandlers[s]; ok {
			if id, ok := byType[typeKey]; ok {
				return id, true
			}
		}
	}
	return 0, false
}

// ConfigByKey returns the config entry registered under key.
func (r *Registry) ConfigByKey(key string) (ComponentID, bool) {
	id, ok := r.configByKey[key]
	return id, ok
}

// MiddlewaresFor returns the wrapping, pre-processing and post-processing
// middlewares whose scope encloses the given one, outermost first within
// each kind. These are the middlewares that apply to a route registered
// in scope.
func (r *Registry) MiddlewaresFor(scope ScopeID, kind schema.Kind) []Component {
	var out []Component
	for _, c := range r.components {
		if c.Kind != kind {
			continue
		}
		if r.scopes.IsAncestorOrSelf(c.Scope, scope) {
			out = append(out, c)
		}
	}
	return out
}

// Observers returns every registered error observer, in declaration
// order.
func (r *Registry) Observers() []Component {
	return r.ByKind(schema.KindErrorObserver)
}
