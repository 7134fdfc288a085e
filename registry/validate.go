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

package registry

import (
	"fmt"
	"unicode"

	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/schema"
)

// Diagnostic codes emitted by the registry phase.
const (
	CodeInvalidConfigKey      = "BP0101"
	CodeDuplicateConfigKey    = "BP0102"
	CodeDuplicateConfigType   = "BP0103"
	CodeDuplicateComponentID  = "BP0104"
	CodeUnassignedGenerics    = "BP0105"
	CodeBorrowedRegistration  = "BP0106"
	CodePrimitiveOverride     = "BP0107"
	CodeNotAResponse          = "BP0108"
	CodeUnitOutput            = "BP0109"
	CodeUncloneablePolicy     = "BP0110"
	CodeMalformedDeclaration  = "BP0111"
	CodeInputOnlyGenerics     = "BP0112"
	CodeSingletonNotSendable  = "BP0113"
	CodeMissingErrorBinding   = "BP0114"
	CodeMutableInput          = "BP0115"
	CodeDuplicateErrorHandler = "BP0116"
	CodeUnusedComponent       = "BP0190"
	CodeUnusedConfigEntry     = "BP0191"
)

// Build validates the raw declarations and assembles the Registry. All
// violations are collected into one batch; the returned Registry is nil
// if the batch contains errors.
func Build(decls []schema.Declaration) (*Registry, *diagnostics.Set) {
	set := diagnostics.NewSet(diagnostics.PhaseRegistry)

	r := &Registry{
		scopes:        NewScopeTree(),
		framework:     NewFrameworkDB(),
		producers:     make(map[ScopeID]map[string][]ComponentID),
		errorHandlers: make(map[ScopeID]map[string]ComponentID),
		configByKey:   make(map[string]ComponentID),
	}

	seenIDs := make(map[string]schema.Site)           // package::id -> first site
	configTypes := make(map[string]ComponentID)       // type key -> config component
	configKeys := make(map[string]ComponentID)        // key -> config component

	for _, d := range decls {
		v := declValidator{decl: d, framework: r.framework, set: set}
		if !v.run() {
			continue
		}

		// Id uniqueness is checked across kinds, scoped to the defining
		// package.
		fqid := d.FQID()
		if first, dup := seenIDs[fqid]; dup {
			set.Error(CodeDuplicateComponentID,
				fmt.Sprintf("component id %q is registered twice in package %q", d.ID, d.Package),
				[]diagnostics.Snippet{
					{Site: first, Label: "first registered here"},
					{Site: d.Site, Label: "registered again here"},
				},
				"Give each component a unique id within its package.",
			)
			continue
		}
		seenIDs[fqid] = d.Site

		scope := r.scopes.Intern(d.Scope)
		id := ComponentID(len(r.components))
		c := Component{Declaration: d, ID: id, Scope: scope}

		switch d.Kind {
		case schema.KindConfig:
			if prev, ok := configKeys[d.Key]; ok {
				set.Error(CodeDuplicateConfigKey,
					fmt.Sprintf("configuration key %q is registered twice", d.Key),
					[]diagnostics.Snippet{
						{Site: r.components[prev].Site, Label: "first registered here"},
						{Site: d.Site, Label: "registered again here"},
					},
					"Each configuration key must map to exactly one type.",
				)
				continue
			}
			typeKey := d.Type.Key()
			if prev, ok := configTypes[typeKey]; ok {
				set.Error(CodeDuplicateConfigType,
					fmt.Sprintf("type %s is registered under two configuration keys, %q and %q",
						typeKey, r.components[prev].Key, d.Key),
					[]diagnostics.Snippet{
						{Site: r.components[prev].Site, Label: "first registered here"},
						{Site: d.Site, Label: "registered again here"},
					},
					"Each configuration type must map to exactly one key.",
				)
				continue
			}
			configKeys[d.Key] = id
			configTypes[typeKey] = id
			r.configByKey[d.Key] = id
			r.addProducer(scope, typeKey, id)

		case schema.KindConstructor:
			r.addProducer(scope, d.Callable.Output.Key(), id)

		case schema.KindPrebuilt:
			r.addProducer(scope, d.Type.Key(), id)

		case schema.KindErrorHandler:
			byType, ok := r.errorHandlers[scope]
			if !ok {
				byType = make(map[string]ComponentID)
				r.errorHandlers[scope] = byType
			}
			if prev, dup := byType[d.ErrorType.Key()]; dup {
				set.Error(CodeDuplicateErrorHandler,
					fmt.Sprintf("error type %s has two handlers in the same scope", d.ErrorType.Key()),
					[]diagnostics.Snippet{
						{Site: r.components[prev].Site, Label: "first registered here"},
						{Site: d.Site, Label: "registered again here"},
					},
					"Keep one error handler per error type and scope; move the other to a sibling scope.",
				)
				continue
			}
			byType[d.ErrorType.Key()] = id
		}

		r.components = append(r.components, c)
	}

	if set.HasErrors() {
		return nil, set
	}
	return r, set
}

func (r *Registry) addProducer(scope ScopeID, typeKey string, id ComponentID) {
	byType, ok := r.producers[scope]
	if !ok {
		byType = make(map[string][]ComponentID)
		r.producers[scope] = byType
	}
	byType[typeKey] = append(byType[typeKey], id)
}

// declValidator checks everything that can be judged from a single
// declaration.
type declValidator struct {
	decl      schema.Declaration
	framework *FrameworkDB
	set       *diagnostics.Set
}

// run returns false when the declaration must be dropped from the
// registry. Every problem found is reported before returning.
func (v *declValidator) run() bool {
	d := v.decl
	ok := true

	fail := func(code, summary string, help ...string) {
		v.set.Error(code, summary, []diagnostics.Snippet{{Site: d.Site, Label: "registered here"}}, help...)
		ok = false
	}

	switch d.Kind {
	case schema.KindConfig:
		if d.Type == nil {
			fail(CodeMalformedDeclaration, fmt.Sprintf("config entry %q does not declare a type", d.FQID()))
			return false
		}
		if err := validateConfigKey(d.Key); err != nil {
			fail(CodeInvalidConfigKey, fmt.Sprintf("invalid configuration key %q: %v", d.Key, err),
				"Configuration keys must start with a letter and contain only letters, digits and underscores.")
		}
		v.checkRegisteredType(*d.Type, &ok)
		if _, err := schema.CoerceDefault(d.Type.Name, d.Default); err != nil {
			fail(CodeMalformedDeclaration, fmt.Sprintf("config entry %q: %v", d.FQID(), err))
		}

	case schema.KindPrebuilt:
		if d.Type == nil {
			fail(CodeMalformedDeclaration, fmt.Sprintf("prebuilt type %q does not declare a type", d.FQID()))
			return false
		}
		v.checkRegisteredType(*d.Type, &ok)
		if v.framework.Reserved(d.Type.Name) {
			fail(CodePrimitiveOverride,
				fmt.Sprintf("%s is a framework primitive with a built-in producer; it cannot be supplied as a prebuilt type", d.Type.Name),
				"Remove the prebuilt registration; the framework provides this type on every request.")
		}

	case schema.KindConstructor:
		if d.Callable == nil || d.Callable.Output == nil || d.Callable.Output.IsUnit() {
			fail(CodeUnitOutput,
				fmt.Sprintf("constructor %q does not return anything", d.FQID()),
				"Constructors must return the type they build.")
			return false
		}
		out := *d.Callable.Output
		if v.framework.Reserved(out.Name) {
			fail(CodePrimitiveOverride,
				fmt.Sprintf("%s is a framework primitive with a built-in producer; it cannot be constructed by user code", out.Name),
				"Remove the constructor registration; the framework provides this type on every request.")
		}
		v.checkInputOnlyGenerics(&ok)
		v.checkMutableInputs(nil, &ok)
		v.checkCloningPolicy(out, &ok)
		if d.LifecycleOrDefault() == schema.Singleton && !out.Sendable {
			fail(CodeSingletonNotSendable,
				fmt.Sprintf("%s is a singleton but is not safe to share across request-handling goroutines", out.Key()),
				"Singletons live in shared application state; make the type internally synchronized, or register it request-scoped.")
		}

	case schema.KindRoute:
		if d.Callable == nil {
			fail(CodeMalformedDeclaration, fmt.Sprintf("route %q has no handler", d.FQID()))
			return false
		}
		if d.Callable.Output == nil || d.Callable.Output.IsUnit() {
			fail(CodeUnitOutput,
				fmt.Sprintf("handler %q does not return anything", d.FQID()),
				"Handlers must return a response.")
		} else if !d.Callable.Output.IntoResponse {
			v.failNotAResponse("handler")
			ok = false
		}
		v.checkMutableInputs(nil, &ok)

	case schema.KindWrap, schema.KindPostProcess:
		if d.Callable == nil {
			fail(CodeMalformedDeclaration, fmt.Sprintf("middleware %q has no callable", d.FQID()))
			return false
		}
		if d.Callable.Output == nil || d.Callable.Output.IsUnit() || !d.Callable.Output.IntoResponse {
			v.failNotAResponse("middleware")
			ok = false
		}
		v.checkMutableInputs(func(t schema.TypeRef) bool {
			item, found := v.framework.Item(t.Name)
			return found && item.InFlight
		}, &ok)

	case schema.KindPreProcess:
		if d.Callable == nil {
			fail(CodeMalformedDeclaration, fmt.Sprintf("middleware %q has no callable", d.FQID()))
			return false
		}
		v.checkMutableInputs(nil, &ok)

	case schema.KindErrorHandler:
		if d.ErrorType == nil {
			fail(CodeMissingErrorBinding,
				fmt.Sprintf("error handler %q is not bound to an error type", d.FQID()),
				"Bind the handler to the error it handles.")
			return false
		}
		if d.Callable == nil || d.Callable.Output == nil || !d.Callable.Output.IntoResponse {
			v.failNotAResponse("error handler")
			ok = false
		}
		v.checkMutableInputs(func(t schema.TypeRef) bool {
			return t.Key() == v.decl.ErrorType.Key()
		}, &ok)

	case schema.KindErrorObserver:
		if d.Callable == nil {
			fail(CodeMalformedDeclaration, fmt.Sprintf("error observer %q has no callable", d.FQID()))
			return false
		}
		if d.Callable.Output != nil && !d.Callable.Output.IsUnit() {
			fail(CodeMalformedDeclaration,
				fmt.Sprintf("error observer %q must not return a value", d.FQID()),
				"Observers are side-effect only; drop the return value.")
		}
		v.checkMutableInputs(nil, &ok)

	case schema.KindFallback:
		if d.Callable == nil || d.Callable.Output == nil || !d.Callable.Output.IntoResponse {
			v.failNotAResponse("fallback handler")
			ok = false
		}

	default:
		fail(CodeMalformedDeclaration, fmt.Sprintf("unknown component kind %q", d.Kind))
		return false
	}

	// Fallible callables must actually return something beyond the error.
	if d.Callable != nil && d.Callable.Fallible {
		if d.Kind != schema.KindErrorObserver && (d.Callable.Output == nil || d.Callable.Output.IsUnit()) {
			fail(CodeUnitOutput,
				fmt.Sprintf("%q can fail but returns nothing on success", d.FQID()),
				"Fallible components must produce a value when they succeed.")
		}
		if d.Callable.ErrorType == nil {
			fail(CodeMalformedDeclaration,
				fmt.Sprintf("%q is marked fallible but does not name its error type", d.FQID()))
		}
	}

	return ok
}

// checkRegisteredType enforces the shape rules shared by config entries
// and prebuilt types: no unassigned generics, no borrowed types.
func (v *declValidator) checkRegisteredType(t schema.TypeRef, ok *bool) {
	if t.HasUnboundGenerics() {
		v.set.Error(CodeUnassignedGenerics,
			fmt.Sprintf("%s has unassigned generic parameters", t.Key()),
			[]diagnostics.Snippet{{Site: v.decl.Site, Label: "registered here"}},
			"Specify a concrete type for every generic parameter at the registration site.")
		*ok = false
	}
	if t.Borrows() {
		v.set.Error(CodeBorrowedRegistration,
			fmt.Sprintf("%s is a borrowed type; registered types must be owned values", t.String()),
			[]diagnostics.Snippet{{Site: v.decl.Site, Label: "registered here"}},
			"Register the owned form of the type instead.")
		*ok = false
	}
	v.checkCloningPolicy(t, ok)
}

// checkCloningPolicy rejects CloneIfNecessary on types without a cloning
// capability.
func (v *declValidator) checkCloningPolicy(t schema.TypeRef, ok *bool) {
	if v.decl.CloningOrDefault() == schema.CloneIfNecessary && !t.SupportsClone {
		v.set.Error(CodeUncloneablePolicy,
			fmt.Sprintf("%s is marked CloneIfNecessary but does not implement a cloning capability", t.Key()),
			[]diagnostics.Snippet{{Site: v.decl.Site, Label: "registered here"}},
			"Implement cloning for the type, or keep the NeverClone default.")
		*ok = false
	}
}

// checkInputOnlyGenerics rejects constructors whose generic parameters
// appear in the inputs but never in the output. Such a constructor could
// "build any type", which makes resolution under-determined.
func (v *declValidator) checkInputOnlyGenerics(ok *bool) {
	c := v.decl.Callable
	outputParams := make(map[string]bool)
	for _, p := range c.Output.Params() {
		outputParams[p] = true
	}
	for _, in := range c.Inputs {
		for _, p := range in.Params() {
			if !outputParams[p] {
				v.set.Error(CodeInputOnlyGenerics,
					fmt.Sprintf("constructor %q has a generic parameter %q that appears in its inputs but not in its output", v.decl.FQID(), p),
					[]diagnostics.Snippet{{Site: v.decl.Site, Label: "registered here"}},
					"The compiler pins generic parameters by unifying the requested type against the constructor's output; a parameter absent from the output can never be pinned.")
				*ok = false
			}
		}
	}
}

// checkMutableInputs rejects &mut inputs, except those the allowed
// predicate explicitly permits (the in-flight response for wrapping and
// post-processing middlewares, the bound error for error handlers).
func (v *declValidator) checkMutableInputs(allowed func(schema.TypeRef) bool, ok *bool) {
	for _, in := range v.decl.Callable.Inputs {
		if in.Ref != schema.ByMutRef {
			continue
		}
		if allowed != nil && allowed(in) {
			continue
		}
		v.set.Error(CodeMutableInput,
			fmt.Sprintf("%q takes %s, but mutable references are only allowed on the in-flight response or error value", v.decl.FQID(), in.String()),
			[]diagnostics.Snippet{{Site: v.decl.Site, Label: "registered here"}},
			"Take the input by value or by shared reference.",
			"Allowing arbitrary mutation would force the compiler to infer a construction order, which it deliberately does not model.")
		*ok = false
	}
}

func (v *declValidator) failNotAResponse(what string) {
	var typeName string
	if v.decl.Callable != nil && v.decl.Callable.Output != nil {
		typeName = v.decl.Callable.Output.Key()
	} else {
		typeName = "()"
	}
	v.set.Error(CodeNotAResponse,
		fmt.Sprintf("%s %q returns %s, which cannot be converted into a response", what, v.decl.FQID(), typeName),
		[]diagnostics.Snippet{{Site: v.decl.Site, Label: "registered here"}},
		"Return a type that can be converted into a response.")
}

// validateConfigKey enforces the key grammar: non-empty, starts with a
// letter, letters/digits/underscore only.
func validateConfigKey(key string) error {
	if key == "" {
		return fmt.Errorf("the key is empty")
	}
	for i, r := range key {
		if i == 0 {
			if !unicode.IsLetter(r) {
				return fmt.Errorf("the key must start with a letter, found %q", r)
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return fmt.Errorf("invalid character %q", r)
		}
	}
	return nil
}
