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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/schema"
)

func typ(name string) schema.TypeRef {
	return schema.TypeRef{Name: name, Sendable: true}
}

func constructor(id string, output schema.TypeRef, inputs ...schema.TypeRef) schema.Declaration {
	return schema.Declaration{
		Kind:    schema.KindConstructor,
		ID:      id,
		Package: "myapp",
		Site:    schema.Site{File: "myapp/deps.go", Line: len(id)},
		Callable: &schema.Callable{
			Name:   "myapp.New_" + id,
			Inputs: inputs,
			Output: &output,
		},
	}
}

func handler(id string, inputs ...schema.TypeRef) schema.Declaration {
	return schema.Declaration{
		Kind:    schema.KindRoute,
		ID:      id,
		Package: "myapp",
		Site:    schema.Site{File: "myapp/routes.go", Line: len(id)},
		Methods: []string{"GET"},
		Path:    "/" + id,
		Callable: &schema.Callable{
			Name:   "myapp." + id,
			Inputs: inputs,
			Output: &schema.TypeRef{Name: "myapp.Page", IntoResponse: true},
		},
	}
}

func mustRegistry(t *testing.T, decls ...schema.Declaration) *registry.Registry {
	t.Helper()
	reg, set := registry.Build(decls)
	require.False(t, set.HasErrors(), set.String())
	return reg
}

func codesOf(set *diagnostics.Set) []string {
	var codes []string
	for _, d := range set.Diagnostics() {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestResolveSharedRequestScopedValue(t *testing.T) {
	t.Parallel()

	session := typ("myapp.Session")
	reg := mustRegistry(t,
		constructor("session", session),
		constructor("audit", typ("myapp.Audit"), schema.TypeRef{Name: "myapp.Session", Ref: schema.ByRef}),
		handler("home", schema.TypeRef{Name: "myapp.Session", Ref: schema.ByRef}, typ("myapp.Audit")),
	)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())
	require.Len(t, res.Routes, 1)

	// The session is request-scoped: one node, two consumers.
	g := res.Routes[0]
	var sessionNodes int
	for _, n := range g.Nodes() {
		if n.Type.Key() == "myapp.Session" {
			sessionNodes++
			assert.Len(t, g.Consumers(n.ID), 2)
		}
	}
	assert.Equal(t, 1, sessionNodes)
}

func TestResolveTransientGetsFreshNodes(t *testing.T) {
	t.Parallel()

	uuid := schema.Declaration{
		Kind:      schema.KindConstructor,
		ID:        "uuid",
		Package:   "myapp",
		Site:      schema.Site{File: "myapp/deps.go", Line: 1},
		Lifecycle: schema.Transient,
		Callable: &schema.Callable{
			Name:   "myapp.NewUUID",
			Output: &schema.TypeRef{Name: "myapp.UUID"},
		},
	}
	reg := mustRegistry(t,
		uuid,
		constructor("a", typ("myapp.A"), typ("myapp.UUID")),
		constructor("b", typ("myapp.B"), typ("myapp.UUID")),
		handler("home", typ("myapp.A"), typ("myapp.B")),
	)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	var uuidNodes int
	for _, n := range res.Routes[0].Nodes() {
		if n.Type.Key() == "myapp.UUID" {
			uuidNodes++
		}
	}
	assert.Equal(t, 2, uuidNodes, "each consumer demands its own transient instance")
}

func TestResolveMissingProducer(t *testing.T) {
	t.Parallel()

	reg := mustRegistry(t, handler("home", typ("myapp.Nowhere")))

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors())
	assert.Contains(t, codesOf(set), CodeUnresolvableType)
}

func TestResolveCycleNamesFullChain(t *testing.T) {
	t.Parallel()

	reg := mustRegistry(t,
		constructor("a", typ("myapp.A"), typ("myapp.B")),
		constructor("b", typ("myapp.B"), typ("myapp.C")),
		constructor("c", typ("myapp.C"), typ("myapp.A")),
		handler("home", typ("myapp.A")),
	)

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors())

	var found bool
	for _, d := range set.Diagnostics() {
		if d.Code != CodeDependencyCycle {
			continue
		}
		found = true
		assert.Contains(t, d.Summary, "myapp.A")
		assert.Contains(t, d.Summary, "myapp.B")
		assert.Contains(t, d.Summary, "myapp.C")
	}
	assert.True(t, found, "expected a cycle diagnostic, got: %s", set)
}

func TestResolveSingletonSharedAcrossRoutes(t *testing.T) {
	t.Parallel()

	pool := constructor("pool", typ("myapp.Pool"))
	pool.Lifecycle = schema.Singleton
	reg := mustRegistry(t,
		pool,
		handler("a", schema.TypeRef{Name: "myapp.Pool", Ref: schema.ByRef}),
		handler("b", schema.TypeRef{Name: "myapp.Pool", Ref: schema.ByRef}),
	)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	require.Len(t, res.Singletons, 1)
	assert.Equal(t, "myapp.Pool", res.Singletons[0].Type.Key())
}

func TestResolveSingletonConstructionOrder(t *testing.T) {
	t.Parallel()

	cfgEntry := schema.Declaration{
		Kind: schema.KindConfig, ID: "dsn", Package: "myapp", Key: "dsn",
		Site: schema.Site{File: "myapp/deps.go", Line: 2},
		Type: &schema.TypeRef{Name: "myapp.DSN"},
	}
	pool := constructor("pool", typ("myapp.Pool"), schema.TypeRef{Name: "myapp.DSN"})
	pool.Lifecycle = schema.Singleton
	cache := constructor("cache", typ("myapp.Cache"), schema.TypeRef{Name: "myapp.Pool", Ref: schema.ByRef})
	cache.Lifecycle = schema.Singleton

	reg := mustRegistry(t,
		cache, pool, cfgEntry,
		handler("home", schema.TypeRef{Name: "myapp.Cache", Ref: schema.ByRef}),
	)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	var order []string
	for _, s := range res.Singletons {
		order = append(order, s.Type.Key())
	}
	assert.Equal(t, []string{"myapp.DSN", "myapp.Pool", "myapp.Cache"}, order)
}

func TestResolveSingletonCannotDependOnRequestScoped(t *testing.T) {
	t.Parallel()

	session := constructor("session", typ("myapp.Session"))
	cache := constructor("cache", typ("myapp.Cache"), schema.TypeRef{Name: "myapp.Session", Ref: schema.ByRef})
	cache.Lifecycle = schema.Singleton

	reg := mustRegistry(t,
		session, cache,
		handler("home", schema.TypeRef{Name: "myapp.Cache", Ref: schema.ByRef}),
	)

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors())
	assert.Contains(t, codesOf(set), CodeLifecycleViolation)
}

func TestResolveCompetingProducers(t *testing.T) {
	t.Parallel()

	reg := mustRegistry(t,
		constructor("a", typ("myapp.Session")),
		constructor("b", typ("myapp.Session")),
		handler("home", typ("myapp.Session")),
	)

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors())

	for _, d := range set.Diagnostics() {
		if d.Code == CodeCompetingProducers {
			assert.Len(t, d.Snippets, 2, "every competing producer is cited")
		}
	}
	assert.Contains(t, codesOf(set), CodeCompetingProducers)
}

func TestResolveSingletonAmbiguityAcrossScopes(t *testing.T) {
	t.Parallel()

	outer := constructor("outer_pool", typ("myapp.Pool"))
	outer.Lifecycle = schema.Singleton
	inner := constructor("inner_pool", typ("myapp.Pool"))
	inner.Lifecycle = schema.Singleton
	inner.Scope = []schema.ScopeStep{{Prefix: "/api"}}
	h := handler("home", schema.TypeRef{Name: "myapp.Pool", Ref: schema.ByRef})
	h.Scope = []schema.ScopeStep{{Prefix: "/api"}}

	reg := mustRegistry(t, outer, inner, h)

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors(), "application state cannot hold two myapp.Pool values")

	for _, d := range set.Diagnostics() {
		if d.Code == CodeCompetingProducers {
			assert.Len(t, d.Snippets, 2, "both registration sites are cited")
		}
	}
	assert.Contains(t, codesOf(set), CodeCompetingProducers)
}

func TestResolveInnerScopeShadowsOuter(t *testing.T) {
	t.Parallel()

	outer := constructor("outer_session", typ("myapp.Session"))
	inner := constructor("inner_session", typ("myapp.Session"))
	inner.Scope = []schema.ScopeStep{{Prefix: "/api"}}
	h := handler("home", typ("myapp.Session"))
	h.Scope = []schema.ScopeStep{{Prefix: "/api"}}

	reg := mustRegistry(t, outer, inner, h)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	var producer string
	for _, n := range res.Routes[0].Nodes() {
		if n.Kind == NodeComponent && n.Type.Key() == "myapp.Session" {
			producer = reg.Component(n.Component).FQID()
		}
	}
	assert.Equal(t, "myapp::inner_session", producer)
}

func TestResolvePrebuiltOutranksConstructor(t *testing.T) {
	t.Parallel()

	pool := typ("myapp.Pool")
	prebuilt := schema.Declaration{
		Kind:    schema.KindPrebuilt,
		ID:      "external_pool",
		Package: "myapp",
		Site:    schema.Site{File: "myapp/deps.go", Line: 3},
		Type:    &pool,
	}

	reg := mustRegistry(t,
		prebuilt,
		constructor("pool", pool),
		handler("home", pool),
	)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	var producer string
	for _, n := range res.Routes[0].Nodes() {
		if n.Kind == NodeComponent && n.Type.Key() == "myapp.Pool" {
			producer = reg.Component(n.Component).FQID()
		}
	}
	assert.Equal(t, "myapp::external_pool", producer)
}

func TestResolveGenericConstructor(t *testing.T) {
	t.Parallel()

	repo := schema.TypeRef{Name: "myapp.Repo", Generics: []schema.TypeRef{{Param: "T"}}, Sendable: true}
	reg := mustRegistry(t,
		constructor("repo", repo),
		handler("home", schema.TypeRef{
			Name:     "myapp.Repo",
			Generics: []schema.TypeRef{{Name: "myapp.User"}},
		}),
	)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	var got string
	for _, n := range res.Routes[0].Nodes() {
		if n.Kind == NodeComponent && reg.Component(n.Component).Declaration.ID == "repo" {
			got = n.Type.Key()
		}
	}
	assert.Equal(t, "myapp.Repo[myapp.User]", got)
}

func TestResolveUnboundGenericInput(t *testing.T) {
	t.Parallel()

	reg := mustRegistry(t, handler("home", schema.TypeRef{
		Name:     "myapp.Repo",
		Generics: []schema.TypeRef{{Param: "T"}},
	}))

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors())
	assert.Contains(t, codesOf(set), CodeUnresolvableType)
}

func TestResolvePathParamsFallbackWarning(t *testing.T) {
	t.Parallel()

	reg := mustRegistry(t,
		handler("home", schema.TypeRef{
			Name:     registry.TypePathParams,
			Generics: []schema.TypeRef{{Name: "myapp.HomeParams"}},
		}),
	)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())
	require.NotNil(t, res)

	// Extraction can fail and nothing handles the error explicitly; the
	// error type converts itself, with a warning.
	assert.Contains(t, codesOf(set), CodeGenericErrorHandler)
}

func TestResolveSuppressedFallbackWarning(t *testing.T) {
	t.Parallel()

	h := handler("home", schema.TypeRef{
		Name:     registry.TypePathParams,
		Generics: []schema.TypeRef{{Name: "myapp.HomeParams"}},
	})
	h.SuppressedWarnings = []string{CodeGenericErrorHandler}
	reg := mustRegistry(t, h)

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())
	require.NotNil(t, res)
	assert.NotContains(t, codesOf(set), CodeGenericErrorHandler)
}

func TestResolveFallibleWithHandler(t *testing.T) {
	t.Parallel()

	dbErr := schema.TypeRef{Name: "myapp.DbError"}
	pool := schema.Declaration{
		Kind: schema.KindConstructor, ID: "conn", Package: "myapp",
		Site: schema.Site{File: "myapp/deps.go", Line: 4},
		Callable: &schema.Callable{
			Name:      "myapp.NewConn",
			Output:    &schema.TypeRef{Name: "myapp.Conn"},
			Fallible:  true,
			ErrorType: &dbErr,
		},
	}
	eh := schema.Declaration{
		Kind: schema.KindErrorHandler, ID: "db_eh", Package: "myapp",
		Site:      schema.Site{File: "myapp/deps.go", Line: 5},
		ErrorType: &dbErr,
		Callable: &schema.Callable{
			Name:   "myapp.HandleDbError",
			Inputs: []schema.TypeRef{{Name: "myapp.DbError", Ref: schema.ByRef}},
			Output: &schema.TypeRef{Name: "myapp.Page", IntoResponse: true},
		},
	}
	reg := mustRegistry(t, pool, eh, handler("home", typ("myapp.Conn")))

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	g := res.Routes[0]
	var wired bool
	for _, n := range g.Nodes() {
		if n.Kind == NodeErrorValue && n.Type.Key() == "myapp.DbError" {
			wired = n.HasHandler
		}
	}
	assert.True(t, wired, "the error handler is attached to the error value")
	assert.NotEmpty(t, g.ErrorCalls())
}

func TestResolveFallibleWithoutHandlerOrConversion(t *testing.T) {
	t.Parallel()

	opaque := schema.TypeRef{Name: "myapp.OpaqueError"}
	conn := schema.Declaration{
		Kind: schema.KindConstructor, ID: "conn", Package: "myapp",
		Site: schema.Site{File: "myapp/deps.go", Line: 6},
		Callable: &schema.Callable{
			Name:      "myapp.NewConn",
			Output:    &schema.TypeRef{Name: "myapp.Conn"},
			Fallible:  true,
			ErrorType: &opaque,
		},
	}
	reg := mustRegistry(t, conn, handler("home", typ("myapp.Conn")))

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors())
	assert.Contains(t, codesOf(set), CodeMissingErrorHandler)
}

func TestResolveObserverWithFallibleDependency(t *testing.T) {
	t.Parallel()

	dbErr := schema.TypeRef{Name: "myapp.DbError", IntoResponse: true}
	conn := schema.Declaration{
		Kind: schema.KindConstructor, ID: "conn", Package: "myapp",
		Site: schema.Site{File: "myapp/deps.go", Line: 7},
		Callable: &schema.Callable{
			Name:      "myapp.NewConn",
			Output:    &schema.TypeRef{Name: "myapp.Conn"},
			Fallible:  true,
			ErrorType: &dbErr,
		},
	}
	obs := schema.Declaration{
		Kind: schema.KindErrorObserver, ID: "obs", Package: "myapp",
		Site: schema.Site{File: "myapp/deps.go", Line: 8},
		Callable: &schema.Callable{
			Name: "myapp.Observe",
			Inputs: []schema.TypeRef{
				{Name: registry.TypeError, Ref: schema.ByRef},
				{Name: "myapp.Conn", Ref: schema.ByRef},
			},
		},
	}
	reg := mustRegistry(t, conn, obs, handler("home", typ("myapp.Conn")))

	res, set := Resolve(reg)
	assert.Nil(t, res)
	require.True(t, set.HasErrors())
	assert.Contains(t, codesOf(set), CodeFallibleObserverDep)
}

func TestResolveUsageTracking(t *testing.T) {
	t.Parallel()

	used := constructor("used", typ("myapp.Used"))
	unused := constructor("unused", typ("myapp.Unused"))
	reg := mustRegistry(t, used, unused, handler("home", typ("myapp.Used")))

	res, set := Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	byFQID := make(map[string]bool)
	for _, c := range reg.Components() {
		byFQID[c.FQID()] = res.Used[c.ID]
	}
	assert.True(t, byFQID["myapp::used"])
	assert.False(t, byFQID["myapp::unused"])
	assert.True(t, byFQID["myapp::home"])
}
