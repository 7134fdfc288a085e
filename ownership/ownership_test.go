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

package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/resolve"
	"rivaas.dev/blueprint/schema"
)

func constructorDecl(id string, output schema.TypeRef, inputs ...schema.TypeRef) schema.Declaration {
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

func routeDecl(id string, inputs ...schema.TypeRef) schema.Declaration {
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

func analyze(t *testing.T, decls ...schema.Declaration) (*Plan, *diagnostics.Set) {
	t.Helper()
	reg, set := registry.Build(decls)
	require.False(t, set.HasErrors(), set.String())
	res, set := resolve.Resolve(reg)
	require.False(t, set.HasErrors(), set.String())
	return Analyze(reg, res)
}

func ownershipCodes(set *diagnostics.Set) []string {
	var codes []string
	for _, d := range set.Diagnostics() {
		codes = append(codes, d.Code)
	}
	return codes
}

func TestAnalyzeNoConflicts(t *testing.T) {
	t.Parallel()

	plan, set := analyze(t,
		constructorDecl("session", schema.TypeRef{Name: "myapp.Session"}),
		routeDecl("home", schema.TypeRef{Name: "myapp.Session"}),
	)
	require.False(t, set.HasErrors(), set.String())
	require.Len(t, plan.Routes, 1)
	assert.Empty(t, plan.Routes[0].Clones)
}

func TestAnalyzeValueConflictInsertsClones(t *testing.T) {
	t.Parallel()

	session := schema.TypeRef{Name: "myapp.Session", SupportsClone: true}
	sessionDecl := constructorDecl("session", session)
	sessionDecl.Cloning = schema.CloneIfNecessary

	plan, set := analyze(t,
		sessionDecl,
		constructorDecl("audit", schema.TypeRef{Name: "myapp.Audit"}, session),
		routeDecl("home", session, schema.TypeRef{Name: "myapp.Audit"}),
	)
	require.False(t, set.HasErrors(), set.String())

	// Two by-value consumers of one request-scoped session: everyone but
	// the last in pipeline order gets a copy.
	rp := plan.Routes[0]
	require.Len(t, rp.Clones, 1)

	g := rp.Graph
	var sessionNode resolve.NodeID
	for _, n := range g.Nodes() {
		if n.Type.Key() == "myapp.Session" {
			sessionNode = n.ID
		}
	}
	assert.Equal(t, sessionNode, rp.Clones[0].Node)
}

func TestAnalyzeValueConflictUncloneable(t *testing.T) {
	t.Parallel()

	session := schema.TypeRef{Name: "myapp.Session"}
	plan, set := analyze(t,
		constructorDecl("session", session),
		constructorDecl("audit", schema.TypeRef{Name: "myapp.Audit"}, session),
		routeDecl("home", session, schema.TypeRef{Name: "myapp.Audit"}),
	)
	assert.Nil(t, plan)
	require.True(t, set.HasErrors())
	assert.Contains(t, ownershipCodes(set), CodeValueConflict)

	// The producer and every competing consumer are cited.
	for _, d := range set.Diagnostics() {
		if d.Code == CodeValueConflict {
			assert.Len(t, d.Snippets, 3)
		}
	}
}

func TestAnalyzeSingletonMovedGetsClone(t *testing.T) {
	t.Parallel()

	pool := schema.TypeRef{Name: "myapp.Pool", Sendable: true, SupportsClone: true}
	poolDecl := constructorDecl("pool", pool)
	poolDecl.Lifecycle = schema.Singleton
	poolDecl.Cloning = schema.CloneIfNecessary

	plan, set := analyze(t,
		poolDecl,
		routeDecl("home", pool),
	)
	require.False(t, set.HasErrors(), set.String())
	require.Len(t, plan.Routes[0].Clones, 1)
}

func TestAnalyzeSingletonMovedUncloneable(t *testing.T) {
	t.Parallel()

	pool := schema.TypeRef{Name: "myapp.Pool", Sendable: true}
	poolDecl := constructorDecl("pool", pool)
	poolDecl.Lifecycle = schema.Singleton

	plan, set := analyze(t,
		poolDecl,
		routeDecl("home", pool),
	)
	assert.Nil(t, plan)
	require.True(t, set.HasErrors())
	assert.Contains(t, ownershipCodes(set), CodeSingletonMoved)
}

func TestAnalyzeSingletonSharedReferenceIsFine(t *testing.T) {
	t.Parallel()

	pool := schema.TypeRef{Name: "myapp.Pool", Sendable: true}
	poolDecl := constructorDecl("pool", pool)
	poolDecl.Lifecycle = schema.Singleton

	plan, set := analyze(t,
		poolDecl,
		routeDecl("home", schema.TypeRef{Name: "myapp.Pool", Ref: schema.ByRef}),
	)
	require.False(t, set.HasErrors(), set.String())
	assert.Empty(t, plan.Routes[0].Clones)
}

func preProcessDecl(id string, inputs ...schema.TypeRef) schema.Declaration {
	return schema.Declaration{
		Kind:    schema.KindPreProcess,
		ID:      id,
		Package: "myapp",
		Site:    schema.Site{File: "myapp/mw.go", Line: len(id)},
		Callable: &schema.Callable{
			Name:   "myapp." + id,
			Inputs: inputs,
			Output: &schema.TypeRef{Name: "myapp.Decision"},
		},
	}
}

func TestAnalyzeCrossStageConsumption(t *testing.T) {
	t.Parallel()

	session := schema.TypeRef{Name: "myapp.Session"}
	plan, set := analyze(t,
		constructorDecl("session", session),
		preProcessDecl("guard", session),
		routeDecl("home", schema.TypeRef{Name: "myapp.Session", Ref: schema.ByRef}),
	)
	assert.Nil(t, plan)
	require.True(t, set.HasErrors())
	assert.Contains(t, ownershipCodes(set), CodeCrossStageConsumption)
}

func TestAnalyzeCrossStageClone(t *testing.T) {
	t.Parallel()

	session := schema.TypeRef{Name: "myapp.Session", SupportsClone: true}
	sessionDecl := constructorDecl("session", session)
	sessionDecl.Cloning = schema.CloneIfNecessary

	plan, set := analyze(t,
		sessionDecl,
		preProcessDecl("guard", session),
		routeDecl("home", schema.TypeRef{Name: "myapp.Session", Ref: schema.ByRef}),
	)
	require.False(t, set.HasErrors(), set.String())

	// The earlier stage works on a copy so the handler can still borrow
	// the original.
	require.Len(t, plan.Routes[0].Clones, 1)
}

func TestAnalyzeMutableResponseBorrowAllowed(t *testing.T) {
	t.Parallel()

	wrap := schema.Declaration{
		Kind:    schema.KindWrap,
		ID:      "trace",
		Package: "myapp",
		Site:    schema.Site{File: "myapp/mw.go", Line: 1},
		Callable: &schema.Callable{
			Name:   "myapp.Trace",
			Inputs: []schema.TypeRef{{Name: registry.TypeResponse, Ref: schema.ByMutRef}},
			Output: &schema.TypeRef{Name: "myapp.Page", IntoResponse: true},
		},
	}

	plan, set := analyze(t, wrap, routeDecl("home"))
	require.False(t, set.HasErrors(), set.String())
	assert.NotNil(t, plan)
}
