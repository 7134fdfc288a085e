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
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/resolve"
	"rivaas.dev/blueprint/schema"
)

// TestProperty_CloneCountFollowsFanOut checks that a cloneable value with
// n by-value consumers gets exactly n-1 clones: everyone but the last
// consumer receives a copy, the last one the original.
func TestProperty_CloneCountFollowsFanOut(t *testing.T) {
	t.Parallel()

	for n := 2; n <= 6; n++ {
		t.Run(fmt.Sprintf("consumers_%d", n), func(t *testing.T) {
			t.Parallel()

			session := schema.TypeRef{Name: "myapp.Session", SupportsClone: true}
			sessionDecl := constructorDecl("session", session)
			sessionDecl.Cloning = schema.CloneIfNecessary

			decls := []schema.Declaration{sessionDecl}
			var routeInputs []schema.TypeRef
			for i := 0; i < n; i++ {
				product := schema.TypeRef{Name: fmt.Sprintf("myapp.Product%d", i)}
				decls = append(decls, constructorDecl(fmt.Sprintf("product%d", i), product, session))
				routeInputs = append(routeInputs, product)
			}
			decls = append(decls, routeDecl("home", routeInputs...))

			plan, set := analyze(t, decls...)
			require.False(t, set.HasErrors(), set.String())

			rp := plan.Routes[0]
			require.Len(t, rp.Clones, n-1)

			var sessionNode resolve.NodeID
			for _, node := range rp.Graph.Nodes() {
				if node.Type.Key() == "myapp.Session" {
					sessionNode = node.ID
				}
			}
			for _, c := range rp.Clones {
				assert.Equal(t, sessionNode, c.Node, "every clone copies the shared session")
			}
		})
	}
}

// TestProperty_RandomLayeredGraphsAreSound builds randomized layered
// constructor DAGs where every shared value is consumed by reference, and
// checks that resolution and ownership analysis accept them without
// diagnostics and resolve them to the same graph every time.
func TestProperty_RandomLayeredGraphsAreSound(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 10; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			t.Parallel()

			decls := randomLayeredDecls(rand.New(rand.NewSource(seed)))

			first := resolveTypes(t, decls)
			second := resolveTypes(t, decls)
			assert.Equal(t, first, second, "identical inputs must resolve identically")

			plan, set := analyze(t, decls...)
			require.False(t, set.HasErrors(), set.String())
			assert.Empty(t, plan.Routes[0].Clones, "by-reference sharing needs no copies")
		})
	}
}

// randomLayeredDecls generates constructors in layers, each consuming a
// random non-empty subset of the previous layer by reference, plus one
// route consuming the final layer.
func randomLayeredDecls(rng *rand.Rand) []schema.Declaration {
	var decls []schema.Declaration
	var prev []schema.TypeRef

	layers := 2 + rng.Intn(3)
	for l := 0; l < layers; l++ {
		width := 1 + rng.Intn(3)
		var layer []schema.TypeRef
		for i := 0; i < width; i++ {
			out := schema.TypeRef{Name: fmt.Sprintf("myapp.L%dV%d", l, i)}
			var inputs []schema.TypeRef
			for _, p := range prev {
				if rng.Intn(2) == 0 {
					continue
				}
				borrowed := p
				borrowed.Ref = schema.ByRef
				inputs = append(inputs, borrowed)
			}
			if len(inputs) == 0 && len(prev) > 0 {
				borrowed := prev[rng.Intn(len(prev))]
				borrowed.Ref = schema.ByRef
				inputs = append(inputs, borrowed)
			}
			decls = append(decls, constructorDecl(fmt.Sprintf("l%dv%d", l, i), out, inputs...))
			layer = append(layer, out)
		}
		prev = layer
	}

	var routeInputs []schema.TypeRef
	for _, p := range prev {
		borrowed := p
		borrowed.Ref = schema.ByRef
		routeInputs = append(routeInputs, borrowed)
	}
	decls = append(decls, routeDecl("home", routeInputs...))
	return decls
}

// resolveTypes runs the registry and resolution phases and returns the
// type keys of the route graph in node order.
func resolveTypes(t *testing.T, decls []schema.Declaration) []string {
	t.Helper()
	reg, set := registry.Build(decls)
	require.False(t, set.HasErrors(), set.String())
	res, set := resolve.Resolve(reg)
	require.False(t, set.HasErrors(), set.String())

	var keys []string
	for _, n := range res.Routes[0].Nodes() {
		keys = append(keys, n.Type.Key())
	}
	return keys
}
