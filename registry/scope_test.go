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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/blueprint/schema"
)

func TestScopeTreeIntern(t *testing.T) {
	t.Parallel()

	tree := NewScopeTree()
	api := tree.Intern([]schema.ScopeStep{{Prefix: "/api"}})
	apiV1 := tree.Intern([]schema.ScopeStep{{Prefix: "/api"}, {Prefix: "/v1"}})

	assert.NotEqual(t, RootScope, api)
	assert.NotEqual(t, api, apiV1)

	// Interning the same chain twice yields the same id.
	assert.Equal(t, api, tree.Intern([]schema.ScopeStep{{Prefix: "/api"}}))
	assert.Equal(t, apiV1, tree.Intern([]schema.ScopeStep{{Prefix: "/api"}, {Prefix: "/v1"}}))

	parent, ok := tree.Parent(apiV1)
	require.True(t, ok)
	assert.Equal(t, api, parent)

	_, ok = tree.Parent(RootScope)
	assert.False(t, ok)
}

func TestScopeTreePathPrefix(t *testing.T) {
	t.Parallel()

	tree := NewScopeTree()
	id := tree.Intern([]schema.ScopeStep{{Prefix: "/api"}, {Domain: "admin.example.com"}, {Prefix: "/v1"}})

	assert.Equal(t, "/api/v1", tree.PathPrefix(id))
	assert.Equal(t, "admin.example.com", tree.Domain(id))
	assert.Equal(t, "", tree.PathPrefix(RootScope))
	assert.Equal(t, "", tree.Domain(RootScope))
}

func TestScopeTreeDomainInnermostWins(t *testing.T) {
	t.Parallel()

	tree := NewScopeTree()
	id := tree.Intern([]schema.ScopeStep{
		{Domain: "example.com"},
		{Prefix: "/admin"},
		{Domain: "admin.example.com"},
	})
	assert.Equal(t, "admin.example.com", tree.Domain(id))
}

func TestScopeTreeAncestry(t *testing.T) {
	t.Parallel()

	tree := NewScopeTree()
	api := tree.Intern([]schema.ScopeStep{{Prefix: "/api"}})
	apiV1 := tree.Intern([]schema.ScopeStep{{Prefix: "/api"}, {Prefix: "/v1"}})
	admin := tree.Intern([]schema.ScopeStep{{Prefix: "/admin"}})

	assert.True(t, tree.IsAncestorOrSelf(RootScope, apiV1))
	assert.True(t, tree.IsAncestorOrSelf(api, apiV1))
	assert.True(t, tree.IsAncestorOrSelf(api, api))
	assert.False(t, tree.IsAncestorOrSelf(apiV1, api))
	assert.False(t, tree.IsAncestorOrSelf(admin, apiV1))

	assert.Equal(t, []ScopeID{apiV1, api, RootScope}, tree.Chain(apiV1))
}
