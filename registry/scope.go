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
	"strings"

	"rivaas.dev/blueprint/schema"
)

// ScopeID indexes a node in the scope arena. RootScope is the blueprint
// the application was built from; every Nest call adds one child.
type ScopeID int

// RootScope is the scope of the top-level blueprint.
const RootScope ScopeID = 0

type scopeNode struct {
	parent ScopeID
	step   schema.ScopeStep
}

// ScopeTree is an arena of scope nodes with parent pointers. Lookups walk
// parent links explicitly; there is no inheritance machinery.
type ScopeTree struct {
	nodes []scopeNode
	index map[string]ScopeID // interned chain -> id
}

// NewScopeTree returns a tree holding only the root scope.
func NewScopeTree() *ScopeTree {
	t := &ScopeTree{index: make(map[string]ScopeID)}
	t.nodes = append(t.nodes, scopeNode{parent: -1})
	return t
}

// Intern maps a declaration's nesting chain to a ScopeID, creating nodes
// as needed. Identical chains share a node, so components registered
// against the same nested blueprint land in the same scope.
func (t *ScopeTree) Intern(chain []schema.ScopeStep) ScopeID {
	current := RootScope
	var key strings.Builder
	for _, step := range chain {
		key.WriteString(step.Prefix)
		key.WriteString("\x00")
		key.WriteString(step.Domain)
		key.WriteString("\x1f")
		k := key.String()
		if id, ok := t.index[k]; ok {
			current = id
			continue
		}
		t.nodes = append(t.nodes, scopeNode{parent: current, step: step})
		id := ScopeID(len(t.nodes) - 1)
		t.index[k] = id
		current = id
	}
	return current
}

// Parent returns the enclosing scope, or false for the root.
func (t *ScopeTree) Parent(id ScopeID) (ScopeID, bool) {
	p := t.nodes[id].parent
	if p < 0 {
		return 0, false
	}
	return p, true
}

// Len returns the number of scopes, root included.
func (t *ScopeTree) Len() int {
	return len(t.nodes)
}

// PathPrefix concatenates the path prefixes from the root down to id.
func (t *ScopeTree) PathPrefix(id ScopeID) string {
	var parts []string
	for current := id; ; {
		if p := t.nodes[current].step.Prefix; p != "" {
			parts = append(parts, p)
		}
		parent, ok := t.Parent(current)
		if !ok {
			break
		}
		current = parent
	}
	// parts were collected innermost first
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(strings.TrimSuffix(parts[i], "/"))
	}
	return b.String()
}

// Domain returns the innermost domain constraint visible from id, or the
// empty string when the scope chain carries none.
func (t *ScopeTree) Domain(id ScopeID) string {
	for current := id; ; {
		if d := t.nodes[current].step.Domain; d != "" {
			return d
		}
		parent, ok := t.Parent(current)
		if !ok {
			return ""
		}
		current = parent
	}
}

// IsAncestorOrSelf reports whether ancestor encloses descendant (or is
// the same scope).
func (t *ScopeTree) IsAncestorOrSelf(ancestor, descendant ScopeID) bool {
	for current := descendant; ; {
		if current == ancestor {
			return true
		}
		parent, ok := t.Parent(current)
		if !ok {
			return false
		}
		current = parent
	}
}

// Chain returns the scope ids from id up to the root, innermost first.
func (t *ScopeTree) Chain(id ScopeID) []ScopeID {
	var out []ScopeID
	for current := id; ; {
		out = append(out, current)
		parent, ok := t.Parent(current)
		if !ok {
			return out
		}
		current = parent
	}
}
