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

// Package routing compiles the blueprint's routes into a conflict-free
// routing table: one path trie per domain guard, partitioned by method,
// with a single determinable fallback per (domain, path).
//
// The builder never guesses. Wherever two routes could match the same
// request without a deterministic priority between them, compilation
// fails citing both registration sites.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/schema"
)

// Diagnostic codes emitted by the routing phase.
const (
	CodeInvalidPath       = "BP0201"
	CodePathConflict      = "BP0202"
	CodeInvalidDomain     = "BP0203"
	CodeDomainConflict    = "BP0204"
	CodeAmbiguousFallback = "BP0205"
	CodeMixedDomains      = "BP0206"
)

// Entry is one (method, path) pair bound to its handler and fallback.
type Entry struct {
	// Domain is the normalized domain guard, empty for domain-agnostic
	// applications.
	Domain string
	// Path is the full path pattern, scope prefixes applied.
	Path string
	// Method is the HTTP method.
	Method string
	// Handler is the route component.
	Handler registry.ComponentID
	// Fallback is the handler invoked for unmatched methods on this path.
	// HasFallback is false when the framework default (404/405) applies.
	Fallback    registry.ComponentID
	HasFallback bool
}

// Table is the compiled routing table. Entries are sorted by (domain,
// path, method), so iteration is deterministic.
type Table struct {
	entries []Entry
}

// Entries returns the table rows in their canonical order.
func (t *Table) Entries() []Entry {
	return t.entries
}

// Len returns the number of (method, path) rows.
func (t *Table) Len() int {
	return len(t.entries)
}

// routeUnit is a route flattened against its scope: full path, effective
// domain, parsed pattern.
type routeUnit struct {
	component registry.Component
	pattern   pattern
	domain    DomainGuard
	fullPath  string
}

// fallbackUnit is a fallback flattened against its scope.
type fallbackUnit struct {
	component registry.Component
	domain    DomainGuard
	prefix    string
}

// Build compiles every route and fallback of the registry into a Table,
// or reports the complete batch of routing errors.
func Build(reg *registry.Registry) (*Table, *diagnostics.Set) {
	set := diagnostics.NewSet(diagnostics.PhaseRouting)
	scopes := reg.Scopes()

	var units []routeUnit
	var withDomain, withoutDomain []registry.Component
	for _, c := range reg.ByKind(schema.KindRoute) {
		fullPath := joinPath(scopes.PathPrefix(c.Scope), c.Path)
		p, err := parsePattern(fullPath)
		if err != nil {
			set.Error(CodeInvalidPath, err.Error(),
				[]diagnostics.Snippet{{Site: c.Site, Label: "registered here"}})
			continue
		}

		rawDomain := scopes.Domain(c.Scope)
		var guard DomainGuard
		if rawDomain != "" {
			guard, err = ParseDomain(rawDomain)
			if err != nil {
				set.Error(CodeInvalidDomain,
					fmt.Sprintf("invalid domain guard %q: %v", rawDomain, err),
					[]diagnostics.Snippet{{Site: c.Site, Label: "the route constrained by it"}})
				continue
			}
			withDomain = append(withDomain, c)
		} else {
			withoutDomain = append(withoutDomain, c)
		}
		units = append(units, routeUnit{component: c, pattern: p, domain: guard, fullPath: fullPath})
	}

	// All-or-nothing domain guards: mixing both flavors makes matching
	// order-dependent, so it is rejected outright.
	if len(withDomain) > 0 && len(withoutDomain) > 0 {
		set.Error(CodeMixedDomains,
			"the application mixes domain-qualified and domain-agnostic routes",
			[]diagnostics.Snippet{
				{Site: withDomain[0].Site, Label: "a domain-qualified route"},
				{Site: withoutDomain[0].Site, Label: "a domain-agnostic route"},
			},
			"Constrain every route to a domain, or none of them.")
	}

	checkDomainConflicts(units, set)
	checkPathConflicts(units, set)

	fallbacks := collectFallbacks(reg, set)

	if set.HasErrors() {
		return nil, set
	}

	table := &Table{}
	for _, u := range units {
		fb, hasFB := nearestFallback(fallbacks, u)
		for _, method := range u.component.Methods {
			table.entries = append(table.entries, Entry{
				Domain:      u.domain.String(),
				Path:        u.fullPath,
				Method:      method,
				Handler:     u.component.ID,
				Fallback:    fb,
				HasFallback: hasFB,
			})
		}
	}
	sort.Slice(table.entries, func(i, j int) bool {
		a, b := table.entries[i], table.entries[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Method < b.Method
	})
	return table, set
}

// checkDomainConflicts reports every pair of domain guards that can match
// the same host without a deterministic priority.
func checkDomainConflicts(units []routeUnit, set *diagnostics.Set) {
	type guardUse struct {
		guard DomainGuard
		site  schema.Site
	}
	var guards []guardUse
	seen := make(map[string]bool)
	for _, u := range units {
		if u.domain.IsZero() || seen[u.domain.String()] {
			continue
		}
		seen[u.domain.String()] = true
		guards = append(guards, guardUse{guard: u.domain, site: u.component.Site})
	}
	for i := 0; i < len(guards); i++ {
		for j := i + 1; j < len(guards); j++ {
			if guards[i].guard.String() == guards[j].guard.String() {
				continue
			}
			if guards[i].guard.Conflicts(guards[j].guard) {
				set.Error(CodeDomainConflict,
					fmt.Sprintf("domain guards %q and %q can match the same host, with no deterministic priority between them",
						guards[i].guard, guards[j].guard),
					[]diagnostics.Snippet{
						{Site: guards[i].site, Label: "the first conflicting guard"},
						{Site: guards[j].site, Label: "the second conflicting guard"},
					},
					"Make one guard strictly more specific, or give the applications separate deployments.")
			}
		}
	}
}

// checkPathConflicts reports route pairs within the same domain that
// shadow each other for an overlapping method set.
func checkPathConflicts(units []routeUnit, set *diagnostics.Set) {
	byDomain := make(map[string][]routeUnit)
	var domains []string
	for _, u := range units {
		key := u.domain.String()
		if _, ok := byDomain[key]; !ok {
			domains = append(domains, key)
		}
		byDomain[key] = append(byDomain[key], u)
	}
	for _, domain := range domains {
		group := byDomain[domain]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if !methodsOverlap(a.component.Methods, b.component.Methods) {
					continue
				}
				if a.pattern.shadows(b.pattern) {
					set.Error(CodePathConflict,
						fmt.Sprintf("routes %q and %q can match the same request path for an overlapping method set",
							a.fullPath, b.fullPath),
						[]diagnostics.Snippet{
							{Site: a.component.Site, Label: "the first conflicting route"},
							{Site: b.component.Site, Label: "the second conflicting route"},
						},
						"Rename or restructure one of the patterns so that one is strictly more specific.")
				}
			}
		}
	}
}

// collectFallbacks flattens fallback components against their scopes and
// rejects two fallbacks covering the same (domain, prefix) subtree.
func collectFallbacks(reg *registry.Registry, set *diagnostics.Set) []fallbackUnit {
	scopes := reg.Scopes()
	var units []fallbackUnit
	seen := make(map[string]registry.Component)
	for _, c := range reg.ByKind(schema.KindFallback) {
		rawDomain := scopes.Domain(c.Scope)
		var guard DomainGuard
		if rawDomain != "" {
			var err error
			guard, err = ParseDomain(rawDomain)
			if err != nil {
				set.Error(CodeInvalidDomain,
					fmt.Sprintf("invalid domain guard %q: %v", rawDomain, err),
					[]diagnostics.Snippet{{Site: c.Site, Label: "the fallback constrained by it"}})
				continue
			}
		}
		prefix := scopes.PathPrefix(c.Scope)
		key := guard.String() + "\x00" + prefix
		if prev, ok := seen[key]; ok {
			set.Error(CodeAmbiguousFallback,
				fmt.Sprintf("two different fallbacks cover the same subtree (domain %q, prefix %q); requests under it have no determinable fallback",
					guard.String(), prefixOrRoot(prefix)),
				[]diagnostics.Snippet{
					{Site: prev.Site, Label: "the first fallback"},
					{Site: c.Site, Label: "the second fallback"},
				},
				"Keep a single fallback per subtree, or move one to a narrower prefix.")
			continue
		}
		seen[key] = c
		units = append(units, fallbackUnit{component: c, domain: guard, prefix: prefix})
	}
	return units
}

// nearestFallback picks the fallback with the longest prefix enclosing
// the route, within the route's domain.
func nearestFallback(fallbacks []fallbackUnit, u routeUnit) (registry.ComponentID, bool) {
	best := -1
	bestLen := -1
	for i, fb := range fallbacks {
		if fb.domain.String() != u.domain.String() {
			continue
		}
		if !strings.HasPrefix(u.fullPath, fb.prefix) {
			continue
		}
		if len(fb.prefix) > bestLen {
			best = i
			bestLen = len(fb.prefix)
		}
	}
	if best < 0 {
		return 0, false
	}
	return fallbacks[best].component.ID, true
}

func methodsOverlap(a, b []string) bool {
	for _, ma := range a {
		for _, mb := range b {
			if ma == mb {
				return true
			}
		}
	}
	return false
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	if path == "/" || path == "" {
		return prefix
	}
	return strings.TrimSuffix(prefix, "/") + path
}

func prefixOrRoot(prefix string) string {
	if prefix == "" {
		return "/"
	}
	return prefix
}
