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

// Package codegen turns the resolved graphs into a ready-to-compile Go
// package: the shared application state, its builder, the configuration
// struct with its defaults, and one dispatch function per route.
//
// Output is deterministic. The same blueprint always produces the same
// bytes, so the generated file can live under version control.
package codegen

import (
	"fmt"
	"go/format"
	"strings"

	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/ownership"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/resolve"
	"rivaas.dev/blueprint/routing"
)

// CodeInternal flags a bug in the generator itself: the emitted source
// failed to parse.
const CodeInternal = "BP0501"

// Options configures the generated package.
type Options struct {
	// PackageName is the generated package's name. Defaults to "server".
	PackageName string
}

type generator struct {
	reg   *registry.Registry
	res   *resolve.Result
	plan  *ownership.Plan
	table *routing.Table
	im    *imports
	body  strings.Builder

	fields     map[string]string
	fieldNames map[string]bool
	funcNames  map[registry.ComponentID]string
}

// Generate renders the application's companion package and returns its
// formatted source.
func Generate(reg *registry.Registry, res *resolve.Result, plan *ownership.Plan, table *routing.Table, opts Options) ([]byte, *diagnostics.Set) {
	set := diagnostics.NewSet(diagnostics.PhaseCodegen)
	if opts.PackageName == "" {
		opts.PackageName = "server"
	}
	g := &generator{
		reg:        reg,
		res:        res,
		plan:       plan,
		table:      table,
		im:         newImports(),
		fields:     make(map[string]string),
		fieldNames: make(map[string]bool),
		funcNames:  make(map[registry.ComponentID]string),
	}

	g.emitConfig()
	g.emitState()
	g.emitRoutes()
	g.emitHelpers()

	var out strings.Builder
	out.WriteString("// Code generated by blueprint. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", opts.PackageName)
	g.im.render(&out)
	out.WriteString(g.body.String())

	src, err := format.Source([]byte(out.String()))
	if err != nil {
		set.Error(CodeInternal,
			fmt.Sprintf("the generated source does not parse: %v", err), nil,
			"This is a bug in the generator, not in the blueprint.")
		return nil, set
	}
	return src, set
}

// emitHelpers writes the small support functions the dispatch bodies
// lean on.
func (g *generator) emitHelpers() {
	g.p("func ptr[T any](v T) *T {")
	g.p("\treturn &v")
	g.p("}")
}

// p writes one line into the body.
func (g *generator) p(format string, args ...any) {
	fmt.Fprintf(&g.body, format, args...)
	g.body.WriteByte('\n')
}

// pf writes a fragment without the trailing newline.
func (g *generator) pf(format string, args ...any) {
	fmt.Fprintf(&g.body, format, args...)
}
