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

// Package compiler runs the full pipeline over a blueprint document:
// registry validation, routing-table construction, per-route resolution,
// ownership analysis, and code generation.
//
// Each phase reports every problem it can find before the pipeline
// aborts, so one compile surfaces the complete batch of errors for the
// failing phase rather than the first one.
package compiler

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/colorprofile"

	"rivaas.dev/blueprint/codegen"
	"rivaas.dev/blueprint/diagnostics"
	"rivaas.dev/blueprint/ownership"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/resolve"
	"rivaas.dev/blueprint/routing"
	"rivaas.dev/blueprint/schema"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Compiler drives the pipeline. The zero value is not usable; construct
// one with New.
type Compiler struct {
	cfg config
}

// New returns a Compiler configured by the given options.
func New(opts ...Option) *Compiler {
	cfg := config{logger: noopLogger, packageName: "server"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger
	}
	return &Compiler{cfg: cfg}
}

// Artifacts is everything a successful compile produces.
type Artifacts struct {
	Registry *registry.Registry
	Table    *routing.Table
	Graphs   *resolve.Result
	Plan     *ownership.Plan

	// Source is the generated companion package, gofmt-formatted.
	Source []byte

	// Warnings collects the non-fatal diagnostics of every phase.
	Warnings []diagnostics.Diagnostic
}

// Error is a failed compile: the complete diagnostic batch of the phase
// that rejected the blueprint.
type Error struct {
	Phase diagnostics.Phase
	Set   *diagnostics.Set

	profile *colorprofile.Profile
}

func (e *Error) Error() string {
	return fmt.Sprintf("blueprint compilation failed during the %s phase:\n%s", e.Phase, e.Set)
}

// Render writes the batch with color styling.
func (e *Error) Render(w io.Writer) {
	var opts []diagnostics.RendererOption
	if e.profile != nil {
		opts = append(opts, diagnostics.WithProfile(*e.profile))
	}
	diagnostics.NewRenderer(opts...).Render(w, e.Set)
}

// Compile validates the document and runs every phase. On failure it
// returns an *Error holding the failing phase's full diagnostic batch.
func (c *Compiler) Compile(doc *schema.Document) (*Artifacts, error) {
	log := c.cfg.logger
	start := time.Now()

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("blueprint document: %w", err)
	}
	if err := doc.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("blueprint document: %w", err)
	}

	art := &Artifacts{}

	reg, set := registry.Build(doc.Components)
	c.collect(art, set)
	if set.HasErrors() {
		return nil, c.failed(set)
	}
	art.Registry = reg
	log.Info("registry validated",
		slog.Int("components", len(reg.Components())),
		slog.Duration("elapsed", time.Since(start)))

	// Routing and resolution are independent; both batches are reported
	// even when the first one fails.
	table, routeSet := routing.Build(reg)
	c.collect(art, routeSet)
	graphs, resolveSet := resolve.Resolve(reg)
	c.collect(art, resolveSet)
	if routeSet.HasErrors() {
		routeSet.Merge(resolveSet)
		return nil, c.failed(routeSet)
	}
	if resolveSet.HasErrors() {
		return nil, c.failed(resolveSet)
	}
	art.Table = table
	art.Graphs = graphs
	log.Info("routes resolved",
		slog.Int("routes", table.Len()),
		slog.Duration("elapsed", time.Since(start)))

	c.warnUnused(art, reg, graphs)

	plan, ownSet := ownership.Analyze(reg, graphs)
	c.collect(art, ownSet)
	if ownSet.HasErrors() {
		return nil, c.failed(ownSet)
	}
	art.Plan = plan

	src, genSet := codegen.Generate(reg, graphs, plan, table, codegen.Options{PackageName: c.cfg.packageName})
	c.collect(art, genSet)
	if genSet.HasErrors() {
		return nil, c.failed(genSet)
	}
	art.Source = src
	log.Info("code generated",
		slog.Int("bytes", len(src)),
		slog.Int("warnings", len(art.Warnings)),
		slog.Duration("elapsed", time.Since(start)))
	return art, nil
}

// failed wraps a phase's batch into the returned compile error.
func (c *Compiler) failed(set *diagnostics.Set) *Error {
	return &Error{Phase: set.Phase(), Set: set, profile: c.cfg.profile}
}

// collect folds a phase's warnings into the artifacts.
func (c *Compiler) collect(art *Artifacts, set *diagnostics.Set) {
	for _, d := range set.Diagnostics() {
		if d.Severity == diagnostics.Warning {
			art.Warnings = append(art.Warnings, d)
		}
	}
}

// warnUnused reports components no route reaches. Opt-outs are honored:
// IgnoreUnused for callables, IncludeIfUnused for config entries.
func (c *Compiler) warnUnused(art *Artifacts, reg *registry.Registry, graphs *resolve.Result) {
	set := diagnostics.NewSet(diagnostics.PhaseResolution)
	for _, comp := range reg.Components() {
		if graphs.Used[comp.ID] {
			continue
		}
		switch comp.Kind {
		case schema.KindRoute, schema.KindFallback, schema.KindErrorHandler, schema.KindErrorObserver:
			// Reached through dispatch or failure paths, not demand.
			continue
		case schema.KindConfig:
			if comp.IncludeIfUnused {
				continue
			}
			set.Warning(registry.CodeUnusedConfigEntry,
				fmt.Sprintf("config entry %q is never consumed", comp.Key),
				[]diagnostics.Snippet{{Site: comp.Site, Label: "registered here"}},
				"Drop it, or mark it as included-if-unused to keep it in the configuration surface.")
		default:
			if comp.IgnoreUnused {
				continue
			}
			set.Warning(registry.CodeUnusedComponent,
				fmt.Sprintf("%q is registered but never used by any route", comp.FQID()),
				[]diagnostics.Snippet{{Site: comp.Site, Label: "registered here"}},
				"Remove the registration, or silence this with the ignore-unused flag.")
		}
	}
	c.collect(art, set)
}
