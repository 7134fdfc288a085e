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

// Package diagnostics carries structured compiler output: errors and
// warnings with registration-site snippets and remediation hints,
// batched per analysis phase.
//
// Diagnostics are data first and text second. Every phase accumulates its
// complete batch before the pipeline decides whether to continue, so a
// user sees all of a phase's problems at once instead of fixing them one
// compile at a time.
package diagnostics

import (
	"fmt"
	"strings"

	"rivaas.dev/blueprint/schema"
)

// Severity distinguishes fatal diagnostics from advisory ones.
type Severity uint8

const (
	// Error aborts the pipeline once the emitting phase completes.
	Error Severity = iota
	// Warning is advisory; compilation proceeds.
	Warning
)

// String returns "error" or "warning".
func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Phase names the analysis stage a diagnostic belongs to.
type Phase string

const (
	PhaseRegistry   Phase = "registry"
	PhaseRouting    Phase = "routing"
	PhaseResolution Phase = "resolution"
	PhaseOwnership  Phase = "ownership"
	PhaseCodegen    Phase = "codegen"
)

// Snippet points a diagnostic at a registration site, with a label
// explaining the site's role ("the first conflicting handler", ...).
type Snippet struct {
	Site  schema.Site
	Label string
}

// Diagnostic is one structured compiler message.
type Diagnostic struct {
	// Code is the stable identifier of the diagnostic class, e.g. "BP0301".
	Code     string
	Severity Severity
	Phase    Phase
	// Summary is the one-line message.
	Summary string
	// Snippets are source-location annotations, ordered by relevance.
	Snippets []Snippet
	// Help holds remediation hints, each one actionable on its own.
	Help []string
}

// String renders the diagnostic without styling. The renderer produces
// the styled variant; this form is what tests assert against.
func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]: %s", d.Severity, d.Code, d.Summary)
	for _, s := range d.Snippets {
		fmt.Fprintf(&b, "\n  --> %s", s.Site)
		if s.Label != "" {
			fmt.Fprintf(&b, " (%s)", s.Label)
		}
	}
	for _, h := range d.Help {
		fmt.Fprintf(&b, "\n  help: %s", h)
	}
	return b.String()
}
