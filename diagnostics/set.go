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

package diagnostics

import (
	"sort"
	"strings"
)

// Set accumulates diagnostics for one analysis phase. Phases either fully
// succeed or hand back their complete batch; a Set is never partially
// consumed.
type Set struct {
	phase Phase
	diags []Diagnostic
}

// NewSet returns an empty batch for the given phase.
func NewSet(phase Phase) *Set {
	return &Set{phase: phase}
}

// Phase returns the phase this batch belongs to.
func (s *Set) Phase() Phase {
	return s.phase
}

// Add appends a diagnostic, stamping it with the set's phase.
func (s *Set) Add(d Diagnostic) {
	d.Phase = s.phase
	s.diags = append(s.diags, d)
}

// Error appends an error diagnostic.
func (s *Set) Error(code, summary string, snippets []Snippet, help ...string) {
	s.Add(Diagnostic{Code: code, Severity: Error, Summary: summary, Snippets: snippets, Help: help})
}

// Warning appends a warning diagnostic.
func (s *Set) Warning(code, summary string, snippets []Snippet, help ...string) {
	s.Add(Diagnostic{Code: code, Severity: Warning, Summary: summary, Snippets: snippets, Help: help})
}

// HasErrors reports whether the batch contains at least one fatal
// diagnostic. Warnings alone never fail a phase.
func (s *Set) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Len returns the number of diagnostics in the batch.
func (s *Set) Len() int {
	return len(s.diags)
}

// Diagnostics returns the batch sorted by (severity, code, first site),
// errors first. Sorting here keeps the pipeline's output deterministic
// regardless of analysis traversal order.
func (s *Set) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity < out[j].Severity
		}
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return firstSite(out[i]) < firstSite(out[j])
	})
	return out
}

// Merge appends every diagnostic of other into s, keeping s's phase
// stamp. Used by the pipeline to fold sub-analyses into one batch.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, d := range other.diags {
		s.Add(d)
	}
}

// String renders the sorted batch in plain text, one diagnostic per
// paragraph.
func (s *Set) String() string {
	diags := s.Diagnostics()
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n\n")
}

func firstSite(d Diagnostic) string {
	if len(d.Snippets) == 0 {
		return ""
	}
	return d.Snippets[0].Site.String()
}
