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
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// Renderer writes diagnostics to a terminal with styling appropriate to
// its capabilities. Colors are downsampled or stripped through a
// colorprofile writer, so output piped to a file stays plain.
type Renderer struct {
	errStyle   lipgloss.Style
	warnStyle  lipgloss.Style
	codeStyle  lipgloss.Style
	siteStyle  lipgloss.Style
	labelStyle lipgloss.Style
	helpStyle  lipgloss.Style

	profile *colorprofile.Profile
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithProfile pins the color profile instead of detecting it from the
// environment.
func WithProfile(p colorprofile.Profile) RendererOption {
	return func(r *Renderer) {
		r.profile = &p
	}
}

// NewRenderer returns a Renderer with the default styles.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		errStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warnStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		codeStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		siteStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		labelStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		helpStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes every diagnostic of the set to w, errors first, in the
// set's deterministic order.
func (r *Renderer) Render(w io.Writer, set *Set) {
	cw := colorprofile.NewWriter(w, os.Environ())
	if r.profile != nil {
		cw.Profile = *r.profile
	}
	for i, d := range set.Diagnostics() {
		if i > 0 {
			fmt.Fprintln(cw)
		}
		r.renderOne(cw, d)
	}
}

// RenderPlain writes the set with all ANSI styling stripped, regardless
// of the terminal. Used by non-interactive front-ends.
func (r *Renderer) RenderPlain(w io.Writer, set *Set) {
	cw := colorprofile.NewWriter(w, os.Environ())
	cw.Profile = colorprofile.NoTTY
	for i, d := range set.Diagnostics() {
		if i > 0 {
			fmt.Fprintln(cw)
		}
		r.renderOne(cw, d)
	}
}

func (r *Renderer) renderOne(w io.Writer, d Diagnostic) {
	head := r.errStyle
	if d.Severity == Warning {
		head = r.warnStyle
	}
	fmt.Fprintf(w, "%s%s: %s\n",
		head.Render(d.Severity.String()),
		r.codeStyle.Render("["+d.Code+"]"),
		d.Summary,
	)
	for _, s := range d.Snippets {
		fmt.Fprintf(w, "  --> %s", r.siteStyle.Render(s.Site.String()))
		if s.Label != "" {
			fmt.Fprintf(w, " %s", r.labelStyle.Render(s.Label))
		}
		fmt.Fprintln(w)
	}
	for _, h := range d.Help {
		fmt.Fprintf(w, "  %s %s\n", r.helpStyle.Render("help:"), h)
	}
}
