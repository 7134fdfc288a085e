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
	"bytes"
	"testing"

	"github.com/charmbracelet/colorprofile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/blueprint/schema"
)

func site(line int) []Snippet {
	return []Snippet{{Site: schema.Site{File: "myapp/main.go", Line: line}, Label: "registered here"}}
}

func TestSetOrdersErrorsFirst(t *testing.T) {
	t.Parallel()

	set := NewSet(PhaseRegistry)
	set.Warning("BP0190", "unused constructor", site(10))
	set.Error("BP0104", "duplicate component id", site(20))
	set.Error("BP0101", "empty configuration key", site(30))

	diags := set.Diagnostics()
	require.Len(t, diags, 3)
	assert.Equal(t, "BP0101", diags[0].Code)
	assert.Equal(t, "BP0104", diags[1].Code)
	assert.Equal(t, "BP0190", diags[2].Code)
	assert.True(t, set.HasErrors())
}

func TestSetOrdersSameCodeBySite(t *testing.T) {
	t.Parallel()

	set := NewSet(PhaseRouting)
	set.Error("BP0202", "conflicting route", site(42))
	set.Error("BP0202", "conflicting route", site(7))

	diags := set.Diagnostics()
	require.Len(t, diags, 2)
	assert.Equal(t, 42, diags[0].Snippets[0].Site.Line)
	assert.Equal(t, 7, diags[1].Snippets[0].Site.Line)
}

func TestSetWarningsAloneDoNotFail(t *testing.T) {
	t.Parallel()

	set := NewSet(PhaseResolution)
	set.Warning("BP0390", "falling back to the default response conversion", site(5))

	assert.False(t, set.HasErrors())
	assert.Equal(t, 1, set.Len())
}

func TestSetMergeKeepsReceiverPhase(t *testing.T) {
	t.Parallel()

	routing := NewSet(PhaseRouting)
	routing.Error("BP0201", "invalid path", site(1))

	resolution := NewSet(PhaseResolution)
	resolution.Error("BP0301", "unresolvable type", site(2))

	routing.Merge(resolution)

	require.Equal(t, 2, routing.Len())
	for _, d := range routing.Diagnostics() {
		assert.Equal(t, PhaseRouting, d.Phase)
	}
	routing.Merge(nil)
	assert.Equal(t, 2, routing.Len())
}

func TestDiagnosticString(t *testing.T) {
	t.Parallel()

	d := Diagnostic{
		Code:     "BP0301",
		Severity: Error,
		Summary:  "no producer for myapp.Pool",
		Snippets: []Snippet{{Site: schema.Site{File: "myapp/main.go", Line: 12}, Label: "needed here"}},
		Help:     []string{"Register a constructor for it."},
	}

	out := d.String()
	assert.Contains(t, out, "error[BP0301]: no producer for myapp.Pool")
	assert.Contains(t, out, "--> myapp/main.go:12 (needed here)")
	assert.Contains(t, out, "help: Register a constructor for it.")
}

func TestRendererPlainOutput(t *testing.T) {
	t.Parallel()

	set := NewSet(PhaseOwnership)
	set.Error("BP0401", "two components consume myapp.Session by value", site(3))
	set.Warning("BP0190", "unused constructor", site(9))

	var buf bytes.Buffer
	NewRenderer().RenderPlain(&buf, set)

	out := buf.String()
	assert.Contains(t, out, "error[BP0401]")
	assert.Contains(t, out, "warning[BP0190]")
	assert.Contains(t, out, "--> myapp/main.go:3")
	assert.NotContains(t, out, "\x1b[")
}

func TestRendererPinnedProfile(t *testing.T) {
	t.Parallel()

	set := NewSet(PhaseCodegen)
	set.Error("BP0501", "generated source does not format", site(1))

	var buf bytes.Buffer
	NewRenderer(WithProfile(colorprofile.NoTTY)).Render(&buf, set)

	assert.Contains(t, buf.String(), "error[BP0501]")
	assert.NotContains(t, buf.String(), "\x1b[")
}
