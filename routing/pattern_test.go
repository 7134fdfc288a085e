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

package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "root", path: "/"},
		{name: "literals", path: "/users/all"},
		{name: "parameter", path: "/users/{id}"},
		{name: "parameter with fixes", path: "/files/v{version}.tar.gz"},
		{name: "catch-all final", path: "/assets/{*path}"},
		{name: "empty", path: "", wantErr: true},
		{name: "missing leading slash", path: "users", wantErr: true},
		{name: "empty segment", path: "/users//all", wantErr: true},
		{name: "two parameters in one segment", path: "/x/{a}{b}", wantErr: true},
		{name: "unbalanced braces", path: "/x/{id", wantErr: true},
		{name: "catch-all not final", path: "/{*path}/x", wantErr: true},
		{name: "catch-all with literal fix", path: "/a{*path}", wantErr: true},
		{name: "bad parameter name", path: "/x/{9id}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := parsePattern(tt.path)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPatternStructuralKey(t *testing.T) {
	t.Parallel()

	a, err := parsePattern("/home/{id}")
	require.NoError(t, err)
	b, err := parsePattern("/home/{home_id}")
	require.NoError(t, err)
	c, err := parsePattern("/home/{id}/room")
	require.NoError(t, err)

	// Parameter names are irrelevant to the identity.
	assert.Equal(t, a.structuralKey(), b.structuralKey())
	assert.NotEqual(t, a.structuralKey(), c.structuralKey())
}

func TestPatternShadows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		a, b    string
		shadows bool
	}{
		{name: "identical", a: "/users", b: "/users", shadows: true},
		{name: "parameter rename", a: "/home/{id}", b: "/home/{home_id}", shadows: true},
		{name: "diverging literals", a: "/users", b: "/posts", shadows: false},
		{name: "literal vs parameter", a: "/users/all", b: "/users/{id}", shadows: false},
		{name: "different lengths", a: "/users/{id}", b: "/users/{id}/posts", shadows: false},
		{name: "parameter vs catch-all", a: "/files/{name}", b: "/files/{*path}", shadows: true},
		{name: "catch-all vs catch-all", a: "/files/{*a}", b: "/files/{*b}", shadows: true},
		{name: "different parameter fixes", a: "/files/v{v}.tar.gz", b: "/files/{name}.zip", shadows: false},
		{name: "same parameter fixes", a: "/files/v{a}.tar.gz", b: "/files/v{b}.tar.gz", shadows: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := parsePattern(tt.a)
			require.NoError(t, err)
			b, err := parsePattern(tt.b)
			require.NoError(t, err)

			assert.Equal(t, tt.shadows, a.shadows(b))
			assert.Equal(t, tt.shadows, b.shadows(a), "shadowing is symmetric")
		})
	}
}

func FuzzParsePattern(f *testing.F) {
	f.Add("/")
	f.Add("/home")
	f.Add("/users/{id}")
	f.Add("/files/{*path}")
	f.Add("/v{version}.tar.gz")
	f.Add("//double")
	f.Add("/{unclosed")
	f.Add("no-leading-slash")

	f.Fuzz(func(t *testing.T, path string) {
		p, err := parsePattern(path)
		if err != nil {
			return
		}
		// Accepted patterns round-trip into a stable identity and
		// always shadow themselves.
		if key := p.structuralKey(); key == "" {
			t.Errorf("pattern %q parsed to an empty structural key", path)
		}
		if !p.shadows(p) {
			t.Errorf("pattern %q does not shadow itself", path)
		}
	})
}
