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

package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	return &Document{
		SchemaVersion: CurrentSchemaVersion,
		Components: []Declaration{
			{
				Kind:    KindConstructor,
				ID:      "new_pool",
				Package: "myapp/db",
				Site:    Site{File: "myapp/main.go", Line: 12},
				Callable: &Callable{
					Name:   "myapp/db.NewPool",
					Output: &TypeRef{Name: "myapp/db.Pool", Sendable: true},
				},
				Lifecycle: Singleton,
			},
			{
				Kind:    KindRoute,
				ID:      "get_users",
				Package: "myapp/api",
				Site:    Site{File: "myapp/main.go", Line: 20},
				Methods: []string{"GET"},
				Path:    "/users",
				Callable: &Callable{
					Name:   "myapp/api.ListUsers",
					Inputs: []TypeRef{{Name: "myapp/db.Pool", Ref: ByRef}},
					Output: &TypeRef{Name: "myapp/api.UserList", IntoResponse: true},
				},
			},
		},
	}
}

func TestDocumentValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validDocument().Validate())
}

func TestDocumentValidateSuppressedWarnings(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Components[0].SuppressedWarnings = []string{"BP0390"}
	require.NoError(t, doc.Validate())

	doc.Components[0].SuppressedWarnings = []string{"not-a-code"}
	require.Error(t, doc.Validate())
}

func TestDocumentValidateVersionGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{"current", CurrentSchemaVersion, false},
		{"older supported", "1.0.0", false},
		{"future major", "2.0.0", true},
		{"prehistoric", "0.9.0", true},
		{"garbage", "not-a-version", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := validDocument()
			doc.SchemaVersion = tt.version
			err := doc.Validate()
			if tt.wantErr {
				var serr *Error
				require.ErrorAs(t, err, &serr)
				assert.Equal(t, "schema_version", serr.Field)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDocumentValidateRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Components[0].Kind = "banana"
	require.Error(t, doc.Validate())
}

func TestDocumentValidateRejectsEmpty(t *testing.T) {
	t.Parallel()

	doc := &Document{SchemaVersion: CurrentSchemaVersion}
	require.Error(t, doc.Validate())
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			doc := validDocument()
			data, err := Encode(doc, format)
			require.NoError(t, err)

			got, err := Decode(data, format)
			require.NoError(t, err)
			assert.Equal(t, doc.SchemaVersion, got.SchemaVersion)
			require.Len(t, got.Components, 2)
			assert.Equal(t, "myapp/db::new_pool", got.Components[0].FQID())
			assert.Equal(t, "myapp/db.Pool", got.Components[0].Callable.Output.Name)
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	doc := validDocument()
	doc.Defaults = &Defaults{Lifecycle: Transient, Cloning: CloneIfNecessary}
	doc.Components[0].Lifecycle = Singleton
	doc.Components[1].Lifecycle = ""

	require.NoError(t, doc.ApplyDefaults())

	// Explicit settings win; unset ones take the document default.
	assert.Equal(t, Singleton, doc.Components[0].Lifecycle)
	assert.Equal(t, Transient, doc.Components[1].Lifecycle)
	assert.Equal(t, CloneIfNecessary, doc.Components[0].Cloning)
	assert.Nil(t, doc.Defaults, "defaults block is consumed")
}

func TestCoerceDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		typeName string
		value    any
		want     any
		wantErr  bool
	}{
		{"bool from string", "bool", "true", true, false},
		{"int from float", "int", 42.0, 42, false},
		{"int64", "int64", "9000", int64(9000), false},
		{"float64", "float64", "2.5", 2.5, false},
		{"string", "string", "hello", "hello", false},
		{"duration", "time.Duration", "5m", 5 * time.Minute, false},
		{"bad bool", "bool", "maybe", nil, true},
		{"bad int", "int", "x", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CoerceDefault(tt.typeName, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
