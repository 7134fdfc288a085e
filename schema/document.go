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
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CurrentSchemaVersion is the document schema version this compiler
// emits and the newest one it accepts.
const CurrentSchemaVersion = "1.2.0"

// supportedSchemaRange is the range of document schema versions this
// compiler can consume. Documents outside the range are rejected before
// any analysis phase runs.
const supportedSchemaRange = ">= 1.0.0, < 2.0.0"

//go:embed document_schema.json
var documentSchemaJSON []byte

// Document is a serialized blueprint: the full set of component
// declarations a front-end produced, plus document-wide defaults.
type Document struct {
	// SchemaVersion is the version of the document format, checked against
	// the compiler's supported range.
	SchemaVersion string `json:"schema_version" yaml:"schema_version" validate:"required,semver"`

	// Defaults, when present, is overlay-merged into every declaration
	// that leaves the corresponding field unset.
	Defaults *Defaults `json:"defaults,omitempty" yaml:"defaults,omitempty"`

	// Components are the raw declarations, in registration order.
	Components []Declaration `json:"components" yaml:"components" validate:"required,min=1,dive"`
}

// Defaults carries document-wide settings applied to declarations that do
// not set them explicitly.
type Defaults struct {
	Lifecycle    Lifecycle     `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty" validate:"omitempty,oneof=singleton request_scoped transient"`
	Cloning      CloningPolicy `json:"cloning,omitempty" yaml:"cloning,omitempty" validate:"omitempty,oneof=never_clone clone_if_necessary"`
	IgnoreUnused bool          `json:"ignore_unused,omitempty" yaml:"ignore_unused,omitempty"`
}

// Validate checks the document in three layers: the embedded JSON Schema,
// struct tags, and the schema-version gate. It reports the first layer
// that fails; semantic cross-component checks belong to the registry
// phase, not here.
func (d *Document) Validate() error {
	if err := d.checkVersion(); err != nil {
		return err
	}
	if err := d.checkJSONSchema(); err != nil {
		return err
	}
	return d.checkStructTags()
}

// checkVersion rejects documents whose schema version falls outside the
// supported range.
func (d *Document) checkVersion() error {
	v, err := semver.NewVersion(d.SchemaVersion)
	if err != nil {
		return &Error{Source: "version", Field: "schema_version", Operation: "validate", Err: err}
	}
	constraint, err := semver.NewConstraint(supportedSchemaRange)
	if err != nil {
		return &Error{Source: "version", Operation: "validate", Err: err}
	}
	if !constraint.Check(v) {
		return &Error{
			Source:    "version",
			Field:     "schema_version",
			Operation: "validate",
			Err: fmt.Errorf("document schema version %s is outside the supported range %q; regenerate the blueprint with a matching front-end",
				d.SchemaVersion, supportedSchemaRange),
		}
	}
	return nil
}

// checkJSONSchema validates the document's JSON projection against the
// embedded document schema.
func (d *Document) checkJSONSchema() error {
	raw, err := json.Marshal(d)
	if err != nil {
		return &Error{Source: "json-schema", Operation: "validate", Err: err}
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &Error{Source: "json-schema", Operation: "validate", Err: err}
	}

	sch, err := compiledDocumentSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(instance); err != nil {
		return &Error{Source: "json-schema", Operation: "validate", Err: err}
	}
	return nil
}

// compiledDocumentSchema compiles the embedded schema. Compilation is
// cheap relative to a full blueprint resolution, so no caching.
func compiledDocumentSchema() (*jsonschema.Schema, error) {
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(documentSchemaJSON))
	if err != nil {
		return nil, &Error{Source: "json-schema", Operation: "compile", Err: err}
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("blueprint.schema.json", schemaDoc); err != nil {
		return nil, &Error{Source: "json-schema", Operation: "compile", Err: err}
	}
	sch, err := c.Compile("blueprint.schema.json")
	if err != nil {
		return nil, &Error{Source: "json-schema", Operation: "compile", Err: err}
	}
	return sch, nil
}

// checkStructTags runs the struct-tag validation layer.
func (d *Document) checkStructTags() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok && len(verrs) > 0 {
			first := verrs[0]
			return &Error{
				Source:    "binding",
				Field:     first.Namespace(),
				Operation: "validate",
				Err:       fmt.Errorf("failed on the %q rule", first.Tag()),
			}
		}
		return &Error{Source: "binding", Operation: "validate", Err: err}
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	return errors.As(err, target)
}

// ApplyDefaults overlay-merges the document's Defaults block into each
// declaration that leaves the field unset, then clears the block so a
// round-tripped document stays canonical.
func (d *Document) ApplyDefaults() error {
	if d.Defaults == nil {
		return nil
	}
	overlay := Declaration{
		Lifecycle:    d.Defaults.Lifecycle,
		Cloning:      d.Defaults.Cloning,
		IgnoreUnused: d.Defaults.IgnoreUnused,
	}
	for i := range d.Components {
		if err := mergo.Merge(&d.Components[i], overlay); err != nil {
			return &Error{
				Source:    "defaults",
				Field:     d.Components[i].FQID(),
				Operation: "merge",
				Err:       err,
			}
		}
	}
	d.Defaults = nil
	return nil
}
