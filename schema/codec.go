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
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Decode parses a serialized blueprint document. The document is decoded
// but not validated; call [Document.Validate] before handing it to the
// compiler.
func Decode(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &Error{Source: string(format), Operation: "decode", Err: err}
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &Error{Source: string(format), Operation: "decode", Err: err}
		}
	default:
		return nil, &Error{Source: string(format), Operation: "decode", Err: fmt.Errorf("unsupported format %q", format)}
	}
	return &doc, nil
}

// Encode serializes a document. The inverse of [Decode]; used by
// front-ends to persist a blueprint for later compilation.
func Encode(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, &Error{Source: string(format), Operation: "encode", Err: err}
		}
		return data, nil
	case FormatYAML:
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, &Error{Source: string(format), Operation: "encode", Err: err}
		}
		return data, nil
	default:
		return nil, &Error{Source: string(format), Operation: "encode", Err: fmt.Errorf("unsupported format %q", format)}
	}
}

// Error reports a document-level failure with enough context to act on:
// which source, which field, which operation.
type Error struct {
	Source    string // e.g. "json", "yaml", "json-schema", "version"
	Field     string // the offending field, when known
	Operation string // e.g. "decode", "validate", "merge"
	Err       error
}

// Error returns a formatted message including field context when present.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("blueprint document error in %s.%s during %s: %v",
			e.Source, e.Field, e.Operation, e.Err)
	}
	return fmt.Sprintf("blueprint document error in %s during %s: %v",
		e.Source, e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}
