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

// Package schema defines the serialized representation of a blueprint:
// the normalized component declarations a front-end hands to the compiler.
//
// A blueprint travels as a Document, encoded as JSON or YAML. Documents
// carry a schema version that is checked against the compiler's supported
// range before any analysis runs, so front-end and compiler can evolve
// independently.
//
// The type system is explicit data. A TypeRef captures everything the
// compiler needs to know about a type - fully-qualified name, generic
// bindings, reference kind, and capability flags such as SupportsClone -
// so the compiler never reflects over live Go values.
package schema
