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

import "strings"

// RefKind describes how a type is passed to a consumer.
type RefKind string

const (
	// ByValue passes ownership of the value.
	ByValue RefKind = "value"
	// ByRef passes a shared reference.
	ByRef RefKind = "ref"
	// ByMutRef passes an exclusive, mutable reference. Only middlewares and
	// error handlers operating on the in-flight response or error value may
	// take inputs this way.
	ByMutRef RefKind = "mut_ref"
)

// TypeRef is the compiler's view of a type. It is plain data supplied by
// the front-end: either a concrete type (Name set, Generics optionally
// bound) or an unbound generic parameter (Param set).
//
// Capability flags replace runtime probing: SupportsClone tells the
// ownership resolver whether a duplicate may be manufactured, Sendable
// whether the type may be held in shared application state, and
// IntoResponse whether the type can be converted into an HTTP response.
type TypeRef struct {
	// Name is the fully-qualified type name, e.g. "myapp/auth.Session".
	// Empty when the TypeRef denotes an unbound generic parameter.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Param names an unbound generic parameter, e.g. "T".
	Param string `json:"param,omitempty" yaml:"param,omitempty"`

	// Ref is how the type is consumed or produced. Zero value means ByValue.
	Ref RefKind `json:"ref,omitempty" yaml:"ref,omitempty"`

	// Generics holds bound (or unbound) generic arguments, in order.
	Generics []TypeRef `json:"generics,omitempty" yaml:"generics,omitempty"`

	// SupportsClone reports whether the type implements a cloning capability.
	SupportsClone bool `json:"supports_clone,omitempty" yaml:"supports_clone,omitempty"`

	// Sendable reports whether the type is safe to share across
	// request-handling goroutines. Required for singletons.
	Sendable bool `json:"sendable,omitempty" yaml:"sendable,omitempty"`

	// IntoResponse reports whether the type can be converted into a response.
	IntoResponse bool `json:"into_response,omitempty" yaml:"into_response,omitempty"`
}

// IsParam reports whether the TypeRef denotes an unbound generic parameter.
func (t TypeRef) IsParam() bool {
	return t.Param != ""
}

// IsUnit reports whether the TypeRef denotes the empty type.
func (t TypeRef) IsUnit() bool {
	return t.Name == "" && t.Param == ""
}

// refKind normalizes the zero value to ByValue.
func (t TypeRef) refKind() RefKind {
	if t.Ref == "" {
		return ByValue
	}
	return t.Ref
}

// Key returns the canonical identity of the underlying value type,
// independent of how it is consumed. Two TypeRefs with the same Key refer
// to the same producer.
func (t TypeRef) Key() string {
	var b strings.Builder
	t.writeKey(&b)
	return b.String()
}

func (t TypeRef) writeKey(b *strings.Builder) {
	if t.IsParam() {
		b.WriteString("$")
		b.WriteString(t.Param)
		return
	}
	b.WriteString(t.Name)
	if len(t.Generics) > 0 {
		b.WriteString("[")
		for i, g := range t.Generics {
			if i > 0 {
				b.WriteString(", ")
			}
			g.writeKey(b)
		}
		b.WriteString("]")
	}
}

// String renders the TypeRef the way diagnostics display it, including the
// reference marker: "T", "&T" or "&mut T".
func (t TypeRef) String() string {
	var prefix string
	switch t.refKind() {
	case ByRef:
		prefix = "&"
	case ByMutRef:
		prefix = "&mut "
	}
	return prefix + t.Key()
}

// HasUnboundGenerics reports whether the TypeRef, or any type nested in
// its generic arguments, is an unbound parameter.
func (t TypeRef) HasUnboundGenerics() bool {
	if t.IsParam() {
		return true
	}
	for _, g := range t.Generics {
		if g.HasUnboundGenerics() {
			return true
		}
	}
	return false
}

// Borrows reports whether the TypeRef, or any type nested in its generic
// arguments, is a reference. Config entries and prebuilt types must be
// owned values all the way down.
func (t TypeRef) Borrows() bool {
	if t.refKind() != ByValue {
		return true
	}
	for _, g := range t.Generics {
		if g.Borrows() {
			return true
		}
	}
	return false
}

// Params collects the names of every unbound generic parameter in the
// TypeRef, depth first, without duplicates.
func (t TypeRef) Params() []string {
	var out []string
	seen := make(map[string]bool)
	t.collectParams(&out, seen)
	return out
}

func (t TypeRef) collectParams(out *[]string, seen map[string]bool) {
	if t.IsParam() {
		if !seen[t.Param] {
			seen[t.Param] = true
			*out = append(*out, t.Param)
		}
		return
	}
	for _, g := range t.Generics {
		g.collectParams(out, seen)
	}
}

// Bind substitutes unbound generic parameters using the given bindings and
// returns the rewritten TypeRef. Parameters without a binding are left in
// place.
func (t TypeRef) Bind(bindings map[string]TypeRef) TypeRef {
	if t.IsParam() {
		if bound, ok := bindings[t.Param]; ok {
			// The consumption mode of the call site wins over the mode
			// recorded on the binding.
			bound.Ref = t.Ref
			return bound
		}
		return t
	}
	if len(t.Generics) == 0 {
		return t
	}
	generics := make([]TypeRef, len(t.Generics))
	for i, g := range t.Generics {
		generics[i] = g.Bind(bindings)
	}
	t.Generics = generics
	return t
}
