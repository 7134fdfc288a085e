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

import "fmt"

// Kind identifies what a declaration registers.
type Kind string

const (
	KindConstructor   Kind = "constructor"
	KindRoute         Kind = "route"
	KindWrap          Kind = "wrap"
	KindPreProcess    Kind = "pre_process"
	KindPostProcess   Kind = "post_process"
	KindErrorHandler  Kind = "error_handler"
	KindErrorObserver Kind = "error_observer"
	KindConfig        Kind = "config"
	KindPrebuilt      Kind = "prebuilt"
	KindFallback      Kind = "fallback"
)

// Lifecycle describes how often a constructor runs.
type Lifecycle string

const (
	// Singleton components are built once, before serving begins, and live
	// in shared application state. Their output must be Sendable.
	Singleton Lifecycle = "singleton"
	// RequestScoped components are built at most once per request.
	RequestScoped Lifecycle = "request_scoped"
	// Transient components are built on every use.
	Transient Lifecycle = "transient"
)

// CloningPolicy tells the ownership resolver whether it may duplicate a
// component's output to satisfy multiple by-value consumers.
type CloningPolicy string

const (
	// NeverClone forbids manufactured duplicates. This is the default, and
	// the only legal policy for types without a cloning capability.
	NeverClone CloningPolicy = "never_clone"
	// CloneIfNecessary permits a clone per extra consumer when ownership
	// cannot otherwise be satisfied.
	CloneIfNecessary CloningPolicy = "clone_if_necessary"
)

// Site records where a component was registered in source. Every
// diagnostic that involves the component points back at it.
type Site struct {
	File string `json:"file,omitempty" yaml:"file,omitempty"`
	Line int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// String renders the site as "file:line", or "<unknown>" when absent.
func (s Site) String() string {
	if s.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// IsZero reports whether the site carries no location.
func (s Site) IsZero() bool {
	return s.File == "" && s.Line == 0
}

// ScopeStep is one level of a declaration's nesting chain. Each nested
// blueprint contributes one step, carrying the constraints it imposes.
type ScopeStep struct {
	// Prefix is a path prefix, e.g. "/admin". Empty when the nesting level
	// adds no prefix.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Domain constrains matching to a host pattern, e.g. "{sub}.example.com".
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
}

// Callable describes a registered function: a constructor, handler,
// middleware or observer. It is call information reflected by the
// front-end, not a live function value.
type Callable struct {
	// Name is the fully-qualified function path, e.g. "myapp/db.NewPool".
	Name string `json:"name" yaml:"name" validate:"required"`

	// Inputs are the required input types, in signature order.
	Inputs []TypeRef `json:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Output is the produced type. Nil for error observers, which are
	// side-effect only.
	Output *TypeRef `json:"output,omitempty" yaml:"output,omitempty"`

	// Fallible marks callables that can fail. ErrorType names the failure.
	Fallible  bool     `json:"fallible,omitempty" yaml:"fallible,omitempty"`
	ErrorType *TypeRef `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

// Declaration is one raw component registration, scope included, before
// any validation. The registry phase turns a list of these into a
// validated Registry or a batch of diagnostics.
type Declaration struct {
	Kind    Kind   `json:"kind" yaml:"kind" validate:"required,oneof=constructor route wrap pre_process post_process error_handler error_observer config prebuilt fallback"`
	ID      string `json:"id" yaml:"id" validate:"required"`
	Package string `json:"package" yaml:"package" validate:"required"`
	Site    Site   `json:"site,omitempty" yaml:"site,omitempty"`

	// Scope is the nesting chain from the root blueprint to the declaring
	// one, outermost first.
	Scope []ScopeStep `json:"scope,omitempty" yaml:"scope,omitempty"`

	// Callable carries call information for every kind that wraps a
	// function (everything but config and prebuilt).
	Callable *Callable `json:"callable,omitempty" yaml:"callable,omitempty"`

	// Lifecycle applies to constructors. Defaults to request_scoped.
	Lifecycle Lifecycle `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty" validate:"omitempty,oneof=singleton request_scoped transient"`

	// Cloning applies to constructors, prebuilt types and config entries.
	// Defaults to never_clone.
	Cloning CloningPolicy `json:"cloning,omitempty" yaml:"cloning,omitempty" validate:"omitempty,oneof=never_clone clone_if_necessary"`

	// IgnoreUnused suppresses the unused-component warning for this
	// declaration.
	IgnoreUnused bool `json:"ignore_unused,omitempty" yaml:"ignore_unused,omitempty"`

	// SuppressedWarnings lists diagnostic codes whose warnings this
	// declaration opts out of.
	SuppressedWarnings []string `json:"suppressed_warnings,omitempty" yaml:"suppressed_warnings,omitempty"`

	// Route fields.
	Methods []string `json:"methods,omitempty" yaml:"methods,omitempty" validate:"omitempty,dive,oneof=GET HEAD POST PUT DELETE CONNECT OPTIONS TRACE PATCH"`
	Path    string   `json:"path,omitempty" yaml:"path,omitempty"`

	// Config fields. Key is the configuration key; Default, when present,
	// is the value baked into the generated DefaultConfig.
	Key             string `json:"key,omitempty" yaml:"key,omitempty"`
	Default         any    `json:"default,omitempty" yaml:"default,omitempty"`
	IncludeIfUnused bool   `json:"include_if_unused,omitempty" yaml:"include_if_unused,omitempty"`

	// Type is the registered type for config entries and prebuilt
	// declarations.
	Type *TypeRef `json:"type,omitempty" yaml:"type,omitempty"`

	// ErrorType binds an error handler to the error it handles.
	ErrorType *TypeRef `json:"error_type,omitempty" yaml:"error_type,omitempty"`
}

// FQID returns the declaration's identifier qualified by its defining
// package, the form used in diagnostics.
func (d Declaration) FQID() string {
	if d.Package == "" {
		return d.ID
	}
	return d.Package + "::" + d.ID
}

// Suppresses reports whether the declaration opted out of warnings with
// the given diagnostic code.
func (d Declaration) Suppresses(code string) bool {
	for _, c := range d.SuppressedWarnings {
		if c == code {
			return true
		}
	}
	return false
}

// CloningOrDefault returns the declaration's cloning policy, applying the
// NeverClone default.
func (d Declaration) CloningOrDefault() CloningPolicy {
	if d.Cloning == "" {
		return NeverClone
	}
	return d.Cloning
}

// LifecycleOrDefault returns the declaration's lifecycle, applying the
// RequestScoped default.
func (d Declaration) LifecycleOrDefault() Lifecycle {
	if d.Lifecycle == "" {
		return RequestScoped
	}
	return d.Lifecycle
}
