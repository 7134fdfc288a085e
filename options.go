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

package blueprint

import "rivaas.dev/blueprint/schema"

// Option modifies a declaration at registration time.
type Option func(*schema.Declaration)

// Singleton gives a constructor's output the application lifecycle: one
// instance, built at startup, shared by every request.
func Singleton() Option {
	return func(d *schema.Declaration) {
		d.Lifecycle = schema.Singleton
	}
}

// RequestScoped gives a constructor's output the request lifecycle: one
// instance per request, shared by every consumer within it. This is the
// default.
func RequestScoped() Option {
	return func(d *schema.Declaration) {
		d.Lifecycle = schema.RequestScoped
	}
}

// Transient makes every consumer receive a freshly built instance.
func Transient() Option {
	return func(d *schema.Declaration) {
		d.Lifecycle = schema.Transient
	}
}

// CloneIfNecessary allows the compiler to duplicate the value when two
// consumers both need ownership. The type must support cloning.
func CloneIfNecessary() Option {
	return func(d *schema.Declaration) {
		d.Cloning = schema.CloneIfNecessary
	}
}

// NeverClone forbids the compiler from duplicating the value; ownership
// conflicts become compile errors instead. This is the default.
func NeverClone() Option {
	return func(d *schema.Declaration) {
		d.Cloning = schema.NeverClone
	}
}

// IgnoreUnused silences the warning emitted when no route uses the
// component.
func IgnoreUnused() Option {
	return func(d *schema.Declaration) {
		d.IgnoreUnused = true
	}
}

// SuppressWarning silences warnings with the given diagnostic code for
// this declaration, e.g. the generic-error-conversion fallback notice on
// a fallible constructor.
func SuppressWarning(code string) Option {
	return func(d *schema.Declaration) {
		d.SuppressedWarnings = append(d.SuppressedWarnings, code)
	}
}

// WithDefault sets the value a config entry takes when the loaded
// configuration does not provide one.
func WithDefault(value any) Option {
	return func(d *schema.Declaration) {
		d.Default = value
	}
}

// IncludeIfUnused keeps a config entry in the generated configuration
// surface even when nothing consumes it, without a warning.
func IncludeIfUnused() Option {
	return func(d *schema.Declaration) {
		d.IncludeIfUnused = true
	}
}
