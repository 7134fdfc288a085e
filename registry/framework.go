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

package registry

import "rivaas.dev/blueprint/schema"

// Framework primitive type names. These have fixed built-in producers
// supplied by the HTTP runtime; user constructors for them are rejected.
const (
	TypeRequestHead    = "rivaas.dev/http.RequestHead"
	TypeRawBody        = "rivaas.dev/http.RawBody"
	TypeAllowedMethods = "rivaas.dev/http.AllowedMethods"
	TypeMatchedPath    = "rivaas.dev/http.MatchedPath"
	TypeResponse       = "rivaas.dev/http.Response"

	// TypePathParams is the generic framework extractor for typed path
	// parameters. Its single generic argument is unified against the
	// requested type at resolution time.
	TypePathParams = "rivaas.dev/http.PathParams"
	// TypePathDeserializationError is the failure mode of PathParams
	// extraction. Unless the user registers a handler for it, the generic
	// error handler takes over (with a warning).
	TypePathDeserializationError = "rivaas.dev/http.PathDeserializationError"

	// TypeError is the type-erased error value handed to error observers,
	// whatever the concrete failure was.
	TypeError = "rivaas.dev/http.Error"
)

// FrameworkItem is a fixed, non-overridable producer supplied by the
// runtime itself.
type FrameworkItem struct {
	Type      schema.TypeRef
	Lifecycle schema.Lifecycle
	Cloning   schema.CloningPolicy
	// InFlight marks the mutable response value threaded through wrapping
	// and post-processing middlewares. It is the one primitive that may be
	// taken by mutable reference.
	InFlight bool
}

// FrameworkConstructor is a built-in generic constructor, such as the
// typed path-parameter extractor.
type FrameworkConstructor struct {
	Output    schema.TypeRef
	Fallible  bool
	ErrorType schema.TypeRef
	Lifecycle schema.Lifecycle
}

// FrameworkDB is the table of framework primitives, consulted before any
// user-registered producer.
type FrameworkDB struct {
	items        map[string]FrameworkItem
	constructors map[string]FrameworkConstructor
}

// NewFrameworkDB returns the built-in primitive table.
func NewFrameworkDB() *FrameworkDB {
	db := &FrameworkDB{
		items:        make(map[string]FrameworkItem),
		constructors: make(map[string]FrameworkConstructor),
	}
	for _, item := range []FrameworkItem{
		{
			Type:      schema.TypeRef{Name: TypeRequestHead},
			Lifecycle: schema.RequestScoped,
			Cloning:   schema.NeverClone,
		},
		{
			Type:      schema.TypeRef{Name: TypeRawBody},
			Lifecycle: schema.RequestScoped,
			Cloning:   schema.NeverClone,
		},
		{
			Type:      schema.TypeRef{Name: TypeAllowedMethods, SupportsClone: true},
			Lifecycle: schema.RequestScoped,
			Cloning:   schema.CloneIfNecessary,
		},
		{
			Type:      schema.TypeRef{Name: TypeMatchedPath, SupportsClone: true},
			Lifecycle: schema.RequestScoped,
			Cloning:   schema.CloneIfNecessary,
		},
		{
			Type:      schema.TypeRef{Name: TypeResponse},
			Lifecycle: schema.RequestScoped,
			Cloning:   schema.NeverClone,
			InFlight:  true,
		},
	} {
		db.items[item.Type.Name] = item
	}

	db.constructors[TypePathParams] = FrameworkConstructor{
		Output: schema.TypeRef{
			Name:     TypePathParams,
			Generics: []schema.TypeRef{{Param: "T"}},
		},
		Fallible:  true,
		ErrorType: schema.TypeRef{Name: TypePathDeserializationError, IntoResponse: true},
		Lifecycle: schema.RequestScoped,
	}
	return db
}

// Item looks up a primitive by type name.
func (db *FrameworkDB) Item(name string) (FrameworkItem, bool) {
	item, ok := db.items[name]
	return item, ok
}

// Constructor looks up a built-in generic constructor by type name.
func (db *FrameworkDB) Constructor(name string) (FrameworkConstructor, bool) {
	c, ok := db.constructors[name]
	return c, ok
}

// Reserved reports whether a user constructor for the named type must be
// rejected because the framework provides it.
func (db *FrameworkDB) Reserved(name string) bool {
	if _, ok := db.items[name]; ok {
		return true
	}
	_, ok := db.constructors[name]
	return ok
}
