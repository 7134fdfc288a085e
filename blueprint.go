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

// Package blueprint is the declaration surface of the compiler: an
// application describes its constructors, routes, middlewares and
// configuration on a Blueprint, then hands the result to the compiler
// package.
//
// Registration performs no validation. Every rule is checked by the
// compiler in batch, so a misconfigured blueprint reports all of its
// problems at once, each one pointing back at the registration site
// captured here.
//
// Example:
//
//	bp := blueprint.New()
//	bp.Constructor("new_pool", poolConstructor, blueprint.Singleton())
//	api := bp.Nest("/api")
//	api.Get("list_users", "/users", listUsers)
package blueprint

import (
	"runtime"
	"strings"

	"rivaas.dev/blueprint/schema"
)

// Blueprint accumulates component declarations. Nest and Domain return
// child blueprints sharing the same declaration list, so registrations
// on a child carry the child's scope.
type Blueprint struct {
	decls *[]schema.Declaration
	scope []schema.ScopeStep
}

// New returns an empty root Blueprint.
func New() *Blueprint {
	return &Blueprint{decls: new([]schema.Declaration)}
}

// Nest returns a child blueprint whose routes and fallbacks live under
// the given path prefix.
func (b *Blueprint) Nest(prefix string) *Blueprint {
	return b.child(schema.ScopeStep{Prefix: prefix})
}

// Domain returns a child blueprint whose routes only match the given
// host, e.g. "admin.example.com" or "{tenant}.example.com".
func (b *Blueprint) Domain(domain string) *Blueprint {
	return b.child(schema.ScopeStep{Domain: domain})
}

func (b *Blueprint) child(step schema.ScopeStep) *Blueprint {
	scope := make([]schema.ScopeStep, len(b.scope), len(b.scope)+1)
	copy(scope, b.scope)
	return &Blueprint{decls: b.decls, scope: append(scope, step)}
}

// Constructor registers a constructor for its output type.
func (b *Blueprint) Constructor(id string, callable schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindConstructor, ID: id, Callable: &callable}
	b.record(&d, callableOwner(callable), opts)
}

// Route registers a handler for the given methods and path pattern.
func (b *Blueprint) Route(id string, methods []string, path string, handler schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindRoute, ID: id, Methods: methods, Path: path, Callable: &handler}
	b.record(&d, callableOwner(handler), opts)
}

// Get registers a GET route.
func (b *Blueprint) Get(id, path string, handler schema.Callable, opts ...Option) {
	b.Route(id, []string{"GET"}, path, handler, opts...)
}

// Post registers a POST route.
func (b *Blueprint) Post(id, path string, handler schema.Callable, opts ...Option) {
	b.Route(id, []string{"POST"}, path, handler, opts...)
}

// Put registers a PUT route.
func (b *Blueprint) Put(id, path string, handler schema.Callable, opts ...Option) {
	b.Route(id, []string{"PUT"}, path, handler, opts...)
}

// Delete registers a DELETE route.
func (b *Blueprint) Delete(id, path string, handler schema.Callable, opts ...Option) {
	b.Route(id, []string{"DELETE"}, path, handler, opts...)
}

// Wrap registers a wrapping middleware around every route of this
// blueprint's subtree.
func (b *Blueprint) Wrap(id string, mw schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindWrap, ID: id, Callable: &mw}
	b.record(&d, callableOwner(mw), opts)
}

// PreProcess registers a middleware running before the handler.
func (b *Blueprint) PreProcess(id string, mw schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindPreProcess, ID: id, Callable: &mw}
	b.record(&d, callableOwner(mw), opts)
}

// PostProcess registers a middleware running after the handler.
func (b *Blueprint) PostProcess(id string, mw schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindPostProcess, ID: id, Callable: &mw}
	b.record(&d, callableOwner(mw), opts)
}

// ErrorHandler registers the handler converting the given error type
// into a response, for this blueprint's subtree.
func (b *Blueprint) ErrorHandler(id string, errType schema.TypeRef, handler schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindErrorHandler, ID: id, ErrorType: &errType, Callable: &handler}
	b.record(&d, callableOwner(handler), opts)
}

// ErrorObserver registers a side-effect-only observer invoked on every
// error, whatever its type.
func (b *Blueprint) ErrorObserver(id string, observer schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindErrorObserver, ID: id, Callable: &observer}
	b.record(&d, callableOwner(observer), opts)
}

// Config registers a configuration entry under the given key.
func (b *Blueprint) Config(key string, t schema.TypeRef, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindConfig, ID: key, Key: key, Type: &t}
	b.record(&d, typeOwner(t), opts)
}

// Prebuilt registers a type the application supplies ready-made when the
// generated state builder runs.
func (b *Blueprint) Prebuilt(id string, t schema.TypeRef, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindPrebuilt, ID: id, Type: &t}
	b.record(&d, typeOwner(t), opts)
}

// Fallback registers the handler for requests no route of this subtree
// matches.
func (b *Blueprint) Fallback(id string, handler schema.Callable, opts ...Option) {
	d := schema.Declaration{Kind: schema.KindFallback, ID: id, Callable: &handler}
	b.record(&d, callableOwner(handler), opts)
}

// Declarations returns everything registered so far, in registration
// order. The slice is shared across the whole blueprint tree.
func (b *Blueprint) Declarations() []schema.Declaration {
	return *b.decls
}

// Document wraps the declarations into a versioned document ready for
// the compiler.
func (b *Blueprint) Document() *schema.Document {
	return &schema.Document{
		SchemaVersion: schema.CurrentSchemaVersion,
		Components:    b.Declarations(),
	}
}

func (b *Blueprint) record(d *schema.Declaration, pkg string, opts []Option) {
	d.Package = pkg
	d.Scope = b.scope
	d.Site = callerSite()
	for _, opt := range opts {
		opt(d)
	}
	*b.decls = append(*b.decls, *d)
}

// callerSite walks past the blueprint's own frames to the registration
// site in user code.
func callerSite() schema.Site {
	for skip := 2; skip < 8; skip++ {
		pc, file, line, ok := runtime.Caller(skip)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn != nil && strings.Contains(fn.Name(), "rivaas.dev/blueprint.") {
			continue
		}
		return schema.Site{File: file, Line: line}
	}
	return schema.Site{}
}

// callableOwner derives the owning package from a callable's
// fully-qualified name.
func callableOwner(c schema.Callable) string {
	return ownerOf(c.Name)
}

func typeOwner(t schema.TypeRef) string {
	return ownerOf(t.Name)
}

func ownerOf(name string) string {
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= slash {
		return name
	}
	return name[:dot]
}
