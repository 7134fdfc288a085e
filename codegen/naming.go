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

package codegen

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"rivaas.dev/blueprint/schema"
)

// splitQualified splits a fully-qualified name such as
// "myapp/auth.NewSession" into its import path and local identifier.
// Names without a package ("string", "int") import nothing.
func splitQualified(name string) (importPath, ident string) {
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name, ".")
	if dot <= slash {
		return "", name
	}
	return name[:dot], name[dot+1:]
}

// exportedIdent turns a config key such as "pool_size" into an exported
// Go identifier, "PoolSize".
func exportedIdent(key string) string {
	var b strings.Builder
	upper := true
	for _, r := range key {
		if r == '_' || r == '.' || r == '-' {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// routeFuncName derives a deterministic handler function name from a
// method and path pattern, e.g. GET /home/{id} -> "handleGetHomeId".
func routeFuncName(method, path string) string {
	var b strings.Builder
	b.WriteString("handle")
	b.WriteString(exportedIdent(strings.ToLower(method)))
	for _, seg := range strings.Split(path, "/") {
		seg = strings.Trim(seg, "{}*")
		seg = strings.NewReplacer("{", "", "}", "", ":", "", ".", "_", "-", "_").Replace(seg)
		if seg == "" {
			continue
		}
		b.WriteString(exportedIdent(strings.ToLower(seg)))
	}
	if b.Len() == len("handle")+len(exportedIdent(strings.ToLower(method))) {
		b.WriteString("Root")
	}
	return b.String()
}

// imports tracks the packages the generated file references and assigns
// stable aliases.
type imports struct {
	byPath map[string]string
	used   map[string]bool
}

func newImports() *imports {
	return &imports{byPath: make(map[string]string), used: make(map[string]bool)}
}

// alias returns the package alias for an import path, registering it on
// first use. Base-name collisions get a numeric suffix.
func (im *imports) alias(path string) string {
	if a, ok := im.byPath[path]; ok {
		return a
	}
	base := path
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	base = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, base)
	alias := base
	for n := 2; im.used[alias]; n++ {
		alias = fmt.Sprintf("%s%d", base, n)
	}
	im.byPath[path] = alias
	im.used[alias] = true
	return alias
}

// render writes the import block, paths sorted, aliasing only where the
// alias differs from the package base name.
func (im *imports) render(b *strings.Builder) {
	if len(im.byPath) == 0 {
		return
	}
	paths := make([]string, 0, len(im.byPath))
	for p := range im.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	b.WriteString("import (\n")
	for _, p := range paths {
		alias := im.byPath[p]
		if strings.HasSuffix(p, "/"+alias) || p == alias {
			fmt.Fprintf(b, "\t%q\n", p)
		} else {
			fmt.Fprintf(b, "\t%s %q\n", alias, p)
		}
	}
	b.WriteString(")\n\n")
}

// typeExpr renders a TypeRef as a Go type expression, registering the
// imports it needs.
func (im *imports) typeExpr(t schema.TypeRef) string {
	path, ident := splitQualified(t.Name)
	expr := ident
	if path != "" {
		expr = im.alias(path) + "." + ident
	}
	if len(t.Generics) > 0 {
		args := make([]string, len(t.Generics))
		for i, g := range t.Generics {
			args[i] = im.typeExpr(g)
		}
		expr += "[" + strings.Join(args, ", ") + "]"
	}
	return expr
}

// funcExpr renders a callable name as a Go call target.
func (im *imports) funcExpr(name string) string {
	path, ident := splitQualified(name)
	if path == "" {
		return ident
	}
	return im.alias(path) + "." + ident
}
