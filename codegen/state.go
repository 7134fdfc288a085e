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
	"strings"
	"time"

	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/schema"
)

// emitConfig writes the ApplicationConfig struct, one field per config
// entry some component consumes, plus DefaultConfig applying the
// registered defaults. Unconsumed entries are dropped unless they opted
// in with include_if_unused.
func (g *generator) emitConfig() {
	var entries []registry.Component
	for _, c := range g.reg.ByKind(schema.KindConfig) {
		if g.res.Used[c.ID] || c.IncludeIfUnused {
			entries = append(entries, c)
		}
	}

	g.p("// ApplicationConfig holds every configuration value the application")
	g.p("// consumes, loadable from JSON or YAML.")
	g.p("type ApplicationConfig struct {")
	for _, c := range entries {
		field := exportedIdent(c.Key)
		g.p("\t%s %s `json:%q yaml:%q`", field, g.im.typeExpr(*c.Type), c.Key, c.Key)
	}
	g.p("}")
	g.p("")

	g.p("// DefaultConfig returns the configuration with every registered")
	g.p("// default applied.")
	g.p("func DefaultConfig() ApplicationConfig {")
	g.p("\tcfg := ApplicationConfig{}")
	for _, c := range entries {
		if c.Default == nil {
			continue
		}
		lit, ok := g.literal(c.Default)
		if !ok {
			continue
		}
		g.p("\tcfg.%s = %s", exportedIdent(c.Key), lit)
	}
	g.p("\treturn cfg")
	g.p("}")
	g.p("")
}

// literal renders a coerced default value as a Go expression.
func (g *generator) literal(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val), true
	case bool:
		return fmt.Sprintf("%t", val), true
	case time.Duration:
		return fmt.Sprintf("%d * %s.Nanosecond", val.Nanoseconds(), g.im.alias("time")), true
	case time.Time:
		return fmt.Sprintf("%s.Unix(%d, 0).UTC()", g.im.alias("time"), val.Unix()), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprintf("%v", val), true
	default:
		// Structured defaults keep their Go literal form.
		return fmt.Sprintf("%#v", val), true
	}
}

// emitState writes the ApplicationState struct and its builder. Values
// are constructed in dependency order; fallible constructors abort the
// build.
func (g *generator) emitState() {
	g.p("// ApplicationState holds every singleton the routes share. It is")
	g.p("// built once, before the server starts accepting requests.")
	g.p("type ApplicationState struct {")
	for _, s := range g.res.Singletons {
		field := g.stateField(s.Type)
		g.p("\t%s %s", field, g.im.typeExpr(s.Type))
	}
	g.p("}")
	g.p("")

	g.p("// NewApplicationState builds the shared state from the configuration")
	g.p("// and the caller-supplied prebuilt values.")
	g.pf("func NewApplicationState(cfg ApplicationConfig")
	for _, s := range g.res.Singletons {
		c := g.reg.Component(s.Component)
		if c.Kind != schema.KindPrebuilt {
			continue
		}
		g.pf(", %s %s", unexported(g.stateField(s.Type)), g.im.typeExpr(s.Type))
	}
	g.pf(") (*ApplicationState, error) {\n")
	g.p("\ts := &ApplicationState{}")
	for _, s := range g.res.Singletons {
		c := g.reg.Component(s.Component)
		field := g.stateField(s.Type)
		switch c.Kind {
		case schema.KindConfig:
			g.p("\ts.%s = cfg.%s", field, exportedIdent(c.Key))
		case schema.KindPrebuilt:
			g.p("\ts.%s = %s", field, unexported(field))
		default:
			args := g.singletonArgs(c)
			if c.Callable != nil && c.Callable.Fallible {
				g.p("\tv%s, err := %s(%s)", field, g.im.funcExpr(c.Callable.Name), strings.Join(args, ", "))
				g.p("\tif err != nil {")
				g.p("\t\treturn nil, err")
				g.p("\t}")
				g.p("\ts.%s = v%s", field, field)
			} else {
				g.p("\ts.%s = %s(%s)", field, g.im.funcExpr(c.Callable.Name), strings.Join(args, ", "))
			}
		}
	}
	g.p("\treturn s, nil")
	g.p("}")
	g.p("")
}

// singletonArgs renders a singleton constructor's arguments from the
// already-assigned state fields.
func (g *generator) singletonArgs(c registry.Component) []string {
	if c.Callable == nil {
		return nil
	}
	var args []string
	for _, in := range c.Callable.Inputs {
		field := g.stateField(in)
		switch in.Ref {
		case schema.ByRef, schema.ByMutRef:
			args = append(args, "&s."+field)
		default:
			args = append(args, "s."+field)
		}
	}
	return args
}

// stateField returns the struct field holding a singleton of the given
// type, assigning a fresh deterministic name on first use.
func (g *generator) stateField(t schema.TypeRef) string {
	key := t.Key()
	if f, ok := g.fields[key]; ok {
		return f
	}
	_, ident := splitQualified(t.Name)
	name := exportedIdent(ident)
	for _, arg := range t.Generics {
		_, gi := splitQualified(arg.Name)
		name += exportedIdent(gi)
	}
	for g.fieldNames[name] {
		name += "X"
	}
	g.fieldNames[name] = true
	g.fields[key] = name
	return name
}

func unexported(name string) string {
	if name == "" {
		return name
	}
	return strings.ToLower(name[:1]) + name[1:]
}
