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

	"rivaas.dev/blueprint/ownership"
	"rivaas.dev/blueprint/registry"
	"rivaas.dev/blueprint/resolve"
	"rivaas.dev/blueprint/schema"
)

// runtimePackage is the import path of the HTTP runtime the generated
// code runs on.
const runtimePackage = "rivaas.dev/http"

// emitRoutes writes one dispatch function per route and fallback, plus
// the route table binding them to methods, paths and domains.
func (g *generator) emitRoutes() {
	byHandler := make(map[registry.ComponentID]*ownership.RoutePlan)
	for _, rp := range g.plan.Routes {
		byHandler[rp.Graph.Route] = rp
	}

	// Name every dispatch function first, so the table can reference
	// fallbacks generated later in the file.
	fallbackN := 0
	for _, e := range g.table.Entries() {
		if _, ok := g.funcNames[e.Handler]; !ok {
			g.funcNames[e.Handler] = routeFuncName(e.Method, e.Path)
		}
		if e.HasFallback {
			if _, ok := g.funcNames[e.Fallback]; !ok {
				g.funcNames[e.Fallback] = fmt.Sprintf("fallback%d", fallbackN)
				fallbackN++
			}
		}
	}

	g.emitRouteTable()

	emitted := make(map[registry.ComponentID]bool)
	for _, e := range g.table.Entries() {
		for _, id := range []registry.ComponentID{e.Handler, e.Fallback} {
			if id == e.Fallback && !e.HasFallback {
				continue
			}
			if emitted[id] {
				continue
			}
			emitted[id] = true
			if rp, ok := byHandler[id]; ok {
				g.emitDispatch(g.funcNames[id], rp)
			}
		}
	}
}

func (g *generator) emitRouteTable() {
	rt := g.im.alias(runtimePackage)
	g.p("// Routes is the compiled routing table, ready to be mounted on the")
	g.p("// runtime's server.")
	g.p("var Routes = []%s.RouteSpec{", rt)
	for _, e := range g.table.Entries() {
		fallback := "nil"
		if e.HasFallback {
			fallback = g.funcNames[e.Fallback]
		}
		g.p("\t{Method: %q, Domain: %q, Path: %q, Handler: %s, Fallback: %s},",
			e.Method, e.Domain, e.Path, g.funcNames[e.Handler], fallback)
	}
	g.p("}")
	g.p("")
}

// emitDispatch writes the body of one route's dispatch function: every
// per-request value built in dependency order, fallible steps branching
// into their error chain, and the final stage's response returned.
func (g *generator) emitDispatch(name string, rp *ownership.RoutePlan) {
	rt := g.im.alias(runtimePackage)
	g.p("func %s(state *ApplicationState, cx *%s.RequestContext) %s.Response {", name, rt, rt)

	order, err := rp.Graph.ConstructionOrder()
	if err != nil {
		// Cycles were rejected before codegen; an unsortable graph here is
		// a bug in the resolver.
		panic(err)
	}
	// The last pipeline invocation produces the response the function
	// returns; every other unconsumed output is discarded explicitly.
	var retNode resolve.NodeID = -1
	if calls := rp.Graph.Calls(); len(calls) > 0 {
		retNode = calls[len(calls)-1].Node
	}
	for _, id := range order {
		n := rp.Graph.Node(id)
		switch n.Kind {
		case resolve.NodeComponent:
			if n.Lifecycle == schema.Singleton {
				continue
			}
			if _, isErrorPath := g.errorCallFor(rp.Graph, id); isErrorPath {
				continue
			}
			g.emitComponentCall(rp, n, id == retNode)
		case resolve.NodeFrameworkConstructor:
			g.emitFrameworkConstructor(rp, n)
		}
	}
	if retNode >= 0 {
		g.p("\treturn %s", g.varName(retNode))
	} else {
		g.p("\treturn %s.Response{}", rt)
	}
	g.p("}")
	g.p("")
}

// emitComponentCall writes the invocation of a user component: a
// constructor, middleware, or handler.
func (g *generator) emitComponentCall(rp *ownership.RoutePlan, n resolve.Node, retained bool) {
	c := g.reg.Component(n.Component)
	args := g.argList(rp, n)
	target := g.im.funcExpr(c.Callable.Name)
	discard := !retained && g.unused(rp.Graph, n.ID)
	if n.Fallible {
		out := g.varName(n.ID)
		if discard {
			out = "_"
		}
		g.p("\t%s, %s := %s(%s)", out, g.errName(n.ID), target, strings.Join(args, ", "))
		g.emitErrorBranch(rp, n)
		return
	}
	if discard {
		g.p("\t_ = %s(%s)", target, strings.Join(args, ", "))
		return
	}
	g.p("\t%s := %s(%s)", g.varName(n.ID), target, strings.Join(args, ", "))
}

// emitFrameworkConstructor writes the built-in extractor invocation,
// currently always the typed path-parameter extraction.
func (g *generator) emitFrameworkConstructor(rp *ownership.RoutePlan, n resolve.Node) {
	rt := g.im.alias(runtimePackage)
	arg := ""
	if len(n.Type.Generics) == 1 {
		arg = g.im.typeExpr(n.Type.Generics[0])
	}
	if n.Fallible {
		g.p("\t%s, %s := %s.PathParamsFrom[%s](cx)", g.varName(n.ID), g.errName(n.ID), rt, arg)
		g.emitErrorBranch(rp, n)
		return
	}
	g.p("\t%s := %s.PathParamsFrom[%s](cx)", g.varName(n.ID), rt, arg)
}

// emitErrorBranch writes the failure path of a fallible step: observers
// run first, then the error handler's response (or the error's own
// conversion) is returned.
func (g *generator) emitErrorBranch(rp *ownership.RoutePlan, n resolve.Node) {
	errVar := g.errName(n.ID)
	g.p("\tif %s != nil {", errVar)
	errNode := rp.Graph.Node(n.ErrorNode)
	for _, call := range rp.Graph.ErrorCalls() {
		if call.Origin != n.ErrorNode {
			continue
		}
		cc := g.reg.Component(call.Component)
		args := g.errorCallArgs(rp, call, errVar)
		if cc.Kind == schema.KindErrorObserver {
			g.p("\t\t%s(%s)", g.im.funcExpr(cc.Callable.Name), strings.Join(args, ", "))
		}
	}
	if errNode.HasHandler {
		for _, call := range rp.Graph.ErrorCalls() {
			if call.Origin != n.ErrorNode || call.Node != errNode.Handler {
				continue
			}
			cc := g.reg.Component(call.Component)
			args := g.errorCallArgs(rp, call, errVar)
			g.p("\t\treturn %s(%s)", g.im.funcExpr(cc.Callable.Name), strings.Join(args, ", "))
		}
	} else {
		g.p("\t\treturn %s.ErrorResponse(%s)", g.im.alias(runtimePackage), errVar)
	}
	g.p("\t}")
}

// errorCallArgs renders an error handler's or observer's arguments; the
// error value maps to the fallible step's err variable.
func (g *generator) errorCallArgs(rp *ownership.RoutePlan, call resolve.Call, errVar string) []string {
	n := rp.Graph.Node(call.Node)
	args := make([]string, 0, len(n.Inputs))
	for i, dep := range n.Inputs {
		if dep == call.Origin {
			args = append(args, errVar)
			continue
		}
		args = append(args, g.valueExpr(rp, n.ID, dep, n.InputRefs[i]))
	}
	return args
}

// argList renders a node's arguments in positional order.
func (g *generator) argList(rp *ownership.RoutePlan, n resolve.Node) []string {
	args := make([]string, 0, len(n.Inputs))
	for i, dep := range n.Inputs {
		args = append(args, g.valueExpr(rp, n.ID, dep, n.InputRefs[i]))
	}
	return args
}

// valueExpr renders the expression handing a dependency's value to a
// consumer, inserting clones and address-taking as the ownership plan
// requires.
func (g *generator) valueExpr(rp *ownership.RoutePlan, consumer, dep resolve.NodeID, ref schema.RefKind) string {
	n := rp.Graph.Node(dep)
	var expr string
	switch {
	case n.Kind == resolve.NodeFrameworkItem:
		return g.frameworkItemExpr(n, ref)
	case n.Kind == resolve.NodeComponent && n.Lifecycle == schema.Singleton:
		expr = "state." + g.stateField(n.Type)
	default:
		expr = g.varName(dep)
	}
	if ref == schema.ByValue && rp.NeedsClone(dep, consumer) {
		return expr + ".Clone()"
	}
	switch ref {
	case schema.ByRef, schema.ByMutRef:
		return "&" + expr
	default:
		return expr
	}
}

// frameworkItemExpr renders access to a runtime-supplied primitive.
func (g *generator) frameworkItemExpr(n resolve.Node, ref schema.RefKind) string {
	_, ident := splitQualified(n.Type.Name)
	if n.InFlight {
		// The in-flight response is handed out as a pointer already.
		return "cx.Response()"
	}
	expr := "cx." + ident + "()"
	if ref == schema.ByRef || ref == schema.ByMutRef {
		// Accessors return values; borrowers get a stable copy to point at.
		return "ptr(" + expr + ")"
	}
	return expr
}

// errorCallFor reports whether a node is invoked only on a failure path.
func (g *generator) errorCallFor(gr *resolve.RouteGraph, id resolve.NodeID) (resolve.Call, bool) {
	for _, c := range gr.ErrorCalls() {
		if c.Node == id {
			return c, true
		}
	}
	return resolve.Call{}, false
}

// unused reports whether nothing consumes a node's output.
func (g *generator) unused(gr *resolve.RouteGraph, id resolve.NodeID) bool {
	return len(gr.Consumers(id)) == 0
}

func (g *generator) varName(id resolve.NodeID) string {
	return fmt.Sprintf("v%d", id)
}

func (g *generator) errName(id resolve.NodeID) string {
	return fmt.Sprintf("err%d", id)
}
