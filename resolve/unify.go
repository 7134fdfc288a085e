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

package resolve

import "rivaas.dev/blueprint/schema"

// unify matches a producer's output pattern against a fully concrete
// requested type and returns the generic bindings that make them equal.
//
// The pattern may contain unbound parameters anywhere in its generic
// arguments; the request must not. A parameter appearing twice must bind
// to the same concrete type both times.
func unify(pattern, request schema.TypeRef) (map[string]schema.TypeRef, bool) {
	bindings := make(map[string]schema.TypeRef)
	if !unifyInto(pattern, request, bindings) {
		return nil, false
	}
	return bindings, true
}

func unifyInto(pattern, request schema.TypeRef, bindings map[string]schema.TypeRef) bool {
	if pattern.IsParam() {
		concrete := request
		concrete.Ref = ""
		if prev, ok := bindings[pattern.Param]; ok {
			return prev.Key() == concrete.Key()
		}
		bindings[pattern.Param] = concrete
		return true
	}
	if pattern.Name != request.Name {
		return false
	}
	if len(pattern.Generics) != len(request.Generics) {
		return false
	}
	for i := range pattern.Generics {
		if !unifyInto(pattern.Generics[i], request.Generics[i], bindings) {
			return false
		}
	}
	return true
}
