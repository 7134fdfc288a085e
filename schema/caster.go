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

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// CoerceDefault converts a config entry's default value to the Go value
// matching its declared type. JSON and YAML decoders are loose about
// scalar kinds (every JSON number arrives as float64), so defaults are
// normalized here once, before the compiler bakes them into the generated
// DefaultConfig.
//
// Only well-known scalar kinds are coerced; structured defaults pass
// through untouched and are rendered verbatim by the code generator.
func CoerceDefault(typeName string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	var (
		out any
		err error
	)
	switch typeName {
	case "bool":
		out, err = cast.ToBoolE(value)
	case "string":
		out, err = cast.ToStringE(value)
	case "int":
		out, err = cast.ToIntE(value)
	case "int8":
		out, err = cast.ToInt8E(value)
	case "int16":
		out, err = cast.ToInt16E(value)
	case "int32":
		out, err = cast.ToInt32E(value)
	case "int64":
		out, err = cast.ToInt64E(value)
	case "uint":
		out, err = cast.ToUintE(value)
	case "uint8":
		out, err = cast.ToUint8E(value)
	case "uint16":
		out, err = cast.ToUint16E(value)
	case "uint32":
		out, err = cast.ToUint32E(value)
	case "uint64":
		out, err = cast.ToUint64E(value)
	case "float32":
		out, err = cast.ToFloat32E(value)
	case "float64":
		out, err = cast.ToFloat64E(value)
	case "time.Duration":
		out, err = cast.ToDurationE(value)
	case "time.Time":
		var t time.Time
		t, err = cast.ToTimeE(value)
		out = t
	default:
		return value, nil
	}
	if err != nil {
		return nil, fmt.Errorf("default value %v cannot be coerced to %s: %w", value, typeName, err)
	}
	return out, nil
}
