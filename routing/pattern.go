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

package routing

import (
	"fmt"
	"strings"
)

// segmentKind classifies one segment of a path pattern.
type segmentKind uint8

const (
	segLiteral segmentKind = iota
	segParam               // contains exactly one {name}, with optional literal fix around it
	segCatchAll            // {*name}, final segment only
)

type segment struct {
	kind   segmentKind
	text   string // literal text, for segLiteral
	prefix string // literal prefix before the parameter, for segParam
	suffix string // literal suffix after the parameter, for segParam
	param  string // parameter name, for segParam and segCatchAll
}

// structuralKey normalizes a segment so that two patterns differing only
// in parameter names compare equal: "/home/{id}" and "/home/{home_id}"
// collide on the same key.
func (s segment) structuralKey() string {
	switch s.kind {
	case segLiteral:
		return "L:" + s.text
	case segParam:
		return "P:" + s.prefix + "{}" + s.suffix
	default:
		return "C:"
	}
}

// pattern is a parsed path pattern.
type pattern struct {
	raw      string
	segments []segment
}

// parsePattern validates and splits a path pattern. Rules: patterns start
// with "/", a segment holds at most one named parameter, and a catch-all
// parameter may only appear as the entire final segment.
func parsePattern(path string) (pattern, error) {
	if path == "" {
		return pattern{}, fmt.Errorf("the path is empty; use \"/\" for the root")
	}
	if !strings.HasPrefix(path, "/") {
		return pattern{}, fmt.Errorf("path %q does not start with a slash", path)
	}
	p := pattern{raw: path}
	if path == "/" {
		return p, nil
	}

	rawSegments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, raw := range rawSegments {
		last := i == len(rawSegments)-1
		seg, err := parseSegment(raw, last)
		if err != nil {
			return pattern{}, fmt.Errorf("path %q: %w", path, err)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

func parseSegment(raw string, last bool) (segment, error) {
	if raw == "" {
		return segment{}, fmt.Errorf("empty path segment")
	}

	open := strings.Count(raw, "{")
	if open != strings.Count(raw, "}") {
		return segment{}, fmt.Errorf("unbalanced braces in segment %q", raw)
	}
	if open == 0 {
		return segment{kind: segLiteral, text: raw}, nil
	}
	if open > 1 {
		return segment{}, fmt.Errorf("segment %q holds more than one parameter; at most one named parameter per segment", raw)
	}

	start := strings.Index(raw, "{")
	end := strings.Index(raw, "}")
	if end < start {
		return segment{}, fmt.Errorf("malformed parameter in segment %q", raw)
	}
	inner := raw[start+1 : end]

	if strings.HasPrefix(inner, "*") {
		if raw != "{"+inner+"}" {
			return segment{}, fmt.Errorf("catch-all parameter must span the whole segment, found %q", raw)
		}
		if !last {
			return segment{}, fmt.Errorf("catch-all parameter {%s} must be the final segment", inner)
		}
		name := inner[1:]
		if err := validateParamName(name); err != nil {
			return segment{}, err
		}
		return segment{kind: segCatchAll, param: name}, nil
	}

	if err := validateParamName(inner); err != nil {
		return segment{}, err
	}
	return segment{
		kind:   segParam,
		prefix: raw[:start],
		suffix: raw[end+1:],
		param:  inner,
	}, nil
}

// structuralKey joins the segment keys into the pattern's identity used
// for conflict detection.
func (p pattern) structuralKey() string {
	if len(p.segments) == 0 {
		return "/"
	}
	keys := make([]string, len(p.segments))
	for i, s := range p.segments {
		keys[i] = s.structuralKey()
	}
	return "/" + strings.Join(keys, "/")
}

// hasTrailingCatchAll reports whether the pattern ends in a catch-all.
func (p pattern) hasTrailingCatchAll() bool {
	if len(p.segments) == 0 {
		return false
	}
	return p.segments[len(p.segments)-1].kind == segCatchAll
}

// shadows reports whether two patterns can match the same request path
// with no deterministic priority. Structural equality is the hard case;
// additionally a parameter segment and a catch-all at the same position
// overlap without a clear winner.
func (p pattern) shadows(other pattern) bool {
	if p.structuralKey() == other.structuralKey() {
		return true
	}
	a, b := p.segments, other.segments
	for i := 0; i < len(a) && i < len(b); i++ {
		sa, sb := a[i], b[i]
		if sa.kind == segLiteral && sb.kind == segLiteral {
			if sa.text != sb.text {
				return false
			}
			continue
		}
		if sa.kind == segLiteral || sb.kind == segLiteral {
			// literal vs parameter: the literal wins deterministically.
			return false
		}
		if sa.kind == segCatchAll || sb.kind == segCatchAll {
			// parameter vs catch-all (or two catch-alls) at the same
			// position: both can match, neither dominates.
			return true
		}
		if sa.structuralKey() != sb.structuralKey() {
			// Two parameter segments with different literal fixes.
			return false
		}
	}
	return false
}
