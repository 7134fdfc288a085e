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

// maxDomainLength is the DNS limit on a full domain name.
const maxDomainLength = 253

// maxLabelLength is the DNS limit on a single label.
const maxLabelLength = 63

// labelKind classifies one DNS label of a domain guard.
type labelKind uint8

const (
	labelLiteral labelKind = iota
	labelParam             // {sub}: captures exactly one label
	labelCatchAll          // {*any}: captures one or more leading labels
)

type domainLabel struct {
	kind labelKind
	text string // literal text, or the parameter name
}

// DomainGuard is a validated host constraint, e.g. "admin.example.com" or
// "{sub}.example.com". Labels are stored left to right; matching and
// specificity comparisons walk them right to left, since domains grow
// more specific towards the left.
type DomainGuard struct {
	raw    string
	labels []domainLabel
}

// ParseDomain validates a domain guard. Rules: non-empty labels, at most
// one parameter per label and nothing else in it, a catch-all only as the
// leftmost label, DNS character and length limits. A trailing dot is
// stripped during normalization.
func ParseDomain(input string) (DomainGuard, error) {
	if input == "" {
		return DomainGuard{}, fmt.Errorf("the domain is empty")
	}
	normalized := strings.TrimSuffix(input, ".")
	if len(normalized) > maxDomainLength {
		return DomainGuard{}, fmt.Errorf("the domain exceeds %d characters", maxDomainLength)
	}

	rawLabels := strings.Split(normalized, ".")
	labels := make([]domainLabel, 0, len(rawLabels))
	for i, raw := range rawLabels {
		if raw == "" {
			return DomainGuard{}, fmt.Errorf("%q contains an empty DNS label", input)
		}
		if len(raw) > maxLabelLength {
			return DomainGuard{}, fmt.Errorf("DNS label %q exceeds %d characters", raw, maxLabelLength)
		}
		switch {
		case strings.HasPrefix(raw, "{*"):
			if !strings.HasSuffix(raw, "}") || len(raw) < 4 {
				return DomainGuard{}, fmt.Errorf("malformed catch-all parameter %q", raw)
			}
			if i != 0 {
				return DomainGuard{}, fmt.Errorf("catch-all parameter %q must be the leftmost DNS label", raw)
			}
			name := raw[2 : len(raw)-1]
			if err := validateParamName(name); err != nil {
				return DomainGuard{}, err
			}
			labels = append(labels, domainLabel{kind: labelCatchAll, text: name})
		case strings.HasPrefix(raw, "{"):
			if !strings.HasSuffix(raw, "}") || len(raw) < 3 {
				return DomainGuard{}, fmt.Errorf("unclosed parameter %q", raw)
			}
			name := raw[1 : len(raw)-1]
			if err := validateParamName(name); err != nil {
				return DomainGuard{}, err
			}
			labels = append(labels, domainLabel{kind: labelParam, text: name})
		default:
			if strings.Contains(raw, "{") || strings.Contains(raw, "}") {
				return DomainGuard{}, fmt.Errorf("DNS label %q mixes literal text and parameters; a parameter must span the whole label", raw)
			}
			for _, r := range raw {
				if !isDNSChar(r) {
					return DomainGuard{}, fmt.Errorf("DNS label %q contains the invalid character %q", raw, r)
				}
			}
			labels = append(labels, domainLabel{kind: labelLiteral, text: strings.ToLower(raw)})
		}
	}
	rendered := make([]string, len(labels))
	for i, l := range labels {
		switch l.kind {
		case labelParam:
			rendered[i] = "{" + l.text + "}"
		case labelCatchAll:
			rendered[i] = "{*" + l.text + "}"
		default:
			rendered[i] = l.text
		}
	}
	return DomainGuard{raw: strings.Join(rendered, "."), labels: labels}, nil
}

// String returns the normalized guard.
func (g DomainGuard) String() string {
	return g.raw
}

// IsZero reports whether the guard is absent (domain-agnostic).
func (g DomainGuard) IsZero() bool {
	return g.raw == ""
}

// Conflicts reports whether two guards can match the same host without a
// deterministic priority between them. Labels are compared right to left:
//
//   - diverging literals make the guards disjoint: no conflict;
//   - a literal against a parameter or catch-all is fine, the literal is
//     strictly more specific where both match;
//   - a parameter against a catch-all conflicts: both can match the same
//     host and neither dominates (the catch-all also covers deeper
//     subdomains, the parameter is bounded to one label);
//   - structurally identical guards conflict outright.
func (g DomainGuard) Conflicts(other DomainGuard) bool {
	a, b := g.labels, other.labels
	i, j := len(a)-1, len(b)-1
	for i >= 0 && j >= 0 {
		la, lb := a[i], b[j]
		switch {
		case la.kind == labelLiteral && lb.kind == labelLiteral:
			if la.text != lb.text {
				return false // disjoint
			}
		case la.kind == labelLiteral || lb.kind == labelLiteral:
			// literal vs param/catch-all: deterministic priority.
			return false
		case la.kind == labelParam && lb.kind == labelParam:
			// Both capture exactly one label; keep walking.
		default:
			// param vs catch-all, or catch-all vs catch-all.
			return true
		}
		i--
		j--
	}
	// One guard ran out of labels. Same length means structural equality
	// along the walked positions: a conflict. Different lengths without a
	// catch-all are disjoint (a host has a fixed number of labels).
	return i < 0 && j < 0
}

func validateParamName(name string) error {
	if name == "" {
		return fmt.Errorf("the parameter name is empty")
	}
	for i, r := range name {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if i == 0 && !isAlpha {
			return fmt.Errorf("parameter name %q must start with a letter or underscore", name)
		}
		if !isAlpha && !isDigit {
			return fmt.Errorf("parameter name %q contains the invalid character %q", name, r)
		}
	}
	return nil
}

func isDNSChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-'
}
