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

package compiler

import (
	"log/slog"

	"github.com/charmbracelet/colorprofile"
)

// Option defines functional options for compiler configuration.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	packageName string
	profile     *colorprofile.Profile
}

// WithLogger sets the logger the compiler reports phase progress to.
// Without it, the compiler is silent.
//
// Example:
//
//	compiler.New(compiler.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithGeneratedPackage sets the package name of the generated source.
// Defaults to "server".
func WithGeneratedPackage(name string) Option {
	return func(c *config) {
		c.packageName = name
	}
}

// WithColorProfile pins the color profile diagnostics are rendered with,
// instead of detecting it from the environment. Useful for CI logs and
// golden-file tests.
func WithColorProfile(p colorprofile.Profile) Option {
	return func(c *config) {
		c.profile = &p
	}
}
