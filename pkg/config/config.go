// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
// Package config holds the settings which govern compilation: the validation
// rules applied to choice predicates, the shape of emitted code, and resource
// limits.  Settings are read from a YAML file, with defaults applying to any
// key which is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Overlap determines how ordinary predicates which match the functors of a
// choice type are treated.
type Overlap string

const (
	// OverlapAllow permits such predicates silently.
	OverlapAllow Overlap = "allow"
	// OverlapWarn reports such predicates as warnings.
	OverlapWarn Overlap = "warn"
	// OverlapError reports such predicates as errors.
	OverlapError Overlap = "error"
)

// ChoiceRules are the restrictions placed upon choice predicates.
type ChoiceRules struct {
	// Require exactly one input argument.  Otherwise, the first input is the
	// primary argument, and the others are only available once a rule has
	// been chosen.
	SingleInput bool `yaml:"single-input"`
	// Require primary patterns to be a variable, or a functor applied to
	// variables.
	ShallowPatterns bool `yaml:"shallow-patterns"`
	// Require every rule to have a cost (otherwise, the cost is zero).
	RequireCost bool `yaml:"require-cost"`
	// Types permitted as primary arguments (empty means any sum type).
	PrimaryTypes []string `yaml:"primary-types"`
	// Treatment of ordered predicates matching functors of a choice type.
	OrderedOverlap Overlap `yaml:"ordered-overlap"`
}

// Emit determines the shape of generated Go code.
type Emit struct {
	// Package clause of generated files.
	Package string `yaml:"package"`
	// Import path of the runtime support package.
	Runtime string `yaml:"runtime"`
}

// Arena holds resource limits.
type Arena struct {
	// Maximum number of heap slots (0 means unbounded).
	Limit uint `yaml:"limit"`
	// Maximum number of registers in any one generated procedure (0 means
	// unbounded).
	FrameLimit uint `yaml:"frame-limit"`
}

// Config is the complete set of settings.
type Config struct {
	Choice ChoiceRules `yaml:"choice"`
	Emit   Emit        `yaml:"emit"`
	Arena  Arena       `yaml:"arena"`
}

// Default returns the settings used when no configuration is given.
func Default() Config {
	return Config{
		Choice: ChoiceRules{
			SingleInput:     true,
			ShallowPatterns: true,
			RequireCost:     true,
			OrderedOverlap:  OverlapAllow,
		},
		Emit: Emit{
			Package: "grammar",
			Runtime: "github.com/gentle-lang/gentle/pkg/machine",
		},
	}
}

// Parse reads settings from YAML text, starting from the defaults.
func Parse(bytes []byte) (Config, error) {
	var cfg = Default()
	//
	if err := yaml.UnmarshalStrict(bytes, &cfg); err != nil {
		return cfg, err
	}
	//
	return cfg, cfg.Validate()
}

// ReadFile reads settings from a YAML file.
func ReadFile(filename string) (Config, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return Default(), err
	}
	//
	cfg, err := Parse(bytes)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", filename, err)
	}
	//
	return cfg, nil
}

// Validate checks these settings are meaningful.
func (c Config) Validate() error {
	switch c.Choice.OrderedOverlap {
	case OverlapAllow, OverlapWarn, OverlapError:
	default:
		return fmt.Errorf("unknown ordered-overlap setting %q (expected allow, warn or error)",
			c.Choice.OrderedOverlap)
	}
	//
	if c.Emit.Package == "" {
		return fmt.Errorf("empty emit package")
	} else if c.Emit.Runtime == "" {
		return fmt.Errorf("empty emit runtime")
	}
	//
	return nil
}

// PrimaryAllowed checks whether a given type may be the primary argument type
// of a choice predicate.
func (c ChoiceRules) PrimaryAllowed(typename string) bool {
	if len(c.PrimaryTypes) == 0 {
		return true
	}
	//
	for _, t := range c.PrimaryTypes {
		if t == typename {
			return true
		}
	}
	//
	return false
}

// String renders these settings as YAML.
func (c Config) String() string {
	bytes, err := yaml.Marshal(&c)
	if err != nil {
		return err.Error()
	}
	//
	return string(bytes)
}
