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
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_Config_01(t *testing.T) {
	cfg, err := Parse([]byte("choice:\n  require-cost: false\n  primary-types: [Expr]\narena:\n  limit: 100\n" +
		"  frame-limit: 16\n"))
	//
	if err != nil {
		t.Fatal(err)
	}
	// Explicit settings
	if cfg.Choice.RequireCost || cfg.Arena.Limit != 100 || cfg.Arena.FrameLimit != 16 {
		t.Errorf("settings not applied: %v", cfg)
	}
	// Defaults
	if !cfg.Choice.SingleInput || !cfg.Choice.ShallowPatterns || cfg.Choice.OrderedOverlap != OverlapAllow ||
		cfg.Emit.Package != "grammar" {
		t.Errorf("defaults not applied: %v", cfg)
	}
	//
	if !cfg.Choice.PrimaryAllowed("Expr") || cfg.Choice.PrimaryAllowed("Stmt") {
		t.Errorf("incorrect primary types")
	} else if !Default().Choice.PrimaryAllowed("Stmt") {
		t.Errorf("default should allow any primary type")
	}
}

func Test_Config_02(t *testing.T) {
	for _, text := range []string{"choice:\n  ordered-overlap: sometimes\n", "emit:\n  package: \"\"\n",
		"unknown: 1\n"} {
		if _, err := Parse([]byte(text)); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func Test_Config_03(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "gentle.yaml")
	//
	if err := os.WriteFile(filename, []byte("choice:\n  ordered-overlap: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	//
	cfg, err := ReadFile(filename)
	if err != nil {
		t.Fatal(err)
	} else if cfg.Choice.OrderedOverlap != OverlapWarn {
		t.Errorf("incorrect overlap %s", cfg.Choice.OrderedOverlap)
	} else if !strings.Contains(cfg.String(), "ordered-overlap: warn") {
		t.Errorf("incorrect rendering:\n%s", cfg)
	}
	//
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}
