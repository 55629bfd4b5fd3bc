// Copyright (C) 2024 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sds-go/privasynth/privacy"
	"github.com/sds-go/privasynth/synth"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAndValidateMinimal(t *testing.T) {
	path := writeTemp(t, `
input: in.csv
output: out.csv
reporting_length: 2
resolution: 1
mode: row_seeded
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	params, err := cfg.SynthParameters()
	if err != nil {
		t.Fatalf("SynthParameters: %v", err)
	}
	if params.Mode != synth.RowSeeded {
		t.Fatalf("expected RowSeeded, got %v", params.Mode)
	}
	if _, ok, err := cfg.PrivacyParameters(); err != nil || ok {
		t.Fatalf("expected no privacy pipeline configured, ok=%v err=%v", ok, err)
	}
}

func TestValidateRejectsMissingInput(t *testing.T) {
	cfg := &Config{Output: "out.csv", ReportingLength: 1, Resolution: 1, Mode: "row_seeded"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing input path")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := &Config{Input: "in.csv", Output: "out.csv", ReportingLength: 1, Resolution: 1, Mode: "bogus"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognized mode")
	}
}

func TestPrivacyParametersTranslatesThreshold(t *testing.T) {
	cfg := &Config{
		Input: "in.csv", Output: "out.csv", ReportingLength: 2, Resolution: 1, Mode: "aggregate_seeded",
		Privacy: &Privacy{
			Epsilon: 4, Delta: 0.01, PercentilePercentage: 99,
			PercentileEpsilonProportion:  0.1,
			RecordCountEpsilonProportion: 0.1,
			Threshold: Threshold{
				Kind:  "fixed",
				Fixed: map[string]float64{"1": -10, "2": -10},
			},
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	params, ok, err := cfg.PrivacyParameters()
	if err != nil || !ok {
		t.Fatalf("expected a privacy pipeline, ok=%v err=%v", ok, err)
	}
	if params.Threshold.Kind != privacy.FixedThreshold {
		t.Fatalf("expected FixedThreshold, got %v", params.Threshold.Kind)
	}
	if params.Threshold.Fixed[1] != -10 || params.Threshold.Fixed[2] != -10 {
		t.Fatalf("expected per-length fixed thresholds to survive translation, got %v", params.Threshold.Fixed)
	}
}
