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

// Package config loads and validates a run's full configuration as a
// single YAML document, so cmd/privasynth never has to touch ingest,
// aggregate, privacy, synth, or eval with unchecked input.
package config

import (
	"os"

	"github.com/sds-go/privasynth/errs"
	"github.com/sds-go/privasynth/ingest"
	"github.com/sds-go/privasynth/privacy"
	"github.com/sds-go/privasynth/synth"
	"sigs.k8s.io/yaml"
)

// MultiValueColumn mirrors ingest.MultiValueColumn in YAML-friendly
// form (a single-character string delimiter instead of a byte).
type MultiValueColumn struct {
	Column    string `json:"column"`
	Delimiter string `json:"delimiter"`
}

// Threshold mirrors privacy.ThresholdParameters in YAML-friendly form.
type Threshold struct {
	// Kind is "fixed" or "adaptive".
	Kind    string             `json:"kind"`
	Fixed   map[string]float64 `json:"fixed,omitempty"`
	Alpha   map[string]float64 `json:"alpha,omitempty"`
}

// Privacy mirrors privacy.Parameters in YAML-friendly form. A nil
// *Privacy on Config means the DP pipeline is skipped entirely and
// synth consumes the raw aggregates directly.
type Privacy struct {
	Epsilon                     float64   `json:"epsilon"`
	Delta                       float64   `json:"delta"`
	PercentilePercentage        int       `json:"percentile_percentage"`
	PercentileEpsilonProportion float64   `json:"percentile_epsilon_proportion"`
	AccuracyMode                string    `json:"accuracy_mode"`
	CustomSigmaProportions      []float64 `json:"custom_sigma_proportions,omitempty"`
	Threshold                   Threshold `json:"threshold"`
	RecordCountEpsilonProportion float64  `json:"record_count_epsilon_proportion"`
	RecordCountNoise            string    `json:"record_count_noise"`
}

// Oversampling mirrors synth.OversamplingParameters.
type Oversampling struct {
	Ratio float64 `json:"ratio"`
	Tries int     `json:"tries"`
}

// Config is the full configuration document: input ingestion,
// reporting/synthesis parameters, an optional DP pipeline, and output.
type Config struct {
	// Input is the path to the source CSV/TSV file.
	Input string `json:"input"`
	// Output is the path the synthesized table is written to.
	Output string `json:"output"`
	// Format is "csv" or "tsv". Empty means csv.
	Format string `json:"format,omitempty"`
	// Delimiter overrides the format's default field delimiter.
	// Must be exactly one byte if set.
	Delimiter string `json:"delimiter,omitempty"`

	SubjectIDColumn   string             `json:"subject_id_column,omitempty"`
	UseColumns        []string           `json:"use_columns,omitempty"`
	SensitiveZeros    []string           `json:"sensitive_zeros,omitempty"`
	MultiValueColumns []MultiValueColumn `json:"multi_value_columns,omitempty"`
	RecordLimit       int                `json:"record_limit,omitempty"`

	ReportingLength int     `json:"reporting_length"`
	Resolution      float64 `json:"resolution"`
	CacheMaxSize    int     `json:"cache_max_size,omitempty"`
	// Mode is one of "row_seeded", "value_seeded", "unseeded",
	// "aggregate_seeded".
	Mode         string       `json:"mode"`
	Oversampling Oversampling `json:"oversampling,omitempty"`
	Seed         int64        `json:"seed"`

	// Privacy configures the DP pipeline. Omitting it entirely
	// synthesizes directly from the raw (non-private) aggregates.
	Privacy *Privacy `json:"privacy,omitempty"`

	// Evaluate runs the utility Evaluator comparing the sensitive and
	// synthetic aggregates after synthesis.
	Evaluate bool `json:"evaluate,omitempty"`
	// Verbose turns on progress logging.
	Verbose bool `json:"verbose,omitempty"`
}

// Load reads and parses a YAML configuration document from path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewParsingError("reading config %q: %s", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errs.NewParsingError("parsing config %q: %s", path, err)
	}
	return &cfg, nil
}

// Validate checks the paths, delimiters, reporting length, resolution,
// mode, and the privacy enum names (accuracy mode, record-count noise,
// threshold kind) without touching any data. It is cheap and safe to
// call before Input is even known to exist. Format is checked by
// IngestConfig, and the numeric DP parameters by privacy.Run.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errs.NewInvalidParameter("input path must be set")
	}
	if c.Output == "" {
		return errs.NewInvalidParameter("output path must be set")
	}
	if len(c.Delimiter) > 1 {
		return errs.NewInvalidParameter("delimiter must be a single byte, got %q", c.Delimiter)
	}
	if c.ReportingLength <= 0 {
		return errs.NewInvalidParameter("reporting_length must be > 0, got %d", c.ReportingLength)
	}
	if c.Resolution <= 0 {
		return errs.NewInvalidParameter("resolution must be > 0, got %v", c.Resolution)
	}
	if _, err := c.synthMode(); err != nil {
		return err
	}
	for _, mv := range c.MultiValueColumns {
		if len(mv.Delimiter) != 1 {
			return errs.NewInvalidParameter("multi_value_columns[%q].delimiter must be a single byte, got %q", mv.Column, mv.Delimiter)
		}
	}
	if c.Privacy != nil {
		if _, err := c.Privacy.parameters(); err != nil {
			return err
		}
	}
	return nil
}

// IngestConfig translates the YAML-friendly ingestion fields into an
// ingest.Config.
func (c *Config) IngestConfig() (ingest.Config, error) {
	format := ingest.CSVFormat
	switch c.Format {
	case "", "csv":
		format = ingest.CSVFormat
	case "tsv":
		format = ingest.TSVFormat
	default:
		return ingest.Config{}, errs.NewInvalidParameter("format must be \"csv\" or \"tsv\", got %q", c.Format)
	}

	var delim byte
	if len(c.Delimiter) == 1 {
		delim = c.Delimiter[0]
	}

	mvcols := make([]ingest.MultiValueColumn, len(c.MultiValueColumns))
	for i, mv := range c.MultiValueColumns {
		mvcols[i] = ingest.MultiValueColumn{Column: mv.Column, Delimiter: mv.Delimiter[0]}
	}

	return ingest.Config{
		Format:            format,
		Delimiter:         delim,
		SubjectIDColumn:   c.SubjectIDColumn,
		UseColumns:        c.UseColumns,
		SensitiveZeros:    c.SensitiveZeros,
		MultiValueColumns: mvcols,
		RecordLimit:       c.RecordLimit,
	}, nil
}

func (c *Config) synthMode() (synth.Mode, error) {
	switch c.Mode {
	case "row_seeded":
		return synth.RowSeeded, nil
	case "value_seeded":
		return synth.ValueSeeded, nil
	case "unseeded":
		return synth.Unseeded, nil
	case "aggregate_seeded":
		return synth.AggregateSeeded, nil
	default:
		return 0, errs.NewInvalidParameter(
			"mode must be one of row_seeded, value_seeded, unseeded, aggregate_seeded, got %q", c.Mode)
	}
}

// SynthParameters translates the YAML-friendly synthesis fields into a
// synth.Parameters.
func (c *Config) SynthParameters() (synth.Parameters, error) {
	mode, err := c.synthMode()
	if err != nil {
		return synth.Parameters{}, err
	}
	return synth.Parameters{
		ReportingLength: c.ReportingLength,
		Resolution:      c.Resolution,
		Mode:            mode,
		Oversampling: synth.OversamplingParameters{
			Ratio: c.Oversampling.Ratio,
			Tries: c.Oversampling.Tries,
		},
		CacheMaxSize: c.CacheMaxSize,
		Seed:         c.Seed,
	}, nil
}

func (p *Privacy) accuracyMode() (privacy.AccuracyMode, error) {
	switch p.AccuracyMode {
	case "", "balanced":
		return privacy.Balanced, nil
	case "prioritize_large_counts":
		return privacy.PrioritizeLargeCounts, nil
	case "prioritize_small_counts":
		return privacy.PrioritizeSmallCounts, nil
	case "custom":
		return privacy.Custom, nil
	default:
		return 0, errs.NewInvalidParameter("accuracy_mode %q not recognized", p.AccuracyMode)
	}
}

func (p *Privacy) recordCountNoise() (privacy.RecordCountNoiseKind, error) {
	switch p.RecordCountNoise {
	case "", "laplace":
		return privacy.LaplaceNoise, nil
	case "gaussian":
		return privacy.GaussianNoise, nil
	default:
		return 0, errs.NewInvalidParameter("record_count_noise %q not recognized", p.RecordCountNoise)
	}
}

func (t Threshold) parameters() (privacy.ThresholdParameters, error) {
	params := privacy.ThresholdParameters{}
	switch t.Kind {
	case "fixed":
		params.Kind = privacy.FixedThreshold
		params.Fixed = remapByLength(t.Fixed)
	case "adaptive":
		params.Kind = privacy.AdaptiveThreshold
		params.Alpha = remapByLength(t.Alpha)
	default:
		return params, errs.NewInvalidParameter("threshold.kind must be \"fixed\" or \"adaptive\", got %q", t.Kind)
	}
	return params, nil
}

// parameters translates the YAML-friendly privacy fields into a
// privacy.Parameters.
func (p *Privacy) parameters() (privacy.Parameters, error) {
	mode, err := p.accuracyMode()
	if err != nil {
		return privacy.Parameters{}, err
	}
	noise, err := p.recordCountNoise()
	if err != nil {
		return privacy.Parameters{}, err
	}
	threshold, err := p.Threshold.parameters()
	if err != nil {
		return privacy.Parameters{}, err
	}
	return privacy.Parameters{
		Epsilon:                      p.Epsilon,
		Delta:                        p.Delta,
		PercentilePercentage:         p.PercentilePercentage,
		PercentileEpsilonProportion:  p.PercentileEpsilonProportion,
		AccuracyMode:                 mode,
		CustomSigmaProportions:       p.CustomSigmaProportions,
		Threshold:                    threshold,
		RecordCountEpsilonProportion: p.RecordCountEpsilonProportion,
		RecordCountNoise:             noise,
	}, nil
}

// PrivacyParameters translates c.Privacy into a privacy.Parameters,
// returning ok=false if no DP pipeline was configured.
func (c *Config) PrivacyParameters() (params privacy.Parameters, ok bool, err error) {
	if c.Privacy == nil {
		return privacy.Parameters{}, false, nil
	}
	params, err = c.Privacy.parameters()
	params.Seed = c.Seed
	return params, true, err
}

func remapByLength(m map[string]float64) map[int]float64 {
	if m == nil {
		return nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		n := 0
		for _, r := range k {
			if r < '0' || r > '9' {
				n = -1
				break
			}
			n = n*10 + int(r-'0')
		}
		if n > 0 {
			out[n] = v
		}
	}
	return out
}
