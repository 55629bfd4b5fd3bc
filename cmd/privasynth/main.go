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

// Command privasynth ingests a categorical table, aggregates k-way
// attribute combination counts, optionally runs the differential
// privacy pipeline, synthesizes a new table from the (possibly noisy)
// aggregates, and optionally reports a utility evaluation against the
// sensitive aggregates.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/config"
	"github.com/sds-go/privasynth/errs"
	"github.com/sds-go/privasynth/eval"
	"github.com/sds-go/privasynth/ingest"
	"github.com/sds-go/privasynth/privacy"
	"github.com/sds-go/privasynth/synth"
)

var (
	dashc string
	dashv bool
)

func init() {
	flag.StringVar(&dashc, "c", "", "path to the YAML configuration document (required)")
	flag.BoolVar(&dashv, "v", false, "log pipeline progress to stderr (overrides the config's verbose field)")
}

func main() {
	flag.Parse()
	if dashc == "" {
		fmt.Fprintln(os.Stderr, "privasynth: -c <config.yaml> is required")
		flag.Usage()
		os.Exit(exitInvalidParameter)
	}

	if err := run(dashc); err != nil {
		fmt.Fprintf(os.Stderr, "privasynth: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	runID := uuid.New().String()
	logger := log.New(os.Stderr, fmt.Sprintf("privasynth[%s]: ", runID), log.Ltime)
	verbose := cfg.Verbose || dashv
	logf := func(format string, args ...interface{}) {
		if verbose {
			logger.Printf(format, args...)
		}
	}
	logf("starting run")

	ingestCfg, err := cfg.IngestConfig()
	if err != nil {
		return err
	}

	logf("ingesting %s", cfg.Input)
	in, err := os.Open(cfg.Input)
	if err != nil {
		return errs.NewParsingError("opening input %q: %s", cfg.Input, err)
	}
	db, err := ingest.Ingest(in, ingestCfg)
	in.Close()
	if err != nil {
		return err
	}
	logf("ingested %d records, %d columns", db.NumRecords(), db.NumColumns())

	logf("aggregating up to length %d", cfg.ReportingLength)
	var progress aggregate.ProgressFunc
	if verbose {
		progress = func(pct float64) error {
			logf("aggregation %.0f%% complete", pct)
			return nil
		}
	}
	sensitive, err := aggregate.New(cfg.ReportingLength).Aggregate(db, progress)
	if err != nil {
		return err
	}
	logf("found %d distinct combinations", sensitive.Aggregates.Len())

	synthParams, err := cfg.SynthParameters()
	if err != nil {
		return err
	}
	synthesizer := synth.New(synthParams)

	var out *block.DataBlock
	privParams, hasPrivacy, err := cfg.PrivacyParameters()
	if err != nil {
		return err
	}
	if hasPrivacy {
		logf("running the differential privacy pipeline (epsilon=%v, delta=%v)", privParams.Epsilon, privParams.Delta)
		reportable, err := privacy.Run(sensitive, privParams)
		if err != nil {
			return err
		}
		logf("%d combinations survived fabrication control; noisy record count %v", reportable.Counts.Len(), reportable.NumberOfRecords)
		out, err = synthesizer.SynthesizeAggregate(reportable)
		if err != nil {
			return err
		}
	} else {
		logf("synthesizing directly from the raw aggregates (mode=%s)", synthParams.Mode)
		out, err = synthesizer.Synthesize(sensitive)
		if err != nil {
			return err
		}
	}
	logf("synthesized %d records", out.NumRecords())

	if cfg.Evaluate {
		synthetic, err := aggregate.New(cfg.ReportingLength).Aggregate(out, nil)
		if err != nil {
			return err
		}
		result := eval.New().Evaluate(sensitive, synthetic)
		logf("combination loss: %.4f (%d combinations compared)", result.CombinationLoss, result.Compared)
		for _, bound := range result.SortedBounds() {
			b := result.Buckets[bound]
			logf("bucket<=%d: size=%d mean_preservation=%.4f", bound, b.Size, b.MeanPreservation())
		}
	}

	logf("writing output to %s", cfg.Output)
	return writeOutputCSV(cfg.Output, out)
}
