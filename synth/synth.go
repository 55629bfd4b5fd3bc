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

// Package synth implements the Synthesizer: seeded row-by-row sampling
// that consumes aggregated combination counts (sensitive or, via the
// DP pipeline, noisy) to produce a synthetic DataBlock whose own
// combination counts approximate the source's within a reporting-
// length budget (spec.md section 4.4).
package synth

import (
	"math/rand"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/errs"
)

// Mode selects how synthetic records are seeded.
type Mode int

const (
	// RowSeeded iterates source records in order and grows a synthetic
	// record from each record's own attribute set. Default, highest
	// utility.
	RowSeeded Mode = iota
	// ValueSeeded seeds each synthetic record from a single (column,
	// value) pair drawn proportional to its single-attribute count,
	// then grows from the full value universe.
	ValueSeeded
	// Unseeded starts from an empty combination and grows from the
	// full value universe with no seed bias.
	Unseeded
	// AggregateSeeded consumes a privacy.ReportableAggregates (noisy
	// counts, no record sets) via Synthesizer.SynthesizeAggregate
	// instead of Synthesizer.Synthesize.
	AggregateSeeded
)

func (m Mode) String() string {
	switch m {
	case RowSeeded:
		return "row-seeded"
	case ValueSeeded:
		return "value-seeded"
	case Unseeded:
		return "unseeded"
	case AggregateSeeded:
		return "aggregate-seeded"
	default:
		return "unknown"
	}
}

// OversamplingParameters bounds how far a combination's usage across
// emitted synthetic records may exceed its aggregated count (spec.md
// section 4.4's stopping condition (ii)).
type OversamplingParameters struct {
	// Ratio caps usage of a combination at Ratio times its aggregated
	// count. Zero (or negative) means unbounded.
	Ratio float64
	// Tries bounds how many candidate attributes are considered, in
	// weight order, before giving up on extending a record further in
	// the current step. Zero means try every candidate.
	Tries int
}

// Parameters configures a Synthesizer invocation.
type Parameters struct {
	// ReportingLength is L: combinations longer than this may only be
	// emitted if their count is already at least Resolution.
	ReportingLength int
	// Resolution is R: the minimum aggregated count a combination must
	// have to influence synthesis.
	Resolution float64
	Mode       Mode

	Oversampling OversamplingParameters
	// CacheMaxSize bounds the attribute-count cache (spec.md section
	// 4.4). Zero disables caching.
	CacheMaxSize int
	// Seed fixes the PRNG used for weighted tie-breaks; the same seed,
	// inputs, and mode produce identical output.
	Seed int64
}

func (p Parameters) validate() error {
	if p.ReportingLength <= 0 {
		return errs.NewInvalidParameter("synthesizer reporting length must be > 0, got %d", p.ReportingLength)
	}
	if p.Resolution <= 0 {
		return errs.NewInvalidParameter("synthesizer resolution must be > 0, got %v", p.Resolution)
	}
	return nil
}

// Synthesizer generates synthetic DataBlocks from aggregated
// combination counts. Each call to Synthesize or SynthesizeAggregate
// owns a fresh PRNG and attribute-count cache: state never leaks
// between invocations, though multiple invocations may run
// concurrently over independent AggregatedData (spec.md section 5).
type Synthesizer struct {
	params Parameters
}

// New returns a Synthesizer configured by params.
func New(params Parameters) *Synthesizer {
	return &Synthesizer{params: params}
}

// Synthesize runs the RowSeeded, ValueSeeded, or Unseeded protocol
// over the sensitive AggregatedData. Use SynthesizeAggregate for the
// AggregateSeeded (DP) path.
func (s *Synthesizer) Synthesize(data *aggregate.AggregatedData) (*block.DataBlock, error) {
	if err := s.params.validate(); err != nil {
		return nil, err
	}
	if s.params.Mode == AggregateSeeded {
		return nil, errs.NewInvalidParameter("mode %s requires SynthesizeAggregate, not Synthesize", s.params.Mode)
	}

	counts := data.Aggregates
	uni := universe(counts)
	rng := rand.New(rand.NewSource(s.params.Seed))
	cache := newAttrCountCache(s.params.CacheMaxSize)
	usage := newUsageTracker()

	var out []combo.Combination
	switch s.params.Mode {
	case RowSeeded:
		for _, rec := range data.Block.Records() {
			pool := rec.Values
			cur := growRecord(growParams{
				L: s.params.ReportingLength, R: s.params.Resolution,
				oversamp: s.params.Oversampling, usage: usage, rng: rng,
				candidatesFor: func(cur combo.Combination) map[block.Value]float64 {
					return attrCandidates(counts, cur, pool)
				},
			})
			if cur.Len() > 0 {
				out = append(out, cur)
			}
		}
	case ValueSeeded, Unseeded:
		n := roundCount(data.NumberOfRecords)
		firstWeighted := s.params.Mode == ValueSeeded
		for i := 0; i < n; i++ {
			cur := growRecord(growParams{
				L: s.params.ReportingLength, R: s.params.Resolution,
				oversamp: s.params.Oversampling, usage: usage, rng: rng,
				firstWeighted: firstWeighted,
				candidatesFor: func(cur combo.Combination) map[block.Value]float64 {
					if cached, ok := cache.Get(cur); ok {
						return cached
					}
					c := attrCandidates(counts, cur, uni)
					cache.Put(cur, c)
					return c
				},
			})
			if cur.Len() > 0 {
				out = append(out, cur)
			}
		}
	default:
		return nil, errs.NewInvalidParameter("unknown synthesis mode %d", s.params.Mode)
	}

	return buildDataBlock(data.Block, out)
}
