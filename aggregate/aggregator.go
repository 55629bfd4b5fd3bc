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

// Package aggregate implements the combinatorial counting engine: for
// every record, every attribute combination up to a configured
// reporting length is enumerated and counted, alongside a per-record,
// per-length sensitivity (how many combinations of that length the
// record contributes to).
package aggregate

import (
	"sync/atomic"

	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/errs"
	"github.com/sds-go/privasynth/internal/workerpool"
)

// progressGranularity caps how often the progress callback fires: at
// most once per this many processed records, counted across all
// workers together, so that the
// callback's own cost never dominates the aggregation hot loop.
const progressGranularity = 512

// ProgressFunc receives the percentage of records processed so far.
// Returning a non-nil error requests cooperative cancellation: the
// enclosing Aggregate call will surface *errs.ProcessingStopped once
// all in-flight workers have noticed.
type ProgressFunc func(percentDone float64) error

// AggregatedData is the result of an Aggregate call: the combination
// counts, the per-record per-length sensitivities, and the (possibly
// noisy, once through the DP pipeline) number of records.
type AggregatedData struct {
	Block           *block.DataBlock
	ReportingLength int
	Aggregates      *CountMap
	// RecordsSensitivityByLen[0][r] is the sum over all lengths of
	// combinations record r contributes to; RecordsSensitivityByLen[k][r]
	// for k in [1, ReportingLength] is the count restricted to length k.
	RecordsSensitivityByLen [][]int
	NumberOfRecords         float64
}

// SensitivityAt returns the number of length-k combinations record r
// contributes to. k == 0 returns the sum over all lengths.
func (a *AggregatedData) SensitivityAt(k, r int) int {
	return a.RecordsSensitivityByLen[k][r]
}

// Clone returns a deep copy of a: its own CountMap and sensitivity
// slices, independent of the original. The DP pipeline clones its
// input before mutating counts and sensitivities in place, so the
// caller's AggregatedData (e.g. used again afterward for utility
// evaluation against the true, non-noisy counts) is left untouched.
func (a *AggregatedData) Clone() *AggregatedData {
	sens := make([][]int, len(a.RecordsSensitivityByLen))
	for k, row := range a.RecordsSensitivityByLen {
		sens[k] = append([]int(nil), row...)
	}
	return &AggregatedData{
		Block:                   a.Block,
		ReportingLength:         a.ReportingLength,
		Aggregates:              a.Aggregates.Clone(),
		RecordsSensitivityByLen: sens,
		NumberOfRecords:         a.NumberOfRecords,
	}
}

// Aggregator enumerates attribute combinations up to ReportingLength
// and counts their occurrences across a DataBlock's records.
type Aggregator struct {
	// ReportingLength is the maximum combination size tracked (L in
	// spec.md). Must be >= 0.
	ReportingLength int
	// Workers bounds the number of goroutines used to partition
	// records. 0 means runtime.GOMAXPROCS(0).
	Workers int
	// MaxCombinations, if > 0, bounds the number of distinct
	// combinations the aggregation may produce before it fails with
	// *errs.CapacityExceeded.
	MaxCombinations int
}

// New returns an Aggregator configured for the given reporting length.
func New(reportingLength int) *Aggregator {
	return &Aggregator{ReportingLength: reportingLength}
}

type localAggregate struct {
	counts *CountMap
	sens   [][]int
}

// Aggregate counts every attribute combination up to a.ReportingLength
// across d's records, reporting coarse progress (and honoring
// cooperative cancellation) through progress, which may be nil.
func (a *Aggregator) Aggregate(d *block.DataBlock, progress ProgressFunc) (*AggregatedData, error) {
	L := a.ReportingLength
	if L < 0 {
		return nil, errs.NewInvalidParameter("reporting length must be >= 0, got %d", L)
	}

	n := d.NumRecords()
	result := &AggregatedData{
		Block:           d,
		ReportingLength: L,
		Aggregates:      NewCountMap(),
		NumberOfRecords: float64(n),
	}
	result.RecordsSensitivityByLen = make([][]int, L+1)
	for k := 0; k <= L; k++ {
		result.RecordsSensitivityByLen[k] = make([]int, n)
	}
	if L == 0 || n == 0 {
		return result, nil
	}

	records := d.Records()
	shards := workerpool.Shards(n, a.Workers)

	var stopped int32
	var processed int64

	merged := workerpool.Run(shards,
		func() localAggregate {
			loc := localAggregate{counts: NewCountMap(), sens: make([][]int, L+1)}
			for k := 0; k <= L; k++ {
				loc.sens[k] = make([]int, n)
			}
			return loc
		},
		func(loc localAggregate, s workerpool.Shard) {
			for r := s.Lo; r < s.Hi; r++ {
				if atomic.LoadInt32(&stopped) != 0 {
					return
				}
				rec := records[r]
				maxLen := L
				if len(rec.Values) < maxLen {
					maxLen = len(rec.Values)
				}
				enumerateSubsets(rec.Values, maxLen, func(c combo.Combination) {
					ac := loc.counts.GetOrCreate(c)
					ac.AddRecord(r)
					k := c.Len()
					loc.sens[k][r]++
					loc.sens[0][r]++
				})
				if progress != nil {
					done := atomic.AddInt64(&processed, 1)
					if done%progressGranularity == 0 {
						if err := progress(100 * float64(done) / float64(n)); err != nil {
							atomic.StoreInt32(&stopped, 1)
						}
					}
				}
			}
		},
		func(dst *localAggregate, src localAggregate) {
			dst.counts.Merge(src.counts)
			for k := range dst.sens {
				for r := range dst.sens[k] {
					dst.sens[k][r] += src.sens[k][r]
				}
			}
		},
	)

	if atomic.LoadInt32(&stopped) != 0 {
		return nil, &errs.ProcessingStopped{}
	}
	if a.MaxCombinations > 0 && merged.counts.Len() > a.MaxCombinations {
		return nil, errs.NewCapacityExceeded(
			"aggregation produced %d combinations, exceeding the configured limit of %d",
			merged.counts.Len(), a.MaxCombinations)
	}

	result.Aggregates = merged.counts
	result.RecordsSensitivityByLen = merged.sens
	if progress != nil {
		progress(100)
	}
	return result, nil
}

// enumerateSubsets calls emit once for every non-empty subset of
// values with size in [1, maxLen], in a depth-first, column-increasing
// walk. values must already be sorted by Column (as block.Record
// guarantees), so every emitted combination is already in canonical
// order.
func enumerateSubsets(values []block.Value, maxLen int, emit func(combo.Combination)) {
	if maxLen <= 0 || len(values) == 0 {
		return
	}
	buf := make(combo.Combination, 0, maxLen)
	var walk func(start int)
	walk = func(start int) {
		if len(buf) > 0 {
			emit(buf)
		}
		if len(buf) == maxLen {
			return
		}
		for i := start; i < len(values); i++ {
			buf = append(buf, values[i])
			walk(i + 1)
			buf = buf[:len(buf)-1]
		}
	}
	walk(0)
}
