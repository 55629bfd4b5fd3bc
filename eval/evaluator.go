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

// Package eval implements the Evaluator: a utility metric comparing a
// sensitive AggregatedData against a synthetic one by bucketing shared
// combinations by sensitive count and measuring how well the synthetic
// counts preserve them (spec.md section 4.5).
package eval

import (
	"sort"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/internal/workerpool"
)

// Evaluator computes preservation-by-count buckets and the combination
// loss utility metric.
type Evaluator struct {
	// Workers bounds the number of goroutines used to fill buckets.
	// 0 means runtime.GOMAXPROCS(0).
	Workers int
}

// New returns an Evaluator with default (GOMAXPROCS) parallelism.
func New() *Evaluator { return &Evaluator{} }

// Result is the output of an Evaluate call.
type Result struct {
	// Bins are the bucket boundaries used, in ascending order.
	Bins []int
	// Buckets maps a bin boundary to its accumulated statistics.
	Buckets map[int]*Bucket
	// CombinationLoss is 1 minus the size-weighted mean preservation
	// across every bucket (equivalently, 1 minus the mean preservation
	// across every shared combination).
	CombinationLoss float64
	// Compared is the number of combinations present in both the
	// sensitive and synthetic aggregates.
	Compared int
}

type sharedCombo struct {
	key            combo.Combination
	sensitiveCount float64
	synthCount     float64
	length         int
}

// Evaluate compares sensitive against synthetic: for every combination
// present in both, it computes preservation = min(1, synth/sensitive)
// and places it into the bucket matching its sensitive count.
func (e *Evaluator) Evaluate(sensitive, synthetic *aggregate.AggregatedData) *Result {
	var shared []sharedCombo
	sensitive.Aggregates.Range(func(key combo.Combination, sc *aggregate.AggregatedCount) bool {
		if tc, ok := synthetic.Aggregates.Get(key); ok {
			shared = append(shared, sharedCombo{
				key:            key,
				sensitiveCount: sc.Count,
				synthCount:     tc.Count,
				length:         key.Len(),
			})
		}
		return true
	})

	if len(shared) == 0 {
		return &Result{Bins: []int{initialBin}, Buckets: map[int]*Bucket{}, CombinationLoss: 1}
	}

	maxVal := 0
	for _, s := range shared {
		if v := int(s.sensitiveCount); v > maxVal {
			maxVal = v
		}
	}
	bins := newBucketBins(maxVal)

	shards := workerpool.Shards(len(shared), e.Workers)
	merged := workerpool.Run(shards,
		func() map[int]*Bucket { return map[int]*Bucket{} },
		func(local map[int]*Bucket, sh workerpool.Shard) {
			for i := sh.Lo; i < sh.Hi; i++ {
				s := shared[i]
				bound := bins.boundFor(int(s.sensitiveCount))
				b, ok := local[bound]
				if !ok {
					b = &Bucket{}
					local[bound] = b
				}
				preservation := s.synthCount / s.sensitiveCount
				if preservation > 1 {
					preservation = 1
				}
				b.Add(preservation, s.length, s.sensitiveCount)
			}
		},
		func(dst *map[int]*Bucket, src map[int]*Bucket) {
			for bound, sb := range src {
				db, ok := (*dst)[bound]
				if !ok {
					db = &Bucket{}
					(*dst)[bound] = db
				}
				db.merge(sb)
			}
		},
	)

	var totalSize int
	var totalPreservation float64
	for _, b := range merged {
		totalSize += b.Size
		totalPreservation += b.PreservationSum
	}
	loss := 1.0
	if totalSize > 0 {
		loss = 1 - totalPreservation/float64(totalSize)
	}

	return &Result{
		Bins:            append([]int(nil), bins.bins...),
		Buckets:         merged,
		CombinationLoss: loss,
		Compared:        len(shared),
	}
}

// SortedBounds returns the Result's bucket bounds that actually
// received at least one combination, in ascending order.
func (r *Result) SortedBounds() []int {
	bounds := make([]int, 0, len(r.Buckets))
	for b := range r.Buckets {
		bounds = append(bounds, b)
	}
	sort.Ints(bounds)
	return bounds
}
