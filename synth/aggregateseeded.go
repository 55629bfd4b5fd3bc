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

package synth

import (
	"math"
	"math/rand"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/errs"
	"github.com/sds-go/privasynth/privacy"
)

// maxAggregateSeededRecords guards against an available-attribute
// budget that can never be fully consumed (e.g. every value's budget
// already below resolution) looping forever while still under the
// noisy target record count.
const maxAggregateSeededRecords = 10_000_000

// SynthesizeAggregate runs the AggregateSeeded protocol (spec.md
// section 4.4) over a privacy.ReportableAggregates: it has no
// record-level data to seed from, only noisy counts, so it tracks an
// R-quantized "available attributes" budget instead, consolidates
// leftover budget onto already-emitted records, and finally suppresses
// any record whose combination count falls below the resolution.
func (s *Synthesizer) SynthesizeAggregate(data *privacy.ReportableAggregates) (*block.DataBlock, error) {
	if err := s.params.validate(); err != nil {
		return nil, err
	}
	if s.params.Mode != AggregateSeeded {
		return nil, errs.NewInvalidParameter("mode %s must use Synthesize, not SynthesizeAggregate", s.params.Mode)
	}

	L := s.params.ReportingLength
	R := s.params.Resolution
	counts := data.Counts
	uni := universe(counts)

	available := make(map[block.Value]float64, len(uni))
	for _, v := range uni {
		ac, ok := counts.Get(combo.Combination{v})
		if !ok {
			continue
		}
		available[v] = math.Floor(ac.Count/R) * R
	}

	rng := rand.New(rand.NewSource(s.params.Seed))
	cache := newAttrCountCache(s.params.CacheMaxSize)

	target := roundCount(data.NumberOfRecords)
	if target > maxAggregateSeededRecords {
		target = maxAggregateSeededRecords
	}

	var synthetic []combo.Combination
	for len(synthetic) < target {
		cur := growAvailableRecord(counts, uni, available, cache, L, R, rng)
		if cur.Len() == 0 {
			// No attribute has any budget left; further attempts would
			// only spin.
			break
		}
		synthetic = append(synthetic, cur)
	}

	synthetic = consolidate(synthetic, counts, uni, available, cache, L, R, rng)
	synthetic = suppress(synthetic, counts, R)

	return buildDataBlock(data.Block, synthetic)
}

// availablePool returns the subset of uni that still has budget, in
// canonical order.
func availablePool(uni []block.Value, available map[block.Value]float64) []block.Value {
	pool := make([]block.Value, 0, len(uni))
	for _, v := range uni {
		if available[v] > 0 {
			pool = append(pool, v)
		}
	}
	return pool
}

// growAvailableRecord builds one synthetic record, starting from an
// empty combination, from the full value universe, restricted at each step to values with remaining budget, debiting
// the budget by one unit as each attribute is used.
func growAvailableRecord(counts *aggregate.CountMap, uni []block.Value, available map[block.Value]float64, cache *attrCountCache, L int, R float64, rng *rand.Rand) combo.Combination {
	return growRecord(growParams{
		L: L, R: R, rng: rng,
		candidatesFor: func(cur combo.Combination) map[block.Value]float64 {
			if cached, ok := cache.Get(cur); ok {
				return filterAvailable(cached, available)
			}
			pool := availablePool(uni, available)
			c := attrCandidates(counts, cur, pool)
			cache.Put(cur, c)
			return c
		},
		onExtend: func(ext combo.Combination, v block.Value) {
			available[v]--
		},
	})
}

// filterAvailable drops candidates whose budget is exhausted from a
// cached attribute-count map, since the cache entry itself does not
// track budget state.
func filterAvailable(candidates map[block.Value]float64, available map[block.Value]float64) map[block.Value]float64 {
	out := make(map[block.Value]float64, len(candidates))
	for v, c := range candidates {
		if available[v] > 0 {
			out[v] = c
		}
	}
	return out
}

// consolidate repeatedly tries to extend every already-emitted
// synthetic record with one more available attribute, to spend down
// leftover budget, until a full pass over all records adds nothing
// (spec.md section 4.4 step 3).
func consolidate(records []combo.Combination, counts *aggregate.CountMap, uni []block.Value, available map[block.Value]float64, cache *attrCountCache, L int, R float64, rng *rand.Rand) []combo.Combination {
	changed := true
	for changed {
		changed = false
		for i, cur := range records {
			pool := availablePool(uni, available)
			candidates := attrCandidates(counts, cur, pool)
			if len(candidates) == 0 {
				continue
			}
			accept := func(v block.Value, count float64) bool {
				ext, err := cur.ExtendWith(v)
				if err != nil {
					return false
				}
				return !(ext.Len() > L && count < R)
			}
			v, _, ok := pickAttributeMax(candidates, rng, 0, accept)
			if !ok {
				continue
			}
			ext, err := cur.ExtendWith(v)
			if err != nil {
				continue
			}
			records[i] = ext
			available[v]--
			changed = true
		}
	}
	return records
}

// suppress drops any synthetic record whose (noisy) aggregated count
// falls below the resolution (spec.md section 4.4 step 4).
func suppress(records []combo.Combination, counts *aggregate.CountMap, R float64) []combo.Combination {
	out := records[:0]
	for _, c := range records {
		if ac, ok := counts.Get(c); ok && ac.Count >= R {
			out = append(out, c)
		}
	}
	return out
}
