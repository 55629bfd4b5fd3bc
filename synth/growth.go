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
	"sort"

	"golang.org/x/exp/maps"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/block"
	"github.com/sds-go/privasynth/combo"
)

// growParams bundles everything growRecord needs to build one
// synthetic record: the per-step candidate lookup (direct for a
// record-specific pool, cached for the full value universe), the
// reporting-length/resolution stopping rule, and the oversampling
// guard.
type growParams struct {
	L             int
	R             float64
	oversamp      OversamplingParameters
	usage         *usageTracker
	rng           *rand.Rand
	firstWeighted bool
	candidatesFor func(cur combo.Combination) map[block.Value]float64
	// onExtend, if set, is called after cur is extended with v
	// (yielding ext), before the next candidate lookup. Used by the
	// AggregateSeeded path to debit its available-attribute budget.
	onExtend func(ext combo.Combination, v block.Value)
}

// growRecord repeatedly extends an initially empty combination by the
// attribute that maximizes the resulting combination's count (spec.md
// section 4.4), stopping when no candidate survives the
// reporting-length/resolution rule and the oversampling guard. When
// firstWeighted is set, the very first attribute is instead drawn by
// weighted random choice proportional to count (the ValueSeeded seed
// rule); every subsequent step uses the greedy maximize-count rule
// with weighted tie-break.
func growRecord(p growParams) combo.Combination {
	var cur combo.Combination
	first := true
	for {
		candidates := p.candidatesFor(cur)
		if len(candidates) == 0 {
			break
		}

		accept := func(v block.Value, count float64) bool {
			ext, err := cur.ExtendWith(v)
			if err != nil {
				return false
			}
			if ext.Len() > p.L && count < p.R {
				return false
			}
			if p.oversamp.Ratio > 0 && p.usage != nil {
				if float64(p.usage.Get(ext)+1) > p.oversamp.Ratio*count {
					return false
				}
			}
			return true
		}

		var v block.Value
		var ok bool
		if first && p.firstWeighted {
			v, _, ok = pickAttributeProportional(candidates, p.rng, p.oversamp.Tries, accept)
		} else {
			v, _, ok = pickAttributeMax(candidates, p.rng, p.oversamp.Tries, accept)
		}
		first = false
		if !ok {
			break
		}

		ext, err := cur.ExtendWith(v)
		if err != nil {
			break
		}
		if p.usage != nil {
			p.usage.Add(ext)
		}
		if p.onExtend != nil {
			p.onExtend(ext, v)
		}
		cur = ext
	}
	return cur
}

// attrCandidates computes, for every value in pool whose column is
// not already present in cur, the count of the combination formed by
// appending it to cur — the "attribute-count map" of spec.md section
// 4.4. Candidates with no recorded count (true count zero) are
// omitted.
func attrCandidates(counts *aggregate.CountMap, cur combo.Combination, pool []block.Value) map[block.Value]float64 {
	used := make(map[int]bool, cur.Len())
	for _, v := range cur {
		used[v.Column] = true
	}
	out := make(map[block.Value]float64)
	for _, v := range pool {
		if used[v.Column] {
			continue
		}
		ext, err := cur.ExtendWith(v)
		if err != nil {
			continue
		}
		if ac, ok := counts.Get(ext); ok && ac.Count > 0 {
			out[v] = ac.Count
		}
	}
	return out
}

// sortedKeys returns candidates' keys in canonical (column, atom)
// order, so weighted sampling is reproducible regardless of Go's
// randomized map iteration order.
func sortedKeys(candidates map[block.Value]float64) []block.Value {
	keys := make([]block.Value, 0, len(candidates))
	for v := range candidates {
		keys = append(keys, v)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Column != keys[j].Column {
			return keys[i].Column < keys[j].Column
		}
		return keys[i].Atom < keys[j].Atom
	})
	return keys
}

// maxTier returns the candidates sharing the maximum weight, in
// canonical order.
func maxTier(candidates map[block.Value]float64) ([]block.Value, float64) {
	keys := sortedKeys(candidates)
	var maxW float64
	for _, v := range keys {
		if w := candidates[v]; w > maxW {
			maxW = w
		}
	}
	ties := keys[:0:0]
	for _, v := range keys {
		if candidates[v] == maxW {
			ties = append(ties, v)
		}
	}
	return ties, maxW
}

// weightedChoiceMax picks uniformly (weighted random, but every tied
// entry shares the maximum weight) among the candidates that maximize
// count.
func weightedChoiceMax(candidates map[block.Value]float64, rng *rand.Rand) (block.Value, float64) {
	ties, maxW := maxTier(candidates)
	if len(ties) == 1 {
		return ties[0], maxW
	}
	r := rng.Float64() * maxW * float64(len(ties))
	var cum float64
	for _, v := range ties {
		cum += maxW
		if r <= cum {
			return v, maxW
		}
	}
	return ties[len(ties)-1], maxW
}

// weightedChoiceProportional picks among all candidates with
// probability proportional to count.
func weightedChoiceProportional(candidates map[block.Value]float64, rng *rand.Rand) (block.Value, float64) {
	keys := sortedKeys(candidates)
	var total float64
	for _, v := range keys {
		total += candidates[v]
	}
	r := rng.Float64() * total
	var cum float64
	for _, v := range keys {
		cum += candidates[v]
		if r <= cum {
			return v, candidates[v]
		}
	}
	last := keys[len(keys)-1]
	return last, candidates[last]
}

// pickAttributeMax draws from the max-weight tier, falling back to
// the next-best tier (by discarding the rejected candidate and
// redrawing) up to tries times, or until the candidate pool is
// exhausted. tries <= 0 means try every candidate.
func pickAttributeMax(candidates map[block.Value]float64, rng *rand.Rand, tries int, accept func(block.Value, float64) bool) (block.Value, float64, bool) {
	return pickAttribute(candidates, rng, tries, weightedChoiceMax, accept)
}

// pickAttributeProportional is pickAttributeMax's counterpart using
// proportional (not max-tier) weighted sampling.
func pickAttributeProportional(candidates map[block.Value]float64, rng *rand.Rand, tries int, accept func(block.Value, float64) bool) (block.Value, float64, bool) {
	return pickAttribute(candidates, rng, tries, weightedChoiceProportional, accept)
}

func pickAttribute(candidates map[block.Value]float64, rng *rand.Rand, tries int, choose func(map[block.Value]float64, *rand.Rand) (block.Value, float64), accept func(block.Value, float64) bool) (block.Value, float64, bool) {
	pool := maps.Clone(candidates)
	attempts := tries
	if attempts <= 0 {
		attempts = len(pool)
	}
	for i := 0; i < attempts && len(pool) > 0; i++ {
		v, w := choose(pool, rng)
		if accept(v, w) {
			return v, w, true
		}
		delete(pool, v)
	}
	return block.Value{}, 0, false
}

// universe returns every single-attribute value with a nonzero count,
// in canonical order: the full value pool ValueSeeded and Unseeded
// grow from.
func universe(counts *aggregate.CountMap) []block.Value {
	candidates := map[block.Value]float64{}
	counts.Range(func(key combo.Combination, count *aggregate.AggregatedCount) bool {
		if key.Len() == 1 && count.Count > 0 {
			candidates[key[0]] = count.Count
		}
		return true
	})
	return sortedKeys(candidates)
}

// roundCount converts a (possibly noisy, possibly fractional) record
// count into a non-negative target number of synthetic records.
func roundCount(n float64) int {
	r := math.Round(n)
	if r < 0 {
		return 0
	}
	return int(r)
}

func buildDataBlock(src *block.DataBlock, combos []combo.Combination) (*block.DataBlock, error) {
	records := make([]block.Record, len(combos))
	for i, c := range combos {
		records[i] = block.Record{Values: []block.Value(c)}
	}
	return block.New(src.Headers(), records, nil, src.Atoms())
}
