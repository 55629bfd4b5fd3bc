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

package privacy

import (
	"math/rand"
	"sort"

	"github.com/sds-go/privasynth/aggregate"
	"github.com/sds-go/privasynth/combo"
	"github.com/sds-go/privasynth/errs"
)

// SensitivityFilter privately selects, for every length k in
// [1, data.ReportingLength], a sensitivity bound Sₖ via the
// exponential-mechanism percentile (SelectPercentile) over the
// per-record sensitivities at that length, then truncates every
// record's contribution at length k down to Sₖ by removing it from
// its most-dispensable combinations. It mutates data in place and
// returns the selected bound per length, indexed by k (index 0 is
// unused).
func SensitivityFilter(data *aggregate.AggregatedData, percentilePct int, epsilonPerLength []float64, rng *rand.Rand) ([]int, error) {
	L := data.ReportingLength
	if len(epsilonPerLength) != L {
		return nil, errs.NewInvalidParameter("sensitivity filter needs %d per-length epsilons, got %d", L, len(epsilonPerLength))
	}

	selected := make([]int, L+1)
	for k := 1; k <= L; k++ {
		h := data.RecordsSensitivityByLen[k]
		sk, err := SelectPercentile(h, percentilePct, epsilonPerLength[k-1], rng)
		if err != nil {
			return nil, err
		}
		selected[k] = sk

		for r, sens := range h {
			if sens <= sk {
				continue
			}
			excess := sens - sk
			truncateRecord(data, k, r, excess)
		}
	}
	return selected, nil
}

// truncateRecord removes record r from excess of its length-k
// combinations, chosen by ascending current count then lexicographic
// order on the combination — the deterministic tie-break from
// spec.md section 4.3.1.
func truncateRecord(data *aggregate.AggregatedData, k, r, excess int) {
	type candidate struct {
		c     combo.Combination
		count float64
	}
	var candidates []candidate
	data.Aggregates.Range(func(key combo.Combination, count *aggregate.AggregatedCount) bool {
		if key.Len() != k {
			return true
		}
		if _, ok := count.ContainedInRecords[r]; !ok {
			return true
		}
		candidates = append(candidates, candidate{c: key, count: count.Count})
		return true
	})

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count < candidates[j].count
		}
		return lessCombination(candidates[i].c, candidates[j].c)
	})

	if excess > len(candidates) {
		excess = len(candidates)
	}
	for _, cand := range candidates[:excess] {
		ac, ok := data.Aggregates.Get(cand.c)
		if !ok {
			continue
		}
		ac.RemoveRecord(r)
		data.RecordsSensitivityByLen[k][r]--
		data.RecordsSensitivityByLen[0][r]--
	}
}

// lessCombination provides the lexicographic tie-break over
// (column, atom) pairs used when two candidate combinations have the
// same current count.
func lessCombination(a, b combo.Combination) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Column != b[i].Column {
			return a[i].Column < b[i].Column
		}
		if a[i].Atom != b[i].Atom {
			return a[i].Atom < b[i].Atom
		}
	}
	return len(a) < len(b)
}
