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

// Package privacy implements the differential-privacy pipeline: the
// exponential-mechanism percentile selection and per-length
// sensitivity filter, the analytic-Gaussian noise mechanism, fixed and
// adaptive fabrication thresholds, and noisy record-count release.
package privacy

import (
	"math"
	"math/rand"
	"sort"

	"github.com/sds-go/privasynth/errs"
)

// QualityScores returns, for candidate thresholds s in [0, max(h)],
// the exponential-mechanism quality score
//
//	q(h, s) = -| count(h <= s) - ceil(percentilePct * |h| / 100) |
//
// used to privately select a per-length sensitivity bound.
//
// The one subtlety is at count(h<=s) == target: that is only a true
// zero-quality candidate when s is the actual order statistic, i.e.
// the target-th smallest value falls exactly at s (count(h<s) <
// target <= count(h<=s)). Once s has moved past that order statistic
// with no further ties at s, count(h<=s) keeps reading target by
// coincidence (no new elements changed it), but s itself is no longer
// the percentile: such a candidate scores -1, not 0. The returned
// slice is indexed by s directly.
func QualityScores(h []int, percentilePct int) []int {
	if len(h) == 0 {
		return nil
	}
	sorted := append([]int(nil), h...)
	sort.Ints(sorted)
	maxV := sorted[len(sorted)-1]
	target := int(math.Ceil(float64(percentilePct) * float64(len(h)) / 100))

	scores := make([]int, maxV+1)
	idx := 0
	count := 0
	for s := 0; s <= maxV; s++ {
		countLess := count
		for idx < len(sorted) && sorted[idx] <= s {
			count++
			idx++
		}
		d := count - target
		switch {
		case d == 0 && countLess < target:
			scores[s] = 0
		case d == 0:
			scores[s] = -1
		case d < 0:
			scores[s] = d
		default:
			scores[s] = -d
		}
	}
	return scores
}

// SelectPercentile privately selects a candidate sensitivity bound
// from h via the exponential mechanism: s is sampled with probability
// proportional to exp(epsilon * q(h, s) / 2), since the quality
// score's sensitivity Δq = 1. h must be non-empty.
func SelectPercentile(h []int, percentilePct int, epsilon float64, rng *rand.Rand) (int, error) {
	if epsilon <= 0 {
		return 0, errs.NewInvalidParameter("percentile epsilon must be > 0, got %v", epsilon)
	}
	if percentilePct < 1 || percentilePct > 99 {
		return 0, errs.NewInvalidParameter("percentile must be in [1,99], got %d", percentilePct)
	}
	scores := QualityScores(h, percentilePct)
	if len(scores) == 0 {
		return 0, errs.NewInvalidParameter("percentile selection requires a non-empty sensitivity multiset")
	}

	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}

	weights := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		w := math.Exp(epsilon * float64(s-maxScore) / 2)
		weights[i] = w
		sum += w
	}

	r := rng.Float64() * sum
	var cum float64
	for i, w := range weights {
		cum += w
		if r <= cum {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}
