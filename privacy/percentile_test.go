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
	"reflect"
	"testing"
)

func TestQualityScores(t *testing.T) {
	h := []int{0, 1, 4, 5, 5, 8, 11, 12, 12, 15}
	got := QualityScores(h, 60)
	want := []int{-5, -4, -4, -4, -3, -1, -1, -1, 0, -1, -1, -1, -3, -3, -3, -4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("QualityScores(%v, 60) = %v, want %v", h, got, want)
	}
}

func TestQualityScoresPeakIsZero(t *testing.T) {
	h := []int{3, 7, 7, 9, 12}
	scores := QualityScores(h, 60)
	max := scores[0]
	for _, s := range scores {
		if s > max {
			max = s
		}
	}
	if max != 0 {
		t.Fatalf("expected a zero-quality candidate matching the target rank exactly, got max %d in %v", max, scores)
	}
}

func TestSelectPercentileFavorsHighQuality(t *testing.T) {
	h := []int{0, 1, 4, 5, 5, 8, 11, 12, 12, 15}
	rng := rand.New(rand.NewSource(1))

	counts := make(map[int]int)
	const trials = 2000
	for i := 0; i < trials; i++ {
		s, err := SelectPercentile(h, 60, 4.0, rng)
		if err != nil {
			t.Fatalf("SelectPercentile: %v", err)
		}
		counts[s]++
	}
	// At epsilon=4 the exponential mechanism should overwhelmingly
	// prefer the top-quality candidates (s=8, quality 0, and its
	// near-ties s=9,10 at quality -1) over the worst-quality one (s=0).
	if counts[8]+counts[9]+counts[10] <= counts[0] {
		t.Fatalf("expected s in {8,9,10} to dominate s=0, got distribution %v", counts)
	}
}

func TestSelectPercentileRejectsInvalidParameters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	if _, err := SelectPercentile([]int{1, 2, 3}, 60, 0, rng); err == nil {
		t.Fatal("expected error for epsilon <= 0")
	}
	if _, err := SelectPercentile([]int{1, 2, 3}, 0, 1.0, rng); err == nil {
		t.Fatal("expected error for percentile out of range")
	}
}
