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
	"math"
	"testing"
)

func TestAllocateGaussianEpsilonComposesInQuadratureToTotal(t *testing.T) {
	modes := []AccuracyMode{Balanced, PrioritizeLargeCounts, PrioritizeSmallCounts}
	for _, mode := range modes {
		eps, err := AllocateGaussianEpsilon(10, mode, nil, 4)
		if err != nil {
			t.Fatalf("mode %v: %v", mode, err)
		}
		var sumSquares float64
		for _, v := range eps {
			sumSquares += v * v
		}
		got := math.Sqrt(sumSquares)
		if math.Abs(got-10) > 1e-9 {
			t.Fatalf("mode %v: epsilons %v compose in quadrature to %v, want 10", mode, eps, got)
		}
	}
}

func TestAllocateGaussianEpsilonPrioritizeLargeCountsFavorsShortLengths(t *testing.T) {
	eps, err := AllocateGaussianEpsilon(10, PrioritizeLargeCounts, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !(eps[0] > eps[1] && eps[1] > eps[2]) {
		t.Fatalf("expected strictly decreasing epsilon by length, got %v", eps)
	}
}

func TestAllocateGaussianEpsilonCustomRejectsWrongLength(t *testing.T) {
	if _, err := AllocateGaussianEpsilon(10, Custom, []float64{1, 2}, 3); err == nil {
		t.Fatal("expected error for mismatched custom proportions length")
	}
}
