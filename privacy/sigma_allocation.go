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

	"github.com/sds-go/privasynth/errs"
)

// AccuracyMode selects how the per-length Gaussian epsilon budget is
// distributed across reporting lengths 1..L (spec.md section 4.3.2).
type AccuracyMode int

const (
	// Balanced gives every length equal weight (pₖ = 1).
	Balanced AccuracyMode = iota
	// PrioritizeLargeCounts favors short (high-count) combinations
	// with less noise (pₖ = 1/k).
	PrioritizeLargeCounts
	// PrioritizeSmallCounts favors long (low-count) combinations
	// with less noise (pₖ = 1/(L-k+1)).
	PrioritizeSmallCounts
	// Custom uses an explicit, caller-supplied proportions vector.
	Custom
)

// sigmaProportions returns the unnormalized per-length weight vector
// pₖ for k in 1..L.
func sigmaProportions(mode AccuracyMode, L int, custom []float64) ([]float64, error) {
	p := make([]float64, L)
	switch mode {
	case Balanced:
		for i := range p {
			p[i] = 1
		}
	case PrioritizeLargeCounts:
		for k := 1; k <= L; k++ {
			p[k-1] = 1 / float64(k)
		}
	case PrioritizeSmallCounts:
		for k := 1; k <= L; k++ {
			p[k-1] = 1 / float64(L-k+1)
		}
	case Custom:
		if len(custom) != L {
			return nil, errs.NewInvalidParameter("custom sigma_proportions length must equal %d, got %d", L, len(custom))
		}
		for _, v := range custom {
			if v <= 0 {
				return nil, errs.NewInvalidParameter("custom sigma_proportions must be positive, got %v", v)
			}
		}
		copy(p, custom)
	default:
		return nil, errs.NewInvalidParameter("unknown accuracy mode %d", mode)
	}
	return p, nil
}

// AllocateGaussianEpsilon splits a total epsilon budget across lengths
// 1..L proportionally to mode's weight vector, normalized so the
// composed noise satisfies the total budget under zCDP composition
// (spec.md section 4.3.2): L independently calibrated analytic
// Gaussian mechanisms compose additively in zCDP's rho, and for a
// fixed delta rho scales with epsilon^2, so the per-length epsilons
// must compose in quadrature — sum(eps_k^2) == total^2 — rather than
// by plain addition (which would under-spend the configured budget
// and yield larger, less accurate sigma than necessary).
func AllocateGaussianEpsilon(total float64, mode AccuracyMode, custom []float64, L int) ([]float64, error) {
	if total <= 0 {
		return nil, errs.NewInvalidParameter("gaussian epsilon budget must be > 0, got %v", total)
	}
	if L <= 0 {
		return nil, errs.NewInvalidParameter("reporting length must be > 0, got %d", L)
	}
	p, err := sigmaProportions(mode, L, custom)
	if err != nil {
		return nil, err
	}
	var sumSquares float64
	for _, v := range p {
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)
	eps := make([]float64, L)
	for i, v := range p {
		eps[i] = total * v / norm
	}
	return eps, nil
}
