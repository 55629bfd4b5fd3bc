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
	"math/rand"

	"github.com/sds-go/privasynth/errs"
)

// defaultSigmaTolerance is the default residual tolerance for the
// analytic-Gaussian bisection solver (spec.md section 4.3.2).
const defaultSigmaTolerance = 1e-10

const maxBisectionIterations = 200

func stdNormalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// analyticGaussianResidual evaluates the Balle & Wang CDF identity
// whose root in sigma is the smallest noise scale making the Gaussian
// mechanism (epsilon, delta)-DP for L2-sensitivity delta... (named Δ
// in the spec; called sensitivity here to avoid shadowing the privacy
// parameter delta).
func analyticGaussianResidual(sigma, epsilon, delta, sensitivity float64) float64 {
	a := sensitivity/(2*sigma) - epsilon*sigma/sensitivity
	b := -sensitivity/(2*sigma) - epsilon*sigma/sensitivity
	return stdNormalCDF(a) - math.Exp(epsilon)*stdNormalCDF(b) - delta
}

// AnalyticGaussianSigma solves for the smallest sigma such that
// N(0, sigma^2) noise satisfies (epsilon, delta)-DP for L2-sensitivity
// sensitivity, via bisection on the standard-normal CDF identity of
// Balle & Wang 2018, to defaultSigmaTolerance.
func AnalyticGaussianSigma(epsilon, delta, sensitivity float64) (float64, error) {
	if epsilon <= 0 {
		return 0, errs.NewInvalidParameter("epsilon must be > 0, got %v", epsilon)
	}
	if delta <= 0 || delta >= 1 {
		return 0, errs.NewInvalidParameter("delta must be in (0,1), got %v", delta)
	}
	if sensitivity <= 0 {
		return 0, errs.NewInvalidParameter("sensitivity must be > 0, got %v", sensitivity)
	}

	residual := func(sigma float64) float64 {
		return analyticGaussianResidual(sigma, epsilon, delta, sensitivity)
	}

	lo, hi := 1e-6, 1.0
	for i := 0; residual(lo) < 0 && i < maxBisectionIterations; i++ {
		lo /= 2
	}
	for i := 0; residual(hi) > 0 && i < maxBisectionIterations; i++ {
		hi *= 2
	}
	if residual(lo) < 0 || residual(hi) > 0 {
		return 0, errs.NewStatsError(
			"failed to bracket sigma root for epsilon=%v delta=%v sensitivity=%v", epsilon, delta, sensitivity)
	}

	for i := 0; i < maxBisectionIterations; i++ {
		mid := (lo + hi) / 2
		r := residual(mid)
		if math.Abs(r) <= defaultSigmaTolerance {
			return mid, nil
		}
		if r > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0, errs.NewStatsError("sigma bisection exceeded %d iterations for epsilon=%v delta=%v sensitivity=%v",
		maxBisectionIterations, epsilon, delta, sensitivity)
}

// AddGaussianNoise draws independent N(0, sigma^2) noise and adds it
// to count.
func AddGaussianNoise(count float64, sigma float64, rng *rand.Rand) float64 {
	return count + rng.NormFloat64()*sigma
}
