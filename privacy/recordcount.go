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

// RecordCountNoiseKind selects the noise distribution used to release
// the (possibly privatized) number of records, per spec.md section
// 4.3.4.
type RecordCountNoiseKind int

const (
	// LaplaceNoise adds Laplace(0, sensitivity/epsilon) noise.
	LaplaceNoise RecordCountNoiseKind = iota
	// GaussianNoise adds N(0, sigma^2) noise, sigma from the
	// analytic-Gaussian mechanism at (epsilon, delta) for the given
	// sensitivity (1: adding or removing one record changes the
	// count by exactly one).
	GaussianNoise
)

// sampleLaplace draws from Laplace(0, scale) via inverse-CDF
// sampling.
func sampleLaplace(scale float64, rng *rand.Rand) float64 {
	u := rng.Float64() - 0.5
	sign := 1.0
	if u < 0 {
		sign = -1.0
	}
	return -scale * sign * math.Log(1-2*math.Abs(u))
}

// NoisyRecordCount releases n with Laplace or Gaussian noise
// calibrated to epsilon (and, for Gaussian, delta), assuming unit
// sensitivity: adding or removing a single record changes n by
// exactly one.
func NoisyRecordCount(n float64, epsilon, delta float64, kind RecordCountNoiseKind, rng *rand.Rand) (float64, error) {
	if epsilon <= 0 {
		return 0, errs.NewInvalidParameter("record count epsilon must be > 0, got %v", epsilon)
	}
	switch kind {
	case LaplaceNoise:
		return n + sampleLaplace(1/epsilon, rng), nil
	case GaussianNoise:
		sigma, err := AnalyticGaussianSigma(epsilon, delta, 1)
		if err != nil {
			return 0, err
		}
		return AddGaussianNoise(n, sigma, rng), nil
	default:
		return 0, errs.NewInvalidParameter("unknown record count noise kind %d", kind)
	}
}
